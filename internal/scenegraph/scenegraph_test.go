package scenegraph

import (
	"encoding/json"
	"testing"

	"github.com/edufford/aerosim/internal/config"
	"github.com/edufford/aerosim/internal/timestamp"
)

func twoActorScenario() *config.Scenario {
	return &config.Scenario{
		Clock: config.Clock{StepSizeMs: 20},
		World: config.World{
			UpdateIntervalMs: 20,
			Actors: []config.Actor{
				{Name: "A", Parent: "", Pose: config.Pose{Position: config.NED{North: 0, East: 0, Down: 0}}},
				{Name: "B", Parent: "A", StateTopic: "b.state", Pose: config.Pose{Position: config.NED{North: 10, East: 0, Down: 0}}},
			},
		},
	}
}

// TestTwoActorLoad mirrors spec §8 end-to-end scenario 1.
func TestTwoActorLoad(t *testing.T) {
	sg := New()
	if err := sg.Load(twoActorScenario()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if sg.EntityCount() != 2 {
		t.Fatalf("entity count = %d, want 2", sg.EntityCount())
	}

	b, ok := sg.EntityByName("B")
	if !ok {
		t.Fatalf("entity B not found")
	}
	ned, ok := sg.GlobalNED(b)
	if !ok {
		t.Fatalf("no global NED for B")
	}
	if ned != [3]float64{10, 0, 0} {
		t.Fatalf("B global NED = %+v, want (10,0,0)", ned)
	}

	tr, ok := sg.Transform(b)
	if !ok {
		t.Fatalf("no transform for B")
	}
	want := [3]float64{0, 0, 10}
	got := [3]float64{tr.Position.X, tr.Position.Y, tr.Position.Z}
	if got != want {
		t.Fatalf("B ECS transform = %+v, want %+v", got, want)
	}
}

func TestLoadFailsOnUnresolvedParent(t *testing.T) {
	sg := New()
	cfg := &config.Scenario{World: config.World{Actors: []config.Actor{
		{Name: "B", Parent: "ghost"},
	}}}
	if err := sg.Load(cfg); err == nil {
		t.Fatal("expected error for unresolved parent")
	}
}

func TestSnapshotCompletenessAfterUpdate(t *testing.T) {
	sg := New()
	if err := sg.Load(twoActorScenario()); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := sg.EntityCount()

	_, emitted := sg.Update(nil, timestamp.FromMillis(100))
	if !emitted {
		t.Fatalf("expected snapshot emission on first update")
	}
	snap := sg.Snapshot()
	if len(snap.Entities) != before {
		t.Fatalf("snapshot entity count = %d, want %d", len(snap.Entities), before)
	}
}

func TestUpdateSkippedWithinInterval(t *testing.T) {
	sg := New()
	if err := sg.Load(twoActorScenario()); err != nil {
		t.Fatalf("load: %v", err)
	}
	sg.Update(nil, timestamp.FromMillis(20))
	_, emitted := sg.Update(nil, timestamp.FromMillis(25))
	if emitted {
		t.Fatalf("update before interval elapsed should not emit a snapshot")
	}
}

// TestCoalescence mirrors spec §8 end-to-end scenario 5.
func TestCoalescence(t *testing.T) {
	sg := New()
	cfg := twoActorScenario()
	if err := sg.Load(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	b, _ := sg.EntityByName("B")

	payload := func(north float64) json.RawMessage {
		b, _ := json.Marshal(ActorStatePayload{Position: NEDOffset{North: north}})
		return b
	}
	queue := []StateUpdate{
		{Topic: "b.state", SimTime: timestamp.FromMillis(5), Payload: payload(5)},
		{Topic: "b.state", SimTime: timestamp.FromMillis(6), Payload: payload(6)},
		{Topic: "b.state", SimTime: timestamp.FromMillis(8), Payload: payload(8)},
	}
	sg.Update(queue, timestamp.FromMillis(20))

	ned, _ := sg.GlobalNED(b)
	if ned[0] != 8 {
		t.Fatalf("coalescence kept north=%v, want 8 (latest sim_time payload)", ned[0])
	}
}

// TestTrajectoryStats checks that applying a trajectory update derives a
// nonzero cumulative path length and bearing from the waypoint polyline.
func TestTrajectoryStats(t *testing.T) {
	sg := New()
	cfg := &config.Scenario{World: config.World{Actors: []config.Actor{
		{Name: "A", Trajectory: &config.Trajectory{StateTopic: "a.trajectory"}},
	}}}
	if err := sg.Load(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	a, _ := sg.EntityByName("A")

	payload, err := json.Marshal(TrajectoryPayload{
		ShowPath: true,
		PathPoints: [][3]float64{
			{0, 0, 0},
			{1000, 0, 0},
			{1000, 1000, 0},
		},
	})
	if err != nil {
		t.Fatalf("marshal trajectory payload: %v", err)
	}
	sg.Update([]StateUpdate{{Topic: "a.trajectory", SimTime: timestamp.FromMillis(10), Payload: payload}}, timestamp.FromMillis(20))

	traj, ok := sg.trajectory[a]
	if !ok {
		t.Fatalf("no trajectory component for A")
	}
	if traj.PathLengthMeters <= 0 {
		t.Fatalf("PathLengthMeters = %v, want > 0", traj.PathLengthMeters)
	}
	if traj.PathBearingDeg < 0 || traj.PathBearingDeg >= 360 {
		t.Fatalf("PathBearingDeg = %v, want in [0,360)", traj.PathBearingDeg)
	}
}

func TestTransformCompositionWithGrandchild(t *testing.T) {
	sg := New()
	cfg := &config.Scenario{World: config.World{Actors: []config.Actor{
		{Name: "root"},
		{Name: "mid", Parent: "root", Pose: config.Pose{Position: config.NED{North: 5}}},
		{Name: "leaf", Parent: "mid", Pose: config.Pose{Position: config.NED{North: 2}}},
	}}}
	if err := sg.Load(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	leaf, _ := sg.EntityByName("leaf")
	ned, _ := sg.GlobalNED(leaf)
	if ned != [3]float64{7, 0, 0} {
		t.Fatalf("leaf global NED = %+v, want (7,0,0)", ned)
	}
}
