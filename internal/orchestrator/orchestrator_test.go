package orchestrator

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/edufford/aerosim/internal/config"
	"github.com/edufford/aerosim/internal/message"
	"github.com/edufford/aerosim/internal/registry"
	"github.com/edufford/aerosim/internal/simclock"
	"github.com/edufford/aerosim/internal/timestamp"
	"github.com/edufford/aerosim/internal/transport"
)

func noopRecorder(string) (io.Writer, io.Closer, error) { return nil, nil, nil }

func minimalConfig(t *testing.T, rendererIDs ...string) *config.Scenario {
	t.Helper()
	renderers := make([]config.Renderer, 0, len(rendererIDs))
	for _, id := range rendererIDs {
		renderers = append(renderers, config.Renderer{RendererID: id, ViewportConfig: config.ViewportConfig{ActiveCamera: "alpha"}})
	}
	cfg := &config.Scenario{
		Clock: config.Clock{StepSizeMs: 20},
		World: config.World{
			UpdateIntervalMs: 20,
			Actors: []config.Actor{
				{Name: "alpha", Asset: "plane", StateTopic: "aerosim.actor.alpha.state"},
			},
		},
		Renderers: renderers,
	}
	return cfg
}

func fakeRenderer(t *testing.T, tr transport.Transport, id string) {
	t.Helper()
	err := tr.SubscribeRaw("Command", TopicCommands, func(raw []byte) {
		_, payload, err := transport.DeserializeMessage(raw)
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return
		}
		var status string
		switch cmd.Command {
		case CommandLoadConfig:
			status = StatusConfigLoaded
		case CommandLoadSceneGraph:
			status = StatusSceneGraphLoaded
		default:
			return
		}
		data, _ := json.Marshal(RendererStatus{RendererID: id, Status: status})
		_ = tr.Publish("RendererStatus", TopicRendererStatus, data, timestamp.Timestamp{})
	})
	if err != nil {
		t.Fatalf("subscribe fake renderer: %v", err)
	}
}

func waitForState(t *testing.T, o *Orchestrator, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, last seen %s", want, o.State())
}

func TestLoadStartStopHappyPath(t *testing.T) {
	tr := transport.NewInProcess()
	fakeRenderer(t, tr, "viz1")
	cfg := minimalConfig(t, "viz1")

	o := New(tr, registry.New(), nil)
	if err := o.Load(cfg, noopRecorder); err != nil {
		t.Fatalf("load: %v", err)
	}
	if o.State() != StateLoadedConfig {
		t.Fatalf("expected LoadedConfig, got %s", o.State())
	}

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, StateRunning, time.Second)

	time.Sleep(50 * time.Millisecond) // let a handful of ticks run

	if err := o.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if o.State() != StateStopped {
		t.Fatalf("expected Stopped, got %s", o.State())
	}
}

func TestLoadTimesOutWithoutRendererAck(t *testing.T) {
	origTimeout, origRepublish := handshakeTimeout, handshakeRepublish
	handshakeTimeout = 40 * time.Millisecond
	handshakeRepublish = 10 * time.Millisecond
	defer func() { handshakeTimeout, handshakeRepublish = origTimeout, origRepublish }()

	tr := transport.NewInProcess()
	cfg := minimalConfig(t, "viz1") // no fake renderer ever acks

	o := New(tr, registry.New(), nil)
	err := o.Load(cfg, noopRecorder)
	if err == nil {
		t.Fatalf("expected handshake timeout error, got nil")
	}
	if o.State() != StateIdle {
		t.Fatalf("expected Idle after failed load, got %s", o.State())
	}
}

func TestStartTimesOutWithoutSceneGraphAck(t *testing.T) {
	origTimeout, origRepublish := handshakeTimeout, handshakeRepublish
	handshakeTimeout = 40 * time.Millisecond
	handshakeRepublish = 10 * time.Millisecond
	defer func() { handshakeTimeout, handshakeRepublish = origTimeout, origRepublish }()

	tr := transport.NewInProcess()
	cfg := minimalConfig(t, "viz1")

	var acked bool
	err := tr.SubscribeRaw("Command", TopicCommands, func(raw []byte) {
		if acked {
			return // only ack load_config, never load_scene_graph
		}
		_, payload, err := transport.DeserializeMessage(raw)
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil || cmd.Command != CommandLoadConfig {
			return
		}
		acked = true
		data, _ := json.Marshal(RendererStatus{RendererID: "viz1", Status: StatusConfigLoaded})
		_ = tr.Publish("RendererStatus", TopicRendererStatus, data, timestamp.Timestamp{})
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	o := New(tr, registry.New(), nil)
	if err := o.Load(cfg, noopRecorder); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := o.Start(); err == nil {
		t.Fatalf("expected start to time out waiting for scene_graph_loaded ack")
	}
	if o.State() != StateIdle {
		t.Fatalf("expected Idle after failed start, got %s", o.State())
	}
}

func TestRequiredSyncTopicsWildcardOnZeroInterval(t *testing.T) {
	topics := []syncTopic{{topic: "every-tick", interval: timestamp.Timestamp{}}}
	got := requiredSyncTopics(topics, timestamp.FromMillis(12345))
	if !got["every-tick"] {
		t.Fatalf("zero-interval sync topic must participate in every tick")
	}
}

// TestRequiredSyncTopicsSecDivisibilityQuirk pins the exact upstream
// behavior (orchestrator.rs's get_sync_topics_for_simtime): a whole-second
// interval is trivially satisfied by every integer seconds value, not just
// at second boundaries, because the check is sim_time.sec % interval.sec,
// and interval.sec == 1 divides everything.
func TestRequiredSyncTopicsSecDivisibilityQuirk(t *testing.T) {
	topics := []syncTopic{{topic: "one-hz", interval: timestamp.Timestamp{Sec: 1}}}
	for _, ms := range []int64{0, 100, 250, 999, 1000, 1999} {
		got := requiredSyncTopics(topics, timestamp.FromMillis(ms))
		if !got["one-hz"] {
			t.Fatalf("expected one-hz topic selected at %dms (sec=%d)", ms, ms/1000)
		}
	}
}

func TestRequiredSyncTopicsSecIntervalBoundary(t *testing.T) {
	topics := []syncTopic{{topic: "two-sec", interval: timestamp.Timestamp{Sec: 2}}}
	got := requiredSyncTopics(topics, timestamp.FromMillis(3000))
	if got["two-sec"] {
		t.Fatalf("3s should not satisfy a 2s interval (3 %% 2 != 0)")
	}
	got = requiredSyncTopics(topics, timestamp.FromMillis(4000))
	if !got["two-sec"] {
		t.Fatalf("4s should satisfy a 2s interval (4 %% 2 == 0)")
	}
}

func TestResolveSimTimeFallsBackToClockMapping(t *testing.T) {
	o := New(transport.NewInProcess(), registry.New(), nil)
	o.clock = simclock.New(20 * time.Millisecond)
	startWall := o.clock.Start()
	firstSim := o.clock.Step()

	lateMeta := message.Metadata{SimTime: timestamp.Unset(), PlatformTime: timestamp.FromNanos(startWall.Add(5 * time.Millisecond).UnixNano())}
	got := o.resolveSimTime(lateMeta)
	if got != firstSim {
		t.Fatalf("expected resolveSimTime to map platform time to latest tick %v, got %v", firstSim, got)
	}

	exactMeta := message.Metadata{SimTime: timestamp.FromMillis(99)}
	got = o.resolveSimTime(exactMeta)
	if got != timestamp.FromMillis(99) {
		t.Fatalf("expected resolveSimTime to use an explicit valid sim_time verbatim, got %v", got)
	}
}
