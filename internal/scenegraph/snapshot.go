package scenegraph

import "sort"

// Snapshot is the full world dump emitted per update interval, per spec
// §4.3.3, published on the well-known "aerosim.scene_graph.update" topic.
type Snapshot struct {
	Entities   map[EntityID][]string          `json:"entities"`
	Components SnapshotComponents             `json:"components"`
	Resources  SnapshotResources              `json:"resources"`
}

// SnapshotComponents groups per-kind serialized components, keyed by
// entity id within each kind.
type SnapshotComponents struct {
	ActorProperties map[EntityID]ActorProperties         `json:"actor_properties,omitempty"`
	ActorState      map[EntityID]ActorStateView          `json:"actor_state,omitempty"`
	Transform       map[EntityID]Transform               `json:"transform,omitempty"`
	Effectors       map[EntityID][]Effector              `json:"effectors,omitempty"`
	PFD             map[EntityID]PrimaryFlightDisplay    `json:"pfd,omitempty"`
	Trajectory      map[EntityID]TrajectoryVisualization `json:"trajectory,omitempty"`
	Sensors         map[EntityID][]Sensor                `json:"sensors,omitempty"`
}

// ActorStateView is ActorState flattened for JSON, since WorldCoordinate
// exposes its representations through accessor methods rather than fields.
type ActorStateView struct {
	PositionNED [3]float64 `json:"position_ned"`
	Orientation [4]float64 `json:"orientation_wxyz"`
	LLA         [3]float64 `json:"lla"`
	ECEF        [3]float64 `json:"ecef"`
	Cartesian   [3]float64 `json:"cartesian"`
}

// SnapshotResources carries the world singletons named in spec §3.
type SnapshotResources struct {
	Origin    struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Altitude  float64 `json:"altitude"`
	} `json:"origin"`
	Weather   struct {
		Preset string `json:"preset"`
	} `json:"weather"`
	Viewports map[string]ViewportConfig `json:"viewports"`
}

// EntityCount returns the number of entities currently in the graph.
func (sg *SceneGraph) EntityCount() int {
	return len(sg.entities)
}

// GlobalNED returns entity id's current NED position, derived from its
// cached WorldCoordinate.
func (sg *SceneGraph) GlobalNED(id EntityID) (geoVec [3]float64, ok bool) {
	state, present := sg.states[id]
	if !present {
		return geoVec, false
	}
	ned := state.World.NED()
	return [3]float64{ned.X, ned.Y, ned.Z}, true
}

// Transform returns entity id's local ECS transform, relative to its
// parent. Propagation does not store global transforms; an entity's
// global position is reflected in its ActorState WorldCoordinate (see
// GlobalNED).
func (sg *SceneGraph) Transform(id EntityID) (Transform, bool) {
	tr, ok := sg.transforms[id]
	return tr, ok
}

// EntityByName resolves an actor name to its entity id, used by tests
// asserting on specific actors.
func (sg *SceneGraph) EntityByName(name string) (EntityID, bool) {
	id, ok := sg.byName[name]
	return id, ok
}

// Snapshot builds a full world dump, per spec §4.3.3. Called both from
// Update (after a successful tick) and directly by the orchestrator for
// the initial load_scene_graph broadcast.
func (sg *SceneGraph) Snapshot() *Snapshot {
	snap := &Snapshot{
		Entities: make(map[EntityID][]string, len(sg.entities)),
		Components: SnapshotComponents{
			ActorProperties: make(map[EntityID]ActorProperties),
			ActorState:      make(map[EntityID]ActorStateView),
			Transform:       make(map[EntityID]Transform),
			Effectors:       make(map[EntityID][]Effector),
			PFD:             make(map[EntityID]PrimaryFlightDisplay),
			Trajectory:      make(map[EntityID]TrajectoryVisualization),
			Sensors:         make(map[EntityID][]Sensor),
		},
	}

	ids := make([]EntityID, 0, len(sg.entities))
	for id := range sg.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		var kinds []string
		if props, ok := sg.properties[id]; ok {
			snap.Components.ActorProperties[id] = props
			kinds = append(kinds, "actor_properties")
		}
		if state, ok := sg.states[id]; ok {
			ned := state.World.NED()
			lat, lon, alt := state.World.LLA()
			ecef := state.World.ECEF()
			cart := state.World.Cartesian()
			snap.Components.ActorState[id] = ActorStateView{
				PositionNED: [3]float64{ned.X, ned.Y, ned.Z},
				Orientation: [4]float64{state.Orientation.W, state.Orientation.X, state.Orientation.Y, state.Orientation.Z},
				LLA:         [3]float64{lat, lon, alt},
				ECEF:        [3]float64{ecef.X, ecef.Y, ecef.Z},
				Cartesian:   [3]float64{cart.X, cart.Y, cart.Z},
			}
			kinds = append(kinds, "actor_state")
		}
		if tr, ok := sg.transforms[id]; ok {
			snap.Components.Transform[id] = tr
			kinds = append(kinds, "transform")
		}
		if effs, ok := sg.effectors[id]; ok && len(effs) > 0 {
			snap.Components.Effectors[id] = effs
			kinds = append(kinds, "effectors")
		}
		if pfd, ok := sg.pfds[id]; ok {
			snap.Components.PFD[id] = pfd
			kinds = append(kinds, "pfd")
		}
		if traj, ok := sg.trajectory[id]; ok {
			snap.Components.Trajectory[id] = traj
			kinds = append(kinds, "trajectory")
		}
		if sensors, ok := sg.sensors[id]; ok && len(sensors) > 0 {
			snap.Components.Sensors[id] = sensors
			kinds = append(kinds, "sensors")
		}
		snap.Entities[id] = kinds
	}

	snap.Resources.Origin.Latitude = sg.origin.Latitude
	snap.Resources.Origin.Longitude = sg.origin.Longitude
	snap.Resources.Origin.Altitude = sg.origin.Altitude
	snap.Resources.Weather.Preset = sg.weather.Preset
	snap.Resources.Viewports = sg.viewports

	return snap
}
