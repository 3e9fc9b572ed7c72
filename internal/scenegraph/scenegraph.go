package scenegraph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/edufford/aerosim/internal/config"
	"github.com/edufford/aerosim/internal/geo"
	"github.com/edufford/aerosim/internal/timestamp"
)

// StateUpdate is one (timestamp, topic, payload) tuple accumulated by the
// orchestrator since the previous update, per spec §4.3.2.
type StateUpdate struct {
	SimTime timestamp.Timestamp
	Topic   string
	Payload json.RawMessage
}

// ActorStatePayload is the wire shape for actor/effector state updates,
// exported so it can be bound into the type registry for schema
// generation (see cmd/orchestratord's registerWireTypes).
type ActorStatePayload struct {
	Position       NEDOffset `json:"position"`
	OrientationRPY RPYAngles `json:"orientation_rpy"`
}

// NEDOffset is a north/east/down wire position.
type NEDOffset struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Down  float64 `json:"down"`
}

// RPYAngles is a roll/pitch/yaw wire orientation, radians, NED convention.
type RPYAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// PFDPayload is the wire shape for primary-flight-display state updates.
type PFDPayload struct {
	Values map[string]float64 `json:"values"`
}

// TrajectoryPayload is the wire shape for trajectory-visualization state
// updates; waypoint arrays are free-form per spec §9.
type TrajectoryPayload struct {
	ShowPath      bool         `json:"show_path"`
	ShowPlanned   bool         `json:"show_planned"`
	PathPoints    [][3]float64 `json:"path_points"`
	PlannedPoints [][3]float64 `json:"planned_points"`
}

type effectorRef struct {
	entity EntityID
	index  int
}

// SceneGraph is the authoritative world: single-writer, touched only by
// the orchestrator goroutine, per spec §5 (no internal locking).
type SceneGraph struct {
	ellipsoid geo.Ellipsoid

	nextID   EntityID
	entities map[EntityID]bool
	byName   map[string]EntityID

	properties map[EntityID]ActorProperties
	states     map[EntityID]*ActorState
	transforms map[EntityID]Transform
	effectors  map[EntityID][]Effector
	pfds       map[EntityID]PrimaryFlightDisplay
	trajectory map[EntityID]TrajectoryVisualization
	sensors    map[EntityID][]Sensor

	parent   map[EntityID]EntityID
	children map[EntityID][]EntityID

	stateTopic     map[string]EntityID
	effectorTopic  map[string]effectorRef
	pfdTopic       map[string]EntityID
	trajectoryTopic map[string]EntityID

	origin  config.Origin
	weather config.Weather
	viewports map[string]ViewportConfig

	updateIntervalMs int
	lastUpdateTime   timestamp.Timestamp
	hasUpdated       bool
}

// New constructs an empty scene graph.
func New() *SceneGraph {
	return &SceneGraph{
		ellipsoid:       geo.WGS84(),
		entities:        make(map[EntityID]bool),
		byName:          make(map[string]EntityID),
		properties:      make(map[EntityID]ActorProperties),
		states:          make(map[EntityID]*ActorState),
		transforms:      make(map[EntityID]Transform),
		effectors:       make(map[EntityID][]Effector),
		pfds:            make(map[EntityID]PrimaryFlightDisplay),
		trajectory:      make(map[EntityID]TrajectoryVisualization),
		sensors:         make(map[EntityID][]Sensor),
		parent:          make(map[EntityID]EntityID),
		children:        make(map[EntityID][]EntityID),
		stateTopic:      make(map[string]EntityID),
		effectorTopic:   make(map[string]effectorRef),
		pfdTopic:        make(map[string]EntityID),
		trajectoryTopic: make(map[string]EntityID),
		viewports:       make(map[string]ViewportConfig),
	}
}

// Load builds the scene graph from a scenario config, per spec §4.3.1.
func (sg *SceneGraph) Load(cfg *config.Scenario) error {
	sg.origin = cfg.World.Origin
	sg.weather = cfg.World.Weather
	sg.updateIntervalMs = cfg.World.UpdateIntervalMs
	if sg.updateIntervalMs <= 0 {
		sg.updateIntervalMs = 20
	}

	for _, actor := range cfg.World.Actors {
		if err := sg.addActor(actor); err != nil {
			return fmt.Errorf("load actor %q: %w", actor.Name, err)
		}
	}

	// Wire parents only after every entity exists, per spec §4.3.1.
	for _, actor := range cfg.World.Actors {
		if actor.Parent == "" {
			continue
		}
		childID, ok := sg.byName[actor.Name]
		if !ok {
			return fmt.Errorf("load: actor %q missing after creation", actor.Name)
		}
		parentID, ok := sg.byName[actor.Parent]
		if !ok {
			return fmt.Errorf("load: actor %q references unresolved parent %q", actor.Name, actor.Parent)
		}
		sg.parent[childID] = parentID
		sg.children[parentID] = append(sg.children[parentID], childID)
	}
	if err := sg.checkAcyclic(); err != nil {
		return err
	}

	for _, r := range cfg.Renderers {
		vc := ViewportConfig{RendererID: r.RendererID, ActiveCameraName: r.ViewportConfig.ActiveCamera}
		if id, ok := sg.byName[r.ViewportConfig.ActiveCamera]; ok {
			vc.ActiveCameraEntity = id
		}
		sg.viewports[r.RendererID] = vc
	}

	sg.propagateTransforms()
	return nil
}

func (sg *SceneGraph) addActor(actor config.Actor) error {
	id := sg.nextID
	sg.nextID++
	sg.entities[id] = true
	sg.byName[actor.Name] = id

	sg.properties[id] = ActorProperties{Name: actor.Name, AssetRef: actor.Asset, ParentName: actor.Parent}

	initialNED := geo.Vec3{X: actor.Pose.Position.North, Y: actor.Pose.Position.East, Z: actor.Pose.Position.Down}
	orientation := geo.QuatFromEulerRPY(actor.Pose.OrientationRPY.Roll, actor.Pose.OrientationRPY.Pitch, actor.Pose.OrientationRPY.Yaw)
	world := geo.FromNED(initialNED, sg.origin.Latitude, sg.origin.Longitude, sg.origin.Altitude, sg.ellipsoid)
	sg.states[id] = &ActorState{Position: initialNED, Orientation: orientation, World: world}
	sg.transforms[id] = Transform{
		Position: geo.NEDPositionToECS(initialNED),
		Rotation: geo.QuatNEDToECS(orientation),
		Scale:    geo.Vec3{X: 1, Y: 1, Z: 1},
	}

	if actor.StateTopic != "" {
		sg.stateTopic[actor.StateTopic] = id
	}

	for i, eff := range actor.Effectors {
		localNED := geo.Vec3{X: eff.LocalPose.Position.North, Y: eff.LocalPose.Position.East, Z: eff.LocalPose.Position.Down}
		localOrient := geo.QuatFromEulerRPY(eff.LocalPose.OrientationRPY.Roll, eff.LocalPose.OrientationRPY.Pitch, eff.LocalPose.OrientationRPY.Yaw)
		sg.effectors[id] = append(sg.effectors[id], Effector{
			ID:           eff.ID,
			RelativePath: eff.RelativePath,
			LocalPose: Transform{
				Position: geo.NEDPositionToECS(localNED),
				Rotation: geo.QuatNEDToECS(localOrient),
				Scale:    geo.Vec3{X: 1, Y: 1, Z: 1},
			},
		})
		if eff.StateTopic != "" {
			sg.effectorTopic[eff.StateTopic] = effectorRef{entity: id, index: i}
		}
	}

	if actor.PFD != nil {
		sg.pfds[id] = PrimaryFlightDisplay{Values: map[string]float64{}}
		if actor.PFD.StateTopic != "" {
			sg.pfdTopic[actor.PFD.StateTopic] = id
		}
	}
	if actor.Trajectory != nil {
		sg.trajectory[id] = TrajectoryVisualization{}
		if actor.Trajectory.StateTopic != "" {
			sg.trajectoryTopic[actor.Trajectory.StateTopic] = id
		}
	}
	for _, s := range actor.Sensors {
		sg.sensors[id] = append(sg.sensors[id], Sensor{Name: s.Name, Kind: s.Kind, Params: s.Params})
	}
	return nil
}

func (sg *SceneGraph) checkAcyclic() error {
	visiting := make(map[EntityID]bool)
	visited := make(map[EntityID]bool)
	var visit func(id EntityID) error
	visit = func(id EntityID) error {
		if visited[id] {
			return nil
		}
		if visiting[id] {
			return fmt.Errorf("parent graph contains a cycle at entity %d", id)
		}
		visiting[id] = true
		if p, ok := sg.parent[id]; ok {
			if err := visit(p); err != nil {
				return err
			}
		}
		visiting[id] = false
		visited[id] = true
		return nil
	}
	for id := range sg.entities {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// StateTopics returns the actor-state topics the scene graph owns, for the
// orchestrator's bulk subscription.
func (sg *SceneGraph) StateTopics() []string {
	return keysOf(sg.stateTopic)
}

// EffectorTopics returns the effector-state topics the scene graph owns.
func (sg *SceneGraph) EffectorTopics() []string {
	return keysOf(sg.effectorTopic)
}

// PFDTopics returns the PFD-state topics the scene graph owns.
func (sg *SceneGraph) PFDTopics() []string {
	return keysOf(sg.pfdTopic)
}

// TrajectoryTopics returns the trajectory-state topics the scene graph
// owns.
func (sg *SceneGraph) TrajectoryTopics() []string {
	return keysOf(sg.trajectoryTopic)
}

func keysOf[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsRelevantTopic reports whether topic maps to any scene-graph-owned
// state, per the "otherwise: ignore" clause of spec §4.3.2 step 3.
func (sg *SceneGraph) IsRelevantTopic(topic string) bool {
	if _, ok := sg.stateTopic[topic]; ok {
		return true
	}
	if _, ok := sg.effectorTopic[topic]; ok {
		return true
	}
	if _, ok := sg.pfdTopic[topic]; ok {
		return true
	}
	if _, ok := sg.trajectoryTopic[topic]; ok {
		return true
	}
	return false
}

// Update absorbs a batch of state updates and, if the update interval has
// elapsed, recomputes transforms and returns a fresh snapshot, per spec
// §4.3.2.
func (sg *SceneGraph) Update(queue []StateUpdate, simTime timestamp.Timestamp) (*Snapshot, bool) {
	if sg.hasUpdated {
		elapsedMs := simTime.ToMillis() - sg.lastUpdateTime.ToMillis()
		if elapsedMs < int64(sg.updateIntervalMs) {
			return nil, false
		}
	}

	latest := coalesce(queue)

	for topic, upd := range latest {
		sg.applyUpdate(topic, upd)
	}

	sg.propagateTransforms()
	sg.lastUpdateTime = simTime
	sg.hasUpdated = true

	return sg.Snapshot(), true
}

// coalesce keeps only the latest-timestamp payload per topic. Ties are
// broken by first-write-wins within the batch, matching the upstream's
// "replace only on strictly greater timestamp" behavior rather than the
// literal last-write-wins spec wording — see DESIGN.md.
func coalesce(queue []StateUpdate) map[string]StateUpdate {
	latest := make(map[string]StateUpdate)
	for _, upd := range queue {
		cur, ok := latest[upd.Topic]
		if !ok || upd.SimTime.Compare(cur.SimTime) > 0 {
			latest[upd.Topic] = upd
		}
	}
	return latest
}

func (sg *SceneGraph) applyUpdate(topic string, upd StateUpdate) {
	switch {
	case sg.hasEntity(sg.stateTopic, topic):
		sg.applyActorState(sg.stateTopic[topic], upd.Payload)
	case sg.hasEffector(topic):
		sg.applyEffectorState(sg.effectorTopic[topic], upd.Payload)
	case sg.hasEntity(sg.pfdTopic, topic):
		sg.applyPFD(sg.pfdTopic[topic], upd.Payload)
	case sg.hasEntity(sg.trajectoryTopic, topic):
		sg.applyTrajectory(sg.trajectoryTopic[topic], upd.Payload)
	default:
		// Not a scene-graph topic: ignore, per spec §4.3.2 step 3.
	}
}

func (sg *SceneGraph) hasEntity(m map[string]EntityID, topic string) bool {
	_, ok := m[topic]
	return ok
}

func (sg *SceneGraph) hasEffector(topic string) bool {
	_, ok := sg.effectorTopic[topic]
	return ok
}

func (sg *SceneGraph) applyActorState(id EntityID, payload json.RawMessage) {
	var p ActorStatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	nedPos := geo.Vec3{X: p.Position.North, Y: p.Position.East, Z: p.Position.Down}
	orientation := geo.QuatFromEulerRPY(p.OrientationRPY.Roll, p.OrientationRPY.Pitch, p.OrientationRPY.Yaw)

	state := sg.states[id]
	state.Position = nedPos
	state.Orientation = orientation
	state.World.SetNED(nedPos)

	tr := sg.transforms[id]
	tr.Position = geo.NEDPositionToECS(nedPos)
	tr.Rotation = geo.QuatNEDToECS(orientation)
	sg.transforms[id] = tr
}

func (sg *SceneGraph) applyEffectorState(ref effectorRef, payload json.RawMessage) {
	var p ActorStatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	nedPos := geo.Vec3{X: p.Position.North, Y: p.Position.East, Z: p.Position.Down}
	orientation := geo.QuatFromEulerRPY(p.OrientationRPY.Roll, p.OrientationRPY.Pitch, p.OrientationRPY.Yaw)

	effs := sg.effectors[ref.entity]
	if ref.index < 0 || ref.index >= len(effs) {
		return
	}
	effs[ref.index].LocalPose = Transform{
		Position: geo.NEDPositionToECS(nedPos),
		Rotation: geo.QuatNEDToECS(orientation),
		Scale:    geo.Vec3{X: 1, Y: 1, Z: 1},
	}
}

func (sg *SceneGraph) applyPFD(id EntityID, payload json.RawMessage) {
	var p PFDPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	sg.pfds[id] = PrimaryFlightDisplay{Values: p.Values}
}

func (sg *SceneGraph) applyTrajectory(id EntityID, payload json.RawMessage) {
	var p TrajectoryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	pathLen, pathBearing := sg.trajectoryStats(p.PathPoints)
	plannedLen, plannedBearing := sg.trajectoryStats(p.PlannedPoints)
	sg.trajectory[id] = TrajectoryVisualization{
		ShowPath:            p.ShowPath,
		ShowPlanned:         p.ShowPlanned,
		PathPoints:          p.PathPoints,
		PlannedPoints:       p.PlannedPoints,
		PathLengthMeters:    pathLen,
		PathBearingDeg:      pathBearing,
		PlannedLengthMeters: plannedLen,
		PlannedBearingDeg:   plannedBearing,
	}
}

// trajectoryStats derives a waypoint polyline's cumulative ground-track
// length and its overall first-to-last bearing. Waypoints are (north, east,
// down) offsets from the world origin; each is converted to geodetic
// latitude/longitude via the scene graph's origin and ellipsoid so the
// great-circle helpers in the geo package apply. Fewer than two points
// yields zero for both.
func (sg *SceneGraph) trajectoryStats(points [][3]float64) (lengthMeters, bearingDeg float64) {
	if len(points) < 2 {
		return 0, 0
	}
	lat := func(p [3]float64) (float64, float64) {
		ned := geo.Vec3{X: p[0], Y: p[1], Z: p[2]}
		lat, lon, _ := geo.NEDToLLA(ned, sg.origin.Latitude, sg.origin.Longitude, sg.origin.Altitude, sg.ellipsoid)
		return lat, lon
	}
	for i := 1; i < len(points); i++ {
		lat1, lon1 := lat(points[i-1])
		lat2, lon2 := lat(points[i])
		lengthMeters += geo.HaversineDistanceMeters(lat1, lon1, lat2, lon2, sg.ellipsoid)
	}
	firstLat, firstLon := lat(points[0])
	lastLat, lastLon := lat(points[len(points)-1])
	bearingDeg = geo.BearingDeg(firstLat, firstLon, lastLat, lastLon)
	return lengthMeters, bearingDeg
}

// propagateTransforms walks the forest root-to-leaf, setting each child's
// global transform to parent-global ∘ child-local, per spec §4.3.2 step 4,
// then recomputes WorldCoordinate from the global translation (step 5).
//
// Sibling subtrees are independent once their parent's global transform is
// known; per spec §5's parallelism note this could run per-root goroutines,
// but the entity counts this core targets don't yet justify the
// synchronization overhead.
func (sg *SceneGraph) propagateTransforms() {
	global := make(map[EntityID]Transform, len(sg.entities))

	var roots []EntityID
	for id := range sg.entities {
		if _, hasParent := sg.parent[id]; !hasParent {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	var visit func(id EntityID, parentGlobal *Transform)
	visit = func(id EntityID, parentGlobal *Transform) {
		local := sg.transforms[id]
		g := local
		if parentGlobal != nil {
			g = composeTransform(*parentGlobal, local)
		}
		global[id] = g

		if state, ok := sg.states[id]; ok {
			state.World.SetNED(geo.ECSPositionToNED(g.Position))
		}

		children := append([]EntityID(nil), sg.children[id]...)
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
		for _, child := range children {
			visit(child, &g)
		}
	}
	for _, root := range roots {
		visit(root, nil)
	}
}

// composeTransform returns child's transform expressed in the parent's
// global frame: parent ∘ child.
func composeTransform(parent, child Transform) Transform {
	rotated := rotateVec(parent.Rotation, geo.Vec3{
		X: child.Position.X * parent.Scale.X,
		Y: child.Position.Y * parent.Scale.Y,
		Z: child.Position.Z * parent.Scale.Z,
	})
	return Transform{
		Position: geo.Vec3{X: parent.Position.X + rotated.X, Y: parent.Position.Y + rotated.Y, Z: parent.Position.Z + rotated.Z},
		Rotation: quatCompose(parent.Rotation, child.Rotation),
		Scale:    geo.Vec3{X: parent.Scale.X * child.Scale.X, Y: parent.Scale.Y * child.Scale.Y, Z: parent.Scale.Z * child.Scale.Z},
	}
}

func rotateVec(q geo.Quat, v geo.Vec3) geo.Vec3 {
	// v' = q * (0,v) * q_conj, expanded without an intermediate quaternion
	// multiply for clarity.
	ux, uy, uz := q.X, q.Y, q.Z
	uw := q.W
	dotUV := ux*v.X + uy*v.Y + uz*v.Z
	dotUU := ux*ux + uy*uy + uz*uz
	crossX := uy*v.Z - uz*v.Y
	crossY := uz*v.X - ux*v.Z
	crossZ := ux*v.Y - uy*v.X

	return geo.Vec3{
		X: 2*dotUV*ux + (uw*uw-dotUU)*v.X + 2*uw*crossX,
		Y: 2*dotUV*uy + (uw*uw-dotUU)*v.Y + 2*uw*crossY,
		Z: 2*dotUV*uz + (uw*uw-dotUU)*v.Z + 2*uw*crossZ,
	}
}

func quatCompose(a, b geo.Quat) geo.Quat {
	return geo.Quat{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}.Normalize()
}
