// Package scenegraph implements the entity-component world: heterogeneous
// state ingest, transform hierarchy propagation, and snapshot emission,
// ported from aerosim-world's scene_graph.rs. Component storage follows
// the per-kind map-keyed-by-entity shape the spec names in §3/§4.3 and
// that DangerosoDavo-ecs demonstrates for this codebase's closest ECS
// reference.
package scenegraph

import "github.com/edufford/aerosim/internal/geo"

// EntityID is an opaque scene-graph entity identifier.
type EntityID uint64

// ActorProperties names an actor and its asset/parent linkage.
type ActorProperties struct {
	Name       string
	AssetRef   string
	ParentName string
}

// ActorState is the authoritative pose plus its derived WorldCoordinate.
type ActorState struct {
	Position    geo.Vec3 // NED
	Orientation geo.Quat
	World       *geo.WorldCoordinate
}

// Transform is the ECS-layer local transform, in the renderer convention.
type Transform struct {
	Position geo.Vec3
	Rotation geo.Quat
	Scale    geo.Vec3
}

// Effector is one child pose attached to an actor, addressed by id and a
// path relative to the actor.
type Effector struct {
	ID           string
	RelativePath string
	LocalPose    Transform
}

// PrimaryFlightDisplay holds scalar instrument values, replaced wholesale
// on each state update per spec §4.3.2.
type PrimaryFlightDisplay struct {
	Values map[string]float64
}

// TrajectoryVisualization holds display flags and two waypoint polylines,
// parsed as free-form (x,y,z) tuples per spec §9 (schema unspecified). Each
// polyline's cumulative ground-track length and its first-to-last-point
// bearing are derived from the waypoints (treated as NED offsets from the world origin)
// using the geo package's Haversine/bearing helpers.
type TrajectoryVisualization struct {
	ShowPath      bool
	ShowPlanned   bool
	PathPoints    [][3]float64
	PlannedPoints [][3]float64

	PathLengthMeters    float64
	PathBearingDeg      float64
	PlannedLengthMeters float64
	PlannedBearingDeg   float64
}

// Sensor names a sensor kind and its kind-specific parameters.
type Sensor struct {
	Name   string
	Kind   string
	Params map[string]any
}

// ViewportConfig names the active camera entity for one renderer instance.
type ViewportConfig struct {
	RendererID         string
	ActiveCameraName   string
	ActiveCameraEntity EntityID
}
