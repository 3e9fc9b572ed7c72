package orchestrator

import "github.com/edufford/aerosim/internal/timestamp"

// Well-known topic names, per spec §6.
const (
	TopicCommands      = "aerosim.orchestrator.commands"
	TopicRendererStatus = "aerosim.renderer.status"
	TopicClock         = "aerosim.clock"
	TopicSceneGraphUpdate = "aerosim.scene_graph.update"
)

const (
	CommandLoadConfig     = "load_config"
	CommandLoadSceneGraph  = "load_scene_graph"
	CommandStart           = "start"
	CommandStop            = "stop"
)

const (
	StatusConfigLoaded     = "config_loaded"
	StatusSceneGraphLoaded = "scene_graph_loaded"
	StatusConfigError      = "config_error"
)

// Command is the JSON command envelope published on TopicCommands.
type Command struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// RendererStatus is the JSON status message published on
// TopicRendererStatus.
type RendererStatus struct {
	RendererID string `json:"renderer_id"`
	Status     string `json:"status"`
}

// timestampJSON carries a timestamp.Timestamp's seconds and nanoseconds
// under the lower-case keys "sec" and "nsec".
type timestampJSON struct {
	Sec  int32  `json:"sec"`
	Nsec uint32 `json:"nsec"`
}

func toJSON(t timestamp.Timestamp) timestampJSON {
	return timestampJSON{Sec: t.Sec, Nsec: t.Nsec}
}

// ClockMessage is the JSON payload published on TopicClock each tick.
type ClockMessage struct {
	TimestampSim      timestampJSON `json:"timestamp_sim"`
	TimestampPlatform timestampJSON `json:"timestamp_platform"`
	TickGroup         int           `json:"tick_group"`
}

// FMUMessage is the wire shape registered for FMU component input/output
// and aux-mapping topics. Its content is opaque to the orchestrator: the
// FMU physics/controller implementation itself is out of spec's scope
// (§1), so the orchestrator only needs to subscribe, record, and barrier
// on these topics, not interpret them. Fields is kept free-form for that
// reason, matching TrajectoryPayload's treatment of unspecified schemas.
type FMUMessage struct {
	Fields map[string]any `json:"fields,omitempty"`
}
