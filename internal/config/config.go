// Package config parses the JSON scenario document named in spec §6 into
// typed structs, the way the teacher's protocol package parses its
// command/response JSON shapes.
package config

import (
	"encoding/json"
	"fmt"
)

// Scenario is the full scenario configuration document.
type Scenario struct {
	Clock        Clock          `json:"clock"`
	Orchestrator Orchestrator   `json:"orchestrator"`
	World        World          `json:"world"`
	Renderers    []Renderer     `json:"renderers"`
	FMUModels    []FMUModel     `json:"fmu_models"`
}

// Clock configures the SimClock.
type Clock struct {
	StepSizeMs  int  `json:"step_size_ms"`
	Pace1xScale bool `json:"pace_1x_scale"`
}

// SyncTopic declares one (topic, interval) barrier participant.
type SyncTopic struct {
	Topic      string `json:"topic"`
	IntervalMs int    `json:"interval_ms"`
}

// Orchestrator configures the orchestrator's barrier and recorder.
type Orchestrator struct {
	SyncTopics        []SyncTopic `json:"sync_topics"`
	OutputSimDataFile string      `json:"output_sim_data_file,omitempty"`
}

// Origin is the world's geodetic origin resource.
type Origin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Weather is the world's weather preset resource.
type Weather struct {
	Preset string `json:"preset"`
}

// NED is a north/east/down offset in the config's position shape.
type NED struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Down  float64 `json:"down"`
}

// RPY is a roll/pitch/yaw orientation in radians, NED convention.
type RPY struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Pose is a position plus optional orientation, used for actor and
// effector initial/local poses.
type Pose struct {
	Position    NED  `json:"position"`
	OrientationRPY RPY  `json:"orientation_rpy"`
}

// Effector declares one child pose attached to an actor.
type Effector struct {
	ID           string `json:"id"`
	RelativePath string `json:"relative_path"`
	StateTopic   string `json:"state_topic,omitempty"`
	LocalPose    Pose   `json:"local_pose"`
}

// PFD declares the topic carrying an actor's instrument values.
type PFD struct {
	StateTopic string `json:"state_topic"`
}

// Trajectory declares the topic carrying an actor's waypoint polylines.
type Trajectory struct {
	StateTopic string `json:"state_topic"`
}

// Sensor declares a sensor attached to an actor or a renderer viewport.
type Sensor struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Params     map[string]any `json:"params,omitempty"`
	StateTopic string         `json:"state_topic,omitempty"`
}

// Actor declares one scene-graph actor and its components.
type Actor struct {
	Name       string      `json:"name"`
	Asset      string      `json:"asset"`
	Parent     string      `json:"parent,omitempty"`
	StateTopic string      `json:"state_topic,omitempty"`
	Pose       Pose        `json:"pose"`
	Effectors  []Effector  `json:"effectors,omitempty"`
	PFD        *PFD        `json:"pfd,omitempty"`
	Trajectory *Trajectory `json:"trajectory,omitempty"`
	Sensors    []Sensor    `json:"sensors,omitempty"`
}

// World configures the scene graph's initial contents and resources.
type World struct {
	UpdateIntervalMs int      `json:"update_interval_ms"`
	Origin           Origin   `json:"origin"`
	Weather          Weather  `json:"weather"`
	Actors           []Actor  `json:"actors"`
	Sensors          []Sensor `json:"sensors,omitempty"`
}

// ViewportConfig names the active camera for one renderer instance.
type ViewportConfig struct {
	ActiveCamera string `json:"active_camera"`
}

// Renderer declares one required renderer instance and its viewport.
type Renderer struct {
	RendererID     string         `json:"renderer_id"`
	ViewportConfig ViewportConfig `json:"viewport_config"`
	Sensors        []Sensor       `json:"sensors,omitempty"`
}

// FMUModel declares a physics component's topic wiring.
type FMUModel struct {
	ComponentInputTopics  []string          `json:"component_input_topics,omitempty"`
	ComponentOutputTopics []string          `json:"component_output_topics,omitempty"`
	FMUAuxInputMapping    map[string]string `json:"fmu_aux_input_mapping,omitempty"`
	FMUAuxOutputMapping   map[string]string `json:"fmu_aux_output_mapping,omitempty"`
}

// Parse decodes a scenario document from JSON bytes.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario config: %w", err)
	}
	if s.Clock.StepSizeMs <= 0 {
		return nil, fmt.Errorf("parse scenario config: clock.step_size_ms must be positive")
	}
	return &s, nil
}

// RequiredRendererIDs returns the set of renderer ids load() must wait on.
func (s *Scenario) RequiredRendererIDs() []string {
	ids := make([]string, 0, len(s.Renderers))
	for _, r := range s.Renderers {
		ids = append(ids, r.RendererID)
	}
	return ids
}
