package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/edufford/aerosim/internal/config"
	"github.com/edufford/aerosim/internal/recorder"
	"github.com/edufford/aerosim/internal/scenegraph"
	"github.com/edufford/aerosim/internal/simclock"
	"github.com/edufford/aerosim/internal/timestamp"
	"github.com/edufford/aerosim/internal/transport"
)

// handshakeTimeout and handshakeRepublish are vars rather than consts so
// tests can shrink them; production callers leave them at their spec §4.4.1
// defaults (30s total, republish every 5s).
var (
	handshakeTimeout   = 30 * time.Second
	handshakeRepublish = 5 * time.Second
)

// Load parses cfg, initializes the clock/recorder/scene-graph, and runs the
// load_config handshake, per spec §4.4.1.
func (o *Orchestrator) Load(cfg *config.Scenario, openRecorderWriter RecorderOpener) error {
	o.setState(StateLoading)
	o.cfg = cfg
	o.clock = simclock.New(time.Duration(cfg.Clock.StepSizeMs) * time.Millisecond)

	w, closer, err := openRecorderWriter(cfg.Orchestrator.OutputSimDataFile)
	if err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("load: open recorder: %w", err)
	}
	rec, err := recorder.Open(w, closer, o.registry, o.logger)
	if err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("load: %w", err)
	}
	o.recorder = rec

	o.sg = scenegraph.New()

	o.syncTopics = make([]syncTopic, 0, len(cfg.Orchestrator.SyncTopics))
	for _, st := range cfg.Orchestrator.SyncTopics {
		o.syncTopics = append(o.syncTopics, syncTopic{topic: st.Topic, interval: timestamp.FromMillis(int64(st.IntervalMs))})
	}

	required := cfg.RequiredRendererIDs()
	o.rendererMu.Lock()
	o.pendingRenderers = make(map[string]bool, len(required))
	for _, id := range required {
		o.pendingRenderers[id] = true
	}
	o.rendererMu.Unlock()

	if err := o.transport.SubscribeRaw("RendererStatus", TopicRendererStatus, o.onRendererStatus); err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("load: subscribe renderer status: %w", err)
	}

	cmd := Command{Command: CommandLoadConfig, Parameters: map[string]any{"sim_config": cfg}}
	if err := o.awaitHandshake(cmd, TopicCommands, func() bool {
		o.rendererMu.Lock()
		defer o.rendererMu.Unlock()
		return len(o.pendingRenderers) == 0
	}); err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("load: %w", err)
	}

	if err := o.sg.Load(cfg); err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("load: build scene graph: %w", err)
	}

	o.setState(StateLoadedConfig)
	return nil
}

// RecorderOpener lets callers decide how to open the recorder's backing
// file (or return nil, nil, nil to disable recording), keeping filesystem
// access out of the orchestrator package for testability.
type RecorderOpener func(path string) (w io.Writer, closer io.Closer, err error)

func (o *Orchestrator) onRendererStatus(raw []byte) {
	_, payload, err := transport.DeserializeMessage(raw)
	if err != nil {
		o.logger.Warn("renderer status: deserialize failed", "err", err)
		return
	}
	var status RendererStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		o.logger.Warn("renderer status: bad payload", "err", err)
		return
	}

	o.rendererMu.Lock()
	defer o.rendererMu.Unlock()
	switch status.Status {
	case StatusConfigLoaded:
		delete(o.pendingRenderers, status.RendererID)
	case StatusSceneGraphLoaded:
		delete(o.pendingRenderers, status.RendererID)
	case StatusConfigError:
		o.logger.Warn("renderer reported config error", "renderer_id", status.RendererID)
	}
}

// awaitHandshake publishes cmd at sim-time zero, republishing every
// handshakeRepublish until done() reports satisfaction or
// handshakeTimeout elapses, per spec §4.4.1 step 4 / §4.4.2 step 3.
func (o *Orchestrator) awaitHandshake(cmd Command, topic string, done func() bool) error {
	deadline := time.Now().Add(handshakeTimeout)
	if err := o.publishCommand(topic, cmd, timestamp.Timestamp{}); err != nil {
		o.logger.Warn("handshake publish failed, will retry", "command", cmd.Command, "err", err)
	}

	ticker := time.NewTicker(handshakeRepublish)
	defer ticker.Stop()
	for {
		if done() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("handshake timeout waiting for %s", cmd.Command)
		}
		select {
		case <-ticker.C:
			if err := o.publishCommand(topic, cmd, timestamp.Timestamp{}); err != nil {
				o.logger.Warn("handshake republish failed", "command", cmd.Command, "err", err)
			}
		case <-time.After(50 * time.Millisecond):
		}
	}
}
