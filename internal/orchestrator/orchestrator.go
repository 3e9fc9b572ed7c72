// Package orchestrator implements the simulation controller: lifecycle
// state machine, load/start/stop handshakes, the per-tick sync-topic
// barrier, and real-time pacing. Ported from aerosim-world's orchestrator.rs,
// with the main-loop/pacing shape adapted from the teacher's
// simulation/engine.Engine (packages/simulation/engine).
package orchestrator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edufford/aerosim/internal/config"
	"github.com/edufford/aerosim/internal/logging"
	"github.com/edufford/aerosim/internal/recorder"
	"github.com/edufford/aerosim/internal/registry"
	"github.com/edufford/aerosim/internal/scenegraph"
	"github.com/edufford/aerosim/internal/simclock"
	"github.com/edufford/aerosim/internal/timestamp"
	"github.com/edufford/aerosim/internal/transport"
)

// State is the orchestrator lifecycle state, per spec §4.4.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoadedConfig
	StateLoadingScene
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateLoadedConfig:
		return "LoadedConfig"
	case StateLoadingScene:
		return "LoadingScene"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// barrierSignal is one (timestamp, topic) notification pushed by a
// transport callback and drained by the main loop for barrier
// satisfaction, per spec §5.
type barrierSignal struct {
	topic   string
	simTime timestamp.Timestamp
}

// Orchestrator is the simulation controller. One instance controls exactly
// one simulation, per spec §1's non-goal of multi-orchestrator consensus.
type Orchestrator struct {
	transport transport.Transport
	registry  *registry.Registry
	logger    *slog.Logger

	mu    sync.Mutex
	state State
	cfg   *config.Scenario

	clock    *simclock.Clock
	recorder *recorder.Recorder
	sg       *scenegraph.SceneGraph

	syncTopics []syncTopic

	rendererMu sync.Mutex
	pendingRenderers map[string]bool

	barrierCh chan barrierSignal

	queueMu sync.Mutex
	queue   []scenegraph.StateUpdate

	stopCh chan struct{}
	doneCh chan struct{}

	overrunWarn *logging.RateLimiter
}

type syncTopic struct {
	topic    string
	interval timestamp.Timestamp
}

// New constructs an Orchestrator over tr, using reg for schema lookup and
// logger for all structured logging.
func New(tr transport.Transport, reg *registry.Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		transport:   tr,
		registry:    reg,
		logger:      logger,
		state:       StateIdle,
		barrierCh:   make(chan barrierSignal, 1024),
		overrunWarn: logging.NewRateLimiter(time.Second).WithLogger(logger),
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// SceneGraph exposes the authoritative world, for inspection in tests and
// by callers needing a read of the live snapshot between ticks.
func (o *Orchestrator) SceneGraph() *scenegraph.SceneGraph {
	return o.sg
}

func (o *Orchestrator) publishCommand(topic string, cmd Command, simTime timestamp.Timestamp) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command %s: %w", cmd.Command, err)
	}
	if err := o.transport.Publish("Command", topic, data, simTime); err != nil {
		o.logger.Warn("publish failed", "topic", topic, "command", cmd.Command, "err", err)
		return err
	}
	return nil
}
