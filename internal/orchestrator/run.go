package orchestrator

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/edufford/aerosim/internal/message"
	"github.com/edufford/aerosim/internal/scenegraph"
	"github.com/edufford/aerosim/internal/timestamp"
	"github.com/edufford/aerosim/internal/transport"
)

// Start subscribes to every topic the loaded config references, runs the
// load_scene_graph handshake, starts the clock, and launches the main loop
// in a background goroutine, per spec §4.4.2.
func (o *Orchestrator) Start() error {
	if o.State() != StateLoadedConfig {
		return fmt.Errorf("start: orchestrator not in LoadedConfig state (got %s)", o.State())
	}
	o.setState(StateLoadingScene)

	for _, tt := range o.collectTopics() {
		tt := tt
		if err := o.transport.SubscribeRaw(tt.TypeName, tt.Topic, o.onMessage(tt)); err != nil {
			o.setState(StateIdle)
			return fmt.Errorf("start: subscribe %s: %w", tt.Topic, err)
		}
	}

	snap := o.sg.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("start: marshal scene graph snapshot: %w", err)
	}

	o.rendererMu.Lock()
	required := o.cfg.RequiredRendererIDs()
	o.pendingRenderers = make(map[string]bool, len(required))
	for _, id := range required {
		o.pendingRenderers[id] = true
	}
	o.rendererMu.Unlock()

	cmd := Command{Command: CommandLoadSceneGraph, Parameters: map[string]any{"scene_graph": json.RawMessage(data)}}
	if err := o.awaitHandshake(cmd, TopicCommands, func() bool {
		o.rendererMu.Lock()
		defer o.rendererMu.Unlock()
		return len(o.pendingRenderers) == 0
	}); err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("start: %w", err)
	}

	o.clock.Start()
	o.recorder.SetSimStart(time.Now().UnixNano())

	if err := o.publishCommand(TopicCommands, Command{Command: CommandStart}, timestamp.Timestamp{}); err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("start: %w", err)
	}

	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	o.awaitInitialBarrier()
	o.setState(StateRunning)
	go o.run()
	return nil
}

// awaitInitialBarrier waits, up to a 60-second deadline, for at least one
// message on every sync topic applicable at sim-time zero, per spec
// §4.4.2 step 5. A timeout here is not fatal to start(): it is logged and
// the orchestrator proceeds into the main loop regardless, consistent with
// §7's "missing sync-topic message blocks ticks, doesn't fail start".
func (o *Orchestrator) awaitInitialBarrier() {
	required := requiredSyncTopics(o.syncTopics, timestamp.Timestamp{})
	if len(required) == 0 {
		return
	}
	deadline := time.After(60 * time.Second)
	for len(required) > 0 {
		select {
		case sig := <-o.barrierCh:
			delete(required, sig.topic)
		case <-deadline:
			o.logger.Warn("initial barrier timed out waiting for sync topics", "missing", mapKeys(required))
			return
		}
	}
}

func mapKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// collectTopics enumerates the deduplicated (type_name, topic) pairs the
// loaded config references — actor states, effector states, PFD states,
// trajectory topics, and every FMU input/output/aux-mapping topic — per
// spec §4.4.2 step 1.
func (o *Orchestrator) collectTopics() []transport.TopicType {
	seen := make(map[string]bool)
	var out []transport.TopicType
	add := func(typeName, topic string) {
		key := typeName + "\x00" + topic
		if topic == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, transport.TopicType{TypeName: typeName, Topic: topic})
	}
	for _, t := range o.sg.StateTopics() {
		add("ActorState", t)
	}
	for _, t := range o.sg.EffectorTopics() {
		add("EffectorState", t)
	}
	for _, t := range o.sg.PFDTopics() {
		add("PFDState", t)
	}
	for _, t := range o.sg.TrajectoryTopics() {
		add("TrajectoryState", t)
	}
	for _, fmu := range o.cfg.FMUModels {
		for _, t := range fmu.ComponentInputTopics {
			add("FMUMessage", t)
		}
		for _, t := range fmu.ComponentOutputTopics {
			add("FMUMessage", t)
		}
		for _, t := range fmu.FMUAuxInputMapping {
			add("FMUMessage", t)
		}
		for _, t := range fmu.FMUAuxOutputMapping {
			add("FMUMessage", t)
		}
	}
	return out
}

// onMessage returns the raw-transport callback for one subscribed topic: it
// derives a sim-time stamp, forwards the raw bytes to the recorder, enqueues
// a StateUpdate for topics the scene graph cares about, and sends a barrier
// signal for every topic.
func (o *Orchestrator) onMessage(tt transport.TopicType) transport.RawHandler {
	return func(raw []byte) {
		meta, payload, err := transport.DeserializeMessage(raw)
		if err != nil {
			o.logger.Warn("message deserialize failed", "topic", tt.Topic, "err", err)
			return
		}

		simTime := o.resolveSimTime(meta)
		o.recorder.Record(tt.TypeName, tt.Topic, simTime, timestamp.Now(), payload)

		if o.sg.IsRelevantTopic(tt.Topic) {
			o.queueMu.Lock()
			o.queue = append(o.queue, scenegraph.StateUpdate{SimTime: simTime, Topic: tt.Topic, Payload: payload})
			o.queueMu.Unlock()
		}

		select {
		case o.barrierCh <- barrierSignal{topic: tt.Topic, simTime: simTime}:
		default:
			o.overrunWarn.Warn("barrier channel full, dropping signal", "topic", tt.Topic)
		}
	}
}

// resolveSimTime derives the sim-time a message is stamped with: messages
// carrying an explicit sim_time use it verbatim; messages carrying only a
// platform_time are mapped through the clock's real-to-sim correspondence,
// per spec §4.1's late-message rule.
func (o *Orchestrator) resolveSimTime(meta message.Metadata) timestamp.Timestamp {
	if meta.SimTime.IsValid() {
		return meta.SimTime
	}
	return o.clock.SimTimeFromReal(time.Unix(0, meta.PlatformTime.ToNanos()))
}

// run is the main simulation loop, per spec §4.4.3.
func (o *Orchestrator) run() {
	defer close(o.doneCh)
	for {
		select {
		case <-o.stopCh:
			return
		default:
		}

		tickStart := time.Now()
		simTime := o.clock.Step()

		// Signals buffered before this tick's clock publish do not count
		// toward its barrier.
		for drained := false; !drained; {
			select {
			case <-o.barrierCh:
			default:
				drained = true
			}
		}

		clockMsg := ClockMessage{
			TimestampSim:      toJSON(simTime),
			TimestampPlatform: toJSON(timestamp.FromNanos(tickStart.UnixNano())),
		}
		data, err := json.Marshal(clockMsg)
		if err != nil {
			o.logger.Warn("marshal clock message failed", "err", err)
		} else if err := o.transport.Publish("ClockMessage", TopicClock, data, simTime); err != nil {
			o.logger.Warn("publish clock message failed", "err", err)
		}

		required := requiredSyncTopics(o.syncTopics, simTime)
		o.waitForBarrier(required)

		select {
		case <-o.stopCh:
			return
		default:
		}

		o.queueMu.Lock()
		batch := o.queue
		o.queue = nil
		o.queueMu.Unlock()

		if snap, updated := o.sg.Update(batch, simTime); updated {
			data, err := json.Marshal(snap)
			if err != nil {
				o.logger.Warn("marshal scene graph snapshot failed", "err", err)
			} else if err := o.transport.Publish("SceneGraphSnapshot", TopicSceneGraphUpdate, data, simTime); err != nil {
				o.logger.Warn("publish scene graph snapshot failed", "err", err)
			}
		}

		elapsed := time.Since(tickStart)
		if elapsed > o.clock.StepSize() {
			o.overrunWarn.Warn("tick overran step size", "elapsed", elapsed, "step_size", o.clock.StepSize())
			continue
		}
		for o.cfg.Clock.Pace1xScale && time.Since(tickStart) < o.clock.StepSize() {
			runtime.Gosched()
		}
	}
}

// waitForBarrier drains barrierCh until every topic in required has been
// observed since the current tick's clock publish, or until stopCh fires.
// A signal's sim time is not compared with the tick's.
func (o *Orchestrator) waitForBarrier(required map[string]bool) {
	if len(required) == 0 {
		return
	}
	for len(required) > 0 {
		select {
		case sig := <-o.barrierCh:
			delete(required, sig.topic)
		case <-o.stopCh:
			return
		}
	}
}

// requiredSyncTopics returns the set of sync topics the barrier must wait
// on for simTime, ported exactly from aerosim-world's
// get_sync_topics_for_simtime: a topic whose interval evenly divides
// simTime in both the seconds and nanoseconds fields independently
// (zero interval in either field means "every tick" for that field).
func requiredSyncTopics(topics []syncTopic, simTime timestamp.Timestamp) map[string]bool {
	out := make(map[string]bool)
	for _, st := range topics {
		secMatch := true
		if st.interval.Sec > 0 {
			secMatch = simTime.Sec%st.interval.Sec == 0
		}
		nsecMatch := true
		if st.interval.Nsec > 0 {
			nsecMatch = simTime.Nsec%st.interval.Nsec == 0
		}
		if secMatch && nsecMatch {
			out[st.topic] = true
		}
	}
	return out
}

// Stop halts the main loop, publishes a final stop command, and closes the
// recorder, per spec §4.4.4.
func (o *Orchestrator) Stop() error {
	if o.State() != StateRunning {
		return fmt.Errorf("stop: orchestrator not running (got %s)", o.State())
	}
	close(o.stopCh)
	<-o.doneCh

	finalTime := o.clock.Stop()
	if err := o.publishCommand(TopicCommands, Command{Command: CommandStop}, finalTime); err != nil {
		o.logger.Warn("publish stop command failed", "err", err)
	}

	o.setState(StateStopped)
	if err := o.recorder.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}
