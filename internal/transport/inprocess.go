package transport

import (
	"math/rand"
	"sync"
	"time"

	"github.com/edufford/aerosim/internal/message"
	"github.com/edufford/aerosim/internal/timestamp"
)

// InProcess is an at-most-once transport that dispatches published
// messages to in-process subscribers on their own goroutine, adapted from
// the teacher's NetworkTransport (packages/network/transport) onto a
// topic-keyed pub/sub shape instead of node-to-node delivery. It keeps the
// teacher's configurable latency/packet-loss simulation (SetLatency,
// SetPacketLoss); both default to off.
type InProcess struct {
	mu         sync.RWMutex
	subs       map[string][]RawHandler // keyed by typeName+"\x00"+topic
	latency    time.Duration
	packetLoss float64
	closed     bool
	rng        *rand.Rand
}

// NewInProcess constructs an in-process transport with no artificial
// latency or loss.
func NewInProcess() *InProcess {
	return &InProcess{
		subs: make(map[string][]RawHandler),
		rng:  rand.New(rand.NewSource(1)),
	}
}

// SetLatency configures a fixed artificial delivery delay, mirroring the
// teacher's NetworkTransport.SetLatency.
func (t *InProcess) SetLatency(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latency = d
}

// SetPacketLoss configures a [0,1] drop probability, mirroring the
// teacher's NetworkTransport.SetPacketLoss.
func (t *InProcess) SetPacketLoss(p float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.packetLoss = p
}

func subKey(typeName, topic string) string {
	return typeName + "\x00" + topic
}

// Publish implements Transport.
func (t *InProcess) Publish(typeName, topic string, data []byte, simTime timestamp.Timestamp) error {
	meta := message.Metadata{Topic: topic, TypeName: typeName, SimTime: simTime, PlatformTime: timestamp.Now()}
	raw, err := message.SerializeMessage(meta, data)
	if err != nil {
		return err
	}

	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return nil
	}
	latency := t.latency
	loss := t.packetLoss
	handlers := append([]RawHandler(nil), t.subs[subKey(typeName, topic)]...)
	wildcard := append([]RawHandler(nil), t.subs[subKey("*", topic)]...)
	t.mu.RUnlock()

	if loss > 0 && t.rng.Float64() < loss {
		return nil
	}

	deliver := func(h RawHandler) {
		if latency > 0 {
			time.AfterFunc(latency, func() { h(raw) })
			return
		}
		go h(raw)
	}
	for _, h := range handlers {
		deliver(h)
	}
	for _, h := range wildcard {
		deliver(h)
	}
	return nil
}

// SubscribeRaw implements Transport.
func (t *InProcess) SubscribeRaw(typeName, topic string, handler RawHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := subKey(typeName, topic)
	t.subs[key] = append(t.subs[key], handler)
	return nil
}

// SubscribeAllRaw implements Transport by registering the same handler
// against every (typeName, topic) pair.
func (t *InProcess) SubscribeAllRaw(pairs []TopicType, handler RawHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range pairs {
		key := subKey(p.TypeName, p.Topic)
		t.subs[key] = append(t.subs[key], handler)
	}
	return nil
}

// Close marks the transport closed; further publishes are silently
// dropped, further subscriptions are accepted but will never fire.
func (t *InProcess) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
