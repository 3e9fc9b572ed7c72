package transport

import (
	"testing"
	"time"

	"github.com/edufford/aerosim/internal/message"
	"github.com/edufford/aerosim/internal/timestamp"
)

func TestInProcessPublishSubscribe(t *testing.T) {
	tr := NewInProcess()
	got := make(chan []byte, 1)
	if err := tr.SubscribeRaw("ClockTick", "aerosim.clock", func(raw []byte) { got <- raw }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := tr.Publish("ClockTick", "aerosim.clock", []byte(`{"sim_t":20}`), timestamp.FromMillis(20)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case raw := <-got:
		meta, payload, err := message.DeserializeMessage(raw)
		if err != nil {
			t.Fatalf("deserialize: %v", err)
		}
		if meta.Topic != "aerosim.clock" || meta.TypeName != "ClockTick" {
			t.Fatalf("unexpected metadata: %+v", meta)
		}
		if string(payload) != `{"sim_t":20}` {
			t.Fatalf("unexpected payload: %s", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestInProcessSubscribeAllRaw(t *testing.T) {
	tr := NewInProcess()
	got := make(chan string, 2)
	err := tr.SubscribeAllRaw([]TopicType{
		{TypeName: "A", Topic: "a"},
		{TypeName: "B", Topic: "b"},
	}, func(raw []byte) {
		meta, _, _ := message.DeserializeMessage(raw)
		got <- meta.Topic
	})
	if err != nil {
		t.Fatalf("subscribe all: %v", err)
	}
	tr.Publish("A", "a", []byte("{}"), timestamp.Unset())
	tr.Publish("B", "b", []byte("{}"), timestamp.Unset())

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case topic := <-got:
			seen[topic] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected both topics delivered, got %+v", seen)
	}
}

func TestInProcessPacketLossDropsAll(t *testing.T) {
	tr := NewInProcess()
	tr.SetPacketLoss(1.0)
	got := make(chan []byte, 1)
	tr.SubscribeRaw("A", "a", func(raw []byte) { got <- raw })
	tr.Publish("A", "a", []byte("{}"), timestamp.Unset())
	select {
	case <-got:
		t.Fatal("expected message to be dropped under 100% packet loss")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInProcessCloseSilencesPublish(t *testing.T) {
	tr := NewInProcess()
	got := make(chan []byte, 1)
	tr.SubscribeRaw("A", "a", func(raw []byte) { got <- raw })
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tr.Publish("A", "a", []byte("{}"), timestamp.Unset()); err != nil {
		t.Fatalf("publish after close should no-op without error: %v", err)
	}
	select {
	case <-got:
		t.Fatal("expected no delivery after close")
	case <-time.After(100 * time.Millisecond):
	}
}
