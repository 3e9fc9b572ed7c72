// Package transport defines the pub/sub bus contract the orchestrator
// depends on (see spec §6) and ships two concrete implementations: an
// in-process, at-most-once transport for single-binary runs and tests, and
// a websocket broker-backed transport for out-of-process renderers and
// FMU-style models.
package transport

import (
	"github.com/edufford/aerosim/internal/message"
	"github.com/edufford/aerosim/internal/timestamp"
)

// RawHandler receives the raw wire bytes for a single message on a
// subscription.
type RawHandler func(raw []byte)

// TopicType names a single (type_name, topic) pair for bulk subscription.
type TopicType struct {
	TypeName string
	Topic    string
}

// Transport is the external collaborator contract named in spec §6. Both
// shipped implementations satisfy it so the orchestrator stays
// transport-agnostic.
type Transport interface {
	// Publish sends data on topic, tagged with typeName and an optional
	// sim time (pass timestamp.Unset() when publishing without a sim
	// clock reading).
	Publish(typeName, topic string, data []byte, simTime timestamp.Timestamp) error

	// SubscribeRaw registers handler for every message published on
	// (typeName, topic).
	SubscribeRaw(typeName, topic string, handler RawHandler) error

	// SubscribeAllRaw registers a single handler across many
	// (type_name, topic) pairs. The orchestrator's start() does not use
	// it: it calls SubscribeRaw once per topic with a per-topic handler.
	SubscribeAllRaw(pairs []TopicType, handler RawHandler) error

	// Close releases transport resources. Idempotent.
	Close() error
}

// SerializeMessage and DeserializeMessage are re-exported from the message
// package so callers only need to import transport for the full contract
// surface named in spec §6.
var (
	SerializeMessage     = message.SerializeMessage
	DeserializeMessage   = message.DeserializeMessage
	DeserializeMetadata  = message.DeserializeMetadata
)
