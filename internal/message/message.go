// Package message defines the wire-level envelope and metadata carried on
// every transport payload, adapted from the teacher's envelope/message
// types onto the spec's (topic, type_name, sim_time, platform_time) shape.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/edufford/aerosim/internal/timestamp"
)

// Metadata is attached to every transport payload.
type Metadata struct {
	Topic        string             `json:"topic"`
	TypeName     string             `json:"type_name"`
	SimTime      timestamp.Timestamp `json:"timestamp_sim"`
	PlatformTime timestamp.Timestamp `json:"timestamp_platform"`
}

// Envelope is the full record the transport carries: metadata plus the
// serialized payload, wrapped with a unique id for recorder/debug
// correlation, grounded on the teacher's transport.Envelope.
type Envelope struct {
	ID       string          `json:"id"`
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// NewEnvelope stamps a fresh envelope for publish.
func NewEnvelope(topic, typeName string, simTime timestamp.Timestamp, payload []byte) Envelope {
	return Envelope{
		ID: uuid.New().String(),
		Metadata: Metadata{
			Topic:        topic,
			TypeName:     typeName,
			SimTime:      simTime,
			PlatformTime: timestamp.Now(),
		},
		Payload: payload,
	}
}

// SerializeMessage combines metadata and payload bytes into the wire
// format, satisfying the transport contract's serialize_message operation.
func SerializeMessage(meta Metadata, data []byte) ([]byte, error) {
	env := Envelope{ID: uuid.New().String(), Metadata: meta, Payload: data}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}
	return b, nil
}

// DeserializeMessage splits wire bytes back into metadata and payload,
// satisfying deserialize_message.
func DeserializeMessage(raw []byte) (Metadata, []byte, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Metadata{}, nil, fmt.Errorf("deserialize message: %w", err)
	}
	return env.Metadata, env.Payload, nil
}

// DeserializeMetadata extracts only the metadata from wire bytes,
// satisfying serialize_metadata's inverse (the contract names it
// serialize_metadata but it is consumed as an extraction step by callers).
func DeserializeMetadata(raw []byte) (Metadata, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Metadata{}, fmt.Errorf("deserialize metadata: %w", err)
	}
	return env.Metadata, nil
}
