// Package recorder implements the self-describing binary message log, a
// direct port of aerosim-world's DataManager (data_manager.rs) onto the
// Go mcap writer, the ecosystem counterpart of the upstream's mcap crate.
package recorder

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/foxglove/mcap/go/mcap"

	"github.com/edufford/aerosim/internal/registry"
	"github.com/edufford/aerosim/internal/timestamp"
)

// Recorder appends every observed message to an mcap log, unchunked for
// crash-safe streaming, per spec §4.2. A Recorder opened without a writer,
// or already stopped, is a no-op, matching the upstream's "absent writer
// is silent" contract. A nil *Recorder is not usable.
type Recorder struct {
	mu       sync.Mutex
	writer   *mcap.Writer
	closer   io.Closer
	registry *registry.Registry
	logger   *slog.Logger

	isOpen bool

	schemaIDs  map[string]uint16 // type name -> schema id
	channelIDs map[string]uint16 // topic -> channel id
	nextSchema uint16
	nextChannel uint16

	simStart int64 // wall-clock nanoseconds at sim start; stored, not read by Record
}

// Open starts a new recorder writing to w, or returns a disabled recorder
// if w is nil (the "recorder disabled by config" path from spec §4.2).
func Open(w io.Writer, closer io.Closer, reg *registry.Registry, logger *slog.Logger) (*Recorder, error) {
	r := &Recorder{
		registry:   reg,
		logger:     logger,
		schemaIDs:  make(map[string]uint16),
		channelIDs: make(map[string]uint16),
	}
	if w == nil {
		return r, nil
	}

	mw, err := mcap.NewWriter(w, &mcap.WriterOptions{
		Chunked:     false,
		Compression: mcap.CompressionNone,
	})
	if err != nil {
		return nil, fmt.Errorf("open recorder: %w", err)
	}
	if err := mw.WriteHeader(&mcap.Header{Profile: "aerosim", Library: "aerosim-go"}); err != nil {
		return nil, fmt.Errorf("open recorder: write header: %w", err)
	}
	r.writer = mw
	r.closer = closer
	r.isOpen = true
	return r, nil
}

// SetSimStart records the wall-clock nanosecond instant sim-time zero
// corresponds to. Record does not read it: publish_time is taken from the
// message's sim time, which already counts nanoseconds since sim start.
func (r *Recorder) SetSimStart(simStart int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.simStart = simStart
}

// Record writes one observed message: channel id (topic), schema id
// (derived from typeName), sequence (always 0 — see DESIGN.md open
// question), log wall time, publish sim time, and payload bytes exactly as
// delivered, per spec §4.2.
func (r *Recorder) Record(typeName, topic string, simTime timestamp.Timestamp, logWall timestamp.Timestamp, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isOpen {
		return
	}

	schemaID, hasSchema := r.schemaFor(typeName)
	channelID := r.channelFor(topic, schemaID, hasSchema)

	msg := &mcap.Message{
		ChannelID:   channelID,
		Sequence:    0,
		LogTime:     uint64(logWall.ToNanos()),
		PublishTime: uint64(simTime.ToNanos()),
		Data:        payload,
	}
	if err := r.writer.WriteMessage(msg); err != nil {
		r.logger.Warn("recorder write failed", "topic", topic, "err", err)
	}
}

// schemaFor lazily discovers and writes a type's JSON-schema description,
// binding it to an integer id on first sight, per spec §4.2's lazy schema
// discovery algorithm. Returns hasSchema=false if the type isn't
// registered, matching "missing schema for a type -> written without a
// schema reference, warning emitted".
func (r *Recorder) schemaFor(typeName string) (uint16, bool) {
	if id, ok := r.schemaIDs[typeName]; ok {
		return id, true
	}
	ts, ok := r.registry.Get(typeName)
	if !ok {
		r.logger.Warn("no schema registered for type", "type", typeName)
		return 0, false
	}
	data, err := ts.SchemaBytes()
	if err != nil {
		r.logger.Warn("schema reflection failed", "type", typeName, "err", err)
		return 0, false
	}

	r.nextSchema++
	id := r.nextSchema
	schema := &mcap.Schema{ID: id, Name: typeName, Encoding: "jsonschema", Data: data}
	if err := r.writer.WriteSchema(schema); err != nil {
		r.logger.Warn("write schema failed", "type", typeName, "err", err)
		return 0, false
	}
	r.schemaIDs[typeName] = id
	return id, true
}

// channelFor lazily allocates a channel id for topic, linking it to the
// current schema id, per spec §4.2.
func (r *Recorder) channelFor(topic string, schemaID uint16, hasSchema bool) uint16 {
	if id, ok := r.channelIDs[topic]; ok {
		return id
	}
	r.nextChannel++
	id := r.nextChannel
	ch := &mcap.Channel{
		ID:              id,
		Topic:           topic,
		MessageEncoding: "json",
		Metadata:        map[string]string{},
	}
	if hasSchema {
		ch.SchemaID = schemaID
	}
	if err := r.writer.WriteChannel(ch); err != nil {
		r.logger.Warn("write channel failed", "topic", topic, "err", err)
	}
	r.channelIDs[topic] = id
	return id
}

// Stop closes the recorder. Idempotent: a second call is a silent no-op,
// satisfying the recorder-idempotence property in spec §8.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isOpen {
		return nil
	}
	r.isOpen = false
	if r.writer == nil {
		return nil
	}
	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("close recorder: %w", err)
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
