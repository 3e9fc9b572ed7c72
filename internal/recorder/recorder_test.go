package recorder

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/edufford/aerosim/internal/registry"
	"github.com/edufford/aerosim/internal/timestamp"
)

type sample struct {
	Value float64 `json:"value"`
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	if err := registry.Register[sample](reg, "Sample"); err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestRecorderDisabledWhenNoWriter(t *testing.T) {
	r, err := Open(nil, nil, newTestRegistry(t), slog.Default())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.Record("Sample", "t", timestamp.FromMillis(1), timestamp.Now(), []byte("{}"))
	if err := r.Stop(); err != nil {
		t.Fatalf("stop on disabled recorder: %v", err)
	}
}

func TestRecorderWritesAndClosesIdempotently(t *testing.T) {
	var buf bytes.Buffer
	r, err := Open(&buf, nil, newTestRegistry(t), slog.Default())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.Record("Sample", "telemetry", timestamp.FromMillis(10), timestamp.Now(), []byte(`{"value":1}`))
	r.Record("Sample", "telemetry", timestamp.FromMillis(20), timestamp.Now(), []byte(`{"value":2}`))

	if err := r.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second stop must be a no-op, got: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected bytes written to the log")
	}
}

func TestRecorderMissingSchemaStillRecords(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.New() // no types registered
	r, err := Open(&buf, nil, reg, slog.Default())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.Record("Unregistered", "t", timestamp.FromMillis(1), timestamp.Now(), []byte("{}"))
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestRecorderDropsWritesAfterStop(t *testing.T) {
	var buf bytes.Buffer
	r, err := Open(&buf, nil, newTestRegistry(t), slog.Default())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	sizeAfterStop := buf.Len()
	r.Record("Sample", "t", timestamp.FromMillis(1), timestamp.Now(), []byte("{}"))
	if buf.Len() != sizeAfterStop {
		t.Fatalf("record after stop must be silently dropped")
	}
}
