// Package registry implements the process-wide type registry: a
// constructed-on-first-use, immutable-after-startup map from type name to
// schema support, ported from aerosim-data's TypeRegistry (Rust OnceLock)
// onto Go's sync.Once.
package registry

import (
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

// TypeSupport binds a registered type name to its reflected Go type and a
// lazily-generated JSON schema document, mirroring aerosim-data's
// TypeSupport (schema_as_bytes backed by schemars there, invopop/jsonschema
// here).
type TypeSupport struct {
	TypeName string
	sample   any

	schemaOnce sync.Once
	schemaDoc  []byte
}

// SchemaBytes returns the JSON-schema description for this type, generating
// it once and caching it, mirroring the upstream's lazy schema_as_bytes.
func (t *TypeSupport) SchemaBytes() ([]byte, error) {
	var genErr error
	t.schemaOnce.Do(func() {
		r := &jsonschema.Reflector{ExpandedStruct: true}
		schema := r.Reflect(t.sample)
		b, err := schema.MarshalJSON()
		if err != nil {
			genErr = fmt.Errorf("reflect schema for %s: %w", t.TypeName, err)
			return
		}
		t.schemaDoc = b
	})
	if genErr != nil {
		return nil, genErr
	}
	return t.schemaDoc, nil
}

// Registry is a read-mostly map of type name to TypeSupport, populated once
// at startup and never mutated afterward.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeSupport
}

// New constructs an empty registry. Unlike the upstream's process-wide
// OnceLock singleton, the Go port hands the registry to whoever constructs
// the orchestrator (see cmd/orchestratord), since tests need independent
// instances; Bootstrap below is the one-time population entry point
// callers are expected to invoke exactly once per registry.
func New() *Registry {
	return &Registry{types: make(map[string]*TypeSupport)}
}

// Register binds typeName to a zero-value sample of T for schema
// reflection. Returns an error if typeName is already registered, mirroring
// the upstream's duplicate-registration error.
func Register[T any](r *Registry, typeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[typeName]; exists {
		return fmt.Errorf("type %q is already registered", typeName)
	}
	var zero T
	r.types[typeName] = &TypeSupport{TypeName: typeName, sample: zero}
	return nil
}

// Get looks up a registered type by name.
func (r *Registry) Get(typeName string) (*TypeSupport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.types[typeName]
	return ts, ok
}

var (
	bootstrapOnce sync.Once
	bootstrapped  *Registry
)

// Bootstrap returns the process-wide registry, constructing and populating
// it exactly once on first call — the direct Go counterpart of the
// upstream's `TypeRegistry::new()` over a `static OnceLock`.
func Bootstrap(populate func(*Registry)) *Registry {
	bootstrapOnce.Do(func() {
		bootstrapped = New()
		populate(bootstrapped)
	})
	return bootstrapped
}
