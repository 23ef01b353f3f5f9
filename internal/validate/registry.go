package validate

import (
	"sync"
	"sync/atomic"

	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/redact"
	"github.com/straja-ai/docshield/internal/safety"
)

type registration struct {
	validator Validator
	priority  int
}

// Registry maps each entity type to exactly one validator. It is built once
// at startup and frozen before documents are processed; after Freeze it is
// read-only and safe for concurrent readers.
type Registry struct {
	mu      sync.RWMutex
	entries map[safety.EntityType]registration
	frozen  atomic.Bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[safety.EntityType]registration)}
}

// Register inserts v for its entity type. An existing entry is replaced only
// when priority is strictly greater; a lower priority keeps the incumbent.
// Equal priorities are ambiguous and fail, as does any call after Freeze.
func (r *Registry) Register(v Validator, priority int) error {
	typ := string(v.EntityType())
	if r.frozen.Load() {
		return detecterr.Registry("register", typ, detecterr.ErrRegistryFrozen)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[v.EntityType()]
	switch {
	case !ok || priority > cur.priority:
		r.entries[v.EntityType()] = registration{validator: v, priority: priority}
		return nil
	case priority == cur.priority:
		return detecterr.Registry("register", typ, detecterr.ErrPriorityConflict)
	default:
		redact.Logf("validate: %s (priority %d) kept over %s (priority %d) for %s",
			cur.validator.Name(), cur.priority, v.Name(), priority, typ)
		return nil
	}
}

// MustRegister panics on registration failure. Registry misuse is a
// programming error and should stop startup.
func (r *Registry) MustRegister(v Validator, priority int) {
	if err := r.Register(v, priority); err != nil {
		panic(err)
	}
}

// Get returns the validator for typ.
func (r *Registry) Get(typ safety.EntityType) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[typ]
	if !ok {
		return nil, false
	}
	return e.validator, true
}

// Has reports whether a validator is registered for typ.
func (r *Registry) Has(typ safety.EntityType) bool {
	_, ok := r.Get(typ)
	return ok
}

// Priority returns the registered priority for typ.
func (r *Registry) Priority(typ safety.EntityType) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[typ]
	return e.priority, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Freeze makes the registry read-only. It cannot be undone except by Reset.
func (r *Registry) Freeze() { r.frozen.Store(true) }

// IsFrozen reports whether Freeze was called.
func (r *Registry) IsFrozen() bool { return r.frozen.Load() }

// Reset clears all entries and unfreezes. Test isolation only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[safety.EntityType]registration)
	r.frozen.Store(false)
}
