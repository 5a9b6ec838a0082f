package model

import "sync/atomic"

// Registry publishes the active generation to the scoring path. Readers call
// Active on every request and never block; activation is a single atomic
// pointer swap, so an in-flight request sees either the old generation or
// the new one in full, never a partially-swapped state (read-copy-update).
//
// The previously active generation is retained until the next successful
// swap so a rollback always has something to fall back to.
//
// The zero value is ready to use and serves "no model" (rule-only scoring)
// until the first activation.
type Registry struct {
	active   atomic.Pointer[Generation]
	previous atomic.Pointer[Generation]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Active returns the currently serving generation, or nil when no model has
// been activated yet. Safe for concurrent use.
func (r *Registry) Active() *Generation { return r.active.Load() }

// Previous returns the generation displaced by the last activation, or nil.
func (r *Registry) Previous() *Generation { return r.previous.Load() }

// Activate atomically publishes g as the serving generation and returns the
// generation it replaced (nil on first activation). The displaced generation
// is retained as Previous.
func (r *Registry) Activate(g *Generation) *Generation {
	old := r.active.Swap(g)
	if old != nil {
		r.previous.Store(old)
	}
	return old
}
