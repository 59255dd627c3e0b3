// Package brains holds the fixed-order registry of pure decision functions
// (A2, B3, C3, D2): a fixed ordered slice rather than dynamic registration,
// since iteration order must be deterministic.
package brains

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Brain is a pure function: snapshot + symbol/correlation metadata -> intent
// or skip, never both. Brains must never read or mutate external state;
// their only inputs are the snapshot and constants compiled into them.
type Brain func(snapshot fxtypes.MarketSnapshot, correlationID string, now time.Time) (*fxtypes.Intent, *fxtypes.Why)

// entry pairs a brain id with its function, preserving registration order.
type entry struct {
	id Component
	fn Brain
}

// Component aliases fxtypes.Component for readability in this package.
type Component = fxtypes.Component

// Registry is the fixed, ordered collection of brains. Its zero value is
// not usable; use NewRegistry.
type Registry struct {
	entries []entry
}

// NewRegistry builds the registry with the four built-in brains in their
// fixed order: A2, B3, C3, D2.
func NewRegistry() *Registry {
	return &Registry{entries: []entry{
		{fxtypes.ComponentA2, brainA2},
		{fxtypes.ComponentB3, brainB3},
		{fxtypes.ComponentC3, brainC3},
		{fxtypes.ComponentD2, brainD2},
	}}
}

// IterateInFixedOrder calls visit for each (brain id, intent-or-skip) pair
// in registration order, making replay deterministic.
func (r *Registry) IterateInFixedOrder(snapshot fxtypes.MarketSnapshot, correlationID string, now time.Time, visit func(brainID fxtypes.Component, intent *fxtypes.Intent, skipWhy *fxtypes.Why)) {
	for _, e := range r.entries {
		intent, skipWhy := e.fn(snapshot, correlationID, now)
		visit(e.id, intent, skipWhy)
	}
}

// IDs returns the brain ids in fixed order, for tests asserting ordering.
func (r *Registry) IDs() []fxtypes.Component {
	ids := make([]fxtypes.Component, 0, len(r.entries))
	for _, e := range r.entries {
		ids = append(ids, e.id)
	}
	return ids
}

func newIntentID() string { return uuid.NewString() }
