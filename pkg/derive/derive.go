// Package derive recomputes derived field values from the full current form
// values. Recomputation is deliberately not incremental: every derived field
// is recomputed from scratch in topological order on each call, trading a
// little recompute cost for immunity to the stale-value drift that
// watch-list based recomputation suffers when a watched-field list is
// incomplete.
package derive

import (
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/rule"
)

// Engine recomputes derived fields for a registry. The engine holds no
// per-call state; given identical values it produces identical outputs
// regardless of call history.
type Engine struct {
	reg *field.Registry
}

// New constructs an Engine over a built registry. Cycles were rejected at
// registry build time, so Recompute always terminates.
func New(reg *field.Registry) *Engine {
	return &Engine{reg: reg}
}

// Recompute evaluates every visible derived field in topological order and
// returns only the fields whose value actually changed, cascading
// transitively (if B depends on A and C on B, a change to A reaches both).
// The input map is never mutated.
func (e *Engine) Recompute(values map[string]any) (map[string]any, error) {
	specs := e.reg.Derived()
	if len(specs) == 0 {
		return nil, nil
	}

	working := make(map[string]any, len(values))
	for key, value := range values {
		working[key] = value
	}

	changed := make(map[string]any)
	for _, spec := range specs {
		visible, err := e.reg.VisibleFields(working)
		if err != nil {
			return nil, err
		}
		if _, ok := visible[spec.Name]; !ok {
			continue
		}
		next := spec.Derived.Compute(working)
		if valuesEqual(working[spec.Name], next) {
			continue
		}
		working[spec.Name] = next
		changed[spec.Name] = next
	}

	if len(changed) == 0 {
		return nil, nil
	}
	return changed, nil
}

// valuesEqual compares a stored value against a freshly computed one.
// Numeric values compare by magnitude so recomputation is a no-op for
// dirty-tracking when the amount is unchanged, even across representations.
func valuesEqual(old, next any) bool {
	if old == nil && next == nil {
		return true
	}
	if od, ok := old.(decimal.Decimal); ok {
		if nd, ok := next.(decimal.Decimal); ok {
			return od.Equal(nd)
		}
	}
	if on, ok := rule.CoerceNumber(old); ok {
		if nn, ok := rule.CoerceNumber(next); ok {
			return on == nn
		}
		return false
	}
	return reflect.DeepEqual(old, next)
}
