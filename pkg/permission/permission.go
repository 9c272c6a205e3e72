// Package permission resolves per-module capability sets and collapses them
// into the single "may I submit" gate the form controller consumes. The
// controller never implements permission resolution itself.
package permission

import "context"

// Capabilities is the capability set granted for one module.
type Capabilities struct {
	View   bool `json:"view"`
	Add    bool `json:"add"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
	Print  bool `json:"print"`
}

// Resolver answers capability lookups for a module identifier.
type Resolver interface {
	Resolve(ctx context.Context, module string) (Capabilities, error)
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(ctx context.Context, module string) (Capabilities, error)

// Resolve delegates to the underlying function.
func (fn ResolverFunc) Resolve(ctx context.Context, module string) (Capabilities, error) {
	return fn(ctx, module)
}

// Static resolves capabilities from a fixed map. Unknown modules get no
// capabilities.
type Static map[string]Capabilities

// Resolve implements Resolver.
func (s Static) Resolve(_ context.Context, module string) (Capabilities, error) {
	return s[module], nil
}

// MaySubmit reports whether a submission is allowed: Add gates creates,
// Edit gates updates.
func (c Capabilities) MaySubmit(update bool) bool {
	if update {
		return c.Edit
	}
	return c.Add
}
