// Package options supplies select-field option lists. Providers are passed
// into a form at construction, replacing module-scoped mock arrays as option
// sources: a form never reaches into shared mutable state for its dropdowns.
package options

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/rule"
)

// Option is a single selectable entry.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Provider resolves the option list for a field. values carries the current
// form values so scoped sources (Sub-Departments of the selected Department)
// can narrow their result.
type Provider interface {
	Options(ctx context.Context, source string, values map[string]any) ([]Option, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, source string, values map[string]any) ([]Option, error)

// Options delegates to the underlying function.
func (fn ProviderFunc) Options(ctx context.Context, source string, values map[string]any) ([]Option, error) {
	return fn(ctx, source, values)
}

// Contains reports whether value appears among opts, comparing loosely so a
// stored "3" matches an option value of 3.
func Contains(opts []Option, value any) bool {
	if rule.IsEmpty(value) {
		return false
	}
	want := rule.CoerceString(value)
	for _, opt := range opts {
		if rule.CoerceString(opt.Value) == want {
			return true
		}
	}
	return false
}

// Static serves fixed option lists keyed by source name, with optional
// scoping functions for dependent sources.
type Static struct {
	lists  map[string][]Option
	scoped map[string]func(values map[string]any) []Option
}

// Ensure the implementation satisfies the public interface.
var _ Provider = (*Static)(nil)

// NewStatic constructs a Static provider.
func NewStatic() *Static {
	return &Static{
		lists:  make(map[string][]Option),
		scoped: make(map[string]func(values map[string]any) []Option),
	}
}

// Set registers a fixed option list for source.
func (s *Static) Set(source string, opts ...Option) *Static {
	s.lists[source] = opts
	return s
}

// SetScoped registers a function computing the option list from current
// values, e.g. the sub-departments of the selected department.
func (s *Static) SetScoped(source string, fn func(values map[string]any) []Option) *Static {
	if fn != nil {
		s.scoped[source] = fn
	}
	return s
}

// Options implements Provider. Unknown sources resolve to an empty list.
func (s *Static) Options(_ context.Context, source string, values map[string]any) ([]Option, error) {
	if fn, ok := s.scoped[source]; ok {
		return fn(values), nil
	}
	return s.lists[source], nil
}
