// Package field provides the declarative field registry behind a form: field
// specs, validation rule lists, visibility expressions, and the dependency
// graph between user-edited inputs and derived fields. A registry is built
// once per form definition and shared read-only by every form instance.
package field

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-formstate/pkg/rule"
	"github.com/goliatone/go-formstate/pkg/visibility"
	visexpr "github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// BuilderOption customises registry construction.
type BuilderOption func(*Builder)

// WithEvaluator injects a custom visibility evaluator. The default compiles
// VisibleWhen rules as expr-lang expressions.
func WithEvaluator(ev visibility.Evaluator) BuilderOption {
	return func(b *Builder) {
		if ev != nil {
			b.evaluator = ev
		}
	}
}

// Builder accumulates field specs and produces an immutable Registry.
// Registration mistakes (duplicate names, unknown references, dependency
// cycles, malformed visibility rules) surface from Register/Build and must
// abort construction of that form; they are never shown to end users.
type Builder struct {
	specs     []Spec
	index     map[string]int
	evaluator visibility.Evaluator
	err       error
}

// NewBuilder constructs an empty Builder.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{index: make(map[string]int)}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	if b.evaluator == nil {
		b.evaluator = visexpr.New()
	}
	return b
}

// Register adds a field spec. It fails with *DuplicateFieldError when the
// name is already taken and with a validation error when the spec is
// malformed.
func (b *Builder) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("field registry: field name is required")
	}
	if _, exists := b.index[spec.Name]; exists {
		return &DuplicateFieldError{Name: spec.Name}
	}
	if spec.Derived != nil && spec.Derived.Compute == nil {
		return fmt.Errorf("field registry: derived field %q has no compute function", spec.Name)
	}

	if spec.Required {
		spec.Rules = append([]Rule{rule.Required{}}, spec.Rules...)
	}

	b.index[spec.Name] = len(b.specs)
	b.specs = append(b.specs, spec)
	return nil
}

// MustRegister registers a chain of specs, remembering the first failure so
// callers can declare a whole form fluently and check once at Build.
func (b *Builder) MustRegister(specs ...Spec) *Builder {
	for _, spec := range specs {
		if b.err != nil {
			return b
		}
		b.err = b.Register(spec)
	}
	return b
}

// Build validates cross-field references, compiles visibility rules, derives
// the topological recompute order, and returns the immutable Registry. Cycles
// in the DependsOn/Inputs edge set fail fast here with *CycleError.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}

	for _, spec := range b.specs {
		for _, name := range spec.DependsOn {
			if _, ok := b.index[name]; !ok {
				return nil, &UnknownFieldError{Name: name}
			}
		}
		if spec.Derived != nil {
			for _, name := range spec.Derived.Inputs {
				if _, ok := b.index[name]; !ok {
					return nil, &UnknownFieldError{Name: name}
				}
			}
		}
		if spec.VisibleWhen != "" {
			if _, err := b.evaluator.Eval(spec.Name, spec.VisibleWhen, visibility.Context{}); err != nil {
				return nil, err
			}
		}
	}

	order, err := b.topoOrder()
	if err != nil {
		return nil, err
	}

	dependents := make(map[string][]string)
	for _, spec := range b.specs {
		for _, parent := range spec.DependsOn {
			dependents[parent] = append(dependents[parent], spec.Name)
		}
	}

	return &Registry{
		specs:      append([]Spec(nil), b.specs...),
		index:      copyIndex(b.index),
		order:      order,
		dependents: dependents,
		evaluator:  b.evaluator,
	}, nil
}

// topoOrder sorts field names so every derived field follows all of its
// transitive inputs. Edges: input -> derived target, parent -> dependent.
func (b *Builder) topoOrder() ([]string, error) {
	edges := make(map[string][]string, len(b.specs))
	for _, spec := range b.specs {
		if spec.Derived != nil {
			for _, input := range spec.Derived.Inputs {
				edges[input] = append(edges[input], spec.Name)
			}
		}
		for _, parent := range spec.DependsOn {
			edges[parent] = append(edges[parent], spec.Name)
		}
	}
	for from := range edges {
		sort.Strings(edges[from])
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(b.specs))
	var order []string
	var stack []string

	var visit func(name string) *CycleError
	visit = func(name string) *CycleError {
		switch state[name] {
		case done:
			return nil
		case visiting:
			cycle := append([]string(nil), stack...)
			return &CycleError{Fields: append(cycle, name)}
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, next := range edges[name] {
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, spec := range b.specs {
		if err := visit(spec.Name); err != nil {
			return nil, err
		}
	}

	// Post-order DFS emits dependents first; reverse for recompute order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Registry is the immutable, shareable description of a form's fields.
type Registry struct {
	specs      []Spec
	index      map[string]int
	order      []string
	dependents map[string][]string
	evaluator  visibility.Evaluator
}

// Get returns the spec for name, failing with *UnknownFieldError when
// absent.
func (r *Registry) Get(name string) (Spec, error) {
	idx, ok := r.index[name]
	if !ok {
		return Spec{}, &UnknownFieldError{Name: name}
	}
	return r.specs[idx], nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Specs returns the field specs in registration order.
func (r *Registry) Specs() []Spec {
	return append([]Spec(nil), r.specs...)
}

// Derived returns the derived field specs in topological recompute order, so
// a cascade (A feeds B feeds C) recomputes B before C.
func (r *Registry) Derived() []Spec {
	var out []Spec
	for _, name := range r.order {
		spec := r.specs[r.index[name]]
		if spec.Derived != nil {
			out = append(out, spec)
		}
	}
	return out
}

// Dependents returns the fields that declare name in their DependsOn set.
func (r *Registry) Dependents(name string) []string {
	return append([]string(nil), r.dependents[name]...)
}

// VisibleFields evaluates every VisibleWhen predicate against the current
// values and returns the set of visible field names. Fields with no
// predicate are always visible.
func (r *Registry) VisibleFields(values map[string]any) (map[string]struct{}, error) {
	visible := make(map[string]struct{}, len(r.specs))
	ctx := visibility.Context{Values: values}
	for _, spec := range r.specs {
		if spec.VisibleWhen == "" {
			visible[spec.Name] = struct{}{}
			continue
		}
		ok, err := r.evaluator.Eval(spec.Name, spec.VisibleWhen, ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			visible[spec.Name] = struct{}{}
		}
	}
	return visible, nil
}

func copyIndex(index map[string]int) map[string]int {
	out := make(map[string]int, len(index))
	for name, idx := range index {
		out[name] = idx
	}
	return out
}
