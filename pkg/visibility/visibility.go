// Package visibility decides whether a field is eligible for display, input,
// and validation given the current form values. Rules are expression strings
// attached to field specs; an empty rule always evaluates to visible.
package visibility

// Evaluator determines whether a field should be visible based on a rule
// string and context such as current values or scope metadata.
type Evaluator interface {
	Eval(fieldName, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values carries the form's current
// values while Extras allows callers to inject arbitrary context such as user
// roles or feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldName, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldName, rule string, ctx Context) (bool, error) {
	return fn(fieldName, rule, ctx)
}
