// Package expr implements visibility.Evaluator on top of expr-lang
// expressions, e.g. `reportType == "daily"` or `vatable && taxRate > 0`.
// Programs are compiled once per rule string and cached for reuse across
// every evaluation of a form instance.
package expr

import (
	"fmt"
	"strings"
	"sync"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Evaluator compiles and runs visibility rules. The zero value is not usable;
// call New.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// Ensure the implementation satisfies the public interface.
var _ visibility.Evaluator = (*Evaluator)(nil)

// New constructs an Evaluator with an empty program cache.
func New() *Evaluator {
	return &Evaluator{programs: make(map[string]*vm.Program)}
}

// Eval evaluates rule against the supplied context. An empty rule is always
// visible. Identifiers resolve against ctx.Values, with ctx.Extras reachable
// under the `extras` prefix; unknown identifiers evaluate as nil rather than
// failing, keeping partially-filled forms evaluable.
func (e *Evaluator) Eval(fieldName, rule string, ctx visibility.Context) (bool, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return true, nil
	}

	program, err := e.compile(trimmed)
	if err != nil {
		return false, fmt.Errorf("visibility/expr: field %q: %w", fieldName, err)
	}

	env := make(map[string]any, len(ctx.Values)+1)
	for key, value := range ctx.Values {
		env[key] = value
	}
	env["extras"] = ctx.Extras

	output, err := exprlang.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("visibility/expr: field %q: %w", fieldName, err)
	}
	return truthy(output), nil
}

func (e *Evaluator) compile(rule string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := exprlang.Compile(rule, exprlang.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile rule %q: %w", rule, err)
	}

	e.mu.Lock()
	e.programs[rule] = program
	e.mu.Unlock()
	return program, nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
