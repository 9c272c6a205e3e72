package field

import (
	"fmt"
	"strings"
)

// DuplicateFieldError reports a second registration under an existing name.
// It is a programmer error and aborts form construction.
type DuplicateFieldError struct {
	Name string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("field registry: duplicate field %q", e.Name)
}

// UnknownFieldError reports a lookup or reference to a name that was never
// registered.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field registry: unknown field %q", e.Name)
}

// CycleError reports a recomputation cycle in the dependency graph formed by
// DependsOn and DerivedSpec.Inputs edges. Detected once at build time, never
// during recompute.
type CycleError struct {
	Fields []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("field registry: dependency cycle through %s", strings.Join(e.Fields, " -> "))
}
