// Package validate evaluates a field registry's rules against current form
// values. The engine is pure: it never mutates values and produces a fresh
// error map on every call, keyed only by currently-visible fields with actual
// failures. Absence of a key means "valid or not applicable", so a field
// hidden after it accumulated an error simply drops out of the next map.
package validate

import (
	"github.com/goliatone/go-formstate/pkg/field"
)

// Fields validates every visible field in the registry. Each field's rules
// run in declaration order, recording the first failure; fields are
// independent of each other, so one failure never short-circuits the rest.
func Fields(values map[string]any, reg *field.Registry) (map[string]string, error) {
	visible, err := reg.VisibleFields(values)
	if err != nil {
		return nil, err
	}

	errs := make(map[string]string)
	for _, spec := range reg.Specs() {
		if _, ok := visible[spec.Name]; !ok {
			continue
		}
		if msg := firstFailure(spec, values); msg != "" {
			errs[spec.Name] = msg
		}
	}
	return errs, nil
}

// Field validates a single field, the cheap path for per-field blur
// feedback. A hidden field validates clean.
func Field(values map[string]any, reg *field.Registry, name string) (string, error) {
	spec, err := reg.Get(name)
	if err != nil {
		return "", err
	}
	visible, err := reg.VisibleFields(values)
	if err != nil {
		return "", err
	}
	if _, ok := visible[name]; !ok {
		return "", nil
	}
	return firstFailure(spec, values), nil
}

func firstFailure(spec field.Spec, values map[string]any) string {
	value := values[spec.Name]
	for _, r := range spec.Rules {
		if r == nil {
			continue
		}
		if msg := r.Validate(value, values); msg != "" {
			return msg
		}
	}
	return ""
}
