// Package openapi derives field specs from an OpenAPI operation's request
// body, so a backend that already publishes a document can seed a field
// registry without a hand-written definition. Constraints map onto the rule
// set: required lists, min/max, pattern, and email/date formats.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/rule"
)

// FieldSpecs loads an OpenAPI document and returns field specs for the JSON
// request body of the operation identified by operationID. Properties emit
// in alphabetical order for deterministic registries.
func FieldSpecs(ctx context.Context, raw []byte, operationID string) ([]field.Spec, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	operation, err := findOperation(doc, operationID)
	if err != nil {
		return nil, err
	}

	schema := requestSchema(operation)
	if schema == nil {
		return nil, fmt.Errorf("openapi: operation %q has no JSON request body", operationID)
	}

	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]field.Spec, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		spec := specForProperty(name, ref.Value)
		_, spec.Required = required[name]
		specs = append(specs, spec)
	}
	return specs, nil
}

func findOperation(doc *openapi3.T, operationID string) (*openapi3.Operation, error) {
	if doc.Paths == nil {
		return nil, errors.New("openapi: document does not contain any paths")
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range item.Operations() {
			if operation != nil && operation.OperationID == operationID {
				return operation, nil
			}
		}
	}
	return nil, fmt.Errorf("openapi: operation %q not found", operationID)
}

func requestSchema(operation *openapi3.Operation) *openapi3.Schema {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return nil
	}
	media := operation.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	return media.Schema.Value
}

func specForProperty(name string, prop *openapi3.Schema) field.Spec {
	spec := field.Spec{
		Name:    name,
		Type:    fieldType(prop),
		Label:   strings.TrimSpace(prop.Title),
		Default: prop.Default,
	}

	if len(prop.Enum) > 0 {
		spec.Type = field.TypeSelect
	}
	spec.Rules = rulesForProperty(prop)
	return spec
}

func fieldType(prop *openapi3.Schema) field.Type {
	types := prop.Type
	switch {
	case types.Is("number"), types.Is("integer"):
		return field.TypeNumber
	case types.Is("boolean"):
		return field.TypeBoolean
	case types.Is("string"):
		switch prop.Format {
		case "date":
			return field.TypeDate
		case "date-time":
			return field.TypeDateTime
		}
		if prop.MaxLength != nil && *prop.MaxLength > 255 {
			return field.TypeTextarea
		}
		return field.TypeText
	default:
		return field.TypeText
	}
}

func rulesForProperty(prop *openapi3.Schema) []field.Rule {
	var rules []field.Rule
	if prop.Min != nil || prop.Max != nil {
		rules = append(rules, rule.MinMax{Min: prop.Min, Max: prop.Max})
	}
	if prop.Pattern != "" {
		if compiled, err := compilePattern(prop.Pattern); err == nil {
			rules = append(rules, rule.Pattern{Regexp: compiled})
		}
	}
	if prop.Format == "email" {
		rules = append(rules, rule.Email{})
	}
	return rules
}
