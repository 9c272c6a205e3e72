package gateway

import (
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/rule"
)

// Serializer maps controller values to the shape the backend expects: field
// renaming, ISO-8601 date formatting, numeric coercion, and rich-text
// sanitisation for textarea fields.
type Serializer struct {
	reg    *field.Registry
	rename map[string]string
	policy *bluemonday.Policy
}

// NewSerializer constructs a Serializer for the registry. rename maps form
// field names to backend payload keys; unmapped fields keep their name.
func NewSerializer(reg *field.Registry, rename map[string]string) *Serializer {
	return &Serializer{
		reg:    reg,
		rename: rename,
		policy: bluemonday.StrictPolicy(),
	}
}

// Payload serialises the supplied values. Only registered fields are
// emitted; derived values travel like any other field so server and client
// totals can be reconciled.
func (s *Serializer) Payload(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for _, spec := range s.reg.Specs() {
		value, ok := values[spec.Name]
		if !ok {
			continue
		}
		out[s.key(spec.Name)] = s.encode(spec, value)
	}
	return out
}

// FieldForKey reverses the rename mapping, returning the form field name for
// a backend payload key.
func (s *Serializer) FieldForKey(key string) string {
	for name, mapped := range s.rename {
		if mapped == key {
			return name
		}
	}
	return key
}

func (s *Serializer) key(name string) string {
	if mapped, ok := s.rename[name]; ok && mapped != "" {
		return mapped
	}
	return name
}

func (s *Serializer) encode(spec field.Spec, value any) any {
	if value == nil {
		return nil
	}
	switch spec.Type {
	case field.TypeDate:
		if t, ok := rule.CoerceDate(value); ok {
			return t.Format("2006-01-02")
		}
		return nil
	case field.TypeDateTime:
		if t, ok := rule.CoerceDate(value); ok {
			return t.Format(time.RFC3339)
		}
		return nil
	case field.TypeNumber:
		if d, ok := value.(decimal.Decimal); ok {
			return d
		}
		if n, ok := rule.CoerceNumber(value); ok {
			return n
		}
		return nil
	case field.TypeBoolean:
		return rule.CoerceBool(value)
	case field.TypeTextarea:
		return strings.TrimSpace(s.policy.Sanitize(rule.CoerceString(value)))
	default:
		return value
	}
}
