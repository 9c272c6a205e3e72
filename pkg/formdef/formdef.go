// Package formdef loads declarative form definitions from YAML and turns
// them into field registries. A definition captures what the per-form code
// used to hand-write: field types, rule lists, visibility expressions,
// dependent-field edges, and expression-based derived fields.
package formdef

import (
	"fmt"
	"regexp"
	"strings"

	exprlang "github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/derive"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/rule"
)

// Definition is a parsed form definition document.
type Definition struct {
	// Form names the definition, e.g. "obligation-request".
	Form string `yaml:"form"`
	// Module is the permission module identifier gating this form.
	Module string `yaml:"module"`
	// Resource is the backend collection the gateway targets.
	Resource string `yaml:"resource"`
	// Rename maps form field names to backend payload keys.
	Rename map[string]string `yaml:"rename"`
	Fields []FieldDef        `yaml:"fields"`
}

// FieldDef is the YAML shape of one field.
type FieldDef struct {
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"`
	Label        string            `yaml:"label"`
	Required     bool              `yaml:"required"`
	Default      any               `yaml:"default"`
	VisibleWhen  string            `yaml:"visible_when"`
	DependsOn    []string          `yaml:"depends_on"`
	OptionSource string            `yaml:"option_source"`
	Rules        []RuleDef         `yaml:"rules"`
	Derived      *DerivedDef       `yaml:"derived"`
	Metadata     map[string]string `yaml:"metadata"`
}

// RuleDef is the tagged YAML shape of one validation rule.
type RuleDef struct {
	Kind          string   `yaml:"kind"`
	Message       string   `yaml:"message"`
	Min           *float64 `yaml:"min"`
	Max           *float64 `yaml:"max"`
	Pattern       string   `yaml:"pattern"`
	Other         string   `yaml:"other"`
	Order         string   `yaml:"order"`
	Discriminator string   `yaml:"discriminator"`
	Match         any      `yaml:"match"`
	Rule          *RuleDef `yaml:"rule"`
}

// DerivedDef declares an expression-computed field. Expressions see the
// current values by field name; Round, when set, applies the uniform
// round-half-up money policy to that many decimal places.
type DerivedDef struct {
	Inputs []string `yaml:"inputs"`
	Expr   string   `yaml:"expr"`
	Round  *int32   `yaml:"round"`
}

// Load parses a YAML form definition.
func Load(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("formdef: parse definition: %w", err)
	}
	if strings.TrimSpace(def.Form) == "" {
		return nil, fmt.Errorf("formdef: definition is missing a form name")
	}
	if len(def.Fields) == 0 {
		return nil, fmt.Errorf("formdef: definition %q has no fields", def.Form)
	}
	return &def, nil
}

// Registry builds the field registry described by the definition.
// Registration mistakes (duplicates, unknown references, cycles, malformed
// expressions) surface here and abort form construction.
func (d *Definition) Registry(opts ...field.BuilderOption) (*field.Registry, error) {
	builder := field.NewBuilder(opts...)
	for _, fd := range d.Fields {
		spec, err := fd.spec()
		if err != nil {
			return nil, err
		}
		if err := builder.Register(spec); err != nil {
			return nil, err
		}
	}
	return builder.Build()
}

func (fd FieldDef) spec() (field.Spec, error) {
	spec := field.Spec{
		Name:         fd.Name,
		Type:         fieldType(fd.Type),
		Label:        fd.Label,
		Required:     fd.Required,
		Default:      fd.Default,
		VisibleWhen:  fd.VisibleWhen,
		DependsOn:    fd.DependsOn,
		OptionSource: fd.OptionSource,
		Metadata:     fd.Metadata,
	}

	for _, rd := range fd.Rules {
		built, err := rd.rule()
		if err != nil {
			return field.Spec{}, fmt.Errorf("formdef: field %q: %w", fd.Name, err)
		}
		spec.Rules = append(spec.Rules, built)
	}

	if fd.Derived != nil {
		derived, err := fd.Derived.spec()
		if err != nil {
			return field.Spec{}, fmt.Errorf("formdef: field %q: %w", fd.Name, err)
		}
		spec.Derived = derived
	}
	return spec, nil
}

func (rd RuleDef) rule() (field.Rule, error) {
	switch strings.ToLower(strings.TrimSpace(rd.Kind)) {
	case "required":
		return rule.Required{Message: rd.Message}, nil
	case "minmax":
		return rule.MinMax{Min: rd.Min, Max: rd.Max, Message: rd.Message}, nil
	case "pattern":
		if rd.Pattern == "" {
			return nil, fmt.Errorf("pattern rule needs a pattern")
		}
		compiled, err := compilePattern(rd.Pattern)
		if err != nil {
			return nil, err
		}
		return rule.Pattern{Regexp: compiled, Message: rd.Message}, nil
	case "email":
		return rule.Email{Message: rd.Message}, nil
	case "dateorder":
		if rd.Other == "" {
			return nil, fmt.Errorf("dateorder rule needs an other field")
		}
		return rule.DateOrder{Other: rd.Other, Order: rule.Order(rd.Order), Message: rd.Message}, nil
	case "conditional":
		if rd.Discriminator == "" || rd.Rule == nil {
			return nil, fmt.Errorf("conditional rule needs a discriminator and an inner rule")
		}
		inner, err := rd.Rule.rule()
		if err != nil {
			return nil, err
		}
		return rule.Conditional{Discriminator: rd.Discriminator, Match: rd.Match, Inner: inner}, nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rd.Kind)
	}
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return compiled, nil
}

func (dd DerivedDef) spec() (*field.DerivedSpec, error) {
	if strings.TrimSpace(dd.Expr) == "" {
		return nil, fmt.Errorf("derived field needs an expr")
	}
	program, err := exprlang.Compile(dd.Expr, exprlang.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile derived expr %q: %w", dd.Expr, err)
	}

	round := dd.Round
	return &field.DerivedSpec{
		Inputs: dd.Inputs,
		Compute: func(values map[string]any) any {
			env := make(map[string]any, len(values))
			for name, value := range values {
				env[name] = normalizeNumeric(value)
			}
			out, err := exprlang.Run(program, env)
			if err != nil {
				return nil
			}
			if round != nil {
				return derive.RoundHalfUp(derive.Money(out), *round)
			}
			return out
		},
	}, nil
}

// normalizeNumeric hands expr plain numbers so arithmetic expressions work
// over values that arrive as numeric strings or decimals.
func normalizeNumeric(value any) any {
	if _, isBool := value.(bool); isBool {
		return value
	}
	if n, ok := rule.CoerceNumber(value); ok {
		return n
	}
	return value
}

func fieldType(raw string) field.Type {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "number":
		return field.TypeNumber
	case "date":
		return field.TypeDate
	case "datetime":
		return field.TypeDateTime
	case "select":
		return field.TypeSelect
	case "boolean", "bool":
		return field.TypeBoolean
	case "textarea":
		return field.TypeTextarea
	default:
		return field.TypeText
	}
}
