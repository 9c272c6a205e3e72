package field

// Type is the simplified enum for form-friendly field kinds.
type Type string

const (
	TypeText     Type = "text"
	TypeNumber   Type = "number"
	TypeDate     Type = "date"
	TypeDateTime Type = "datetime"
	TypeSelect   Type = "select"
	TypeBoolean  Type = "boolean"
	TypeTextarea Type = "textarea"
)

// DerivedSpec describes a field whose value is computed from other fields
// rather than typed by the user. Compute must be pure and deterministic:
// recomputing with unchanged inputs yields the same value, so derivation can
// run on every change without drift.
type DerivedSpec struct {
	Inputs  []string
	Compute func(values map[string]any) any
}

// Spec models a single input inside a form. Specs are immutable once the
// registry is built.
type Spec struct {
	Name        string
	Type        Type
	Required    bool
	Label       string
	Placeholder string
	Default     any

	// Rules are evaluated in declaration order; the first failure wins.
	// A Required spec implicitly carries a leading Required rule.
	Rules []Rule

	// VisibleWhen is a visibility expression evaluated against current
	// values. Empty means always visible. Hidden fields are exempt from
	// validation and derivation.
	VisibleWhen string

	// DependsOn names the parent fields whose change invalidates this
	// field's current selection (the "reset Sub-Department when Department
	// changes" pattern).
	DependsOn []string

	// OptionSource keys the options provider lookup for select fields.
	// Empty defaults to Name.
	OptionSource string

	// Derived marks this field as computed; user edits are rejected.
	Derived *DerivedSpec

	Metadata map[string]string
}

// Rule mirrors rule.Rule without importing it, keeping Spec declarations
// decoupled from the concrete rule set.
type Rule interface {
	Validate(value any, values map[string]any) string
}

// IsDerived reports whether the field is computed rather than user-edited.
func (s Spec) IsDerived() bool { return s.Derived != nil }

// Options returns the option source key for select fields.
func (s Spec) Options() string {
	if s.OptionSource != "" {
		return s.OptionSource
	}
	return s.Name
}
