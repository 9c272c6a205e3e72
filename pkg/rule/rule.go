package rule

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Rule is a single validation constraint applied to a field value. Validate
// returns an empty string when the value passes and a human-readable message
// when it fails. Rules never mutate their inputs; the full value map is
// provided so cross-field rules can inspect sibling values.
type Rule interface {
	Validate(value any, values map[string]any) string
}

// Func adapts a function into a Rule.
type Func func(value any, values map[string]any) string

// Validate delegates to the underlying function.
func (fn Func) Validate(value any, values map[string]any) string {
	return fn(value, values)
}

// Required fails when the value is missing: nil, an empty or blank string, or
// an empty slice. Zero numbers and false booleans are present values.
type Required struct {
	// Message overrides the default failure message.
	Message string
}

// Validate implements Rule.
func (r Required) Validate(value any, _ map[string]any) string {
	if !IsEmpty(value) {
		return ""
	}
	if r.Message != "" {
		return r.Message
	}
	return "This field is required"
}

// MinMax constrains a numeric value to an inclusive range. A nil bound is
// unconstrained on that side. Empty values pass; emptiness is the concern of
// a paired Required rule, and an empty string is treated as missing rather
// than coerced to zero.
type MinMax struct {
	Min     *float64
	Max     *float64
	Message string
}

// Bound returns a pointer suitable for MinMax.Min / MinMax.Max.
func Bound(v float64) *float64 { return &v }

// Validate implements Rule.
func (r MinMax) Validate(value any, _ map[string]any) string {
	if IsEmpty(value) {
		return ""
	}
	n, ok := CoerceNumber(value)
	if !ok {
		return r.message("Must be a number")
	}
	if r.Min != nil && n < *r.Min {
		return r.message(fmt.Sprintf("Must be at least %v", *r.Min))
	}
	if r.Max != nil && n > *r.Max {
		return r.message(fmt.Sprintf("Must be at most %v", *r.Max))
	}
	return ""
}

func (r MinMax) message(fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

// Pattern matches string values against a compiled regular expression. Empty
// values pass.
type Pattern struct {
	Regexp  *regexp.Regexp
	Message string
}

// MustPattern compiles expr and returns a Pattern rule. It panics on an
// invalid expression; pattern literals are programmer input, not user input.
func MustPattern(expr string) Pattern {
	return Pattern{Regexp: regexp.MustCompile(expr)}
}

// Validate implements Rule.
func (r Pattern) Validate(value any, _ map[string]any) string {
	if IsEmpty(value) || r.Regexp == nil {
		return ""
	}
	if r.Regexp.MatchString(CoerceString(value)) {
		return ""
	}
	if r.Message != "" {
		return r.Message
	}
	return "Invalid format"
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email checks a value against a pragmatic email shape. Empty values pass.
type Email struct {
	Message string
}

// Validate implements Rule.
func (r Email) Validate(value any, _ map[string]any) string {
	if IsEmpty(value) {
		return ""
	}
	if emailPattern.MatchString(strings.TrimSpace(CoerceString(value))) {
		return ""
	}
	if r.Message != "" {
		return r.Message
	}
	return "Invalid email address"
}

// Order selects the direction a DateOrder rule enforces.
type Order string

const (
	// After requires the ruled field to be strictly after the other field.
	After Order = "after"
	// Before requires the ruled field to be strictly before the other field.
	Before Order = "before"
)

// DateOrder enforces ordering between the ruled field and another date field.
// The rule passes when either side is empty or unparseable; emptiness is
// reported by the paired Required rule, never by DateOrder.
type DateOrder struct {
	Other   string
	Order   Order
	Message string
}

// Validate implements Rule.
func (r DateOrder) Validate(value any, values map[string]any) string {
	own, ok := CoerceDate(value)
	if !ok {
		return ""
	}
	other, ok := CoerceDate(values[r.Other])
	if !ok {
		return ""
	}

	switch r.Order {
	case Before:
		if own.Before(other) {
			return ""
		}
	default:
		if own.After(other) {
			return ""
		}
	}
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("Must be %s %s", string(r.orderOrDefault()), r.Other)
}

func (r DateOrder) orderOrDefault() Order {
	if r.Order == Before {
		return Before
	}
	return After
}

// Conditional evaluates the inner rule only while the discriminator field
// holds the expected value; otherwise it passes trivially. This is the
// "daily/monthly/quarterly" branching pattern where only the active branch's
// fields carry constraints.
type Conditional struct {
	Discriminator string
	Match         any
	Inner         Rule
}

// Validate implements Rule.
func (r Conditional) Validate(value any, values map[string]any) string {
	if r.Inner == nil {
		return ""
	}
	if !looseEqual(values[r.Discriminator], r.Match) {
		return ""
	}
	return r.Inner.Validate(value, values)
}

// First evaluates rules in declaration order and returns the first failure
// message, or an empty string when every rule passes.
func First(value any, values map[string]any, rules []Rule) string {
	for _, r := range rules {
		if r == nil {
			continue
		}
		if msg := r.Validate(value, values); msg != "" {
			return msg
		}
	}
	return ""
}

func looseEqual(got, want any) bool {
	if got == nil || want == nil {
		return got == want
	}
	if got == want {
		return true
	}
	if gn, ok := CoerceNumber(got); ok {
		if wn, ok := CoerceNumber(want); ok {
			return gn == wn
		}
	}
	return CoerceString(got) == CoerceString(want)
}

// dateLayouts lists the accepted wire shapes for date values, most specific
// first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CoerceDate parses a value into a time.Time. It accepts time.Time directly
// and the ISO-8601 layouts the backend speaks. The second return reports
// whether a usable date was present.
func CoerceDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
