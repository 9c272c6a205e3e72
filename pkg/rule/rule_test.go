package rule_test

import (
	"testing"

	"github.com/goliatone/go-formstate/pkg/rule"
)

func TestRequired(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"empty string", "", false},
		{"blank string", "   ", false},
		{"zero is present", 0, true},
		{"false is present", false, true},
		{"text", "hello", true},
		{"empty slice", []any{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := rule.Required{}.Validate(tc.value, nil)
			if got := msg == ""; got != tc.want {
				t.Fatalf("Required(%v): pass=%v, want %v (msg %q)", tc.value, got, tc.want, msg)
			}
		})
	}
}

func TestRequiredCustomMessage(t *testing.T) {
	msg := rule.Required{Message: "Date is required"}.Validate("", nil)
	if msg != "Date is required" {
		t.Fatalf("message = %q, want %q", msg, "Date is required")
	}
}

func TestMinMax(t *testing.T) {
	r := rule.MinMax{Min: rule.Bound(1), Max: rule.Bound(12)}

	if msg := r.Validate(6, nil); msg != "" {
		t.Fatalf("in-range value failed: %q", msg)
	}
	if msg := r.Validate(0, nil); msg == "" {
		t.Fatal("below-min value passed")
	}
	if msg := r.Validate(13, nil); msg == "" {
		t.Fatal("above-max value passed")
	}
	if msg := r.Validate("7", nil); msg != "" {
		t.Fatalf("numeric string failed: %q", msg)
	}
	if msg := r.Validate("abc", nil); msg == "" {
		t.Fatal("non-numeric string passed")
	}
}

func TestMinMaxEmptyStringIsMissingNotZero(t *testing.T) {
	// An empty string must not coerce to zero and trip the minimum; the
	// paired Required rule reports emptiness.
	r := rule.MinMax{Min: rule.Bound(1)}
	if msg := r.Validate("", nil); msg != "" {
		t.Fatalf("empty string failed MinMax: %q", msg)
	}
}

func TestPattern(t *testing.T) {
	r := rule.MustPattern(`^\d{4}$`)
	if msg := r.Validate("2025", nil); msg != "" {
		t.Fatalf("matching value failed: %q", msg)
	}
	if msg := r.Validate("20x5", nil); msg == "" {
		t.Fatal("non-matching value passed")
	}
	if msg := r.Validate("", nil); msg != "" {
		t.Fatalf("empty value failed: %q", msg)
	}
}

func TestEmail(t *testing.T) {
	if msg := (rule.Email{}).Validate("treasurer@lgu.gov.ph", nil); msg != "" {
		t.Fatalf("valid email failed: %q", msg)
	}
	if msg := (rule.Email{}).Validate("not-an-email", nil); msg == "" {
		t.Fatal("invalid email passed")
	}
}

func TestDateOrderAfter(t *testing.T) {
	r := rule.DateOrder{Other: "fromDate", Order: rule.After, Message: "To date must be after from date"}
	values := map[string]any{"fromDate": "2025-06-10"}

	if msg := r.Validate("2025-06-01", values); msg != "To date must be after from date" {
		t.Fatalf("violation message = %q", msg)
	}
	if msg := r.Validate("2025-06-11", values); msg != "" {
		t.Fatalf("valid order failed: %q", msg)
	}
}

func TestDateOrderPassesWhenEitherSideEmpty(t *testing.T) {
	r := rule.DateOrder{Other: "fromDate", Order: rule.After}

	if msg := r.Validate("", map[string]any{"fromDate": "2025-06-10"}); msg != "" {
		t.Fatalf("empty own date failed: %q", msg)
	}
	if msg := r.Validate("2025-06-01", map[string]any{}); msg != "" {
		t.Fatalf("empty other date failed: %q", msg)
	}
}

func TestConditional(t *testing.T) {
	r := rule.Conditional{
		Discriminator: "reportType",
		Match:         "daily",
		Inner:         rule.Required{Message: "Date is required"},
	}

	if msg := r.Validate("", map[string]any{"reportType": "monthly"}); msg != "" {
		t.Fatalf("inactive branch failed: %q", msg)
	}
	if msg := r.Validate("", map[string]any{"reportType": "daily"}); msg != "Date is required" {
		t.Fatalf("active branch message = %q", msg)
	}
}

func TestFirstStopsAtFirstFailure(t *testing.T) {
	rules := []rule.Rule{
		rule.Required{Message: "first"},
		rule.MinMax{Min: rule.Bound(1), Message: "second"},
	}
	if msg := rule.First(nil, nil, rules); msg != "first" {
		t.Fatalf("msg = %q, want %q", msg, "first")
	}
	if msg := rule.First(5, nil, rules); msg != "" {
		t.Fatalf("clean value failed: %q", msg)
	}
}
