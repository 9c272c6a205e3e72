package validate_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/rule"
	"github.com/goliatone/go-formstate/pkg/validate"
)

func reportRegistry(t *testing.T) *field.Registry {
	t.Helper()
	reg, err := field.NewBuilder().MustRegister(
		field.Spec{Name: "reportType", Type: field.TypeSelect, Required: true},
		field.Spec{Name: "date", Type: field.TypeDate, VisibleWhen: `reportType == "daily"`, Rules: []field.Rule{
			rule.Conditional{Discriminator: "reportType", Match: "daily", Inner: rule.Required{Message: "Date is required"}},
		}},
		field.Spec{Name: "month", Type: field.TypeNumber, VisibleWhen: `reportType == "monthly"`, Rules: []field.Rule{
			rule.Conditional{Discriminator: "reportType", Match: "monthly", Inner: rule.Required{Message: "Month is required"}},
			rule.MinMax{Min: rule.Bound(1), Max: rule.Bound(12)},
		}},
		field.Spec{Name: "year", Type: field.TypeNumber, VisibleWhen: `reportType == "monthly" || reportType == "quarterly"`},
		field.Spec{Name: "quarter", Type: field.TypeNumber, VisibleWhen: `reportType == "quarterly"`},
	).Build()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func TestDiscriminatorBranchValidation(t *testing.T) {
	reg := reportRegistry(t)

	// Only the daily branch's date is mandatory; month/year/quarter are
	// hidden and contribute no errors even though they are empty.
	errs, err := validate.Fields(map[string]any{"reportType": "daily"}, reg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	want := map[string]string{"date": "Date is required"}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("error map mismatch (-want +got):\n%s", diff)
	}
}

func TestHiddenFieldNeverInErrorMap(t *testing.T) {
	reg := reportRegistry(t)

	// The month field would fail both Required and MinMax while the
	// monthly branch is active...
	errs, err := validate.Fields(map[string]any{"reportType": "monthly"}, reg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, ok := errs["month"]; !ok {
		t.Fatal("month missing from error map on active branch")
	}

	// ...but drops out entirely once the branch switches, taking any stale
	// error with it.
	errs, err = validate.Fields(map[string]any{"reportType": "daily"}, reg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, ok := errs["month"]; ok {
		t.Fatal("hidden month field appeared in error map")
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	reg := reportRegistry(t)
	values := map[string]any{"reportType": "monthly", "month": 15}

	first, err := validate.Fields(values, reg)
	if err != nil {
		t.Fatalf("first validate: %v", err)
	}
	second, err := validate.Fields(values, reg)
	if err != nil {
		t.Fatalf("second validate: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeat validation diverged (-first +second):\n%s", diff)
	}
}

func TestValidateSingleField(t *testing.T) {
	reg := reportRegistry(t)
	values := map[string]any{"reportType": "monthly", "month": 15}

	msg, err := validate.Field(values, reg, "month")
	if err != nil {
		t.Fatalf("validate field: %v", err)
	}
	if msg == "" {
		t.Fatal("out-of-range month validated clean")
	}

	// Hidden fields validate clean on the single-field path too.
	msg, err = validate.Field(map[string]any{"reportType": "daily"}, reg, "month")
	if err != nil {
		t.Fatalf("validate hidden field: %v", err)
	}
	if msg != "" {
		t.Fatalf("hidden field reported %q", msg)
	}
}
