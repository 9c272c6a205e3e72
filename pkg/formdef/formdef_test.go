package formdef_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/derive"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/formdef"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

const lineItemYAML = `
form: line-item
module: obligation-requests
resource: obligation-requests
rename:
  taxRate: tax_rate
fields:
  - name: price
    type: number
    required: true
    rules:
      - kind: minmax
        min: 0
        message: Price cannot be negative
  - name: quantity
    type: number
    required: true
  - name: vatable
    type: boolean
    default: false
  - name: taxRate
    type: number
    visible_when: vatable
  - name: email
    type: text
    rules:
      - kind: email
  - name: reference
    type: text
    rules:
      - kind: pattern
        pattern: "^OR-[0-9]{4}$"
        message: Reference must look like OR-0000
  - name: subtotal
    type: number
    derived:
      inputs: [price, quantity, vatable, taxRate]
      expr: "vatable ? price * quantity * (1 + taxRate / 100) : price * quantity"
      round: 2
`

func TestLoadAndBuildRegistry(t *testing.T) {
	def, err := formdef.Load([]byte(lineItemYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if def.Form != "line-item" {
		t.Fatalf("form = %q", def.Form)
	}
	if def.Rename["taxRate"] != "tax_rate" {
		t.Fatalf("rename = %v", def.Rename)
	}

	reg, err := def.Registry(field.WithEvaluator(expr.New()))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	spec, err := reg.Get("subtotal")
	if err != nil {
		t.Fatalf("get subtotal: %v", err)
	}
	if !spec.IsDerived() {
		t.Fatal("subtotal not derived")
	}

	engine := derive.New(reg)
	changed, err := engine.Recompute(map[string]any{
		"price":    "80.00",
		"quantity": 3,
		"vatable":  true,
		"taxRate":  "12",
	})
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	got, ok := changed["subtotal"].(decimal.Decimal)
	if !ok {
		t.Fatalf("subtotal = %T %v", changed["subtotal"], changed["subtotal"])
	}
	if got.StringFixed(2) != "268.80" {
		t.Fatalf("subtotal = %s, want 268.80", got.StringFixed(2))
	}
}

func TestRegistryRulesApply(t *testing.T) {
	def, err := formdef.Load([]byte(lineItemYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reg, err := def.Registry(field.WithEvaluator(expr.New()))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	spec, err := reg.Get("price")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	values := map[string]any{"price": "-5"}
	for _, r := range spec.Rules {
		if msg := r.Validate(values["price"], values); msg != "" {
			if msg != "Price cannot be negative" {
				t.Fatalf("message = %q", msg)
			}
			return
		}
	}
	t.Fatal("negative price passed validation")
}

func TestLoadRejectsMissingFormName(t *testing.T) {
	_, err := formdef.Load([]byte("fields:\n  - name: a\n"))
	if err == nil || !strings.Contains(err.Error(), "form name") {
		t.Fatalf("err = %v, want missing form name", err)
	}
}

func TestLoadRejectsEmptyFields(t *testing.T) {
	_, err := formdef.Load([]byte("form: empty\n"))
	if err == nil || !strings.Contains(err.Error(), "no fields") {
		t.Fatalf("err = %v, want no fields", err)
	}
}

func TestUnknownRuleKind(t *testing.T) {
	def, err := formdef.Load([]byte(`
form: bad-rule
fields:
  - name: a
    rules:
      - kind: telepathic
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := def.Registry(); err == nil || !strings.Contains(err.Error(), "unknown rule kind") {
		t.Fatalf("err = %v, want unknown rule kind", err)
	}
}

func TestMalformedDerivedExpr(t *testing.T) {
	def, err := formdef.Load([]byte(`
form: bad-expr
fields:
  - name: a
    type: number
  - name: total
    type: number
    derived:
      inputs: [a]
      expr: "a +"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := def.Registry(); err == nil {
		t.Fatal("expected compile error for malformed derived expr")
	}
}
