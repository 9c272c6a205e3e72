package derive

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money coerces a raw field value into a decimal amount. Missing or
// unparseable values coerce to zero, which keeps compute functions total;
// required-ness is the validation engine's concern.
func Money(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero
		}
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Zero
		}
		return parsed
	default:
		return decimal.Zero
	}
}

// Amount reads values[name] as a decimal amount.
func Amount(values map[string]any, name string) decimal.Decimal {
	return Money(values[name])
}

// Round2 rounds to 2 decimal places using round-half-up, the single rounding
// policy for every money field so group totals stay reconcilable with their
// rows.
func Round2(d decimal.Decimal) decimal.Decimal {
	return RoundHalfUp(d, 2)
}

// RoundHalfUp rounds to the given number of decimal places with ties going
// up (0.005 -> 0.01, -0.005 -> -0.00).
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	half := decimal.New(5, -1)
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// Percent returns rate/100 as a decimal multiplier.
func Percent(rate any) decimal.Decimal {
	return Money(rate).Div(decimal.NewFromInt(100))
}
