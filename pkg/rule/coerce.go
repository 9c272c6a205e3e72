package rule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IsEmpty reports whether a raw field value counts as missing. Blank strings
// are missing rather than zero so numeric rules never see a phantom 0; false
// and 0 are present values.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// CoerceNumber converts a raw field value into a float64 for comparisons.
// The second return is false when the value carries no usable number.
func CoerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// CoerceString renders a raw field value as a string for pattern matching
// and loose comparisons.
func CoerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprint(value)
	}
}

// CoerceBool interprets a raw field value as a boolean flag. Strings parse
// with strconv semantics; unparseable non-blank strings are true.
func CoerceBool(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed
		}
		return strings.TrimSpace(v) != ""
	default:
		n, ok := CoerceNumber(value)
		return ok && n != 0
	}
}
