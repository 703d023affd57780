package document

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDigits caps rounding precision. Nothing on an invoice needs more and
// decimal.Round gets slow for large exponents.
const MaxDigits = 12

// First returns the scalar value of the first match, or "" when there is none.
func First(matches []*Node) string {
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Value()
}

// FirstOf evaluates expr against n and returns the first scalar value.
func FirstOf(n *Node, expr string) string {
	return First(Find(n, expr))
}

// ToNumber converts invoice text to a float. Thousands separators (commas)
// and surrounding whitespace are stripped. Anything that still fails to
// parse, including NaN and infinities, becomes 0.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return parseNumber(x)
	case *Node:
		return parseNumber(x.Value())
	default:
		return 0
	}
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// RoundTo rounds v to digits decimal places, half away from zero on the
// shortest decimal representation of v. digits is clamped to [0, MaxDigits].
func RoundTo(v float64, digits int) float64 {
	digits = ClampDigits(digits)
	f, _ := decimal.NewFromFloat(finite(v)).Round(int32(digits)).Float64()
	return f
}

// ClampDigits bounds a digit count to [0, MaxDigits].
func ClampDigits(digits int) int {
	if digits < 0 {
		return 0
	}
	if digits > MaxDigits {
		return MaxDigits
	}
	return digits
}
