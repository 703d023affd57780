package extension

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
)

// Class names a precision bucket. Schemas refer to these by name.
type Class string

const (
	ClassMoney        Class = "money"
	ClassVAT          Class = "vat"
	ClassQuantity     Class = "quantity"
	ClassUnitPrice    Class = "unit_price"
	ClassExchangeRate Class = "exchange_rate"
)

// Precision is the set of decimal digit counts in effect for one item.
type Precision struct {
	Money        int
	VAT          int
	Quantity     int
	UnitPrice    int
	ExchangeRate int
}

// Digits returns the digit count for a class. Unknown classes fall back to
// money.
func (p Precision) Digits(c Class) int {
	switch c {
	case ClassVAT:
		return p.VAT
	case ClassQuantity:
		return p.Quantity
	case ClassUnitPrice:
		return p.UnitPrice
	case ClassExchangeRate:
		return p.ExchangeRate
	default:
		return p.Money
	}
}

var (
	digitsKey   = regexp.MustCompile(`(?i)(decimal\s*digits|digits|precision)`)
	firstNumber = regexp.MustCompile(`\d+`)
)

// exact maps the documented field names to their class.
var exact = map[string]Class{
	FieldAmountDigits:           ClassMoney,
	FieldVATDigits:              ClassVAT,
	FieldQuantityDigits:         ClassQuantity,
	FieldUnitPriceDigits:        ClassUnitPrice,
	FieldExchangeRateDigits:     ClassExchangeRate,
	"ExchangeRateDecimalDigits": ClassExchangeRate,
}

// ClassifyKey reports which precision class an extension field name feeds,
// if any. Documented names match exactly; other vendors' names are matched
// by the digits/precision pattern and classified by substring.
func ClassifyKey(name string) (Class, bool) {
	if c, ok := exact[name]; ok {
		return c, true
	}
	if !digitsKey.MatchString(name) {
		return "", false
	}
	k := strings.ToLower(name)
	switch {
	case strings.Contains(k, "vat"), strings.Contains(k, "tax"):
		return ClassVAT, true
	case strings.Contains(k, "quantity"), strings.Contains(k, "qty"):
		return ClassQuantity, true
	case strings.Contains(k, "exchang"), strings.Contains(k, "rate"):
		return ClassExchangeRate, true
	case strings.Contains(k, "price"):
		return ClassUnitPrice, true
	default:
		return ClassMoney, true
	}
}

// ParseDigits extracts the first run of digits anywhere in v, so noisy
// values like "2 digits" work.
func ParseDigits(v string) (int, bool) {
	m := firstNumber.FindString(v)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return document.ClampDigits(n), true
}

// Override returns p with every digit-count field found in f applied.
// Values that carry no number leave the existing count in place. Fields are
// applied in sorted key order so the result does not depend on map order.
func (p Precision) Override(f Fields) Precision {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c, ok := ClassifyKey(k)
		if !ok {
			continue
		}
		d, ok := ParseDigits(f[k])
		if !ok {
			continue
		}
		switch c {
		case ClassMoney:
			p.Money = d
		case ClassVAT:
			p.VAT = d
		case ClassQuantity:
			p.Quantity = d
		case ClassUnitPrice:
			p.UnitPrice = d
		case ClassExchangeRate:
			p.ExchangeRate = d
		}
	}
	return p
}
