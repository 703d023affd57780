// =============================================================================
// hdon2xlsx - Extension Fields
// =============================================================================
//
// Invoices carry vendor metadata outside the fixed schema in TTKhac
// containers, at document level and on each line item:
//
//   <TTKhac>
//     <TTin>
//       <TTruong>AmountDecimalDigits</TTruong>   <!-- field name -->
//       <KDLieu>numeric</KDLieu>                  <!-- data kind, ignored -->
//       <DLieu>2</DLieu>                          <!-- raw value -->
//     </TTin>
//     ...
//   </TTKhac>
//
// Resolve turns the TTin pairs into a lookup map. Precision layers the digit
// counts found there over schema defaults.
//
// =============================================================================

package extension

import (
	"strings"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
)

// Well-known field names.
const (
	FieldAmountDigits       = "AmountDecimalDigits"
	FieldVATDigits          = "VATAmountDecimalDigits"
	FieldQuantityDigits     = "QuantityDecimalDigits"
	FieldUnitPriceDigits    = "UnitPriceDecimalDigits"
	FieldExchangeRateDigits = "ExchangRateDecimalDigits"
	FieldUnitPriceAfterTax  = "UnitPriceAfterTax"
	FieldMainUnitName       = "MainUnitName"
)

// Element names of one pair.
const (
	PairElement  = "TTin"
	NameElement  = "TTruong"
	ValueElement = "DLieu"
)

// Fields maps extension field names to their raw string values.
type Fields map[string]string

// Get returns the raw value for name and whether it was present.
func (f Fields) Get(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// Number returns the numeric value of name, 0 when absent or malformed.
func (f Fields) Number(name string) float64 {
	return document.ToNumber(f[name])
}

// Resolve decodes extension pairs. pairs is whatever a path such as
// "$.TTKhac.TTin" matched: nothing, a single pair or many pairs all resolve
// to the same map shape. Pairs without a name are skipped; on a repeated
// name the later pair wins.
func Resolve(pairs []*document.Node) Fields {
	out := Fields{}
	for _, p := range pairs {
		if p == nil {
			continue
		}
		name := strings.TrimSpace(p.Child(NameElement).Value())
		if name == "" {
			continue
		}
		out[name] = p.Child(ValueElement).Value()
	}
	return out
}

// ResolveContainer decodes the TTin pairs directly under a TTKhac node.
// A nil container yields an empty map.
func ResolveContainer(container *document.Node) Fields {
	return Resolve(container.ChildrenNamed(PairElement))
}

// ResolvePath evaluates a pair path against n and decodes the result.
func ResolvePath(n *document.Node, path string) Fields {
	if path == "" {
		return Fields{}
	}
	return Resolve(document.Find(n, path))
}
