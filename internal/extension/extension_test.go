package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
)

func pair(name, value string) *document.Node {
	return document.NewNode(PairElement, "",
		document.Leaf(NameElement, name),
		document.Leaf("KDLieu", "string"),
		document.Leaf(ValueElement, value),
	)
}

func item(ext ...*document.Node) *document.Node {
	n := document.NewNode("HHDVu", "", document.Leaf("SLuong", "2"))
	if ext != nil {
		n.Children = append(n.Children, document.NewNode("TTKhac", "", ext...))
	}
	return n
}

func TestResolveShapes(t *testing.T) {
	absent := ResolvePath(item(), "$.TTKhac.TTin")
	single := ResolvePath(item(pair(FieldUnitPriceAfterTax, "54")), "$.TTKhac.TTin")
	many := ResolvePath(item(
		pair(FieldMainUnitName, "Cái"),
		pair(FieldUnitPriceAfterTax, "54"),
		pair("VendorNote", "x"),
	), "$.TTKhac.TTin")

	assert.Empty(t, absent)
	assert.Equal(t, "54", single[FieldUnitPriceAfterTax])
	assert.Equal(t, "54", many[FieldUnitPriceAfterTax])
	assert.Equal(t, single.Number(FieldUnitPriceAfterTax), many.Number(FieldUnitPriceAfterTax))
	assert.Equal(t, "x", many["VendorNote"], "unknown names are kept")

	_, ok := absent.Get(FieldUnitPriceAfterTax)
	assert.False(t, ok)
}

func TestResolveSkipsMalformedPairs(t *testing.T) {
	f := Resolve([]*document.Node{
		nil,
		document.NewNode(PairElement, "", document.Leaf(ValueElement, "orphan")),
		pair("  ", "blank name"),
		pair("Amount", "1"),
		pair("Amount", "2"),
	})
	assert.Equal(t, Fields{"Amount": "2"}, f)
}

func TestResolveContainer(t *testing.T) {
	assert.Empty(t, ResolveContainer(nil))
	c := document.NewNode("TTKhac", "", pair("A", "1"), pair("B", "2"))
	assert.Equal(t, Fields{"A": "1", "B": "2"}, ResolveContainer(c))
}

func TestClassifyKey(t *testing.T) {
	cases := []struct {
		key  string
		want Class
		ok   bool
	}{
		{FieldAmountDigits, ClassMoney, true},
		{FieldVATDigits, ClassVAT, true},
		{FieldQuantityDigits, ClassQuantity, true},
		{FieldUnitPriceDigits, ClassUnitPrice, true},
		{FieldExchangeRateDigits, ClassExchangeRate, true},
		{"VAT decimal digits", ClassVAT, true},
		{"MoneyPrecision", ClassMoney, true},
		{FieldUnitPriceAfterTax, "", false},
	}
	for _, tc := range cases {
		got, ok := ClassifyKey(tc.key)
		assert.Equal(t, tc.ok, ok, tc.key)
		assert.Equal(t, tc.want, got, tc.key)
	}
}

func TestParseDigits(t *testing.T) {
	d, ok := ParseDigits("2 digits")
	assert.True(t, ok)
	assert.Equal(t, 2, d)

	_, ok = ParseDigits("two")
	assert.False(t, ok)

	d, _ = ParseDigits("99")
	assert.Equal(t, document.MaxDigits, d)
}

func TestPrecisionLayering(t *testing.T) {
	defaults := Precision{Money: 0, VAT: 0, Quantity: 2, UnitPrice: 2, ExchangeRate: 2}

	doc := defaults.Override(Fields{FieldAmountDigits: "2", FieldQuantityDigits: "n/a"})
	assert.Equal(t, Precision{Money: 2, VAT: 0, Quantity: 2, UnitPrice: 2, ExchangeRate: 2}, doc)

	line := doc.Override(Fields{FieldAmountDigits: "3 digits", "VAT precision": "1"})
	assert.Equal(t, 3, line.Money)
	assert.Equal(t, 1, line.VAT)
	assert.Equal(t, 2, line.Digits(ClassQuantity))
	assert.Equal(t, 3, line.Digits("bogus"))
}
