package engine

import (
	"strings"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
	"github.com/ginjaninja78/hdon2xlsx/internal/extension"
	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

// Item-level amounts read by the computed columns.
var (
	amountPath   = document.MustCompile("$.ThTien")
	quantityPath = document.MustCompile("$.SLuong")
)

// invoiceMarker in a path forces evaluation against the invoice even when
// the path starts at the item root.
const invoiceMarker = "$.HDon"

// Scope carries everything a cell may read for one item.
type Scope struct {
	Invoice    *document.Node
	Item       *document.Node
	Document   extension.Fields
	ItemFields extension.Fields
	Precision  extension.Precision
	VATRate    float64

	// Note is the annotation label for this item.
	Note string
}

// column is a column definition compiled once per engine.
type column struct {
	def        schema.Column
	kind       schema.Kind
	numeric    bool
	path       *document.Path
	onItem     bool
	constant   string
	transforms []Transform
}

func compileColumn(c schema.Column) column {
	col := column{
		def:        c,
		kind:       c.Kind(),
		numeric:    c.Numeric(),
		transforms: compileTransforms(c.Actions),
	}
	if c.Constant != nil {
		col.constant = *c.Constant
	}
	if p := strings.TrimSpace(c.Path); p != "" {
		// A path that does not compile matches nothing.
		col.path, _ = document.Compile(p)
		col.onItem = strings.HasPrefix(p, "$.") && !strings.Contains(p, invoiceMarker)
	}
	return col
}

// compute produces the cell value: a string or a float64. It never fails.
func (c column) compute(s Scope) any {
	switch c.kind {
	case schema.KindConstant:
		v := applyTransforms(c.constant, c.transforms)
		if c.numeric {
			return document.ToNumber(v)
		}
		return v

	case schema.KindVAT:
		return vatAmount(s)

	case schema.KindTotal:
		return totalAmount(s)

	case schema.KindNote:
		return s.Note

	case schema.KindPath:
		v := c.extract(s)
		if c.numeric {
			return document.RoundTo(document.ToNumber(v), c.def.Digits(s.Precision))
		}
		return v

	default:
		return ""
	}
}

// extract reads the path value, falling back to the named extension field.
func (c column) extract(s Scope) string {
	var v string
	if c.path != nil {
		ctx := s.Invoice
		if c.onItem {
			ctx = s.Item
		}
		v = document.First(c.path.Find(ctx))
	}
	if v == "" && c.def.Extension != "" {
		if ext, ok := s.ItemFields.Get(c.def.Extension); ok && ext != "" {
			v = ext
		} else {
			v, _ = s.Document.Get(c.def.Extension)
		}
	}
	return applyTransforms(v, c.transforms)
}

// vatAmount is the item's pre-tax amount at the fixed rate, rounded to the
// VAT digits. The item's own tax-rate label is not consulted.
func vatAmount(s Scope) float64 {
	amount := document.ToNumber(document.First(amountPath.Find(s.Item)))
	return document.RoundTo(amount*s.VATRate, s.Precision.VAT)
}

// totalAmount is the tax-inclusive line total. A vendor-supplied
// UnitPriceAfterTax wins; otherwise the unit price is implied from the
// pre-tax amount. Zero quantity yields 0.
func totalAmount(s Scope) float64 {
	qty := document.ToNumber(document.First(quantityPath.Find(s.Item)))
	unit := s.ItemFields.Number(extension.FieldUnitPriceAfterTax)
	if unit == 0 {
		if qty == 0 {
			return 0
		}
		amount := document.ToNumber(document.First(amountPath.Find(s.Item)))
		unit = amount / qty * (1 + s.VATRate)
	}
	return document.RoundTo(unit*qty, s.Precision.Money)
}

// ComputeCell computes one cell for a stand-alone column definition. The
// item's extension fields are resolved from its TTKhac container and notes
// are detected over the whole invoice. Flatten uses precompiled columns and
// does not go through here.
func ComputeCell(def schema.Column, inv, item *document.Node, prec extension.Precision, vatRate float64) any {
	s := Scope{
		Invoice:    inv,
		Item:       item,
		Document:   extension.ResolvePath(inv, schema.DefaultDocumentExtensions),
		ItemFields: extension.ResolvePath(item, schema.DefaultItemExtensions),
		Precision:  prec,
		VATRate:    vatRate,
	}
	col := compileColumn(def)
	if col.kind == schema.KindNote {
		s.Note = DetectNote(inv.String())
	}
	return col.compute(s)
}
