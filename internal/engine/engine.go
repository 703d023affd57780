// =============================================================================
// hdon2xlsx - Invoice-to-Rows Engine
// =============================================================================
//
// The engine turns one parsed invoice plus a schema into output rows:
//
//   invoice ──► explode base ──► items (source order)
//                                  │
//                                  ├─ filter (nature codes, expression)
//                                  ├─ precision: schema → currency → document → item
//                                  └─ one cell per column, in declared order
//
// An Engine is immutable after New and safe for concurrent use. Flatten is a
// pure function of its input: it performs no I/O, logs nothing and returns
// no errors. Malformed values degrade to "" or 0.
//
// =============================================================================

package engine

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
	"github.com/ginjaninja78/hdon2xlsx/internal/extension"
	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
	"github.com/ginjaninja78/hdon2xlsx/internal/types"
)

// Options adjust an Engine beyond what the schema declares.
type Options struct {
	// Filter is ANDed with the schema's nature-code lists and expression.
	Filter Predicate

	// NoteScope overrides the schema's note scope when set.
	NoteScope string
}

// Engine flattens invoices for one schema.
type Engine struct {
	schema    *schema.Schema
	base      *document.Path
	columns   []column
	filter    Predicate
	noteScope string
	hasNote   bool

	defaults     extension.Precision
	foreignMoney *int
	foreignVAT   *int
	vatRate      float64
	currencyPath string
	docExtPath   string
	itemExtPath  string
}

// New compiles s. It fails only when s is nil or its filter expression does
// not compile.
func New(s *schema.Schema, opts Options) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("engine needs a schema")
	}
	e := s.XLSX.Explode
	d := s.XLSX.Defaults

	exprFilter, err := CompileFilter(e.Filter)
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		schema:       s,
		filter:       All(NatureCodeFilter(orDefault(e.NaturePath, schema.DefaultNaturePath), e.IncludeNature, e.ExcludeNature), exprFilter, opts.Filter),
		noteScope:    s.NoteScope(),
		defaults:     d.Precision(),
		foreignMoney: d.DecimalsMoneyForeign,
		foreignVAT:   orDefaultDigits(d.DecimalsVATForeign, d.DecimalsMoneyForeign),
		vatRate:      d.Rate(),
		currencyPath: orDefault(d.CurrencyPath, schema.DefaultCurrencyPath),
		docExtPath:   orDefault(e.DocumentExtensions, schema.DefaultDocumentExtensions),
		itemExtPath:  orDefault(e.ItemExtensions, schema.DefaultItemExtensions),
	}
	if strings.EqualFold(opts.NoteScope, schema.NoteScopeItem) {
		eng.noteScope = schema.NoteScopeItem
	} else if strings.EqualFold(opts.NoteScope, schema.NoteScopeDocument) {
		eng.noteScope = schema.NoteScopeDocument
	}

	// An unparseable base selects nothing, so every invoice yields zero rows.
	eng.base, _ = document.Compile(orDefault(e.Base, schema.DefaultBase))

	eng.columns = make([]column, len(s.XLSX.Columns))
	for i, c := range s.XLSX.Columns {
		eng.columns[i] = compileColumn(c)
		if eng.columns[i].kind == schema.KindNote {
			eng.hasNote = true
		}
	}
	return eng, nil
}

// Schema returns the schema the engine was built from.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Headers returns the column headers in row order.
func (e *Engine) Headers() []string { return schema.Headers(e.schema) }

// Flatten produces one row per retained item, in source order. Each row has
// exactly one cell per schema column.
func (e *Engine) Flatten(inv *document.Node) []types.Row {
	items := e.base.Find(inv)
	if len(items) == 0 {
		return nil
	}

	docFields := extension.ResolvePath(inv, e.docExtPath)
	docPrec := e.documentPrecision(inv, docFields)

	var docNote string
	if e.hasNote && e.noteScope == schema.NoteScopeDocument {
		docNote = DetectNote(noteText(inv, nil, e.noteScope, ""))
	}

	rows := make([]types.Row, 0, len(items))
	for _, item := range items {
		if e.filter != nil && !e.filter(item) {
			continue
		}
		itemFields := extension.ResolvePath(item, e.itemExtPath)
		s := Scope{
			Invoice:    inv,
			Item:       item,
			Document:   docFields,
			ItemFields: itemFields,
			Precision:  docPrec.Override(itemFields),
			VATRate:    e.vatRate,
			Note:       docNote,
		}
		if e.hasNote && e.noteScope == schema.NoteScopeItem {
			s.Note = DetectNote(noteText(inv, item, e.noteScope, e.itemExtPath))
		}

		row := make(types.Row, len(e.columns))
		for i, c := range e.columns {
			row[i] = c.compute(s)
		}
		rows = append(rows, row)
	}
	return rows
}

// Note returns the annotation label for inv as a whole. With item scope it
// is the strongest label among the retained items (amended, then
// replaced), so it agrees with the NOTE cells.
func (e *Engine) Note(inv *document.Node) string {
	if e.noteScope != schema.NoteScopeItem {
		return DetectNote(inv.String())
	}
	note := NoteNew
	for _, item := range e.base.Find(inv) {
		if e.filter != nil && !e.filter(item) {
			continue
		}
		switch DetectNote(noteText(inv, item, e.noteScope, e.itemExtPath)) {
		case NoteAmended:
			return NoteAmended
		case NoteReplaced:
			note = NoteReplaced
		}
	}
	return note
}

// documentPrecision layers the currency defaults and document extensions
// over the schema defaults. Foreign-currency VAT follows the foreign money
// digits unless it has its own setting.
func (e *Engine) documentPrecision(inv *document.Node, docFields extension.Fields) extension.Precision {
	p := e.defaults
	if e.foreignMoney != nil || e.foreignVAT != nil {
		cur := strings.TrimSpace(document.FirstOf(inv, e.currencyPath))
		if cur != "" && !strings.EqualFold(cur, schema.HomeCurrency) {
			if e.foreignMoney != nil {
				p.Money = document.ClampDigits(*e.foreignMoney)
			}
			if e.foreignVAT != nil {
				p.VAT = document.ClampDigits(*e.foreignVAT)
			}
		}
	}
	return p.Override(docFields)
}

func orDefaultDigits(v, fallback *int) *int {
	if v != nil {
		return v
	}
	return fallback
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
