// =============================================================================
// hdon2xlsx - Output Schema
// =============================================================================
//
// A schema declares the spreadsheet produced for each invoice: the ordered
// columns, how each cell is computed, rounding defaults, and which elements
// of the document are exploded into rows.
//
// SCHEMA SOURCES:
//   1. YAML files (schemas/*.yaml), the primary format
//   2. XLSX templates, one column definition per row (see template.go)
//   3. Built-in rule sets compiled into the binary (see builtin.go)
//
// COLUMN KINDS:
//   | Declared as        | Kind         | Cell value                           |
//   |--------------------|--------------|--------------------------------------|
//   | constant: "..."    | KindConstant | the literal, as float if numeric     |
//   | compute: VAT       | KindVAT      | pre-tax amount × VAT rate            |
//   | compute: TOTAL     | KindTotal    | tax-inclusive line total             |
//   | compute: NOTE      | KindNote     | amendment / replacement / new label  |
//   | path: $.X          | KindPath     | first match, numeric when typed      |
//   | extension: Name    | KindPath     | extension field, item then document  |
//   | anything else      | KindUnknown  | empty                                |
//
// =============================================================================

package schema

import (
	"errors"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/hdon2xlsx/internal/extension"
)

// ErrNoColumns is returned when a schema declares no columns.
var ErrNoColumns = errors.New("schema declares no columns")

// Defaults used when a schema leaves a setting out.
const (
	DefaultSheetName          = "Data"
	DefaultBase               = "$.HDon.DLHDon.NDHDon.DSHHDVu.HHDVu[*]"
	DefaultDocumentExtensions = "$.HDon.TTKhac.TTin"
	DefaultItemExtensions     = "$.TTKhac.TTin"
	DefaultNaturePath         = "$.TChat"
	DefaultCurrencyPath       = "$.HDon.DLHDon.TTChung.DVTTe"
	DefaultVATRate            = 0.08
	DefaultQuantityDigits     = 2
	DefaultUnitPriceDigits    = 2
	DefaultExchangeRateDigits = 2

	// HomeCurrency is the currency code the money default applies to.
	HomeCurrency = "VND"
)

// Note scopes.
const (
	NoteScopeDocument = "document"
	NoteScopeItem     = "item"
)

// =============================================================================
// COLUMN KINDS
// =============================================================================

// Kind is the computation strategy of a column.
type Kind int

const (
	KindUnknown Kind = iota
	KindConstant
	KindPath
	KindVAT
	KindTotal
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindPath:
		return "path"
	case KindVAT:
		return "VAT"
	case KindTotal:
		return "TOTAL"
	case KindNote:
		return "NOTE"
	default:
		return "unknown"
	}
}

// ComputeKind maps a compute tag to its kind. Tags are case-insensitive;
// anything outside the vocabulary is KindUnknown.
func ComputeKind(tag string) Kind {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "VAT":
		return KindVAT
	case "TOTAL":
		return KindTotal
	case "NOTE":
		return KindNote
	default:
		return KindUnknown
	}
}

// =============================================================================
// SCHEMA STRUCTURE
// =============================================================================

// Schema is a complete output declaration.
type Schema struct {
	// Name identifies the rule set in logs and history records.
	Name string `yaml:"name"`

	// Description is free text for humans.
	Description string `yaml:"description,omitempty"`

	// XLSX holds the sheet declaration. The key name is kept from the first
	// generation of schema files.
	XLSX Sheet `yaml:"xlsx"`

	// Source is the file the schema was loaded from, if any.
	Source string `yaml:"-"`
}

// Sheet declares one output sheet.
type Sheet struct {
	Name     string   `yaml:"sheet,omitempty"`
	Defaults Defaults `yaml:"defaults"`
	Explode  Explode  `yaml:"explode"`
	Note     Note     `yaml:"note"`
	Columns  []Column `yaml:"columns"`
}

// Defaults carries schema-wide rounding and rate settings. The foreign
// digit counts apply when the invoice currency is not VND;
// DecimalsVATForeign falls back to DecimalsMoneyForeign.
type Defaults struct {
	DecimalsMoney        int      `yaml:"decimals_money"`
	DecimalsVAT          int      `yaml:"decimals_vat"`
	DecimalsQuantity     *int     `yaml:"decimals_quantity,omitempty"`
	DecimalsUnitPrice    *int     `yaml:"decimals_unit_price,omitempty"`
	DecimalsExchangeRate *int     `yaml:"decimals_exchange_rate,omitempty"`
	DecimalsMoneyForeign *int     `yaml:"decimals_money_foreign,omitempty"`
	DecimalsVATForeign   *int     `yaml:"decimals_vat_foreign,omitempty"`
	VATRate              *float64 `yaml:"vat_rate,omitempty"`
	CurrencyPath         string   `yaml:"currency_path,omitempty"`
}

// Precision returns the schema-wide digit counts.
func (d Defaults) Precision() extension.Precision {
	return extension.Precision{
		Money:        d.DecimalsMoney,
		VAT:          d.DecimalsVAT,
		Quantity:     intOr(d.DecimalsQuantity, DefaultQuantityDigits),
		UnitPrice:    intOr(d.DecimalsUnitPrice, DefaultUnitPriceDigits),
		ExchangeRate: intOr(d.DecimalsExchangeRate, DefaultExchangeRateDigits),
	}
}

// Rate returns the VAT rate applied by VAT and TOTAL columns.
func (d Defaults) Rate() float64 {
	if d.VATRate == nil {
		return DefaultVATRate
	}
	return *d.VATRate
}

// Explode selects the elements that become rows.
type Explode struct {
	// Base selects the line items, evaluated against the document.
	Base string `yaml:"base"`

	// DocumentExtensions and ItemExtensions select extension pairs at
	// document and item level.
	DocumentExtensions string `yaml:"document_extensions,omitempty"`
	ItemExtensions     string `yaml:"item_extensions,omitempty"`

	// NaturePath selects the classification flag on an item.
	NaturePath string `yaml:"nature_path,omitempty"`

	// IncludeNature keeps only items whose flag is listed.
	IncludeNature []string `yaml:"include_nature,omitempty"`

	// ExcludeNature drops items whose flag is listed.
	ExcludeNature []string `yaml:"exclude_nature,omitempty"`

	// Filter is an optional boolean expression over the item's fields,
	// for example `TChat != "1" && num(ThTien) > 0`.
	Filter string `yaml:"filter,omitempty"`
}

// Note configures annotation detection.
type Note struct {
	// Scope is NoteScopeDocument or NoteScopeItem.
	Scope string `yaml:"scope,omitempty"`
}

// =============================================================================
// COLUMN DEFINITION
// =============================================================================

// Column is one declared output column.
type Column struct {
	Header   string  `yaml:"header"`
	Path     string  `yaml:"path,omitempty"`
	Constant *string `yaml:"constant,omitempty"`

	// Extension names an extension field read when Path yields nothing,
	// looked up on the item first and then on the document.
	Extension string `yaml:"extension,omitempty"`

	Compute string    `yaml:"compute,omitempty"`
	Type    string    `yaml:"type,omitempty"`
	Round   *Rounding `yaml:"round,omitempty"`
	Actions []Action  `yaml:"actions,omitempty"`
}

// Kind derives the computation strategy from which fields are set.
func (c Column) Kind() Kind {
	switch {
	case c.Constant != nil:
		return KindConstant
	case c.Compute != "":
		return ComputeKind(c.Compute)
	case strings.TrimSpace(c.Path) != "", c.Extension != "":
		return KindPath
	default:
		return KindUnknown
	}
}

// Numeric reports whether the column declares a numeric type.
func (c Column) Numeric() bool {
	return NormalizeType(c.Type) == TypeFloat
}

// Digits resolves the rounding for a numeric path column.
func (c Column) Digits(p extension.Precision) int {
	if c.Round == nil {
		return p.Money
	}
	return c.Round.Resolve(p)
}

// Action is a text post-processing step applied to extracted values.
type Action struct {
	Type        string            `yaml:"type"`
	Value       string            `yaml:"value,omitempty"`
	Find        string            `yaml:"find,omitempty"`
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// Column types.
const (
	TypeString = "string"
	TypeFloat  = "float"
)

// NormalizeType maps type spellings to TypeFloat or TypeString.
func NormalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "float", "double", "number", "numeric", "decimal", "money", "int", "integer":
		return TypeFloat
	default:
		return TypeString
	}
}

// =============================================================================
// ROUNDING
// =============================================================================

// Rounding selects a precision class or a fixed digit count.
type Rounding struct {
	Class  extension.Class
	Digits int
	Fixed  bool
}

// Resolve returns the digit count for p.
func (r Rounding) Resolve(p extension.Precision) int {
	if r.Fixed {
		return r.Digits
	}
	return p.Digits(r.Class)
}

// ParseRounding reads "money", "vat", "quantity", "unit_price",
// "exchange_rate" or an integer. Unrecognized text means money.
func ParseRounding(s string) Rounding {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			n = 0
		}
		return Rounding{Digits: n, Fixed: true}
	}
	switch extension.Class(strings.ReplaceAll(s, "-", "_")) {
	case extension.ClassVAT:
		return Rounding{Class: extension.ClassVAT}
	case extension.ClassQuantity:
		return Rounding{Class: extension.ClassQuantity}
	case extension.ClassUnitPrice, "price":
		return Rounding{Class: extension.ClassUnitPrice}
	case extension.ClassExchangeRate, "rate":
		return Rounding{Class: extension.ClassExchangeRate}
	default:
		return Rounding{Class: extension.ClassMoney}
	}
}

// UnmarshalYAML accepts a class name or an integer.
func (r *Rounding) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	*r = ParseRounding(s)
	return nil
}

// MarshalYAML writes the class name or digit count.
func (r Rounding) MarshalYAML() (any, error) {
	if r.Fixed {
		return r.Digits, nil
	}
	if r.Class == "" {
		return string(extension.ClassMoney), nil
	}
	return string(r.Class), nil
}

// =============================================================================
// SCHEMA HELPERS
// =============================================================================

// Headers returns one header per column, in declared order.
func Headers(s *Schema) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.XLSX.Columns))
	for i, c := range s.XLSX.Columns {
		out[i] = c.Header
	}
	return out
}

// SheetName returns the declared sheet name or the default.
func (s *Schema) SheetName() string {
	if s == nil || strings.TrimSpace(s.XLSX.Name) == "" {
		return DefaultSheetName
	}
	return s.XLSX.Name
}

// NoteScope returns the note scope, defaulting to the whole document.
func (s *Schema) NoteScope() string {
	if s != nil && strings.EqualFold(strings.TrimSpace(s.XLSX.Note.Scope), NoteScopeItem) {
		return NoteScopeItem
	}
	return NoteScopeDocument
}

// applyDefaults fills explode paths left empty.
func applyDefaults(s *Schema) {
	e := &s.XLSX.Explode
	if strings.TrimSpace(e.Base) == "" {
		e.Base = DefaultBase
	}
	if e.DocumentExtensions == "" {
		e.DocumentExtensions = DefaultDocumentExtensions
	}
	if e.ItemExtensions == "" {
		e.ItemExtensions = DefaultItemExtensions
	}
	if e.NaturePath == "" {
		e.NaturePath = DefaultNaturePath
	}
	if s.XLSX.Defaults.CurrencyPath == "" {
		s.XLSX.Defaults.CurrencyPath = DefaultCurrencyPath
	}
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
