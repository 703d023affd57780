// =============================================================================
// hdon2xlsx - XLSX Schema Templates
// =============================================================================
//
// Business users maintain column layouts in a spreadsheet rather than YAML.
// The first sheet lists one output column per row:
//
//   | Column A  | Column B | Column C                     | Column D | Column E |
//   |-----------|----------|------------------------------|----------|----------|
//   | Header    | Kind     | Path / Value                 | Type     | Round    |
//   | Số HĐ     | path     | $.HDon.DLHDon.TTChung.SHDon  | string   |          |
//   | Đơn giá   | path     | $.DGia                       | float    | unit_price|
//   | Thuế suất | constant | 0.08                         |          |          |
//   | Tiền thuế | VAT      |                              |          |          |
//
// An optional sheet named "defaults" holds key/value rows: decimals_money,
// decimals_vat, decimals_quantity, decimals_unit_price,
// decimals_exchange_rate, decimals_money_foreign, decimals_vat_foreign,
// vat_rate, currency_path, sheet, base, document_extensions, item_extensions, nature_path,
// include_nature, exclude_nature (comma separated), filter, note_scope.
//
// =============================================================================

package schema

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultsSheet is the optional sheet holding schema-wide settings.
const DefaultsSheet = "defaults"

// TemplateColumns defines which template columns hold which data.
// Column indices are 0-based (A=0, B=1, ...).
type TemplateColumns struct {
	HeaderColumn int
	KindColumn   int
	SourceColumn int
	TypeColumn   int
	RoundColumn  int

	// DataStartRow is the first row holding a column definition (0-based).
	DataStartRow int
}

// DefaultTemplateColumns returns the A..E layout with one header row.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		HeaderColumn: 0, // Column A
		KindColumn:   1, // Column B
		SourceColumn: 2, // Column C
		TypeColumn:   3, // Column D
		RoundColumn:  4, // Column E
		DataStartRow: 1, // Row 2
	}
}

// LoadTemplate reads an XLSX template file with the default layout.
func LoadTemplate(path string) (*Schema, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()
	return fromWorkbook(f, DefaultTemplateColumns())
}

// ReadTemplate reads an XLSX template from r.
func ReadTemplate(r io.Reader, columns TemplateColumns) (*Schema, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()
	return fromWorkbook(f, columns)
}

func fromWorkbook(f *excelize.File, columns TemplateColumns) (*Schema, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	s := &Schema{Name: sheetName}
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		col, ok := parseRow(row, columns)
		if !ok {
			continue
		}
		s.XLSX.Columns = append(s.XLSX.Columns, col)
	}
	if len(s.XLSX.Columns) == 0 {
		return nil, ErrNoColumns
	}

	if idx, _ := f.GetSheetIndex(DefaultsSheet); idx >= 0 {
		kv, err := f.GetRows(DefaultsSheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read defaults sheet: %w", err)
		}
		if err := applyTemplateDefaults(s, kv); err != nil {
			return nil, err
		}
	}

	applyDefaults(s)
	return s, nil
}

// parseRow extracts one column definition. Rows without a header are
// skipped.
func parseRow(row []string, columns TemplateColumns) (Column, bool) {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	col := Column{
		Header: getCell(columns.HeaderColumn),
		Type:   NormalizeType(getCell(columns.TypeColumn)),
	}
	if col.Header == "" {
		return col, false
	}
	if col.Type == TypeString && getCell(columns.TypeColumn) == "" {
		col.Type = ""
	}
	if r := getCell(columns.RoundColumn); r != "" {
		round := ParseRounding(r)
		col.Round = &round
	}

	source := getCell(columns.SourceColumn)
	switch kind := strings.ToLower(getCell(columns.KindColumn)); kind {
	case "constant", "const", "value":
		col.Constant = &source
	case "path", "":
		col.Path = source
	default:
		col.Compute = strings.ToUpper(kind)
	}
	return col, true
}

// applyTemplateDefaults reads the key/value rows of the defaults sheet.
func applyTemplateDefaults(s *Schema, rows [][]string) error {
	d := &s.XLSX.Defaults
	e := &s.XLSX.Explode
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		val := strings.TrimSpace(row[1])
		if key == "" || val == "" {
			continue
		}

		var err error
		switch key {
		case "decimals_money":
			d.DecimalsMoney, err = strconv.Atoi(val)
		case "decimals_vat":
			d.DecimalsVAT, err = strconv.Atoi(val)
		case "decimals_quantity":
			d.DecimalsQuantity, err = intPtr(val)
		case "decimals_unit_price":
			d.DecimalsUnitPrice, err = intPtr(val)
		case "decimals_exchange_rate":
			d.DecimalsExchangeRate, err = intPtr(val)
		case "decimals_money_foreign":
			d.DecimalsMoneyForeign, err = intPtr(val)
		case "decimals_vat_foreign":
			d.DecimalsVATForeign, err = intPtr(val)
		case "vat_rate":
			var rate float64
			rate, err = strconv.ParseFloat(val, 64)
			d.VATRate = &rate
		case "currency_path":
			d.CurrencyPath = val
		case "sheet":
			s.XLSX.Name = val
		case "name":
			s.Name = val
		case "base":
			e.Base = val
		case "document_extensions":
			e.DocumentExtensions = val
		case "item_extensions":
			e.ItemExtensions = val
		case "nature_path":
			e.NaturePath = val
		case "include_nature":
			e.IncludeNature = splitList(val)
		case "exclude_nature":
			e.ExcludeNature = splitList(val)
		case "filter":
			e.Filter = val
		case "note_scope":
			s.XLSX.Note.Scope = val
		}
		if err != nil {
			return fmt.Errorf("defaults row %d (%s): %w", i+1, key, err)
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func intPtr(v string) (*int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
