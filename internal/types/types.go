// =============================================================================
// hdon2xlsx - Shared Types
// =============================================================================
//
// This package contains the tabular types passed between modules, kept
// separate to avoid import cycles. Types defined here are used by:
//   - engine    (produces rows)
//   - converter (merges rows across documents)
//   - sheet     (serializes rows to XLSX / CSV)
//
// =============================================================================

package types

import "strconv"

// =============================================================================
// ROW TYPES
// =============================================================================

// Row is one output row. Cells are either string or float64, in schema
// column order.
type Row []any

// Strings renders every cell as text, the way a CSV writer needs it.
// Floats use the shortest representation that round-trips.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = CellString(c)
	}
	return out
}

// CellString renders a single cell as text.
func CellString(c any) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// =============================================================================
// SHEET TYPES
// =============================================================================

// Sheet is a named table: one header row followed by data rows.
type Sheet struct {
	// Name is the worksheet name. Default: "Data".
	Name string

	// Headers are the column titles, one per cell of every row.
	Headers []string

	// Rows holds the data rows in output order.
	Rows []Row
}

// Append adds rows to the sheet.
func (s *Sheet) Append(rows ...Row) {
	s.Rows = append(s.Rows, rows...)
}

// Len returns the number of data rows.
func (s *Sheet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}
