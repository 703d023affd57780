// =============================================================================
// hdon2xlsx - Sheet Writer Module
// =============================================================================
//
// This module serializes flattened rows. Three shapes are produced:
//
//   XLSX   one worksheet: a bold header row, then one row per line item.
//          Float cells stay numeric so totals can be summed in Excel.
//   CSV    UTF-8 with a byte-order mark so Excel shows Vietnamese text.
//   ZIP    one XLSX or CSV entry per document (see bundle.go).
//
// =============================================================================

package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/hdon2xlsx/internal/types"
)

// Format selects the encoding of a sheet.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a config value to a Format, defaulting to XLSX.
func ParseFormat(v string) Format {
	if strings.EqualFold(strings.TrimSpace(v), string(FormatCSV)) {
		return FormatCSV
	}
	return FormatXLSX
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

const (
	// DefaultSheetName is used when a sheet has no usable name.
	DefaultSheetName = "Data"

	maxSheetNameLen = 31
	columnWidth     = 18
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encode serializes s in the given format.
func Encode(f Format, s *types.Sheet) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if f == FormatCSV {
		err = WriteCSV(&buf, s)
	} else {
		err = WriteXLSX(&buf, s)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// XLSX
// =============================================================================

// WriteXLSX writes s as a single-sheet workbook.
//
// PARAMETERS:
//   - w: Destination of the workbook bytes.
//   - s: The sheet; a nil or empty sheet still yields a valid workbook.
//
// RETURNS:
//   - An error if the workbook cannot be built or written.
func WriteXLSX(w io.Writer, s *types.Sheet) error {
	if s == nil {
		s = &types.Sheet{}
	}
	f := excelize.NewFile()
	defer f.Close()

	name := SanitizeSheetName(s.Name)
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	if n := len(s.Headers); n > 0 {
		if err := sw.SetColWidth(1, n, columnWidth); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rowNum := 1
	if len(s.Headers) > 0 {
		header := make([]any, len(s.Headers))
		for i, h := range s.Headers {
			header[i] = excelize.Cell{StyleID: bold, Value: h}
		}
		if err := setRow(sw, rowNum, header); err != nil {
			return err
		}
		rowNum++
	}

	for _, row := range s.Rows {
		if err := setRow(sw, rowNum, []any(row)); err != nil {
			return err
		}
		rowNum++
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(sw *excelize.StreamWriter, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := sw.SetRow(cell, values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// SanitizeSheetName makes name acceptable to Excel: no []:*?/\ characters,
// at most 31 characters, never empty.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	if name == "" {
		return DefaultSheetName
	}
	return name
}

// =============================================================================
// CSV
// =============================================================================

// WriteCSV writes s as comma-separated values with a UTF-8 byte-order mark.
func WriteCSV(w io.Writer, s *types.Sheet) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	cw := csv.NewWriter(w)
	if s != nil {
		if len(s.Headers) > 0 {
			if err := cw.Write(s.Headers); err != nil {
				return fmt.Errorf("failed to write CSV header: %w", err)
			}
		}
		for i, row := range s.Rows {
			if err := cw.Write(row.Strings()); err != nil {
				return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
