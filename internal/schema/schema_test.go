package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/hdon2xlsx/internal/extension"
)

const sampleYAML = `
name: sample
xlsx:
  defaults:
    decimals_money: 1
    decimals_vat: 2
    vat_rate: 0.1
  explode:
    exclude_nature: ["1"]
  note:
    scope: ITEM
  columns:
    - header: Số HĐ
      path: $.HDon.DLHDon.TTChung.SHDon
    - header: SL
      path: $.SLuong
      type: number
      round: quantity
    - header: Đơn giá
      path: $.DGia
      type: float
      round: 3
    - header: Thuế suất
      constant: 0.08
      type: float
    - header: Tiền thuế
      compute: vat
    - header: Lạ
      compute: DISCOUNT
    - header: Trống
`

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "sample", s.Name)
	assert.Equal(t, []string{"Số HĐ", "SL", "Đơn giá", "Thuế suất", "Tiền thuế", "Lạ", "Trống"}, Headers(s))
	assert.Equal(t, DefaultSheetName, s.SheetName())
	assert.Equal(t, NoteScopeItem, s.NoteScope())

	e := s.XLSX.Explode
	assert.Equal(t, DefaultBase, e.Base)
	assert.Equal(t, DefaultDocumentExtensions, e.DocumentExtensions)
	assert.Equal(t, DefaultItemExtensions, e.ItemExtensions)
	assert.Equal(t, DefaultNaturePath, e.NaturePath)
	assert.Equal(t, []string{"1"}, e.ExcludeNature)

	d := s.XLSX.Defaults
	assert.Equal(t, 0.1, d.Rate())
	assert.Equal(t, DefaultCurrencyPath, d.CurrencyPath)
	assert.Equal(t, extension.Precision{Money: 1, VAT: 2, Quantity: 2, UnitPrice: 2, ExchangeRate: 2}, d.Precision())

	cols := s.XLSX.Columns
	kinds := make([]Kind, len(cols))
	for i, c := range cols {
		kinds[i] = c.Kind()
	}
	assert.Equal(t, []Kind{KindPath, KindPath, KindPath, KindConstant, KindVAT, KindUnknown, KindUnknown}, kinds)

	require.NotNil(t, cols[3].Constant)
	assert.Equal(t, "0.08", *cols[3].Constant)
	assert.True(t, cols[1].Numeric())
	assert.False(t, cols[0].Numeric())

	p := d.Precision()
	assert.Equal(t, 1, cols[0].Digits(p), "no round means money")
	assert.Equal(t, 2, cols[1].Digits(p))
	assert.Equal(t, 3, cols[2].Digits(p))
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte("name: empty\nxlsx:\n  columns: []\n"))
	assert.ErrorIs(t, err, ErrNoColumns)

	_, err = Parse([]byte("xlsx:\n  columns:\n    - header: A\n      pth: $.X\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestDefaultsWhenOmitted(t *testing.T) {
	s, err := Parse([]byte("xlsx:\n  columns:\n    - header: A\n      path: $.A\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultVATRate, s.XLSX.Defaults.Rate())
	assert.Equal(t, NoteScopeDocument, s.NoteScope())
	assert.Equal(t, extension.Precision{Quantity: 2, UnitPrice: 2, ExchangeRate: 2}, s.XLSX.Defaults.Precision())
}

func TestParseRounding(t *testing.T) {
	cases := []struct {
		in   string
		want Rounding
	}{
		{"money", Rounding{Class: extension.ClassMoney}},
		{"VAT", Rounding{Class: extension.ClassVAT}},
		{"unit-price", Rounding{Class: extension.ClassUnitPrice}},
		{"exchange_rate", Rounding{Class: extension.ClassExchangeRate}},
		{"4", Rounding{Digits: 4, Fixed: true}},
		{"-1", Rounding{Digits: 0, Fixed: true}},
		{"whatever", Rounding{Class: extension.ClassMoney}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseRounding(tc.in), tc.in)
	}
}

func TestComputeKind(t *testing.T) {
	assert.Equal(t, KindVAT, ComputeKind(" vat "))
	assert.Equal(t, KindTotal, ComputeKind("TOTAL"))
	assert.Equal(t, KindNote, ComputeKind("Note"))
	assert.Equal(t, KindUnknown, ComputeKind("SUM"))
	assert.Equal(t, "TOTAL", KindTotal.String())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("xlsx:\n  columns:\n    - header: A\n      path: $.A\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rules", s.Name, "name defaults to the file stem")
	assert.Equal(t, path, s.Source)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTripsRounding(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	out, err := Marshal(s)
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, s.XLSX.Columns, again.XLSX.Columns)
}

func TestBuiltins(t *testing.T) {
	assert.Contains(t, Builtins(), DefaultBuiltin)
	for _, name := range Builtins() {
		s, err := Resolve(BuiltinPrefix + name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, Headers(s), name)
	}

	vat8, err := Builtin(DefaultBuiltin)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, vat8.XLSX.Explode.ExcludeNature)

	_, err = Builtin("nope")
	assert.Error(t, err)
}

func buildTemplate(t *testing.T, rows [][]any, defaults [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	if defaults != nil {
		_, err := f.NewSheet(DefaultsSheet)
		require.NoError(t, err)
		for i, row := range defaults {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(DefaultsSheet, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadTemplate(t *testing.T) {
	buf := buildTemplate(t,
		[][]any{
			{"Header", "Kind", "Path / Value", "Type", "Round"},
			{"Số HĐ", "path", "$.HDon.DLHDon.TTChung.SHDon"},
			{"SL", "", "$.SLuong", "float", "quantity"},
			{},
			{"Thuế suất", "constant", "0.08", "float"},
			{"Tiền thuế", "VAT"},
			{"", "path", "$.Orphan"},
			{"Ghi chú", "note"},
		},
		[][]any{
			{"decimals_money", "2"},
			{"vat_rate", "0.1"},
			{"exclude_nature", "1, 4"},
			{"note_scope", "item"},
		},
	)

	s, err := ReadTemplate(buf, DefaultTemplateColumns())
	require.NoError(t, err)

	assert.Equal(t, []string{"Số HĐ", "SL", "Thuế suất", "Tiền thuế", "Ghi chú"}, Headers(s))
	cols := s.XLSX.Columns
	assert.Equal(t, KindPath, cols[0].Kind())
	assert.Equal(t, KindPath, cols[1].Kind())
	assert.True(t, cols[1].Numeric())
	require.NotNil(t, cols[1].Round)
	assert.Equal(t, extension.ClassQuantity, cols[1].Round.Class)
	assert.Equal(t, KindConstant, cols[2].Kind())
	assert.Equal(t, KindVAT, cols[3].Kind())
	assert.Equal(t, KindNote, cols[4].Kind())

	assert.Equal(t, 2, s.XLSX.Defaults.DecimalsMoney)
	assert.Equal(t, 0.1, s.XLSX.Defaults.Rate())
	assert.Equal(t, []string{"1", "4"}, s.XLSX.Explode.ExcludeNature)
	assert.Equal(t, NoteScopeItem, s.NoteScope())
	assert.Equal(t, DefaultBase, s.XLSX.Explode.Base)
}

func TestReadTemplateErrors(t *testing.T) {
	buf := buildTemplate(t, [][]any{{"Header", "Kind"}}, nil)
	_, err := ReadTemplate(buf, DefaultTemplateColumns())
	assert.ErrorIs(t, err, ErrNoColumns)

	buf = buildTemplate(t,
		[][]any{{"Header"}, {"A", "path", "$.A"}},
		[][]any{{"decimals_money", "two"}},
	)
	_, err = ReadTemplate(buf, DefaultTemplateColumns())
	assert.Error(t, err)
}
