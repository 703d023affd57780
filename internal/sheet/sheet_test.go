package sheet

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/hdon2xlsx/internal/types"
)

func sample() *types.Sheet {
	s := &types.Sheet{Name: "Data", Headers: []string{"Tên hàng", "SL", "Cộng tiền"}}
	s.Append(
		types.Row{"Bút bi", 2.0, 108.0},
		types.Row{"Giấy A4", 1.5, 16.2},
	)
	return s
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Data"}, f.GetSheetList())
	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Tên hàng", "SL", "Cộng tiền"},
		{"Bút bi", "2", "108"},
		{"Giấy A4", "1.5", "16.2"},
	}, rows)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Tên hàng", "SL", "Cộng tiền"},
		{"Bút bi", "2", "108"},
		{"Giấy A4", "1.5", "16.2"},
	}, records)
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Data", "Data"},
		{"", DefaultSheetName},
		{"  ", DefaultSheetName},
		{"a/b:c", "a_b_c"},
		{"[x]*?\\", "_x____"},
		{"'quoted'", "quoted"},
		{"Bảng kê hóa đơn giá trị gia tăng tháng 10", "Bảng kê hóa đơn giá trị gia tăn"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SanitizeSheetName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), 31)
		})
	}
}

func TestWriteZIP(t *testing.T) {
	entries := []Entry{
		{Name: "in/HD_0001.xml", Sheet: sample()},
		{Name: "HD_0001.xml", Sheet: sample()},
		{Name: "HD_0002.xml", Sheet: &types.Sheet{Name: "Data", Headers: []string{"A"}}},
	}
	data, err := ZIPBytes(FormatXLSX, entries)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"HD_0001.xlsx", "HD_0001_2.xlsx", "HD_0002.xlsx"}, names)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Data")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestWriteZIPCSV(t *testing.T) {
	data, err := ZIPBytes(FormatCSV, []Entry{{Name: "a.xml", Sheet: sample()}})
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "a.csv", zr.File[0].Name)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, ParseFormat(" CSV "))
	assert.Equal(t, FormatXLSX, ParseFormat(""))
	assert.Equal(t, FormatXLSX, ParseFormat("xlsx"))
	assert.Equal(t, ".xlsx", FormatXLSX.Extension())
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}

func TestStem(t *testing.T) {
	assert.Equal(t, "HD_0001", Stem("in/HD_0001.xml"))
	assert.Equal(t, "HD_0001", Stem(`C:\in\HD_0001.xml`))
	assert.Equal(t, "noext", Stem("noext"))
	assert.Equal(t, ".hidden", Stem(".hidden"))
}
