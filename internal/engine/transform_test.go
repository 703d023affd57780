package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

func TestTransforms(t *testing.T) {
	cases := []struct {
		name   string
		action schema.Action
		in     string
		want   string
	}{
		{"prepend", schema.Action{Type: "prepend_string", Value: "HD-"}, "3000", "HD-3000"},
		{"append", schema.Action{Type: "append_string", Value: "%"}, "8", "8%"},
		{"trim", schema.Action{Type: "trim"}, "  x  ", "x"},
		{"trim left chars", schema.Action{Type: "trim_left", Value: "0"}, "00030", "30"},
		{"uppercase", schema.Action{Type: "UPPERCASE"}, "vnd", "VND"},
		{"lowercase", schema.Action{Type: "lowercase"}, "VND", "vnd"},
		{"replace", schema.Action{Type: "replace", Find: ",", Value: "."}, "8,5", "8.5"},
		{"replace empty find", schema.Action{Type: "replace"}, "8,5", "8,5"},
		{"regex", schema.Action{Type: "regex_replace", Find: `\s+`, Value: " "}, "a   b", "a b"},
		{"strip percent", schema.Action{Type: "strip_percent"}, "8 %", "8"},
		{"pad zeros", schema.Action{Type: "pad_zeros_to_length", Value: "8"}, "3000", "00003000"},
		{"pad zeros already long", schema.Action{Type: "pad_zeros_to_length", Value: "2"}, "3000", "3000"},
		{"remove leading zeros", schema.Action{Type: "remove_leading_zeros"}, "00003000", "3000"},
		{"remove leading zeros all zero", schema.Action{Type: "remove_leading_zeros"}, "000", "0"},
		{"extract digits", schema.Action{Type: "extract_digits"}, "C25-TLT-07", "2507"},
		{"normalize whitespace", schema.Action{Type: "normalize_whitespace"}, " Bút \t bi ", "Bút bi"},
		{"substring by characters", schema.Action{Type: "substring", Value: "0,3"}, "Hộp giấy", "Hộp"},
		{"substring past end", schema.Action{Type: "substring", Value: "4,99"}, "Hộp giấy", "giấy"},
		{"format date", schema.Action{Type: "format_date", Value: "2006-01-02|02/01/2006"}, "2025-10-29", "29/10/2025"},
		{"format date unparseable", schema.Action{Type: "format_date", Value: "2006-01-02|02/01/2006"}, "hôm qua", "hôm qua"},
		{"lookup hit", schema.Action{Type: "lookup", LookupTable: map[string]string{"1": "Hàng hóa"}}, "1", "Hàng hóa"},
		{"lookup miss", schema.Action{Type: "lookup", LookupTable: map[string]string{"1": "Hàng hóa"}}, "4", "4"},
		{"lookup with default", schema.Action{Type: "lookup_with_default", Value: "Khác", LookupTable: map[string]string{"1": "Hàng hóa"}}, "4", "Khác"},
		{"default on empty", schema.Action{Type: "default", Value: "VND"}, " ", "VND"},
		{"default keeps value", schema.Action{Type: "default", Value: "VND"}, "USD", "USD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := CompileTransform(tc.action)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tr.Apply(tc.in))
		})
	}
}

func TestCompileTransformErrors(t *testing.T) {
	bad := []schema.Action{
		{Type: "explode"},
		{Type: "regex_replace", Find: "("},
		{Type: "pad_zeros_to_length", Value: "eight"},
		{Type: "substring", Value: "3"},
		{Type: "format_date", Value: "2006-01-02"},
	}
	for _, a := range bad {
		_, err := CompileTransform(a)
		assert.Error(t, err, a.Type)
	}
}

func TestBadActionsAreSkipped(t *testing.T) {
	ts := compileTransforms([]schema.Action{
		{Type: "strip_percent"},
		{Type: "regex_replace", Find: "("},
		{Type: "append_string", Value: ".0"},
	})
	require.Len(t, ts, 2)
	assert.Equal(t, "8.0", applyTransforms("8%", ts))
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "00ộ", PadLeft("ộ", 3, '0'))
	assert.Equal(t, "abc", PadLeft("abc", 2, '0'))
}
