package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoice = `<HDon><DLHDon><NDHDon><DSHHDVu><HHDVu><THHDVu>A</THHDVu></HHDVu></DSHHDVu></NDHDon></DLHDon></HDon>`

func buildZIP(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildEmail(t *testing.T) []byte {
	t.Helper()
	part, err := enmime.Builder().
		From("Nhà cung cấp", "hoadon@example.vn").
		To("Kế toán", "ketoan@example.vn").
		Subject("Hóa đơn điện tử").
		Text([]byte("Kính gửi quý khách hóa đơn đính kèm.")).
		AddAttachment([]byte(invoice), "text/xml", "HD_0001.xml").
		AddAttachment([]byte("%PDF-1.4"), "application/pdf", "HD_0001.pdf").
		AddAttachment(buildZIP(t, map[string]string{"HD_0002.xml": invoice}), "application/zip", "bundle.zip").
		Build()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, part.Encode(&buf))
	return buf.Bytes()
}

func TestFromEmail(t *testing.T) {
	inputs, err := FromEmail("mail.eml", bytes.NewReader(buildEmail(t)))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "mail.eml/HD_0001.xml", inputs[0].Name)
	assert.Equal(t, invoice, string(inputs[0].Data))
	assert.Equal(t, "mail.eml/bundle.zip/HD_0002.xml", inputs[1].Name)
}

func TestFromZIP(t *testing.T) {
	data := buildZIP(t, map[string]string{
		"a/HD_1.xml": invoice,
		"readme.txt": "x",
	})
	inputs, err := FromZIP("in.zip", data)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "in.zip/HD_1.xml", inputs[0].Name)

	_, err = FromZIP("bad.zip", []byte("not a zip"))
	assert.Error(t, err)
}

func TestFromPaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "2024")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xml"), []byte(invoice), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.XML"), []byte(invoice), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.eml"), buildEmail(t), 0o644))

	inputs, err := FromPaths(dir)
	require.NoError(t, err)

	var names []string
	for _, in := range inputs {
		names = append(names, in.Name)
		assert.NotEmpty(t, in.Path)
	}
	assert.Equal(t, []string{"a.XML", "b.xml", "mail.eml/HD_0001.xml", "mail.eml/bundle.zip/HD_0002.xml"}, names)
}

func TestFromPathsErrors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))

	_, err := FromPaths(txt)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = FromPaths(filepath.Join(dir, "missing.xml"))
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.xml": true, "a.XML": true, "a.eml": true, "a.zip": true,
		"a.pdf": false, "a": false, "xml": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, Supported(name), name)
	}
}
