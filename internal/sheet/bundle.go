package sheet

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/ginjaninja78/hdon2xlsx/internal/types"
)

// Entry is one document's sheet inside a bundle.
type Entry struct {
	// Name is the entry file name without extension, usually the input
	// file's stem.
	Name  string
	Sheet *types.Sheet
}

// WriteZIP writes one encoded sheet per entry into a deflated archive.
// Repeated names get a numeric suffix so no entry is overwritten.
func WriteZIP(w io.Writer, f Format, entries []Entry) error {
	zw := zip.NewWriter(w)
	seen := map[string]int{}
	for _, e := range entries {
		data, err := Encode(f, e.Sheet)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", e.Name, err)
		}
		name := uniqueName(entryName(e.Name), seen) + f.Extension()
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// ZIPBytes is WriteZIP into memory.
func ZIPBytes(f Format, entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteZIP(&buf, f, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Stem strips directories and the final extension from a file name:
// "in/HD_0001.xml" -> "HD_0001".
func Stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

func entryName(name string) string {
	s := Stem(name)
	if s == "" || s == "." || s == "/" {
		return "document"
	}
	return s
}

func uniqueName(name string, seen map[string]int) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	return name + "_" + strconv.Itoa(n+1)
}
