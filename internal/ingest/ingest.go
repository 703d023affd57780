// =============================================================================
// hdon2xlsx - Input Discovery
// =============================================================================
//
// Invoices reach the converter in three containers:
//
//   .xml   one invoice per file
//   .eml   a mail message; every .xml attachment is one invoice and zip
//          attachments are opened one level deep
//   .zip   an archive; every .xml entry is one invoice
//
// Directories are walked recursively. Other files are skipped.
//
// =============================================================================

package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhillyerd/enmime"
)

// Input is one invoice document waiting to be converted.
type Input struct {
	// Name identifies the document in results and output file names. For
	// attachments it is "<container>/<attachment>".
	Name string

	// Path is the file on disk the document came from, if any.
	Path string

	Data []byte
}

// Supported file extensions.
const (
	ExtXML   = ".xml"
	ExtEmail = ".eml"
	ExtZIP   = ".zip"
)

// ErrUnsupported is returned for a path whose extension is not handled.
var ErrUnsupported = errors.New("unsupported input type")

// Supported reports whether name has an extension FromPaths understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtXML, ExtEmail, ExtZIP:
		return true
	}
	return false
}

// IsXML reports whether name ends in .xml, ignoring case.
func IsXML(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ExtXML)
}

// FromPaths loads every invoice under paths. Directories are walked and
// their unsupported files skipped; a named regular file with an
// unsupported extension is an error. Results are ordered by path.
func FromPaths(paths ...string) ([]Input, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if !Supported(p) {
				return nil, fmt.Errorf("%s: %w", p, ErrUnsupported)
			}
			files = append(files, p)
			continue
		}
		found, err := walk(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	var inputs []Input
	for _, f := range files {
		in, err := FromFile(f)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in...)
	}
	return inputs, nil
}

func walk(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// FromFile loads the invoices in one file.
func FromFile(p string) ([]Input, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	name := filepath.Base(p)

	var inputs []Input
	switch strings.ToLower(filepath.Ext(p)) {
	case ExtXML:
		inputs = []Input{{Name: name, Data: data}}
	case ExtEmail:
		inputs, err = FromEmail(name, bytes.NewReader(data))
	case ExtZIP:
		inputs, err = FromZIP(name, data)
	default:
		return nil, fmt.Errorf("%s: %w", p, ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	for i := range inputs {
		inputs[i].Path = p
	}
	return inputs, nil
}

// FromEmail extracts the XML invoices attached to a MIME message.
func FromEmail(name string, r io.Reader) ([]Input, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", name, err)
	}

	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines))
	parts = append(parts, env.Attachments...)
	parts = append(parts, env.Inlines...)

	var inputs []Input
	for _, att := range parts {
		filename := strings.TrimSpace(att.FileName)
		switch {
		case IsXML(filename):
			inputs = append(inputs, Input{Name: name + "/" + filename, Data: att.Content})
		case strings.EqualFold(path.Ext(filename), ExtZIP):
			inner, err := FromZIP(name+"/"+filename, att.Content)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, inner...)
		}
	}
	return inputs, nil
}

// FromZIP extracts the .xml entries of an archive. Nested archives are not
// opened.
func FromZIP(name string, data []byte) ([]Input, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", name, err)
	}
	var inputs []Input
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !IsXML(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in %s: %w", f.Name, name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s in %s: %w", f.Name, name, err)
		}
		inputs = append(inputs, Input{Name: name + "/" + path.Base(f.Name), Data: content})
	}
	return inputs, nil
}
