package converter

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/ginjaninja78/hdon2xlsx/internal/sheet"
	"github.com/ginjaninja78/hdon2xlsx/internal/types"
)

// Batch is the outcome of ConvertBatch.
type Batch struct {
	// ID is a random UUID identifying the batch in logs and history.
	ID string

	SheetName string
	Headers   []string
	Schema    string

	Started  time.Time
	Finished time.Time

	// Results has one entry per input, in input order.
	Results []Result
}

// Succeeded returns the results that converted.
func (b *Batch) Succeeded() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Success() {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the results that did not convert.
func (b *Batch) Failed() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Err joins the errors of all failed documents, or returns nil.
func (b *Batch) Err() error {
	var errs []error
	for _, r := range b.Failed() {
		errs = append(errs, r.Err)
	}
	return errors.Join(errs...)
}

// RowCount is the number of rows over all successful documents.
func (b *Batch) RowCount() int {
	n := 0
	for _, r := range b.Succeeded() {
		n += len(r.Rows)
	}
	return n
}

// Sheet returns the sheet for a single result.
func (b *Batch) Sheet(r Result) *types.Sheet {
	s := &types.Sheet{Name: b.SheetName, Headers: b.Headers}
	s.Append(r.Rows...)
	return s
}

// Merged concatenates the rows of every successful document, in input
// order, under one header.
func (b *Batch) Merged() *types.Sheet {
	s := &types.Sheet{Name: b.SheetName, Headers: b.Headers}
	for _, r := range b.Succeeded() {
		s.Append(r.Rows...)
	}
	return s
}

// Entries returns one bundle entry per successful document.
func (b *Batch) Entries() []sheet.Entry {
	var out []sheet.Entry
	for _, r := range b.Succeeded() {
		out = append(out, sheet.Entry{Name: r.Name, Sheet: b.Sheet(r)})
	}
	return out
}

// =============================================================================
// PACKAGING
// =============================================================================

// PackageOptions selects how a batch is delivered.
type PackageOptions struct {
	// Merge produces one workbook; otherwise a ZIP with one per document.
	Merge  bool
	Format sheet.Format

	// MergedFileName defaults to "Data.xlsx"; its extension follows Format.
	MergedFileName string

	// ZipFileName defaults to "excels.zip".
	ZipFileName string
}

// Artifact is a packaged batch ready to be written or served.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// ContentTypeZIP is served for bundles.
const ContentTypeZIP = "application/zip"

// Package encodes the batch.
func (b *Batch) Package(o PackageOptions) (*Artifact, error) {
	if o.Format == "" {
		o.Format = sheet.FormatXLSX
	}
	if o.Merge {
		data, err := sheet.Encode(o.Format, b.Merged())
		if err != nil {
			return nil, err
		}
		return &Artifact{
			Name:        withExt(orDefault(o.MergedFileName, "Data.xlsx"), o.Format.Extension()),
			ContentType: o.Format.ContentType(),
			Data:        data,
		}, nil
	}

	data, err := sheet.ZIPBytes(o.Format, b.Entries())
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Name:        withExt(orDefault(o.ZipFileName, "excels.zip"), ".zip"),
		ContentType: ContentTypeZIP,
		Data:        data,
	}, nil
}

func withExt(name, ext string) string {
	if strings.EqualFold(path.Ext(name), ext) {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
