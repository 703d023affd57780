// =============================================================================
// hdon2xlsx - Validation
// =============================================================================
//
// Two kinds of checks live here:
//
//   upload.go   limits on a batch of uploaded invoice files. Violations
//               carry the HTTP status the server answers with.
//   schema.go   lint of an output schema before it is used, so a typo in
//               a path or action is reported instead of silently yielding
//               empty cells.
//
// Checks collect or stop in a fixed order so the same bad request always
// produces the same message.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoFiles is wrapped by the UploadError for an empty batch.
var ErrNoFiles = errors.New("no files uploaded")

// DefaultUploadName replaces a blank file name.
const DefaultUploadName = "unnamed.xml"

// UploadError is an upload limit violation with its HTTP status.
type UploadError struct {
	Status int
	Detail string
	err    error
}

// Error implements the error interface.
func (e *UploadError) Error() string { return e.Detail }

// Unwrap returns the sentinel behind the violation, if any.
func (e *UploadError) Unwrap() error { return e.err }

func uploadError(status int, format string, args ...any) *UploadError {
	return &UploadError{Status: status, Detail: fmt.Sprintf(format, args...)}
}

// Limits bounds one upload batch. A zero field disables that limit.
type Limits struct {
	MaxFiles     int
	MaxFileSize  int64
	MaxTotalSize int64
}

// Upload describes one uploaded file before its content is used.
type Upload struct {
	Name string
	Size int64
}

// UploadName trims name and substitutes DefaultUploadName for a blank one.
func UploadName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultUploadName
	}
	return name
}

// Check validates a batch. The file count is checked first; then, file by
// file, the .xml suffix, duplicate names, the per-file size, the running
// total and emptiness. The first violation is returned.
func (l Limits) Check(files []Upload) error {
	if len(files) == 0 {
		return &UploadError{
			Status: http.StatusBadRequest,
			Detail: "No files uploaded (form field 'files').",
			err:    ErrNoFiles,
		}
	}
	if l.MaxFiles > 0 && len(files) > l.MaxFiles {
		return uploadError(http.StatusRequestEntityTooLarge, "Too many files (> %d).", l.MaxFiles)
	}

	seen := make(map[string]bool, len(files))
	var total int64
	for _, f := range files {
		name := UploadName(f.Name)
		if !strings.HasSuffix(strings.ToLower(name), ".xml") {
			return uploadError(http.StatusUnsupportedMediaType, "Invalid file type for '%s', only .xml allowed.", name)
		}
		if seen[name] {
			return uploadError(http.StatusConflict, "Duplicate filename: %s", name)
		}
		seen[name] = true

		if l.MaxFileSize > 0 && f.Size > l.MaxFileSize {
			return uploadError(http.StatusRequestEntityTooLarge, "File too large: %s (> %d bytes)", name, l.MaxFileSize)
		}
		total += f.Size
		if l.MaxTotalSize > 0 && total > l.MaxTotalSize {
			return uploadError(http.StatusRequestEntityTooLarge, "Total upload too large (> %d bytes)", l.MaxTotalSize)
		}
		if f.Size <= 0 {
			return uploadError(http.StatusBadRequest, "Empty file: %s", name)
		}
	}
	return nil
}
