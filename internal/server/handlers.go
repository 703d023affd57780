package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ginjaninja78/hdon2xlsx/internal/converter"
	"github.com/ginjaninja78/hdon2xlsx/internal/ingest"
	"github.com/ginjaninja78/hdon2xlsx/internal/validation"
)

// multipartOverhead is allowed on top of the upload limit for boundaries
// and form fields.
const multipartOverhead = 1 << 20

// statusClientClosedRequest is logged when the client goes away mid-batch.
const statusClientClosedRequest = 499

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "version": s.opts.Version})
}

func (s *Server) schema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    s.conv.SchemaName(),
		"sheet":   s.conv.SheetName(),
		"headers": s.conv.Headers(),
	})
}

func (s *Server) xmlToXLSX(c *gin.Context) {
	if s.opts.Limits.MaxTotalSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.Limits.MaxTotalSize+multipartOverhead)
	}

	inputs, err := s.readUploads(c)
	if err != nil {
		var ue *validation.UploadError
		if errors.As(err, &ue) {
			abort(c, ue.Status, ue.Detail)
			return
		}
		_ = c.Error(err)
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	merge := strings.EqualFold(strings.TrimSpace(c.DefaultPostForm("merge_to_one", "true")), "true")

	ctx := c.Request.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	batch := s.conv.ConvertBatch(ctx, inputs)
	if status, detail, failed := failure(batch); failed {
		abort(c, status, detail)
		return
	}

	pkg := s.opts.Package
	pkg.Merge = merge
	art, err := batch.Package(pkg)
	if err != nil {
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "Failed to build output")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, art.Name))
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

// readUploads validates the multipart files and reads them in upload
// order.
func (s *Server) readUploads(c *gin.Context) ([]ingest.Input, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, &validation.UploadError{
				Status: http.StatusRequestEntityTooLarge,
				Detail: fmt.Sprintf("Total upload too large (> %d bytes)", s.opts.Limits.MaxTotalSize),
			}
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, s.opts.Limits.Check(nil)
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	files := form.File["files"]
	uploads := make([]validation.Upload, len(files))
	for i, fh := range files {
		uploads[i] = validation.Upload{Name: fh.Filename, Size: fh.Size}
	}
	if err := s.opts.Limits.Check(uploads); err != nil {
		return nil, err
	}

	inputs := make([]ingest.Input, len(files))
	for i, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		inputs[i] = ingest.Input{Name: validation.UploadName(fh.Filename), Data: data}
	}
	return inputs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return data, nil
}

// failure maps the first failed document to a response. Unparseable XML
// is the client's fault (422); running out of time is 504.
func failure(b *converter.Batch) (int, string, bool) {
	failed := b.Failed()
	if len(failed) == 0 {
		return 0, "", false
	}
	r := failed[0]
	switch {
	case converter.IsParseError(r.Err):
		return http.StatusUnprocessableEntity, fmt.Sprintf("Invalid XML in '%s': %v", r.Name, errors.Unwrap(r.Err)), true
	case errors.Is(r.Err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Conversion timed out", true
	case errors.Is(r.Err, context.Canceled):
		return statusClientClosedRequest, "Request cancelled", true
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Failed to convert '%s'", r.Name), true
	}
}
