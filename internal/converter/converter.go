// =============================================================================
// hdon2xlsx - Converter Module
// =============================================================================
//
// This module runs the conversion pipeline. For a single document:
//
//   1. Hash the bytes and, when asked, skip documents already in history
//   2. Parse the XML into a document tree
//   3. Flatten it into rows with the engine
//   4. Append the source column, if configured
//
// A batch runs documents concurrently, bounded by MaxConcurrency. Results
// keep input order whatever order the workers finish in. Each document
// gets its own timeout; the engine cannot be interrupted, so a document
// that times out is reported as failed and its late result discarded.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
	"github.com/ginjaninja78/hdon2xlsx/internal/engine"
	"github.com/ginjaninja78/hdon2xlsx/internal/history"
	"github.com/ginjaninja78/hdon2xlsx/internal/ingest"
	"github.com/ginjaninja78/hdon2xlsx/internal/logger"
	"github.com/ginjaninja78/hdon2xlsx/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

// DocumentError is a failure converting one document.
type DocumentError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// IsParseError reports whether err means the document was not usable XML.
func IsParseError(err error) bool {
	return errors.Is(err, document.ErrMalformedXML) || errors.Is(err, document.ErrEmptyDocument)
}

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Result is the outcome of converting one document.
type Result struct {
	// Name identifies the input (file name or container/attachment).
	Name string

	// Path is the file the input was read from, if any.
	Path string

	// Hash is the hex sha256 of the input bytes.
	Hash string

	Rows []types.Row

	// Note is the document-level annotation label.
	Note string

	// Skipped is set when the document was already converted before.
	Skipped bool

	// Err is a *DocumentError when conversion failed.
	Err error

	Duration time.Duration
}

// Success reports whether the document produced rows (possibly none).
func (r Result) Success() bool { return r.Err == nil && !r.Skipped }

// Status is the history status for r.
func (r Result) Status() string {
	switch {
	case r.Skipped:
		return history.StatusSkipped
	case r.Err != nil:
		return history.StatusFailed
	default:
		return history.StatusOK
	}
}

// =============================================================================
// CONVERTER
// =============================================================================

// Recorder persists conversion outcomes. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
	SeenHash(ctx context.Context, hash string) (bool, error)
}

// Options configures a Converter.
type Options struct {
	// MaxConcurrency bounds documents converted at once. Default: 1
	MaxConcurrency int

	// DocumentTimeout bounds one document. Zero means no limit.
	DocumentTimeout time.Duration

	// StopOnError cancels the rest of a batch after the first failure.
	StopOnError bool

	// SourceColumn, when set, is the header of a trailing column holding
	// each row's input name.
	SourceColumn string

	// SheetName overrides the schema's sheet name.
	SheetName string

	// History records every document when set.
	History Recorder

	// SkipSeen skips documents whose hash History has seen succeed.
	SkipSeen bool

	// Logger defaults to the "converter" component logger.
	Logger *zerolog.Logger
}

// Converter converts invoices with one engine. It is safe for concurrent
// use.
type Converter struct {
	engine *engine.Engine
	opts   Options
	log    zerolog.Logger
}

// New creates a Converter.
func New(eng *engine.Engine, opts Options) *Converter {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	c := &Converter{engine: eng, opts: opts}
	if opts.Logger != nil {
		c.log = *opts.Logger
	} else {
		c.log = logger.WithComponent("converter")
	}
	return c
}

// Headers returns the output headers, including the source column.
func (c *Converter) Headers() []string {
	headers := c.engine.Headers()
	if c.opts.SourceColumn != "" {
		headers = append(headers, c.opts.SourceColumn)
	}
	return headers
}

// SchemaName returns the name of the engine's schema.
func (c *Converter) SchemaName() string { return c.engine.Schema().Name }

// SheetName returns the sheet name used for output.
func (c *Converter) SheetName() string {
	if c.opts.SheetName != "" {
		return c.opts.SheetName
	}
	return c.engine.Schema().SheetName()
}

// ConvertOne converts a single document. It never panics; every failure
// is reported through Result.Err.
func (c *Converter) ConvertOne(ctx context.Context, in ingest.Input) Result {
	start := time.Now()
	res := Result{Name: in.Name, Path: in.Path, Hash: history.Hash(in.Data)}

	if err := ctx.Err(); err != nil {
		res.Err = &DocumentError{Name: in.Name, Err: err}
		return res
	}

	if c.opts.SkipSeen && c.opts.History != nil {
		seen, err := c.opts.History.SeenHash(ctx, res.Hash)
		if err != nil {
			c.log.Warn().Err(err).Str("document", in.Name).Msg("history lookup failed")
		} else if seen {
			res.Skipped = true
			res.Duration = time.Since(start)
			return res
		}
	}

	if c.opts.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.DocumentTimeout)
		defer cancel()
	}

	type outcome struct {
		rows []types.Row
		note string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o = outcome{err: fmt.Errorf("panic: %v", r)}
			}
			done <- o
		}()
		o.rows, o.note, o.err = c.flatten(in)
	}()

	select {
	case o := <-done:
		res.Rows, res.Note = o.rows, o.note
		if o.err != nil {
			res.Err = &DocumentError{Name: in.Name, Err: o.err}
		}
	case <-ctx.Done():
		res.Err = &DocumentError{Name: in.Name, Err: ctx.Err()}
	}
	res.Duration = time.Since(start)
	return res
}

func (c *Converter) flatten(in ingest.Input) ([]types.Row, string, error) {
	doc, err := document.Parse(in.Data)
	if err != nil {
		return nil, "", err
	}
	rows := c.engine.Flatten(doc)
	if c.opts.SourceColumn != "" {
		for i := range rows {
			rows[i] = append(rows[i], in.Name)
		}
	}
	return rows, c.engine.Note(doc), nil
}

// ConvertBatch converts inputs concurrently. Results are in input order.
// The batch itself never fails; inspect Batch.Failed.
func (c *Converter) ConvertBatch(ctx context.Context, inputs []ingest.Input) *Batch {
	b := &Batch{
		ID:        uuid.NewString(),
		SheetName: c.SheetName(),
		Headers:   c.Headers(),
		Schema:    c.SchemaName(),
		Started:   time.Now(),
		Results:   make([]Result, len(inputs)),
	}
	log := c.log.With().Str("batch", b.ID).Logger()
	log.Info().Int("documents", len(inputs)).Msg("batch started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrency)
	for i, in := range inputs {
		g.Go(func() error {
			res := c.ConvertOne(gctx, in)
			b.Results[i] = res
			c.logResult(log, res)
			if res.Err != nil && c.opts.StopOnError {
				return res.Err
			}
			return nil
		})
	}
	_ = g.Wait()
	b.Finished = time.Now()

	c.record(ctx, b)

	log.Info().
		Int("succeeded", len(b.Succeeded())).
		Int("failed", len(b.Failed())).
		Int("rows", b.RowCount()).
		Dur("duration", b.Finished.Sub(b.Started)).
		Msg("batch finished")
	return b
}

func (c *Converter) logResult(log zerolog.Logger, r Result) {
	switch {
	case r.Skipped:
		log.Info().Str("document", r.Name).Msg("document already converted, skipped")
	case r.Err != nil:
		log.Error().Str("document", r.Name).Err(r.Err).Msg("conversion failed")
	default:
		log.Info().
			Str("document", r.Name).
			Int("rows", len(r.Rows)).
			Str("note", r.Note).
			Dur("duration", r.Duration).
			Msg("document converted")
	}
}

func (c *Converter) record(ctx context.Context, b *Batch) {
	if c.opts.History == nil {
		return
	}
	// Record even when ctx was cancelled mid-batch.
	ctx = context.WithoutCancel(ctx)
	for _, r := range b.Results {
		e := history.Entry{
			BatchID:   b.ID,
			Name:      r.Name,
			Hash:      r.Hash,
			Schema:    b.Schema,
			Rows:      len(r.Rows),
			Note:      r.Note,
			Status:    r.Status(),
			CreatedAt: b.Finished,
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		if err := c.opts.History.Record(ctx, e); err != nil {
			c.log.Warn().Err(err).Str("document", r.Name).Msg("failed to record history")
		}
	}
}
