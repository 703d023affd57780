// =============================================================================
// hdon2xlsx - Convert Command
// =============================================================================
//
// COMMAND USAGE:
//   hdon2xlsx convert [paths...] [flags]
//
// PROCESSING PIPELINE:
//   1. Resolve and lint the schema
//   2. Collect inputs: the given paths, or every .xml/.eml/.zip in input_dir
//   3. Convert all documents concurrently (bounded by max_concurrency)
//   4. Write the outputs: a merged workbook, a ZIP bundle, or one file each
//   5. Archive fully converted input files
//   6. Write the error log and the processing summary
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/hdon2xlsx/internal/converter"
	"github.com/ginjaninja78/hdon2xlsx/internal/ingest"
	"github.com/ginjaninja78/hdon2xlsx/internal/logger"
	"github.com/ginjaninja78/hdon2xlsx/internal/sheet"
	"github.com/ginjaninja78/hdon2xlsx/internal/validation"
	"github.com/ginjaninja78/hdon2xlsx/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var convertFlags struct {
	schema       string
	merge        bool
	zip          bool
	out          string
	format       string
	sourceColumn string
	skipSeen     bool
	dryRun       bool
}

var convertCmd = &cobra.Command{
	Use:   "convert [paths...]",
	Short: "Convert invoice XML into spreadsheets",
	Long: `The convert command flattens every invoice it is given into rows using the
configured schema. Paths may be .xml files, .eml messages, .zip archives or
directories, which are walked recursively. Without paths, input_dir is used.

On success:
  - The output is written to the output directory
  - Input files are moved to the archive (when archive_on_success is set)
  - A processing summary is written

On error:
  - Failed documents are listed in an error log
  - Their input files stay where they are
  - Other documents are still converted unless continue_on_error is false`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.StringVar(&convertFlags.schema, "schema", "", "Schema file or builtin:<name> (default: schema_file)")
	f.BoolVar(&convertFlags.merge, "merge", true, "Merge all rows into one workbook")
	f.BoolVar(&convertFlags.zip, "zip", false, "Bundle per-document workbooks into one ZIP (with --merge=false)")
	f.StringVar(&convertFlags.out, "out", "", "Output directory (default: output_dir)")
	f.StringVar(&convertFlags.format, "format", "", "Output format: xlsx or csv (default: output.format)")
	f.StringVar(&convertFlags.sourceColumn, "source-column", "", "Header of the column naming each row's source document")
	f.BoolVar(&convertFlags.skipSeen, "skip-seen", false, "Skip documents already converted successfully (needs history)")
	f.BoolVar(&convertFlags.dryRun, "dry-run", false, "Convert without writing outputs or archiving inputs")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	log := logger.WithComponent("convert")

	schemaRef := orFlag(convertFlags.schema, cfg.SchemaFile)
	outDir := orFlag(convertFlags.out, cfg.OutputDir)
	format := sheet.ParseFormat(orFlag(convertFlags.format, cfg.Output.Format))
	merge := cfg.Output.Merged()
	if cmd.Flags().Changed("merge") {
		merge = convertFlags.merge
	}

	fmt.Println("=== hdon2xlsx ===")

	// -------------------------------------------------------------------------
	// STEP 1: SCHEMA
	// -------------------------------------------------------------------------
	eng, err := loadEngine(schemaRef)
	if err != nil {
		return fmt.Errorf("failed to load schema %s: %w", schemaRef, err)
	}
	if report := validation.LintSchema(eng.Schema()); !report.Valid() {
		fmt.Println(validation.FormatIssues(report))
		return fmt.Errorf("schema %s is invalid", schemaRef)
	} else if report.WarningCount > 0 {
		log.Warn().Int("warnings", report.WarningCount).Str("schema", schemaRef).Msg("schema has warnings")
	}
	fmt.Printf("Schema: %s (%d columns)\n", eng.Schema().Name, len(eng.Headers()))

	// -------------------------------------------------------------------------
	// STEP 2: INPUTS
	// -------------------------------------------------------------------------
	fm := utils.NewFileManager(cfg.InputDir, outDir, cfg.InputArchiveDir)
	fm.ArchiveOnSuccess = cfg.ArchiveOnSuccess && !convertFlags.dryRun
	if !convertFlags.dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	paths := args
	if len(paths) == 0 {
		paths, err = fm.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}
	if len(paths) == 0 {
		fmt.Printf("No input files found in %s.\n", cfg.InputDir)
		return nil
	}
	inputs, err := ingest.FromPaths(paths...)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Println("No invoice documents found in the given inputs.")
		return nil
	}
	fmt.Printf("Found %d document(s) in %d file(s)\n", len(inputs), len(paths))

	// -------------------------------------------------------------------------
	// STEP 3: CONVERT
	// -------------------------------------------------------------------------
	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	} else if convertFlags.skipSeen {
		return errors.New("--skip-seen needs history.db_path to be set")
	}

	opts := converterOptions(store)
	opts.SkipSeen = convertFlags.skipSeen
	if convertFlags.sourceColumn != "" {
		opts.SourceColumn = convertFlags.sourceColumn
	}
	opts.Logger = &log
	conv := converter.New(eng, opts)

	fmt.Println("Converting...")
	batch := conv.ConvertBatch(cmd.Context(), inputs)

	// -------------------------------------------------------------------------
	// STEP 4: OUTPUTS
	// -------------------------------------------------------------------------
	var outputs []string
	if !convertFlags.dryRun {
		outputs, err = writeOutputs(fm, batch, merge, format)
		if err != nil {
			return err
		}
	}

	// -------------------------------------------------------------------------
	// STEP 5: ARCHIVE AND REPORT
	// -------------------------------------------------------------------------
	summary := utils.ProcessingSummary{
		BatchID:    batch.ID,
		StartTime:  startTime,
		TotalFiles: len(batch.Results),
		TotalRows:  batch.RowCount(),
		Outputs:    outputs,
	}
	archived := archiveInputs(fm, batch)

	var errorEntries []utils.ErrorLogEntry
	for _, r := range batch.Results {
		switch {
		case r.Skipped:
			summary.SkippedFiles++
			fmt.Printf("  - %s: already converted\n", r.Name)
		case r.Err != nil:
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    r.Name,
				ErrorMessage: r.Err.Error(),
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     r.Name,
				ErrorType:    errorType(r.Err),
				ErrorMessage: r.Err.Error(),
			})
			fmt.Printf("  ✗ %s: %v\n", r.Name, r.Err)
		default:
			summary.SuccessfulFiles++
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   r.Name,
				ArchivePath: archived[r.Path],
				Rows:        len(r.Rows),
				Note:        r.Note,
				ProcessTime: r.Duration,
			})
			fmt.Printf("  ✓ %s: %d row(s), %s\n", r.Name, len(r.Rows), r.Note)
		}
	}
	summary.EndTime = time.Now()

	if !convertFlags.dryRun {
		if p, err := utils.WriteErrorLog(errorEntries, outDir); err != nil {
			log.Error().Err(err).Msg("failed to write error log")
		} else if p != "" {
			fmt.Printf("\nErrors have been logged to %s\n", p)
		}
		if _, err := utils.WriteSummaryLog(summary, outDir); err != nil {
			log.Error().Err(err).Msg("failed to write processing summary")
		}
	}

	fmt.Println("\n=== Conversion Complete ===")
	fmt.Printf("Documents:       %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Skipped:         %d\n", summary.SkippedFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Rows:            %d\n", summary.TotalRows)
	for _, o := range outputs {
		fmt.Printf("Output:          %s\n", o)
	}
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime).Round(time.Millisecond))

	if !cfg.ContinueOnErrors() && summary.FailedFiles > 0 {
		return fmt.Errorf("conversion stopped: %w", batch.Err())
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeOutputs writes the batch as one merged file, one ZIP bundle, or one
// file per converted document.
func writeOutputs(fm *utils.FileManager, batch *converter.Batch, merge bool, format sheet.Format) ([]string, error) {
	if merge || convertFlags.zip {
		art, err := batch.Package(converter.PackageOptions{
			Merge:          merge,
			Format:         format,
			MergedFileName: cfg.Output.MergedFileName,
			ZipFileName:    cfg.Output.ZipFileName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode output: %w", err)
		}
		p, err := fm.WriteOutput(art.Name, art.Data)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	}

	var outputs []string
	used := map[string]bool{}
	for _, r := range batch.Succeeded() {
		name := uniqueOutputName(used, utils.GenerateOutputFileName(cfg.Output.FileNameFormat,
			map[string]string{"name": sheet.Stem(r.Name)}, format.Extension()))
		data, err := sheet.Encode(format, batch.Sheet(r))
		if err != nil {
			return outputs, fmt.Errorf("failed to encode %s: %w", r.Name, err)
		}
		p, err := fm.WriteOutput(name, data)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, p)
	}
	return outputs, nil
}

// uniqueOutputName returns name, or name with the first free _2, _3, ...
// suffix, and marks the result used. Templates without {uuid} can collide
// across documents, and a suffixed name can collide with a real one.
func uniqueOutputName(used map[string]bool, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// archiveInputs moves every input file whose documents all converted.
// It returns the archive path per input file.
func archiveInputs(fm *utils.FileManager, batch *converter.Batch) map[string]string {
	archived := map[string]string{}
	if !fm.ArchiveOnSuccess {
		return archived
	}
	failed := map[string]bool{}
	var order []string
	for _, r := range batch.Results {
		if r.Path == "" {
			continue
		}
		if _, seen := failed[r.Path]; !seen {
			order = append(order, r.Path)
		}
		failed[r.Path] = failed[r.Path] || r.Err != nil
	}
	log := logger.WithComponent("archive")
	for _, p := range order {
		if failed[p] {
			continue
		}
		dst, err := fm.ArchiveInputFile(p)
		if err != nil {
			log.Error().Err(err).Str("file", p).Msg("failed to archive input")
			continue
		}
		archived[p] = dst
	}
	return archived
}

func errorType(err error) string {
	switch {
	case converter.IsParseError(err):
		return "parse"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "conversion"
	}
}

func orFlag(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
