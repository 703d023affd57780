// =============================================================================
// hdon2xlsx - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the converter:
//   - Input discovery in the input directory
//   - Archival of converted inputs
//   - Output file naming and writing
//   - Error and summary logs
//
// ARCHIVAL STRATEGY:
//   - Inputs are moved to input_archive only after a successful conversion,
//     and only when archive_on_success is enabled
//   - Failed inputs stay where they are so they can be fixed and rerun
//   - Logs are written to the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/hdon2xlsx/internal/ingest"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the converter.
type FileManager struct {
	// InputDir is scanned for invoices when no paths are given.
	InputDir string

	// OutputDir receives workbooks and logs.
	OutputDir string

	// InputArchiveDir receives converted inputs.
	InputArchiveDir string

	// UseTimestampSubdirs files archived inputs under YYYY/MM/DD.
	UseTimestampSubdirs bool

	// ArchiveOnSuccess enables ArchiveInputFile.
	ArchiveOnSuccess bool

	now func() time.Time
}

// NewFileManager creates a FileManager. Archiving starts disabled.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		now:             time.Now,
	}
}

// EnsureDirectories creates the input and output directories, and the
// archive directory when archiving is enabled.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.InputDir, fm.OutputDir}
	if fm.ArchiveOnSuccess {
		dirs = append(dirs, fm.InputArchiveDir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles walks the input directory for .xml, .eml and .zip
// files, sorted by path.
//
// RETURNS:
//   - A slice of file paths; empty when the directory does not exist.
//   - An error if the directory cannot be walked.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	if _, err := os.Stat(fm.InputDir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(fm.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ingest.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a converted input into the archive directory.
//
// RETURNS:
//   - The archived path, or filePath unchanged when archiving is disabled.
//   - An error if the move fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)
	if fm.UseTimestampSubdirs {
		now := fm.clock()
		return filepath.Join(fm.InputArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName)
	}
	return filepath.Join(fm.InputArchiveDir, fileName)
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// WriteOutput writes data to name inside the output directory.
func (fm *FileManager) WriteOutput(name string, data []byte) (string, error) {
	path := filepath.Join(fm.OutputDir, filepath.Base(name))
	if err := os.MkdirAll(fm.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write output %s: %w", path, err)
	}
	return path, nil
}

// GenerateOutputFileName builds an output file name.
//
// PARAMETERS:
//   - format: The name template. Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     plus any key of params, e.g. {name} for the input stem
//   - params: Placeholder values.
//   - ext: The extension to ensure, e.g. ".xlsx".
//
// EXAMPLE:
//
//	format: "{name}_{date}"
//	params: {"name": "HD_00003000"}
//	output: "HD_00003000_20241015.xlsx"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	result = sanitizeFileName(result)
	if result == "" {
		result = "output"
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// sanitizeFileName replaces characters not allowed in file names on
// Windows or POSIX.
func sanitizeFileName(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name))
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single failed document.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
}

// WriteErrorLog writes error entries to error_log_<timestamp>.txt.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "hdon2xlsx - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes one convert run.
type ProcessingSummary struct {
	BatchID         string
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	SkippedFiles    int
	TotalRows       int
	Outputs         []string
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a converted document.
type ProcessedFileInfo struct {
	InputFile   string
	ArchivePath string
	Rows        int
	Note        string
	ProcessTime time.Duration
}

// FailedFileInfo describes a document that failed.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes processing_summary_<timestamp>.txt.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := writeSummary(writer, summary); err != nil {
		return "", err
	}
	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

func writeSummary(w io.Writer, summary ProcessingSummary) error {
	duration := summary.EndTime.Sub(summary.StartTime)
	_, err := fmt.Fprintf(w, "hdon2xlsx - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Batch:          %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Skipped:        %d\n"+
		"  Total Rows:     %d\n\n",
		summary.BatchID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.SkippedFiles,
		summary.TotalRows)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if len(summary.Outputs) > 0 {
		fmt.Fprintln(w, "Outputs:")
		for _, o := range summary.Outputs {
			fmt.Fprintf(w, "  %s\n", o)
		}
		fmt.Fprintln(w)
	}

	if len(summary.ProcessedFiles) > 0 {
		fmt.Fprintln(w, "Successful Files:")
		fmt.Fprintln(w, "--------------------------------------------------------------------------------")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
			if pf.ArchivePath != "" {
				fmt.Fprintf(w, "  Archived:     %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(w, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(w, "  Note:         %s\n", pf.Note)
			fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		fmt.Fprintln(w, "Failed Files:")
		fmt.Fprintln(w, "--------------------------------------------------------------------------------")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	_, err = io.WriteString(w, "================================================================================\n"+
		"End of Summary\n")
	return err
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
