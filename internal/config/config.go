// =============================================================================
// hdon2xlsx - Configuration Module
// =============================================================================
//
// This module loads the application configuration.
//
// SOURCES (later wins):
//   1. Built-in defaults (applyDefaults)
//   2. The YAML config file (config.yaml); a missing file is not an error
//   3. A .env file in the working directory (godotenv)
//   4. HDON_* environment variables (see envOverrides)
//
// The output schema is configured separately (schema_file) and loaded by
// the schema package.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/hdon2xlsx/internal/logger"
)

// DefaultPath is the config file read when none is named.
const DefaultPath = "config.yaml"

// Output formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for .xml and .eml files when convert gets no paths.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives generated spreadsheets.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives inputs after a successful conversion when
	// ArchiveOnSuccess is set.
	// Default: "./input_archive"
	InputArchiveDir  string `yaml:"input_archive_dir"`
	ArchiveOnSuccess bool   `yaml:"archive_on_success"`

	// SchemaFile is a YAML or XLSX schema path, or "builtin:<name>".
	// Default: "./schemas/default.yaml"
	SchemaFile string `yaml:"schema_file"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds the documents converted at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps a batch going past failed documents.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// DocumentTimeout bounds the conversion of a single document.
	// Default: 30s
	DocumentTimeout time.Duration `yaml:"document_timeout"`

	Output  OutputConfig     `yaml:"output"`
	History HistoryConfig    `yaml:"history"`
	Log     logger.LogConfig `yaml:"log"`
	Server  ServerConfig     `yaml:"server"`
}

// OutputConfig controls spreadsheet packaging.
type OutputConfig struct {
	// Merge writes all documents into one sheet. Default: true
	Merge *bool `yaml:"merge"`

	// Format is "xlsx" or "csv". Default: "xlsx"
	Format string `yaml:"format"`

	// SheetName overrides the schema's sheet name when set.
	SheetName string `yaml:"sheet_name"`

	// MergedFileName names the merged workbook. Default: "Data.xlsx"
	MergedFileName string `yaml:"merged_file_name"`

	// ZipFileName names the per-document bundle. Default: "excels.zip"
	ZipFileName string `yaml:"zip_file_name"`

	// FileNameFormat names per-document outputs.
	// Placeholders:
	//   {name}      - input file name without extension
	//   {uuid}      - a random UUID
	//   {timestamp} - current time (YYYYMMDD_HHMMSS)
	// Default: "{name}"
	FileNameFormat string `yaml:"file_name_format"`

	// SourceColumn, when set, appends a column carrying the input file name.
	SourceColumn string `yaml:"source_column"`
}

// HistoryConfig controls the conversion ledger.
type HistoryConfig struct {
	// DBPath is the sqlite file. Empty disables history.
	DBPath string `yaml:"db_path"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	MaxFiles          int           `yaml:"max_files"`
	MaxFileSize       int64         `yaml:"max_file_size"`
	MaxTotalSize      int64         `yaml:"max_total_size"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	RateLimitMaxCalls int           `yaml:"rate_limit_max_calls"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

// ContinueOnErrors reports the effective continue_on_error setting.
func (c *Config) ContinueOnErrors() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// Merged reports the effective output.merge setting.
func (o OutputConfig) Merged() bool {
	return o.Merge == nil || *o.Merge
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

// Load reads the configuration file at path (DefaultPath when empty),
// then applies .env and HDON_* overrides.
//
// RETURNS:
//   - The validated configuration.
//   - An error if the file exists but cannot be parsed, or a value is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	c := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(c, os.LookupEnv); err != nil {
		return nil, err
	}

	applyDefaults(c)
	if err := validate(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// applyDefaults fills in default values for missing settings.
func applyDefaults(c *Config) {
	if c.InputDir == "" {
		c.InputDir = "./input"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./output"
	}
	if c.InputArchiveDir == "" {
		c.InputArchiveDir = "./input_archive"
	}
	if c.SchemaFile == "" {
		c.SchemaFile = "./schemas/default.yaml"
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 4
	}
	if c.DocumentTimeout == 0 {
		c.DocumentTimeout = 30 * time.Second
	}

	o := &c.Output
	if o.Format == "" {
		o.Format = FormatXLSX
	}
	if o.MergedFileName == "" {
		o.MergedFileName = "Data.xlsx"
	}
	if o.ZipFileName == "" {
		o.ZipFileName = "excels.zip"
	}
	if o.FileNameFormat == "" {
		o.FileNameFormat = "{name}"
	}

	l := &c.Log
	d := logger.DefaultConfig()
	if l.Level == "" {
		l.Level = d.Level
	}
	if l.Format == "" {
		l.Format = d.Format
	}
	if l.TimeFormat == "" {
		l.TimeFormat = d.TimeFormat
	}
	if l.Output == "" {
		l.Output = d.Output
	}

	s := &c.Server
	if s.Addr == "" {
		s.Addr = ":8000"
	}
	if s.MaxFiles == 0 {
		s.MaxFiles = 50
	}
	if s.MaxFileSize == 0 {
		s.MaxFileSize = 10 << 20
	}
	if s.MaxTotalSize == 0 {
		s.MaxTotalSize = 50 << 20
	}
	if s.RateLimitWindow == 0 {
		s.RateLimitWindow = 10 * time.Second
	}
	if s.RateLimitMaxCalls == 0 {
		s.RateLimitMaxCalls = 20
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = 60 * time.Second
	}
	if len(s.AllowedOrigins) == 0 {
		s.AllowedOrigins = []string{"*"}
	}
}

func validate(c *Config) error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.DocumentTimeout < 0 {
		return fmt.Errorf("document_timeout must not be negative")
	}
	switch c.Output.Format {
	case FormatXLSX, FormatCSV:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatXLSX, FormatCSV, c.Output.Format)
	}
	s := c.Server
	if s.MaxFiles < 1 || s.MaxFileSize < 1 || s.MaxTotalSize < 1 {
		return fmt.Errorf("server upload limits must be positive")
	}
	if s.RateLimitMaxCalls < 1 || s.RateLimitWindow <= 0 {
		return fmt.Errorf("server rate limit must be positive")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

type lookupFunc func(string) (string, bool)

// envOverrides maps HDON_* variables onto config fields.
func envOverrides(c *Config) map[string]func(string) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	num := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	size := func(dst *int64) func(string) error {
		return func(v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	dur := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*dst = d
			return nil
		}
	}
	flag := func(dst **bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*dst = &b
			return nil
		}
	}
	archive := func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.ArchiveOnSuccess = b
		return nil
	}

	return map[string]func(string) error{
		"HDON_INPUT_DIR":            str(&c.InputDir),
		"HDON_OUTPUT_DIR":           str(&c.OutputDir),
		"HDON_INPUT_ARCHIVE_DIR":    str(&c.InputArchiveDir),
		"HDON_ARCHIVE_ON_SUCCESS":   archive,
		"HDON_SCHEMA_FILE":          str(&c.SchemaFile),
		"HDON_MAX_CONCURRENCY":      num(&c.MaxConcurrency),
		"HDON_CONTINUE_ON_ERROR":    flag(&c.ContinueOnError),
		"HDON_DOCUMENT_TIMEOUT":     dur(&c.DocumentTimeout),
		"HDON_OUTPUT_MERGE":         flag(&c.Output.Merge),
		"HDON_OUTPUT_FORMAT":        str(&c.Output.Format),
		"HDON_OUTPUT_SOURCE_COLUMN": str(&c.Output.SourceColumn),
		"HDON_HISTORY_DB_PATH":      str(&c.History.DBPath),
		"HDON_LOG_LEVEL":            str(&c.Log.Level),
		"HDON_LOG_FORMAT":           str(&c.Log.Format),
		"HDON_LOG_OUTPUT":           str(&c.Log.Output),
		"HDON_SERVER_ADDR":          str(&c.Server.Addr),
		"HDON_MAX_FILES":            num(&c.Server.MaxFiles),
		"HDON_MAX_FILE_SIZE":        size(&c.Server.MaxFileSize),
		"HDON_MAX_TOTAL_SIZE":       size(&c.Server.MaxTotalSize),
		"HDON_RATE_LIMIT_WINDOW":    dur(&c.Server.RateLimitWindow),
		"HDON_RATE_LIMIT_MAX_CALLS": num(&c.Server.RateLimitMaxCalls),
		"HDON_REQUEST_TIMEOUT":      dur(&c.Server.RequestTimeout),
	}
}

func applyEnv(c *Config, lookup lookupFunc) error {
	for name, set := range envOverrides(c) {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := set(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
