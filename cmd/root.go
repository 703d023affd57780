// =============================================================================
// hdon2xlsx - Root Command
// =============================================================================
//
// COBRA CLI STRUCTURE:
//   rootCmd (hdon2xlsx)
//   ├── convertCmd  (hdon2xlsx convert)
//   ├── serveCmd    (hdon2xlsx serve)
//   ├── validateCmd (hdon2xlsx validate)
//   ├── historyCmd  (hdon2xlsx history)
//   └── versionCmd  (hdon2xlsx version)
//
// The root command loads the configuration (config.yaml, .env, HDON_*
// variables) and sets up logging before any subcommand runs.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/hdon2xlsx/internal/config"
	"github.com/ginjaninja78/hdon2xlsx/internal/converter"
	"github.com/ginjaninja78/hdon2xlsx/internal/engine"
	"github.com/ginjaninja78/hdon2xlsx/internal/history"
	"github.com/ginjaninja78/hdon2xlsx/internal/logger"
	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// cfg is the loaded configuration, set by the root pre-run hook.
var cfg *config.Config

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "hdon2xlsx",
	Short: "Flatten Vietnamese e-invoice XML (HDon) into spreadsheet rows",
	Long: `hdon2xlsx converts electronic tax invoices into one spreadsheet row per
line item. The output columns are declared by a schema, so the same tool
serves every accounting layout.

Key Features:
  - Schema-driven columns: paths, constants, VAT, totals, amendment notes
  - Per-invoice rounding precision from vendor extension fields
  - .xml files, .eml messages and .zip archives as input
  - Merged workbook, per-document files or a ZIP bundle as output
  - HTTP API with upload limits and per-client rate limiting

Example Usage:
  hdon2xlsx convert                          # Convert everything in input_dir
  hdon2xlsx convert invoices/ --merge=false  # One workbook per invoice
  hdon2xlsx serve --addr :8000               # Start the HTTP API
  hdon2xlsx validate --schema builtin:master # Check a schema`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultPath,
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

func initConfig() error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		c.Log.Level = "debug"
	}
	if err := logger.Setup(c.Log); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	cfg = c
	return nil
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// loadEngine resolves a schema reference (a path or builtin:<name>) and
// compiles it.
func loadEngine(ref string) (*engine.Engine, error) {
	s, err := schema.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return engine.New(s, engine.Options{})
}

// openHistory opens the ledger, or returns nil when history is disabled.
func openHistory() (*history.Store, error) {
	if cfg.History.DBPath == "" {
		return nil, nil
	}
	return history.Open(cfg.History.DBPath)
}

// converterOptions maps the configuration onto converter options.
func converterOptions(store *history.Store) converter.Options {
	opts := converter.Options{
		MaxConcurrency:  cfg.MaxConcurrency,
		DocumentTimeout: cfg.DocumentTimeout,
		StopOnError:     !cfg.ContinueOnErrors(),
		SourceColumn:    cfg.Output.SourceColumn,
		SheetName:       cfg.Output.SheetName,
	}
	// A nil *history.Store must not become a non-nil Recorder.
	if store != nil {
		opts.History = store
	}
	return opts
}
