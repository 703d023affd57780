// =============================================================================
// hdon2xlsx - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   hdon2xlsx serve [--addr :8000]
//
// ROUTES:
//   GET  /health               - {"ok": true, "version": "..."}
//   GET  /schema               - active schema name, sheet and headers
//   POST /pipeline/xml-to-xlsx - multipart "files" upload, rate limited
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/hdon2xlsx/internal/converter"
	"github.com/ginjaninja78/hdon2xlsx/internal/logger"
	"github.com/ginjaninja78/hdon2xlsx/internal/server"
	"github.com/ginjaninja78/hdon2xlsx/internal/sheet"
	"github.com/ginjaninja78/hdon2xlsx/internal/validation"
)

var serveFlags struct {
	addr   string
	schema string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion HTTP API",
	Long: `The serve command exposes the converter over HTTP. Uploaded invoices are
converted with the configured schema and returned as Data.xlsx (merged) or
excels.zip (one workbook per invoice). Uploads are limited in count and size
and each client is rate limited.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "Listen address (default: server.addr)")
	serveCmd.Flags().StringVar(&serveFlags.schema, "schema", "", "Schema file or builtin:<name> (default: schema_file)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")

	schemaRef := orFlag(serveFlags.schema, cfg.SchemaFile)
	eng, err := loadEngine(schemaRef)
	if err != nil {
		return fmt.Errorf("failed to load schema %s: %w", schemaRef, err)
	}
	if report := validation.LintSchema(eng.Schema()); !report.Valid() {
		fmt.Println(validation.FormatIssues(report))
		return fmt.Errorf("schema %s is invalid", schemaRef)
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	convLog := logger.WithComponent("converter")
	opts := converterOptions(store)
	opts.Logger = &convLog
	conv := converter.New(eng, opts)

	limiter := server.NewRateLimiter(cfg.Server.RateLimitMaxCalls, cfg.Server.RateLimitWindow)
	srv := server.New(conv, limiter, server.Options{
		Addr:    orFlag(serveFlags.addr, cfg.Server.Addr),
		Version: Version,
		Limits: validation.Limits{
			MaxFiles:     cfg.Server.MaxFiles,
			MaxFileSize:  cfg.Server.MaxFileSize,
			MaxTotalSize: cfg.Server.MaxTotalSize,
		},
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Package: converter.PackageOptions{
			Format:         sheet.FormatXLSX,
			MergedFileName: cfg.Output.MergedFileName,
			ZipFileName:    cfg.Output.ZipFileName,
		},
		Logger: &log,
	})
	return srv.Run(cmd.Context())
}
