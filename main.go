// =============================================================================
// hdon2xlsx - Main Entry Point
// =============================================================================
//
// USAGE:
//   hdon2xlsx convert [paths...] - Convert invoices to spreadsheets
//   hdon2xlsx serve              - Run the HTTP API
//   hdon2xlsx validate           - Check a schema
//   hdon2xlsx history            - List recorded conversions
//   hdon2xlsx version            - Display the application version
//
// LAYOUT:
//   cmd/       : CLI commands (Cobra)
//   internal/  : document model, schema, engine, converter, server
//   pkg/utils/ : file management and run reports
//   schemas/   : example column schemas
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/hdon2xlsx/cmd"
)

func main() {
	cmd.Execute()
}
