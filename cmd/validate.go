// =============================================================================
// hdon2xlsx - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   hdon2xlsx validate [--schema path|builtin:<name>]
//
// Lints a schema without converting anything and prints the resulting
// column headers. Exits non-zero when the schema has errors.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
	"github.com/ginjaninja78/hdon2xlsx/internal/validation"
)

var validateSchema string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a schema for errors",
	Long: `The validate command loads a schema and checks its paths, actions, filter
expression and column definitions. Built-in schemas are available as
builtin:` + strings.Join(schema.Builtins(), ", builtin:") + `.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := orFlag(validateSchema, cfg.SchemaFile)
		s, err := schema.Resolve(ref)
		if err != nil {
			return fmt.Errorf("failed to load schema %s: %w", ref, err)
		}

		report := validation.LintSchema(s)
		fmt.Printf("Schema:  %s (%s)\n", s.Name, ref)
		fmt.Printf("Sheet:   %s\n", s.SheetName())
		fmt.Println("Columns:")
		for i, h := range schema.Headers(s) {
			fmt.Printf("  %2d. %s\n", i+1, h)
		}
		fmt.Println()
		fmt.Println(validation.FormatIssues(report))

		if !report.Valid() {
			return fmt.Errorf("schema %s has %d error(s)", ref, report.ErrorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Schema file or builtin:<name> (default: schema_file)")
}
