// =============================================================================
// hdon2xlsx - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   hdon2xlsx version
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

// Version and BuildDate are set at build time:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/hdon2xlsx/cmd.Version=v2.4-rules'"
var (
	Version   = "v2.4-rules"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("hdon2xlsx")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Build Date: %s\n", BuildDate)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("Schemas:    %v\n", schema.Builtins())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
