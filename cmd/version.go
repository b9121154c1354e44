package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/supportagent/internal/support"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("supportagent", version)
		fmt.Println("prompt", support.PromptVersion)
	},
}
