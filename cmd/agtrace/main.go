// Command agtrace is a thin front end over pkg/client: reindex a
// workspace, list or tail sessions, run diagnostics, and serve the MCP
// tool surface over stdio. It has no behavior of its own beyond argument
// parsing and calling into the core packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agtrace",
		Short: "Local observability engine for coding-agent execution traces",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to agtrace.toml (default: ~/.agtrace/agtrace.toml)")

	root.AddCommand(
		newReindexCmd(),
		newSessionsCmd(),
		newDoctorCmd(),
		newMCPServeCmd(),
	)
	return root
}
