package main

import (
	"github.com/spf13/cobra"

	"github.com/lanegrid/agtrace/pkg/mcp"
)

func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-serve",
		Short: "Serve the agtrace MCP tool surface over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			server := mcp.NewServer(c)
			return mcp.Serve(server)
		},
	}
}
