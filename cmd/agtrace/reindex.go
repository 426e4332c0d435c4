package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Scan every configured provider root and refresh the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			stats, err := c.System.Reindex(context.Background(), force)
			if err != nil {
				return err
			}
			fmt.Printf("scanned %d files, indexed %d sessions, %d failures\n",
				stats.FilesScanned, stats.SessionsIndexed, stats.Failures)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Drop and rebuild the index before rescanning")
	return cmd
}
