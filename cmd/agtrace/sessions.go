package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lanegrid/agtrace/pkg/watch"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect indexed sessions",
	}
	cmd.AddCommand(newSessionsListCmd(), newSessionsGetCmd(), newSessionsTailCmd(), newSessionsExportCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			sessions, err := c.Sessions.List(context.Background(), projectID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, s := range sessions {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Restrict to one project id")
	return cmd
}

func newSessionsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <session-id>",
		Short: "Print the assembled turn/step tree for one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			sess, err := c.Sessions.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(sess, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
	return cmd
}

func newSessionsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export one session's events as JSONL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			b, err := c.Sessions.Export(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(b)
			return err
		},
	}
	return cmd
}

// newSessionsTailCmd follows every configured provider root live,
// printing each newly decoded event as it's observed. Grounded on the
// teacher's cmd/sub/tail.go poll-and-print loop, generalized from tool
// call rows to decoded trace events.
func newSessionsTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow every configured provider root for new events",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			w := c.System.WatchService(ctx)
			enc := json.NewEncoder(os.Stdout)

			for {
				select {
				case <-sigCh:
					return nil
				case delta := <-w.Events:
					if err := printDelta(enc, delta); err != nil {
						log.Warn("tail: failed to print delta", zap.Error(err))
					}
				case err := <-w.Errors:
					log.Warn("tail: watch error", zap.Error(err))
				}
			}
		},
	}
	return cmd
}

func printDelta(enc *json.Encoder, d watch.Delta) error {
	for _, e := range d.Events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
