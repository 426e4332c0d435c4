package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanegrid/agtrace/internal/config"
	"github.com/lanegrid/agtrace/pkg/discovery"
)

// newDoctorCmd reports per-provider-root scan health: how many files were
// found, how many parsed cleanly, and a sample of failures. Grounded on
// the teacher's doctor subcommand, generalized from "is the ledger
// reachable" to "how healthy is each configured log root".
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report scan health for every configured provider root",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			reg := newRegistry()
			enc := json.NewEncoder(os.Stdout)
			for _, root := range cfg.Roots() {
				diag, err := discovery.Doctor(root, reg)
				if err != nil {
					fmt.Fprintf(os.Stderr, "doctor: %s: %v\n", root, err)
					continue
				}
				if err := enc.Encode(diag); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
