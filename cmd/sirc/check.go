package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sirc/internal/driver"
)

var checkDiagFmt string

func init() {
	checkCmd.Flags().String("target", "", "target version (v1|v2|v3|v4); default from sirc.toml or v3")
	checkCmd.Flags().Int("jobs", 0, "parallel units (0 = GOMAXPROCS)")
	checkCmd.Flags().StringVar(&checkDiagFmt, "format", "pretty", "diagnostics format (pretty|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check [units|dirs...]",
	Short: "Validate and lower units, printing diagnostics only",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := active
		units, err := s.unitArgs(args)
		if err != nil {
			return err
		}
		opts, err := s.driverOptions()
		if err != nil {
			return err
		}
		// Cached units carry no fresh diagnostics beyond stored warnings.
		opts.Cache = nil
		batch, err := driver.LowerAll(cmd.Context(), units, opts)
		if err != nil {
			return err
		}
		failed, err := printDiagnostics(cmd.OutOrStdout(), batch.Units, checkDiagFmt, s)
		if err != nil {
			return err
		}
		if s.timings {
			printTimings(cmd.ErrOrStderr(), batch.Timing)
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d units", errUnitFailed, failed, len(batch.Units))
		}
		if !s.quiet && checkDiagFmt != "json" {
			fmt.Fprintf(cmd.ErrOrStderr(), "ok: %d units\n", len(batch.Units))
		}
		return nil
	},
}
