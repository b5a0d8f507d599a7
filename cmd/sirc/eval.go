package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sirc/internal/driver"
	"sirc/internal/uplc"
)

var (
	evalBudget  int64
	evalDiagFmt string
)

func init() {
	evalCmd.Flags().String("target", "", "target version (v1|v2|v3|v4); default from sirc.toml or v3")
	evalCmd.Flags().Bool("debug", false, "keep error messages in the program")
	evalCmd.Flags().Int64Var(&evalBudget, "budget", 10_000_000, "maximum number of machine steps (0 = unlimited)")
	evalCmd.Flags().StringVar(&evalDiagFmt, "diag-format", "pretty", "diagnostics format (pretty|json)")
}

var evalCmd = &cobra.Command{
	Use:   "eval <unit.sir>",
	Short: "Lower a unit and evaluate it on the reference machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := active
		opts, err := s.driverOptions()
		if err != nil {
			return err
		}
		// The machine needs the combinator bound.
		opts.NoLink = false

		res, err := driver.LowerFile(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		units := []*driver.UnitResult{res}
		if _, err := printDiagnostics(cmd.ErrOrStderr(), units, evalDiagFmt, s); err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("%w: %s", errUnitFailed, res.Path)
		}

		m := uplc.NewMachine(res.Program.Version, evalBudget)
		v, evalErr := m.Eval(res.Program.Term)
		out := cmd.OutOrStdout()
		for _, line := range m.Logs {
			fmt.Fprintf(out, "trace: %s\n", line)
		}
		if s.timings {
			printTimings(cmd.ErrOrStderr(), res.Timing)
		}
		if evalErr != nil {
			if errors.Is(evalErr, uplc.ErrBudgetExhausted) {
				return fmt.Errorf("evaluation stopped after %d steps: %w", m.Steps(), evalErr)
			}
			return evalErr
		}
		fmt.Fprintln(out, v.String())
		if !s.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "steps: %d\n", m.Steps())
		}
		return nil
	},
}
