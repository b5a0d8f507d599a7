package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"sirc/internal/driver"
	"sirc/internal/ui"
	"sirc/internal/uplc"
)

var (
	lowerFormat   string
	lowerOutDir   string
	lowerUIMode   string
	lowerDiagFmt  string
	errUnitFailed = errors.New("lowering failed")
)

func addLoweringFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "", "target version (v1|v2|v3|v4); default from sirc.toml or v3")
	cmd.Flags().Bool("debug", false, "trace every engine decision and keep error messages in the program")
	cmd.Flags().Bool("no-link", false, "do not bind the fixed-point combinator")
	cmd.Flags().Bool("cache", false, "use the on-disk cache of lowered units")
	cmd.Flags().Int("jobs", 0, "parallel units (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&lowerDiagFmt, "diag-format", "pretty", "diagnostics format (pretty|json)")
}

func init() {
	addLoweringFlags(lowerCmd)
	lowerCmd.Flags().StringVar(&lowerFormat, "format", "pretty", "program format (pretty|compact|msgpack)")
	lowerCmd.Flags().StringVarP(&lowerOutDir, "out", "o", "", "write one file per unit into this directory instead of stdout")
	lowerCmd.Flags().StringVar(&lowerUIMode, "ui", "off", "progress view (auto|on|off)")
}

var lowerCmd = &cobra.Command{
	Use:   "lower [units|dirs...]",
	Short: "Lower SIR units to UPLC programs",
	Long: `Lower every given .sir unit (directories are scanned recursively) and
print the resulting programs. Without arguments the units directory of
sirc.toml is used.`,
	RunE: runLower,
}

func runLower(cmd *cobra.Command, args []string) error {
	s := active
	switch lowerFormat {
	case "pretty", "compact":
	case "msgpack":
		if lowerOutDir == "" {
			return errors.New("--format=msgpack needs --out")
		}
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, compact or msgpack)", lowerFormat)
	}
	units, err := s.unitArgs(args)
	if err != nil {
		return err
	}
	opts, err := s.driverOptions()
	if err != nil {
		return err
	}

	mode, err := readUIMode(lowerUIMode)
	if err != nil {
		return err
	}
	var batch *driver.BatchResult
	if shouldUseTUI(mode) && !s.quiet {
		batch, err = ui.LowerAllWithProgress(cmd.Context(), "lowering", units, opts, cmd.OutOrStdout())
	} else {
		batch, err = driver.LowerAll(cmd.Context(), units, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	width := terminalWidth(100)
	for _, u := range batch.Units {
		if !u.OK() {
			continue
		}
		if lowerOutDir != "" {
			if err := writeProgram(lowerOutDir, u); err != nil {
				return err
			}
			continue
		}
		if len(batch.Units) > 1 {
			fmt.Fprintf(out, "-- %s\n", u.Path)
		}
		if lowerFormat == "compact" {
			fmt.Fprintln(out, u.Program.String())
			continue
		}
		fmt.Fprintf(out, "(program %s\n%s\n)\n", u.Program.Version.LanguageVersion(), uplc.Pretty(u.Program.Term, width))
	}

	failed, err := printDiagnostics(cmd.ErrOrStderr(), batch.Units, lowerDiagFmt, s)
	if err != nil {
		return err
	}
	if s.timings {
		printTimings(cmd.ErrOrStderr(), batch.Timing)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d units", errUnitFailed, failed, len(batch.Units))
	}
	return nil
}

func writeProgram(dir string, u *driver.UnitResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(u.Path), driver.UnitExt)
	var (
		data []byte
		ext  string
		err  error
	)
	switch lowerFormat {
	case "msgpack":
		data, err = msgpack.Marshal(u.Program)
		ext = ".uplc.mp"
	case "compact":
		data, ext = []byte(u.Program.String()+"\n"), ".uplc"
	default:
		data = []byte(fmt.Sprintf("(program %s\n%s\n)\n", u.Program.Version.LanguageVersion(), uplc.Pretty(u.Program.Term, 100)))
		ext = ".uplc"
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", u.Path, err)
	}
	return os.WriteFile(filepath.Join(dir, base+ext), data, 0o600)
}

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
