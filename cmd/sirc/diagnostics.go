package main

import (
	"fmt"
	"io"
	"os"

	"sirc/internal/diagfmt"
	"sirc/internal/driver"
	"sirc/internal/observ"
)

// printDiagnostics renders the bags of all units and reports how many
// units failed.
func printDiagnostics(w io.Writer, units []*driver.UnitResult, format string, s *settings) (failed int, err error) {
	wd, _ := os.Getwd()
	for _, u := range units {
		if u == nil {
			continue
		}
		if !u.OK() {
			failed++
		}
		if u.Bag.Len() == 0 {
			continue
		}
		switch format {
		case "json":
			if err := diagfmt.JSON(w, u.Bag, u.Files, diagfmt.JSONOpts{
				IncludePositions: true,
				IncludeNotes:     true,
				PathMode:         diagfmt.PathModeRelative,
				BaseDir:          wd,
			}); err != nil {
				return failed, err
			}
		case "pretty", "":
			diagfmt.Pretty(w, u.Bag, u.Files, diagfmt.PrettyOpts{
				Color:     s.color,
				Context:   1,
				PathMode:  diagfmt.PathModeRelative,
				BaseDir:   wd,
				ShowNotes: true,
			})
		default:
			return failed, fmt.Errorf("unsupported diagnostics format %q (must be pretty or json)", format)
		}
	}
	return failed, nil
}

func printTimings(w io.Writer, r observ.Report) {
	if len(r.Phases) == 0 {
		return
	}
	fmt.Fprint(w, r.Summary())
}
