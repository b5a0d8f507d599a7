package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sirc/internal/driver"
	"sirc/internal/project"
	"sirc/internal/sir"
	"sirc/internal/uplc"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new sirc project",
	Long: `Initialize a new sirc project by creating a project manifest (sirc.toml)
and a units directory holding a sample unit (sir/main.sir). If [path|name] is
omitted, initializes the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) == 1 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "sirc-project"
	}
	cfg := project.Default(name)
	manifestPath, err := project.Write(target, cfg)
	if err != nil {
		return fmt.Errorf("project already initialized: %w", err)
	}

	unitsDir := filepath.Join(target, cfg.Lower.Units)
	if err := os.MkdirAll(unitsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", unitsDir, err)
	}
	unitPath := filepath.Join(unitsDir, "main"+driver.UnitExt)
	created := []string{manifestPath}
	if _, err := os.Stat(unitPath); errors.Is(err, os.ErrNotExist) {
		if err := writeSampleUnit(unitPath); err != nil {
			return err
		}
		created = append(created, unitPath)
	}

	out := cmd.OutOrStdout()
	for _, p := range created {
		rel, relErr := filepath.Rel(wd, p)
		if relErr != nil {
			rel = p
		}
		fmt.Fprintf(out, "created %s\n", rel)
	}
	return nil
}

// writeSampleUnit stores `(\x -> x + 1) 41`.
func writeSampleUnit(path string) error {
	add := sir.BuiltinRef(uplc.AddInteger)
	inc := sir.Lam("x", sir.Integer(), sir.Call(add, sir.Ref("x", sir.Integer()), sir.IntLit(1)))
	m := &sir.Module{Name: "main", Root: sir.App(inc, sir.IntLit(41), sir.Integer())}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
