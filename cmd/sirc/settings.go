package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sirc/internal/driver"
	"sirc/internal/prof"
	"sirc/internal/project"
	"sirc/internal/uplc"
)

// settings merges sirc.toml (when present) with command-line flags. Flags
// that were set explicitly win.
type settings struct {
	manifest *project.Manifest
	target   uplc.Version
	debug    bool
	noLink   bool
	jobs     int
	maxDiag  int
	cache    bool
	cacheDir string
	color    bool
	quiet    bool
	timings  bool
}

var (
	active         *settings
	traceCleanup   func()
	profileCleanup func()
)

func setupCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	active = cfg
	color.NoColor = !cfg.color
	cleanup, err := setupTracing(cmd, cfg.manifest)
	if err != nil {
		return err
	}
	traceCleanup = cleanup
	profileCleanup, err = setupProfiling(cmd)
	return err
}

// setupProfiling starts the runtime profilers named by the persistent flags.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root().PersistentFlags()
	var cfg prof.Config
	cfg.CPU, _ = root.GetString("cpu-profile")
	cfg.Mem, _ = root.GetString("mem-profile")
	cfg.Trace, _ = root.GetString("runtime-trace")
	if !cfg.Enabled() {
		return nil, nil
	}
	session, err := prof.Start(cfg)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write profiles: %v\n", err)
		}
	}, nil
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	s := &settings{target: uplc.DefaultVersion}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, ok, err := project.Load(wd)
	if err != nil {
		return nil, err
	}
	if ok {
		s.manifest = m
		if s.target, err = m.Config.TargetVersion(); err != nil {
			return nil, err
		}
		s.debug = m.Config.Lower.Debug
		s.noLink = m.Config.Lower.NoLink
		s.jobs = m.Config.Build.Jobs
		s.cache = m.Config.Cache.Enabled
		s.cacheDir = m.CacheDir()
	}

	flags := cmd.Flags()
	if flags.Lookup("target") != nil && flags.Changed("target") {
		v, _ := flags.GetString("target")
		if s.target, err = uplc.ParseVersion(v); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("debug") != nil && flags.Changed("debug") {
		s.debug, _ = flags.GetBool("debug")
	}
	if flags.Lookup("no-link") != nil && flags.Changed("no-link") {
		s.noLink, _ = flags.GetBool("no-link")
	}
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		s.jobs, _ = flags.GetInt("jobs")
	}
	if flags.Lookup("cache") != nil && flags.Changed("cache") {
		s.cache, _ = flags.GetBool("cache")
	}

	root := cmd.Root().PersistentFlags()
	s.maxDiag, _ = root.GetInt("max-diagnostics")
	s.quiet, _ = root.GetBool("quiet")
	s.timings, _ = root.GetBool("timings")
	colorMode, _ := root.GetString("color")
	switch strings.ToLower(colorMode) {
	case "on":
		s.color = true
	case "off":
		s.color = false
	case "auto", "":
		s.color = isTerminal(os.Stdout)
	default:
		return nil, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorMode)
	}
	return s, nil
}

// driverOptions opens the cache if enabled and builds the driver request.
func (s *settings) driverOptions() (driver.Options, error) {
	opts := driver.Options{
		Target:         s.target,
		Debug:          s.debug,
		NoLink:         s.noLink,
		Jobs:           s.jobs,
		MaxDiagnostics: s.maxDiag,
	}
	if !s.cache {
		return opts, nil
	}
	var (
		c   *driver.DiskCache
		err error
	)
	if s.cacheDir != "" {
		c, err = driver.OpenDiskCacheAt(s.cacheDir)
	} else {
		c, err = driver.OpenDiskCache("sirc")
	}
	if err != nil {
		return opts, fmt.Errorf("open cache: %w", err)
	}
	opts.Cache = c
	return opts, nil
}

// unitArgs resolves the units to work on: explicit arguments, or the
// manifest's units directory.
func (s *settings) unitArgs(args []string) ([]string, error) {
	if len(args) == 0 {
		if s.manifest == nil {
			return nil, fmt.Errorf("no units given and no %s found\nplease name the units explicitly, e.g.:\n  sirc lower path/to/unit.sir", project.ManifestName)
		}
		args = []string{s.manifest.UnitsDir()}
	}
	return driver.ExpandArgs(args)
}
