package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"sirc/internal/trace"
	"sirc/internal/uplc"
)

// Manifest is a loaded sirc.toml together with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the sections of sirc.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Lower   LowerConfig   `toml:"lower"`
	Trace   TraceConfig   `toml:"trace"`
	Cache   CacheConfig   `toml:"cache"`
	Build   BuildConfig   `toml:"build"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// LowerConfig holds the lowering defaults; CLI flags override them.
type LowerConfig struct {
	Target string `toml:"target"`
	Debug  bool   `toml:"debug"`
	NoLink bool   `toml:"no_link"`
	// Units is the directory scanned for *.sir files, relative to the root.
	Units string `toml:"units"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BuildConfig struct {
	Jobs int `toml:"jobs"`
}

// Default returns the configuration written by `sirc init`.
func Default(name string) Config {
	return Config{
		Package: PackageConfig{Name: name},
		Lower:   LowerConfig{Target: uplc.DefaultVersion.String(), Units: "sir"},
		Trace:   TraceConfig{Level: trace.LevelOff.String(), Mode: trace.ModeStream.String()},
		Cache:   CacheConfig{Enabled: true},
	}
}

// TargetVersion parses [lower].target; an empty value selects the default.
func (c Config) TargetVersion() (uplc.Version, error) {
	if strings.TrimSpace(c.Lower.Target) == "" {
		return uplc.DefaultVersion, nil
	}
	return uplc.ParseVersion(c.Lower.Target)
}

// Validate checks the values that have a closed set of spellings.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Package.Name) == "" {
		errs = append(errs, errors.New("missing [package].name"))
	}
	if _, err := c.TargetVersion(); err != nil {
		errs = append(errs, fmt.Errorf("[lower].target: %w", err))
	}
	if c.Trace.Level != "" {
		if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
			errs = append(errs, fmt.Errorf("[trace].level: %w", err))
		}
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
	}
	if c.Build.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[build].jobs must not be negative, got %d", c.Build.Jobs))
	}
	return errors.Join(errs...)
}

// UnitsDir is the absolute directory holding the project's SIR units.
func (m *Manifest) UnitsDir() string {
	units := strings.TrimSpace(m.Config.Lower.Units)
	if units == "" {
		return m.Root
	}
	return filepath.Join(m.Root, filepath.FromSlash(units))
}

// CacheDir resolves [cache].dir against the root; empty means the user cache.
func (m *Manifest) CacheDir() string {
	dir := strings.TrimSpace(m.Config.Cache.Dir)
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, filepath.FromSlash(dir))
}

// LoadConfig decodes and validates the manifest at path. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("cache", "enabled") {
		cfg.Cache.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load finds sirc.toml from startDir upwards and loads it. ok is false when
// there is no manifest.
func Load(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write creates dir/sirc.toml. It refuses to overwrite an existing manifest.
func Write(dir string, cfg Config) (string, error) {
	path := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to stat %q: %w", path, err)
	}
	data, err := Encode(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
