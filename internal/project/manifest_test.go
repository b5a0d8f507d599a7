package project_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sirc/internal/project"
	"sirc/internal/uplc"
)

func TestWriteAndLoadFromSubdir(t *testing.T) {
	root := t.TempDir()
	cfg := project.Default("demo")
	cfg.Lower.Target = "v4"
	cfg.Build.Jobs = 3
	if _, err := project.Write(root, cfg); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "sir", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	m, ok, err := project.Load(sub)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(m.Root)
	if gotRoot != wantRoot {
		t.Fatalf("root = %s, want %s", m.Root, root)
	}
	if v, err := m.Config.TargetVersion(); err != nil || v != uplc.V4 {
		t.Fatalf("target = %v, %v", v, err)
	}
	if m.Config.Build.Jobs != 3 || !m.Config.Cache.Enabled {
		t.Fatalf("unexpected config %+v", m.Config)
	}
	if got := m.UnitsDir(); got != filepath.Join(m.Root, "sir") {
		t.Fatalf("units dir %s", got)
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	if _, err := project.Write(root, project.Default("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := project.Write(root, project.Default("b")); err == nil {
		t.Fatal("second Write must fail")
	}
}

func TestLoadRejectsBadManifests(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "[package]\nname = \"x\"\n[lower]\ntargte = \"v3\"\n",
		"bad target":   "[package]\nname = \"x\"\n[lower]\ntarget = \"v9\"\n",
		"bad level":    "[package]\nname = \"x\"\n[trace]\nlevel = \"loud\"\n",
		"no package":   "[lower]\ntarget = \"v3\"\n",
		"missing name": "[package]\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, project.ManifestName)
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, ok, err := project.Load(root)
			if !ok || err == nil {
				t.Fatalf("ok=%v err=%v", ok, err)
			}
			if !strings.Contains(err.Error(), project.ManifestName) {
				t.Fatalf("error should name the manifest: %v", err)
			}
		})
	}
}

func TestLoadWithoutManifest(t *testing.T) {
	// A temp dir has no sirc.toml above it on any sane machine.
	m, ok, err := project.Load(t.TempDir())
	if err != nil || ok || m != nil {
		t.Fatalf("m=%v ok=%v err=%v", m, ok, err)
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := project.ContentDigest([]byte("a")), project.ContentDigest([]byte("b"))
	base := project.ContentDigest(nil)
	if project.Combine(base, a, b) == project.Combine(base, b, a) {
		t.Fatal("combine must depend on order")
	}
	if project.Combine(base, a) != project.Combine(base, a) {
		t.Fatal("combine must be deterministic")
	}
	if base.IsZero() {
		t.Fatal("hash of empty input is not zero")
	}
}
