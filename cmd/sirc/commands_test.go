package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sirc/internal/driver"
	"sirc/internal/uplc"
)

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		in   string
		want uiMode
		err  bool
	}{
		{"", uiModeAuto, false},
		{"auto", uiModeAuto, false},
		{" ON ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.in)
		if (err != nil) != tc.err {
			t.Fatalf("readUIMode(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatal("explicit ui modes must win over terminal detection")
	}
}

func TestSampleUnitLowersAndEvaluates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main"+driver.UnitExt)
	if err := writeSampleUnit(path); err != nil {
		t.Fatalf("writeSampleUnit: %v", err)
	}
	res, err := driver.LowerFile(context.Background(), path, driver.Options{})
	if err != nil {
		t.Fatalf("LowerFile: %v", err)
	}
	if !res.OK() {
		t.Fatalf("sample unit failed: %+v", res.Bag.Items())
	}
	c, err := uplc.NewMachine(res.Program.Version, 0).EvalConstant(res.Program.Term)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if c.String() != "(con integer 42)" {
		t.Fatalf("sample unit evaluates to %s, want 42", c.String())
	}
}

func TestWriteProgramFormats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main"+driver.UnitExt)
	if err := writeSampleUnit(path); err != nil {
		t.Fatal(err)
	}
	res, err := driver.LowerFile(context.Background(), path, driver.Options{})
	if err != nil || !res.OK() {
		t.Fatalf("LowerFile: %v", err)
	}
	out := filepath.Join(dir, "out")
	t.Cleanup(func() { lowerFormat = "pretty" })
	for _, tc := range []struct{ format, file string }{
		{"compact", "main.uplc"},
		{"msgpack", "main.uplc.mp"},
	} {
		lowerFormat = tc.format
		if err := writeProgram(out, res); err != nil {
			t.Fatalf("writeProgram(%s): %v", tc.format, err)
		}
		if _, err := os.Stat(filepath.Join(out, tc.file)); err != nil {
			t.Fatalf("expected %s: %v", tc.file, err)
		}
	}
}
