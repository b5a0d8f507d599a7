package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestInfoOptionalFields(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version, GitCommit, BuildDate = "1.2.3", "", ""
	if got := Info(false); got != "sirc 1.2.3\n" {
		t.Fatalf("Info = %q", got)
	}
	GitCommit, BuildDate = "abc123", "2024-01-15T10:30:00Z"
	got := Info(false)
	if !strings.Contains(got, "commit: abc123") || !strings.Contains(got, "built:  2024-01-15T10:30:00Z") {
		t.Fatalf("Info = %q", got)
	}
}

func TestColoredKeepsText(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = orig, origNoColor }()
	color.NoColor = true

	for _, v := range []string{"0.1.0-dev", "2.0.1", "nightly"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q without colour", got, v)
		}
	}
}
