package observ_test

import (
	"strings"
	"testing"

	"sirc/internal/observ"
)

func TestTimerReport(t *testing.T) {
	tm := observ.NewTimer()
	a := tm.Begin("decode")
	tm.End(a, "")
	b := tm.Begin("lower")
	tm.End(b, "failed")
	tm.End(7, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[1].Note != "failed" {
		t.Fatalf("unexpected report %+v", r)
	}
	if tm.Elapsed(a) < 0 || tm.Elapsed(42) != 0 {
		t.Fatal("Elapsed out of range must be zero")
	}
	s := tm.Summary()
	for _, want := range []string{"decode", "lower", "// failed", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary %q lacks %q", s, want)
		}
	}
}

func TestReportMerge(t *testing.T) {
	var total observ.Report
	total.Merge(observ.Report{TotalMS: 2, Phases: []observ.PhaseReport{{Name: "lower", DurationMS: 2}}})
	total.Merge(observ.Report{TotalMS: 3, Phases: []observ.PhaseReport{{Name: "lower", DurationMS: 1}, {Name: "read", DurationMS: 2}}})
	if total.TotalMS != 5 || len(total.Phases) != 2 || total.Phases[0].DurationMS != 3 {
		t.Fatalf("merged %+v", total)
	}
}
