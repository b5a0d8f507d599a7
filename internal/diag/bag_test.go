package diag_test

import (
	"testing"

	"sirc/internal/diag"
	"sirc/internal/source"
)

func TestBagLimitAndFlags(t *testing.T) {
	b := diag.NewBag(2)
	r := diag.BagReporter{Bag: b}
	diag.ReportWarning(r, diag.LowGenericCastFallback, source.Span{Start: 4, End: 5}, "w").Emit()
	diag.ReportInfo(r, diag.LowInfo, source.Span{}, "i").Emit()
	diag.ReportError(r, diag.LowInternal, source.Span{}, "dropped").Emit()

	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	if b.HasErrors() {
		t.Fatalf("error over the limit must not be stored")
	}
	if !b.HasWarnings() {
		t.Fatalf("expected warnings")
	}
	if b.Dropped() != 1 || b.Count(diag.SevInfo) != 2 || b.Count(diag.SevWarning) != 1 {
		t.Fatalf("dropped=%d counts=%d/%d", b.Dropped(), b.Count(diag.SevInfo), b.Count(diag.SevWarning))
	}
}

func TestBagSortDedup(t *testing.T) {
	b := diag.NewBag(10)
	b.Add(diag.NewWarning(diag.LowDroppedBinding, source.Span{Start: 9, End: 10}, "late"))
	b.Add(diag.NewWarning(diag.LowDroppedBinding, source.Span{Start: 1, End: 2}, "early"))
	b.Add(diag.NewWarning(diag.LowDroppedBinding, source.Span{Start: 1, End: 2}, "early"))
	b.Sort()
	b.Dedup()

	items := b.Items()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Message != "early" {
		t.Fatalf("first = %q, want early", items[0].Message)
	}
}

func TestDedupReporter(t *testing.T) {
	b := diag.NewBag(10)
	r := diag.NewDedupReporter(diag.BagReporter{Bag: b})
	for range 3 {
		r.Report(diag.NewWarning(diag.LowTypeVarErasure, source.Span{}, "same"))
	}
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}
}

func TestCodeID(t *testing.T) {
	if got := diag.LowNoConversion.ID(); got != "LOW2002" {
		t.Fatalf("ID = %q", got)
	}
	if got := diag.IRDecodeFailed.ID(); got != "SIR1001" {
		t.Fatalf("ID = %q", got)
	}
}

func TestWithNoteDoesNotAlias(t *testing.T) {
	base := diag.NewError(diag.LowNoConversion, source.Span{}, "no conversion").WithNote(source.Span{}, "from")
	a := base.WithNote(source.Span{}, "a")
	b := base.WithNote(source.Span{}, "b")
	if a.Notes[1].Msg != "a" || b.Notes[1].Msg != "b" || len(base.Notes) != 1 {
		t.Fatalf("notes aliased: %+v %+v", a.Notes, b.Notes)
	}
	if got := a.String(); got != "ERROR LOW2002: no conversion" {
		t.Fatalf("String = %q", got)
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	var got []diag.Diagnostic
	r := diag.ReportFunc(func(d diag.Diagnostic) { got = append(got, d) })
	b := diag.ReportWarning(r, diag.LowDroppedBinding, source.Span{}, "unused").WithNote(source.Span{}, "bound here")
	b.Emit()
	b.Emit()
	if len(got) != 1 || len(got[0].Notes) != 1 {
		t.Fatalf("emitted %+v", got)
	}
}
