package source_test

import (
	"testing"

	"sirc/internal/source"
)

func TestFileSetResolve(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Add("a/b.sc", []byte("one\ntwo\nthree"))

	start, end := fs.Resolve(source.Span{File: id, Start: 4, End: 7})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("start = %+v, want 2:1", start)
	}
	if end.Line != 2 || end.Col != 4 {
		t.Fatalf("end = %+v, want 2:4", end)
	}
	if got := fs.Format(source.Span{File: id, Start: 9, End: 10}); got != "a/b.sc:3:2" {
		t.Fatalf("Format = %q", got)
	}
}

func TestFileSetAddPathDedup(t *testing.T) {
	fs := source.NewFileSet()
	a := fs.AddPath("x.sc")
	b := fs.AddPath("x.sc")
	if a != b {
		t.Fatalf("same path registered twice: %d vs %d", a, b)
	}
	if got := fs.Format(source.Span{File: a, Start: 12, End: 14}); got != "x.sc:@12" {
		t.Fatalf("Format without content = %q", got)
	}
}

func TestSpanCover(t *testing.T) {
	a := source.Span{File: 1, Start: 5, End: 8}
	b := source.Span{File: 1, Start: 2, End: 6}
	got := a.Cover(b)
	if got.Start != 2 || got.End != 8 {
		t.Fatalf("Cover = %v", got)
	}
	if c := a.Cover(source.Span{File: 2, Start: 0, End: 1}); c != a {
		t.Fatalf("cross-file Cover changed span: %v", c)
	}
}
