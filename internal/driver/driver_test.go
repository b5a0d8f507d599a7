package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"sirc/internal/diag"
	"sirc/internal/driver"
	"sirc/internal/sir"
	"sirc/internal/uplc"
)

func writeUnit(t *testing.T, dir, name string, root *sir.Expr) string {
	t.Helper()
	m := &sir.Module{Name: name, Root: root}
	data, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name+driver.UnitExt)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func sum(a, b int64) *sir.Expr {
	return sir.Call(sir.BuiltinRef(uplc.AddInteger), sir.IntLit(a), sir.IntLit(b))
}

func evalInt(t *testing.T, p *uplc.Program) int64 {
	t.Helper()
	c, err := uplc.NewMachine(p.Version, 100_000).EvalConstant(p.Term)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if c.Int == nil {
		t.Fatalf("result %s is not an integer", c)
	}
	return c.Int.Int64()
}

type recordSink struct {
	mu     sync.Mutex
	events []driver.Event
}

func (s *recordSink) OnEvent(ev driver.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) last(file string) driver.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out driver.Event
	for _, ev := range s.events {
		if ev.File == file {
			out = ev
		}
	}
	return out
}

func TestLowerFile(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "three", sum(1, 2))
	var phases []string
	res, err := driver.LowerFile(context.Background(), path, driver.Options{
		Target: uplc.V3,
		PhaseObserver: func(ev driver.PhaseEvent) {
			if ev.Status == driver.PhaseEnd {
				phases = append(phases, ev.Name)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() || res.Module != "three" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := evalInt(t, res.Program); got != 3 {
		t.Fatalf("got %d", got)
	}
	want := []string{"read", "decode", "validate", "lower"}
	if len(phases) != len(want) {
		t.Fatalf("phases %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases %v, want %v", phases, want)
		}
	}
}

func TestLowerFileReportsProblems(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage"+driver.UnitExt)
	if err := os.WriteFile(garbage, []byte{0xc1, 0x00}, 0o600); err != nil {
		t.Fatal(err)
	}
	cases := map[string]struct {
		path string
		code diag.Code
	}{
		"missing file": {filepath.Join(dir, "nope.sir"), diag.DrvIOError},
		"garbage":      {garbage, diag.IRDecodeFailed},
		"unbound":      {writeUnit(t, dir, "unbound", sir.Ref("x", sir.Integer())), 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := driver.LowerFile(context.Background(), tc.path, driver.Options{})
			if err != nil {
				t.Fatal(err)
			}
			if res.OK() || res.Program != nil || !res.Bag.HasErrors() {
				t.Fatalf("expected a failed unit, got %+v", res)
			}
			if tc.code != 0 && res.Bag.Items()[0].Code != tc.code {
				t.Fatalf("code %s, want %s", res.Bag.Items()[0].Code.ID(), tc.code.ID())
			}
		})
	}
}

func TestLowerAllWithCache(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeUnit(t, dir, "a", sum(1, 2)),
		writeUnit(t, dir, "b", sum(10, 20)),
		writeUnit(t, dir, "c", sir.Ref("free", sir.Integer())),
	}
	cache, err := driver.OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	sink := &recordSink{}
	opts := driver.Options{Target: uplc.V4, Jobs: 2, Cache: cache, Progress: sink}

	first, err := driver.LowerAll(context.Background(), paths, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Failed() != 1 || first.Units[2].OK() {
		t.Fatalf("expected only c to fail, failed=%d", first.Failed())
	}
	if got := evalInt(t, first.Units[1].Program); got != 30 {
		t.Fatalf("b = %d", got)
	}
	if ev := sink.last(paths[0]); ev.Status != driver.StatusDone {
		t.Fatalf("last event for a: %+v", ev)
	}

	second, err := driver.LowerAll(context.Background(), paths, opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		u := second.Units[i]
		if !u.Cached || !u.OK() {
			t.Fatalf("unit %d not answered from cache: %+v", i, u)
		}
		if u.Program.Term.String() != first.Units[i].Program.Term.String() {
			t.Fatalf("cached program differs: %s vs %s", u.Program.Term, first.Units[i].Program.Term)
		}
	}
	if second.Units[2].Cached {
		t.Fatal("failed units are never cached")
	}
	if ev := sink.last(paths[0]); ev.Status != driver.StatusCached {
		t.Fatalf("last event for a: %+v", ev)
	}
}

func TestCacheKeyDependsOnOptions(t *testing.T) {
	unit := []byte("unit")
	base := driver.CacheKey(unit, driver.Options{Target: uplc.V3})
	if base != driver.CacheKey(unit, driver.Options{}) {
		t.Fatal("the default target is V3")
	}
	for _, o := range []driver.Options{{Target: uplc.V4}, {Debug: true}, {NoLink: true}} {
		if driver.CacheKey(unit, o) == base {
			t.Fatalf("options %+v must change the key", o)
		}
	}
	if driver.CacheKey([]byte("other"), driver.Options{}) == base {
		t.Fatal("content must change the key")
	}
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	b := writeUnit(t, dir, "b", sum(1, 1))
	a := writeUnit(t, dir, "a", sum(1, 1))
	got, err := driver.ExpandArgs([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("got %v", got)
	}
	if _, err := driver.ExpandArgs([]string{t.TempDir()}); err == nil {
		t.Fatal("an empty directory is an error")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := driver.LowerFile(ctx, "x.sir", driver.Options{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
