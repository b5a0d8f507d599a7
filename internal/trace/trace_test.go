package trace_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"sirc/internal/trace"
)

func TestLevelScopes(t *testing.T) {
	cases := []struct {
		level trace.Level
		scope trace.Scope
		want  bool
	}{
		{trace.LevelOff, trace.ScopeDriver, false},
		{trace.LevelPhase, trace.ScopeDriver, true},
		{trace.LevelPhase, trace.ScopeUnit, false},
		{trace.LevelDetail, trace.ScopeUnit, true},
		{trace.LevelDetail, trace.ScopeNode, false},
		{trace.LevelDebug, trace.ScopeNode, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr, err := trace.New(trace.Config{Level: trace.LevelDebug, Mode: trace.ModeStream, Output: &buf, Format: trace.FormatText})
	if err != nil {
		t.Fatal(err)
	}
	sp := trace.Begin(tr, trace.ScopeUnit, "lower:main", 0)
	trace.Point(tr, trace.ScopeNode, sp.ID(), "bind", "x#3")
	sp.End("ok")

	out := buf.String()
	for _, want := range []string{"→ lower:main", "• bind (x#3)", "← lower:main (ok)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRingTracerKeepsLast(t *testing.T) {
	ring := trace.NewRingTracer(2, trace.LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		trace.Point(ring, trace.ScopeNode, 0, name, "")
	}
	evs := ring.Snapshot()
	if len(evs) != 2 || evs[0].Name != "b" || evs[1].Name != "c" {
		t.Fatalf("snapshot = %+v", evs)
	}
}

func TestContextPropagation(t *testing.T) {
	if trace.FromContext(context.Background()) != trace.Nop {
		t.Fatalf("empty context must yield Nop")
	}
	ring := trace.NewRingTracer(4, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	if trace.FromContext(ctx) != trace.Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
}

func TestStartNestsSpans(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)

	ctx, outer := trace.Start(ctx, trace.ScopeDriver, "batch")
	_, inner := trace.Start(ctx, trace.ScopeUnit, "unit")
	if trace.CurrentSpan(ctx).SpanID != outer.ID() {
		t.Fatalf("context must carry the outer span")
	}
	if trace.FromContext(ctx) != trace.Tracer(ring) {
		t.Fatalf("tracer lost after WithSpanContext")
	}
	inner.End("")
	inner.End("twice")
	outer.End("")

	evs := ring.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("want 4 events, got %d: %+v", len(evs), evs)
	}
	if evs[1].ParentID != outer.ID() || evs[2].Kind != trace.KindSpanEnd || evs[2].Detail != "" {
		t.Fatalf("unexpected nesting: %+v", evs)
	}
}

func TestRingOfAndDropped(t *testing.T) {
	var buf bytes.Buffer
	tr, err := trace.New(trace.Config{Level: trace.LevelDebug, Mode: trace.ModeBoth, Output: &buf, RingSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	ring, ok := trace.RingOf(tr)
	if !ok {
		t.Fatal("both mode must expose its ring")
	}
	for _, name := range []string{"a", "b", "c"} {
		trace.Point(tr, trace.ScopeNode, 0, name, "")
	}
	if ring.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", ring.Dropped())
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("stream must see every event:\n%s", buf.String())
	}
	if _, ok := trace.RingOf(trace.Nop); ok {
		t.Fatal("Nop has no ring")
	}
}

func TestChromeFormatIsOneArray(t *testing.T) {
	var buf bytes.Buffer
	tr, err := trace.New(trace.Config{Level: trace.LevelDetail, Mode: trace.ModeStream, Output: &buf, OutputPath: "out.json"})
	if err != nil {
		t.Fatal(err)
	}
	sp := trace.Begin(tr, trace.ScopeUnit, "unit", 0)
	sp.End("")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "{\"traceEvents\":[") || !strings.HasSuffix(out, "]}\n") || strings.Count(out, "\"ph\"") != 2 {
		t.Fatalf("bad chrome trace:\n%s", out)
	}
}

func TestParseNames(t *testing.T) {
	if l, err := trace.ParseLevel(" Detail "); err != nil || l != trace.LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if m, err := trace.ParseMode(""); err != nil || m != trace.ModeStream {
		t.Fatalf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, _ := trace.ParseMode("both"); m.String() != "both" {
		t.Fatalf("mode round trip: %s", m)
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	h := trace.StartHeartbeat(ring, time.Millisecond)
	if h == nil {
		t.Fatal("heartbeat must start for an enabled tracer")
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	evs := ring.Snapshot()
	if len(evs) == 0 || evs[0].Kind != trace.KindHeartbeat || !strings.Contains(evs[0].Detail, "open=") {
		t.Fatalf("heartbeat events: %+v", evs)
	}
	if trace.StartHeartbeat(trace.Nop, time.Millisecond) != nil {
		t.Fatal("Nop must not start a heartbeat")
	}
}
