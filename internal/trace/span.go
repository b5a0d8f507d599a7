package trace

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
	openSpans   atomic.Int64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// OpenSpans is the number of spans begun and not yet ended.
func OpenSpans() int64 { return openSpans.Load() }

// goroutineID parses "goroutine N [" from runtime.Stack.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b, ok := bytes.CutPrefix(b, []byte("goroutine "))
	if !ok {
		return 0
	}
	if end := bytes.IndexByte(b, ' '); end >= 0 {
		b = b[:end]
	}
	gid, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span tracks one begin/end pair. A Span from a disabled tracer is inert
// but still measures its duration.
type Span struct {
	tracer  Tracer
	begin   *Event
	started time.Time
	extra   map[string]string
	ended   atomic.Bool
}

// Begin starts a span under parent (0 for a root) and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	s := &Span{started: time.Now()}
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return s
	}
	ev := newEvent(KindSpanBegin, scope, name)
	ev.SpanID = spanCounter.Add(1)
	ev.ParentID = parent
	s.tracer, s.begin = t, ev
	openSpans.Add(1)
	t.Emit(ev)
	return s
}

// Start begins a span using the tracer and parent carried by ctx and returns
// a context whose current span is the new one.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	s := Begin(FromContext(ctx), scope, name, CurrentSpan(ctx).SpanID)
	if s.begin == nil {
		return ctx, s
	}
	return WithSpanContext(ctx, SpanContext{SpanID: s.begin.SpanID, GID: s.begin.GID}), s
}

// End emits the end event once and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	dur := time.Since(s.started)
	if s.begin == nil || s.ended.Swap(true) {
		return dur
	}
	openSpans.Add(-1)
	ev := newEvent(KindSpanEnd, s.begin.Scope, s.begin.Name)
	ev.SpanID, ev.ParentID = s.begin.SpanID, s.begin.ParentID
	ev.Detail = detail
	ev.Extra = s.extra
	s.tracer.Emit(ev)
	return dur
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.begin == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil || s.begin == nil {
		return 0
	}
	return s.begin.SpanID
}

// Point emits an instant event under parent when scope is enabled.
func Point(t Tracer, scope Scope, parent uint64, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	ev := newEvent(KindPoint, scope, name)
	ev.ParentID = parent
	ev.Detail = detail
	t.Emit(ev)
}
