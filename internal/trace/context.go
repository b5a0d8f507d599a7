package trace

import "context"

// SpanContext identifies the active span for propagation.
type SpanContext struct {
	SpanID uint64
	GID    uint64
}

// frame is what a context carries: the tracer and the active span.
type frame struct {
	tracer Tracer
	span   SpanContext
}

type frameKey struct{}

func frameOf(ctx context.Context) frame {
	if ctx != nil {
		if f, ok := ctx.Value(frameKey{}).(frame); ok {
			return f
		}
	}
	return frame{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return frameOf(ctx).tracer
}

// WithTracer attaches t to ctx and keeps the active span.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	f := frameOf(ctx)
	f.tracer = t
	return context.WithValue(ctx, frameKey{}, f)
}

// CurrentSpan returns the active span, zero if none.
func CurrentSpan(ctx context.Context) SpanContext {
	return frameOf(ctx).span
}

// WithSpanContext makes sc the active span of the returned context.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	f := frameOf(ctx)
	f.span = sc
	return context.WithValue(ctx, frameKey{}, f)
}
