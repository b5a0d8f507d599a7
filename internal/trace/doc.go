// Package trace provides the tracing subsystem of sirc.
//
// Tracing is how the driver and the lowering engine log. The driver opens a
// span per compilation unit; the lowering engine, when the unit is lowered in
// debug mode, emits node-level point events for every placement decision
// (bind, inline, hoist past a closure) and every representation conversion.
//
// # Usage
//
//	sirc lower --trace=- --trace-level=debug unit.sir
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: circular buffer, dumped when lowering fails
//   - MultiTracer: fan-out to several tracers (RingOf finds its ring)
//
// # Levels and scopes
//
// LevelPhase emits ScopeDriver events, LevelDetail adds ScopeUnit (one span
// per lowered unit) and LevelDebug adds ScopeNode (engine decisions).
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopeUnit, "lower "+name)
//	defer span.End("")
//
// Start takes the tracer and the parent span from ctx; Begin is the
// explicit form for callers that hold a Tracer directly.
package trace
