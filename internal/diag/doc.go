// Package diag defines the diagnostic model shared by the SIR decoder, the
// lowering engine and the driver.
//
// Lowering never produces user-facing errors: every fatal condition is a bug
// in an earlier compiler phase and aborts the unit through a typed error
// (see internal/lowering). The diagnostics collected here are the secondary,
// non-fatal channel: warnings about safe-but-surprising choices the engine
// made (generic cast fallbacks, erased type variables, dropped bindings),
// plus the driver's own I/O and manifest problems.
//
// Producers use a Reporter (usually a BagReporter, optionally wrapped in a
// DedupReporter) and either call Report directly or chain a ReportBuilder:
//
//	diag.ReportWarning(r, diag.LowGenericCastFallback, span, msg).
//		WithNote(other, "value defined here").
//		Emit()
//
// Rendering lives in internal/diagfmt.
package diag
