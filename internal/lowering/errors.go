package lowering

import (
	"fmt"
	"strings"

	"sirc/internal/diag"
	"sirc/internal/sir"
	"sirc/internal/source"
)

const (
	codeInternal           = diag.LowInternal
	codeNoConversion       = diag.LowNoConversion
	codeEmptyUpcast        = diag.LowEmptyUpcast
	codeUnboundVar         = diag.LowUnboundVar
	codeArmsNotUnifiable   = diag.LowArmsNotUnifiable
	codeUnsupportedBuiltin = diag.LowUnsupportedBuiltin
	codeBadIR              = diag.LowBadIR
)

// Error is a fatal lowering failure. Lowering stops at the first one.
type Error struct {
	Code  diag.Code
	Span  source.Span
	Msg   string
	Types []*sir.Type
	Reprs []Repr
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.ID())
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if len(e.Types) > 0 {
		parts := make([]string, len(e.Types))
		for i, t := range e.Types {
			parts[i] = t.String()
		}
		fmt.Fprintf(&sb, " [types: %s]", strings.Join(parts, ", "))
	}
	if len(e.Reprs) > 0 {
		parts := make([]string, len(e.Reprs))
		for i, r := range e.Reprs {
			parts[i] = r.String()
		}
		fmt.Fprintf(&sb, " [reprs: %s]", strings.Join(parts, ", "))
	}
	return sb.String()
}

// Diagnostic converts the error for a diagnostic bag.
func (e *Error) Diagnostic() diag.Diagnostic {
	d := diag.NewError(e.Code, e.Span, e.Msg)
	for _, t := range e.Types {
		d = d.WithNote(e.Span, "type: "+t.String())
	}
	for _, r := range e.Reprs {
		d = d.WithNote(e.Span, "representation: "+r.String())
	}
	return d
}

// Report sends the error to r.
func (e *Error) Report(r diag.Reporter) {
	if r == nil {
		return
	}
	r.Report(e.Diagnostic())
}

// failCode aborts lowering with a typed error.
func (l *Lowering) failCode(code diag.Code, sp source.Span, types []*sir.Type, reprs []Repr, format string, args ...any) {
	err := &Error{Code: code, Span: sp, Msg: fmt.Sprintf(format, args...), Types: types, Reprs: reprs}
	l.tracePoint("fatal", err.Error())
	panic(err)
}

// fail aborts with an internal error.
func (l *Lowering) fail(types []*sir.Type, sp source.Span, format string, args ...any) {
	l.failCode(codeInternal, sp, types, nil, format, args...)
}

func (l *Lowering) warn(code diag.Code, sp source.Span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.stats.Warnings++
	l.tracePoint("warning", msg)
	diag.ReportWarning(l.reporter, code, sp, msg).Emit()
}
