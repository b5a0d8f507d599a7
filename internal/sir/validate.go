package sir

import (
	"fmt"

	"sirc/internal/diag"
	"sirc/internal/source"
)

// Validate checks the structural well-formedness of m before lowering:
// every variable is bound, constructors and fields exist, operands are
// present. It reports to r and returns false if anything was wrong.
func Validate(m *Module, ts TypeSystem, r diag.Reporter) bool {
	if r == nil {
		r = diag.NopReporter{}
	}
	v := validator{ts: ts, r: r, ok: true}
	v.expr(m.Root, nil)
	return v.ok
}

type validator struct {
	ts TypeSystem
	r  diag.Reporter
	ok bool
}

type scope struct {
	name string
	next *scope
}

func (s *scope) has(name string) bool {
	for ; s != nil; s = s.next {
		if s.name == name {
			return true
		}
	}
	return false
}

func (s *scope) with(names ...string) *scope {
	for _, n := range names {
		s = &scope{name: n, next: s}
	}
	return s
}

func (v *validator) report(code diag.Code, e *Expr, format string, args ...any) {
	v.ok = false
	diag.ReportError(v.r, code, e.Span, fmt.Sprintf(format, args...)).Emit()
}

func (v *validator) operands(e *Expr, n int) bool {
	if len(e.Operands) != n {
		v.report(diag.IRMalformed, e, "%s expects %d operands, has %d", e.Kind, n, len(e.Operands))
		return false
	}
	return true
}

func (v *validator) expr(e *Expr, sc *scope) {
	if e == nil {
		v.ok = false
		diag.ReportError(v.r, diag.IRMalformed, source.NoSpan, "missing expression").Emit()
		return
	}
	if e.Type == nil {
		v.report(diag.IRMalformed, e, "%s has no type", e.Kind)
	}
	switch e.Kind {
	case ExprVar:
		if !sc.has(e.Name) {
			v.report(diag.IRMalformed, e, "unbound variable %s", e.Name)
		}
	case ExprConst:
		if e.Const == nil {
			v.report(diag.IRMalformed, e, "constant without value")
		}
	case ExprBuiltin, ExprError:
	case ExprLet:
		inner := sc
		for _, b := range e.Bindings {
			if e.Recursive {
				inner = inner.with(b.Name)
			}
		}
		for _, b := range e.Bindings {
			if e.Recursive {
				v.expr(b.Value, inner)
			} else {
				v.expr(b.Value, sc)
			}
		}
		if !e.Recursive {
			for _, b := range e.Bindings {
				inner = inner.with(b.Name)
			}
		}
		v.expr(e.Body, inner)
	case ExprLamAbs:
		v.expr(e.Body, sc.with(e.Name))
	case ExprApply:
		v.expr(e.Fun, sc)
		v.expr(e.Arg, sc)
	case ExprAnd, ExprOr:
		if v.operands(e, 2) {
			v.expr(e.Operands[0], sc)
			v.expr(e.Operands[1], sc)
		}
	case ExprNot, ExprCast:
		if v.operands(e, 1) {
			v.expr(e.Operands[0], sc)
		}
	case ExprIfThenElse:
		if v.operands(e, 3) {
			for _, o := range e.Operands {
				v.expr(o, sc)
			}
		}
	case ExprSelect:
		if v.operands(e, 1) {
			v.expr(e.Operands[0], sc)
		}
	case ExprConstr:
		d, ok := v.ts.Decl(e.Decl)
		if !ok {
			v.report(diag.IRUnknownDecl, e, "unknown data declaration %s", e.Decl)
			return
		}
		_, c, ok := d.Constr(e.Name)
		if !ok {
			v.report(diag.IRMalformed, e, "%s has no constructor %s", d.Name, e.Name)
			return
		}
		if len(c.Params) != len(e.Operands) {
			v.report(diag.IRMalformed, e, "%s expects %d arguments, has %d", c.Name, len(c.Params), len(e.Operands))
		}
		for _, o := range e.Operands {
			v.expr(o, sc)
		}
	case ExprMatch:
		if !v.operands(e, 1) {
			return
		}
		v.expr(e.Operands[0], sc)
		for _, c := range e.Cases {
			v.expr(c.Body, sc.with(c.Binders...))
		}
	default:
		v.report(diag.IRMalformed, e, "unknown expression kind %s", e.Kind)
	}
}
