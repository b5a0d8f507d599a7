package lowering

import (
	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/uplc"
)

// paramRepr is the representation a builtin expects for a parameter of
// signature type t.
func paramRepr(t *sir.Type) Repr {
	if u := t.Unwrap(); u.Kind == sir.TypeVar {
		return BuiltinTypeVar
	}
	return Constant
}

// builtinRefRepr is the closure representation of an unapplied builtin.
func (l *Lowering) builtinRefRepr(fun uplc.DefaultFun) Repr {
	ins, out := sir.BuiltinParamTypes(fun)
	r := paramRepr(out)
	for i := len(ins) - 1; i >= 0; i-- {
		r = LambdaRepr(paramRepr(ins[i]), r)
	}
	return r
}

// isResultVar reports whether the signature parameter p is the builtin
// variable the result is typed by.
func isResultVar(p, out *sir.Type) bool {
	p, out = p.Unwrap(), out.Unwrap()
	return p.Kind == sir.TypeVar && out.Kind == sir.TypeVar && p.VarID == out.VarID
}

// builtinArg converts an argument for a builtin parameter of type p.
// Builtin-family arguments go in as constants; a user value passed where
// Data is expected goes in as its Data encoding.
func (l *Lowering) builtinArg(id ValueID, p *sir.Type) ValueID {
	v := l.value(id)
	if v.Repr.Kind == ReprError {
		return id
	}
	pu := p.Unwrap()
	if pu.Kind == sir.TypeData && !v.Type.Unwrap().IsBuiltinFamily() && l.familyOf(v.Type) != famTypeVar {
		x := l.toRepr(id, l.DataRepr(v.Type))
		return l.reinterpret(x, sir.DataT(), Constant)
	}
	if pu.Kind == sir.TypeVar && !v.Type.Unwrap().IsBuiltinFamily() {
		return id
	}
	return l.toRepr(id, Constant)
}

// lowerBuiltinCall lowers a saturated builtin application. t is the type of
// the application.
func (l *Lowering) lowerBuiltinCall(fun uplc.DefaultFun, args []*sir.Expr, t *sir.Type, sp source.Span) ValueID {
	ins, out := sir.BuiltinParamTypes(fun)
	polyOut := out.Unwrap().Kind == sir.TypeVar
	resRepr := Constant
	if polyOut {
		resRepr = l.DefaultRepr(t)
	}
	vals := make([]ValueID, len(ins))
	for i, p := range ins {
		a := l.lowerExpr(args[i])
		if polyOut && isResultVar(p, out) {
			a = l.upcast(a, t, args[i].Span)
			a = l.toRepr(a, resRepr)
		} else {
			a = l.builtinArg(a, p)
		}
		vals[i] = a
	}
	return l.builtin(fun, t, resRepr, sp, vals...)
}
