package lowering

import (
	"sirc/internal/diag"
	"sirc/internal/sir"
	"sirc/internal/source"
)

// upcast makes id usable as a value of type to. Unifiable types need no
// work; otherwise each step of the type system's upcast chain changes the
// value's type, and its representation where the layouts differ.
func (l *Lowering) upcast(id ValueID, to *sir.Type, sp source.Span) ValueID {
	v := l.value(id)
	if to == nil || v.Type == nil || v.Type.Equal(to) {
		return id
	}
	if r := l.types.Unify(v.Type, to, false); r.OK {
		return id
	}
	chain := l.types.UpcastChain(v.Type, to)
	if len(chain) == 0 {
		l.failCode(codeEmptyUpcast, sp, []*sir.Type{v.Type, to}, []Repr{v.Repr},
			"cannot upcast %s to %s", v.Type, to)
	}
	cur := id
	for _, step := range chain {
		cur = l.upcastStep(cur, step, sp)
	}
	return cur
}

func (l *Lowering) upcastStep(id ValueID, to *sir.Type, sp source.Span) ValueID {
	v := l.value(id)
	from, dst := v.Type.Unwrap(), to.Unwrap()
	switch {
	case from.Kind == sir.TypeNothing || v.Repr.Kind == ReprError:
		return l.reinterpret(id, to, l.DefaultRepr(to))
	case from.Kind == sir.TypeCaseClass && dst.Kind == sir.TypeSum && from.Name == dst.Name:
		if l.familyOf(to) == famList || l.types.IsProduct(dst) {
			return l.reinterpret(id, to, v.Repr)
		}
		x := l.toRepr(id, ProdDataConstr)
		return l.reinterpret(x, to, SumDataConstr)
	case dst.Kind == sir.TypeVar:
		if dst.Builtin {
			return l.reinterpret(id, to, BuiltinTypeVar)
		}
		x := l.toRepr(id, l.DataRepr(v.Type))
		return l.reinterpret(x, to, UserTypeVar)
	}
	l.warn(diag.LowGenericCastFallback, sp, "generic upcast from %s to %s", v.Type, to)
	return l.reinterpret(id, to, v.Repr)
}
