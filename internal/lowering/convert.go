package lowering

import (
	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/uplc"
)

// convEdge is one direct conversion between two representation kinds of a
// family. build emits the runtime conversion; fold converts a known constant
// and may be nil.
type convEdge struct {
	from, to ReprKind
	build    func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID
	fold     func(c uplc.Constant) (uplc.Constant, bool)
}

// ToRepr converts id to representation r, inserting whatever runtime work
// the change of layout needs.
func (l *Lowering) ToRepr(id ValueID, r Repr) (out ValueID, err error) {
	defer l.recover(&err)
	return l.toRepr(id, r), nil
}

// ConstantValue allocates a constant of type t already laid out as r.
func (l *Lowering) ConstantValue(c uplc.Constant, t *sir.Type, r Repr) ValueID {
	return l.constIn(c, t, r, source.NoSpan)
}

func (l *Lowering) toRepr(id ValueID, r Repr) ValueID {
	v := l.value(id)
	if v.Repr.Equal(r) {
		return id
	}
	if l.IsCompatible(v.Type, v.Repr, r) {
		return l.reinterpret(id, v.Type, r)
	}
	if root, ok := l.rootVar(id); ok {
		return l.aliasOf(root, r)
	}
	return l.convert(id, r)
}

// rootVar finds the variable a value is a view of: the origin of an alias,
// or the variable under a same-typed reinterpretation.
func (l *Lowering) rootVar(id ValueID) (ValueID, bool) {
	v := l.value(id)
	switch v.Kind {
	case ValueAlias:
		return v.Origin, true
	case ValueVar:
		return id, true
	case ValueReinterpret:
		inner := l.value(v.Subs[0])
		if inner.Kind.IsIdentifiable() && inner.Type.Equal(v.Type) {
			return l.rootVar(v.Subs[0])
		}
	}
	return NoValueID, false
}

// aliasOf returns the memoised view of root in representation r. Every
// alias converts from the root, never from another alias.
func (l *Lowering) aliasOf(root ValueID, r Repr) ValueID {
	rv := l.value(root)
	if rv.Repr.Equal(r) {
		return root
	}
	if l.IsCompatible(rv.Type, rv.Repr, r) {
		return l.reinterpret(root, rv.Type, r)
	}
	key := r.key()
	if byRepr, ok := l.aliases[root]; ok {
		if a, ok := byRepr[key]; ok {
			return a
		}
	} else {
		l.aliases[root] = map[string]ValueID{}
	}
	if c, ok := l.constOf(root); ok {
		if folded, ok := l.foldPath(c, rv.Type, rv.Repr, r); ok {
			out := l.constIn(folded, rv.Type, r, rv.Span)
			l.aliases[root][key] = out
			return out
		}
	}
	conv := l.convert(root, r)
	rv = l.value(root)
	a := l.alloc(Value{
		Kind:   ValueAlias,
		Name:   l.freshName(rv.Name + "_" + aliasSuffix(r)),
		Type:   rv.Type,
		Repr:   r,
		Origin: root,
		Span:   rv.Span,
	})
	l.setRhs(a, conv)
	l.aliases[root][key] = a
	l.stats.Aliases++
	l.tracePoint("alias", rv.Name+" as "+r.String())
	return a
}

func aliasSuffix(r Repr) string {
	switch r.Kind {
	case ReprConstant:
		return "c"
	case ReprPackedData:
		return "d"
	case ReprLambda:
		return "fn"
	case ReprSumDataList, ReprProdDataList:
		return "l"
	case ReprSumDataPairList, ReprProdPair:
		return "p"
	}
	return "r"
}

// constOf finds the constant a value is known to be.
func (l *Lowering) constOf(id ValueID) (uplc.Constant, bool) {
	for i := 0; i < 64; i++ {
		v := l.value(id)
		switch v.Kind {
		case ValueConst:
			return v.Const, true
		case ValueVar, ValueAlias:
			if !v.Rhs.IsValid() {
				return uplc.Constant{}, false
			}
			id = v.Rhs
		case ValueReinterpret:
			id = v.Subs[0]
		default:
			return uplc.Constant{}, false
		}
	}
	return uplc.Constant{}, false
}

// constIn allocates a constant laid out as r.
func (l *Lowering) constIn(c uplc.Constant, t *sir.Type, r Repr, sp source.Span) ValueID {
	return l.newNode(Value{Kind: ValueConst, Const: c, Type: t, Repr: r, Span: sp})
}

// convert performs a change of representation that is not a plain
// reinterpretation.
func (l *Lowering) convert(id ValueID, r Repr) ValueID {
	v := l.value(id)
	t, from, sp := v.Type, v.Repr, v.Span
	switch {
	case from.Kind == ReprError:
		return l.reinterpret(id, t, r)
	case r.Kind == ReprTypeVar && r.Builtin:
		return l.reinterpret(id, t, r)
	case r.Kind == ReprTypeVar:
		x := l.toRepr(id, l.DataRepr(t))
		return l.reinterpret(x, t, r)
	case from.Kind == ReprTypeVar:
		base := l.DataRepr(t)
		if from.Builtin {
			base = l.DefaultRepr(t)
		}
		return l.toRepr(l.reinterpret(id, t, base), r)
	case from.Kind == ReprLambda || r.Kind == ReprLambda:
		return l.convertLambda(id, r)
	}
	from, to := l.normalize(t, from), l.normalize(t, r)
	if from.Equal(to) {
		return l.reinterpret(id, t, r)
	}
	path := l.conversionPath(t, from.Kind, to.Kind)
	if path == nil {
		l.failCode(codeNoConversion, sp, []*sir.Type{t}, []Repr{v.Repr, r},
			"no conversion from %s to %s for %s", v.Repr, r, t)
	}
	cur := id
	for _, e := range path {
		cur = l.step(cur, e, t, sp)
	}
	return l.reinterpret(cur, t, r)
}

// step applies one edge, folding when the input is a known constant.
func (l *Lowering) step(id ValueID, e convEdge, t *sir.Type, sp source.Span) ValueID {
	if e.fold != nil {
		if c, ok := l.constOf(id); ok {
			if out, ok := e.fold(c); ok {
				return l.constIn(out, t, Repr{Kind: e.to}, sp)
			}
		}
	}
	out := e.build(l, id, t, sp)
	ov := l.value(out)
	if ov.Repr.Kind != e.to {
		return l.reinterpret(out, t, Repr{Kind: e.to})
	}
	return out
}

// foldPath converts a constant along the conversion path, if every edge can
// fold it.
func (l *Lowering) foldPath(c uplc.Constant, t *sir.Type, from, to Repr) (uplc.Constant, bool) {
	if from.Kind == ReprLambda || to.Kind == ReprLambda || from.Kind == ReprTypeVar || to.Kind == ReprTypeVar {
		return uplc.Constant{}, false
	}
	f, g := l.normalize(t, from), l.normalize(t, to)
	if f.Equal(g) || l.IsCompatible(t, f, g) {
		return c, true
	}
	path := l.conversionPath(t, f.Kind, g.Kind)
	if path == nil {
		return uplc.Constant{}, false
	}
	for _, e := range path {
		if e.fold == nil {
			return uplc.Constant{}, false
		}
		var ok bool
		if c, ok = e.fold(c); !ok {
			return uplc.Constant{}, false
		}
	}
	return c, true
}

// normalize maps generic PackedData onto the family's own packed form.
func (l *Lowering) normalize(t *sir.Type, r Repr) Repr {
	if r.Kind != ReprPackedData {
		return r
	}
	switch l.familyOf(t) {
	case famList, famSum, famProduct:
		return l.DataRepr(t)
	}
	return r
}

// conversionPath finds the shortest chain of edges between two kinds.
func (l *Lowering) conversionPath(t *sir.Type, from, to ReprKind) []convEdge {
	edges := l.edgesFor(t)
	type hop struct {
		prev ReprKind
		edge convEdge
	}
	seen := map[ReprKind]hop{from: {}}
	queue := []ReprKind{from}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if k == to {
			var path []convEdge
			for k != from {
				h := seen[k]
				path = append([]convEdge{h.edge}, path...)
				k = h.prev
			}
			return path
		}
		for _, e := range edges {
			if e.from != k {
				continue
			}
			if _, ok := seen[e.to]; ok {
				continue
			}
			seen[e.to] = hop{prev: k, edge: e}
			queue = append(queue, e.to)
		}
	}
	return nil
}

// edgesFor lists the direct conversions available for values of t.
func (l *Lowering) edgesFor(t *sir.Type) []convEdge {
	u := t.Unwrap()
	switch l.familyOf(t) {
	case famPrimitive:
		return primitiveEdges(u.Kind)
	case famBuiltin:
		return l.builtinEdges(u)
	case famList:
		return l.listEdges(u)
	case famProduct:
		return l.productEdges(u)
	}
	return nil
}

// convertLambda wraps a closure so that its argument and result follow
// another representation.
func (l *Lowering) convertLambda(id ValueID, r Repr) ValueID {
	v := l.value(id)
	t, from, sp := v.Type, v.Repr, v.Span
	if from.Kind != ReprLambda || r.Kind != ReprLambda {
		l.failCode(codeNoConversion, sp, []*sir.Type{t}, []Repr{from, r},
			"no conversion from %s to %s for %s", from, r, t)
	}
	f := id
	if !l.isEffortless(id) {
		f = l.letVar("f", id)
	}
	in, out := t.In(), t.Out()
	var body, param ValueID
	switch {
	case from.Delayed && r.Delayed:
		body = l.force(f, out, *from.Out)
	case from.Delayed:
		param = l.newVar("u", in, *r.In, NoValueID, sp)
		body = l.force(f, out, *from.Out)
	case r.Delayed:
		arg := l.toRepr(l.constValue(uplc.Unit(), sir.Unit(), sp), *from.In)
		body = l.apply(f, arg, out, *from.Out, sp)
	default:
		param = l.newVar("x", in, *r.In, NoValueID, sp)
		body = l.apply(f, l.toRepr(param, *from.In), out, *from.Out, sp)
	}
	body = l.toRepr(body, *r.Out)
	return l.lambda(param, body, t, r, false, sp)
}
