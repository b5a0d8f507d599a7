package lowering

import (
	"slices"

	"sirc/internal/diag"
	"sirc/internal/sir"
	"sirc/internal/uplc"
)

// Arm names of matches on builtin types.
var (
	boolArms = []string{"False", "True"}
	listArms = []string{sir.ConsConstr, sir.NilConstr}
	pairArms = []string{"Pair"}
	unitArms = []string{"Unit"}
	dataArms = []string{"Constr", "Map", "List", "I", "B"}
)

// matchCtx carries the arms of one match being lowered.
type matchCtx struct {
	e      *sir.Expr
	resT   *sir.Type
	arms   []*sir.MatchCase
	shared map[*sir.MatchCase]ValueID
}

func (l *Lowering) lowerMatch(e *sir.Expr) ValueID {
	l.operands(e, 1)
	if len(e.Cases) == 0 {
		l.failCode(codeBadIR, e.Span, nil, nil, "match without arms")
	}
	m := &matchCtx{e: e, resT: l.matchType(e), shared: map[*sir.MatchCase]ValueID{}}
	scrut := l.lowerExpr(e.Operands[0])
	st := l.value(scrut).Type.Unwrap()
	if l.familyOf(st) == famTypeVar {
		st = e.Operands[0].Type.Unwrap()
	}
	switch {
	case st.Kind == sir.TypeBoolean:
		return l.matchBool(m, scrut)
	case st.Kind == sir.TypeUnit:
		return l.matchUnit(m, scrut)
	case st.Kind == sir.TypeData:
		return l.matchData(m, scrut)
	case st.Kind == sir.TypeBuiltinList:
		return l.matchBuiltinList(m, scrut, st)
	case st.Kind == sir.TypeBuiltinPair:
		return l.matchPair(m, scrut, st)
	case st.IsList():
		return l.matchList(m, scrut, st)
	case st.Kind == sir.TypeSum, st.Kind == sir.TypeCaseClass:
		return l.matchConstr(m, scrut, st)
	}
	l.failCode(codeBadIR, e.Span, []*sir.Type{st}, nil, "cannot match on a value of type %s", st)
	return NoValueID
}

// matchType joins the arm types and checks the declared result type.
func (l *Lowering) matchType(e *sir.Expr) *sir.Type {
	bodies := make([]*sir.Expr, len(e.Cases))
	for i := range e.Cases {
		bodies[i] = e.Cases[i].Body
	}
	return l.joinArms(e, bodies)
}

// joinArms joins the types of the alternative arms of e. The declared type
// of e, when there is one, must fit the join and wins over it.
func (l *Lowering) joinArms(e *sir.Expr, arms []*sir.Expr) *sir.Type {
	var t *sir.Type
	for _, a := range arms {
		bt := a.Type
		if t == nil {
			t = bt
			continue
		}
		j, ok := sir.JoinTypes(l.types, t, bt)
		if !ok {
			l.failCode(codeArmsNotUnifiable, a.Span, []*sir.Type{t, bt}, nil,
				"%s arms have incompatible types %s and %s", e.Kind, t, bt)
		}
		t = j
	}
	if e.Type == nil || e.Type.Kind == sir.TypeFree {
		return t
	}
	if _, ok := sir.JoinTypes(l.types, t, e.Type); !ok {
		l.failCode(codeArmsNotUnifiable, e.Span, []*sir.Type{t, e.Type}, nil,
			"%s arms of type %s do not fit the result type %s", e.Kind, t, e.Type)
	}
	return e.Type
}

// resolve assigns the arms of the match to branch slots named by names.
// Slots no arm covers stay nil.
func (l *Lowering) resolve(m *matchCtx, names []string) {
	m.arms = make([]*sir.MatchCase, len(names))
	var wild *sir.MatchCase
	for i := range m.e.Cases {
		c := &m.e.Cases[i]
		if c.Constr == sir.Wildcard {
			if wild != nil {
				l.warn(diag.LowUnreachableArm, c.Span, "wildcard arm is unreachable")
				continue
			}
			wild = c
			continue
		}
		idx := slices.Index(names, c.Constr)
		if idx < 0 {
			l.failCode(codeBadIR, c.Span, nil, nil, "unknown constructor %s in match", c.Constr)
		}
		if wild != nil || m.arms[idx] != nil {
			l.warn(diag.LowUnreachableArm, c.Span, "arm %s is unreachable", c.Constr)
			continue
		}
		m.arms[idx] = c
	}
	usedWild := false
	for i := range m.arms {
		if m.arms[i] == nil && wild != nil {
			m.arms[i] = wild
			usedWild = true
		}
	}
	if wild != nil && !usedWild {
		l.warn(diag.LowUnreachableArm, wild.Span, "wildcard arm is unreachable")
	}
	for i, a := range m.arms {
		if a == nil {
			l.warn(diag.LowUnreachableArm, m.e.Span, "no arm for %s; the branch fails at runtime", names[i])
		}
	}
}

// binderName is the name an arm gives its i-th binder.
func binderName(arm *sir.MatchCase, i int, def string) string {
	if arm != nil && i < len(arm.Binders) && arm.Binders[i] != "" && arm.Binders[i] != sir.Wildcard {
		return arm.Binders[i]
	}
	return def
}

// lowerArm lowers the body of the arm in slot i with binders in scope.
// A wildcard arm is lowered once and shared between the slots it covers.
func (l *Lowering) lowerArm(m *matchCtx, i int, binders []ValueID) ValueID {
	arm := m.arms[i]
	if arm == nil {
		return NoValueID
	}
	if arm.Constr == sir.Wildcard {
		if id, ok := m.shared[arm]; ok {
			return id
		}
	}
	if len(arm.Binders) > len(binders) {
		l.failCode(codeBadIR, arm.Span, nil, nil, "arm %s binds %d values, the constructor has %d",
			arm.Constr, len(arm.Binders), len(binders))
	}
	l.pushScope()
	for j := range arm.Binders {
		if name := binderName(arm, j, ""); name != "" {
			l.define(name, binders[j])
		}
	}
	v := l.upcast(l.lowerExpr(arm.Body), m.resT, arm.Body.Span)
	l.popScope()
	if arm.Constr == sir.Wildcard {
		m.shared[arm] = v
	}
	return v
}

// unify converts the arm values to a common representation. Missing arms
// become failing placeholders.
func (l *Lowering) unify(m *matchCtx, vals []ValueID) ([]ValueID, Repr) {
	var present []ValueID
	for _, v := range vals {
		if v.IsValid() {
			present = append(present, v)
		}
	}
	r := l.commonRepr(present, m.resT)
	out := make([]ValueID, len(vals))
	for i, v := range vals {
		if !v.IsValid() {
			out[i] = l.typeErrorValue("non-exhaustive match", m.resT, m.e.Span)
			continue
		}
		out[i] = l.toRepr(v, r)
	}
	return out, r
}

func (l *Lowering) matchBool(m *matchCtx, scrut ValueID) ValueID {
	l.resolve(m, boolArms)
	cond := l.toRepr(scrut, Constant)
	vals, r := l.unify(m, []ValueID{l.lowerArm(m, 0, nil), l.lowerArm(m, 1, nil)})
	return l.ifThenElse(cond, vals[1], vals[0], m.resT, r, m.e.Span)
}

func (l *Lowering) matchUnit(m *matchCtx, scrut ValueID) ValueID {
	l.resolve(m, unitArms)
	cb := l.beginCase(ShapeUnit, l.toRepr(scrut, Constant), m.e.Span)
	vals, r := l.unify(m, []ValueID{l.lowerArm(m, 0, nil)})
	return cb.finish(vals, m.resT, r)
}

// dataBinders are the binders of the five Data branches.
func (l *Lowering) dataBinders(cb *caseBuilder, arms []*sir.MatchCase) [][]ValueID {
	pairs := sir.BuiltinList(sir.BuiltinPair(sir.DataT(), sir.DataT()))
	arm := func(i int) *sir.MatchCase {
		if arms == nil {
			return nil
		}
		return arms[i]
	}
	return [][]ValueID{
		cb.bind(0,
			binderSpec{name: binderName(arm(0), 0, "tag"), typ: sir.Integer(), repr: Constant},
			binderSpec{name: binderName(arm(0), 1, "fields"), typ: dataListT, repr: Constant}),
		cb.bind(1, binderSpec{name: binderName(arm(1), 0, "entries"), typ: pairs, repr: Constant}),
		cb.bind(2, binderSpec{name: binderName(arm(2), 0, "items"), typ: dataListT, repr: Constant}),
		cb.bind(3, binderSpec{name: binderName(arm(3), 0, "n"), typ: sir.Integer(), repr: Constant}),
		cb.bind(4, binderSpec{name: binderName(arm(4), 0, "bytes"), typ: sir.ByteString(), repr: Constant}),
	}
}

func (l *Lowering) matchData(m *matchCtx, scrut ValueID) ValueID {
	l.resolve(m, dataArms)
	s := l.toRepr(l.upcast(scrut, sir.DataT(), m.e.Span), Constant)
	cb := l.beginCase(ShapeData, s, m.e.Span)
	binders := l.dataBinders(cb, m.arms)
	vals := make([]ValueID, len(dataArms))
	for i := range vals {
		vals[i] = l.lowerArm(m, i, binders[i])
	}
	vals, r := l.unify(m, vals)
	return cb.finish(vals, m.resT, r)
}

func (l *Lowering) matchBuiltinList(m *matchCtx, scrut ValueID, st *sir.Type) ValueID {
	l.resolve(m, listArms)
	s := l.toRepr(scrut, Constant)
	return l.listCase(m, s, st, st.Elem(), Constant, Constant)
}

func (l *Lowering) matchList(m *matchCtx, scrut ValueID, st *sir.Type) ValueID {
	l.resolve(m, listArms)
	elemT := st.Elem()
	listT := sir.ListOf(elemT)
	r := l.value(scrut).Repr
	if r.Kind != ReprSumDataList && r.Kind != ReprSumDataPairList {
		r = l.DefaultRepr(listT)
	}
	s := l.toRepr(scrut, r)
	return l.listCase(m, s, listT, elemT, l.ElemRepr(r, elemT), r)
}

// listCase dispatches on a native list laid out as listR.
func (l *Lowering) listCase(m *matchCtx, s ValueID, listT, elemT *sir.Type, elemR, listR Repr) ValueID {
	cb := l.beginCase(ShapeList, s, m.e.Span)
	bs := cb.bind(0,
		binderSpec{name: binderName(m.arms[0], 0, "head"), typ: elemT, repr: elemR},
		binderSpec{name: binderName(m.arms[0], 1, "tail"), typ: listT, repr: listR})
	vals, r := l.unify(m, []ValueID{l.lowerArm(m, 0, bs), l.lowerArm(m, 1, nil)})
	return cb.finish(vals, m.resT, r)
}

func (l *Lowering) matchPair(m *matchCtx, scrut ValueID, st *sir.Type) ValueID {
	l.resolve(m, pairArms)
	s := l.toRepr(scrut, Constant)
	cb := l.beginCase(ShapePair, s, m.e.Span)
	bs := cb.bind(0,
		binderSpec{name: binderName(m.arms[0], 0, "fst"), typ: st.Args[0], repr: Constant},
		binderSpec{name: binderName(m.arms[0], 1, "snd"), typ: st.Args[1], repr: Constant})
	vals, r := l.unify(m, []ValueID{l.lowerArm(m, 0, bs)})
	return cb.finish(vals, m.resT, r)
}

// matchConstr dispatches on the constructor tag of a Data-encoded value:
// natively through a Data case, otherwise by unpacking the constructor
// once and switching on its tag. The unpacked constructor is evaluated even
// when a single arm reads neither tag nor fields.
func (l *Lowering) matchConstr(m *matchCtx, scrut ValueID, st *sir.Type) ValueID {
	d, ok := l.types.Decl(st.Name)
	if !ok {
		l.failCode(codeBadIR, m.e.Span, []*sir.Type{st}, nil, "unknown declaration %s", st.Name)
	}
	names := make([]string, len(d.Constrs))
	for i, c := range d.Constrs {
		names[i] = c.Name
	}
	l.resolve(m, names)
	sp := m.e.Span
	s := l.toRepr(scrut, l.DataRepr(st))

	if SelectStrategy(l.target, ShapeData) == StrategyNative {
		cb := l.beginCase(ShapeData, s, sp)
		binders := l.dataBinders(cb, nil)
		inner := l.constrArms(m, d, st, binders[0][0], binders[0][1])
		iv := l.value(inner)
		return cb.finish([]ValueID{inner, NoValueID, NoValueID, NoValueID, NoValueID}, iv.Type, iv.Repr)
	}

	p := l.newVar("constr", constrT, Constant, l.builtin(uplc.UnConstrData, constrT, Constant, sp, s), sp)
	tag := l.newVar("tag", sir.Integer(), Constant, l.builtin(uplc.FstPair, sir.Integer(), Constant, sp, p), sp)
	fields := l.newVar("fields", dataListT, Constant, l.builtin(uplc.SndPair, dataListT, Constant, sp, p), sp)
	inner := l.constrArms(m, d, st, tag, fields)
	iv := l.value(inner)
	return l.newNode(Value{Kind: ValueLet, Subs: []ValueID{inner}, Owned: []ValueID{p, tag, fields}, Strict: p, Type: iv.Type, Repr: iv.Repr, Span: sp})
}

// constrArms lowers every constructor arm with its fields read from the
// fields list, then switches on tag.
func (l *Lowering) constrArms(m *matchCtx, d *sir.DataDecl, st *sir.Type, tag, fields ValueID) ValueID {
	sp := m.e.Span
	vals := make([]ValueID, len(d.Constrs))
	for i := range d.Constrs {
		c := &d.Constrs[i]
		arm := m.arms[i]
		if arm == nil {
			continue
		}
		fts := d.FieldTypes(c, st.Args)
		binders := make([]ValueID, len(c.Params))
		var owned []ValueID
		cur := fields
		for j, p := range c.Params {
			if j > 0 {
				cur = l.newVar("rest", dataListT, Constant, l.builtin(uplc.TailList, dataListT, Constant, sp, cur), sp)
				owned = append(owned, cur)
			}
			head := l.builtin(uplc.HeadList, fts[j], l.dataField(fts[j], sp), sp, cur)
			binders[j] = l.newVar(binderName(arm, j, p.Name), fts[j], l.dataField(fts[j], sp), head, sp)
			owned = append(owned, binders[j])
		}
		body := l.lowerArm(m, i, binders)
		if len(owned) > 0 && arm.Constr != sir.Wildcard {
			bv := l.value(body)
			body = l.newNode(Value{Kind: ValueLet, Subs: []ValueID{body}, Owned: owned, Type: bv.Type, Repr: bv.Repr, Span: arm.Span})
		}
		vals[i] = body
	}
	vals, r := l.unify(m, vals)
	return l.switchInteger(tag, vals, m.resT, r, sp)
}
