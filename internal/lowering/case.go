package lowering

import (
	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/uplc"
)

// caseBuilder assembles a Case value. Binders are created before the
// branches are lowered so that branch bodies can reference them.
type caseBuilder struct {
	l       *Lowering
	shape   CaseShape
	scrut   ValueID
	native  bool
	owned   []ValueID
	binders [][]ValueID
	sp      source.Span
}

func branchCount(shape CaseShape) int {
	switch shape {
	case ShapeBool, ShapeList:
		return 2
	case ShapeData:
		return 5
	}
	return 1
}

// beginCase starts a dispatch on scrut, which must already be in the
// representation the shape expects (a constant for builtin shapes).
func (l *Lowering) beginCase(shape CaseShape, scrut ValueID, sp source.Span) *caseBuilder {
	cb := &caseBuilder{
		l:       l,
		shape:   shape,
		native:  SelectStrategy(l.target, shape) == StrategyNative,
		binders: make([][]ValueID, branchCount(shape)),
		sp:      sp,
	}
	if !cb.native && shape != ShapeBool && shape != ShapeUnit && !l.value(scrut).Kind.IsIdentifiable() {
		v := l.value(scrut)
		scrut = l.newVar("scrut", v.Type, v.Repr, scrut, sp)
		cb.owned = append(cb.owned, scrut)
	}
	cb.scrut = scrut
	l.tracePoint("case", shape.String()+" "+SelectStrategy(l.target, shape).String())
	return cb
}

// binderSpec describes one binder a branch introduces.
type binderSpec struct {
	name string
	typ  *sir.Type
	repr Repr
}

// bind creates the binders of a branch. Natively they are parameters of the
// branch; emulated they are variables defined by extraction builtins over
// the scrutinee.
func (cb *caseBuilder) bind(branch int, specs ...binderSpec) []ValueID {
	l := cb.l
	ids := make([]ValueID, len(specs))
	if cb.native {
		for i, s := range specs {
			ids[i] = l.newVar(s.name, s.typ, s.repr, NoValueID, cb.sp)
		}
		cb.binders[branch] = ids
		return ids
	}
	extract := cb.extractors(branch)
	for i, s := range specs {
		rhs := extract(i, s)
		ids[i] = l.newVar(s.name, s.typ, s.repr, rhs, cb.sp)
	}
	cb.binders[branch] = ids
	return ids
}

// extractors returns the builder of the i-th binder value of branch in the
// emulated form.
func (cb *caseBuilder) extractors(branch int) func(i int, s binderSpec) ValueID {
	l, s, sp := cb.l, cb.scrut, cb.sp
	dataT := sir.DataT()
	switch cb.shape {
	case ShapeList:
		return func(i int, b binderSpec) ValueID {
			if i == 0 {
				return l.builtin(uplc.HeadList, b.typ, b.repr, sp, s)
			}
			return l.builtin(uplc.TailList, b.typ, b.repr, sp, s)
		}
	case ShapePair:
		return func(i int, b binderSpec) ValueID {
			if i == 0 {
				return l.builtin(uplc.FstPair, b.typ, b.repr, sp, s)
			}
			return l.builtin(uplc.SndPair, b.typ, b.repr, sp, s)
		}
	case ShapeData:
		switch branch {
		case 0:
			pairT := sir.BuiltinPair(sir.Integer(), sir.BuiltinList(dataT))
			p := l.newVar("constr", pairT, Constant, l.builtin(uplc.UnConstrData, pairT, Constant, sp, s), sp)
			cb.owned = append(cb.owned, p)
			return func(i int, b binderSpec) ValueID {
				if i == 0 {
					return l.builtin(uplc.FstPair, b.typ, b.repr, sp, p)
				}
				return l.builtin(uplc.SndPair, b.typ, b.repr, sp, p)
			}
		case 1:
			return func(_ int, b binderSpec) ValueID { return l.builtin(uplc.UnMapData, b.typ, b.repr, sp, s) }
		case 2:
			return func(_ int, b binderSpec) ValueID { return l.builtin(uplc.UnListData, b.typ, b.repr, sp, s) }
		case 3:
			return func(_ int, b binderSpec) ValueID { return l.builtin(uplc.UnIData, b.typ, b.repr, sp, s) }
		default:
			return func(_ int, b binderSpec) ValueID { return l.builtin(uplc.UnBData, b.typ, b.repr, sp, s) }
		}
	}
	return func(int, binderSpec) ValueID {
		l.fail(nil, sp, "internal: %s case has no binders", cb.shape)
		return NoValueID
	}
}

// finish allocates the Case value. Missing branches (NoValueID) emit as
// error terms.
func (cb *caseBuilder) finish(branches []ValueID, t *sir.Type, r Repr) ValueID {
	l := cb.l
	subs := make([]ValueID, 0, len(branches)+1)
	subs = append(subs, cb.scrut)
	for i, b := range branches {
		if !b.IsValid() {
			b = l.typeErrorValue("unreachable branch", t, cb.sp)
			branches[i] = b
		}
		subs = append(subs, b)
	}
	binders := cb.binders
	if !cb.native {
		// emulated binders are ordinary variables owned by the case
		for _, bs := range cb.binders {
			cb.owned = append(cb.owned, bs...)
		}
		binders = nil
	}
	return l.newNode(Value{
		Kind:    ValueCase,
		Shape:   cb.shape,
		Native:  cb.native,
		Subs:    subs,
		Owned:   cb.owned,
		Binders: binders,
		Type:    t,
		Repr:    r,
		Span:    cb.sp,
	})
}

// ifThenElse dispatches on a boolean constant.
func (l *Lowering) ifThenElse(cond, then, els ValueID, t *sir.Type, r Repr, sp source.Span) ValueID {
	cb := l.beginCase(ShapeBool, cond, sp)
	return cb.finish([]ValueID{els, then}, t, r)
}

// switchInteger dispatches on an integer constant in [0, len(branches)).
// Without native case it becomes a chain of equality tests; the last branch
// is taken for any value not matched before it.
func (l *Lowering) switchInteger(scrut ValueID, branches []ValueID, t *sir.Type, r Repr, sp source.Span) ValueID {
	if len(branches) == 1 {
		return branches[0]
	}
	if SelectStrategy(l.target, ShapeInteger) == StrategyNative {
		cb := l.beginCase(ShapeInteger, scrut, sp)
		cb.binders = make([][]ValueID, len(branches))
		return cb.finish(branches, t, r)
	}
	if !l.value(scrut).Kind.IsIdentifiable() {
		scrut = l.letVar("tag", scrut)
	}
	out := branches[len(branches)-1]
	for i := len(branches) - 2; i >= 0; i-- {
		k := l.constValue(uplc.Integer(int64(i)), sir.Integer(), sp)
		cond := l.builtin(uplc.EqualsInteger, sir.Boolean(), Constant, sp, scrut, k)
		out = l.ifThenElse(cond, branches[i], out, t, r, sp)
	}
	return out
}
