package lowering

import (
	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/uplc"
)

// Runtime helper names. The tuple variants convert lists of two-field
// tuples; they share the implementation but carry their own declared type.
const (
	HelperPairListToDataList      = "pairListToDataList"
	HelperDataListToPairList      = "dataListToPairList"
	HelperTuplePairListToDataList = "tuplePairListToDataList"
	HelperTupleDataListToPairList = "tupleDataListToPairList"
)

// lambda allocates a closure value. A Delayed closure has no parameter.
func (l *Lowering) lambda(param, body ValueID, t *sir.Type, r Repr, barrier bool, sp source.Span) ValueID {
	return l.newNode(Value{Kind: ValueLambda, Subs: []ValueID{body}, Param: param, Barrier: barrier && !r.Delayed, Type: t, Repr: r, Span: sp})
}

// fix allocates the fixed point of rec, whose parameter self stands for
// the result.
func (l *Lowering) fix(self, rec ValueID, sp source.Span) ValueID {
	rv := l.value(rec)
	return l.newNode(Value{Kind: ValueFix, Param: self, Subs: []ValueID{rec}, Type: rv.Type, Repr: rv.Repr, Span: sp})
}

// RuntimeHelper returns the variable bound to a named list conversion
// helper, building and registering it globally on first use.
func (l *Lowering) RuntimeHelper(name string) (ValueID, bool) {
	switch name {
	case HelperPairListToDataList, HelperDataListToPairList, HelperTuplePairListToDataList, HelperTupleDataListToPairList:
		return l.runtimeHelper(name), true
	}
	return NoValueID, false
}

func (l *Lowering) runtimeHelper(name string) ValueID {
	if id, ok := l.helpers[name]; ok {
		return id
	}
	toData := name == HelperPairListToDataList || name == HelperTuplePairListToDataList
	tuple := name == HelperTuplePairListToDataList || name == HelperTupleDataListToPairList
	sp := source.NoSpan

	inT, outT := pairListT, dataListT
	empty := emptyDataList()
	if !toData {
		inT, outT = dataListT, pairListT
		empty = emptyPairList()
	}
	fnT := sir.Arrow(inT, outT)
	if tuple {
		a, b := sir.Var("A", 0xFFFD0001, false), sir.Var("B", 0xFFFD0002, false)
		lt := sir.ListOf(sir.TupleOf(a, b))
		fnT = sir.Forall([]*sir.Type{a, b}, sir.Arrow(lt, lt))
	}
	head := func(h ValueID) ValueID {
		if toData {
			fields := l.pairToFields(h, sp)
			tag := l.constValue(uplc.Integer(0), sir.Integer(), sp)
			return l.builtin(uplc.ConstrData, sir.DataT(), Constant, sp, tag, fields)
		}
		p := l.builtin(uplc.UnConstrData, constrT, Constant, sp, h)
		fs := l.newVar("fields", dataListT, Constant, l.builtin(uplc.SndPair, dataListT, Constant, sp, p), sp)
		return l.fieldsToPair(fs, dataPairT, Constant, sp)
	}
	self := l.mapListHelper(name, fnT, inT, outT, binderSpec{name: "h", typ: inT.Elem(), repr: Constant}, head, empty)
	l.helpers[name] = self
	l.defineGlobal(name, self)
	l.tracePoint("helper", name)
	return self
}

// elemListHelper returns the helper converting every element of a builtin
// list of elem to Data (pack) or back from a list of Data.
func (l *Lowering) elemListHelper(elem *sir.Type, ct uplc.ConstType, pack bool) ValueID {
	name, key := "unpackList", "unpack "+elem.String()
	if pack {
		name, key = "packList", "pack "+elem.String()
	}
	if id, ok := l.helpers[key]; ok {
		return id
	}
	listT := sir.BuiltinList(elem)
	var self ValueID
	if pack {
		self = l.mapListHelper(name, sir.Arrow(listT, dataListT), listT, dataListT,
			binderSpec{name: "h", typ: elem, repr: Constant},
			func(h ValueID) ValueID { return l.toRepr(h, PackedData) },
			emptyDataList())
	} else {
		self = l.mapListHelper(name, sir.Arrow(dataListT, listT), dataListT, listT,
			binderSpec{name: "h", typ: elem, repr: PackedData},
			func(h ValueID) ValueID { return l.toRepr(h, Constant) },
			uplc.List(ct))
	}
	l.helpers[key] = self
	l.tracePoint("helper", key)
	return self
}

// mapListHelper builds the recursive function mapping head over a builtin
// list: h :: t becomes head(h) :: self t and the empty list becomes empty.
func (l *Lowering) mapListHelper(name string, fnT, inT, outT *sir.Type, h binderSpec, head func(ValueID) ValueID, empty uplc.Constant) ValueID {
	sp := source.NoSpan
	fnR := LambdaRepr(Constant, Constant)
	self := l.newVar(name, fnT, fnR, NoValueID, sp)
	list := l.newVar("l", inT, Constant, NoValueID, sp)

	cb := l.beginCase(ShapeList, list, sp)
	bs := cb.bind(0, h, binderSpec{name: "t", typ: inT, repr: Constant})
	rest := l.apply(self, bs[1], outT, Constant, sp)
	cons := l.builtin(uplc.MkCons, outT, Constant, sp, head(bs[0]), rest)
	nilB := l.constValue(empty, outT, sp)
	body := cb.finish([]ValueID{cons, nilB}, outT, Constant)

	lam := l.lambda(list, body, fnT, fnR, true, sp)
	l.setRhs(self, l.fix(self, lam, sp))
	return self
}

// ZCombinator is the strict fixed-point combinator
// \f -> (\x -> f (\v -> x x v)) (\x -> f (\v -> x x v)).
func ZCombinator() *uplc.Term {
	half := uplc.Lam("x", uplc.Apply(uplc.Var("f"),
		uplc.Lam("v", uplc.Apply(uplc.Var("x"), uplc.Var("x"), uplc.Var("v")))))
	return uplc.Lam("f", uplc.Apply(half, half))
}

// Link closes a lowered term over the fixed-point combinator when it needs
// one.
func Link(t *uplc.Term, usesFix bool) *uplc.Term {
	if !usesFix {
		return t
	}
	return uplc.Apply(uplc.Lam(FixName, t), ZCombinator())
}
