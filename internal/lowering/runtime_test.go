package lowering_test

import (
	"testing"

	"sirc/internal/lowering"
	"sirc/internal/sir"
	"sirc/internal/uplc"
)

func dataPair(a, b uplc.Data) uplc.Constant {
	return uplc.Pair(uplc.DataConst(a), uplc.DataConst(b))
}

func helperTerm(t *testing.T, l *lowering.Lowering, name string) *uplc.Term {
	t.Helper()
	id, ok := l.RuntimeHelper(name)
	if !ok {
		t.Fatalf("unknown helper %s", name)
	}
	if again, _ := l.RuntimeHelper(name); again != id {
		t.Fatal("helper must be registered once")
	}
	term, err := l.Emit(id)
	if err != nil {
		t.Fatal(err)
	}
	if !l.UsesFix() {
		t.Fatal("helpers are recursive")
	}
	return lowering.Link(term, true)
}

func TestPairListToDataList(t *testing.T) {
	l := newLowering(uplc.V3)
	fn := helperTerm(t, l, lowering.HelperPairListToDataList)
	in := uplc.List(uplc.TDataPair,
		dataPair(uplc.IntD(1), uplc.IntD(2)),
		dataPair(uplc.IntD(3), uplc.BytesD([]byte{0xff})))
	got := run(t, uplc.V3, uplc.Apply(fn, uplc.Const(in)))
	want := uplc.DataListConst(
		uplc.ConstrD(0, uplc.IntD(1), uplc.IntD(2)),
		uplc.ConstrD(0, uplc.IntD(3), uplc.BytesD([]byte{0xff})))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	empty := run(t, uplc.V3, uplc.Apply(fn, uplc.Const(uplc.List(uplc.TDataPair))))
	if len(empty.Items) != 0 {
		t.Fatalf("empty input gave %s", empty)
	}
}

func TestDataListToPairList(t *testing.T) {
	for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
		l := newLowering(v)
		fn := helperTerm(t, l, lowering.HelperTupleDataListToPairList)
		in := uplc.DataListConst(uplc.ConstrD(0, uplc.IntD(1), uplc.IntD(2)))
		got := run(t, v, uplc.Apply(fn, uplc.Const(in)))
		want := uplc.List(uplc.TDataPair, dataPair(uplc.IntD(1), uplc.IntD(2)))
		if !got.Equal(want) {
			t.Fatalf("%s: got %s, want %s", v, got, want)
		}
	}
}

func TestZCombinatorShape(t *testing.T) {
	z := lowering.ZCombinator()
	if z.Kind != uplc.TermLam || z.Name != "f" {
		t.Fatalf("unexpected combinator %s", z)
	}
	if fv := uplc.FreeVars(z); len(fv) != 0 {
		t.Fatalf("combinator has free variables %v", fv)
	}
	body := uplc.Var("x")
	if got := lowering.Link(body, false); got != body {
		t.Fatal("Link without fix must not wrap")
	}
	if got := lowering.Link(body, true); got.Kind != uplc.TermApply || got.Fun.Name != lowering.FixName {
		t.Fatalf("Link = %s", got)
	}
}

func TestDroppedHelperNeedsNoFixedPoint(t *testing.T) {
	intList := sir.BuiltinList(intT)
	unused := sir.Lam("xs", intList, sir.Cast(sir.Ref("xs", intList), sir.DataT()))
	res := lowerOK(t, uplc.V3, sir.Let(sir.IntLit(5), sir.Bind("pack", unused)))
	if res.UsesFix {
		t.Fatalf("unused helper still links the fixed point: %s", res.Term)
	}
	wantInt(t, run(t, uplc.V3, res.Term), 5)
}
