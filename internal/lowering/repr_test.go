package lowering_test

import (
	"context"
	"errors"
	"testing"

	"sirc/internal/diag"
	"sirc/internal/lowering"
	"sirc/internal/sir"
	"sirc/internal/uplc"
)

func newLowering(v uplc.Version) *lowering.Lowering {
	return lowering.New(context.Background(), lowering.Options{Target: v})
}

func TestDefaultRepr(t *testing.T) {
	l := newLowering(uplc.V3)
	tuple := sir.TupleOf(intT, intT)
	cases := []struct {
		typ  *sir.Type
		want lowering.Repr
	}{
		{intT, lowering.Constant},
		{sir.DataT(), lowering.Constant},
		{sir.BuiltinList(sir.DataT()), lowering.Constant},
		{sir.ListOf(intT), lowering.SumDataList},
		{sir.ListOf(tuple), lowering.SumDataPairList},
		{sir.Sum(sir.OptionDecl, intT), lowering.SumDataConstr},
		{tuple, lowering.ProdDataConstr},
		{sir.Arrow(intT, sir.ListOf(intT)), lowering.LambdaRepr(lowering.Constant, lowering.SumDataList)},
		{sir.Var("A", 1, false), lowering.UserTypeVar},
		{sir.Nothing(), lowering.ErrorRepr},
	}
	for _, tc := range cases {
		if got := l.DefaultRepr(tc.typ); !got.Equal(tc.want) {
			t.Errorf("DefaultRepr(%s) = %s, want %s", tc.typ, got, tc.want)
		}
	}
}

func TestDataRepr(t *testing.T) {
	l := newLowering(uplc.V3)
	if got := l.DataRepr(sir.ListOf(sir.TupleOf(intT, intT))); !got.Equal(lowering.SumDataAssocMap) {
		t.Errorf("pair list packs as %s", got)
	}
	if got := l.DataRepr(sir.ListOf(intT)); !got.Equal(lowering.PackedSumDataList) {
		t.Errorf("list packs as %s", got)
	}
	if got := l.DataRepr(intT); !got.Equal(lowering.PackedData) {
		t.Errorf("integer packs as %s", got)
	}
	if got := l.ElemRepr(lowering.SumDataPairList, sir.TupleOf(intT, intT)); !got.Equal(lowering.ProdPair) {
		t.Errorf("pair list element is %s", got)
	}
}

func TestIsCompatible(t *testing.T) {
	l := newLowering(uplc.V3)
	optT := sir.Sum(sir.OptionDecl, intT)
	fn := sir.Arrow(sir.Unit(), intT)
	cases := []struct {
		name string
		typ  *sir.Type
		a, b lowering.Repr
		want bool
	}{
		{"sum as data", optT, lowering.SumDataConstr, lowering.PackedData, true},
		{"product as sum", optT, lowering.ProdDataConstr, lowering.SumDataConstr, true},
		{"integer packing", intT, lowering.Constant, lowering.PackedData, false},
		{"data is data", sir.DataT(), lowering.Constant, lowering.PackedData, true},
		{"packed list", sir.ListOf(intT), lowering.PackedSumDataList, lowering.PackedData, true},
		{"native list", sir.ListOf(intT), lowering.SumDataList, lowering.PackedSumDataList, false},
		{"error", intT, lowering.ErrorRepr, lowering.Constant, true},
		{"user type variable", intT, lowering.UserTypeVar, lowering.PackedData, true},
		{"builtin type variable", intT, lowering.BuiltinTypeVar, lowering.Constant, true},
		{"delayed closure", fn, lowering.DelayedRepr(lowering.Constant), lowering.LambdaRepr(lowering.Constant, lowering.Constant), false},
	}
	for _, tc := range cases {
		if got := l.IsCompatible(tc.typ, tc.a, tc.b); got != tc.want {
			t.Errorf("%s: IsCompatible(%s, %s) = %v", tc.name, tc.a, tc.b, got)
		}
	}
}

func TestReprString(t *testing.T) {
	r := lowering.LambdaRepr(lowering.Constant, lowering.DelayedRepr(lowering.SumDataList))
	if got, want := r.String(), "Lambda(Constant -> Delayed(SumDataList))"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConstantConversionsFold(t *testing.T) {
	l := newLowering(uplc.V3)
	cases := []struct {
		c    uplc.Constant
		typ  *sir.Type
		data uplc.Data
	}{
		{uplc.Integer(42), intT, uplc.IntD(42)},
		{uplc.String("hé"), sir.String(), uplc.BytesD([]byte("hé"))},
		{uplc.Bool(true), sir.Boolean(), uplc.ConstrD(1)},
		{uplc.Unit(), sir.Unit(), uplc.ConstrD(0)},
	}
	for _, tc := range cases {
		id := l.ConstantValue(tc.c, tc.typ, lowering.Constant)
		packed, err := l.ToRepr(id, lowering.PackedData)
		if err != nil {
			t.Fatal(err)
		}
		pv := l.Value(packed)
		if pv.Kind != lowering.ValueConst || !pv.Const.Equal(uplc.DataConst(tc.data)) {
			t.Fatalf("%s packed to %s %s", tc.c, pv.Kind, pv.Const)
		}
		back, err := l.ToRepr(packed, lowering.Constant)
		if err != nil {
			t.Fatal(err)
		}
		if bv := l.Value(back); bv.Kind != lowering.ValueConst || !bv.Const.Equal(tc.c) {
			t.Fatalf("%s came back as %s", tc.c, bv.Const)
		}
	}
	if l.NumValues() == 0 || l.UsesFix() {
		t.Fatal("constant conversions must not need runtime helpers")
	}
}

func TestEmptyPairListConvertsWithoutHelper(t *testing.T) {
	l := newLowering(uplc.V3)
	lt := sir.ListOf(sir.TupleOf(intT, intT))
	id := l.ConstantValue(uplc.List(uplc.TDataPair), lt, lowering.SumDataPairList)
	out, err := l.ToRepr(id, lowering.SumDataList)
	if err != nil {
		t.Fatal(err)
	}
	v := l.Value(out)
	if v.Kind != lowering.ValueConst || len(v.Const.Items) != 0 || !v.Const.Type.Equal(uplc.TList(uplc.TData)) {
		t.Fatalf("got %s %s", v.Kind, v.Const)
	}
	if l.UsesFix() {
		t.Fatal("an empty list needs no fixed point")
	}
}

func TestMissingConversionIsFatal(t *testing.T) {
	l := newLowering(uplc.V3)
	fnList := sir.BuiltinList(sir.Arrow(intT, intT))
	id := l.ConstantValue(uplc.List(uplc.TInteger), fnList, lowering.Constant)
	_, err := l.ToRepr(id, lowering.PackedData)
	var le *lowering.Error
	if !errors.As(err, &le) || le.Code != diag.LowNoConversion {
		t.Fatalf("err = %v", err)
	}
}

func TestBuiltinListPacksElementwise(t *testing.T) {
	intList := sir.BuiltinList(intT)
	items := uplc.List(uplc.TInteger, uplc.Integer(1), uplc.Integer(2))
	packed := uplc.DataConst(uplc.ListD(uplc.IntD(1), uplc.IntD(2)))

	l := newLowering(uplc.V3)
	id := l.ConstantValue(items, intList, lowering.Constant)
	out, err := l.ToRepr(id, lowering.PackedData)
	if err != nil {
		t.Fatal(err)
	}
	if v := l.Value(out); v.Kind != lowering.ValueConst || !v.Const.Equal(packed) {
		t.Fatalf("constant list packed to %s %s", v.Kind, v.Const)
	}

	toData := sir.Lam("xs", intList, sir.Cast(sir.Ref("xs", intList), sir.DataT()))
	fromData := sir.Lam("d", sir.DataT(), sir.Cast(sir.Ref("d", sir.DataT()), intList))
	for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
		res := lowerOK(t, v, toData)
		if !res.UsesFix {
			t.Fatalf("%s: packing a list at runtime needs the mapping helper", v)
		}
		if got := run(t, v, uplc.Apply(res.Term, uplc.Const(items))); !got.Equal(packed) {
			t.Fatalf("%s: packed %s", v, got)
		}
		back := lowerOK(t, v, fromData)
		if got := run(t, v, uplc.Apply(back.Term, uplc.Const(packed))); !got.Equal(items) {
			t.Fatalf("%s: unpacked %s", v, got)
		}
	}
}

func TestBuiltinPairOfIntegersPacks(t *testing.T) {
	pairT := sir.BuiltinPair(intT, sir.ByteString())
	root := sir.Lam("p", pairT, sir.Cast(sir.Ref("p", pairT), sir.DataT()))
	res := lowerOK(t, uplc.V3, root)
	in := uplc.Pair(uplc.Integer(7), uplc.ByteString([]byte{1}))
	got := run(t, uplc.V3, uplc.Apply(res.Term, uplc.Const(in)))
	want := uplc.DataConst(uplc.ConstrD(0, uplc.IntD(7), uplc.BytesD([]byte{1})))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestRuntimeRoundTripsThroughData(t *testing.T) {
	tuple := sir.TupleOf(intT, intT)
	cases := []struct {
		name string
		typ  *sir.Type
		in   uplc.Constant
	}{
		{"integer", intT, uplc.Integer(-9)},
		{"bytes", sir.ByteString(), uplc.ByteString([]byte{0xca, 0xfe})},
		{"string", sir.String(), uplc.String("héllo")},
		{"bool true", sir.Boolean(), uplc.Bool(true)},
		{"bool false", sir.Boolean(), uplc.Bool(false)},
		{"int list", sir.ListOf(intT), uplc.DataListConst(uplc.IntD(1), uplc.IntD(2))},
		{"pair list", sir.ListOf(tuple), uplc.List(uplc.TDataPair, uplc.Pair(uplc.DataConst(uplc.IntD(1)), uplc.DataConst(uplc.IntD(2))))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x := sir.Ref("x", tc.typ)
			root := sir.Lam("x", tc.typ, sir.Cast(sir.Cast(x, sir.DataT()), tc.typ))
			for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
				res := lowerOK(t, v, root)
				if got := run(t, v, uplc.Apply(res.Term, uplc.Const(tc.in))); !got.Equal(tc.in) {
					t.Fatalf("%s: %s came back as %s", v, tc.in, got)
				}
			}
		})
	}
}

func TestCastThroughData(t *testing.T) {
	toData := sir.Cast(add(sir.IntLit(1), sir.IntLit(2)), sir.DataT())
	res := lowerOK(t, uplc.V3, toData)
	if got := run(t, uplc.V3, res.Term); !got.Equal(uplc.DataConst(uplc.IntD(3))) {
		t.Fatalf("got %s", got)
	}
	back := lowerOK(t, uplc.V3, sir.Cast(toData, intT))
	wantInt(t, run(t, uplc.V3, back.Term), 3)
}

func TestSelectStrategy(t *testing.T) {
	if lowering.SelectStrategy(uplc.V3, lowering.ShapeList) != lowering.StrategyEmulated {
		t.Fatal("V3 has no case on builtins")
	}
	if lowering.SelectStrategy(uplc.V4, lowering.ShapeData) != lowering.StrategyNative {
		t.Fatal("V4 cases on builtins natively")
	}
}
