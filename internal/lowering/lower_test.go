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

var intT = sir.Integer()

func lowerOK(t *testing.T, v uplc.Version, root *sir.Expr, decls ...*sir.DataDecl) *lowering.Result {
	t.Helper()
	m := &sir.Module{Name: "test", Decls: decls, Root: root}
	res, err := lowering.Lower(context.Background(), m, lowering.Options{Target: v})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return res
}

func lowerErr(t *testing.T, root *sir.Expr) *lowering.Error {
	t.Helper()
	m := &sir.Module{Name: "test", Root: root}
	_, err := lowering.Lower(context.Background(), m, lowering.Options{Target: uplc.V3})
	if err == nil {
		t.Fatal("expected a lowering error")
	}
	var le *lowering.Error
	if !errors.As(err, &le) {
		t.Fatalf("error %v is not a *lowering.Error", err)
	}
	return le
}

func run(t *testing.T, v uplc.Version, term *uplc.Term) uplc.Constant {
	t.Helper()
	m := uplc.NewMachine(v, 1_000_000)
	c, err := m.EvalConstant(term)
	if err != nil {
		t.Fatalf("eval %s: %v", term, err)
	}
	return c
}

func wantInt(t *testing.T, c uplc.Constant, want int64) {
	t.Helper()
	if c.Type.Kind != uplc.ConstInteger || c.Int == nil || c.Int.Int64() != want {
		t.Fatalf("got %s, want %d", c, want)
	}
}

func countBuiltin(term *uplc.Term, f uplc.DefaultFun) int {
	n := 0
	uplc.Walk(term, func(t *uplc.Term) bool {
		if t.Kind == uplc.TermBuiltin && t.Builtin == f {
			n++
		}
		return true
	})
	return n
}

func countKind(term *uplc.Term, k uplc.TermKind) int {
	n := 0
	uplc.Walk(term, func(t *uplc.Term) bool {
		if t.Kind == k {
			n++
		}
		return true
	})
	return n
}

func add(a, b *sir.Expr) *sir.Expr { return sir.Call(sir.BuiltinRef(uplc.AddInteger), a, b) }

func TestSharedValueEmittedOnce(t *testing.T) {
	root := sir.Let(add(sir.Ref("x", intT), sir.Ref("x", intT)),
		sir.Bind("x", add(sir.IntLit(1), sir.IntLit(2))))
	res := lowerOK(t, uplc.V3, root)
	if n := countBuiltin(res.Term, uplc.AddInteger); n != 2 {
		t.Fatalf("addInteger occurs %d times in %s", n, res.Term)
	}
	if res.UsesFix {
		t.Fatal("no recursion, no fixed point expected")
	}
	wantInt(t, run(t, uplc.V3, res.Term), 6)
}

func TestSingleUseIsInlined(t *testing.T) {
	root := sir.Let(add(sir.Ref("x", intT), sir.IntLit(1)),
		sir.Bind("x", add(sir.IntLit(1), sir.IntLit(2))))
	res := lowerOK(t, uplc.V3, root)
	if n := countKind(res.Term, uplc.TermLam); n != 0 {
		t.Fatalf("expected no bindings, got %s", res.Term)
	}
	wantInt(t, run(t, uplc.V3, res.Term), 4)
}

func TestLambdaHoistsParameterIndependentWork(t *testing.T) {
	lam := sir.Lam("y", intT, add(sir.Ref("k", intT), sir.Ref("y", intT)))
	root := sir.Let(lam, sir.Bind("k", add(sir.IntLit(1), sir.IntLit(2))))
	res := lowerOK(t, uplc.V3, root)
	term := res.Term
	if term.Kind != uplc.TermApply || term.Fun.Kind != uplc.TermLam || term.Fun.Body.Kind != uplc.TermLam {
		t.Fatalf("k is not bound outside the lambda: %s", term)
	}
	if term.Fun.Name != "k" || term.Fun.Body.Name != "y" {
		t.Fatalf("unexpected binders in %s", term)
	}
	wantInt(t, run(t, uplc.V3, uplc.Apply(term, uplc.Const(uplc.Integer(10)))), 13)
}

func lamNamed(term *uplc.Term, name string) *uplc.Term {
	var out *uplc.Term
	uplc.Walk(term, func(t *uplc.Term) bool {
		if out == nil && t.Kind == uplc.TermLam && t.Name == name {
			out = t
		}
		return out == nil
	})
	return out
}

func TestLambdaKeepsParameterDependentWork(t *testing.T) {
	mul := func(a, b *sir.Expr) *sir.Expr { return sir.Call(sir.BuiltinRef(uplc.MultiplyInteger), a, b) }
	y := sir.Ref("y", intT)
	lam := sir.Lam("y", intT, sir.Let(add(sir.Ref("k", intT), sir.Ref("b", intT)), sir.Bind("b", mul(y, y))))
	f := sir.Ref("f", lam.Type)
	calls := add(sir.App(f, sir.IntLit(1), intT), sir.App(f, sir.IntLit(2), intT))
	root := sir.Let(sir.Let(calls, sir.Bind("f", lam)), sir.Bind("k", add(sir.IntLit(1), sir.IntLit(2))))
	res := lowerOK(t, uplc.V3, root)

	body := lamNamed(res.Term, "y")
	if body == nil {
		t.Fatalf("no lambda over y in %s", res.Term)
	}
	if n := countBuiltin(body, uplc.MultiplyInteger); n != 1 {
		t.Fatalf("y*y must stay inside the lambda, found %d in %s", n, body)
	}
	if n := countBuiltin(body, uplc.AddInteger); n != 1 {
		t.Fatalf("k must be computed outside the lambda: %s", res.Term)
	}
	if n := countBuiltin(res.Term, uplc.MultiplyInteger); n != 1 {
		t.Fatalf("multiplyInteger occurs %d times in %s", n, res.Term)
	}
	wantInt(t, run(t, uplc.V3, res.Term), 11)
}

func TestIfThenElseStrategies(t *testing.T) {
	cond := sir.Call(sir.BuiltinRef(uplc.LessThanInteger), sir.IntLit(1), sir.IntLit(2))
	root := sir.If(cond, sir.IntLit(10), sir.IntLit(20), intT)

	emulated := lowerOK(t, uplc.V3, root)
	if countBuiltin(emulated.Term, uplc.IfThenElse) != 1 || countKind(emulated.Term, uplc.TermCase) != 0 {
		t.Fatalf("V3 must emulate with ifThenElse: %s", emulated.Term)
	}
	wantInt(t, run(t, uplc.V3, emulated.Term), 10)

	native := lowerOK(t, uplc.V4, root)
	if countBuiltin(native.Term, uplc.IfThenElse) != 0 || countKind(native.Term, uplc.TermCase) != 1 {
		t.Fatalf("V4 must use case: %s", native.Term)
	}
	wantInt(t, run(t, uplc.V4, native.Term), 10)
}

func listOf(elem *sir.Type, items ...*sir.Expr) *sir.Expr {
	lt := sir.ListOf(elem)
	out := sir.Construct(sir.ListDecl, sir.NilConstr, lt)
	for i := len(items) - 1; i >= 0; i-- {
		out = sir.Construct(sir.ListDecl, sir.ConsConstr, lt, items[i], out)
	}
	return out
}

func TestListMatchBothStrategies(t *testing.T) {
	root := sir.Match(listOf(intT, sir.IntLit(7)), intT,
		sir.Arm(sir.ConsConstr, []string{"h", "t"}, sir.Ref("h", intT)),
		sir.Arm(sir.NilConstr, nil, sir.IntLit(0)))
	for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
		res := lowerOK(t, v, root)
		wantInt(t, run(t, v, res.Term), 7)
	}
	if n := countBuiltin(lowerOK(t, uplc.V3, root).Term, uplc.ChooseList); n != 1 {
		t.Fatalf("V3 list match uses chooseList %d times", n)
	}
}

func TestRecursiveSumOverList(t *testing.T) {
	lt := sir.ListOf(intT)
	fnT := sir.Arrow(lt, intT)
	body := sir.Match(sir.Ref("xs", lt), intT,
		sir.Arm(sir.ConsConstr, []string{"h", "t"},
			add(sir.Ref("h", intT), sir.App(sir.Ref("go", fnT), sir.Ref("t", lt), intT))),
		sir.Arm(sir.NilConstr, nil, sir.IntLit(0)))
	root := sir.LetRec("go", fnT, sir.Lam("xs", lt, body),
		sir.App(sir.Ref("go", fnT), listOf(intT, sir.IntLit(1), sir.IntLit(2), sir.IntLit(3)), intT))
	for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
		res := lowerOK(t, v, root)
		if !res.UsesFix {
			t.Fatal("recursive binding must use the fixed point")
		}
		wantInt(t, run(t, v, res.Term), 6)
	}
}

func TestSelectFieldOfTuple(t *testing.T) {
	tt := sir.TupleOf(intT, intT)
	tuple := sir.Construct(sir.TupleDecl, sir.TupleDecl, tt, sir.IntLit(1), sir.IntLit(2))
	res := lowerOK(t, uplc.V3, sir.Select(tuple, "_2", intT))
	wantInt(t, run(t, uplc.V3, res.Term), 2)
}

func TestOptionMatch(t *testing.T) {
	optT := sir.Sum(sir.OptionDecl, intT)
	some := sir.Construct(sir.OptionDecl, sir.SomeConstr, optT, sir.IntLit(5))
	none := sir.Construct(sir.OptionDecl, sir.NoneConstr, optT)
	match := func(scrut *sir.Expr) *sir.Expr {
		return sir.Match(scrut, intT,
			sir.Arm(sir.NoneConstr, nil, sir.IntLit(0)),
			sir.Arm(sir.SomeConstr, []string{"v"}, sir.Ref("v", intT)))
	}
	for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
		wantInt(t, run(t, v, lowerOK(t, v, match(some)).Term), 5)
		wantInt(t, run(t, v, lowerOK(t, v, match(none)).Term), 0)
	}
}

func TestAliasConvertsOnce(t *testing.T) {
	tt := sir.TupleOf(intT, intT)
	x := sir.Ref("x", intT)
	root := sir.Let(sir.Construct(sir.TupleDecl, sir.TupleDecl, tt, x, x),
		sir.Bind("x", add(sir.IntLit(1), sir.IntLit(2))))
	res := lowerOK(t, uplc.V3, root)
	if n := countBuiltin(res.Term, uplc.IData); n != 1 {
		t.Fatalf("iData occurs %d times in %s", n, res.Term)
	}
	if res.Stats.Aliases != 1 {
		t.Fatalf("aliases = %d", res.Stats.Aliases)
	}
	got := run(t, uplc.V3, res.Term)
	want := uplc.DataConst(uplc.ConstrD(0, uplc.IntD(3), uplc.IntD(3)))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestDelayedClosure(t *testing.T) {
	unitT := sir.Unit()
	f := sir.Lam("u", unitT, add(sir.IntLit(1), sir.IntLit(2)))
	root := sir.Let(sir.App(sir.Ref("f", f.Type), sir.UnitLit(), intT), sir.Bind("f", f))
	res := lowerOK(t, uplc.V3, root)
	if countKind(res.Term, uplc.TermLam) != 0 || countKind(res.Term, uplc.TermDelay) != 1 {
		t.Fatalf("expected a delay instead of a lambda: %s", res.Term)
	}
	wantInt(t, run(t, uplc.V3, res.Term), 3)
}

func TestDroppedBindingWarns(t *testing.T) {
	bag := diag.NewBag(10)
	root := sir.Let(sir.IntLit(5), sir.Bind("x", add(sir.IntLit(1), sir.IntLit(2))))
	m := &sir.Module{Name: "test", Root: root}
	res, err := lowering.Lower(context.Background(), m, lowering.Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatal(err)
	}
	if len(bag.Items()) != 1 || bag.Items()[0].Code != diag.LowDroppedBinding {
		t.Fatalf("diagnostics = %+v", bag.Items())
	}
	if countBuiltin(res.Term, uplc.AddInteger) != 0 {
		t.Fatalf("dropped binding still emitted: %s", res.Term)
	}
}

func TestFatalErrors(t *testing.T) {
	t.Run("unbound", func(t *testing.T) {
		if e := lowerErr(t, sir.Ref("nope", intT)); e.Code != diag.LowUnboundVar {
			t.Fatalf("code = %s", e.Code.ID())
		}
	})
	t.Run("empty upcast", func(t *testing.T) {
		b := sir.Binding{Name: "x", Type: sir.String(), Value: sir.IntLit(1)}
		e := lowerErr(t, sir.Let(sir.Ref("x", sir.String()), b))
		if e.Code != diag.LowEmptyUpcast || len(e.Types) != 2 {
			t.Fatalf("error = %v", e)
		}
	})
	t.Run("if arms", func(t *testing.T) {
		root := sir.If(sir.BoolLit(true), sir.IntLit(1), sir.StringLit("a"), intT)
		e := lowerErr(t, root)
		if e.Code != diag.LowArmsNotUnifiable || len(e.Types) != 2 {
			t.Fatalf("error = %v", e)
		}
	})
	t.Run("no conversion", func(t *testing.T) {
		fn := sir.Arrow(intT, intT)
		optT := sir.Sum(sir.OptionDecl, fn)
		root := sir.Construct(sir.OptionDecl, sir.SomeConstr, optT, sir.Lam("x", intT, sir.Ref("x", intT)))
		e := lowerErr(t, root)
		if e.Code != diag.LowNoConversion || len(e.Reprs) != 2 {
			t.Fatalf("error = %v", e)
		}
	})
	t.Run("arms", func(t *testing.T) {
		root := sir.Match(sir.BoolLit(true), intT,
			sir.Arm("True", nil, sir.IntLit(1)),
			sir.Arm("False", nil, sir.BytesLit([]byte{1})))
		if e := lowerErr(t, root); e.Code != diag.LowArmsNotUnifiable {
			t.Fatalf("code = %s", e.Code.ID())
		}
	})
}

func TestBoolMatchAgreesAcrossStrategies(t *testing.T) {
	root := sir.Match(sir.BoolLit(true), intT,
		sir.Arm("True", nil, sir.IntLit(1)),
		sir.Arm("False", nil, sir.IntLit(0)))
	for _, v := range []uplc.Version{uplc.V1, uplc.V3, uplc.V4} {
		wantInt(t, run(t, v, lowerOK(t, v, root).Term), 1)
	}
}

func TestRecursionOverEmptyListTerminates(t *testing.T) {
	lt := sir.ListOf(intT)
	fnT := sir.Arrow(lt, intT)
	body := sir.Match(sir.Ref("xs", lt), intT,
		sir.Arm(sir.ConsConstr, []string{"h", "t"},
			add(sir.Ref("h", intT), sir.App(sir.Ref("go", fnT), sir.Ref("t", lt), intT))),
		sir.Arm(sir.NilConstr, nil, sir.IntLit(0)))
	root := sir.LetRec("go", fnT, sir.Lam("xs", lt, body),
		sir.App(sir.Ref("go", fnT), listOf(intT), intT))
	for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
		res := lowerOK(t, v, root)
		m := uplc.NewMachine(v, 10_000)
		c, err := m.EvalConstant(res.Term)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		wantInt(t, c, 0)
	}
}

func TestScrutineeEvaluatedOnEveryTarget(t *testing.T) {
	pairT := sir.BuiltinPair(intT, intT)
	tt := sir.TupleOf(intT, intT)
	pairLit := sir.Lit(uplc.Pair(uplc.Integer(1), uplc.Integer(2)))
	tuple := sir.Construct(sir.TupleDecl, sir.TupleDecl, tt, sir.IntLit(1), sir.IntLit(2))
	tests := []struct {
		name  string
		scrut *sir.Expr
		arm   string
		fails bool
	}{
		{name: "failing pair", scrut: sir.Fail("boom", pairT), arm: "Pair", fails: true},
		{name: "failing tuple", scrut: sir.Fail("boom", tt), arm: sir.TupleDecl, fails: true},
		{name: "pair", scrut: pairLit, arm: "Pair"},
		{name: "tuple", scrut: tuple, arm: sir.TupleDecl},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := sir.Match(tc.scrut, intT, sir.Arm(tc.arm, nil, sir.IntLit(1)))
			for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
				res := lowerOK(t, v, root)
				c, err := uplc.NewMachine(v, 1_000_000).EvalConstant(res.Term)
				if tc.fails {
					if err == nil {
						t.Fatalf("%s: scrutinee skipped, got %s from %s", v, c, res.Term)
					}
					continue
				}
				if err != nil {
					t.Fatalf("%s: %v", v, err)
				}
				wantInt(t, c, 1)
			}
		})
	}
}

func TestIfJoinsConstructorArms(t *testing.T) {
	someT := sir.CaseClass(sir.OptionDecl, sir.SomeConstr, intT)
	noneT := sir.CaseClass(sir.OptionDecl, sir.NoneConstr)
	pick := func(cond bool) *sir.Expr {
		opt := sir.If(sir.BoolLit(cond),
			sir.Construct(sir.OptionDecl, sir.SomeConstr, someT, sir.IntLit(3)),
			sir.Construct(sir.OptionDecl, sir.NoneConstr, noneT),
			sir.Free())
		return sir.Match(opt, intT,
			sir.Arm(sir.NoneConstr, nil, sir.IntLit(0)),
			sir.Arm(sir.SomeConstr, []string{"v"}, sir.Ref("v", intT)))
	}
	for _, v := range []uplc.Version{uplc.V3, uplc.V4} {
		wantInt(t, run(t, v, lowerOK(t, v, pick(true)).Term), 3)
		wantInt(t, run(t, v, lowerOK(t, v, pick(false)).Term), 0)
	}
}
