package uplc_test

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"sirc/internal/uplc"
)

func evalConst(t *testing.T, v uplc.Version, term *uplc.Term) uplc.Constant {
	t.Helper()
	m := uplc.NewMachine(v, 100_000)
	c, err := m.EvalConstant(term)
	if err != nil {
		t.Fatalf("eval %s: %v", term, err)
	}
	return c
}

func intTerm(n int64) *uplc.Term { return uplc.Const(uplc.Integer(n)) }

func TestIntegerDivisionRounding(t *testing.T) {
	cases := []struct {
		fun  uplc.DefaultFun
		a, b int64
		want int64
	}{
		{uplc.DivideInteger, -7, 2, -4},
		{uplc.ModInteger, -7, 2, 1},
		{uplc.QuotientInteger, -7, 2, -3},
		{uplc.RemainderInteger, -7, 2, -1},
		{uplc.DivideInteger, 7, -2, -4},
		{uplc.ModInteger, 7, -2, -1},
	}
	for _, tc := range cases {
		got := evalConst(t, uplc.V1, uplc.Apply(uplc.Builtin(tc.fun), intTerm(tc.a), intTerm(tc.b)))
		if got.Int.Cmp(big.NewInt(tc.want)) != 0 {
			t.Errorf("%s %d %d = %s, want %d", tc.fun, tc.a, tc.b, got.Int, tc.want)
		}
	}
}

func TestDivisionByZeroFails(t *testing.T) {
	m := uplc.NewMachine(uplc.V1, 0)
	_, err := m.Eval(uplc.Apply(uplc.Builtin(uplc.DivideInteger), intTerm(1), intTerm(0)))
	var ee *uplc.EvalError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EvalError, got %v", err)
	}
}

func TestLambdaAndForce(t *testing.T) {
	// [(lam x (force (delay x))) 5]
	term := uplc.Apply(uplc.Lam("x", uplc.Force(uplc.Delay(uplc.Var("x")))), intTerm(5))
	if got := evalConst(t, uplc.V1, term); !got.Equal(uplc.Integer(5)) {
		t.Fatalf("got %s", got)
	}
}

func TestIfThenElseIsPolymorphic(t *testing.T) {
	term := uplc.Force(uplc.Apply(uplc.Builtin(uplc.IfThenElse),
		uplc.Const(uplc.Bool(false)),
		uplc.Delay(uplc.Error()),
		uplc.Delay(intTerm(2))))
	if got := evalConst(t, uplc.V1, term); !got.Equal(uplc.Integer(2)) {
		t.Fatalf("got %s", got)
	}
}

func TestListBuiltins(t *testing.T) {
	list := uplc.Const(uplc.DataListConst(uplc.IntD(1), uplc.IntD(2)))
	head := uplc.Apply(uplc.Builtin(uplc.UnIData), uplc.Apply(uplc.Builtin(uplc.HeadList),
		uplc.Apply(uplc.Builtin(uplc.TailList), list)))
	if got := evalConst(t, uplc.V1, head); !got.Equal(uplc.Integer(2)) {
		t.Fatalf("got %s", got)
	}
	m := uplc.NewMachine(uplc.V1, 0)
	if _, err := m.Eval(uplc.Apply(uplc.Builtin(uplc.HeadList), uplc.Const(uplc.List(uplc.TData)))); err == nil {
		t.Fatal("headList of empty list must fail")
	}
}

func TestBudgetExhausted(t *testing.T) {
	// omega: (lam x [x x]) (lam x [x x])
	w := uplc.Lam("x", uplc.Apply(uplc.Var("x"), uplc.Var("x")))
	m := uplc.NewMachine(uplc.V1, 1000)
	if _, err := m.Eval(uplc.Apply(w, w)); !errors.Is(err, uplc.ErrBudgetExhausted) {
		t.Fatalf("expected budget exhaustion, got %v", err)
	}
}

func TestCaseOnBuiltinsRequiresV4(t *testing.T) {
	term := uplc.Case(uplc.Const(uplc.Bool(true)), intTerm(0), intTerm(1))
	if got := evalConst(t, uplc.V4, term); !got.Equal(uplc.Integer(1)) {
		t.Fatalf("got %s", got)
	}
	m := uplc.NewMachine(uplc.V3, 0)
	if _, err := m.Eval(term); err == nil {
		t.Fatal("case on bool must fail before v4")
	}
}

func TestCaseOnData(t *testing.T) {
	d := uplc.Const(uplc.DataConst(uplc.ConstrD(3, uplc.IntD(9))))
	// case d [(lam tag (lam fields tag)), error, error, error, error]
	branch := uplc.Lam("tag", uplc.Lam("fields", uplc.Var("tag")))
	term := uplc.Case(d, branch, uplc.Error(), uplc.Error(), uplc.Error(), uplc.Error())
	if got := evalConst(t, uplc.V4, term); !got.Equal(uplc.Integer(3)) {
		t.Fatalf("got %s", got)
	}
}

func TestCaseOnList(t *testing.T) {
	list := uplc.Const(uplc.List(uplc.TInteger, uplc.Integer(4), uplc.Integer(5)))
	term := uplc.Case(list, uplc.Lam("h", uplc.Lam("t", uplc.Var("h"))), intTerm(-1))
	if got := evalConst(t, uplc.V4, term); !got.Equal(uplc.Integer(4)) {
		t.Fatalf("got %s", got)
	}
	empty := uplc.Case(uplc.Const(uplc.List(uplc.TInteger)), uplc.Lam("h", uplc.Lam("t", uplc.Var("h"))), intTerm(-1))
	if got := evalConst(t, uplc.V4, empty); !got.Equal(uplc.Integer(-1)) {
		t.Fatalf("got %s", got)
	}
}

func TestConstrAndCase(t *testing.T) {
	term := uplc.Case(uplc.Constr(1, intTerm(7)), uplc.Error(), uplc.Lam("x", uplc.Var("x")))
	if got := evalConst(t, uplc.V3, term); !got.Equal(uplc.Integer(7)) {
		t.Fatalf("got %s", got)
	}
}

func TestArraysOnlyInV4(t *testing.T) {
	arr := uplc.Apply(uplc.Builtin(uplc.ListToArray), uplc.Const(uplc.List(uplc.TInteger, uplc.Integer(1), uplc.Integer(2))))
	term := uplc.Apply(uplc.Builtin(uplc.IndexArray), arr, intTerm(1))
	if got := evalConst(t, uplc.V4, term); !got.Equal(uplc.Integer(2)) {
		t.Fatalf("got %s", got)
	}
	if uplc.ListToArray.AvailableIn(uplc.V3) {
		t.Fatal("listToArray must not be available in v3")
	}
}

func TestTraceCollectsLogs(t *testing.T) {
	m := uplc.NewMachine(uplc.V1, 0)
	_, err := m.Eval(uplc.Apply(uplc.Builtin(uplc.Trace), uplc.Const(uplc.String("hi")), intTerm(1)))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Logs) != 1 || m.Logs[0] != "hi" {
		t.Fatalf("logs = %v", m.Logs)
	}
}

func TestSerialiseData(t *testing.T) {
	cases := []struct {
		d    uplc.Data
		want []byte
	}{
		{uplc.ConstrD(0), []byte{0xd8, 0x79, 0x80}},
		{uplc.IntD(1), []byte{0x01}},
		{uplc.IntD(-1), []byte{0x20}},
		{uplc.ListD(uplc.IntD(1)), []byte{0x9f, 0x01, 0xff}},
		{uplc.BytesD([]byte{0xaa}), []byte{0x41, 0xaa}},
		{uplc.ConstrD(7), []byte{0xd9, 0x05, 0x00, 0x80}},
	}
	for _, tc := range cases {
		if got := uplc.SerialiseDataCBOR(tc.d); !bytes.Equal(got, tc.want) {
			t.Errorf("serialise %s = %x, want %x", tc.d, got, tc.want)
		}
	}
}
