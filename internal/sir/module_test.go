package sir_test

import (
	"bytes"
	"testing"

	"sirc/internal/diag"
	"sirc/internal/sir"
	"sirc/internal/uplc"
)

func TestModuleEncodeDecode(t *testing.T) {
	body := sir.Call(sir.BuiltinRef(uplc.AddInteger), sir.Ref("x", sir.Integer()), sir.IntLit(1))
	m := &sir.Module{
		Name: "inc",
		Root: sir.Lam("x", sir.Integer(), body),
	}
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	back, err := sir.DecodeModule(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "inc" || back.Root.Kind != sir.ExprLamAbs || !back.Root.Type.Equal(m.Root.Type) {
		t.Fatalf("decoded module differs: %+v", back.Root)
	}
	if back.Root.Body.Fun.Fun.Builtin != uplc.AddInteger {
		t.Fatalf("builtin lost: %s", back.Root.Body.Fun.Fun)
	}
}

func TestValidateReportsUnboundVariable(t *testing.T) {
	m := &sir.Module{Name: "bad", Root: sir.Ref("missing", sir.Integer())}
	bag := diag.NewBag(10)
	ok := sir.Validate(m, sir.NewChecker(nil), diag.BagReporter{Bag: bag})
	if ok || !bag.HasErrors() {
		t.Fatal("expected an error")
	}
	if bag.Items()[0].Code != diag.IRMalformed {
		t.Fatalf("code = %s", bag.Items()[0].Code)
	}
}

func TestValidateAcceptsMatchBinders(t *testing.T) {
	opt := sir.Sum(sir.OptionDecl, sir.Integer())
	m := &sir.Module{Name: "ok", Root: sir.Lam("o", opt, sir.Match(sir.Ref("o", opt), sir.Integer(),
		sir.Arm(sir.SomeConstr, []string{"v"}, sir.Ref("v", sir.Integer())),
		sir.Arm(sir.NoneConstr, nil, sir.IntLit(0)),
	))}
	if !sir.Validate(m, sir.NewChecker(nil), nil) {
		t.Fatal("valid module rejected")
	}
}
