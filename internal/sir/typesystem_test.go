package sir_test

import (
	"testing"

	"sirc/internal/sir"
)

func TestUnifyBindsUserVariables(t *testing.T) {
	ts := sir.NewChecker(nil)
	a := sir.Var("A", 1, false)
	r := ts.Unify(sir.Arrow(a, a), sir.Arrow(sir.Integer(), sir.Integer()), false)
	if !r.OK {
		t.Fatalf("unify failed: %s", r.Reason)
	}
	if got := r.Subst.Apply(a); !got.Equal(sir.Integer()) {
		t.Fatalf("A bound to %s", got)
	}
}

func TestUnifyUpcastOnlyWhenAllowed(t *testing.T) {
	ts := sir.NewChecker(nil)
	some := sir.CaseClass(sir.OptionDecl, sir.SomeConstr, sir.Integer())
	opt := sir.Sum(sir.OptionDecl, sir.Integer())
	if ts.Unify(some, opt, false).OK {
		t.Fatal("Some[Integer] must not unify with Option[Integer] without upcast")
	}
	if !ts.Unify(some, opt, true).OK {
		t.Fatal("Some[Integer] must upcast to Option[Integer]")
	}
	if ts.Unify(sir.Integer(), sir.String(), true).OK {
		t.Fatal("Integer and String are unrelated")
	}
}

func TestUpcastChain(t *testing.T) {
	ts := sir.NewChecker(nil)
	some := sir.CaseClass(sir.OptionDecl, sir.SomeConstr, sir.Integer())
	chain := ts.UpcastChain(some, sir.Sum(sir.OptionDecl, sir.Integer()))
	if len(chain) != 1 || chain[0].Kind != sir.TypeSum {
		t.Fatalf("chain = %v", chain)
	}
	if got := ts.UpcastChain(sir.Integer(), sir.String()); len(got) != 0 {
		t.Fatalf("expected empty chain, got %v", got)
	}
}

func TestJoinOfConstructors(t *testing.T) {
	ts := sir.NewChecker(nil)
	some := sir.CaseClass(sir.OptionDecl, sir.SomeConstr, sir.Integer())
	none := sir.CaseClass(sir.OptionDecl, sir.NoneConstr)
	j, ok := ts.Join(none, some)
	if !ok || j.Kind != sir.TypeSum || j.Name != sir.OptionDecl {
		t.Fatalf("join = %v, %v", j, ok)
	}
	if j, ok := ts.Join(sir.Nothing(), sir.Integer()); !ok || !j.Equal(sir.Integer()) {
		t.Fatalf("Nothing must join to the other side, got %v", j)
	}
	if _, ok := ts.Join(sir.Integer(), sir.ByteString()); ok {
		t.Fatal("Integer and ByteString do not join")
	}
}

func TestSumProductClassification(t *testing.T) {
	ts := sir.NewChecker(nil)
	if !ts.IsSum(sir.ListOf(sir.Integer())) {
		t.Fatal("List is a sum")
	}
	if !ts.IsProduct(sir.TupleOf(sir.Integer(), sir.String())) {
		t.Fatal("Tuple2 is a product")
	}
	if ts.IsProduct(sir.Integer()) || ts.IsSum(sir.Integer()) {
		t.Fatal("Integer is neither")
	}
}

func TestFieldTypesInstantiate(t *testing.T) {
	ts := sir.NewChecker(nil)
	d, _ := ts.Decl(sir.ListDecl)
	_, cons, _ := d.Constr(sir.ConsConstr)
	fts := d.FieldTypes(cons, []*sir.Type{sir.ByteString()})
	if !fts[0].Equal(sir.ByteString()) || !fts[1].Equal(sir.ListOf(sir.ByteString())) {
		t.Fatalf("field types = %v", fts)
	}
}

func TestTypeString(t *testing.T) {
	ft := sir.Fun(sir.Integer(), sir.Arrow(sir.Integer(), sir.Boolean()), sir.ListOf(sir.Integer()))
	if got := ft.String(); got != "(Integer -> Boolean) -> List[Integer] -> Integer" {
		t.Fatalf("got %s", got)
	}
}
