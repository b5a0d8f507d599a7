package uplc_test

import (
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"sirc/internal/uplc"
)

func TestTermString(t *testing.T) {
	term := uplc.Apply(uplc.Lam("x", uplc.Apply(uplc.Builtin(uplc.AddInteger), uplc.Var("x"), uplc.Var("x"))), intTerm(2))
	want := "[(lam x [(builtin addInteger) x x]) (con integer 2)]"
	if got := term.String(); got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
	if got := uplc.Builtin(uplc.HeadList).String(); got != "(force (builtin headList))" {
		t.Fatalf("forced builtin printed as %s", got)
	}
}

func TestPrettyBreaksLongTerms(t *testing.T) {
	term := uplc.Lam("aVeryLongBinderName", uplc.Apply(uplc.Builtin(uplc.AppendString),
		uplc.Const(uplc.String("some long string literal")), uplc.Var("aVeryLongBinderName")))
	out := uplc.Pretty(term, 30)
	if !strings.Contains(out, "\n") {
		t.Fatalf("expected line breaks, got %q", out)
	}
	if flat := uplc.Pretty(intTerm(1), 80); flat != "(con integer 1)" {
		t.Fatalf("short term should stay flat: %q", flat)
	}
}

func TestFreeVars(t *testing.T) {
	term := uplc.Lam("x", uplc.Apply(uplc.Var("f"), uplc.Var("x"), uplc.Var("y")))
	got := uplc.FreeVars(term)
	if len(got) != 2 || got[0] != "f" || got[1] != "y" {
		t.Fatalf("free vars = %v", got)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"x":       "x",
		"my-var":  "my_var",
		"1st":     "v1st",
		"":        "v",
		"café":    "caf_",
		"a'":      "a'",
		"Some.ok": "Some_ok",
	}
	for in, want := range cases {
		if got := uplc.SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	for in, want := range map[string]uplc.Version{"v1": uplc.V1, "V4": uplc.V4, "3": uplc.V3} {
		got, err := uplc.ParseVersion(in)
		if err != nil || got != want {
			t.Errorf("ParseVersion(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := uplc.ParseVersion("v9"); err == nil {
		t.Fatal("expected error for v9")
	}
}

func TestProgramMsgpackKeepsBigIntegers(t *testing.T) {
	big := uplc.Const(uplc.DataConst(uplc.ConstrD(1, uplc.MapD(uplc.DataPair{Key: uplc.IntD(1), Value: uplc.BytesD([]byte("x"))}))))
	prog := uplc.Program{Version: uplc.V3, Term: uplc.Apply(uplc.Lam("d", uplc.Var("d")), big)}
	raw, err := msgpack.Marshal(&prog)
	if err != nil {
		t.Fatal(err)
	}
	var back uplc.Program
	if err := msgpack.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Term.String() != prog.Term.String() {
		t.Fatalf("round trip changed term:\n%s\n%s", back.Term, prog.Term)
	}
}
