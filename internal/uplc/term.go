package uplc

import "fmt"

// TermKind tags a Term.
type TermKind uint8

const (
	TermVar TermKind = iota
	TermLam
	TermApply
	TermForce
	TermDelay
	TermConst
	TermBuiltin
	TermError
	TermConstr
	TermCase
)

func (k TermKind) String() string {
	switch k {
	case TermVar:
		return "var"
	case TermLam:
		return "lam"
	case TermApply:
		return "apply"
	case TermForce:
		return "force"
	case TermDelay:
		return "delay"
	case TermConst:
		return "con"
	case TermBuiltin:
		return "builtin"
	case TermError:
		return "error"
	case TermConstr:
		return "constr"
	case TermCase:
		return "case"
	default:
		return fmt.Sprintf("TermKind(%d)", k)
	}
}

// Term is an immutable node of the untyped calculus. Only the fields that
// belong to Kind are set.
type Term struct {
	Kind      TermKind   `msgpack:"k"`
	Name      string     `msgpack:"n,omitempty"` // Var, Lam binder
	Body      *Term      `msgpack:"b,omitempty"` // Lam, Force, Delay
	Fun       *Term      `msgpack:"f,omitempty"` // Apply
	Arg       *Term      `msgpack:"a,omitempty"` // Apply
	Const     *Constant  `msgpack:"c,omitempty"`
	Builtin   DefaultFun `msgpack:"u,omitempty"`
	Tag       uint64     `msgpack:"t,omitempty"` // Constr
	Args      []*Term    `msgpack:"x,omitempty"` // Constr fields, Case branches
	Scrutinee *Term      `msgpack:"s,omitempty"` // Case
}

func Var(name string) *Term { return &Term{Kind: TermVar, Name: name} }

func Lam(name string, body *Term) *Term { return &Term{Kind: TermLam, Name: name, Body: body} }

// Apply builds a left-nested application of f to args.
func Apply(f *Term, args ...*Term) *Term {
	t := f
	for _, a := range args {
		t = &Term{Kind: TermApply, Fun: t, Arg: a}
	}
	return t
}

func Force(t *Term) *Term { return &Term{Kind: TermForce, Body: t} }

func Delay(t *Term) *Term { return &Term{Kind: TermDelay, Body: t} }

func Const(c Constant) *Term { return &Term{Kind: TermConst, Const: &c} }

func Error() *Term { return &Term{Kind: TermError} }

// Builtin references f with all its required forces applied.
func Builtin(f DefaultFun) *Term {
	t := &Term{Kind: TermBuiltin, Builtin: f}
	for range f.Forces() {
		t = Force(t)
	}
	return t
}

// RawBuiltin references f without forces.
func RawBuiltin(f DefaultFun) *Term { return &Term{Kind: TermBuiltin, Builtin: f} }

func Constr(tag uint64, fields ...*Term) *Term {
	return &Term{Kind: TermConstr, Tag: tag, Args: fields}
}

func Case(scrut *Term, branches ...*Term) *Term {
	return &Term{Kind: TermCase, Scrutinee: scrut, Args: branches}
}

// Program is a versioned top-level term.
type Program struct {
	Version Version `msgpack:"v"`
	Term    *Term   `msgpack:"t"`
}

// Walk visits t and its subterms in pre-order until fn returns false.
func Walk(t *Term, fn func(*Term) bool) {
	if t == nil || !fn(t) {
		return
	}
	switch t.Kind {
	case TermLam, TermForce, TermDelay:
		Walk(t.Body, fn)
	case TermApply:
		Walk(t.Fun, fn)
		Walk(t.Arg, fn)
	case TermConstr:
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case TermCase:
		Walk(t.Scrutinee, fn)
		for _, a := range t.Args {
			Walk(a, fn)
		}
	}
}

// Size counts the nodes of t.
func Size(t *Term) int {
	n := 0
	Walk(t, func(*Term) bool { n++; return true })
	return n
}

// FreeVars lists the names referenced but not bound in t, in first-use order.
func FreeVars(t *Term) []string {
	var out []string
	seen := map[string]bool{}
	var visit func(t *Term, bound map[string]int)
	visit = func(t *Term, bound map[string]int) {
		if t == nil {
			return
		}
		switch t.Kind {
		case TermVar:
			if bound[t.Name] == 0 && !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t.Name)
			}
		case TermLam:
			bound[t.Name]++
			visit(t.Body, bound)
			bound[t.Name]--
		case TermForce, TermDelay:
			visit(t.Body, bound)
		case TermApply:
			visit(t.Fun, bound)
			visit(t.Arg, bound)
		case TermConstr:
			for _, a := range t.Args {
				visit(a, bound)
			}
		case TermCase:
			visit(t.Scrutinee, bound)
			for _, a := range t.Args {
				visit(a, bound)
			}
		}
	}
	visit(t, map[string]int{})
	return out
}
