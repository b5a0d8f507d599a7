package sir

import (
	"fmt"

	"sirc/internal/source"
	"sirc/internal/uplc"
)

// ExprKind tags an Expr.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprVar
	ExprConst
	ExprLet
	ExprLamAbs
	ExprApply
	ExprSelect
	ExprAnd
	ExprOr
	ExprNot
	ExprIfThenElse
	ExprBuiltin
	ExprError
	ExprConstr
	ExprMatch
	ExprCast
)

func (k ExprKind) String() string {
	switch k {
	case ExprVar:
		return "Var"
	case ExprConst:
		return "Const"
	case ExprLet:
		return "Let"
	case ExprLamAbs:
		return "LamAbs"
	case ExprApply:
		return "Apply"
	case ExprSelect:
		return "Select"
	case ExprAnd:
		return "And"
	case ExprOr:
		return "Or"
	case ExprNot:
		return "Not"
	case ExprIfThenElse:
		return "IfThenElse"
	case ExprBuiltin:
		return "Builtin"
	case ExprError:
		return "Error"
	case ExprConstr:
		return "Constr"
	case ExprMatch:
		return "Match"
	case ExprCast:
		return "Cast"
	default:
		return fmt.Sprintf("ExprKind(%d)", k)
	}
}

// Wildcard is the constructor name of a catch-all match arm.
const Wildcard = "_"

// Expr is a typed SIR expression. Operands carries the children of And, Or,
// Not, IfThenElse (cond, then, else), Select (target), Match (scrutinee),
// Cast (operand) and Constr (arguments).
type Expr struct {
	Kind      ExprKind        `msgpack:"k"`
	Type      *Type           `msgpack:"t"`
	Span      source.Span     `msgpack:"sp"`
	Name      string          `msgpack:"n,omitempty"`
	Const     *uplc.Constant  `msgpack:"c,omitempty"`
	Builtin   uplc.DefaultFun `msgpack:"bi,omitempty"`
	Decl      string          `msgpack:"d,omitempty"`
	Recursive bool            `msgpack:"rec,omitempty"`
	Bindings  []Binding       `msgpack:"bs,omitempty"`
	ParamType *Type           `msgpack:"pt,omitempty"`
	Body      *Expr           `msgpack:"b,omitempty"`
	Fun       *Expr           `msgpack:"f,omitempty"`
	Arg       *Expr           `msgpack:"a,omitempty"`
	Operands  []*Expr         `msgpack:"o,omitempty"`
	Cases     []MatchCase     `msgpack:"cs,omitempty"`
}

// Binding is one let binding.
type Binding struct {
	Name  string      `msgpack:"n"`
	Type  *Type       `msgpack:"t"`
	Value *Expr       `msgpack:"v"`
	Span  source.Span `msgpack:"sp"`
}

// MatchCase is one arm of a Match. Constr is a constructor name or Wildcard;
// for Data scrutinees the names are Constr, Map, List, I and B.
type MatchCase struct {
	Constr  string      `msgpack:"c"`
	Binders []string    `msgpack:"b,omitempty"`
	Body    *Expr       `msgpack:"e"`
	Span    source.Span `msgpack:"sp"`
}

func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprVar:
		return e.Name
	case ExprConst:
		return e.Const.String()
	case ExprLamAbs:
		return fmt.Sprintf("\\%s: %s -> %s", e.Name, e.ParamType, e.Body)
	case ExprApply:
		return fmt.Sprintf("(%s %s)", e.Fun, e.Arg)
	case ExprBuiltin:
		return e.Builtin.String()
	case ExprSelect:
		return fmt.Sprintf("%s.%s", e.Operands[0], e.Name)
	case ExprConstr:
		return fmt.Sprintf("%s(...%d)", e.Name, len(e.Operands))
	case ExprError:
		return fmt.Sprintf("error(%q)", e.Name)
	}
	return e.Kind.String() + ": " + e.Type.String()
}

func Ref(name string, t *Type) *Expr { return &Expr{Kind: ExprVar, Name: name, Type: t} }

// Lit builds a constant whose SIR type follows the constant type.
func Lit(c uplc.Constant) *Expr {
	return &Expr{Kind: ExprConst, Const: &c, Type: ConstSIRType(c.Type)}
}

func IntLit(n int64) *Expr      { return Lit(uplc.Integer(n)) }
func BoolLit(b bool) *Expr      { return Lit(uplc.Bool(b)) }
func StringLit(s string) *Expr  { return Lit(uplc.String(s)) }
func BytesLit(b []byte) *Expr   { return Lit(uplc.ByteString(b)) }
func UnitLit() *Expr            { return Lit(uplc.Unit()) }
func DataLit(d uplc.Data) *Expr { return Lit(uplc.DataConst(d)) }

// Let binds bs non-recursively around body.
func Let(body *Expr, bs ...Binding) *Expr {
	return &Expr{Kind: ExprLet, Bindings: bs, Body: body, Type: body.Type}
}

// LetRec binds a single recursive binding around body.
func LetRec(name string, t *Type, value, body *Expr) *Expr {
	return &Expr{
		Kind: ExprLet, Recursive: true, Body: body, Type: body.Type,
		Bindings: []Binding{{Name: name, Type: t, Value: value}},
	}
}

// Bind is a let binding whose type is the value's type.
func Bind(name string, value *Expr) Binding {
	return Binding{Name: name, Type: value.Type, Value: value}
}

func Lam(param string, t *Type, body *Expr) *Expr {
	return &Expr{Kind: ExprLamAbs, Name: param, ParamType: t, Body: body, Type: Arrow(t, body.Type)}
}

// App applies f to arg; a nil result type is read off f's type.
func App(f, arg *Expr, result *Type) *Expr {
	if result == nil {
		result = f.Type.Out()
	}
	return &Expr{Kind: ExprApply, Fun: f, Arg: arg, Type: result}
}

// Call applies f to args in turn using f's (monomorphic) type.
func Call(f *Expr, args ...*Expr) *Expr {
	e := f
	for _, a := range args {
		e = App(e, a, nil)
	}
	return e
}

func Select(target *Expr, field string, t *Type) *Expr {
	return &Expr{Kind: ExprSelect, Name: field, Operands: []*Expr{target}, Type: t}
}

func And(a, b *Expr) *Expr { return &Expr{Kind: ExprAnd, Operands: []*Expr{a, b}, Type: Boolean()} }
func Or(a, b *Expr) *Expr  { return &Expr{Kind: ExprOr, Operands: []*Expr{a, b}, Type: Boolean()} }
func Not(a *Expr) *Expr    { return &Expr{Kind: ExprNot, Operands: []*Expr{a}, Type: Boolean()} }

func If(cond, then, els *Expr, t *Type) *Expr {
	if t == nil {
		t = then.Type
	}
	return &Expr{Kind: ExprIfThenElse, Operands: []*Expr{cond, then, els}, Type: t}
}

// BuiltinRef references a builtin with its signature type.
func BuiltinRef(f uplc.DefaultFun) *Expr {
	return &Expr{Kind: ExprBuiltin, Builtin: f, Type: BuiltinType(f)}
}

// Fail is the error expression; its type is Nothing unless t is given.
func Fail(msg string, t *Type) *Expr {
	if t == nil {
		t = Nothing()
	}
	return &Expr{Kind: ExprError, Name: msg, Type: t}
}

// Construct builds constructor constr of decl with args; t is the
// instantiated CaseClass (or Sum) type.
func Construct(decl, constr string, t *Type, args ...*Expr) *Expr {
	return &Expr{Kind: ExprConstr, Decl: decl, Name: constr, Operands: args, Type: t}
}

func Match(scrut *Expr, t *Type, cases ...MatchCase) *Expr {
	return &Expr{Kind: ExprMatch, Operands: []*Expr{scrut}, Cases: cases, Type: t}
}

func Arm(constr string, binders []string, body *Expr) MatchCase {
	return MatchCase{Constr: constr, Binders: binders, Body: body}
}

func Cast(e *Expr, t *Type) *Expr {
	return &Expr{Kind: ExprCast, Operands: []*Expr{e}, Type: t}
}

// At sets the span of e and returns it.
func (e *Expr) At(sp source.Span) *Expr {
	e.Span = sp
	return e
}

// ConstSIRType maps a constant type to the SIR type of its values.
func ConstSIRType(t uplc.ConstType) *Type {
	switch t.Kind {
	case uplc.ConstInteger:
		return Integer()
	case uplc.ConstByteString:
		return ByteString()
	case uplc.ConstString:
		return String()
	case uplc.ConstUnit:
		return Unit()
	case uplc.ConstBool:
		return Boolean()
	case uplc.ConstData:
		return DataT()
	case uplc.ConstList:
		return BuiltinList(ConstSIRType(*t.Elem))
	case uplc.ConstArray:
		return BuiltinArray(ConstSIRType(*t.Elem))
	case uplc.ConstPair:
		return BuiltinPair(ConstSIRType(*t.Elem), ConstSIRType(*t.Snd))
	}
	return Free()
}

// ConstTypeOf is the inverse of ConstSIRType. It fails for types whose
// values have no constant form.
func ConstTypeOf(t *Type) (uplc.ConstType, bool) {
	t = t.Unwrap()
	if t == nil {
		return uplc.ConstType{}, false
	}
	switch t.Kind {
	case TypeInteger:
		return uplc.TInteger, true
	case TypeByteString:
		return uplc.TByteString, true
	case TypeString:
		return uplc.TString, true
	case TypeUnit:
		return uplc.TUnit, true
	case TypeBoolean:
		return uplc.TBool, true
	case TypeData:
		return uplc.TData, true
	case TypeBuiltinList, TypeBuiltinArray:
		e, ok := ConstTypeOf(t.Args[0])
		if !ok {
			return uplc.ConstType{}, false
		}
		if t.Kind == TypeBuiltinArray {
			return uplc.TArray(e), true
		}
		return uplc.TList(e), true
	case TypeBuiltinPair:
		a, okA := ConstTypeOf(t.Args[0])
		b, okB := ConstTypeOf(t.Args[1])
		if !okA || !okB {
			return uplc.ConstType{}, false
		}
		return uplc.TPair(a, b), true
	}
	return uplc.ConstType{}, false
}
