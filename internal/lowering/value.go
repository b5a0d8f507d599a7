package lowering

import (
	"fmt"

	"fortio.org/safecast"

	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/uplc"
)

// ValueID indexes the value arena. Zero is the invalid id.
type ValueID uint32

const NoValueID ValueID = 0

func (id ValueID) IsValid() bool { return id != NoValueID }

// ValueKind tags a Value.
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota

	// leaves
	ValueConst
	ValueBuiltinRef
	ValueError
	ValueTypeError

	// identifiable: may be bound to a name and referenced
	ValueVar
	ValueAlias

	// composite
	ValueLambda
	ValueApply
	ValueLet
	ValueFix
	ValueCase
	ValueBuiltin1
	ValueBuiltin2
	ValueBuiltinN

	// proxies: one child, transparent for placement
	ValueDelay
	ValueForce
	ValueReinterpret
)

func (k ValueKind) String() string {
	switch k {
	case ValueConst:
		return "const"
	case ValueBuiltinRef:
		return "builtin"
	case ValueError:
		return "error"
	case ValueTypeError:
		return "type-error"
	case ValueVar:
		return "var"
	case ValueAlias:
		return "alias"
	case ValueLambda:
		return "lambda"
	case ValueApply:
		return "apply"
	case ValueLet:
		return "let"
	case ValueFix:
		return "fix"
	case ValueCase:
		return "case"
	case ValueBuiltin1:
		return "builtin1"
	case ValueBuiltin2:
		return "builtin2"
	case ValueBuiltinN:
		return "builtinN"
	case ValueDelay:
		return "delay"
	case ValueForce:
		return "force"
	case ValueReinterpret:
		return "reinterpret"
	default:
		return "invalid"
	}
}

func (k ValueKind) IsLeaf() bool { return k >= ValueConst && k <= ValueTypeError }

func (k ValueKind) IsIdentifiable() bool { return k == ValueVar || k == ValueAlias }

func (k ValueKind) IsComposite() bool { return k >= ValueLambda && k <= ValueBuiltinN }

func (k ValueKind) IsProxy() bool { return k >= ValueDelay && k <= ValueReinterpret }

// CaseShape is the kind of value a Case node dispatches on.
type CaseShape uint8

const (
	ShapeBool CaseShape = iota // branches: false, true
	ShapeInteger               // branches: 0 .. n-1
	ShapeList                  // branches: cons(head, tail), nil
	ShapePair                  // branch: (fst, snd)
	ShapeData                  // branches: Constr(tag, fields), Map, List, I, B
	ShapeUnit                  // branch: ()
)

func (s CaseShape) String() string {
	switch s {
	case ShapeBool:
		return "bool"
	case ShapeInteger:
		return "integer"
	case ShapeList:
		return "list"
	case ShapePair:
		return "pair"
	case ShapeData:
		return "data"
	case ShapeUnit:
		return "unit"
	default:
		return fmt.Sprintf("shape(%d)", s)
	}
}

// Value is a node of the lowering graph.
type Value struct {
	Kind ValueKind
	Type *sir.Type
	Repr Repr
	Span source.Span

	Name    string // Var/Alias base name, Error message
	Const   uplc.Constant
	Builtin uplc.DefaultFun

	Rhs    ValueID // defining value of a Var/Alias; NoValueID for binders
	Origin ValueID // Alias: the root variable it converts

	// Subs are the children in emission order: Lambda [body], Apply [f, arg],
	// Let [body], Fix [rec], Case [scrutinee, branches...], builtins: args,
	// proxies: [inner].
	Subs    []ValueID
	Owned   []ValueID   // variables whose scope this value defines
	Strict  ValueID     // Let: owned variable evaluated on entry
	Param   ValueID     // Lambda parameter; Fix self variable
	Barrier bool        // Lambda: bind parameter-independent work outside the body
	Shape   CaseShape   // Case
	Native  bool        // Case: use the native case form
	Binders [][]ValueID // Case: per-branch binders

	used       varSet
	direct     map[ValueID]int
	dominating []ValueID
	placed     bool
}

// value returns the arena entry for id.
func (l *Lowering) value(id ValueID) *Value {
	if !id.IsValid() || int(id) >= len(l.values) {
		l.fail(nil, source.NoSpan, "internal: invalid value id %d", id)
	}
	return &l.values[id]
}

// Value exposes a value of the graph for inspection.
func (l *Lowering) Value(id ValueID) *Value { return l.value(id) }

// NumValues is the arena size (excluding the invalid slot).
func (l *Lowering) NumValues() int { return len(l.values) - 1 }

func (l *Lowering) alloc(v Value) ValueID {
	id, err := safecast.Conv[uint32](len(l.values))
	if err != nil {
		panic(fmt.Errorf("value arena overflow: %w", err))
	}
	l.values = append(l.values, v)
	return ValueID(id)
}

// newNode allocates a composite, proxy or leaf value and records its
// dependency summary.
func (l *Lowering) newNode(v Value) ValueID {
	id := l.alloc(v)
	l.summarize(id)
	return id
}

// newVar allocates a variable. rhs may be NoValueID for binders (lambda
// parameters, native case binders) or set later for recursive bindings.
func (l *Lowering) newVar(name string, t *sir.Type, r Repr, rhs ValueID, sp source.Span) ValueID {
	id := l.alloc(Value{
		Kind: ValueVar,
		Name: l.freshName(name),
		Type: t,
		Repr: r,
		Span: sp,
	})
	if rhs.IsValid() {
		l.setRhs(id, rhs)
	}
	return id
}

// setRhs attaches the definition of a variable and records dependencies.
func (l *Lowering) setRhs(v, rhs ValueID) {
	val := l.value(v)
	if val.Rhs.IsValid() {
		l.fail(nil, val.Span, "internal: variable %s defined twice", val.Name)
	}
	val.Rhs = rhs
	l.noteSlot(rhs)
	l.recordDeps(v)
}

// letVar binds an existing value to a fresh variable unless it already is
// one.
func (l *Lowering) letVar(name string, id ValueID) ValueID {
	v := l.value(id)
	if v.Kind.IsIdentifiable() {
		return id
	}
	return l.newVar(name, v.Type, v.Repr, id, v.Span)
}

func (l *Lowering) constValue(c uplc.Constant, t *sir.Type, sp source.Span) ValueID {
	return l.newNode(Value{Kind: ValueConst, Const: c, Type: t, Repr: Constant, Span: sp})
}

func (l *Lowering) errorValue(msg string, t *sir.Type, sp source.Span) ValueID {
	return l.newNode(Value{Kind: ValueError, Name: msg, Type: t, Repr: ErrorRepr, Span: sp})
}

func (l *Lowering) typeErrorValue(msg string, t *sir.Type, sp source.Span) ValueID {
	return l.newNode(Value{Kind: ValueTypeError, Name: msg, Type: t, Repr: ErrorRepr, Span: sp})
}

func (l *Lowering) reinterpret(id ValueID, t *sir.Type, r Repr) ValueID {
	v := l.value(id)
	if v.Repr.Equal(r) && (t == nil || t.Equal(v.Type)) {
		return id
	}
	if t == nil {
		t = v.Type
	}
	// Collapse chains of reinterpretations onto the underlying value.
	inner := id
	if v.Kind == ValueReinterpret {
		inner = v.Subs[0]
	}
	return l.newNode(Value{Kind: ValueReinterpret, Subs: []ValueID{inner}, Type: t, Repr: r, Span: v.Span})
}

func (l *Lowering) delay(id ValueID, r Repr) ValueID {
	v := l.value(id)
	return l.newNode(Value{Kind: ValueDelay, Subs: []ValueID{id}, Type: v.Type, Repr: r, Span: v.Span})
}

func (l *Lowering) force(id ValueID, t *sir.Type, r Repr) ValueID {
	v := l.value(id)
	return l.newNode(Value{Kind: ValueForce, Subs: []ValueID{id}, Type: t, Repr: r, Span: v.Span})
}

// apply builds a raw application without any representation conversion.
func (l *Lowering) apply(f, arg ValueID, t *sir.Type, r Repr, sp source.Span) ValueID {
	return l.newNode(Value{Kind: ValueApply, Subs: []ValueID{f, arg}, Type: t, Repr: r, Span: sp})
}

// builtin applies fun to already converted args.
func (l *Lowering) builtin(fun uplc.DefaultFun, t *sir.Type, r Repr, sp source.Span, args ...ValueID) ValueID {
	if !fun.AvailableIn(l.target) {
		l.failCode(codeUnsupportedBuiltin, sp, nil, nil, "builtin %s is not available in %s (needs %s)", fun, l.target, fun.Since())
	}
	kind := ValueBuiltinN
	switch len(args) {
	case 1:
		kind = ValueBuiltin1
	case 2:
		kind = ValueBuiltin2
	}
	return l.newNode(Value{Kind: kind, Builtin: fun, Subs: args, Type: t, Repr: r, Span: sp})
}

func (l *Lowering) builtinRef(fun uplc.DefaultFun, sp source.Span) ValueID {
	return l.newNode(Value{Kind: ValueBuiltinRef, Builtin: fun, Type: sir.BuiltinType(fun), Repr: l.builtinRefRepr(fun), Span: sp})
}

// isEffortless reports whether evaluating id costs nothing worth sharing.
func (l *Lowering) isEffortless(id ValueID) bool {
	v := l.value(id)
	switch v.Kind {
	case ValueConst, ValueBuiltinRef, ValueVar, ValueAlias, ValueLambda, ValueDelay:
		return true
	case ValueReinterpret:
		return l.isEffortless(v.Subs[0])
	}
	return false
}

// inlinable reports whether a variable is always substituted by its
// definition instead of being bound, however often it is used.
func (l *Lowering) inlinable(v *Value) bool {
	if !v.Rhs.IsValid() {
		return false
	}
	rhs := l.value(v.Rhs)
	for rhs.Kind == ValueReinterpret {
		rhs = l.value(rhs.Subs[0])
	}
	switch rhs.Kind {
	case ValueBuiltinRef, ValueError, ValueTypeError, ValueVar, ValueAlias:
		return true
	case ValueConst:
		return smallConstant(rhs.Const)
	}
	return false
}

func smallConstant(c uplc.Constant) bool {
	switch c.Type.Kind {
	case uplc.ConstInteger:
		return c.Int == nil || c.Int.BitLen() <= 64
	case uplc.ConstBool, uplc.ConstUnit:
		return true
	case uplc.ConstByteString:
		return len(c.Bytes) <= 8
	case uplc.ConstString:
		return len(c.Str) <= 8
	case uplc.ConstList:
		return len(c.Items) == 0
	}
	return false
}
