package sir

import (
	"fmt"
	"strings"
)

// TypeKind tags a Type.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeInteger
	TypeByteString
	TypeString
	TypeBoolean
	TypeUnit
	TypeData
	TypeBuiltinList  // Args[0] element
	TypeBuiltinPair  // Args[0], Args[1]
	TypeBuiltinArray // Args[0] element
	TypeSum          // Name = declaration, Args = type arguments
	TypeCaseClass    // Name = declaration, Constr = constructor, Args = type arguments
	TypeFun          // Args[0] -> Args[1]
	TypeVar          // Name, VarID, Builtin
	TypeLambda       // forall Params. Args[0]
	TypeNothing
	TypeFree
)

func (k TypeKind) String() string {
	switch k {
	case TypeInteger:
		return "Integer"
	case TypeByteString:
		return "ByteString"
	case TypeString:
		return "String"
	case TypeBoolean:
		return "Boolean"
	case TypeUnit:
		return "Unit"
	case TypeData:
		return "Data"
	case TypeBuiltinList:
		return "BuiltinList"
	case TypeBuiltinPair:
		return "BuiltinPair"
	case TypeBuiltinArray:
		return "BuiltinArray"
	case TypeSum:
		return "Sum"
	case TypeCaseClass:
		return "CaseClass"
	case TypeFun:
		return "Fun"
	case TypeVar:
		return "TypeVar"
	case TypeLambda:
		return "TypeLambda"
	case TypeNothing:
		return "Nothing"
	case TypeFree:
		return "Free"
	default:
		return "Invalid"
	}
}

// Type is a SIR type. Types are treated as immutable values once built.
type Type struct {
	Kind    TypeKind `msgpack:"k"`
	Name    string   `msgpack:"n,omitempty"`
	Constr  string   `msgpack:"c,omitempty"`
	Args    []*Type  `msgpack:"a,omitempty"`
	Params  []*Type  `msgpack:"p,omitempty"`
	VarID   uint32   `msgpack:"i,omitempty"`
	Builtin bool     `msgpack:"b,omitempty"`
}

var (
	intType    = &Type{Kind: TypeInteger}
	bytesType  = &Type{Kind: TypeByteString}
	stringType = &Type{Kind: TypeString}
	boolType   = &Type{Kind: TypeBoolean}
	unitType   = &Type{Kind: TypeUnit}
	dataType   = &Type{Kind: TypeData}
	nothing    = &Type{Kind: TypeNothing}
	free       = &Type{Kind: TypeFree}
)

func Integer() *Type    { return intType }
func ByteString() *Type { return bytesType }
func String() *Type     { return stringType }
func Boolean() *Type    { return boolType }
func Unit() *Type       { return unitType }
func DataT() *Type      { return dataType }
func Nothing() *Type    { return nothing }
func Free() *Type       { return free }

func BuiltinList(elem *Type) *Type { return &Type{Kind: TypeBuiltinList, Args: []*Type{elem}} }

func BuiltinPair(a, b *Type) *Type { return &Type{Kind: TypeBuiltinPair, Args: []*Type{a, b}} }

func BuiltinArray(elem *Type) *Type { return &Type{Kind: TypeBuiltinArray, Args: []*Type{elem}} }

// Fun builds the curried function type ins[0] -> ... -> out.
func Fun(out *Type, ins ...*Type) *Type {
	t := out
	for i := len(ins) - 1; i >= 0; i-- {
		t = &Type{Kind: TypeFun, Args: []*Type{ins[i], t}}
	}
	return t
}

// Arrow is the single-argument function type in -> out.
func Arrow(in, out *Type) *Type { return &Type{Kind: TypeFun, Args: []*Type{in, out}} }

// Var is a type variable. Builtin variables come from builtin signatures and
// never force a Data encoding; user variables do.
func Var(name string, id uint32, builtin bool) *Type {
	return &Type{Kind: TypeVar, Name: name, VarID: id, Builtin: builtin}
}

func Sum(decl string, args ...*Type) *Type { return &Type{Kind: TypeSum, Name: decl, Args: args} }

func CaseClass(decl, constr string, args ...*Type) *Type {
	return &Type{Kind: TypeCaseClass, Name: decl, Constr: constr, Args: args}
}

// Forall wraps body in a type lambda over params (each a TypeVar).
func Forall(params []*Type, body *Type) *Type {
	if len(params) == 0 {
		return body
	}
	return &Type{Kind: TypeLambda, Params: params, Args: []*Type{body}}
}

// In is the parameter type of a function type.
func (t *Type) In() *Type {
	if f := t.Unwrap(); f.Kind == TypeFun {
		return f.Args[0]
	}
	return Free()
}

// Out is the result type of a function type.
func (t *Type) Out() *Type {
	if f := t.Unwrap(); f.Kind == TypeFun {
		return f.Args[1]
	}
	return Free()
}

// Unwrap strips type lambdas.
func (t *Type) Unwrap() *Type {
	for t != nil && t.Kind == TypeLambda {
		t = t.Args[0]
	}
	return t
}

// Elem is the element type of builtin lists/arrays and of the List declaration.
func (t *Type) Elem() *Type {
	if len(t.Args) > 0 {
		return t.Args[0]
	}
	return Free()
}

// IsPrimitive reports whether t is one of the builtin scalar types.
func (t *Type) IsPrimitive() bool {
	switch t.Kind {
	case TypeInteger, TypeByteString, TypeString, TypeBoolean, TypeUnit:
		return true
	}
	return false
}

// IsBuiltinFamily reports whether values of t live natively as constants.
func (t *Type) IsBuiltinFamily() bool {
	switch t.Kind {
	case TypeData, TypeBuiltinList, TypeBuiltinPair, TypeBuiltinArray:
		return true
	}
	return t.IsPrimitive()
}

// IsList reports whether t is the List declaration or one of its constructors.
func (t *Type) IsList() bool {
	return (t.Kind == TypeSum || t.Kind == TypeCaseClass) && t.Name == ListDecl
}

func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeVar:
		return t.VarID == o.VarID && t.Name == o.Name && t.Builtin == o.Builtin
	case TypeSum, TypeCaseClass:
		if t.Name != o.Name || t.Constr != o.Constr {
			return false
		}
	case TypeLambda:
		if !typesEqual(t.Params, o.Params) {
			return false
		}
	}
	return typesEqual(t.Args, o.Args)
}

func typesEqual(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeBuiltinList, TypeBuiltinPair, TypeBuiltinArray:
		return t.Kind.String() + typeArgs(t.Args)
	case TypeSum:
		return t.Name + typeArgs(t.Args)
	case TypeCaseClass:
		return t.Constr + typeArgs(t.Args)
	case TypeFun:
		in := t.Args[0].String()
		if t.Args[0].Kind == TypeFun || t.Args[0].Kind == TypeLambda {
			in = "(" + in + ")"
		}
		return in + " -> " + t.Args[1].String()
	case TypeVar:
		return t.Name
	case TypeLambda:
		names := make([]string, len(t.Params))
		for i, p := range t.Params {
			names[i] = p.Name
		}
		return fmt.Sprintf("[%s] =>> %s", strings.Join(names, ", "), t.Args[0])
	}
	return t.Kind.String()
}

func typeArgs(args []*Type) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
