package lowering

import (
	"fmt"
	"strings"

	"sirc/internal/sir"
)

// ReprKind is the head of a representation.
type ReprKind uint8

const (
	ReprInvalid ReprKind = iota
	// ReprConstant is the native constant form of builtin-family types.
	ReprConstant
	// ReprPackedData is a value of any Data-encodable type packed into Data.
	ReprPackedData
	// ReprSumDataConstr encodes a sum as Constr(tag, fields).
	ReprSumDataConstr
	// ReprSumDataList is a List as a native list of Data elements.
	ReprSumDataList
	// ReprPackedSumDataList is a List packed into Data (Data List).
	ReprPackedSumDataList
	// ReprSumDataPairList is a List of pairs as a native list of Data pairs.
	ReprSumDataPairList
	// ReprSumDataAssocMap is a pair list packed into Data (Data Map).
	ReprSumDataAssocMap
	// ReprProdDataConstr encodes a product as Constr(tag, fields).
	ReprProdDataConstr
	// ReprProdDataList is a product as the native list of its Data fields.
	ReprProdDataList
	// ReprProdPair is a two-field product as a native pair of Data.
	ReprProdPair
	// ReprProdDataArray is a product as a native array of its Data fields.
	ReprProdDataArray
	// ReprLambda is a closure; Delayed closures take no argument.
	ReprLambda
	// ReprTypeVar is the representation of a value whose type is a variable.
	ReprTypeVar
	// ReprError is the representation of a diverging value.
	ReprError
)

func (k ReprKind) String() string {
	switch k {
	case ReprConstant:
		return "Constant"
	case ReprPackedData:
		return "PackedData"
	case ReprSumDataConstr:
		return "SumDataConstr"
	case ReprSumDataList:
		return "SumDataList"
	case ReprPackedSumDataList:
		return "PackedSumDataList"
	case ReprSumDataPairList:
		return "SumDataPairList"
	case ReprSumDataAssocMap:
		return "SumDataAssocMap"
	case ReprProdDataConstr:
		return "ProdDataConstr"
	case ReprProdDataList:
		return "ProdDataList"
	case ReprProdPair:
		return "ProdPair"
	case ReprProdDataArray:
		return "ProdDataArray"
	case ReprLambda:
		return "Lambda"
	case ReprTypeVar:
		return "TypeVar"
	case ReprError:
		return "Error"
	default:
		return "Invalid"
	}
}

// Repr is a representation. In and Out describe closure argument and result
// representations; Delayed marks a closure over an ignored unit argument
// emitted as a delay. Builtin marks a type-variable representation that
// comes from a builtin signature and therefore needs no Data packing.
type Repr struct {
	Kind    ReprKind
	In      *Repr
	Out     *Repr
	Delayed bool
	Builtin bool
}

var (
	Constant          = Repr{Kind: ReprConstant}
	PackedData        = Repr{Kind: ReprPackedData}
	SumDataConstr     = Repr{Kind: ReprSumDataConstr}
	SumDataList       = Repr{Kind: ReprSumDataList}
	PackedSumDataList = Repr{Kind: ReprPackedSumDataList}
	SumDataPairList   = Repr{Kind: ReprSumDataPairList}
	SumDataAssocMap   = Repr{Kind: ReprSumDataAssocMap}
	ProdDataConstr    = Repr{Kind: ReprProdDataConstr}
	ProdDataList      = Repr{Kind: ReprProdDataList}
	ProdPair          = Repr{Kind: ReprProdPair}
	ProdDataArray     = Repr{Kind: ReprProdDataArray}
	ErrorRepr         = Repr{Kind: ReprError}
	UserTypeVar       = Repr{Kind: ReprTypeVar}
	BuiltinTypeVar    = Repr{Kind: ReprTypeVar, Builtin: true}
)

// LambdaRepr is a closure from in to out.
func LambdaRepr(in, out Repr) Repr { return Repr{Kind: ReprLambda, In: &in, Out: &out} }

// DelayedRepr is a closure over an ignored unit argument.
func DelayedRepr(out Repr) Repr { return Repr{Kind: ReprLambda, Out: &out, Delayed: true} }

func (r Repr) Equal(o Repr) bool {
	if r.Kind != o.Kind || r.Delayed != o.Delayed || r.Builtin != o.Builtin {
		return false
	}
	if r.Kind != ReprLambda {
		return true
	}
	return reprPtrEqual(r.In, o.In) && reprPtrEqual(r.Out, o.Out)
}

func reprPtrEqual(a, b *Repr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (r Repr) String() string {
	switch r.Kind {
	case ReprLambda:
		if r.Delayed {
			return "Delayed(" + r.Out.String() + ")"
		}
		return "Lambda(" + r.In.String() + " -> " + r.Out.String() + ")"
	case ReprTypeVar:
		if r.Builtin {
			return "TypeVar(builtin)"
		}
		return "TypeVar(user)"
	}
	return r.Kind.String()
}

// key is a canonical string used to memoise conversions per representation.
func (r Repr) key() string {
	var sb strings.Builder
	r.writeKey(&sb)
	return sb.String()
}

func (r Repr) writeKey(sb *strings.Builder) {
	fmt.Fprintf(sb, "%d", r.Kind)
	if r.Builtin {
		sb.WriteByte('b')
	}
	if r.Kind == ReprLambda {
		if r.Delayed {
			sb.WriteByte('d')
		} else {
			sb.WriteByte('(')
			r.In.writeKey(sb)
			sb.WriteByte(')')
		}
		sb.WriteByte('{')
		r.Out.writeKey(sb)
		sb.WriteByte('}')
	}
}

// IsPackedData reports whether r lays the value out as a single Data.
func (r Repr) IsPackedData() bool {
	switch r.Kind {
	case ReprPackedData, ReprSumDataConstr, ReprProdDataConstr, ReprPackedSumDataList, ReprSumDataAssocMap:
		return true
	}
	return false
}

// family classifies types for representation purposes.
type family uint8

const (
	famOther family = iota
	famPrimitive
	famData
	famBuiltin // builtin list/pair/array
	famList
	famSum
	famProduct
	famFun
	famTypeVar
	famNothing
)

func (l *Lowering) familyOf(t *sir.Type) family {
	t = t.Unwrap()
	switch {
	case t == nil:
		return famOther
	case t.IsPrimitive():
		return famPrimitive
	case t.Kind == sir.TypeData:
		return famData
	case t.Kind == sir.TypeBuiltinList, t.Kind == sir.TypeBuiltinPair, t.Kind == sir.TypeBuiltinArray:
		return famBuiltin
	case t.IsList():
		return famList
	case t.Kind == sir.TypeCaseClass:
		return famProduct
	case t.Kind == sir.TypeSum:
		if l.types.IsProduct(t) {
			return famProduct
		}
		return famSum
	case t.Kind == sir.TypeFun:
		return famFun
	case t.Kind == sir.TypeVar, t.Kind == sir.TypeFree:
		return famTypeVar
	case t.Kind == sir.TypeNothing:
		return famNothing
	}
	return famOther
}

// DefaultRepr is the representation values of t have unless something
// better is known.
func (l *Lowering) DefaultRepr(t *sir.Type) Repr {
	switch l.familyOf(t) {
	case famPrimitive, famData, famBuiltin:
		return Constant
	case famList:
		if l.isPairListElem(t.Unwrap().Elem()) {
			return SumDataPairList
		}
		return SumDataList
	case famSum:
		return SumDataConstr
	case famProduct:
		return ProdDataConstr
	case famFun:
		ft := t.Unwrap()
		return LambdaRepr(l.DefaultRepr(ft.Args[0]), l.DefaultRepr(ft.Args[1]))
	case famTypeVar:
		if u := t.Unwrap(); u.Kind == sir.TypeVar && u.Builtin {
			return BuiltinTypeVar
		}
		return UserTypeVar
	case famNothing:
		return ErrorRepr
	}
	return PackedData
}

// DataRepr is the Data-packed representation of t, used as the detour of
// last resort and as the layout of fields and type-variable values.
func (l *Lowering) DataRepr(t *sir.Type) Repr {
	switch l.familyOf(t) {
	case famList:
		if l.isPairListElem(t.Unwrap().Elem()) {
			return SumDataAssocMap
		}
		return PackedSumDataList
	case famSum:
		return SumDataConstr
	case famProduct:
		return ProdDataConstr
	case famFun:
		return l.DefaultRepr(t)
	case famNothing:
		return ErrorRepr
	}
	return PackedData
}

// isPairListElem reports whether a List over elem is laid out as a list of
// Data pairs: lists of two-field tuples and of builtin Data pairs are.
func (l *Lowering) isPairListElem(elem *sir.Type) bool {
	elem = elem.Unwrap()
	switch elem.Kind {
	case sir.TypeCaseClass, sir.TypeSum:
		return elem.Name == sir.TupleDecl
	case sir.TypeBuiltinPair:
		return elem.Args[0].Kind == sir.TypeData && elem.Args[1].Kind == sir.TypeData
	}
	return false
}

// ElemRepr is the representation of the elements of a list value in r.
func (l *Lowering) ElemRepr(r Repr, elem *sir.Type) Repr {
	if r.Kind == ReprSumDataPairList {
		if elem.Unwrap().Kind == sir.TypeBuiltinPair {
			return Constant
		}
		return ProdPair
	}
	return l.DataRepr(elem)
}

// IsCompatible reports whether a value of type t in representation a can be
// used as b without any runtime work.
func (l *Lowering) IsCompatible(t *sir.Type, a, b Repr) bool {
	if a.Equal(b) {
		return true
	}
	if a.Kind == ReprError || b.Kind == ReprError {
		return true
	}
	fam := l.familyOf(t)
	if fam == famTypeVar || fam == famNothing {
		return true
	}
	if (a.Kind == ReprTypeVar && a.Builtin) || (b.Kind == ReprTypeVar && b.Builtin) {
		return true
	}
	if a.Kind == ReprLambda && b.Kind == ReprLambda {
		if a.Delayed != b.Delayed {
			return false
		}
		ft := t.Unwrap()
		if !a.Delayed && !l.IsCompatible(ft.In(), *a.In, *b.In) {
			return false
		}
		return l.IsCompatible(ft.Out(), *a.Out, *b.Out)
	}
	if a.Kind == ReprTypeVar {
		a = l.DataRepr(t)
	}
	if b.Kind == ReprTypeVar {
		b = l.DataRepr(t)
	}
	a, b = l.normalize(t, a), l.normalize(t, b)
	if a.Equal(b) {
		return true
	}
	return reprClass(fam, a) != 0 && reprClass(fam, a) == reprClass(fam, b)
}

// reprClass groups representations that share a runtime layout within a
// family. Zero means the representation stands alone.
func reprClass(fam family, r Repr) int {
	switch fam {
	case famPrimitive:
		return 0
	case famData:
		if r.Kind == ReprConstant || r.Kind == ReprPackedData {
			return 1
		}
	case famSum, famProduct:
		switch r.Kind {
		case ReprSumDataConstr, ReprProdDataConstr, ReprPackedData:
			return 1
		}
	}
	return 0
}
