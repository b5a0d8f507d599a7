package sir

import "sirc/internal/uplc"

// Builtin type variables; ids live in a reserved range so they never clash
// with user variables.
const (
	builtinVarA uint32 = 0xFFFE0001 + iota
	builtinVarB
)

var (
	bA = Var("a", builtinVarA, true)
	bB = Var("b", builtinVarB, true)
)

// BuiltinType is the SIR signature of f. Polymorphic builtins are wrapped in
// a type lambda over builtin type variables.
func BuiltinType(f uplc.DefaultFun) *Type {
	i, b, s, u, d := Integer(), ByteString(), String(), Unit(), DataT()
	boolean := Boolean()
	switch f {
	case uplc.AddInteger, uplc.SubtractInteger, uplc.MultiplyInteger, uplc.DivideInteger,
		uplc.QuotientInteger, uplc.RemainderInteger, uplc.ModInteger:
		return Fun(i, i, i)
	case uplc.EqualsInteger, uplc.LessThanInteger, uplc.LessThanEqualsInteger:
		return Fun(boolean, i, i)
	case uplc.AppendByteString:
		return Fun(b, b, b)
	case uplc.ConsByteString:
		return Fun(b, i, b)
	case uplc.SliceByteString:
		return Fun(b, i, i, b)
	case uplc.LengthOfByteString:
		return Fun(i, b)
	case uplc.IndexByteString:
		return Fun(i, b, i)
	case uplc.EqualsByteString, uplc.LessThanByteString, uplc.LessThanEqualsByteString:
		return Fun(boolean, b, b)
	case uplc.Sha2_256, uplc.Sha3_256, uplc.Blake2b_256:
		return Fun(b, b)
	case uplc.AppendString:
		return Fun(s, s, s)
	case uplc.EqualsString:
		return Fun(boolean, s, s)
	case uplc.EncodeUtf8:
		return Fun(b, s)
	case uplc.DecodeUtf8:
		return Fun(s, b)
	case uplc.IfThenElse:
		return Forall([]*Type{bA}, Fun(bA, boolean, bA, bA))
	case uplc.ChooseUnit:
		return Forall([]*Type{bA}, Fun(bA, u, bA))
	case uplc.Trace:
		return Forall([]*Type{bA}, Fun(bA, s, bA))
	case uplc.FstPair:
		return Forall([]*Type{bA, bB}, Fun(bA, BuiltinPair(bA, bB)))
	case uplc.SndPair:
		return Forall([]*Type{bA, bB}, Fun(bB, BuiltinPair(bA, bB)))
	case uplc.ChooseList:
		return Forall([]*Type{bA, bB}, Fun(bB, BuiltinList(bA), bB, bB))
	case uplc.MkCons:
		return Forall([]*Type{bA}, Fun(BuiltinList(bA), bA, BuiltinList(bA)))
	case uplc.HeadList:
		return Forall([]*Type{bA}, Fun(bA, BuiltinList(bA)))
	case uplc.TailList:
		return Forall([]*Type{bA}, Fun(BuiltinList(bA), BuiltinList(bA)))
	case uplc.NullList:
		return Forall([]*Type{bA}, Fun(boolean, BuiltinList(bA)))
	case uplc.ChooseData:
		return Forall([]*Type{bA}, Fun(bA, d, bA, bA, bA, bA, bA))
	case uplc.ConstrData:
		return Fun(d, i, BuiltinList(d))
	case uplc.MapData:
		return Fun(d, BuiltinList(BuiltinPair(d, d)))
	case uplc.ListData:
		return Fun(d, BuiltinList(d))
	case uplc.IData:
		return Fun(d, i)
	case uplc.BData:
		return Fun(d, b)
	case uplc.UnConstrData:
		return Fun(BuiltinPair(i, BuiltinList(d)), d)
	case uplc.UnMapData:
		return Fun(BuiltinList(BuiltinPair(d, d)), d)
	case uplc.UnListData:
		return Fun(BuiltinList(d), d)
	case uplc.UnIData:
		return Fun(i, d)
	case uplc.UnBData:
		return Fun(b, d)
	case uplc.EqualsData:
		return Fun(boolean, d, d)
	case uplc.MkPairData:
		return Fun(BuiltinPair(d, d), d, d)
	case uplc.MkNilData:
		return Fun(BuiltinList(d), u)
	case uplc.MkNilPairData:
		return Fun(BuiltinList(BuiltinPair(d, d)), u)
	case uplc.SerialiseData:
		return Fun(b, d)
	case uplc.LengthOfArray:
		return Forall([]*Type{bA}, Fun(i, BuiltinArray(bA)))
	case uplc.ListToArray:
		return Forall([]*Type{bA}, Fun(BuiltinArray(bA), BuiltinList(bA)))
	case uplc.IndexArray:
		return Forall([]*Type{bA}, Fun(bA, BuiltinArray(bA), i))
	}
	return Free()
}

// BuiltinParamTypes splits a builtin signature into parameter types and the
// result type.
func BuiltinParamTypes(f uplc.DefaultFun) ([]*Type, *Type) {
	t := BuiltinType(f).Unwrap()
	var ins []*Type
	for t.Kind == TypeFun {
		ins = append(ins, t.Args[0])
		t = t.Args[1]
	}
	return ins, t
}
