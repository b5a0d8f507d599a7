package uplc

import "fmt"

// DefaultFun names a builtin function.
type DefaultFun uint8

const (
	AddInteger DefaultFun = iota
	SubtractInteger
	MultiplyInteger
	DivideInteger
	QuotientInteger
	RemainderInteger
	ModInteger
	EqualsInteger
	LessThanInteger
	LessThanEqualsInteger
	AppendByteString
	ConsByteString
	SliceByteString
	LengthOfByteString
	IndexByteString
	EqualsByteString
	LessThanByteString
	LessThanEqualsByteString
	Sha2_256
	Sha3_256
	Blake2b_256
	AppendString
	EqualsString
	EncodeUtf8
	DecodeUtf8
	IfThenElse
	ChooseUnit
	Trace
	FstPair
	SndPair
	ChooseList
	MkCons
	HeadList
	TailList
	NullList
	ChooseData
	ConstrData
	MapData
	ListData
	IData
	BData
	UnConstrData
	UnMapData
	UnListData
	UnIData
	UnBData
	EqualsData
	MkPairData
	MkNilData
	MkNilPairData
	SerialiseData
	LengthOfArray
	ListToArray
	IndexArray

	numBuiltins
)

type builtinInfo struct {
	name   string
	arity  int
	forces int
	since  Version
}

var builtinTable = [numBuiltins]builtinInfo{
	AddInteger:               {"addInteger", 2, 0, V1},
	SubtractInteger:          {"subtractInteger", 2, 0, V1},
	MultiplyInteger:          {"multiplyInteger", 2, 0, V1},
	DivideInteger:            {"divideInteger", 2, 0, V1},
	QuotientInteger:          {"quotientInteger", 2, 0, V1},
	RemainderInteger:         {"remainderInteger", 2, 0, V1},
	ModInteger:               {"modInteger", 2, 0, V1},
	EqualsInteger:            {"equalsInteger", 2, 0, V1},
	LessThanInteger:          {"lessThanInteger", 2, 0, V1},
	LessThanEqualsInteger:    {"lessThanEqualsInteger", 2, 0, V1},
	AppendByteString:         {"appendByteString", 2, 0, V1},
	ConsByteString:           {"consByteString", 2, 0, V1},
	SliceByteString:          {"sliceByteString", 3, 0, V1},
	LengthOfByteString:       {"lengthOfByteString", 1, 0, V1},
	IndexByteString:          {"indexByteString", 2, 0, V1},
	EqualsByteString:         {"equalsByteString", 2, 0, V1},
	LessThanByteString:       {"lessThanByteString", 2, 0, V1},
	LessThanEqualsByteString: {"lessThanEqualsByteString", 2, 0, V1},
	Sha2_256:                 {"sha2_256", 1, 0, V1},
	Sha3_256:                 {"sha3_256", 1, 0, V1},
	Blake2b_256:              {"blake2b_256", 1, 0, V1},
	AppendString:             {"appendString", 2, 0, V1},
	EqualsString:             {"equalsString", 2, 0, V1},
	EncodeUtf8:               {"encodeUtf8", 1, 0, V1},
	DecodeUtf8:               {"decodeUtf8", 1, 0, V1},
	IfThenElse:               {"ifThenElse", 3, 1, V1},
	ChooseUnit:               {"chooseUnit", 2, 1, V1},
	Trace:                    {"trace", 2, 1, V1},
	FstPair:                  {"fstPair", 1, 2, V1},
	SndPair:                  {"sndPair", 1, 2, V1},
	ChooseList:               {"chooseList", 3, 2, V1},
	MkCons:                   {"mkCons", 2, 1, V1},
	HeadList:                 {"headList", 1, 1, V1},
	TailList:                 {"tailList", 1, 1, V1},
	NullList:                 {"nullList", 1, 1, V1},
	ChooseData:               {"chooseData", 6, 1, V1},
	ConstrData:               {"constrData", 2, 0, V1},
	MapData:                  {"mapData", 1, 0, V1},
	ListData:                 {"listData", 1, 0, V1},
	IData:                    {"iData", 1, 0, V1},
	BData:                    {"bData", 1, 0, V1},
	UnConstrData:             {"unConstrData", 1, 0, V1},
	UnMapData:                {"unMapData", 1, 0, V1},
	UnListData:               {"unListData", 1, 0, V1},
	UnIData:                  {"unIData", 1, 0, V1},
	UnBData:                  {"unBData", 1, 0, V1},
	EqualsData:               {"equalsData", 2, 0, V1},
	MkPairData:               {"mkPairData", 2, 0, V1},
	MkNilData:                {"mkNilData", 1, 0, V1},
	MkNilPairData:            {"mkNilPairData", 1, 0, V1},
	SerialiseData:            {"serialiseData", 1, 0, V2},
	LengthOfArray:            {"lengthOfArray", 1, 1, V4},
	ListToArray:              {"listToArray", 1, 1, V4},
	IndexArray:               {"indexArray", 2, 1, V4},
}

func (f DefaultFun) valid() bool { return f < numBuiltins }

func (f DefaultFun) String() string {
	if !f.valid() {
		return fmt.Sprintf("builtin(%d)", f)
	}
	return builtinTable[f].name
}

// Arity is the number of term arguments.
func (f DefaultFun) Arity() int {
	if !f.valid() {
		return 0
	}
	return builtinTable[f].arity
}

// Forces is the number of type instantiations (forces) before application.
func (f DefaultFun) Forces() int {
	if !f.valid() {
		return 0
	}
	return builtinTable[f].forces
}

// Since is the first version offering f.
func (f DefaultFun) Since() Version {
	if !f.valid() {
		return VersionUnknown
	}
	return builtinTable[f].since
}

// AvailableIn reports whether f can be used when targeting v.
func (f DefaultFun) AvailableIn(v Version) bool { return f.valid() && v >= builtinTable[f].since }

// LookupBuiltin resolves a builtin by its textual name.
func LookupBuiltin(name string) (DefaultFun, bool) {
	f, ok := builtinsByName[name]
	return f, ok
}

var builtinsByName = func() map[string]DefaultFun {
	m := make(map[string]DefaultFun, numBuiltins)
	for i := range builtinTable {
		m[builtinTable[i].name] = DefaultFun(i)
	}
	return m
}()
