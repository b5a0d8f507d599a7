package uplc

import (
	"bytes"
	"crypto/sha256"
	"math/big"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

func (m *Machine) asCon(v *Value, want ConstKind, f DefaultFun) Constant {
	if v.kind != valCon || v.con.Type.Kind != want {
		m.fail("%s: expected %s argument, got %s", f, ConstType{Kind: want}, v)
	}
	return v.con
}

func (m *Machine) asInt(v *Value, f DefaultFun) *big.Int {
	return bigOrZero(m.asCon(v, ConstInteger, f).Int)
}

func (m *Machine) asBytes(v *Value, f DefaultFun) []byte {
	return m.asCon(v, ConstByteString, f).Bytes
}

func (m *Machine) asData(v *Value, f DefaultFun) Data {
	c := m.asCon(v, ConstData, f)
	if c.Data == nil {
		m.fail("%s: nil data", f)
	}
	return *c.Data
}

func (m *Machine) asDataList(v *Value, f DefaultFun) []Data {
	c := m.asCon(v, ConstList, f)
	out := make([]Data, len(c.Items))
	for i, it := range c.Items {
		if it.Type.Kind != ConstData || it.Data == nil {
			m.fail("%s: expected list of data", f)
		}
		out[i] = *it.Data
	}
	return out
}

func (m *Machine) smallInt(n *big.Int, f DefaultFun) int {
	if !n.IsInt64() {
		m.fail("%s: integer %s out of range", f, n)
	}
	i, err := safecast.Conv[int](n.Int64())
	if err != nil {
		m.fail("%s: %v", f, err)
	}
	return i
}

func boolVal(b bool) *Value { return con(Bool(b)) }

func intVal(n *big.Int) *Value { return &Value{kind: valCon, con: Constant{Type: TInteger, Int: n}} }

// floorDivMod implements division rounding towards negative infinity.
func floorDivMod(a, b *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 && r.Sign() != b.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, b)
	}
	return q, r
}

func (m *Machine) callBuiltin(f DefaultFun, args []*Value) *Value {
	switch f {
	case AddInteger, SubtractInteger, MultiplyInteger,
		DivideInteger, QuotientInteger, RemainderInteger, ModInteger:
		a, b := m.asInt(args[0], f), m.asInt(args[1], f)
		return intVal(m.arith(f, a, b))
	case EqualsInteger:
		return boolVal(m.asInt(args[0], f).Cmp(m.asInt(args[1], f)) == 0)
	case LessThanInteger:
		return boolVal(m.asInt(args[0], f).Cmp(m.asInt(args[1], f)) < 0)
	case LessThanEqualsInteger:
		return boolVal(m.asInt(args[0], f).Cmp(m.asInt(args[1], f)) <= 0)

	case AppendByteString:
		a, b := m.asBytes(args[0], f), m.asBytes(args[1], f)
		out := make([]byte, 0, len(a)+len(b))
		return con(ByteString(append(append(out, a...), b...)))
	case ConsByteString:
		n := m.smallInt(m.asInt(args[0], f), f)
		if n < 0 || n > 255 {
			m.fail("%s: byte %d out of range", f, n)
		}
		return con(ByteString(append([]byte{byte(n)}, m.asBytes(args[1], f)...)))
	case SliceByteString:
		start := m.asInt(args[0], f)
		n := m.asInt(args[1], f)
		bs := m.asBytes(args[2], f)
		return con(ByteString(sliceBytes(bs, start, n)))
	case LengthOfByteString:
		return con(Integer(int64(len(m.asBytes(args[0], f)))))
	case IndexByteString:
		bs := m.asBytes(args[0], f)
		i := m.asInt(args[1], f)
		if !i.IsInt64() || i.Int64() < 0 || i.Int64() >= int64(len(bs)) {
			m.fail("%s: index %s out of range", f, i)
		}
		return con(Integer(int64(bs[i.Int64()])))
	case EqualsByteString:
		return boolVal(bytes.Equal(m.asBytes(args[0], f), m.asBytes(args[1], f)))
	case LessThanByteString:
		return boolVal(bytes.Compare(m.asBytes(args[0], f), m.asBytes(args[1], f)) < 0)
	case LessThanEqualsByteString:
		return boolVal(bytes.Compare(m.asBytes(args[0], f), m.asBytes(args[1], f)) <= 0)
	case Sha2_256:
		sum := sha256.Sum256(m.asBytes(args[0], f))
		return con(ByteString(sum[:]))
	case Sha3_256:
		sum := sha3.Sum256(m.asBytes(args[0], f))
		return con(ByteString(sum[:]))
	case Blake2b_256:
		sum := blake2b.Sum256(m.asBytes(args[0], f))
		return con(ByteString(sum[:]))

	case AppendString:
		return con(String(m.asCon(args[0], ConstString, f).Str + m.asCon(args[1], ConstString, f).Str))
	case EqualsString:
		return boolVal(m.asCon(args[0], ConstString, f).Str == m.asCon(args[1], ConstString, f).Str)
	case EncodeUtf8:
		return con(ByteString([]byte(m.asCon(args[0], ConstString, f).Str)))
	case DecodeUtf8:
		bs := m.asBytes(args[0], f)
		if !utf8.Valid(bs) {
			m.fail("%s: invalid utf-8", f)
		}
		return con(String(string(bs)))

	case IfThenElse:
		if m.asCon(args[0], ConstBool, f).Bool {
			return args[1]
		}
		return args[2]
	case ChooseUnit:
		m.asCon(args[0], ConstUnit, f)
		return args[1]
	case Trace:
		m.Logs = append(m.Logs, m.asCon(args[0], ConstString, f).Str)
		return args[1]

	case FstPair, SndPair:
		p := m.asCon(args[0], ConstPair, f)
		if f == FstPair {
			return con(p.Items[0])
		}
		return con(p.Items[1])
	case ChooseList:
		if len(m.asCon(args[0], ConstList, f).Items) == 0 {
			return args[1]
		}
		return args[2]
	case MkCons:
		if args[0].kind != valCon {
			m.fail("%s: expected constant element", f)
		}
		l := m.asCon(args[1], ConstList, f)
		if !l.Type.Elem.Equal(args[0].con.Type) {
			m.fail("%s: element type %s does not match %s", f, args[0].con.Type, l.Type)
		}
		items := make([]Constant, 0, len(l.Items)+1)
		items = append(append(items, args[0].con), l.Items...)
		return con(Constant{Type: l.Type, Items: items})
	case HeadList, TailList, NullList:
		l := m.asCon(args[0], ConstList, f)
		if f == NullList {
			return boolVal(len(l.Items) == 0)
		}
		if len(l.Items) == 0 {
			m.fail("%s: empty list", f)
		}
		if f == HeadList {
			return con(l.Items[0])
		}
		return con(Constant{Type: l.Type, Items: l.Items[1:]})

	case ChooseData:
		d := m.asData(args[0], f)
		return args[1+int(d.Kind)]
	case ConstrData:
		tag := m.asInt(args[0], f)
		if tag.Sign() < 0 || !tag.IsUint64() {
			m.fail("%s: tag %s out of range", f, tag)
		}
		return con(DataConst(ConstrD(tag.Uint64(), m.asDataList(args[1], f)...)))
	case MapData:
		l := m.asCon(args[0], ConstList, f)
		entries := make([]DataPair, len(l.Items))
		for i, it := range l.Items {
			if it.Type.Kind != ConstPair || it.Items[0].Data == nil || it.Items[1].Data == nil {
				m.fail("%s: expected list of data pairs", f)
			}
			entries[i] = DataPair{Key: *it.Items[0].Data, Value: *it.Items[1].Data}
		}
		return con(DataConst(MapD(entries...)))
	case ListData:
		return con(DataConst(ListD(m.asDataList(args[0], f)...)))
	case IData:
		return con(DataConst(BigIntD(m.asInt(args[0], f))))
	case BData:
		return con(DataConst(BytesD(m.asBytes(args[0], f))))
	case UnConstrData:
		d := m.asData(args[0], f)
		if d.Kind != DataConstr {
			m.fail("%s: not a constr: %s", f, d)
		}
		return con(Pair(BigInteger(new(big.Int).SetUint64(d.Tag)), DataListConst(d.Fields...)))
	case UnMapData:
		d := m.asData(args[0], f)
		if d.Kind != DataMap {
			m.fail("%s: not a map: %s", f, d)
		}
		return con(pairListConst(d.Map))
	case UnListData:
		d := m.asData(args[0], f)
		if d.Kind != DataList {
			m.fail("%s: not a list: %s", f, d)
		}
		return con(DataListConst(d.Fields...))
	case UnIData:
		d := m.asData(args[0], f)
		if d.Kind != DataI {
			m.fail("%s: not an integer: %s", f, d)
		}
		return con(BigInteger(bigOrZero(d.Int)))
	case UnBData:
		d := m.asData(args[0], f)
		if d.Kind != DataB {
			m.fail("%s: not a bytestring: %s", f, d)
		}
		return con(ByteString(d.Bytes))
	case EqualsData:
		return boolVal(m.asData(args[0], f).Equal(m.asData(args[1], f)))
	case MkPairData:
		return con(Pair(DataConst(m.asData(args[0], f)), DataConst(m.asData(args[1], f))))
	case MkNilData:
		m.asCon(args[0], ConstUnit, f)
		return con(List(TData))
	case MkNilPairData:
		m.asCon(args[0], ConstUnit, f)
		return con(List(TDataPair))
	case SerialiseData:
		return con(ByteString(SerialiseDataCBOR(m.asData(args[0], f))))

	case LengthOfArray:
		return con(Integer(int64(len(m.asCon(args[0], ConstArray, f).Items))))
	case ListToArray:
		l := m.asCon(args[0], ConstList, f)
		return con(Array(*l.Type.Elem, l.Items...))
	case IndexArray:
		a := m.asCon(args[0], ConstArray, f)
		i := m.asInt(args[1], f)
		if !i.IsInt64() || i.Int64() < 0 || i.Int64() >= int64(len(a.Items)) {
			m.fail("%s: index %s out of range", f, i)
		}
		return con(a.Items[i.Int64()])
	}
	m.fail("builtin %s is not implemented", f)
	return nil
}

func (m *Machine) arith(f DefaultFun, a, b *big.Int) *big.Int {
	switch f {
	case AddInteger:
		return new(big.Int).Add(a, b)
	case SubtractInteger:
		return new(big.Int).Sub(a, b)
	case MultiplyInteger:
		return new(big.Int).Mul(a, b)
	}
	if b.Sign() == 0 {
		m.fail("%s: division by zero", f)
	}
	switch f {
	case DivideInteger:
		q, _ := floorDivMod(a, b)
		return q
	case ModInteger:
		_, r := floorDivMod(a, b)
		return r
	case QuotientInteger:
		return new(big.Int).Quo(a, b)
	default:
		return new(big.Int).Rem(a, b)
	}
}

func sliceBytes(bs []byte, start, n *big.Int) []byte {
	size := big.NewInt(int64(len(bs)))
	lo := clampBig(start, size)
	hi := clampBig(new(big.Int).Add(start, n), size)
	if hi <= lo {
		return []byte{}
	}
	return append([]byte(nil), bs[lo:hi]...)
}

func clampBig(n, size *big.Int) int {
	switch {
	case n.Sign() < 0:
		return 0
	case n.Cmp(size) > 0:
		return int(size.Int64())
	default:
		return int(n.Int64())
	}
}
