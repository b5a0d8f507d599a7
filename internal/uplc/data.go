package uplc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// DataKind tags the five shapes of the universal Data value.
type DataKind uint8

const (
	DataConstr DataKind = iota
	DataMap
	DataList
	DataI
	DataB
)

func (k DataKind) String() string {
	switch k {
	case DataConstr:
		return "Constr"
	case DataMap:
		return "Map"
	case DataList:
		return "List"
	case DataI:
		return "I"
	case DataB:
		return "B"
	default:
		return fmt.Sprintf("DataKind(%d)", k)
	}
}

// Data is the untyped structured value every user type can be packed into.
type Data struct {
	Kind   DataKind
	Tag    uint64     // Constr
	Fields []Data     // Constr fields, List items
	Map    []DataPair // Map entries
	Int    *big.Int   // I
	Bytes  []byte     // B
}

// DataPair is one Map entry.
type DataPair struct {
	Key   Data
	Value Data
}

func ConstrD(tag uint64, fields ...Data) Data {
	return Data{Kind: DataConstr, Tag: tag, Fields: fields}
}

func MapD(entries ...DataPair) Data { return Data{Kind: DataMap, Map: entries} }

func ListD(items ...Data) Data { return Data{Kind: DataList, Fields: items} }

func IntD(n int64) Data { return Data{Kind: DataI, Int: big.NewInt(n)} }

func BigIntD(n *big.Int) Data { return Data{Kind: DataI, Int: new(big.Int).Set(n)} }

func BytesD(b []byte) Data { return Data{Kind: DataB, Bytes: append([]byte(nil), b...)} }

// Equal reports structural equality.
func (d Data) Equal(o Data) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case DataConstr:
		return d.Tag == o.Tag && dataSliceEqual(d.Fields, o.Fields)
	case DataList:
		return dataSliceEqual(d.Fields, o.Fields)
	case DataMap:
		if len(d.Map) != len(o.Map) {
			return false
		}
		for i := range d.Map {
			if !d.Map[i].Key.Equal(o.Map[i].Key) || !d.Map[i].Value.Equal(o.Map[i].Value) {
				return false
			}
		}
		return true
	case DataI:
		return bigOrZero(d.Int).Cmp(bigOrZero(o.Int)) == 0
	case DataB:
		return bytes.Equal(d.Bytes, o.Bytes)
	}
	return false
}

func dataSliceEqual(a, b []Data) bool {
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

func bigOrZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}

func (d Data) String() string {
	var sb strings.Builder
	d.write(&sb)
	return sb.String()
}

func (d Data) write(sb *strings.Builder) {
	switch d.Kind {
	case DataConstr:
		fmt.Fprintf(sb, "Constr %d [", d.Tag)
		writeDataList(sb, d.Fields)
		sb.WriteByte(']')
	case DataList:
		sb.WriteString("List [")
		writeDataList(sb, d.Fields)
		sb.WriteByte(']')
	case DataMap:
		sb.WriteString("Map [")
		for i, e := range d.Map {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			e.Key.write(sb)
			sb.WriteString(", ")
			e.Value.write(sb)
			sb.WriteByte(')')
		}
		sb.WriteByte(']')
	case DataI:
		sb.WriteString("I ")
		sb.WriteString(bigOrZero(d.Int).String())
	case DataB:
		sb.WriteString("B #")
		sb.WriteString(hex.EncodeToString(d.Bytes))
	}
}

func writeDataList(sb *strings.Builder, items []Data) {
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		it.write(sb)
	}
}

type dataWire struct {
	K DataKind   `msgpack:"k"`
	T uint64     `msgpack:"t,omitempty"`
	F []Data     `msgpack:"f,omitempty"`
	M []DataPair `msgpack:"m,omitempty"`
	I string     `msgpack:"i,omitempty"`
	B []byte     `msgpack:"b,omitempty"`
}

// EncodeMsgpack implements msgpack.CustomEncoder; integers travel as decimal
// strings so arbitrary precision survives the round trip.
func (d Data) EncodeMsgpack(enc *msgpack.Encoder) error {
	w := dataWire{K: d.Kind, T: d.Tag, F: d.Fields, M: d.Map, B: d.Bytes}
	if d.Kind == DataI {
		w.I = bigOrZero(d.Int).String()
	}
	return enc.Encode(&w)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (d *Data) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w dataWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	*d = Data{Kind: w.K, Tag: w.T, Fields: w.F, Map: w.M, Bytes: w.B}
	if w.K == DataI {
		n, ok := new(big.Int).SetString(w.I, 10)
		if !ok {
			return fmt.Errorf("data: invalid integer %q", w.I)
		}
		d.Int = n
	}
	return nil
}
