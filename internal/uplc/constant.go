package uplc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// ConstKind is the head of a constant type.
type ConstKind uint8

const (
	ConstInteger ConstKind = iota
	ConstByteString
	ConstString
	ConstUnit
	ConstBool
	ConstData
	ConstList
	ConstPair
	ConstArray
)

// ConstType is a constant type; Elem is the list/array element or the
// first pair component, Snd the second pair component.
type ConstType struct {
	Kind ConstKind  `msgpack:"k"`
	Elem *ConstType `msgpack:"e,omitempty"`
	Snd  *ConstType `msgpack:"s,omitempty"`
}

var (
	TInteger    = ConstType{Kind: ConstInteger}
	TByteString = ConstType{Kind: ConstByteString}
	TString     = ConstType{Kind: ConstString}
	TUnit       = ConstType{Kind: ConstUnit}
	TBool       = ConstType{Kind: ConstBool}
	TData       = ConstType{Kind: ConstData}
)

func TList(elem ConstType) ConstType { return ConstType{Kind: ConstList, Elem: &elem} }

func TArray(elem ConstType) ConstType { return ConstType{Kind: ConstArray, Elem: &elem} }

func TPair(a, b ConstType) ConstType { return ConstType{Kind: ConstPair, Elem: &a, Snd: &b} }

// TDataPair is pair<data, data>, the element type of association lists.
var TDataPair = TPair(TData, TData)

func (t ConstType) Equal(o ConstType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case ConstList, ConstArray:
		return t.Elem.Equal(*o.Elem)
	case ConstPair:
		return t.Elem.Equal(*o.Elem) && t.Snd.Equal(*o.Snd)
	}
	return true
}

func (t ConstType) String() string {
	switch t.Kind {
	case ConstInteger:
		return "integer"
	case ConstByteString:
		return "bytestring"
	case ConstString:
		return "string"
	case ConstUnit:
		return "unit"
	case ConstBool:
		return "bool"
	case ConstData:
		return "data"
	case ConstList:
		return "(list " + t.Elem.String() + ")"
	case ConstArray:
		return "(array " + t.Elem.String() + ")"
	case ConstPair:
		return "(pair " + t.Elem.String() + " " + t.Snd.String() + ")"
	}
	return "?"
}

// Constant is a literal of the target calculus.
type Constant struct {
	Type  ConstType
	Int   *big.Int
	Bytes []byte
	Str   string
	Bool  bool
	Data  *Data
	Items []Constant // list/array items; pair as [fst, snd]
}

func Integer(n int64) Constant { return Constant{Type: TInteger, Int: big.NewInt(n)} }

func BigInteger(n *big.Int) Constant {
	return Constant{Type: TInteger, Int: new(big.Int).Set(n)}
}

func ByteString(b []byte) Constant {
	return Constant{Type: TByteString, Bytes: append([]byte(nil), b...)}
}

func String(s string) Constant { return Constant{Type: TString, Str: s} }

func Unit() Constant { return Constant{Type: TUnit} }

func Bool(b bool) Constant { return Constant{Type: TBool, Bool: b} }

func DataConst(d Data) Constant { return Constant{Type: TData, Data: &d} }

func List(elem ConstType, items ...Constant) Constant {
	return Constant{Type: TList(elem), Items: items}
}

func Array(elem ConstType, items ...Constant) Constant {
	return Constant{Type: TArray(elem), Items: items}
}

func Pair(a, b Constant) Constant {
	return Constant{Type: TPair(a.Type, b.Type), Items: []Constant{a, b}}
}

// DataListConst is a list<data> constant.
func DataListConst(items ...Data) Constant {
	cs := make([]Constant, len(items))
	for i, it := range items {
		cs[i] = DataConst(it)
	}
	return List(TData, cs...)
}

func (c Constant) Equal(o Constant) bool {
	if !c.Type.Equal(o.Type) {
		return false
	}
	switch c.Type.Kind {
	case ConstInteger:
		return bigOrZero(c.Int).Cmp(bigOrZero(o.Int)) == 0
	case ConstByteString:
		return bytes.Equal(c.Bytes, o.Bytes)
	case ConstString:
		return c.Str == o.Str
	case ConstUnit:
		return true
	case ConstBool:
		return c.Bool == o.Bool
	case ConstData:
		if c.Data == nil || o.Data == nil {
			return c.Data == o.Data
		}
		return c.Data.Equal(*o.Data)
	case ConstList, ConstArray, ConstPair:
		if len(c.Items) != len(o.Items) {
			return false
		}
		for i := range c.Items {
			if !c.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the constant in `(con type value)` form.
func (c Constant) String() string {
	return "(con " + c.Type.String() + " " + c.valueString() + ")"
}

func (c Constant) valueString() string {
	switch c.Type.Kind {
	case ConstInteger:
		return bigOrZero(c.Int).String()
	case ConstByteString:
		return "#" + hex.EncodeToString(c.Bytes)
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstUnit:
		return "()"
	case ConstBool:
		if c.Bool {
			return "True"
		}
		return "False"
	case ConstData:
		if c.Data == nil {
			return "<nil>"
		}
		return "(" + c.Data.String() + ")"
	case ConstList, ConstArray:
		parts := make([]string, len(c.Items))
		for i, it := range c.Items {
			parts[i] = it.valueString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ConstPair:
		if len(c.Items) != 2 {
			return "(?)"
		}
		return "(" + c.Items[0].valueString() + ", " + c.Items[1].valueString() + ")"
	}
	return fmt.Sprintf("<%d>", c.Type.Kind)
}

type constWire struct {
	T  ConstType  `msgpack:"t"`
	I  string     `msgpack:"i,omitempty"`
	B  []byte     `msgpack:"b,omitempty"`
	S  string     `msgpack:"s,omitempty"`
	Bo bool       `msgpack:"o,omitempty"`
	D  *Data      `msgpack:"d,omitempty"`
	It []Constant `msgpack:"l,omitempty"`
}

func (c Constant) EncodeMsgpack(enc *msgpack.Encoder) error {
	w := constWire{T: c.Type, B: c.Bytes, S: c.Str, Bo: c.Bool, D: c.Data, It: c.Items}
	if c.Type.Kind == ConstInteger {
		w.I = bigOrZero(c.Int).String()
	}
	return enc.Encode(&w)
}

func (c *Constant) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w constWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	*c = Constant{Type: w.T, Bytes: w.B, Str: w.S, Bool: w.Bo, Data: w.D, Items: w.It}
	if w.T.Kind == ConstInteger {
		n, ok := new(big.Int).SetString(w.I, 10)
		if !ok {
			return fmt.Errorf("constant: invalid integer %q", w.I)
		}
		c.Int = n
	}
	return nil
}
