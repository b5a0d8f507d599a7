package uplc

import "math/big"

// SerialiseDataCBOR encodes d in the canonical CBOR form used by the
// serialiseData builtin.
func SerialiseDataCBOR(d Data) []byte {
	var out []byte
	return appendData(out, d)
}

func appendHead(out []byte, major byte, n uint64) []byte {
	major <<= 5
	switch {
	case n < 24:
		return append(out, major|byte(n))
	case n <= 0xff:
		return append(out, major|24, byte(n))
	case n <= 0xffff:
		return append(out, major|25, byte(n>>8), byte(n))
	case n <= 0xffffffff:
		return append(out, major|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		out = append(out, major|27)
		for shift := 56; shift >= 0; shift -= 8 {
			out = append(out, byte(n>>uint(shift)))
		}
		return out
	}
}

func appendDataList(out []byte, items []Data) []byte {
	if len(items) == 0 {
		return append(out, 0x80)
	}
	out = append(out, 0x9f)
	for _, it := range items {
		out = appendData(out, it)
	}
	return append(out, 0xff)
}

func appendBytes(out []byte, b []byte) []byte {
	if len(b) <= 64 {
		out = appendHead(out, 2, uint64(len(b)))
		return append(out, b...)
	}
	out = append(out, 0x5f)
	for len(b) > 0 {
		n := min(len(b), 64)
		out = appendHead(out, 2, uint64(n))
		out = append(out, b[:n]...)
		b = b[n:]
	}
	return append(out, 0xff)
}

var maxU64 = new(big.Int).SetUint64(^uint64(0))

func appendData(out []byte, d Data) []byte {
	switch d.Kind {
	case DataConstr:
		switch {
		case d.Tag < 7:
			out = appendHead(out, 6, 121+d.Tag)
		case d.Tag < 128:
			out = appendHead(out, 6, 1280+d.Tag-7)
		default:
			out = appendHead(out, 6, 102)
			out = appendHead(out, 4, 2)
			out = appendHead(out, 0, d.Tag)
		}
		return appendDataList(out, d.Fields)
	case DataMap:
		out = appendHead(out, 5, uint64(len(d.Map)))
		for _, e := range d.Map {
			out = appendData(out, e.Key)
			out = appendData(out, e.Value)
		}
		return out
	case DataList:
		return appendDataList(out, d.Fields)
	case DataI:
		n := bigOrZero(d.Int)
		if n.Sign() >= 0 {
			if n.Cmp(maxU64) <= 0 {
				return appendHead(out, 0, n.Uint64())
			}
			out = appendHead(out, 6, 2)
			return appendBytes(out, n.Bytes())
		}
		// -1 - n
		neg := new(big.Int).Sub(new(big.Int).Neg(n), big.NewInt(1))
		if neg.Cmp(maxU64) <= 0 {
			return appendHead(out, 1, neg.Uint64())
		}
		out = appendHead(out, 6, 3)
		return appendBytes(out, neg.Bytes())
	case DataB:
		return appendBytes(out, d.Bytes)
	}
	return out
}
