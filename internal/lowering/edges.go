package lowering

import (
	"math/big"
	"unicode/utf8"

	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/uplc"
)

var (
	dataListT = sir.BuiltinList(sir.DataT())
	dataPairT = sir.BuiltinPair(sir.DataT(), sir.DataT())
	pairListT = sir.BuiltinList(dataPairT)
	constrT   = sir.BuiltinPair(sir.Integer(), dataListT)
)

func dataConst(d uplc.Data) uplc.Constant { return uplc.DataConst(d) }

func emptyDataList() uplc.Constant { return uplc.List(uplc.TData) }

func emptyPairList() uplc.Constant { return uplc.List(uplc.TDataPair) }

// builtinEdge is an edge implemented by a single one-argument builtin.
func builtinEdge(from, to ReprKind, fun uplc.DefaultFun, fold func(uplc.Constant) (uplc.Constant, bool)) convEdge {
	return convEdge{
		from: from,
		to:   to,
		build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
			return l.builtin(fun, t, Repr{Kind: to}, sp, id)
		},
		fold: fold,
	}
}

func primitiveEdges(k sir.TypeKind) []convEdge {
	const c, d = ReprConstant, ReprPackedData
	switch k {
	case sir.TypeInteger:
		return []convEdge{
			builtinEdge(c, d, uplc.IData, func(x uplc.Constant) (uplc.Constant, bool) {
				return dataConst(uplc.BigIntD(bigOf(x))), true
			}),
			builtinEdge(d, c, uplc.UnIData, func(x uplc.Constant) (uplc.Constant, bool) {
				if x.Data == nil || x.Data.Kind != uplc.DataI {
					return x, false
				}
				return uplc.BigInteger(x.Data.Int), true
			}),
		}
	case sir.TypeByteString:
		return []convEdge{
			builtinEdge(c, d, uplc.BData, func(x uplc.Constant) (uplc.Constant, bool) {
				return dataConst(uplc.BytesD(x.Bytes)), true
			}),
			builtinEdge(d, c, uplc.UnBData, func(x uplc.Constant) (uplc.Constant, bool) {
				if x.Data == nil || x.Data.Kind != uplc.DataB {
					return x, false
				}
				return uplc.ByteString(x.Data.Bytes), true
			}),
		}
	case sir.TypeString:
		return []convEdge{
			{from: c, to: d,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					b := l.builtin(uplc.EncodeUtf8, sir.ByteString(), Constant, sp, id)
					return l.builtin(uplc.BData, t, PackedData, sp, b)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					return dataConst(uplc.BytesD([]byte(x.Str))), true
				}},
			{from: d, to: c,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					b := l.builtin(uplc.UnBData, sir.ByteString(), Constant, sp, id)
					return l.builtin(uplc.DecodeUtf8, t, Constant, sp, b)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					if x.Data == nil || x.Data.Kind != uplc.DataB || !utf8.Valid(x.Data.Bytes) {
						return x, false
					}
					return uplc.String(string(x.Data.Bytes)), true
				}},
		}
	case sir.TypeBoolean:
		return []convEdge{
			{from: c, to: d,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					yes := l.constValue(dataConst(uplc.ConstrD(1)), sir.DataT(), sp)
					no := l.constValue(dataConst(uplc.ConstrD(0)), sir.DataT(), sp)
					return l.builtin(uplc.IfThenElse, t, PackedData, sp, id, yes, no)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					if x.Bool {
						return dataConst(uplc.ConstrD(1)), true
					}
					return dataConst(uplc.ConstrD(0)), true
				}},
			{from: d, to: c,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					p := l.builtin(uplc.UnConstrData, constrT, Constant, sp, id)
					tag := l.builtin(uplc.FstPair, sir.Integer(), Constant, sp, p)
					one := l.constValue(uplc.Integer(1), sir.Integer(), sp)
					return l.builtin(uplc.EqualsInteger, t, Constant, sp, tag, one)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					if x.Data == nil || x.Data.Kind != uplc.DataConstr {
						return x, false
					}
					return uplc.Bool(x.Data.Tag == 1), true
				}},
		}
	case sir.TypeUnit:
		return []convEdge{
			{from: c, to: d,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					u := l.constValue(dataConst(uplc.ConstrD(0)), sir.DataT(), sp)
					if l.isEffortless(id) {
						return l.reinterpret(u, t, PackedData)
					}
					return l.builtin(uplc.ChooseUnit, t, PackedData, sp, id, u)
				},
				fold: func(uplc.Constant) (uplc.Constant, bool) {
					return dataConst(uplc.ConstrD(0)), true
				}},
			{from: d, to: c,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					u := l.constValue(uplc.Unit(), t, sp)
					if l.isEffortless(id) {
						return u
					}
					return l.builtin(uplc.ChooseData, t, Constant, sp, id, u, u, u, u, u)
				},
				fold: func(uplc.Constant) (uplc.Constant, bool) { return uplc.Unit(), true }},
		}
	}
	return nil
}

func bigOf(c uplc.Constant) *big.Int {
	if c.Int == nil {
		return new(big.Int)
	}
	return c.Int
}

func (l *Lowering) builtinEdges(t *sir.Type) []convEdge {
	const c, d = ReprConstant, ReprPackedData
	switch {
	case t.Kind == sir.TypeBuiltinList && t.Elem().Equal(sir.DataT()):
		return []convEdge{
			builtinEdge(c, d, uplc.ListData, foldListData),
			builtinEdge(d, c, uplc.UnListData, foldUnListData),
		}
	case t.Kind == sir.TypeBuiltinList && t.Elem().Equal(dataPairT):
		return []convEdge{
			builtinEdge(c, d, uplc.MapData, foldMapData),
			builtinEdge(d, c, uplc.UnMapData, foldUnMapData),
		}
	case t.Equal(dataPairT):
		return []convEdge{
			{from: c, to: d, build: packPair, fold: func(x uplc.Constant) (uplc.Constant, bool) {
				f, ok := pairToFields(x)
				if !ok {
					return x, false
				}
				return dataConst(uplc.ConstrD(0, f...)), true
			}},
			{from: d, to: c,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					fs := l.letVar("fields", l.builtin(uplc.SndPair, dataListT, Constant, sp,
						l.builtin(uplc.UnConstrData, constrT, Constant, sp, id)))
					return l.fieldsToPair(fs, t, Constant, sp)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					if x.Data == nil || x.Data.Kind != uplc.DataConstr || len(x.Data.Fields) != 2 {
						return x, false
					}
					return uplc.Pair(dataConst(x.Data.Fields[0]), dataConst(x.Data.Fields[1])), true
				}},
		}
	case t.Kind == sir.TypeBuiltinList:
		return l.elemListEdges(t.Elem())
	case t.Kind == sir.TypeBuiltinPair:
		return l.elemPairEdges(t.Args[0], t.Args[1])
	}
	return nil
}

// packs reports whether values of t laid out as Constant convert to and
// from PackedData.
func (l *Lowering) packs(t *sir.Type) (pack, unpack bool) {
	switch l.familyOf(t) {
	case famData:
		return true, true
	case famPrimitive, famBuiltin:
		pack = l.conversionPath(t, ReprConstant, ReprPackedData) != nil
		unpack = l.conversionPath(t, ReprPackedData, ReprConstant) != nil
	}
	return pack, unpack
}

// elemListEdges packs a builtin list of non-Data elements by converting
// every element and wrapping the result with listData. Unpacking maps the
// other way when the elements can be rebuilt as constants.
func (l *Lowering) elemListEdges(elem *sir.Type) []convEdge {
	const c, d = ReprConstant, ReprPackedData
	pack, unpack := l.packs(elem)
	if !pack {
		return nil
	}
	edges := []convEdge{{from: c, to: d,
		build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
			items := l.apply(l.elemListHelper(elem, uplc.ConstType{}, true), id, dataListT, Constant, sp)
			return l.builtin(uplc.ListData, t, PackedData, sp, items)
		},
		fold: func(x uplc.Constant) (uplc.Constant, bool) {
			items := make([]uplc.Data, len(x.Items))
			for i, it := range x.Items {
				p, ok := l.foldPath(it, elem, Constant, PackedData)
				if !ok || p.Data == nil {
					return x, false
				}
				items[i] = *p.Data
			}
			return dataConst(uplc.ListD(items...)), true
		}}}
	ct, ok := sir.ConstTypeOf(elem)
	if !unpack || !ok {
		return edges
	}
	return append(edges, convEdge{from: d, to: c,
		build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
			items := l.builtin(uplc.UnListData, dataListT, Constant, sp, id)
			return l.apply(l.elemListHelper(elem, ct, false), items, t, Constant, sp)
		},
		fold: func(x uplc.Constant) (uplc.Constant, bool) {
			if x.Data == nil || x.Data.Kind != uplc.DataList {
				return x, false
			}
			items := make([]uplc.Constant, len(x.Data.Fields))
			for i, f := range x.Data.Fields {
				it, ok := l.foldPath(dataConst(f), elem, PackedData, Constant)
				if !ok {
					return x, false
				}
				items[i] = it
			}
			return uplc.List(ct, items...), true
		}})
}

// elemPairEdges packs a builtin pair of non-Data components as Constr 0
// [fst, snd]. No builtin builds such a pair at runtime, so there is no way
// back.
func (l *Lowering) elemPairEdges(a, b *sir.Type) []convEdge {
	packA, _ := l.packs(a)
	packB, _ := l.packs(b)
	if !packA || !packB {
		return nil
	}
	return []convEdge{{from: ReprConstant, to: ReprPackedData,
		build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
			p := l.letVar("pair", id)
			fst := l.toRepr(l.builtin(uplc.FstPair, a, Constant, sp, p), PackedData)
			snd := l.toRepr(l.builtin(uplc.SndPair, b, Constant, sp, p), PackedData)
			nilV := l.constValue(emptyDataList(), dataListT, sp)
			fields := l.builtin(uplc.MkCons, dataListT, Constant, sp, fst,
				l.builtin(uplc.MkCons, dataListT, Constant, sp, snd, nilV))
			tag := l.constValue(uplc.Integer(0), sir.Integer(), sp)
			return l.builtin(uplc.ConstrData, t, PackedData, sp, tag, fields)
		},
		fold: func(x uplc.Constant) (uplc.Constant, bool) {
			if x.Type.Kind != uplc.ConstPair || len(x.Items) != 2 {
				return x, false
			}
			fa, okA := l.foldPath(x.Items[0], a, Constant, PackedData)
			fb, okB := l.foldPath(x.Items[1], b, Constant, PackedData)
			if !okA || !okB || fa.Data == nil || fb.Data == nil {
				return x, false
			}
			return dataConst(uplc.ConstrD(0, *fa.Data, *fb.Data)), true
		}}}
}

// packPair packs a Data pair as Constr 0 [fst, snd].
func packPair(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
	p := l.letVar("pair", id)
	fields := l.pairToFields(p, sp)
	tag := l.constValue(uplc.Integer(0), sir.Integer(), sp)
	return l.builtin(uplc.ConstrData, t, PackedData, sp, tag, fields)
}

// pairToFields builds the two-element Data list of a Data pair variable.
func (l *Lowering) pairToFields(p ValueID, sp source.Span) ValueID {
	fst := l.builtin(uplc.FstPair, sir.DataT(), Constant, sp, p)
	snd := l.builtin(uplc.SndPair, sir.DataT(), Constant, sp, p)
	nilV := l.constValue(emptyDataList(), dataListT, sp)
	tail := l.builtin(uplc.MkCons, dataListT, Constant, sp, snd, nilV)
	return l.builtin(uplc.MkCons, dataListT, Constant, sp, fst, tail)
}

// fieldsToPair builds a Data pair from the first two elements of a Data
// list variable.
func (l *Lowering) fieldsToPair(fs ValueID, t *sir.Type, r Repr, sp source.Span) ValueID {
	fst := l.builtin(uplc.HeadList, sir.DataT(), Constant, sp, fs)
	rest := l.builtin(uplc.TailList, dataListT, Constant, sp, fs)
	snd := l.builtin(uplc.HeadList, sir.DataT(), Constant, sp, rest)
	return l.builtin(uplc.MkPairData, t, r, sp, fst, snd)
}

func dataItems(x uplc.Constant) ([]uplc.Data, bool) {
	out := make([]uplc.Data, len(x.Items))
	for i, it := range x.Items {
		if it.Data == nil {
			return nil, false
		}
		out[i] = *it.Data
	}
	return out, true
}

func foldListData(x uplc.Constant) (uplc.Constant, bool) {
	items, ok := dataItems(x)
	if !ok {
		return x, false
	}
	return dataConst(uplc.ListD(items...)), true
}

func foldUnListData(x uplc.Constant) (uplc.Constant, bool) {
	if x.Data == nil || x.Data.Kind != uplc.DataList {
		return x, false
	}
	return uplc.DataListConst(x.Data.Fields...), true
}

func pairToFields(x uplc.Constant) ([]uplc.Data, bool) {
	if x.Type.Kind != uplc.ConstPair || len(x.Items) != 2 || x.Items[0].Data == nil || x.Items[1].Data == nil {
		return nil, false
	}
	return []uplc.Data{*x.Items[0].Data, *x.Items[1].Data}, true
}

func foldMapData(x uplc.Constant) (uplc.Constant, bool) {
	entries := make([]uplc.DataPair, len(x.Items))
	for i, it := range x.Items {
		f, ok := pairToFields(it)
		if !ok {
			return x, false
		}
		entries[i] = uplc.DataPair{Key: f[0], Value: f[1]}
	}
	return dataConst(uplc.MapD(entries...)), true
}

func foldUnMapData(x uplc.Constant) (uplc.Constant, bool) {
	if x.Data == nil || x.Data.Kind != uplc.DataMap {
		return x, false
	}
	items := make([]uplc.Constant, len(x.Data.Map))
	for i, e := range x.Data.Map {
		items[i] = uplc.Pair(dataConst(e.Key), dataConst(e.Value))
	}
	return uplc.List(uplc.TDataPair, items...), true
}

// foldPairsToData turns a list of Data pairs into a list of Constr 0 [a, b].
func foldPairsToData(x uplc.Constant) (uplc.Constant, bool) {
	items := make([]uplc.Data, len(x.Items))
	for i, it := range x.Items {
		f, ok := pairToFields(it)
		if !ok {
			return x, false
		}
		items[i] = uplc.ConstrD(0, f...)
	}
	return uplc.DataListConst(items...), true
}

func foldDataToPairs(x uplc.Constant) (uplc.Constant, bool) {
	items := make([]uplc.Constant, len(x.Items))
	for i, it := range x.Items {
		if it.Data == nil || it.Data.Kind != uplc.DataConstr || len(it.Data.Fields) != 2 {
			return x, false
		}
		items[i] = uplc.Pair(dataConst(it.Data.Fields[0]), dataConst(it.Data.Fields[1]))
	}
	return uplc.List(uplc.TDataPair, items...), true
}

func (l *Lowering) listEdges(t *sir.Type) []convEdge {
	edges := []convEdge{
		builtinEdge(ReprSumDataList, ReprPackedSumDataList, uplc.ListData, foldListData),
		builtinEdge(ReprPackedSumDataList, ReprSumDataList, uplc.UnListData, foldUnListData),
	}
	if !l.isPairListElem(t.Elem()) {
		return edges
	}
	tuple := t.Elem().Unwrap().Kind != sir.TypeBuiltinPair
	toData, fromData := HelperPairListToDataList, HelperDataListToPairList
	if tuple {
		toData, fromData = HelperTuplePairListToDataList, HelperTupleDataListToPairList
	}
	return append(edges,
		builtinEdge(ReprSumDataPairList, ReprSumDataAssocMap, uplc.MapData, foldMapData),
		builtinEdge(ReprSumDataAssocMap, ReprSumDataPairList, uplc.UnMapData, foldUnMapData),
		convEdge{from: ReprSumDataPairList, to: ReprSumDataList,
			build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
				return l.apply(l.runtimeHelper(toData), id, t, SumDataList, sp)
			},
			fold: foldPairsToData},
		convEdge{from: ReprSumDataList, to: ReprSumDataPairList,
			build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
				return l.apply(l.runtimeHelper(fromData), id, t, SumDataPairList, sp)
			},
			fold: foldDataToPairs},
	)
}

// productShape returns the constructor tag and field count of a product
// type.
func (l *Lowering) productShape(t *sir.Type) (uint64, int) {
	u := t.Unwrap()
	d, ok := l.types.Decl(u.Name)
	if !ok {
		return 0, -1
	}
	name := u.Constr
	if name == "" && len(d.Constrs) == 1 {
		name = d.Constrs[0].Name
	}
	tag, c, ok := d.Constr(name)
	if !ok {
		return 0, -1
	}
	return uint64(tag), len(c.Params) //nolint:gosec // constructor index is non-negative
}

func (l *Lowering) productEdges(t *sir.Type) []convEdge {
	tag, n := l.productShape(t)
	if n < 0 {
		return nil
	}
	edges := []convEdge{
		{from: ReprProdDataConstr, to: ReprProdDataList,
			build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
				p := l.builtin(uplc.UnConstrData, constrT, Constant, sp, id)
				return l.builtin(uplc.SndPair, t, ProdDataList, sp, p)
			},
			fold: func(x uplc.Constant) (uplc.Constant, bool) {
				if x.Data == nil || x.Data.Kind != uplc.DataConstr {
					return x, false
				}
				return uplc.DataListConst(x.Data.Fields...), true
			}},
		{from: ReprProdDataList, to: ReprProdDataConstr,
			build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
				k := l.constValue(uplc.BigInteger(new(big.Int).SetUint64(tag)), sir.Integer(), sp)
				return l.builtin(uplc.ConstrData, t, ProdDataConstr, sp, k, id)
			},
			fold: func(x uplc.Constant) (uplc.Constant, bool) {
				items, ok := dataItems(x)
				if !ok {
					return x, false
				}
				return dataConst(uplc.ConstrD(tag, items...)), true
			}},
	}
	if n == 2 {
		edges = append(edges,
			convEdge{from: ReprProdDataList, to: ReprProdPair,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					return l.fieldsToPair(l.letVar("fields", id), t, ProdPair, sp)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					if len(x.Items) != 2 {
						return x, false
					}
					return uplc.Pair(x.Items[0], x.Items[1]), true
				}},
			convEdge{from: ReprProdPair, to: ReprProdDataList,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					out := l.pairToFields(l.letVar("pair", id), sp)
					return l.reinterpret(out, t, ProdDataList)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					f, ok := pairToFields(x)
					if !ok {
						return x, false
					}
					return uplc.DataListConst(f...), true
				}},
		)
	}
	if l.target.HasBuiltinCase() {
		edges = append(edges,
			convEdge{from: ReprProdDataList, to: ReprProdDataArray,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					return l.builtin(uplc.ListToArray, t, ProdDataArray, sp, id)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					return uplc.Array(uplc.TData, x.Items...), true
				}},
			convEdge{from: ReprProdDataArray, to: ReprProdDataList,
				build: func(l *Lowering, id ValueID, t *sir.Type, sp source.Span) ValueID {
					a := l.letVar("fields", id)
					out := l.constValue(emptyDataList(), dataListT, sp)
					for i := n - 1; i >= 0; i-- {
						k := l.constValue(uplc.Integer(int64(i)), sir.Integer(), sp)
						f := l.builtin(uplc.IndexArray, sir.DataT(), Constant, sp, a, k)
						out = l.builtin(uplc.MkCons, dataListT, Constant, sp, f, out)
					}
					return l.reinterpret(out, t, ProdDataList)
				},
				fold: func(x uplc.Constant) (uplc.Constant, bool) {
					return uplc.List(uplc.TData, x.Items...), true
				}},
		)
	}
	return edges
}
