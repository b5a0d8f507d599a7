package lowering

import (
	"context"
	"errors"
	"fmt"

	"sirc/internal/diag"
	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/trace"
	"sirc/internal/uplc"
)

// Result is the outcome of lowering a module.
type Result struct {
	// Term is the linked program body.
	Term *uplc.Term
	// Unlinked is the term before the fixed-point combinator was bound.
	Unlinked *uplc.Term
	UsesFix  bool
	Type     *sir.Type
	Repr     Repr
	Stats    Stats
}

// Program wraps the result for the given version.
func (r *Result) Program(v uplc.Version) *uplc.Program {
	return &uplc.Program{Version: v, Term: r.Term}
}

// Lower lowers the root expression of m.
func Lower(ctx context.Context, m *sir.Module, opts Options) (*Result, error) {
	if m == nil || m.Root == nil {
		return nil, errors.New("lower: module has no root expression")
	}
	if opts.Types == nil {
		ts, err := m.Checker()
		if err != nil {
			return nil, fmt.Errorf("lower %s: %w", m.Name, err)
		}
		opts.Types = ts
	}
	ctx, span := trace.Start(ctx, trace.ScopeUnit, "lower "+m.Name)
	defer span.End(m.Name)
	return New(ctx, opts).Run(m.Root)
}

// Run lowers root, converts it to the default representation of its type
// and emits the linked term.
func (l *Lowering) Run(root *sir.Expr) (*Result, error) {
	id, err := l.Build(root)
	if err != nil {
		return nil, err
	}
	t, err := l.Emit(id)
	if err != nil {
		return nil, err
	}
	v := l.value(id)
	return &Result{
		Term:     Link(t, l.usesFix),
		Unlinked: t,
		UsesFix:  l.usesFix,
		Type:     v.Type,
		Repr:     v.Repr,
		Stats:    l.Stats(),
	}, nil
}

// Build lowers root into the value graph and returns the root value in the
// default representation of its type.
func (l *Lowering) Build(root *sir.Expr) (id ValueID, err error) {
	defer l.recover(&err)
	id = l.lowerExpr(root)
	id = l.upcast(id, root.Type, root.Span)
	id = l.toRepr(id, l.DefaultRepr(root.Type))
	for _, u := range l.usedOf(id).sorted() {
		if !l.value(u).Rhs.IsValid() {
			uv := l.value(u)
			l.failCode(codeUnboundVar, uv.Span, []*sir.Type{uv.Type}, []Repr{uv.Repr},
				"variable %s is not bound at the top level", uv.Name)
		}
	}
	return id, nil
}

// Emit generates the unlinked term of id.
func (l *Lowering) Emit(id ValueID) (t *uplc.Term, err error) {
	defer l.recover(&err)
	return l.newEmitter().emit(id), nil
}

// Stats reports counters of the run so far.
func (l *Lowering) Stats() Stats {
	s := l.stats
	s.Values = l.NumValues()
	for i := 1; i < len(l.values); i++ {
		if l.values[i].Kind.IsIdentifiable() {
			s.Vars++
		}
	}
	return s
}

func (l *Lowering) recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if le, ok := r.(*Error); ok {
		*err = le
		if le.Code != codeInternal {
			le.Report(l.reporter)
		}
		return
	}
	panic(r)
}

func (l *Lowering) lowerExpr(e *sir.Expr) ValueID {
	if e == nil {
		l.failCode(codeBadIR, source.NoSpan, nil, nil, "missing expression")
	}
	if e.Type == nil {
		l.failCode(codeBadIR, e.Span, nil, nil, "%s expression without a type", e.Kind)
	}
	l.tracePoint("lower", e.Kind.String())
	switch e.Kind {
	case sir.ExprVar:
		id, ok := l.lookup(e.Name)
		if !ok {
			l.failCode(codeUnboundVar, e.Span, []*sir.Type{e.Type}, nil, "unbound variable %s", e.Name)
		}
		return id
	case sir.ExprConst:
		if e.Const == nil {
			l.failCode(codeBadIR, e.Span, nil, nil, "constant without a value")
		}
		return l.constValue(*e.Const, e.Type, e.Span)
	case sir.ExprLet:
		if e.Recursive {
			return l.lowerLetRec(e)
		}
		return l.lowerLet(e)
	case sir.ExprLamAbs:
		return l.lowerLam(e)
	case sir.ExprApply:
		return l.lowerApply(e)
	case sir.ExprSelect:
		return l.lowerSelect(e)
	case sir.ExprAnd:
		l.operands(e, 2)
		a, b := l.lowerBool(e.Operands[0]), l.lowerBool(e.Operands[1])
		no := l.constValue(uplc.Bool(false), sir.Boolean(), e.Span)
		return l.ifThenElse(a, b, no, sir.Boolean(), Constant, e.Span)
	case sir.ExprOr:
		l.operands(e, 2)
		a, b := l.lowerBool(e.Operands[0]), l.lowerBool(e.Operands[1])
		yes := l.constValue(uplc.Bool(true), sir.Boolean(), e.Span)
		return l.ifThenElse(a, yes, b, sir.Boolean(), Constant, e.Span)
	case sir.ExprNot:
		l.operands(e, 1)
		a := l.lowerBool(e.Operands[0])
		yes := l.constValue(uplc.Bool(true), sir.Boolean(), e.Span)
		no := l.constValue(uplc.Bool(false), sir.Boolean(), e.Span)
		return l.ifThenElse(a, no, yes, sir.Boolean(), Constant, e.Span)
	case sir.ExprIfThenElse:
		l.operands(e, 3)
		t := l.joinArms(e, e.Operands[1:])
		c := l.lowerBool(e.Operands[0])
		arms := []ValueID{
			l.upcast(l.lowerExpr(e.Operands[1]), t, e.Operands[1].Span),
			l.upcast(l.lowerExpr(e.Operands[2]), t, e.Operands[2].Span),
		}
		r := l.commonRepr(arms, t)
		return l.ifThenElse(c, l.toRepr(arms[0], r), l.toRepr(arms[1], r), t, r, e.Span)
	case sir.ExprBuiltin:
		return l.builtinRef(e.Builtin, e.Span)
	case sir.ExprError:
		return l.errorValue(e.Name, e.Type, e.Span)
	case sir.ExprConstr:
		return l.lowerConstr(e)
	case sir.ExprMatch:
		return l.lowerMatch(e)
	case sir.ExprCast:
		return l.lowerCast(e)
	}
	l.failCode(codeBadIR, e.Span, nil, nil, "unknown expression kind %s", e.Kind)
	return NoValueID
}

func (l *Lowering) operands(e *sir.Expr, n int) {
	if len(e.Operands) != n {
		l.failCode(codeBadIR, e.Span, nil, nil, "%s needs %d operands, has %d", e.Kind, n, len(e.Operands))
	}
}

// lowerBool lowers a condition to a boolean constant.
func (l *Lowering) lowerBool(e *sir.Expr) ValueID {
	return l.toRepr(l.upcast(l.lowerExpr(e), sir.Boolean(), e.Span), Constant)
}

// commonRepr picks the representation several values of type t meet in:
// the first non-diverging one when the others are compatible with it, the
// default of t otherwise.
func (l *Lowering) commonRepr(vals []ValueID, t *sir.Type) Repr {
	var first *Repr
	for _, id := range vals {
		r := l.value(id).Repr
		if r.Kind == ReprError {
			continue
		}
		if first == nil {
			first = &r
			continue
		}
		if !l.IsCompatible(t, r, *first) {
			return l.DefaultRepr(t)
		}
	}
	if first == nil {
		return ErrorRepr
	}
	return *first
}

// lowerLet binds each value to a variable owned by the let. Bindings are
// evaluated in the enclosing scope.
func (l *Lowering) lowerLet(e *sir.Expr) ValueID {
	owned := make([]ValueID, len(e.Bindings))
	for i, b := range e.Bindings {
		t := b.Type
		if t == nil {
			t = b.Value.Type
		}
		rhs := l.upcast(l.lowerExpr(b.Value), t, b.Span)
		owned[i] = l.newVar(b.Name, t, l.value(rhs).Repr, rhs, b.Span)
	}
	l.pushScope()
	for i, b := range e.Bindings {
		l.define(b.Name, owned[i])
	}
	body := l.lowerExpr(e.Body)
	l.popScope()
	for i, x := range owned {
		if l.refs[x] == 0 && !l.isEffortless(l.value(x).Rhs) {
			l.warn(diag.LowDroppedBinding, e.Bindings[i].Span, "binding %s is never used and is dropped", e.Bindings[i].Name)
		}
	}
	bv := l.value(body)
	return l.newNode(Value{Kind: ValueLet, Subs: []ValueID{body}, Owned: owned, Type: bv.Type, Repr: bv.Repr, Span: e.Span})
}

// lowerLetRec lowers a single recursive function binding through the
// fixed-point combinator.
func (l *Lowering) lowerLetRec(e *sir.Expr) ValueID {
	if len(e.Bindings) != 1 {
		l.failCode(codeBadIR, e.Span, nil, nil, "recursive let must bind exactly one function, binds %d", len(e.Bindings))
	}
	b := e.Bindings[0]
	if l.familyOf(b.Type) != famFun {
		l.failCode(codeBadIR, b.Span, []*sir.Type{b.Type}, nil, "recursive binding %s is not a function", b.Name)
	}
	r := l.DefaultRepr(b.Type)
	self := l.newVar(b.Name, b.Type, r, NoValueID, b.Span)
	l.pushScope()
	l.define(b.Name, self)
	val := l.toRepr(l.upcast(l.lowerExpr(b.Value), b.Type, b.Span), r)
	l.setRhs(self, l.fix(self, val, b.Span))
	body := l.lowerExpr(e.Body)
	l.popScope()
	bv := l.value(body)
	return l.newNode(Value{Kind: ValueLet, Subs: []ValueID{body}, Owned: []ValueID{self}, Type: bv.Type, Repr: bv.Repr, Span: e.Span})
}

// lowerLam lowers a lambda. A lambda over a unit parameter it never uses
// becomes a delayed closure; other lambdas are placement barriers.
func (l *Lowering) lowerLam(e *sir.Expr) ValueID {
	pt := e.ParamType
	if pt == nil {
		pt = e.Type.In()
	}
	pr := l.DefaultRepr(pt)
	p := l.newVar(e.Name, pt, pr, NoValueID, e.Span)
	l.pushScope()
	l.define(e.Name, p)
	outT := e.Body.Type
	body := l.lowerExpr(e.Body)
	l.popScope()
	body = l.toRepr(l.upcast(body, outT, e.Body.Span), l.DefaultRepr(outT))
	out := l.value(body).Repr
	if pt.Unwrap().Kind == sir.TypeUnit && l.refs[p] == 0 {
		return l.lambda(NoValueID, body, e.Type, DelayedRepr(out), false, e.Span)
	}
	return l.lambda(p, body, e.Type, LambdaRepr(pr, out), true, e.Span)
}

func (l *Lowering) lowerApply(e *sir.Expr) ValueID {
	var args, apps []*sir.Expr
	head := e
	for head.Kind == sir.ExprApply {
		args = append(args, head.Arg)
		apps = append(apps, head)
		head = head.Fun
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		args[i], args[j] = args[j], args[i]
		apps[i], apps[j] = apps[j], apps[i]
	}
	if head.Kind == sir.ExprBuiltin {
		if n := head.Builtin.Arity(); n > 0 && len(args) >= n {
			cur := l.lowerBuiltinCall(head.Builtin, args[:n], apps[n-1].Type, apps[n-1].Span)
			for i := n; i < len(args); i++ {
				cur = l.applyValue(cur, l.lowerExpr(args[i]), apps[i].Type, apps[i].Span)
			}
			return cur
		}
	}
	f := l.lowerExpr(e.Fun)
	return l.applyValue(f, l.lowerExpr(e.Arg), e.Type, e.Span)
}

// applyValue applies a closure value, converting the argument to the
// closure's parameter representation.
func (l *Lowering) applyValue(f, arg ValueID, t *sir.Type, sp source.Span) ValueID {
	fv := l.value(f)
	if fv.Repr.Kind == ReprError {
		return l.apply(f, arg, t, ErrorRepr, sp)
	}
	if fv.Repr.Kind != ReprLambda {
		f = l.toRepr(f, l.DefaultRepr(fv.Type))
		fv = l.value(f)
		if fv.Repr.Kind != ReprLambda {
			l.failCode(codeBadIR, sp, []*sir.Type{fv.Type}, []Repr{fv.Repr}, "cannot apply a value of type %s", fv.Type)
		}
	}
	fr := fv.Repr
	if fr.Delayed {
		return l.force(f, t, *fr.Out)
	}
	a := l.upcast(arg, fv.Type.In(), sp)
	a = l.toRepr(a, *fr.In)
	return l.apply(f, a, t, *fr.Out, sp)
}

// fieldList returns the Data fields of a product or sum value as a native
// list.
func (l *Lowering) fieldList(target ValueID, sp source.Span) ValueID {
	v := l.value(target)
	switch v.Repr.Kind {
	case ReprProdDataList:
		return l.reinterpret(target, dataListT, Constant)
	case ReprProdDataConstr, ReprSumDataConstr, ReprPackedData, ReprTypeVar:
	default:
		target = l.toRepr(target, ProdDataConstr)
	}
	p := l.builtin(uplc.UnConstrData, constrT, Constant, sp, target)
	return l.builtin(uplc.SndPair, dataListT, Constant, sp, p)
}

// nthField is the i-th element of a Data list, typed t and laid out as its
// Data representation.
func (l *Lowering) nthField(fields ValueID, i int, t *sir.Type, sp source.Span) ValueID {
	for ; i > 0; i-- {
		fields = l.builtin(uplc.TailList, dataListT, Constant, sp, fields)
	}
	return l.builtin(uplc.HeadList, t, l.dataField(t, sp), sp, fields)
}

// dataField is the representation of a field of type t read out of Data.
func (l *Lowering) dataField(t *sir.Type, sp source.Span) Repr {
	if l.familyOf(t) == famFun {
		l.failCode(codeNoConversion, sp, []*sir.Type{t}, []Repr{l.DefaultRepr(t), PackedData},
			"function-typed field %s cannot be stored in Data", t)
	}
	return l.DataRepr(t)
}

func (l *Lowering) lowerSelect(e *sir.Expr) ValueID {
	l.operands(e, 1)
	target := l.lowerExpr(e.Operands[0])
	tv := l.value(target)
	tt := tv.Type.Unwrap()
	if l.familyOf(tt) == famTypeVar {
		tt = e.Operands[0].Type.Unwrap()
	}
	d, ok := l.types.Decl(tt.Name)
	if !ok {
		l.failCode(codeBadIR, e.Span, []*sir.Type{tt}, nil, "select %s on %s: unknown declaration", e.Name, tt)
	}
	cname := tt.Constr
	if cname == "" {
		if !d.IsProduct() {
			l.failCode(codeBadIR, e.Span, []*sir.Type{tt}, nil, "select %s on sum %s", e.Name, tt)
		}
		cname = d.Constrs[0].Name
	}
	_, c, ok := d.Constr(cname)
	if !ok {
		l.failCode(codeBadIR, e.Span, []*sir.Type{tt}, nil, "unknown constructor %s", cname)
	}
	idx, ok := c.FieldIndex(e.Name)
	if !ok {
		l.failCode(codeBadIR, e.Span, []*sir.Type{tt}, nil, "%s has no field %s", cname, e.Name)
	}
	ft := d.FieldTypes(c, tt.Args)[idx]
	sp := e.Span

	if l.familyOf(tt) == famList {
		// Cons fields read straight off the native list
		lr := l.DefaultRepr(sir.ListOf(tt.Elem()))
		list := l.toRepr(target, lr)
		if idx == 0 {
			return l.builtin(uplc.HeadList, ft, l.ElemRepr(lr, tt.Elem()), sp, list)
		}
		return l.builtin(uplc.TailList, ft, lr, sp, list)
	}

	switch tv.Repr.Kind {
	case ReprProdPair:
		fun := uplc.FstPair
		if idx == 1 {
			fun = uplc.SndPair
		}
		return l.builtin(fun, ft, l.dataField(ft, sp), sp, target)
	case ReprProdDataArray:
		k := l.constValue(uplc.Integer(int64(idx)), sir.Integer(), sp)
		return l.builtin(uplc.IndexArray, ft, l.dataField(ft, sp), sp, target, k)
	}
	return l.nthField(l.fieldList(target, sp), idx, ft, sp)
}

// typeArgs are the declaration type arguments of t.
func typeArgs(t *sir.Type) []*sir.Type {
	if t == nil {
		return nil
	}
	return t.Unwrap().Args
}

func (l *Lowering) lowerConstr(e *sir.Expr) ValueID {
	d, ok := l.types.Decl(e.Decl)
	if !ok {
		l.failCode(codeBadIR, e.Span, []*sir.Type{e.Type}, nil, "unknown declaration %s", e.Decl)
	}
	tag, c, ok := d.Constr(e.Name)
	if !ok {
		l.failCode(codeBadIR, e.Span, []*sir.Type{e.Type}, nil, "%s has no constructor %s", e.Decl, e.Name)
	}
	if len(e.Operands) != len(c.Params) {
		l.failCode(codeBadIR, e.Span, []*sir.Type{e.Type}, nil, "%s takes %d arguments, got %d", e.Name, len(c.Params), len(e.Operands))
	}
	fts := d.FieldTypes(c, typeArgs(e.Type))
	sp := e.Span
	if d.Name == sir.ListDecl {
		return l.lowerListConstr(e, fts)
	}
	fields := make([]ValueID, len(e.Operands))
	for i, a := range e.Operands {
		v := l.upcast(l.lowerExpr(a), fts[i], a.Span)
		fields[i] = l.toRepr(v, l.dataField(fts[i], a.Span))
	}
	r := ProdDataConstr
	if u := e.Type.Unwrap(); u.Kind == sir.TypeSum && !d.IsProduct() {
		r = SumDataConstr
	}
	list := l.consAll(fields, sp)
	if lc, ok := l.constOf(list); ok {
		if items, ok := dataItems(lc); ok {
			return l.constIn(dataConst(uplc.ConstrD(uint64(tag), items...)), e.Type, r, sp) //nolint:gosec // constructor index is non-negative
		}
	}
	k := l.constValue(uplc.Integer(int64(tag)), sir.Integer(), sp)
	return l.builtin(uplc.ConstrData, e.Type, r, sp, k, list)
}

// consAll builds a native Data list from Data values, folding constant
// suffixes.
func (l *Lowering) consAll(items []ValueID, sp source.Span) ValueID {
	acc := l.constValue(emptyDataList(), dataListT, sp)
	for i := len(items) - 1; i >= 0; i-- {
		acc = l.cons(items[i], acc, dataListT, Constant, sp)
	}
	return acc
}

// cons prepends head to list, folding when both are constants.
func (l *Lowering) cons(head, list ValueID, t *sir.Type, r Repr, sp source.Span) ValueID {
	hc, hok := l.constOf(head)
	lc, lok := l.constOf(list)
	if hok && lok && lc.Type.Kind == uplc.ConstList && lc.Type.Elem.Equal(hc.Type) {
		items := append([]uplc.Constant{hc}, lc.Items...)
		return l.constIn(uplc.Constant{Type: lc.Type, Items: items}, t, r, sp)
	}
	return l.builtin(uplc.MkCons, t, r, sp, head, list)
}

func (l *Lowering) lowerListConstr(e *sir.Expr, fts []*sir.Type) ValueID {
	elemT := sir.Free()
	if args := typeArgs(e.Type); len(args) > 0 {
		elemT = args[0]
	}
	listT := sir.ListOf(elemT)
	r := l.DefaultRepr(listT)
	if e.Name == sir.NilConstr {
		empty := emptyDataList()
		if r.Kind == ReprSumDataPairList {
			empty = emptyPairList()
		}
		return l.constIn(empty, e.Type, r, e.Span)
	}
	h := l.upcast(l.lowerExpr(e.Operands[0]), fts[0], e.Operands[0].Span)
	h = l.toRepr(h, l.ElemRepr(r, elemT))
	t := l.upcast(l.lowerExpr(e.Operands[1]), listT, e.Operands[1].Span)
	t = l.toRepr(t, r)
	return l.cons(h, t, e.Type, r, e.Span)
}

// lowerCast changes the static type of a value. Upcasts follow the type
// system; casts into or out of type variables and Data go through the Data
// encoding.
func (l *Lowering) lowerCast(e *sir.Expr) ValueID {
	l.operands(e, 1)
	id := l.lowerExpr(e.Operands[0])
	v := l.value(id)
	from, to := v.Type, e.Type
	if r := l.types.Unify(from, to, true); r.OK || len(l.types.UpcastChain(from, to)) > 0 {
		return l.upcast(id, to, e.Span)
	}
	ff, tf := l.familyOf(from), l.familyOf(to)
	switch {
	case ff == famTypeVar || tf == famTypeVar:
		l.warn(diag.LowTypeVarErasure, e.Span, "cast from %s to %s erases a type variable", from, to)
		x := l.toRepr(id, l.DataRepr(from))
		return l.reinterpret(x, to, l.DataRepr(to))
	case ff == famData && tf != famFun:
		x := l.toRepr(id, Constant)
		return l.reinterpret(x, to, l.DataRepr(to))
	case tf == famData && ff != famFun:
		x := l.toRepr(id, l.DataRepr(from))
		return l.reinterpret(x, to, Constant)
	}
	return l.upcast(id, to, e.Span)
}
