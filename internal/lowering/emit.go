package lowering

import (
	"fmt"

	"sirc/internal/sir"
	"sirc/internal/uplc"
)

// emitter turns the value graph into terms. bound counts how many enclosing
// binders currently introduce each variable.
type emitter struct {
	l     *Lowering
	bound map[ValueID]int
}

func (l *Lowering) newEmitter() *emitter {
	return &emitter{l: l, bound: map[ValueID]int{}}
}

func (e *emitter) bind(id ValueID)   { e.bound[id]++ }
func (e *emitter) unbind(id ValueID) { e.bound[id]-- }

func (e *emitter) isBound(id ValueID) bool { return e.bound[id] > 0 }

// emit produces the term of id, first binding the variables id dominates.
func (e *emitter) emit(id ValueID) *uplc.Term {
	l := e.l
	v := l.value(id)
	if v.Kind.IsIdentifiable() {
		return e.emitVar(id)
	}
	var binds []ValueID
	var rhs []*uplc.Term
	for _, d := range l.dominating(id) {
		if e.isBound(d) {
			continue
		}
		dv := l.value(d)
		rhs = append(rhs, e.emit(dv.Rhs))
		binds = append(binds, d)
		e.bind(d)
		l.stats.Bindings++
		l.tracePoint("bind", fmt.Sprintf("%s at %s#%d", dv.Name, v.Kind, id))
	}
	t := e.emitNode(id)
	for i := len(binds) - 1; i >= 0; i-- {
		e.unbind(binds[i])
		t = uplc.Apply(uplc.Lam(l.value(binds[i]).Name, t), rhs[i])
	}
	return t
}

func (e *emitter) emitVar(id ValueID) *uplc.Term {
	l := e.l
	v := l.value(id)
	if e.isBound(id) {
		return uplc.Var(v.Name)
	}
	if v.Rhs.IsValid() {
		l.stats.Inlined++
		return e.emit(v.Rhs)
	}
	l.failCode(codeUnboundVar, v.Span, []*sir.Type{v.Type}, []Repr{v.Repr},
		"variable %s has neither a binding in scope nor a definition", v.Name)
	return nil
}

// underBinders emits body with binders in scope and wraps it in lambdas.
func (e *emitter) underBinders(binders []ValueID, body ValueID) *uplc.Term {
	for _, b := range binders {
		e.bind(b)
	}
	t := e.emit(body)
	for i := len(binders) - 1; i >= 0; i-- {
		e.unbind(binders[i])
		t = uplc.Lam(e.l.value(binders[i]).Name, t)
	}
	return t
}

// strictly emits body after evaluating the definition of id, so a failing
// definition fails even when body never reads it. Chains of aliases are
// followed to the variable that does the work.
func (e *emitter) strictly(id, body ValueID) *uplc.Term {
	l := e.l
	for {
		v := l.value(id)
		if !v.Kind.IsIdentifiable() || e.isBound(id) || !v.Rhs.IsValid() {
			return e.emit(body)
		}
		if !l.value(v.Rhs).Kind.IsIdentifiable() {
			break
		}
		id = v.Rhs
	}
	v := l.value(id)
	if l.isEffortless(v.Rhs) {
		return e.emit(body)
	}
	name := v.Name
	rhs := e.emit(v.Rhs)
	e.bind(id)
	t := e.emit(body)
	e.unbind(id)
	l.stats.Bindings++
	return uplc.Apply(uplc.Lam(name, t), rhs)
}

func (e *emitter) emitNode(id ValueID) *uplc.Term {
	l := e.l
	v := l.value(id)
	switch v.Kind {
	case ValueConst:
		return uplc.Const(v.Const)
	case ValueBuiltinRef:
		return uplc.Builtin(v.Builtin)
	case ValueError, ValueTypeError:
		if l.debug && v.Name != "" {
			msg := uplc.Const(uplc.String(v.Name))
			return uplc.Force(uplc.Apply(uplc.Builtin(uplc.Trace), msg, uplc.Delay(uplc.Error())))
		}
		return uplc.Error()
	case ValueLambda:
		if v.Repr.Delayed {
			return uplc.Delay(e.emit(v.Subs[0]))
		}
		return e.underBinders([]ValueID{v.Param}, v.Subs[0])
	case ValueApply:
		return uplc.Apply(e.emit(v.Subs[0]), e.emit(v.Subs[1]))
	case ValueLet:
		if v.Strict.IsValid() {
			return e.strictly(v.Strict, v.Subs[0])
		}
		return e.emit(v.Subs[0])
	case ValueFix:
		l.usesFix = true
		return uplc.Apply(uplc.Var(FixName), e.underBinders([]ValueID{v.Param}, v.Subs[0]))
	case ValueCase:
		return e.emitCase(v)
	case ValueBuiltin1, ValueBuiltin2, ValueBuiltinN:
		args := make([]*uplc.Term, len(v.Subs))
		for i, s := range v.Subs {
			args[i] = e.emit(s)
		}
		return uplc.Apply(uplc.Builtin(v.Builtin), args...)
	case ValueDelay:
		return uplc.Delay(e.emit(v.Subs[0]))
	case ValueForce:
		if inner := l.value(v.Subs[0]); inner.Kind == ValueDelay {
			return e.emit(inner.Subs[0])
		}
		return uplc.Force(e.emit(v.Subs[0]))
	case ValueReinterpret:
		return e.emit(v.Subs[0])
	}
	l.fail(nil, v.Span, "internal: cannot emit %s", v.Kind)
	return nil
}

func (e *emitter) emitCase(v *Value) *uplc.Term {
	l := e.l
	branches := v.Subs[1:]
	if v.Native {
		terms := make([]*uplc.Term, len(branches))
		for i, b := range branches {
			var binders []ValueID
			if i < len(v.Binders) {
				binders = v.Binders[i]
			}
			terms[i] = e.underBinders(binders, b)
		}
		return uplc.Case(e.emit(v.Subs[0]), terms...)
	}
	delayed := func(i int) *uplc.Term { return uplc.Delay(e.emit(branches[i])) }
	switch v.Shape {
	case ShapeBool:
		s := e.emit(v.Subs[0])
		return uplc.Force(uplc.Apply(uplc.Builtin(uplc.IfThenElse), s, delayed(1), delayed(0)))
	case ShapeUnit:
		s := e.emit(v.Subs[0])
		return uplc.Force(uplc.Apply(uplc.Builtin(uplc.ChooseUnit), s, delayed(0)))
	case ShapeList:
		s := e.emit(v.Subs[0])
		return uplc.Force(uplc.Apply(uplc.Builtin(uplc.ChooseList), s, delayed(1), delayed(0)))
	case ShapePair:
		return e.strictly(v.Subs[0], branches[0])
	case ShapeData:
		s := e.emit(v.Subs[0])
		return uplc.Force(uplc.Apply(uplc.Builtin(uplc.ChooseData), s,
			delayed(0), delayed(1), delayed(2), delayed(3), delayed(4)))
	}
	l.fail(nil, v.Span, "internal: no emulation for %s case", v.Shape)
	return nil
}
