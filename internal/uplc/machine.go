package uplc

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrBudgetExhausted is returned when evaluation runs past Machine.Budget.
var ErrBudgetExhausted = errors.New("uplc: step budget exhausted")

// EvalError reports a runtime failure: an evaluated (error) term, a builtin
// applied to the wrong kind of value, a free variable and so on.
type EvalError struct {
	Msg string
}

func (e *EvalError) Error() string { return "uplc: evaluation failure: " + e.Msg }

type valueKind uint8

const (
	valCon valueKind = iota
	valDelay
	valLam
	valBuiltin
	valConstr
)

// Value is the result of evaluating a term.
type Value struct {
	kind   valueKind
	con    Constant
	name   string
	body   *Term
	env    *env
	fun    DefaultFun
	forces int
	args   []*Value
	tag    uint64
	fields []*Value
}

// Constant returns the value as a constant when it is one.
func (v *Value) Constant() (Constant, bool) {
	if v == nil || v.kind != valCon {
		return Constant{}, false
	}
	return v.con, true
}

// IsLambda reports whether the value is a closure.
func (v *Value) IsLambda() bool { return v != nil && v.kind == valLam }

// IsDelay reports whether the value is a suspended computation.
func (v *Value) IsDelay() bool { return v != nil && v.kind == valDelay }

func (v *Value) String() string {
	switch v.kind {
	case valCon:
		return v.con.String()
	case valDelay:
		return "(delay " + v.body.String() + ")"
	case valLam:
		return "(lam " + v.name + " " + v.body.String() + ")"
	case valBuiltin:
		return fmt.Sprintf("(builtin %s/%d)", v.fun, len(v.args))
	case valConstr:
		parts := make([]string, 0, len(v.fields)+2)
		parts = append(parts, "(constr", fmt.Sprint(v.tag))
		for _, f := range v.fields {
			parts = append(parts, f.String())
		}
		return strings.Join(parts, " ") + ")"
	}
	return "<value>"
}

type env struct {
	name string
	val  *Value
	next *env
}

func (e *env) lookup(name string) (*Value, bool) {
	for ; e != nil; e = e.next {
		if e.name == name {
			return e.val, true
		}
	}
	return nil, false
}

// Machine is a strict environment-based evaluator.
type Machine struct {
	Version Version
	// Budget bounds the number of evaluation steps; zero means unlimited.
	Budget int64
	// Logs collects messages emitted by the trace builtin.
	Logs []string

	steps int64
}

// NewMachine returns a machine for version v with the given step budget.
func NewMachine(v Version, budget int64) *Machine {
	return &Machine{Version: v, Budget: budget}
}

type evalFailure struct{ err error }

// Steps reports how many steps the last evaluation took.
func (m *Machine) Steps() int64 { return m.steps }

// Eval evaluates t in the empty environment.
func (m *Machine) Eval(t *Term) (res *Value, err error) {
	m.steps = 0
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(evalFailure)
			if !ok {
				panic(r)
			}
			res, err = nil, f.err
		}
	}()
	return m.eval(t, nil), nil
}

// EvalConstant evaluates t and requires the result to be a constant.
func (m *Machine) EvalConstant(t *Term) (Constant, error) {
	v, err := m.Eval(t)
	if err != nil {
		return Constant{}, err
	}
	c, ok := v.Constant()
	if !ok {
		return Constant{}, &EvalError{Msg: "result is not a constant: " + v.String()}
	}
	return c, nil
}

func (m *Machine) fail(format string, args ...any) {
	panic(evalFailure{err: &EvalError{Msg: fmt.Sprintf(format, args...)}})
}

func (m *Machine) step() {
	m.steps++
	if m.Budget > 0 && m.steps > m.Budget {
		panic(evalFailure{err: ErrBudgetExhausted})
	}
}

func (m *Machine) eval(t *Term, e *env) *Value {
	m.step()
	switch t.Kind {
	case TermVar:
		v, ok := e.lookup(t.Name)
		if !ok {
			m.fail("free variable %s", t.Name)
		}
		return v
	case TermLam:
		return &Value{kind: valLam, name: t.Name, body: t.Body, env: e}
	case TermDelay:
		return &Value{kind: valDelay, body: t.Body, env: e}
	case TermConst:
		return &Value{kind: valCon, con: *t.Const}
	case TermBuiltin:
		if !t.Builtin.AvailableIn(m.Version) {
			m.fail("builtin %s is not available in %s", t.Builtin, m.Version)
		}
		return &Value{kind: valBuiltin, fun: t.Builtin}
	case TermError:
		m.fail("error term evaluated")
	case TermApply:
		f := m.eval(t.Fun, e)
		a := m.eval(t.Arg, e)
		return m.apply(f, a)
	case TermForce:
		return m.force(m.eval(t.Body, e))
	case TermConstr:
		if !m.Version.HasSOP() {
			m.fail("constr is not available in %s", m.Version)
		}
		fields := make([]*Value, len(t.Args))
		for i, a := range t.Args {
			fields[i] = m.eval(a, e)
		}
		return &Value{kind: valConstr, tag: t.Tag, fields: fields}
	case TermCase:
		if !m.Version.HasSOP() {
			m.fail("case is not available in %s", m.Version)
		}
		return m.evalCase(m.eval(t.Scrutinee, e), t.Args, e)
	}
	m.fail("unknown term kind %s", t.Kind)
	return nil
}

func (m *Machine) apply(f, a *Value) *Value {
	switch f.kind {
	case valLam:
		return m.eval(f.body, &env{name: f.name, val: a, next: f.env})
	case valBuiltin:
		if f.forces < f.fun.Forces() {
			m.fail("builtin %s applied before being forced", f.fun)
		}
		args := make([]*Value, len(f.args), len(f.args)+1)
		copy(args, f.args)
		args = append(args, a)
		if len(args) == f.fun.Arity() {
			return m.callBuiltin(f.fun, args)
		}
		return &Value{kind: valBuiltin, fun: f.fun, forces: f.forces, args: args}
	}
	m.fail("cannot apply %s", f)
	return nil
}

func (m *Machine) force(v *Value) *Value {
	switch v.kind {
	case valDelay:
		return m.eval(v.body, v.env)
	case valBuiltin:
		if v.forces >= v.fun.Forces() || len(v.args) > 0 {
			m.fail("builtin %s forced too often", v.fun)
		}
		return &Value{kind: valBuiltin, fun: v.fun, forces: v.forces + 1}
	}
	m.fail("cannot force %s", v)
	return nil
}

func (m *Machine) applyBranch(branches []*Term, idx int, e *env, args ...*Value) *Value {
	if idx < 0 || idx >= len(branches) {
		m.fail("case: no branch %d (have %d)", idx, len(branches))
	}
	v := m.eval(branches[idx], e)
	for _, a := range args {
		v = m.apply(v, a)
	}
	return v
}

func con(c Constant) *Value { return &Value{kind: valCon, con: c} }

func (m *Machine) evalCase(s *Value, branches []*Term, e *env) *Value {
	if s.kind == valConstr {
		if s.tag >= uint64(len(branches)) {
			m.fail("case: no branch %d (have %d)", s.tag, len(branches))
		}
		return m.applyBranch(branches, int(s.tag), e, s.fields...)
	}
	if s.kind != valCon || !m.Version.HasBuiltinCase() {
		m.fail("case: cannot scrutinise %s in %s", s, m.Version)
	}
	c := s.con
	switch c.Type.Kind {
	case ConstBool:
		if c.Bool {
			return m.applyBranch(branches, 1, e)
		}
		return m.applyBranch(branches, 0, e)
	case ConstUnit:
		return m.applyBranch(branches, 0, e)
	case ConstInteger:
		n := bigOrZero(c.Int)
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() >= int64(len(branches)) {
			m.fail("case: integer %s out of range", n)
		}
		return m.applyBranch(branches, int(n.Int64()), e)
	case ConstList:
		if len(c.Items) == 0 {
			return m.applyBranch(branches, 1, e)
		}
		tail := Constant{Type: c.Type, Items: c.Items[1:]}
		return m.applyBranch(branches, 0, e, con(c.Items[0]), con(tail))
	case ConstPair:
		return m.applyBranch(branches, 0, e, con(c.Items[0]), con(c.Items[1]))
	case ConstData:
		d := c.Data
		switch d.Kind {
		case DataConstr:
			return m.applyBranch(branches, 0, e, con(BigInteger(new(big.Int).SetUint64(d.Tag))), con(DataListConst(d.Fields...)))
		case DataMap:
			return m.applyBranch(branches, 1, e, con(pairListConst(d.Map)))
		case DataList:
			return m.applyBranch(branches, 2, e, con(DataListConst(d.Fields...)))
		case DataI:
			return m.applyBranch(branches, 3, e, con(BigInteger(bigOrZero(d.Int))))
		case DataB:
			return m.applyBranch(branches, 4, e, con(ByteString(d.Bytes)))
		}
	}
	m.fail("case: cannot scrutinise %s", c)
	return nil
}

func pairListConst(entries []DataPair) Constant {
	items := make([]Constant, len(entries))
	for i, p := range entries {
		items[i] = Pair(DataConst(p.Key), DataConst(p.Value))
	}
	return List(TDataPair, items...)
}
