package sir

import "fmt"

// TypeSystem answers the type queries lowering depends on.
type TypeSystem interface {
	// Unify checks that a can be used where b is expected; with allowUpcast
	// a may be a subtype of b (a constructor where its sum is expected).
	Unify(a, b *Type, allowUpcast bool) UnifyResult
	// UpcastChain lists the successive supertypes leading from one type to
	// another, ending with to. An empty chain means no upcast exists.
	UpcastChain(from, to *Type) []*Type
	IsSum(t *Type) bool
	IsProduct(t *Type) bool
	Decl(name string) (*DataDecl, bool)
}

// UnifyResult is the outcome of a unification.
type UnifyResult struct {
	OK     bool
	Subst  Subst
	Reason string
}

// Checker is the reference TypeSystem over a declaration table.
type Checker struct {
	decls Decls
}

var _ TypeSystem = (*Checker)(nil)

// NewChecker builds a checker over the prelude plus decls.
func NewChecker(decls Decls) *Checker {
	all := Prelude()
	for name, d := range decls {
		all[name] = d
	}
	return &Checker{decls: all}
}

func (c *Checker) Decl(name string) (*DataDecl, bool) {
	d, ok := c.decls[name]
	return d, ok
}

// Decls exposes the full declaration table.
func (c *Checker) Decls() Decls { return c.decls }

func (c *Checker) IsSum(t *Type) bool {
	t = t.Unwrap()
	if t.Kind != TypeSum {
		return false
	}
	d, ok := c.decls[t.Name]
	return ok && len(d.Constrs) > 1
}

func (c *Checker) IsProduct(t *Type) bool {
	t = t.Unwrap()
	switch t.Kind {
	case TypeCaseClass:
		return true
	case TypeSum:
		d, ok := c.decls[t.Name]
		return ok && d.IsProduct()
	}
	return false
}

func (c *Checker) Unify(a, b *Type, allowUpcast bool) UnifyResult {
	s := Subst{}
	if err := c.unify(a, b, allowUpcast, s); err != nil {
		return UnifyResult{Reason: err.Error()}
	}
	return UnifyResult{OK: true, Subst: s}
}

func (c *Checker) resolve(t *Type, s Subst) *Type {
	for t != nil && t.Kind == TypeVar {
		r, ok := s[t.VarID]
		if !ok || r == t {
			return t
		}
		t = r
	}
	return t
}

func (c *Checker) unify(a, b *Type, up bool, s Subst) error {
	a, b = c.resolve(a.Unwrap(), s), c.resolve(b.Unwrap(), s)
	switch {
	case a == nil || b == nil:
		return fmt.Errorf("missing type")
	case a.Kind == TypeFree || b.Kind == TypeFree:
		return nil
	case a.Kind == TypeNothing || b.Kind == TypeNothing:
		return nil
	case a.Kind == TypeVar && b.Kind == TypeVar && a.VarID == b.VarID:
		return nil
	case a.Kind == TypeVar:
		s[a.VarID] = b
		return nil
	case b.Kind == TypeVar:
		s[b.VarID] = a
		return nil
	}
	if a.Kind != b.Kind {
		if up && a.Kind == TypeCaseClass && b.Kind == TypeSum && a.Name == b.Name {
			return c.unifyArgs(a, b, up, s)
		}
		return fmt.Errorf("%s is not %s", a, b)
	}
	switch a.Kind {
	case TypeSum:
		if a.Name != b.Name {
			return fmt.Errorf("%s is not %s", a, b)
		}
	case TypeCaseClass:
		if a.Name != b.Name || a.Constr != b.Constr {
			return fmt.Errorf("%s is not %s", a, b)
		}
	}
	return c.unifyArgs(a, b, up, s)
}

func (c *Checker) unifyArgs(a, b *Type, up bool, s Subst) error {
	if len(a.Args) != len(b.Args) {
		// Missing type arguments are treated as unconstrained.
		if len(a.Args) == 0 || len(b.Args) == 0 {
			return nil
		}
		return fmt.Errorf("%s and %s differ in arity", a, b)
	}
	for i := range a.Args {
		if err := c.unify(a.Args[i], b.Args[i], up, s); err != nil {
			return fmt.Errorf("%s is not %s: %w", a, b, err)
		}
	}
	return nil
}

func (c *Checker) UpcastChain(from, to *Type) []*Type {
	from, to = from.Unwrap(), to.Unwrap()
	switch {
	case from.Kind == TypeNothing:
		return []*Type{to}
	case from.Kind == TypeCaseClass && to.Kind == TypeSum && from.Name == to.Name:
		args := to.Args
		if len(args) == 0 {
			args = from.Args
		}
		return []*Type{Sum(to.Name, args...)}
	case from.Kind == TypeCaseClass && to.Kind == TypeVar:
		// through the sum into the erased variable
		return []*Type{Sum(from.Name, from.Args...), to}
	}
	return nil
}

// Join is the least type both a and b upcast to, if any.
func (c *Checker) Join(a, b *Type) (*Type, bool) {
	return JoinTypes(c, a, b)
}

// JoinTypes computes the join of two arm types using only TypeSystem
// queries: equal or unifiable types join to the first, a constructor and
// its sum join to the sum, two constructors of one declaration join to the
// declaration's sum type.
func JoinTypes(ts TypeSystem, a, b *Type) (*Type, bool) {
	switch {
	case a.Kind == TypeNothing:
		return b, true
	case b.Kind == TypeNothing:
		return a, true
	}
	if r := ts.Unify(b, a, false); r.OK {
		return r.Subst.Apply(a), true
	}
	if r := ts.Unify(b, a, true); r.OK {
		return r.Subst.Apply(a), true
	}
	if r := ts.Unify(a, b, true); r.OK {
		return r.Subst.Apply(b), true
	}
	ua, ub := a.Unwrap(), b.Unwrap()
	if ua.Kind == TypeCaseClass && ub.Kind == TypeCaseClass && ua.Name == ub.Name {
		args := ua.Args
		if len(args) == 0 {
			args = ub.Args
		}
		sum := Sum(ua.Name, args...)
		if r := ts.Unify(ub, sum, true); r.OK {
			return r.Subst.Apply(sum), true
		}
	}
	return nil, false
}
