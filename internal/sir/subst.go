package sir

// Subst maps type-variable ids to types.
type Subst map[uint32]*Type

// Apply replaces bound variables in t. Variables quantified by an inner type
// lambda are left alone.
func (s Subst) Apply(t *Type) *Type {
	if len(s) == 0 || t == nil {
		return t
	}
	switch t.Kind {
	case TypeVar:
		if r, ok := s[t.VarID]; ok {
			return r
		}
		return t
	case TypeLambda:
		inner := Subst{}
		for k, v := range s {
			inner[k] = v
		}
		for _, p := range t.Params {
			delete(inner, p.VarID)
		}
		return &Type{Kind: TypeLambda, Params: t.Params, Args: []*Type{inner.Apply(t.Args[0])}}
	}
	if len(t.Args) == 0 {
		return t
	}
	args := make([]*Type, len(t.Args))
	changed := false
	for i, a := range t.Args {
		args[i] = s.Apply(a)
		changed = changed || args[i] != a
	}
	if !changed {
		return t
	}
	cp := *t
	cp.Args = args
	return &cp
}

// HasTypeVars reports whether t mentions any type variable.
func HasTypeVars(t *Type) bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeVar {
		return true
	}
	for _, a := range t.Args {
		if HasTypeVars(a) {
			return true
		}
	}
	return false
}
