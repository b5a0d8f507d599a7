package lowering

import "sort"

type varSet map[ValueID]struct{}

func (s varSet) has(id ValueID) bool {
	_, ok := s[id]
	return ok
}

func (s varSet) sorted() []ValueID {
	out := make([]ValueID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func unionInto(dst *varSet, src varSet) {
	if len(src) == 0 {
		return
	}
	if *dst == nil {
		*dst = make(varSet, len(src))
	}
	for id := range src {
		(*dst)[id] = struct{}{}
	}
}

// ownedBy lists every variable whose scope id defines.
func (l *Lowering) ownedBy(v *Value) []ValueID {
	var out []ValueID
	if v.Param.IsValid() {
		out = append(out, v.Param)
	}
	out = append(out, v.Owned...)
	for _, bs := range v.Binders {
		out = append(out, bs...)
	}
	return out
}

// summarize caches the used-variable set and the direct reference counts of
// a freshly allocated node.
func (l *Lowering) summarize(id ValueID) {
	v := l.value(id)
	if v.Kind.IsLeaf() || v.Kind.IsIdentifiable() {
		return
	}
	var all varSet
	var direct map[ValueID]int
	for _, s := range v.Subs {
		unionInto(&all, l.usedOf(s))
		for r, n := range l.directOf(s) {
			if direct == nil {
				direct = map[ValueID]int{}
			}
			direct[r] += n
		}
		l.noteSlot(s)
	}
	v = l.value(id)
	v.used = l.excludeOwned(all, l.ownedBy(v))
	v.direct = direct
}

// excludeOwned removes owned variables and everything depending on them.
func (l *Lowering) excludeOwned(all varSet, owned []ValueID) varSet {
	if len(owned) == 0 || len(all) == 0 {
		return all
	}
	out := make(varSet, len(all))
	for u := range all {
		keep := true
		for _, o := range owned {
			if u == o || l.isDependFrom(u, o) {
				keep = false
				break
			}
		}
		if keep {
			out[u] = struct{}{}
		}
	}
	return out
}

// usedOf is the set of free variables a value needs, including the
// variables reachable through definitions of the ones it references.
func (l *Lowering) usedOf(id ValueID) varSet {
	v := l.value(id)
	switch {
	case v.Kind.IsIdentifiable():
		if v.used != nil {
			return v.used
		}
		return varSet{id: {}}
	case v.Kind.IsLeaf():
		return nil
	}
	return v.used
}

// directOf counts the variables a value references without going through
// another variable.
func (l *Lowering) directOf(id ValueID) map[ValueID]int {
	v := l.value(id)
	if v.Kind.IsIdentifiable() {
		return map[ValueID]int{id: 1}
	}
	return v.direct
}

// noteSlot records that id now occupies one more child slot. A variable
// gains a reference; a non-identifiable value occupying a second slot is
// emitted twice, so its references count again.
func (l *Lowering) noteSlot(id ValueID) {
	v := l.value(id)
	if v.Kind.IsIdentifiable() {
		l.refs[id]++
		return
	}
	l.slotUses[id]++
	if l.slotUses[id] > 1 {
		for r, n := range v.direct {
			l.refs[r] += n
		}
	}
}

// recordDeps fixes the used set of variable v once its definition is known
// and records the direct depends-on edges.
func (l *Lowering) recordDeps(v ValueID) {
	val := l.value(v)
	used := varSet{v: {}}
	unionInto(&used, l.usedOf(val.Rhs))
	rhs := l.value(val.Rhs)
	var deps []ValueID
	if rhs.Kind.IsIdentifiable() {
		deps = []ValueID{val.Rhs}
	} else {
		for r := range rhs.direct {
			if rhs.used.has(r) {
				deps = append(deps, r)
			}
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	}
	val = l.value(v)
	val.used = used
	l.dependsOn[v] = deps
	for _, d := range deps {
		l.dependedBy[d] = append(l.dependedBy[d], v)
	}
}

// isDependFrom reports whether u transitively depends on o.
func (l *Lowering) isDependFrom(u, o ValueID) bool {
	if u == o {
		return false
	}
	return l.usedOf(u).has(o)
}

// DependsOn lists the variables the definition of v references directly.
func (l *Lowering) DependsOn(v ValueID) []ValueID { return l.dependsOn[v] }

// DependedBy lists the variables whose definitions reference v directly.
func (l *Lowering) DependedBy(v ValueID) []ValueID { return l.dependedBy[v] }

// Refs is the number of places v is referenced from in the graph.
func (l *Lowering) Refs(v ValueID) int { return l.refs[v] }

// UsedVars is the used-variable set of id, sorted.
func (l *Lowering) UsedVars(id ValueID) []ValueID { return l.usedOf(id).sorted() }

// freshUsed recomputes the used set of a composite from its children. Graph
// construction may define recursive variables after their users were
// summarised; placement runs on the finished graph and uses this.
func (l *Lowering) freshUsed(v *Value) varSet {
	var all varSet
	for _, s := range v.Subs {
		unionInto(&all, l.usedOf(s))
	}
	return l.excludeOwned(all, l.ownedBy(v))
}

// unguarded is the set of variables certainly evaluated whenever id is:
// nothing under a delay or an unapplied lambda body, only what every branch
// of a case evaluates.
func (l *Lowering) unguarded(id ValueID) varSet {
	if s, ok := l.unguardedMemo[id]; ok {
		return s
	}
	l.unguardedMemo[id] = nil // cycle guard for recursive definitions
	v := l.value(id)
	var out varSet
	switch v.Kind {
	case ValueVar, ValueAlias:
		out = varSet{id: {}}
		if v.Rhs.IsValid() {
			unionInto(&out, l.unguarded(v.Rhs))
		}
	case ValueDelay, ValueFix:
	case ValueLambda:
		if v.Barrier {
			used := l.freshUsed(v)
			for u := range l.unguarded(v.Subs[0]) {
				if used.has(u) {
					if out == nil {
						out = varSet{}
					}
					out[u] = struct{}{}
				}
			}
		}
	case ValueForce:
		inner := l.value(v.Subs[0])
		if inner.Kind == ValueDelay {
			out = l.unguarded(inner.Subs[0])
		} else {
			out = l.unguarded(v.Subs[0])
		}
	case ValueCase:
		unionInto(&out, l.unguarded(v.Subs[0]))
		var common varSet
		for i, b := range v.Subs[1:] {
			ub := l.unguarded(b)
			if i == 0 {
				common = make(varSet, len(ub))
				unionInto(&common, ub)
				continue
			}
			for u := range common {
				if !ub.has(u) {
					delete(common, u)
				}
			}
		}
		unionInto(&out, common)
	case ValueLet:
		out = l.excludeOwned(l.unguarded(v.Subs[0]), v.Owned)
	default:
		for _, s := range v.Subs {
			unionInto(&out, l.unguarded(s))
		}
	}
	l.unguardedMemo[id] = out
	return out
}

// dominating computes the variables id must bind: those shared by two or
// more of its children that id evaluates anyway (or that cost nothing), and
// for barrier lambdas the parameter-independent work of the body.
func (l *Lowering) dominating(id ValueID) []ValueID {
	v := l.value(id)
	if v.placed {
		return v.dominating
	}
	var dom varSet
	if v.Kind.IsComposite() {
		counts := map[ValueID]int{}
		for _, s := range v.Subs {
			for u := range l.usedOf(s) {
				counts[u]++
			}
		}
		var ung varSet
		for u, n := range counts {
			if n < 2 || l.refs[u] < 2 {
				continue
			}
			uv := l.value(u)
			if !uv.Rhs.IsValid() || l.inlinable(uv) {
				continue
			}
			if !l.isEffortless(uv.Rhs) {
				if ung == nil {
					ung = l.unguarded(id)
				}
				if !ung.has(u) {
					continue
				}
			}
			if dom == nil {
				dom = varSet{}
			}
			dom[u] = struct{}{}
		}
		if v.Kind == ValueLambda && v.Barrier {
			used := l.freshUsed(v)
			body := l.unguarded(v.Subs[0])
			for u := range used {
				uv := l.value(u)
				if !uv.Rhs.IsValid() || l.inlinable(uv) || !body.has(u) {
					continue
				}
				if l.isEffortless(uv.Rhs) && l.refs[u] < 2 {
					continue
				}
				if dom == nil {
					dom = varSet{}
				}
				dom[u] = struct{}{}
			}
		}
	}
	v = l.value(id)
	v.dominating = l.topoOrder(dom)
	v.placed = true
	return v.dominating
}

// topoOrder orders vars so that every variable comes after the ones its
// definition depends on; ties go to the lower id.
func (l *Lowering) topoOrder(set varSet) []ValueID {
	if len(set) == 0 {
		return nil
	}
	pending := set.sorted()
	out := make([]ValueID, 0, len(pending))
	for len(pending) > 0 {
		progressed := false
		for i, u := range pending {
			ready := true
			for _, w := range pending {
				if w != u && l.isDependFrom(u, w) {
					ready = false
					break
				}
			}
			if ready {
				out = append(out, u)
				pending = append(pending[:i], pending[i+1:]...)
				progressed = true
				break
			}
		}
		if !progressed {
			// mutually dependent definitions cannot happen outside fix;
			// fall back to id order
			out = append(out, pending...)
			break
		}
	}
	return out
}
