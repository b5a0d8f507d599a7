// Package sir defines the typed intermediate representation the lowering
// engine consumes: types, data declarations, expressions and compilation
// units, plus a reference implementation of the type-system queries the
// lowering needs (unification, upcast chains, sum/product classification).
package sir
