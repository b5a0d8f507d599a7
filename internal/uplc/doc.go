// Package uplc models the untyped target calculus the lowering engine emits:
// terms, constants, the universal Data value, the builtin function table and
// the target versions that decide which builtins and which case forms exist.
//
// The package also carries a small evaluator (Machine). It is not a cost
// model; the driver uses it for `sirc eval` and tests use it to check that
// emitted terms compute what the source program meant.
package uplc
