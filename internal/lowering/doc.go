// Package lowering turns typed SIR into untyped target terms.
//
// Lowering happens in two passes. The first builds a graph of values in an
// arena: every value carries its SIR type and a representation saying how
// it is laid out at runtime (a native constant, packed Data, a list of Data,
// a pair list, a closure and so on). Conversions between representations are
// inserted as the graph is built, memoised per variable.
//
// The second pass emits terms. Each composite value knows which variables
// it must bind (the ones shared by at least two of its children, or hoisted
// out of a lambda body because they do not depend on the parameter), so a
// shared computation is emitted once at the lowest point that dominates all
// of its uses and referenced by name everywhere else.
//
// Targets that cannot scrutinise builtin values with `case` get the same
// dispatch emulated with choose-style builtins and explicit delay/force.
package lowering
