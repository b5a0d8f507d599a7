package lowering

import "sirc/internal/uplc"

// Strategy selects how a dispatch on a builtin value is emitted.
type Strategy uint8

const (
	// StrategyEmulated uses choose-style builtins with delayed branches.
	StrategyEmulated Strategy = iota
	// StrategyNative uses the case term on the builtin value directly.
	StrategyNative
)

func (s Strategy) String() string {
	if s == StrategyNative {
		return "native"
	}
	return "emulated"
}

// SelectStrategy decides the strategy for a dispatch of the given shape.
// Only targets with case-on-builtins get the native form; the decision is
// made per construction site, never per program.
func SelectStrategy(v uplc.Version, shape CaseShape) Strategy {
	if v.HasBuiltinCase() {
		return StrategyNative
	}
	return StrategyEmulated
}
