package lowering

import (
	"context"
	"strconv"

	"sirc/internal/diag"
	"sirc/internal/sir"
	"sirc/internal/trace"
	"sirc/internal/uplc"
)

// Options configures one lowering run.
type Options struct {
	// Target selects builtin availability and the case strategy.
	Target uplc.Version
	// Types answers type queries; nil means the module's reference checker.
	Types sir.TypeSystem
	// Reporter receives warnings; nil drops them.
	Reporter diag.Reporter
	// Debug emits per-node trace points.
	Debug bool
}

// Stats summarises a lowering run.
type Stats struct {
	Values   int
	Vars     int
	Aliases  int
	Bindings int
	Inlined  int
	Warnings int
}

// FixName is the variable the fixed-point combinator is bound to.
const FixName = "__fix"

type scopeFrame struct {
	names map[string]ValueID
	next  *scopeFrame
}

// Lowering holds the state of one run: the value arena, the lexical scope,
// the conversion memo and the runtime helper registry.
type Lowering struct {
	target   uplc.Version
	types    sir.TypeSystem
	reporter diag.Reporter
	debug    bool

	tracer trace.Tracer
	span   uint64

	values []Value
	scope  *scopeFrame

	aliases map[ValueID]map[string]ValueID
	helpers map[string]ValueID

	refs          map[ValueID]int
	slotUses      map[ValueID]int
	dependsOn     map[ValueID][]ValueID
	dependedBy    map[ValueID][]ValueID
	unguardedMemo map[ValueID]varSet

	names   map[string]int
	taken   map[string]bool
	usesFix bool
	stats   Stats
}

// New prepares a lowering for the given options.
func New(ctx context.Context, opts Options) *Lowering {
	if opts.Target == uplc.VersionUnknown {
		opts.Target = uplc.DefaultVersion
	}
	if opts.Types == nil {
		opts.Types = sir.NewChecker(nil)
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	return &Lowering{
		target:        opts.Target,
		types:         opts.Types,
		reporter:      opts.Reporter,
		debug:         opts.Debug,
		tracer:        trace.FromContext(ctx),
		span:          trace.CurrentSpan(ctx).SpanID,
		values:        make([]Value, 1, 256),
		scope:         &scopeFrame{names: map[string]ValueID{}},
		aliases:       map[ValueID]map[string]ValueID{},
		helpers:       map[string]ValueID{},
		refs:          map[ValueID]int{},
		slotUses:      map[ValueID]int{},
		dependsOn:     map[ValueID][]ValueID{},
		dependedBy:    map[ValueID][]ValueID{},
		unguardedMemo: map[ValueID]varSet{},
		names:         map[string]int{},
		taken:         map[string]bool{FixName: true},
	}
}

// Target is the version being lowered for.
func (l *Lowering) Target() uplc.Version { return l.target }

// UsesFix reports whether the output references the fixed-point combinator.
func (l *Lowering) UsesFix() bool { return l.usesFix }

func (l *Lowering) pushScope() {
	l.scope = &scopeFrame{names: map[string]ValueID{}, next: l.scope}
}

func (l *Lowering) popScope() {
	if l.scope.next != nil {
		l.scope = l.scope.next
	}
}

func (l *Lowering) define(name string, id ValueID) { l.scope.names[name] = id }

// defineGlobal registers a name in the outermost frame.
func (l *Lowering) defineGlobal(name string, id ValueID) {
	f := l.scope
	for f.next != nil {
		f = f.next
	}
	f.names[name] = id
}

func (l *Lowering) lookup(name string) (ValueID, bool) {
	for f := l.scope; f != nil; f = f.next {
		if id, ok := f.names[name]; ok {
			return id, true
		}
	}
	return NoValueID, false
}

// freshName returns a sanitised name unique within this run.
func (l *Lowering) freshName(base string) string {
	base = uplc.SanitizeName(base)
	for {
		n := l.names[base]
		l.names[base] = n + 1
		cand := base
		if n > 0 {
			cand = base + "_" + strconv.Itoa(n)
		}
		if !l.taken[cand] {
			l.taken[cand] = true
			return cand
		}
	}
}

func (l *Lowering) tracePoint(name, detail string) {
	if !l.debug {
		return
	}
	trace.Point(l.tracer, trace.ScopeNode, l.span, name, detail)
}
