package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"sirc/internal/diag"
	"sirc/internal/lowering"
	"sirc/internal/observ"
	"sirc/internal/sir"
	"sirc/internal/source"
	"sirc/internal/trace"
	"sirc/internal/uplc"
)

// Options configures lowering of one or more SIR units.
type Options struct {
	Target uplc.Version
	Debug  bool
	// NoLink keeps the program open over the fixed-point variable.
	NoLink         bool
	Jobs           int
	MaxDiagnostics int
	// Cache is optional; nil disables caching.
	Cache         *DiskCache
	Progress      ProgressSink
	PhaseObserver PhaseObserver
}

func (o Options) target() uplc.Version {
	if o.Target == uplc.VersionUnknown {
		return uplc.DefaultVersion
	}
	return o.Target
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return 100
	}
	return o.MaxDiagnostics
}

// UnitResult is the outcome for one unit. Program is nil when the unit had
// errors; Bag holds every diagnostic either way.
type UnitResult struct {
	Path    string
	Module  string
	Program *uplc.Program
	UsesFix bool
	Stats   lowering.Stats
	Bag     *diag.Bag
	Files   *source.FileSet
	Timing  observ.Report
	Cached  bool
}

// OK reports whether the unit produced a program.
func (r *UnitResult) OK() bool {
	return r != nil && r.Program != nil && !r.Bag.HasErrors()
}

type unitRun struct {
	path  string
	opts  Options
	bag   *diag.Bag
	rep   diag.Reporter
	timer *observ.Timer
	res   *UnitResult
}

func (u *unitRun) phase(name string, fn func() error) error {
	idx := u.timer.Begin(name)
	if u.opts.PhaseObserver != nil {
		u.opts.PhaseObserver(PhaseEvent{File: u.path, Name: name, Status: PhaseStart})
	}
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	u.timer.End(idx, note)
	if u.opts.PhaseObserver != nil {
		u.opts.PhaseObserver(PhaseEvent{File: u.path, Name: name, Status: PhaseEnd, Elapsed: u.timer.Elapsed(idx)})
	}
	return err
}

func (u *unitRun) fail(stage Stage, code diag.Code, err error) *UnitResult {
	diag.ReportError(u.rep, code, source.Span{}, err.Error()).Emit()
	emit(u.opts.Progress, Event{File: u.path, Stage: stage, Status: StatusError, Err: err})
	return u.finish()
}

func (u *unitRun) finish() *UnitResult {
	u.bag.Sort()
	u.res.Timing = u.timer.Report()
	return u.res
}

// LowerFile reads, decodes, validates and lowers the unit at path. Problems
// with the unit itself end up in the result's Bag; the error is reserved for
// cancellation.
func LowerFile(ctx context.Context, path string, opts Options) (*UnitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	u := newUnitRun(path, opts)
	emit(opts.Progress, Event{File: path, Stage: StageRead, Status: StatusWorking})
	err := u.phase("read", func() (err error) {
		data, err = os.ReadFile(path)
		return err
	})
	if err != nil {
		return u.fail(StageRead, diag.DrvIOError, fmt.Errorf("failed to load unit: %w", err)), nil
	}
	u.res.Files.AddPath(path)
	return u.lower(ctx, data)
}

// LowerBytes lowers a unit already in memory; name labels diagnostics.
func LowerBytes(ctx context.Context, name string, data []byte, opts Options) (*UnitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := newUnitRun(name, opts)
	u.res.Files.AddPath(name)
	return u.lower(ctx, data)
}

func newUnitRun(path string, opts Options) *unitRun {
	bag := diag.NewBag(opts.maxDiagnostics())
	return &unitRun{
		path:  path,
		opts:  opts,
		bag:   bag,
		rep:   diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		timer: observ.NewTimer(),
		res:   &UnitResult{Path: path, Bag: bag, Files: source.NewFileSet()},
	}
}

func (u *unitRun) lower(ctx context.Context, data []byte) (*UnitResult, error) {
	opts := u.opts
	tracer := trace.FromContext(ctx)
	ctx, span := trace.Start(ctx, trace.ScopeUnit, "unit")
	span.WithExtra("path", u.path)
	defer span.End(u.path)

	key := CacheKey(data, opts)
	if opts.Cache != nil {
		var payload DiskPayload
		var hit bool
		err := u.phase("cache", func() (err error) {
			hit, err = opts.Cache.Get(key, &payload)
			return err
		})
		switch {
		case err != nil:
			diag.ReportWarning(u.rep, diag.DrvCacheCorrupt, source.Span{}, err.Error()).Emit()
		case hit:
			u.res.Module = payload.Module
			u.res.Program = payload.Program
			u.res.UsesFix = payload.UsesFix
			u.res.Stats = payload.Stats
			u.res.Cached = true
			for _, w := range payload.Warnings {
				u.bag.Add(w)
			}
			trace.Point(tracer, trace.ScopeUnit, span.ID(), "cache-hit", u.path)
			emit(opts.Progress, Event{File: u.path, Stage: StageCache, Status: StatusCached})
			return u.finish(), nil
		}
	}

	emit(opts.Progress, Event{File: u.path, Stage: StageDecode, Status: StatusWorking})
	var m *sir.Module
	if err := u.phase("decode", func() (err error) {
		m, err = sir.DecodeModule(bytes.NewReader(data))
		return err
	}); err != nil {
		return u.fail(StageDecode, diag.IRDecodeFailed, err), nil
	}
	u.res.Module = m.Name

	emit(opts.Progress, Event{File: u.path, Stage: StageValidate, Status: StatusWorking})
	var ts *sir.Checker
	if err := u.phase("validate", func() (err error) {
		if ts, err = m.Checker(); err != nil {
			return err
		}
		if !sir.Validate(m, ts, u.rep) {
			return errors.New("invalid SIR")
		}
		return nil
	}); err != nil {
		if ts == nil {
			return u.fail(StageValidate, diag.IRUnknownDecl, err), nil
		}
		emit(opts.Progress, Event{File: u.path, Stage: StageValidate, Status: StatusError, Err: err})
		return u.finish(), nil
	}

	emit(opts.Progress, Event{File: u.path, Stage: StageLower, Status: StatusWorking})
	start := time.Now()
	var res *lowering.Result
	if err := u.phase("lower", func() (err error) {
		res, err = lowering.Lower(ctx, m, lowering.Options{
			Target:   opts.target(),
			Types:    ts,
			Reporter: u.rep,
			Debug:    opts.Debug,
		})
		return err
	}); err != nil {
		var le *lowering.Error
		if !errors.As(err, &le) {
			return u.fail(StageLower, diag.LowInternal, err), nil
		}
		if le.Code == diag.LowInternal {
			le.Report(u.rep)
		}
		emit(opts.Progress, Event{File: u.path, Stage: StageLower, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return u.finish(), nil
	}

	term := res.Term
	if opts.NoLink {
		term = res.Unlinked
	}
	u.res.Program = &uplc.Program{Version: opts.target(), Term: term}
	u.res.UsesFix = res.UsesFix
	u.res.Stats = res.Stats
	emit(opts.Progress, Event{File: u.path, Stage: StageLower, Status: StatusDone, Elapsed: time.Since(start)})

	if opts.Cache != nil {
		payload := &DiskPayload{
			Module:   m.Name,
			Program:  u.res.Program,
			UsesFix:  res.UsesFix,
			Stats:    res.Stats,
			Warnings: append([]diag.Diagnostic(nil), u.bag.Items()...),
		}
		if err := u.phase("store", func() error { return opts.Cache.Put(key, payload) }); err != nil {
			diag.ReportWarning(u.rep, diag.DrvIOError, source.Span{}, "cache: "+err.Error()).Emit()
		}
	}
	return u.finish(), nil
}
