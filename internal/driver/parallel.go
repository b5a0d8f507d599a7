package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"sirc/internal/observ"
	"sirc/internal/trace"
)

// UnitExt is the file extension of msgpack-encoded SIR units.
const UnitExt = ".sir"

// ListUnits returns the sorted *.sir files under dir.
func ListUnits(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, UnitExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// детерминированный порядок
	sort.Strings(files)
	return files, nil
}

// ExpandArgs turns CLI arguments into unit paths: directories are scanned for
// units, files are taken as they are.
func ExpandArgs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		units, err := ListUnits(arg)
		if err != nil {
			return nil, err
		}
		if len(units) == 0 {
			return nil, fmt.Errorf("%s: no %s units", arg, UnitExt)
		}
		out = append(out, units...)
	}
	return out, nil
}

// BatchResult collects the per-unit results in input order.
type BatchResult struct {
	Units  []*UnitResult
	Timing observ.Report
}

// Failed counts units that produced no program.
func (b *BatchResult) Failed() int {
	n := 0
	for _, u := range b.Units {
		if !u.OK() {
			n++
		}
	}
	return n
}

// LowerAll lowers every unit in parallel. Each unit gets its own lowering
// context; nothing is shared between them except the disk cache.
func LowerAll(ctx context.Context, paths []string, opts Options) (*BatchResult, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "lower-all")
	span.WithExtra("units", fmt.Sprint(len(paths)))
	defer span.End("")

	out := &BatchResult{Units: make([]*UnitResult, len(paths))}
	if len(paths) == 0 {
		return out, nil
	}
	for _, p := range paths {
		emit(opts.Progress, Event{File: p, Stage: StageRead, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			res, err := LowerFile(gctx, path, opts)
			if err != nil {
				return err
			}
			out.Units[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, u := range out.Units {
		out.Timing.Merge(u.Timing)
	}
	return out, nil
}
