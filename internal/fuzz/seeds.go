package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"sirc/internal/sir"
	"sirc/internal/uplc"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса
)

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addModuleSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все *.sir файлы
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".sir" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

// seedModules covers each expression form at least once so mutations start
// from well-formed units.
func seedModules() []*sir.Module {
	intT := sir.Integer()
	lt := sir.ListOf(intT)
	add := func(a, b *sir.Expr) *sir.Expr { return sir.Call(sir.BuiltinRef(uplc.AddInteger), a, b) }
	list := sir.Construct(sir.ListDecl, sir.ConsConstr, lt, sir.IntLit(1),
		sir.Construct(sir.ListDecl, sir.ConsConstr, lt, sir.IntLit(2),
			sir.Construct(sir.ListDecl, sir.NilConstr, lt)))
	fnT := sir.Arrow(lt, intT)
	sum := sir.LetRec("go", fnT,
		sir.Lam("xs", lt, sir.Match(sir.Ref("xs", lt), intT,
			sir.Arm(sir.ConsConstr, []string{"h", "t"},
				add(sir.Ref("h", intT), sir.App(sir.Ref("go", fnT), sir.Ref("t", lt), intT))),
			sir.Arm(sir.NilConstr, nil, sir.IntLit(0)))),
		sir.App(sir.Ref("go", fnT), list, intT))

	return []*sir.Module{
		{Name: "lit", Root: sir.IntLit(42)},
		{Name: "let", Root: sir.Let(add(sir.Ref("x", intT), sir.IntLit(1)), sir.Bind("x", sir.IntLit(2)))},
		{Name: "if", Root: sir.If(sir.And(sir.BoolLit(true), sir.Not(sir.BoolLit(false))), sir.StringLit("y"), sir.StringLit("n"), sir.String())},
		{Name: "sum", Root: sum},
		{Name: "cast", Root: sir.Cast(sir.IntLit(3), sir.DataT())},
		{Name: "fail", Root: sir.Fail("boom", intT)},
	}
}

func addModuleSeeds(f *testing.F) {
	for _, m := range seedModules() {
		data, err := m.Marshal()
		if err != nil {
			f.Fatalf("marshal seed %s: %v", m.Name, err)
		}
		f.Add(clampSeed(data))
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
