package fuzztests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"sirc/internal/driver"
	"sirc/internal/sir"
	"sirc/internal/uplc"
)

const maxFuzzInput = 1 << 16 // 64 KiB

// lowerTimeout is the maximum time allowed for one unit. Exceeding it
// points at a conversion search or rewrite that does not terminate.
const lowerTimeout = 5 * time.Second

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

func FuzzDecodeModule(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		m, err := sir.DecodeModule(bytes.NewReader(clampInput(input)))
		if err != nil {
			return
		}
		if m.Root == nil {
			t.Fatal("decoded module without root")
		}
		// A decoded module must survive a re-encode.
		if _, err := m.Marshal(); err != nil {
			t.Fatalf("re-encode: %v", err)
		}
	})
}

func FuzzLowerUnit(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		ctx, cancel := context.WithTimeout(context.Background(), lowerTimeout)
		defer cancel()

		done := make(chan *driver.UnitResult, 1)
		go func() {
			res, err := driver.LowerBytes(ctx, "fuzz.sir", input, driver.Options{Target: uplc.V4, MaxDiagnostics: 32})
			if err != nil {
				done <- nil
				return
			}
			done <- res
		}()

		select {
		case res := <-done:
			if res != nil && res.OK() && res.Program == nil {
				t.Fatal("successful unit without program")
			}
		case <-ctx.Done():
			t.Fatalf("lowering hung on input of %d bytes", len(input))
		}
	})
}

func TestSeedModulesLower(t *testing.T) {
	for _, m := range seedModules() {
		data, err := m.Marshal()
		if err != nil {
			t.Fatalf("marshal %s: %v", m.Name, err)
		}
		res, err := driver.LowerBytes(context.Background(), m.Name+".sir", data, driver.Options{})
		if err != nil {
			t.Fatalf("%s: %v", m.Name, err)
		}
		if !res.OK() {
			t.Fatalf("%s failed: %v", m.Name, res.Bag.Items())
		}
	}
}
