package sir

import (
	"bufio"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Module is one compilation unit: its data declarations and the root
// expression to lower.
type Module struct {
	Name  string      `msgpack:"name"`
	Decls []*DataDecl `msgpack:"decls,omitempty"`
	Root  *Expr       `msgpack:"root"`
}

// DeclTable returns the user declarations keyed by name.
func (m *Module) DeclTable() (Decls, error) {
	ds := Decls{}
	for _, d := range m.Decls {
		if err := ds.Add(d); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Checker builds the reference type system for m.
func (m *Module) Checker() (*Checker, error) {
	ds, err := m.DeclTable()
	if err != nil {
		return nil, err
	}
	return NewChecker(ds), nil
}

// Encode writes m in the msgpack interchange format.
func (m *Module) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := msgpack.NewEncoder(bw).Encode(m); err != nil {
		return fmt.Errorf("encode module %s: %w", m.Name, err)
	}
	return bw.Flush()
}

// DecodeModule reads a module written by Encode.
func DecodeModule(r io.Reader) (*Module, error) {
	var m Module
	if err := msgpack.NewDecoder(bufio.NewReader(r)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	if m.Root == nil {
		return nil, fmt.Errorf("decode module %s: missing root expression", m.Name)
	}
	return &m, nil
}

// Marshal encodes m into a byte slice.
func (m *Module) Marshal() ([]byte, error) {
	return msgpack.Marshal(m)
}
