package sir

import "fmt"

// Well-known declarations the lowering recognises by name.
const (
	ListDecl   = "List"
	ConsConstr = "Cons"
	NilConstr  = "Nil"
	TupleDecl  = "Tuple2"
	OptionDecl = "Option"
	SomeConstr = "Some"
	NoneConstr = "None"
)

// DataDecl declares a user sum type; a product is a declaration with a
// single constructor.
type DataDecl struct {
	Name       string       `msgpack:"name"`
	TypeParams []*Type      `msgpack:"tparams,omitempty"`
	Constrs    []ConstrDecl `msgpack:"constrs"`
}

// ConstrDecl is one constructor of a DataDecl.
type ConstrDecl struct {
	Name   string  `msgpack:"name"`
	Params []Param `msgpack:"params,omitempty"`
}

// Param is a named, typed constructor field.
type Param struct {
	Name string `msgpack:"name"`
	Type *Type  `msgpack:"type"`
}

// Constr looks a constructor up by name, returning its tag.
func (d *DataDecl) Constr(name string) (int, *ConstrDecl, bool) {
	for i := range d.Constrs {
		if d.Constrs[i].Name == name {
			return i, &d.Constrs[i], true
		}
	}
	return -1, nil, false
}

// SumType is the declaration instantiated at args.
func (d *DataDecl) SumType(args ...*Type) *Type { return Sum(d.Name, args...) }

// ConstrType is constructor c of the declaration instantiated at args.
func (d *DataDecl) ConstrType(c string, args ...*Type) *Type { return CaseClass(d.Name, c, args...) }

// IsProduct reports whether d has exactly one constructor.
func (d *DataDecl) IsProduct() bool { return len(d.Constrs) == 1 }

// FieldTypes instantiates the field types of constructor c at args.
func (d *DataDecl) FieldTypes(c *ConstrDecl, args []*Type) []*Type {
	s := d.bind(args)
	out := make([]*Type, len(c.Params))
	for i, p := range c.Params {
		out[i] = s.Apply(p.Type)
	}
	return out
}

// FieldIndex finds a field of constructor c by name.
func (c *ConstrDecl) FieldIndex(name string) (int, bool) {
	for i, p := range c.Params {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (d *DataDecl) bind(args []*Type) Subst {
	s := Subst{}
	for i, p := range d.TypeParams {
		if i < len(args) {
			s[p.VarID] = args[i]
		}
	}
	return s
}

// Decls is a declaration table keyed by name.
type Decls map[string]*DataDecl

// Add registers d, failing on a conflicting redeclaration.
func (ds Decls) Add(d *DataDecl) error {
	if prev, ok := ds[d.Name]; ok && prev != d {
		return fmt.Errorf("data declaration %s declared twice", d.Name)
	}
	ds[d.Name] = d
	return nil
}

// Reserved type-variable ids used by the prelude declarations.
const (
	preludeVarA uint32 = 0xFFFF0001 + iota
	preludeVarB
)

// Prelude returns fresh copies of the well-known declarations:
// List[A] = Cons(head: A, tail: List[A]) | Nil, Tuple2[A, B] and Option[A].
func Prelude() Decls {
	a := Var("A", preludeVarA, false)
	b := Var("B", preludeVarB, false)
	return Decls{
		ListDecl: {
			Name:       ListDecl,
			TypeParams: []*Type{a},
			Constrs: []ConstrDecl{
				{Name: ConsConstr, Params: []Param{{"head", a}, {"tail", Sum(ListDecl, a)}}},
				{Name: NilConstr},
			},
		},
		TupleDecl: {
			Name:       TupleDecl,
			TypeParams: []*Type{a, b},
			Constrs:    []ConstrDecl{{Name: TupleDecl, Params: []Param{{"_1", a}, {"_2", b}}}},
		},
		OptionDecl: {
			Name:       OptionDecl,
			TypeParams: []*Type{a},
			Constrs: []ConstrDecl{
				{Name: SomeConstr, Params: []Param{{"value", a}}},
				{Name: NoneConstr},
			},
		},
	}
}

// ListOf is List[elem].
func ListOf(elem *Type) *Type { return Sum(ListDecl, elem) }

// TupleOf is Tuple2[a, b].
func TupleOf(a, b *Type) *Type { return CaseClass(TupleDecl, TupleDecl, a, b) }
