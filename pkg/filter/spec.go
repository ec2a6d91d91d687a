// Package filter turns prefixed query-string parameters into validated,
// typed filter values and composes them into a storage-agnostic predicate.
//
// A resource declares its filterable fields once, at startup, through a Spec:
//
//	spec := filter.NewSpec().
//		Text("customer").
//		Range("amount", filter.TypeNumber).
//		Exact("deleted", filter.TypeBool)
//
// Spec values are read-only after construction and safe for concurrent use.
package filter

import (
	"fmt"
)

// FieldType is the declared type of a filter field. It drives both value
// coercion and lookup selection.
type FieldType int

const (
	TypeText FieldType = iota
	TypeNumber
	TypeInteger
	TypeDate
	TypeBool
	TypeExact
)

func (t FieldType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeNumber:
		return "number"
	case TypeInteger:
		return "integer"
	case TypeDate:
		return "date"
	case TypeBool:
		return "bool"
	default:
		return "exact"
	}
}

// Bound marks a field as one side of a range.
type Bound int

const (
	BoundNone Bound = iota
	BoundLower
	BoundUpper
)

// Range field suffixes, applied when the spec is declared.
const (
	SuffixMin = "_min"
	SuffixMax = "_max"
)

// ExtractFunc replaces the default lookup for a field. It receives the
// predicate built so far, the physical path of the field and the coerced
// value, and returns the updated predicate.
type ExtractFunc func(p *Predicate, path string, value interface{}) *Predicate

// Field is a single declared filter field.
type Field struct {
	// Name is the logical name as it appears in the query string, without prefix.
	Name string
	Type FieldType
	// Bound turns the field into a lower (>=) or upper (<=) range bound.
	Bound Bound
	// Target is the logical name the predicate is built against. Defaults to Name.
	Target  string
	Extract ExtractFunc
}

// TargetName returns the logical name used for path resolution.
func (f Field) TargetName() string {
	if f.Target != "" {
		return f.Target
	}
	return f.Name
}

func (f Field) lookup(exact bool) Operator {
	if exact {
		return OpEq
	}
	switch {
	case f.Bound == BoundLower:
		return OpGte
	case f.Bound == BoundUpper:
		return OpLte
	case f.Type == TypeText:
		return OpIContains
	}
	return OpEq
}

// Spec is the ordered set of filter fields accepted by a resource.
type Spec struct {
	fields []Field
	index  map[string]int
}

func NewSpec() *Spec {
	return &Spec{index: make(map[string]int)}
}

// Add registers f. Declaring the same name twice is a programming error and panics.
func (s *Spec) Add(f Field) *Spec {
	if f.Name == "" {
		panic("filter: field name is required")
	}
	if _, dup := s.index[f.Name]; dup {
		panic(fmt.Sprintf("filter: field %q declared twice", f.Name))
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
	return s
}

// Text declares a case-insensitive substring field.
func (s *Spec) Text(name string) *Spec {
	return s.Add(Field{Name: name, Type: TypeText})
}

// Exact declares an equality field of type t.
func (s *Spec) Exact(name string, t FieldType) *Spec {
	return s.Add(Field{Name: name, Type: t})
}

// Range declares the name_min / name_max pair, both targeting name.
func (s *Spec) Range(name string, t FieldType) *Spec {
	s.Add(Field{Name: name + SuffixMin, Type: t, Bound: BoundLower, Target: name})
	return s.Add(Field{Name: name + SuffixMax, Type: t, Bound: BoundUpper, Target: name})
}

// Custom declares a field whose predicate is produced by fn.
func (s *Spec) Custom(name string, t FieldType, fn ExtractFunc) *Spec {
	return s.Add(Field{Name: name, Type: t, Extract: fn})
}

// Field looks up a declared field by its logical name.
func (s *Spec) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns the declared fields in declaration order.
func (s *Spec) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// RemapTable translates logical names to physical storage paths. Dotted
// paths (user.first_name) traverse one relation.
type RemapTable map[string]string

// Resolve returns the physical path for name, or name itself when unmapped.
func (r RemapTable) Resolve(name string) string {
	if path, ok := r[name]; ok {
		return path
	}
	return name
}
