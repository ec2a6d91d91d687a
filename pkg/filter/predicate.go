package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Operator is the comparison applied by a Condition.
type Operator int

const (
	OpEq Operator = iota
	OpIContains
	OpGte
	OpLte
	// OpAny holds when at least one of the nested conditions holds.
	OpAny
)

func (op Operator) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpIContains:
		return "icontains"
	case OpGte:
		return "gte"
	case OpLte:
		return "lte"
	case OpAny:
		return "any"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Condition compares the value at Path using Op.
type Condition struct {
	Path  string
	Op    Operator
	Value interface{}
	Any   []Condition
}

func Eq(path string, v interface{}) Condition        { return Condition{Path: path, Op: OpEq, Value: v} }
func IContains(path string, v interface{}) Condition { return Condition{Path: path, Op: OpIContains, Value: v} }
func Gte(path string, v interface{}) Condition       { return Condition{Path: path, Op: OpGte, Value: v} }
func Lte(path string, v interface{}) Condition       { return Condition{Path: path, Op: OpLte, Value: v} }

// AnyOf groups conditions of a single field that may match alternatively.
func AnyOf(conds ...Condition) Condition {
	return Condition{Op: OpAny, Any: conds}
}

// Predicate is a conjunction of conditions. The nil Predicate is empty and
// And may be called on it.
type Predicate struct {
	conditions []Condition
}

// And returns p extended with c.
func (p *Predicate) And(c Condition) *Predicate {
	if p == nil {
		p = &Predicate{}
	}
	p.conditions = append(p.conditions, c)
	return p
}

func (p *Predicate) Len() int {
	if p == nil {
		return 0
	}
	return len(p.conditions)
}

// Conditions returns a copy of the conjoined conditions.
func (p *Predicate) Conditions() []Condition {
	if p == nil {
		return nil
	}
	out := make([]Condition, len(p.conditions))
	copy(out, p.conditions)
	return out
}

// Paths lists every physical path referenced by the predicate.
func (p *Predicate) Paths() []string {
	var paths []string
	var walk func([]Condition)
	walk = func(conds []Condition) {
		for _, c := range conds {
			if c.Op == OpAny {
				walk(c.Any)
				continue
			}
			paths = append(paths, c.Path)
		}
	}
	if p != nil {
		walk(p.conditions)
	}
	return paths
}

// Build composes a predicate from validated values. Each field resolves its
// physical path through remap; exact forces equality for every field that
// has no custom extraction. Build returns nil when there is nothing to filter.
func Build(values Values, remap RemapTable, exact bool) *Predicate {
	if len(values) == 0 {
		return nil
	}

	var p *Predicate
	for _, v := range values {
		path := remap.Resolve(v.Field.TargetName())
		if v.Field.Extract != nil {
			p = v.Field.Extract(p, path, v.Value)
			continue
		}
		p = p.And(Condition{Path: path, Op: v.Field.lookup(exact), Value: v.Value})
	}

	if p.Len() == 0 {
		return nil
	}
	return p
}

// Getter resolves a physical path on a record.
type Getter func(path string) (interface{}, bool)

// Match evaluates the predicate against a single in-memory record.
// A nil predicate matches everything.
func (p *Predicate) Match(get Getter) bool {
	if p == nil {
		return true
	}
	for _, c := range p.conditions {
		if !c.match(get) {
			return false
		}
	}
	return true
}

func (c Condition) match(get Getter) bool {
	if c.Op == OpAny {
		for _, sub := range c.Any {
			if sub.match(get) {
				return true
			}
		}
		return false
	}

	actual, ok := get(c.Path)
	if !ok || actual == nil {
		return false
	}

	switch c.Op {
	case OpIContains:
		return strings.Contains(strings.ToLower(fmt.Sprint(actual)), strings.ToLower(fmt.Sprint(c.Value)))
	case OpEq:
		cmp, ok := compare(actual, c.Value)
		return ok && cmp == 0
	case OpGte:
		cmp, ok := compare(actual, c.Value)
		return ok && cmp >= 0
	case OpLte:
		cmp, ok := compare(actual, c.Value)
		return ok && cmp <= 0
	}
	return false
}

func compare(a, b interface{}) (int, bool) {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}

	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}

	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if ab == bb {
			return 0, true
		}
		return 1, true
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
