package postgres

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/orders-api/pkg/filter"
	"github.com/jwalitptl/orders-api/pkg/pagination"
)

// column is a physical column a logical path resolves to.
type column struct {
	expr string
	text bool
}

// columnSet whitelists the paths a resource may filter and order by.
type columnSet map[string]column

// likeEscaper escapes LIKE wildcards with the default backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereBuilder renders predicates as positional-parameter SQL.
type whereBuilder struct {
	cols columnSet
	args []interface{}
}

func (b *whereBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	placeholder := fmt.Sprintf("$%d", len(b.args))
	if _, ok := v.(float64); ok {
		placeholder += "::numeric"
	}
	return placeholder
}

// where returns " WHERE ..." or "" for an empty predicate.
func (b *whereBuilder) where(p *filter.Predicate) (string, error) {
	conds := p.Conditions()
	if len(conds) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		sql, err := b.condition(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func (b *whereBuilder) condition(c filter.Condition) (string, error) {
	if c.Op == filter.OpAny {
		if len(c.Any) == 0 {
			return "FALSE", nil
		}
		parts := make([]string, 0, len(c.Any))
		for _, sub := range c.Any {
			sql, err := b.condition(sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}

	col, ok := b.cols[c.Path]
	if !ok {
		return "", fmt.Errorf("unknown filter path %q", c.Path)
	}

	switch c.Op {
	case filter.OpEq:
		return fmt.Sprintf("%s = %s", col.expr, b.bind(c.Value)), nil
	case filter.OpGte:
		return fmt.Sprintf("%s >= %s", col.expr, b.bind(c.Value)), nil
	case filter.OpLte:
		return fmt.Sprintf("%s <= %s", col.expr, b.bind(c.Value)), nil
	case filter.OpIContains:
		expr := col.expr
		if !col.text {
			expr += "::text"
		}
		value := likeEscaper.Replace(fmt.Sprint(c.Value))
		return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", expr, b.bind(value)), nil
	}
	return "", fmt.Errorf("unsupported operator %s", c.Op)
}

// orderBy renders " ORDER BY ..." or "" when no terms are given.
func (cs columnSet) orderBy(terms []pagination.OrderTerm) (string, error) {
	if len(terms) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		col, ok := cs[t.Column]
		if !ok {
			return "", fmt.Errorf("unknown order path %q", t.Column)
		}
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		parts = append(parts, col.expr+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// window renders LIMIT/OFFSET for a page, binding both values.
func (b *whereBuilder) window(limit, offset int) string {
	var sql string
	if limit > 0 {
		sql += " LIMIT " + b.bind(limit)
	}
	if offset > 0 {
		sql += " OFFSET " + b.bind(offset)
	}
	return sql
}
