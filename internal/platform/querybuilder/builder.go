package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Cond is one WHERE fragment. Fragments carry `?` markers; ToSQL numbers
// every marker into pq-style $1..$n placeholders in a single pass, so
// conditions compose without threading an argument index around.
type Cond struct {
	frag string
	args []any
}

func Eq(column string, value any) Cond {
	return Cond{frag: column + " = ?", args: []any{value}}
}

func IsNull(column string) Cond {
	return Cond{frag: column + " IS NULL"}
}

// In matches any of values. An empty list renders FALSE so the statement
// stays valid and matches nothing.
func In(column string, values []any) Cond {
	if len(values) == 0 {
		return Cond{frag: "FALSE"}
	}
	marks := strings.Repeat("?, ", len(values))
	return Cond{frag: column + " IN (" + marks[:len(marks)-2] + ")", args: values}
}

type SelectBuilder struct {
	cols  []string
	table string
	conds []Cond
	order []string
	limit int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{cols: columns}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conds ...Cond) *SelectBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *SelectBuilder) OrderBy(columns ...string) *SelectBuilder {
	b.order = append(b.order, columns...)
	return b
}

func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = n
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.cols) == 0 {
		return "", nil, fmt.Errorf("select: no columns")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select: no table")
	}

	var q strings.Builder
	q.WriteString("SELECT ")
	q.WriteString(strings.Join(b.cols, ", "))
	q.WriteString(" FROM ")
	q.WriteString(b.table)
	args := writeWhere(&q, b.conds)
	if len(b.order) > 0 {
		q.WriteString(" ORDER BY ")
		q.WriteString(strings.Join(b.order, ", "))
	}
	if b.limit > 0 {
		q.WriteString(" LIMIT ")
		q.WriteString(strconv.Itoa(b.limit))
	}

	return number(q.String()), args, nil
}

type UpdateBuilder struct {
	table string
	sets  []Cond
	conds []Cond
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, Cond{frag: column + " = ?", args: []any{value}})
	return b
}

// SetExpr assigns a raw SQL expression, e.g. SetExpr("updated_at", "NOW()").
// The expression may carry `?` markers matched by args in order.
func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, Cond{frag: column + " = " + expr, args: args})
	return b
}

func (b *UpdateBuilder) Where(conds ...Cond) *UpdateBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update: no table")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update %s: no SET clauses", b.table)
	}

	var q strings.Builder
	q.WriteString("UPDATE ")
	q.WriteString(b.table)
	q.WriteString(" SET ")
	args := make([]any, 0, len(b.sets)+len(b.conds))
	for i, s := range b.sets {
		if i > 0 {
			q.WriteString(", ")
		}
		q.WriteString(s.frag)
		args = append(args, s.args...)
	}
	args = append(args, writeWhere(&q, b.conds)...)

	return number(q.String()), args, nil
}

func writeWhere(q *strings.Builder, conds []Cond) []any {
	var args []any
	for i, c := range conds {
		if i == 0 {
			q.WriteString(" WHERE ")
		} else {
			q.WriteString(" AND ")
		}
		q.WriteString(c.frag)
		args = append(args, c.args...)
	}
	return args
}

// number rewrites each ? marker into $1..$n. Markers only ever come from
// this package's own fragments, never from quoted SQL text, so a plain byte
// scan is enough.
func number(sql string) string {
	if !strings.ContainsRune(sql, '?') {
		return sql
	}
	var out strings.Builder
	out.Grow(len(sql) + 8)
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] != '?' {
			out.WriteByte(sql[i])
			continue
		}
		n++
		out.WriteByte('$')
		out.WriteString(strconv.Itoa(n))
	}
	return out.String()
}
