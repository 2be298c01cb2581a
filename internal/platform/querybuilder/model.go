package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// InsertModel renders INSERT INTO table (cols...) VALUES ($1..$n) from the
// model's db struct tags, in field order. suffix (an ON CONFLICT or
// RETURNING clause) is appended verbatim and must not contain markers.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, fmt.Errorf("insert: no table")
	}

	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}

	var q strings.Builder
	q.WriteString("INSERT INTO ")
	q.WriteString(table)
	q.WriteString(" (")
	q.WriteString(strings.Join(cols, ", "))
	q.WriteString(") VALUES (")
	for i := range vals {
		if i > 0 {
			q.WriteString(", ")
		}
		q.WriteByte('?')
	}
	q.WriteByte(')')

	sql := number(q.String())
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		sql += " " + suffix
	}

	return sql, vals, nil
}

func modelColumns(model any) ([]string, []any, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil, fmt.Errorf("insert model is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("insert model must be a struct, got %T", model)
	}

	t := v.Type()
	cols := make([]string, 0, t.NumField())
	vals := make([]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		col, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, v.Field(i).Interface())
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("insert model has no db-tagged fields")
	}

	return cols, vals, nil
}
