package table

import (
	"fmt"

	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/series"
)

// Concat stacks tables with identical schemas: same column names in
// the same order. Matching columns may mix int and float, widening to
// float; any other kind mismatch is a schema error.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.NewSchemaError("Concat", "", "no tables to concatenate")
	}
	first := tables[0].ColumnNames()
	var errs []error
	for ti, t := range tables[1:] {
		names := t.ColumnNames()
		if len(names) != len(first) {
			errs = append(errs, errors.NewSchemaError("Concat", "",
				fmt.Sprintf("table %d has %d columns, expected %d", ti+1, len(names), len(first))))
			continue
		}
		for i, name := range names {
			if name != first[i] {
				errs = append(errs, errors.NewSchemaError("Concat", name,
					fmt.Sprintf("table %d column %d is %q, expected %q", ti+1, i, name, first[i])))
			}
		}
	}
	if err := errors.Collect("Concat", errs...); err != nil {
		return nil, err
	}
	return stack("Concat", tables, first)
}

// DiagonalConcat stacks tables over the union of their columns in
// first-appearance order, null-filling where a table lacks a column.
func DiagonalConcat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.NewSchemaError("DiagonalConcat", "", "no tables to concatenate")
	}
	seen := make(map[string]bool)
	var names []string
	for _, t := range tables {
		for _, name := range t.ColumnNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return stack("DiagonalConcat", tables, names)
}

// stack builds the concatenated table over the given output columns.
func stack(op string, tables []*Table, names []string) (*Table, error) {
	total := 0
	for _, t := range tables {
		total += t.NumRows()
	}

	// decode each table's slice of every output column, nil where absent
	parts := make([][]*colData, len(names))
	kinds := make([]colKind, len(names))
	for ci, name := range names {
		parts[ci] = make([]*colData, len(tables))
		kindSet := false
		for ti, t := range tables {
			col, ok := t.Column(name)
			if !ok {
				continue
			}
			arr := col.Array()
			data, err := dataOf(arr)
			arr.Release()
			if err != nil {
				return nil, err
			}
			parts[ci][ti] = data
			if !kindSet {
				kinds[ci] = data.kind
				kindSet = true
				continue
			}
			if data.kind == kinds[ci] {
				continue
			}
			numeric := (data.kind == colInt || data.kind == colFloat) &&
				(kinds[ci] == colInt || kinds[ci] == colFloat)
			if !numeric {
				return nil, errors.NewSchemaError(op, name,
					fmt.Sprintf("column mixes %s and %s", kinds[ci], data.kind))
			}
			kinds[ci] = colFloat
		}
	}

	mem := tables[0].mem
	columns := make([]*series.Column, len(names))
	for ci, name := range names {
		out := newColData(kinds[ci], total)
		offset := 0
		for ti, t := range tables {
			part := parts[ci][ti]
			if part != nil {
				for i := 0; i < t.NumRows(); i++ {
					out.set(offset+i, part, i)
				}
			}
			offset += t.NumRows()
		}
		columns[ci] = series.FromArrow(name, out.toArrow(mem))
	}
	return New(mem, columns...)
}
