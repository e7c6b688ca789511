package table

import (
	"fmt"

	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/expr"
	"github.com/prepd/prepd/internal/series"
)

// Melt unpivots valueVars into long form: one block of rows per value
// variable, each block carrying the id columns, the variable's name
// under varName and its values under valueName. An empty valueVars
// takes every non-id column. Value columns must share a kind, with int
// widening to float.
func (t *Table) Melt(idVars, valueVars []string, varName, valueName string) (*Table, error) {
	var errs []error
	for _, name := range idVars {
		if !t.HasColumn(name) {
			errs = append(errs, errors.NewColumnNotFoundError("Melt", name))
		}
		if name == varName || name == valueName {
			errs = append(errs, errors.NewNameConflictError("Melt", name, "id column collides with output column"))
		}
	}
	if len(valueVars) == 0 {
		isID := make(map[string]bool, len(idVars))
		for _, name := range idVars {
			isID[name] = true
		}
		for _, name := range t.ColumnNames() {
			if !isID[name] {
				valueVars = append(valueVars, name)
			}
		}
	}
	for _, name := range valueVars {
		if !t.HasColumn(name) {
			errs = append(errs, errors.NewColumnNotFoundError("Melt", name))
		}
	}
	if err := errors.Collect("Melt", errs...); err != nil {
		return nil, err
	}
	if len(valueVars) == 0 {
		return nil, errors.NewSchemaError("Melt", valueName, "no value columns to melt")
	}

	values, err := t.keyData("Melt", valueVars)
	if err != nil {
		return nil, err
	}
	kind := values[0].kind
	for _, v := range values[1:] {
		if v.kind == kind {
			continue
		}
		numeric := (v.kind == colInt || v.kind == colFloat) && (kind == colInt || kind == colFloat)
		if !numeric {
			return nil, errors.NewTypeMismatchError("Melt", valueName,
				fmt.Sprintf("value columns mix %s and %s", kind, v.kind))
		}
		kind = colFloat
	}

	n := t.NumRows()
	total := n * len(valueVars)

	idRows := make([]int, total)
	variable := newColData(colString, total)
	value := newColData(kind, total)
	out := 0
	for vi, name := range valueVars {
		for row := 0; row < n; row++ {
			idRows[out] = row
			variable.strs[out] = name
			variable.valid[out] = true
			value.set(out, values[vi], row)
			out++
		}
	}

	columns := make([]*series.Column, 0, len(idVars)+2)
	releaseAll := func() {
		for _, col := range columns {
			col.Release()
		}
	}
	for _, name := range idVars {
		col, _ := t.Column(name)
		arr := col.Array()
		gathered, err := gather(arr, idRows, t.mem)
		arr.Release()
		if err != nil {
			releaseAll()
			return nil, err
		}
		columns = append(columns, series.FromArrow(name, gathered))
	}
	columns = append(columns,
		series.FromArrow(varName, variable.toArrow(t.mem)),
		series.FromArrow(valueName, value.toArrow(t.mem)))
	return New(t.mem, columns...)
}

// Pivot spreads the values column across one output column per
// distinct label of the columns column, grouped by the index columns.
// Labels appear in first-appearance order; empty cells are null. When
// a cell holds more than one row the call fails with a pivot collision
// unless an aggregation resolves it.
func (t *Table) Pivot(index []string, columns, values string, agg ...expr.AggregationType) (*Table, error) {
	if len(agg) > 1 {
		return nil, errors.NewSchemaError("Pivot", columns, "at most one aggregation")
	}
	var errs []error
	for _, name := range append(append([]string{}, index...), columns, values) {
		if !t.HasColumn(name) {
			errs = append(errs, errors.NewColumnNotFoundError("Pivot", name))
		}
	}
	if err := errors.Collect("Pivot", errs...); err != nil {
		return nil, err
	}

	indexData, err := t.keyData("Pivot", index)
	if err != nil {
		return nil, err
	}
	labelData, err := t.keyData("Pivot", []string{columns})
	if err != nil {
		return nil, err
	}
	valueData, err := t.keyData("Pivot", []string{values})
	if err != nil {
		return nil, err
	}
	labels, value := labelData[0], valueData[0]

	grp := newGrouper(indexData)
	labelIndex := make(map[string]int)
	var labelNames []string
	cells := make(map[[2]int][]int)
	for row := 0; row < t.NumRows(); row++ {
		gid := grp.add(row)
		name := "null"
		if labels.valid[row] {
			name = labels.stringAt(row)
		}
		li, ok := labelIndex[name]
		if !ok {
			li = len(labelNames)
			labelIndex[name] = li
			labelNames = append(labelNames, name)
		}
		key := [2]int{gid, li}
		cells[key] = append(cells[key], row)
		if len(agg) == 0 && len(cells[key]) > 1 {
			return nil, errors.NewPivotCollisionError("Pivot", name,
				fmt.Sprintf("%d rows pivot into one cell; pass an aggregation to resolve", len(cells[key])))
		}
	}

	taken := make(map[string]bool, len(index))
	for _, name := range index {
		taken[name] = true
	}
	for _, name := range labelNames {
		if taken[name] {
			return nil, errors.NewNameConflictError("Pivot", name, "label collides with an index column")
		}
	}

	outKind := value.kind
	if len(agg) == 1 {
		switch agg[0] {
		case expr.AggCount:
			outKind = colInt
		case expr.AggMean, expr.AggMedian:
			if value.kind != colInt && value.kind != colFloat {
				return nil, errors.NewTypeMismatchError("Pivot", values,
					fmt.Sprintf("%s cannot aggregate a %s column", agg[0], value.kind))
			}
			outKind = colFloat
		default:
			if value.kind == colBool {
				return nil, errors.NewTypeMismatchError("Pivot", values,
					fmt.Sprintf("%s cannot aggregate a %s column", agg[0], value.kind))
			}
		}
	}

	cols := make([]*series.Column, 0, len(index)+len(labelNames))
	releaseAll := func() {
		for _, col := range cols {
			col.Release()
		}
	}
	for i, name := range index {
		out := newColData(indexData[i].kind, len(grp.groups))
		for gid, rep := range grp.reps {
			out.set(gid, indexData[i], rep)
		}
		cols = append(cols, series.FromArrow(name, out.toArrow(t.mem)))
	}

	for li, name := range labelNames {
		out := newColData(outKind, len(grp.groups))
		for gid := range grp.groups {
			rows := cells[[2]int{gid, li}]
			if len(rows) == 0 {
				continue
			}
			if len(agg) == 0 {
				out.set(gid, value, rows[0])
				continue
			}
			if err := pivotAggregate(agg[0], value, rows, out, gid); err != nil {
				releaseAll()
				return nil, err
			}
		}
		cols = append(cols, series.FromArrow(name, out.toArrow(t.mem)))
	}
	return New(t.mem, cols...)
}

func pivotAggregate(agg expr.AggregationType, value *colData, rows []int, out *colData, gid int) error {
	switch out.kind {
	case colInt:
		if agg == expr.AggCount {
			out.ints[gid] = expr.CountValid(value.valid, rows)
			out.valid[gid] = true
			return nil
		}
		if v, ok := expr.AggregateInts(agg, value.ints, value.valid, rows); ok {
			out.ints[gid] = v
			out.valid[gid] = true
		}
		return nil
	case colString:
		if agg != expr.AggMin && agg != expr.AggMax && agg != expr.AggFirst {
			return errors.NewTypeMismatchError("Pivot", "",
				fmt.Sprintf("%s cannot aggregate a string column", agg))
		}
		if v, ok := expr.AggregateStrings(agg, value.strs, value.valid, rows); ok {
			out.strs[gid] = v
			out.valid[gid] = true
		}
		return nil
	case colFloat:
		floats := value.floats
		if value.kind == colInt {
			floats = make([]float64, len(value.ints))
			for i, v := range value.ints {
				floats[i] = float64(v)
			}
		}
		if v, ok := expr.AggregateFloats(agg, floats, value.valid, rows); ok {
			out.floats[gid] = v
			out.valid[gid] = true
		}
		return nil
	default:
		return errors.NewTypeMismatchError("Pivot", "",
			fmt.Sprintf("%s cannot aggregate a %s column", agg, value.kind))
	}
}
