package table

import (
	"fmt"

	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/expr"
	"github.com/prepd/prepd/internal/series"
)

// GroupedTable is a table with a pending grouping. Agg collapses it.
type GroupedTable struct {
	table *Table
	keys  []string
}

// GroupBy starts a grouped aggregation over the given key columns.
func (t *Table) GroupBy(keys ...string) *GroupedTable {
	return &GroupedTable{table: t, keys: keys}
}

// Agg collapses each group to one row: the key columns followed by one
// column per aggregation, named by the aggregation's output name.
// Groups appear in first-appearance order.
func (g *GroupedTable) Agg(aggs ...*expr.AggregationExpr) (*Table, error) {
	t := g.table
	keyData, err := t.keyData("GroupBy", g.keys)
	if err != nil {
		return nil, err
	}

	grp := newGrouper(keyData)
	for row := 0; row < t.NumRows(); row++ {
		grp.add(row)
	}

	columns := make([]*series.Column, 0, len(g.keys)+len(aggs))
	releaseAll := func() {
		for _, col := range columns {
			col.Release()
		}
	}

	// one representative row per group carries the key values
	for i, name := range g.keys {
		out := newColData(keyData[i].kind, len(grp.groups))
		for gid, rep := range grp.reps {
			out.set(gid, keyData[i], rep)
		}
		columns = append(columns, series.FromArrow(name, out.toArrow(t.mem)))
	}

	arrays, release := t.arrays()
	defer release()
	eval := expr.NewEvaluator(t.mem)

	seen := make(map[string]bool, len(g.keys))
	for _, name := range g.keys {
		seen[name] = true
	}

	for _, agg := range aggs {
		name := agg.OutputName()
		if seen[name] {
			releaseAll()
			return nil, errors.NewNameConflictError("GroupBy", name, "duplicate output column")
		}
		seen[name] = true

		operandArr, err := eval.Evaluate(agg.Column(), arrays, t.NumRows())
		if err != nil {
			releaseAll()
			return nil, err
		}
		operand, err := dataOf(operandArr)
		operandArr.Release()
		if err != nil {
			releaseAll()
			return nil, err
		}

		out, err := aggregateGroups(agg, operand, grp.groups)
		if err != nil {
			releaseAll()
			return nil, err
		}
		columns = append(columns, series.FromArrow(name, out.toArrow(t.mem)))
	}
	return New(t.mem, columns...)
}

// aggregateGroups computes one aggregate value per group. Count is
// always int64; int columns keep int64 for sum, min, max and first;
// everything else is float64; string columns support min, max and
// first.
func aggregateGroups(agg *expr.AggregationExpr, operand *colData, groups [][]int) (*colData, error) {
	kind := agg.AggType()

	if kind == expr.AggCount {
		out := newColData(colInt, len(groups))
		for gid, rows := range groups {
			out.ints[gid] = expr.CountValid(operand.valid, rows)
			out.valid[gid] = true
		}
		return out, nil
	}

	switch operand.kind {
	case colString:
		if kind != expr.AggMin && kind != expr.AggMax && kind != expr.AggFirst {
			return nil, errors.NewTypeMismatchError("GroupBy", "",
				fmt.Sprintf("%s cannot aggregate a string column", kind))
		}
		out := newColData(colString, len(groups))
		for gid, rows := range groups {
			if value, ok := expr.AggregateStrings(kind, operand.strs, operand.valid, rows); ok {
				out.strs[gid] = value
				out.valid[gid] = true
			}
		}
		return out, nil
	case colInt:
		if kind == expr.AggSum || kind == expr.AggMin || kind == expr.AggMax || kind == expr.AggFirst {
			out := newColData(colInt, len(groups))
			for gid, rows := range groups {
				if value, ok := expr.AggregateInts(kind, operand.ints, operand.valid, rows); ok {
					out.ints[gid] = value
					out.valid[gid] = true
				}
			}
			return out, nil
		}
		fallthrough
	case colFloat:
		floats := operand.floats
		valid := operand.valid
		if operand.kind == colInt {
			floats = make([]float64, len(operand.ints))
			for i, v := range operand.ints {
				floats[i] = float64(v)
			}
		}
		out := newColData(colFloat, len(groups))
		for gid, rows := range groups {
			if value, ok := expr.AggregateFloats(kind, floats, valid, rows); ok {
				out.floats[gid] = value
				out.valid[gid] = true
			}
		}
		return out, nil
	default:
		return nil, errors.NewTypeMismatchError("GroupBy", "",
			fmt.Sprintf("%s cannot aggregate a %s column", kind, operand.kind))
	}
}
