// Package testutil provides table builders and assertions shared by
// tests across the module.
package testutil

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepd/prepd/internal/series"
	"github.com/prepd/prepd/internal/table"
)

// MustTable builds a table from name/values pairs. Values are
// []string, []int64, []float64 or []bool; a nil entry inside a
// []any slice is a null.
func MustTable(t *testing.T, columns map[string]any, order []string) *table.Table {
	t.Helper()
	mem := memory.NewGoAllocator()
	cols := make([]*series.Column, 0, len(order))
	for _, name := range order {
		values, ok := columns[name]
		require.True(t, ok, "column %q missing from values", name)
		cols = append(cols, buildColumn(t, name, values, mem))
	}
	tbl, err := table.New(mem, cols...)
	require.NoError(t, err)
	return tbl
}

func buildColumn(t *testing.T, name string, values any, mem memory.Allocator) *series.Column {
	t.Helper()
	switch v := values.(type) {
	case []string:
		return series.New(name, v, mem)
	case []int64:
		return series.New(name, v, mem)
	case []float64:
		return series.New(name, v, mem)
	case []bool:
		return series.New(name, v, mem)
	case []any:
		return columnFromAny(t, name, v, mem)
	default:
		t.Fatalf("column %q: unsupported value type %T", name, values)
		return nil
	}
}

// columnFromAny infers the column type from the first non-nil value.
func columnFromAny(t *testing.T, name string, values []any, mem memory.Allocator) *series.Column {
	t.Helper()
	valid := make([]bool, len(values))
	var sample any
	for i, v := range values {
		valid[i] = v != nil
		if v != nil && sample == nil {
			sample = v
		}
	}
	switch sample.(type) {
	case string, nil:
		out := make([]string, len(values))
		for i, v := range values {
			if valid[i] {
				out[i] = v.(string)
			}
		}
		return series.NewWithNulls(name, out, valid, mem)
	case int, int64:
		out := make([]int64, len(values))
		for i, v := range values {
			if valid[i] {
				switch n := v.(type) {
				case int:
					out[i] = int64(n)
				case int64:
					out[i] = n
				}
			}
		}
		return series.NewWithNulls(name, out, valid, mem)
	case float64:
		out := make([]float64, len(values))
		for i, v := range values {
			if valid[i] {
				out[i] = v.(float64)
			}
		}
		return series.NewWithNulls(name, out, valid, mem)
	case bool:
		out := make([]bool, len(values))
		for i, v := range values {
			if valid[i] {
				out[i] = v.(bool)
			}
		}
		return series.NewWithNulls(name, out, valid, mem)
	default:
		t.Fatalf("column %q: unsupported element type %T", name, sample)
		return nil
	}
}

// renderRows renders each row as a deterministic string, nulls as
// "<null>". Used by the table assertions.
func renderRows(t *testing.T, tbl *table.Table) []string {
	t.Helper()
	rows := make([]string, tbl.NumRows())
	var sb strings.Builder
	for i := range rows {
		sb.Reset()
		for ci, col := range tbl.Columns() {
			if ci > 0 {
				sb.WriteString(" | ")
			}
			if value, ok := col.Value(i); ok {
				fmt.Fprintf(&sb, "%v", value)
			} else {
				sb.WriteString("<null>")
			}
		}
		rows[i] = sb.String()
	}
	return rows
}

// AssertTableEqual asserts both tables have the same schema and the
// same rows in the same order.
func AssertTableEqual(t *testing.T, want, got *table.Table) {
	t.Helper()
	require.Equal(t, want.ColumnNames(), got.ColumnNames(), "column names differ")
	require.Equal(t, want.NumRows(), got.NumRows(), "row counts differ")
	assert.Equal(t, renderRows(t, want), renderRows(t, got))
}

// AssertRowSetEqual asserts both tables have the same schema and the
// same rows, ignoring row order.
func AssertRowSetEqual(t *testing.T, want, got *table.Table) {
	t.Helper()
	require.Equal(t, want.ColumnNames(), got.ColumnNames(), "column names differ")
	require.Equal(t, want.NumRows(), got.NumRows(), "row counts differ")
	wantRows := renderRows(t, want)
	gotRows := renderRows(t, got)
	sort.Strings(wantRows)
	sort.Strings(gotRows)
	assert.Equal(t, wantRows, gotRows)
}

// AssertColumnNames asserts the table has exactly the given columns in
// order.
func AssertColumnNames(t *testing.T, tbl *table.Table, names []string) {
	t.Helper()
	assert.Equal(t, names, tbl.ColumnNames())
}
