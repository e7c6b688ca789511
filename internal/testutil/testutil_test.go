package testutil

import (
	"testing"
)

func TestMustTableAndAssertions(t *testing.T) {
	a := MustTable(t, map[string]any{
		"name": []string{"x", "y"},
		"v":    []int64{1, 2},
	}, []string{"name", "v"})
	defer a.Release()

	b := MustTable(t, map[string]any{
		"name": []string{"y", "x"},
		"v":    []int64{2, 1},
	}, []string{"name", "v"})
	defer b.Release()

	AssertColumnNames(t, a, []string{"name", "v"})
	AssertTableEqual(t, a, a)
	AssertRowSetEqual(t, a, b)
}

func TestMustTableWithNulls(t *testing.T) {
	tbl := MustTable(t, map[string]any{
		"v": []any{int64(1), nil, int64(3)},
	}, []string{"v"})
	defer tbl.Release()

	col, ok := tbl.Column("v")
	if !ok {
		t.Fatal("column v missing")
	}
	if got := col.NullCount(); got != 1 {
		t.Fatalf("null count = %d, want 1", got)
	}
}
