package table

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/expr"
	"github.com/prepd/prepd/internal/series"
)

func mkTable(t *testing.T, columns ...*series.Column) *Table {
	t.Helper()
	tbl, err := New(memory.NewGoAllocator(), columns...)
	require.NoError(t, err)
	return tbl
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	mem := memory.NewGoAllocator()
	return mkTable(t,
		series.New("name", []string{"alice", "bob", "carol", "dave"}, mem),
		series.New("age", []int64{30, 25, 35, 40}, mem),
		series.New("score", []float64{1.5, 2.5, 3.5, 4.5}, mem),
	)
}

func colInts(t *testing.T, tbl *Table, name string) ([]int64, []bool) {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %q not found", name)
	arr := col.Array()
	defer arr.Release()
	vals, valid, ok := series.Ints(arr)
	require.True(t, ok, "column %q is %s, expected int64", name, arr.DataType())
	return vals, valid
}

func colFloats(t *testing.T, tbl *Table, name string) ([]float64, []bool) {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %q not found", name)
	arr := col.Array()
	defer arr.Release()
	vals, valid, ok := series.Floats(arr)
	require.True(t, ok, "column %q is %s, expected numeric", name, arr.DataType())
	return vals, valid
}

func colStrings(t *testing.T, tbl *Table, name string) ([]string, []bool) {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %q not found", name)
	arr := col.Array()
	defer arr.Release()
	vals, valid, ok := series.Strings(arr)
	require.True(t, ok, "column %q is %s, expected string", name, arr.DataType())
	return vals, valid
}

func TestNewValidatesSchema(t *testing.T) {
	mem := memory.NewGoAllocator()

	_, err := New(mem,
		series.New("a", []int64{1, 2}, mem),
		series.New("a", []int64{3, 4}, mem),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSchema)

	_, err = New(mem,
		series.New("a", []int64{1, 2}, mem),
		series.New("b", []int64{3}, mem),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSchema)
}

func TestNewCollectsAllViolations(t *testing.T) {
	mem := memory.NewGoAllocator()
	_, err := New(mem,
		series.New("a", []int64{1, 2}, mem),
		series.New("a", []int64{3, 4}, mem),
		series.New("b", []int64{5}, mem),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
	assert.Contains(t, err.Error(), "length")
}

func TestSelect(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.Select("score", "name")
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []string{"score", "name"}, out.ColumnNames())
	assert.Equal(t, 4, out.NumRows())

	_, err = tbl.Select("nope")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestDrop(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.Drop("age")
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []string{"name", "score"}, out.ColumnNames())

	_, err = tbl.Drop("nope")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestRename(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.Rename(map[string]string{"name": "person"})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []string{"person", "age", "score"}, out.ColumnNames())
}

func TestRenameConflict(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	_, err := tbl.Rename(map[string]string{"name": "age"})
	assert.ErrorIs(t, err, errors.ErrNameConflict)

	// swapping two columns is not a conflict
	out, err := tbl.Rename(map[string]string{"name": "age", "age": "name"})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []string{"age", "name", "score"}, out.ColumnNames())
}

func TestWithColumnsAddsAndReplaces(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.WithColumns(
		expr.Col("age").Add(expr.Lit(1)).As("age"),
		expr.Col("score").Mul(expr.Lit(2.0)).As("double_score"),
	)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"name", "age", "score", "double_score"}, out.ColumnNames())
	ages, _ := colInts(t, out, "age")
	assert.Equal(t, []int64{31, 26, 36, 41}, ages)
	doubles, _ := colFloats(t, out, "double_score")
	assert.Equal(t, []float64{3, 5, 7, 9}, doubles)
}

func TestWithColumnsRequiresOutputName(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	_, err := tbl.WithColumns(expr.Col("age").Add(expr.Lit(1)))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.Filter(expr.Col("age").Gt(expr.Lit(28)))
	require.NoError(t, err)
	defer out.Release()

	names, _ := colStrings(t, out, "name")
	assert.Equal(t, []string{"alice", "carol", "dave"}, names)
}

func TestFilterNullPredicateExcludesRow(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.NewWithNulls("v", []int64{1, 2, 3}, []bool{true, false, true}, mem),
	)
	defer tbl.Release()

	out, err := tbl.Filter(expr.Col("v").Gt(expr.Lit(0)))
	require.NoError(t, err)
	defer out.Release()

	vals, _ := colInts(t, out, "v")
	assert.Equal(t, []int64{1, 3}, vals)
}

func TestSortMultiKeyStable(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("team", []string{"b", "a", "b", "a"}, mem),
		series.New("score", []int64{1, 2, 3, 2}, mem),
		series.New("tag", []string{"w", "x", "y", "z"}, mem),
	)
	defer tbl.Release()

	out, err := tbl.Sort(
		expr.SortOrder{Column: "team"},
		expr.SortOrder{Column: "score", Descending: true},
	)
	require.NoError(t, err)
	defer out.Release()

	teams, _ := colStrings(t, out, "team")
	scores, _ := colInts(t, out, "score")
	tags, _ := colStrings(t, out, "tag")
	assert.Equal(t, []string{"a", "a", "b", "b"}, teams)
	assert.Equal(t, []int64{2, 2, 3, 1}, scores)
	// equal keys keep input order
	assert.Equal(t, []string{"x", "z", "y", "w"}, tags)
}

func TestSortNullsLast(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.NewWithNulls("v", []int64{5, 0, 1}, []bool{true, false, true}, mem),
	)
	defer tbl.Release()

	asc, err := tbl.SortBy("v")
	require.NoError(t, err)
	defer asc.Release()
	_, valid := colInts(t, asc, "v")
	assert.Equal(t, []bool{true, true, false}, valid)

	desc, err := tbl.Sort(expr.SortOrder{Column: "v", Descending: true})
	require.NoError(t, err)
	defer desc.Release()
	vals, validDesc := colInts(t, desc, "v")
	assert.Equal(t, []int64{5, 1}, vals[:2])
	assert.Equal(t, []bool{true, true, false}, validDesc)
}

func TestWithRowIndex(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.WithRowIndex("id", 1)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"id", "name", "age", "score"}, out.ColumnNames())
	ids, _ := colInts(t, out, "id")
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)

	_, err = out.WithRowIndex("id", 0)
	assert.ErrorIs(t, err, errors.ErrNameConflict)
}

func TestUnique(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("k", []string{"a", "b", "a", "c", "b"}, mem),
		series.New("v", []int64{1, 2, 3, 4, 5}, mem),
	)
	defer tbl.Release()

	out, err := tbl.Unique("k")
	require.NoError(t, err)
	defer out.Release()

	keys, _ := colStrings(t, out, "k")
	vals, _ := colInts(t, out, "v")
	// first occurrence wins
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, []int64{1, 2, 4}, vals)
}

func TestHead(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.Head(2)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 2, out.NumRows())

	all, err := tbl.Head(100)
	require.NoError(t, err)
	defer all.Release()
	assert.Equal(t, 4, all.NumRows())
}

func TestImmutability(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	out, err := tbl.Filter(expr.Col("age").Gt(expr.Lit(100)))
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, 4, tbl.NumRows())
}
