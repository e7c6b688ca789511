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

func gradesTable(t *testing.T) *Table {
	t.Helper()
	mem := memory.NewGoAllocator()
	return mkTable(t,
		series.New("student", []string{"ann", "ben"}, mem),
		series.New("maths", []int64{90, 75}, mem),
		series.New("science", []int64{85, 95}, mem),
	)
}

func TestMelt(t *testing.T) {
	tbl := gradesTable(t)
	defer tbl.Release()

	out, err := tbl.Melt([]string{"student"}, []string{"maths", "science"}, "subject", "grade")
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"student", "subject", "grade"}, out.ColumnNames())
	students, _ := colStrings(t, out, "student")
	subjects, _ := colStrings(t, out, "subject")
	grades, _ := colInts(t, out, "grade")
	assert.Equal(t, []string{"ann", "ben", "ann", "ben"}, students)
	assert.Equal(t, []string{"maths", "maths", "science", "science"}, subjects)
	assert.Equal(t, []int64{90, 75, 85, 95}, grades)
}

func TestMeltDefaultsToAllNonIDColumns(t *testing.T) {
	tbl := gradesTable(t)
	defer tbl.Release()

	out, err := tbl.Melt([]string{"student"}, nil, "subject", "grade")
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 4, out.NumRows())
}

func TestMeltPromotesIntToFloat(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("id", []string{"x"}, mem),
		series.New("a", []int64{1}, mem),
		series.New("b", []float64{2.5}, mem),
	)
	defer tbl.Release()

	out, err := tbl.Melt([]string{"id"}, nil, "variable", "value")
	require.NoError(t, err)
	defer out.Release()

	vals, _ := colFloats(t, out, "value")
	assert.Equal(t, []float64{1, 2.5}, vals)
}

func TestMeltRejectsMixedKinds(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("id", []string{"x"}, mem),
		series.New("a", []int64{1}, mem),
		series.New("b", []string{"two"}, mem),
	)
	defer tbl.Release()

	_, err := tbl.Melt([]string{"id"}, nil, "variable", "value")
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestMeltOutputNameConflict(t *testing.T) {
	tbl := gradesTable(t)
	defer tbl.Release()

	_, err := tbl.Melt([]string{"student"}, nil, "student", "grade")
	assert.ErrorIs(t, err, errors.ErrNameConflict)
}

func TestPivot(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("student", []string{"ann", "ann", "ben", "ben"}, mem),
		series.New("subject", []string{"maths", "science", "maths", "science"}, mem),
		series.New("grade", []int64{90, 85, 75, 95}, mem),
	)
	defer tbl.Release()

	out, err := tbl.Pivot([]string{"student"}, "subject", "grade")
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"student", "maths", "science"}, out.ColumnNames())
	maths, _ := colInts(t, out, "maths")
	science, _ := colInts(t, out, "science")
	assert.Equal(t, []int64{90, 75}, maths)
	assert.Equal(t, []int64{85, 95}, science)
}

func TestPivotMissingCellIsNull(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("student", []string{"ann", "ben"}, mem),
		series.New("subject", []string{"maths", "science"}, mem),
		series.New("grade", []int64{90, 95}, mem),
	)
	defer tbl.Release()

	out, err := tbl.Pivot([]string{"student"}, "subject", "grade")
	require.NoError(t, err)
	defer out.Release()

	_, mathsValid := colInts(t, out, "maths")
	assert.Equal(t, []bool{true, false}, mathsValid)
}

func TestPivotCollisionWithoutAggregator(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("student", []string{"ann", "ann"}, mem),
		series.New("subject", []string{"maths", "maths"}, mem),
		series.New("grade", []int64{90, 80}, mem),
	)
	defer tbl.Release()

	_, err := tbl.Pivot([]string{"student"}, "subject", "grade")
	assert.ErrorIs(t, err, errors.ErrPivotCollision)

	out, err := tbl.Pivot([]string{"student"}, "subject", "grade", expr.AggMean)
	require.NoError(t, err)
	defer out.Release()
	vals, _ := colFloats(t, out, "maths")
	assert.Equal(t, []float64{85}, vals)
}

func TestPivotRejectsNonNumericAggregation(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("student", []string{"ann", "ben"}, mem),
		series.New("subject", []string{"maths", "maths"}, mem),
		series.New("grade", []string{"A", "B"}, mem),
		series.New("passed", []bool{true, false}, mem),
	)
	defer tbl.Release()

	_, err := tbl.Pivot([]string{"student"}, "subject", "grade", expr.AggMean)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = tbl.Pivot([]string{"student"}, "subject", "grade", expr.AggMedian)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = tbl.Pivot([]string{"student"}, "subject", "passed", expr.AggMean)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = tbl.Pivot([]string{"student"}, "subject", "passed", expr.AggSum)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	// string columns still pivot with order-based aggregations
	out, err := tbl.Pivot([]string{"student"}, "subject", "grade", expr.AggMin)
	require.NoError(t, err)
	defer out.Release()
	vals, _ := colStrings(t, out, "maths")
	assert.Equal(t, []string{"A", "B"}, vals)
}

func TestMeltPivotRoundTrip(t *testing.T) {
	tbl := gradesTable(t)
	defer tbl.Release()

	melted, err := tbl.Melt([]string{"student"}, []string{"maths", "science"}, "subject", "grade")
	require.NoError(t, err)
	defer melted.Release()

	back, err := melted.Pivot([]string{"student"}, "subject", "grade")
	require.NoError(t, err)
	defer back.Release()

	assert.Equal(t, tbl.ColumnNames(), back.ColumnNames())
	for _, name := range []string{"maths", "science"} {
		want, _ := colInts(t, tbl, name)
		got, _ := colInts(t, back, name)
		assert.Equal(t, want, got, "column %q after round trip", name)
	}
}

func TestPivotLabelConflictsWithIndex(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := mkTable(t,
		series.New("student", []string{"ann"}, mem),
		series.New("subject", []string{"student"}, mem),
		series.New("grade", []int64{90}, mem),
	)
	defer tbl.Release()

	_, err := tbl.Pivot([]string{"student"}, "subject", "grade")
	assert.ErrorIs(t, err, errors.ErrNameConflict)
}
