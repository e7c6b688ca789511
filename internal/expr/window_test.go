package expr

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepd/prepd/internal/config"
	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/series"
)

func TestRowNumberPerPartition(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"team": series.BuildStrings([]string{"a", "b", "a", "b", "a"}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, valid := evalInts(t, RowNumber().Over(Over("team")), columns, 5)
	assert.Equal(t, []int64{1, 1, 2, 2, 3}, vals)
	assert.Equal(t, []bool{true, true, true, true, true}, valid)
}

func TestRowNumberWithOrdering(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"team":  series.BuildStrings([]string{"a", "a", "a"}, nil, mem),
		"score": series.BuildInts([]int64{5, 20, 10}, nil, mem),
	}
	defer releaseColumns(columns)

	window := Over("team").OrderBy("score", true)
	vals, _ := evalInts(t, RowNumber().Over(window), columns, 3)
	// Highest score gets row number 1; output stays in table order.
	assert.Equal(t, []int64{3, 1, 2}, vals)
}

func TestRankMinTies(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"score": series.BuildInts([]int64{10, 10, 5}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, _ := evalInts(t, Rank(Col("score"), true, RankMin).Over(NewWindow()), columns, 3)
	assert.Equal(t, []int64{1, 1, 3}, vals)
}

func TestRankOrdinalTies(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"score": series.BuildInts([]int64{10, 10, 5}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, _ := evalInts(t, Rank(Col("score"), true, RankOrdinal).Over(NewWindow()), columns, 3)
	assert.Equal(t, []int64{1, 2, 3}, vals)
}

func TestRankRandomIsReproducibleWithSeed(t *testing.T) {
	original := config.GetConfig()
	defer config.SetConfig(original)
	seeded := original
	seeded.RankTieSeed = 42
	config.SetConfig(seeded)

	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"score": series.BuildInts([]int64{7, 7, 7, 7, 1}, nil, mem),
	}
	defer releaseColumns(columns)

	ex := Rank(Col("score"), true, RankRandom).Over(NewWindow())
	first, _ := evalInts(t, ex, columns, 5)
	second, _ := evalInts(t, ex, columns, 5)

	assert.Equal(t, first, second)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, first[:4])
	assert.Equal(t, int64(5), first[4])
}

func TestRankSkipsNulls(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"score": series.BuildInts([]int64{10, 0, 5}, []bool{true, false, true}, mem),
	}
	defer releaseColumns(columns)

	vals, valid := evalInts(t, Rank(Col("score"), true, RankMin).Over(NewWindow()), columns, 3)
	assert.Equal(t, int64(1), vals[0])
	assert.Equal(t, int64(2), vals[2])
	assert.Equal(t, []bool{true, false, true}, valid)
}

func TestRankPerPartition(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"student": series.BuildStrings([]string{"ann", "ann", "ben", "ben"}, nil, mem),
		"points":  series.BuildInts([]int64{80, 95, 70, 60}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, _ := evalInts(t, Rank(Col("points"), true, RankMin).Over(Over("student")), columns, 4)
	assert.Equal(t, []int64{2, 1, 1, 2}, vals)
}

func TestCumSum(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"acct":   series.BuildStrings([]string{"x", "y", "x", "y"}, nil, mem),
		"amount": series.BuildInts([]int64{100, 10, -30, 5}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, _ := evalInts(t, Col("amount").CumSum().Over(Over("acct")), columns, 4)
	assert.Equal(t, []int64{100, 10, 70, 15}, vals)
}

func TestCumSumNullStaysNull(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"amount": series.BuildInts([]int64{100, 0, 50}, []bool{true, false, true}, mem),
	}
	defer releaseColumns(columns)

	vals, valid := evalInts(t, Col("amount").CumSum().Over(NewWindow()), columns, 3)
	assert.Equal(t, int64(100), vals[0])
	assert.Equal(t, int64(150), vals[2])
	assert.Equal(t, []bool{true, false, true}, valid)
}

func TestRollingMeanMinPeriods(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"v": series.BuildFloats([]float64{1, 2, 3, 4, 5}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, valid := evalFloats(t, Col("v").RollingMean(3, 3).Over(NewWindow()), columns, 5)
	assert.Equal(t, []bool{false, false, true, true, true}, valid)
	assert.Equal(t, []float64{2, 3, 4}, vals[2:])
}

func TestRollingMeanMinPeriodsOne(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"v": series.BuildFloats([]float64{10, 20}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, valid := evalFloats(t, Col("v").RollingMean(3, 1).Over(NewWindow()), columns, 2)
	assert.Equal(t, []bool{true, true}, valid)
	assert.Equal(t, []float64{10, 15}, vals)
}

func TestForwardFill(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"acct": series.BuildStrings([]string{"x", "x", "y", "x", "y"}, nil, mem),
		"bal": series.BuildFloats([]float64{100, 0, 50, 0, 0},
			[]bool{true, false, true, false, false}, mem),
	}
	defer releaseColumns(columns)

	vals, valid := evalFloats(t, Col("bal").ForwardFill().Over(Over("acct")), columns, 5)
	assert.Equal(t, []bool{true, true, true, true, true}, valid)
	assert.Equal(t, []float64{100, 100, 50, 100, 50}, vals)
}

func TestForwardFillLeadingNullStaysNull(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"v": series.BuildInts([]int64{0, 7, 0}, []bool{false, true, false}, mem),
	}
	defer releaseColumns(columns)

	vals, valid := evalInts(t, Col("v").ForwardFill().Over(NewWindow()), columns, 3)
	assert.Equal(t, []bool{false, true, true}, valid)
	assert.Equal(t, int64(7), vals[1])
	assert.Equal(t, int64(7), vals[2])
}

func TestQCutBucketSizes(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"v": series.BuildInts([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, nil, mem),
	}
	defer releaseColumns(columns)

	vals, _ := evalInts(t, Col("v").QCut(3).Over(NewWindow()), columns, 9)
	assert.Equal(t, []int64{1, 1, 1, 2, 2, 2, 3, 3, 3}, vals)
}

func TestQCutBoundaryTieFallsInLowerBucket(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"v": series.BuildInts([]int64{1, 2, 2, 4}, nil, mem),
	}
	defer releaseColumns(columns)

	// The tied 2s straddle the halfway boundary; both land in bucket 1.
	vals, _ := evalInts(t, Col("v").QCut(2).Over(NewWindow()), columns, 4)
	assert.Equal(t, []int64{1, 1, 1, 2}, vals)
}

func TestAggregationOverWindowBroadcasts(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"team":  series.BuildStrings([]string{"a", "b", "a", "b"}, nil, mem),
		"score": series.BuildInts([]int64{10, 1, 20, 3}, nil, mem),
	}
	defer releaseColumns(columns)

	sums, _ := evalInts(t, Sum(Col("score")).Over(Over("team")), columns, 4)
	assert.Equal(t, []int64{30, 4, 30, 4}, sums)

	means, _ := evalFloats(t, Mean(Col("score")).Over(Over("team")), columns, 4)
	assert.Equal(t, []float64{15, 2, 15, 2}, means)

	counts, _ := evalInts(t, Count(Col("score")).Over(Over("team")), columns, 4)
	assert.Equal(t, []int64{2, 2, 2, 2}, counts)
}

func TestAggregationOverWindowRejectsStringSum(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"team": series.BuildStrings([]string{"a", "a", "b"}, nil, mem),
		"name": series.BuildStrings([]string{"x", "y", "z"}, nil, mem),
	}
	defer releaseColumns(columns)

	for _, ex := range []Expr{
		Sum(Col("name")).Over(Over("team")),
		Mean(Col("name")).Over(Over("team")),
		Median(Col("name")).Over(Over("team")),
	} {
		_, err := NewEvaluator(mem).Evaluate(ex, columns, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	}

	// order-based aggregations still broadcast string operands
	vals, valid := evalStrings(t, Min(Col("name")).Over(Over("team")), columns, 3)
	assert.Equal(t, []string{"x", "x", "z"}, vals)
	assert.Equal(t, []bool{true, true, true}, valid)
}

func TestWindowNullPartitionKeyIsItsOwnGroup(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"team":  series.BuildStrings([]string{"a", "", "a", ""}, []bool{true, false, true, false}, mem),
		"score": series.BuildInts([]int64{1, 2, 3, 4}, nil, mem),
	}
	defer releaseColumns(columns)

	sums, _ := evalInts(t, Sum(Col("score")).Over(Over("team")), columns, 4)
	assert.Equal(t, []int64{4, 6, 4, 6}, sums)
}

func TestWindowParallelMatchesSequential(t *testing.T) {
	original := config.GetConfig()
	defer config.SetConfig(original)

	n := 2000
	teams := make([]string, n)
	scores := make([]int64, n)
	for i := range teams {
		teams[i] = string(rune('a' + i%7))
		scores[i] = int64(i * 13 % 101)
	}

	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"team":  series.BuildStrings(teams, nil, mem),
		"score": series.BuildInts(scores, nil, mem),
	}
	defer releaseColumns(columns)

	ex := Rank(Col("score"), true, RankOrdinal).Over(Over("team"))

	low := original
	low.ParallelThreshold = 1
	config.SetConfig(low)
	parallelVals, _ := evalInts(t, ex, columns, n)

	high := original
	high.ParallelThreshold = n + 1
	config.SetConfig(high)
	sequentialVals, _ := evalInts(t, ex, columns, n)

	assert.Equal(t, sequentialVals, parallelVals)
}

func TestWindowMissingPartitionColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := map[string]arrow.Array{
		"v": series.BuildInts([]int64{1, 2}, nil, mem),
	}
	defer releaseColumns(columns)

	_, err := NewEvaluator(mem).Evaluate(RowNumber().Over(Over("missing")), columns, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestWindowSpecString(t *testing.T) {
	w := Over("team").OrderBy("score", true)
	assert.Equal(t, "over (partition by team order by score desc)", w.String())
}
