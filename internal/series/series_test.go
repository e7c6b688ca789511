package series_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prepd/prepd/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColumn(t *testing.T) {
	mem := memory.NewGoAllocator()

	col := series.New("city", []string{"York", "Leeds", "Hull"}, mem)
	defer col.Release()

	assert.Equal(t, "city", col.Name())
	assert.Equal(t, 3, col.Len())
	assert.Equal(t, arrow.BinaryTypes.String.ID(), col.DataType().ID())
	assert.Equal(t, 0, col.NullCount())

	v, ok := col.Value(1)
	require.True(t, ok)
	assert.Equal(t, "Leeds", v)
}

func TestNewWithNulls(t *testing.T) {
	mem := memory.NewGoAllocator()

	col := series.NewWithNulls("amount", []float64{1.5, 0, 3.25}, []bool{true, false, true}, mem)
	defer col.Release()

	assert.Equal(t, 1, col.NullCount())
	assert.False(t, col.IsNull(0))
	assert.True(t, col.IsNull(1))

	_, ok := col.Value(1)
	assert.False(t, ok)
}

func TestRenameSharesData(t *testing.T) {
	mem := memory.NewGoAllocator()

	col := series.New("a", []int64{1, 2}, mem)
	defer col.Release()

	renamed := col.Rename("b")
	defer renamed.Release()

	assert.Equal(t, "b", renamed.Name())
	assert.Equal(t, "a", col.Name())
	v, ok := renamed.Value(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestExtractors(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("strings", func(t *testing.T) {
		col := series.NewWithNulls("s", []string{"x", "", "z"}, []bool{true, false, true}, mem)
		defer col.Release()
		arr := col.Array()
		defer arr.Release()

		values, valid, ok := series.Strings(arr)
		require.True(t, ok)
		assert.Equal(t, []string{"x", "", "z"}, values)
		assert.Equal(t, []bool{true, false, true}, valid)

		_, _, ok = series.Ints(arr)
		assert.False(t, ok)
	})

	t.Run("floats widen ints", func(t *testing.T) {
		col := series.New("n", []int64{2, 4}, mem)
		defer col.Release()
		arr := col.Array()
		defer arr.Release()

		values, valid, ok := series.Floats(arr)
		require.True(t, ok)
		assert.Equal(t, []float64{2, 4}, values)
		assert.Equal(t, []bool{true, true}, valid)
	})

	t.Run("bools", func(t *testing.T) {
		col := series.New("b", []bool{true, false}, mem)
		defer col.Release()
		arr := col.Array()
		defer arr.Release()

		values, valid, ok := series.Bools(arr)
		require.True(t, ok)
		assert.Equal(t, []bool{true, false}, values)
		assert.Equal(t, []bool{true, true}, valid)
	})
}
