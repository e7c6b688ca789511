package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessIndexedPreservesOrder(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	results := ProcessIndexed(pool, items, func(_ int, item int) int {
		return item * 2
	})

	assert.Len(t, results, 100)
	for i, r := range results {
		assert.Equal(t, i*2, r)
	}
}

func TestProcessRunsEveryItem(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var total int64
	results := Process(pool, []int{1, 2, 3, 4, 5}, func(item int) int {
		atomic.AddInt64(&total, int64(item))
		return item
	})

	assert.Len(t, results, 5)
	assert.Equal(t, int64(15), total)
}

func TestProcessIndexedEmptyInput(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	results := ProcessIndexed(pool, nil, func(_ int, item int) int { return item })
	assert.Nil(t, results)
}

func TestWorkerPoolDefaultsToCPUCount(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	assert.Greater(t, pool.numWorkers, 0)
}
