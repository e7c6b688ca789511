// Package parallel provides the fan-out/fan-in worker pool used by
// table and window operations once row count crosses the configured
// parallel threshold. Work items are distributed across a fixed set of
// goroutines; the indexed variant preserves item order so parallel
// execution is output-identical to sequential execution.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool runs work items on a bounded set of goroutines.
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a pool with numWorkers goroutines per call to
// Process. A non-positive count uses runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{numWorkers: numWorkers, ctx: ctx, cancel: cancel}
}

// Close cancels any in-flight work distribution.
func (wp *WorkerPool) Close() {
	wp.cancel()
}

type indexed[T any] struct {
	index int
	value T
}

// Process executes worker over every item and returns the results in
// arbitrary order.
func Process[T, R any](wp *WorkerPool, items []T, worker func(T) R) []R {
	results := ProcessIndexed(wp, items, func(_ int, item T) R {
		return worker(item)
	})
	return results
}

// ProcessIndexed executes worker over every item and returns results
// in item order. worker receives the item's index alongside its value.
func ProcessIndexed[T, R any](wp *WorkerPool, items []T, worker func(int, T) R) []R {
	if len(items) == 0 {
		return nil
	}

	itemCh := make(chan indexed[T], len(items))
	resultCh := make(chan indexed[R], len(items))

	var wg sync.WaitGroup
	for w := 0; w < wp.numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					resultCh <- indexed[R]{
						index: item.index,
						value: worker(item.index, item.value),
					}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexed[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	for result := range resultCh {
		results[result.index] = result.value
	}
	return results
}
