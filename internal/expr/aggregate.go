package expr

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Aggregation kernels shared by GroupBy collapsing and window
// broadcasting. Null slots never contribute; an aggregation over only
// nulls yields a null result (ok == false), except count which is 0.

func sumOf[T constraints.Integer | constraints.Float](vals []T, valid []bool, idx []int) (T, bool) {
	var total T
	any := false
	for _, i := range idx {
		if valid[i] {
			total += vals[i]
			any = true
		}
	}
	return total, any
}

func minOf[T constraints.Ordered](vals []T, valid []bool, idx []int) (T, bool) {
	var best T
	any := false
	for _, i := range idx {
		if !valid[i] {
			continue
		}
		if !any || vals[i] < best {
			best = vals[i]
		}
		any = true
	}
	return best, any
}

func maxOf[T constraints.Ordered](vals []T, valid []bool, idx []int) (T, bool) {
	var best T
	any := false
	for _, i := range idx {
		if !valid[i] {
			continue
		}
		if !any || vals[i] > best {
			best = vals[i]
		}
		any = true
	}
	return best, any
}

func firstOf[T any](vals []T, valid []bool, idx []int) (T, bool) {
	for _, i := range idx {
		if valid[i] {
			return vals[i], true
		}
	}
	var zero T
	return zero, false
}

// CountValid counts non-null rows among idx.
func CountValid(valid []bool, idx []int) int64 {
	var n int64
	for _, i := range idx {
		if valid[i] {
			n++
		}
	}
	return n
}

func medianOf(vals []float64, valid []bool, idx []int) (float64, bool) {
	observed := make([]float64, 0, len(idx))
	for _, i := range idx {
		if valid[i] {
			observed = append(observed, vals[i])
		}
	}
	if len(observed) == 0 {
		return 0, false
	}
	sort.Float64s(observed)
	mid := len(observed) / 2
	if len(observed)%2 == 1 {
		return observed[mid], true
	}
	return (observed[mid-1] + observed[mid]) / 2, true
}

// AggregateFloats applies a numeric aggregation over the selected rows.
func AggregateFloats(agg AggregationType, vals []float64, valid []bool, idx []int) (float64, bool) {
	switch agg {
	case AggSum:
		total, ok := sumOf(vals, valid, idx)
		if !ok {
			return 0, false
		}
		return total, true
	case AggMean:
		total, ok := sumOf(vals, valid, idx)
		if !ok {
			return 0, false
		}
		return total / float64(CountValid(valid, idx)), true
	case AggMedian:
		return medianOf(vals, valid, idx)
	case AggMin:
		return minOf(vals, valid, idx)
	case AggMax:
		return maxOf(vals, valid, idx)
	case AggFirst:
		return firstOf(vals, valid, idx)
	case AggCount:
		return float64(CountValid(valid, idx)), true
	default:
		return 0, false
	}
}

// AggregateInts applies an int-preserving aggregation (sum, min, max,
// first) over int64 rows.
func AggregateInts(agg AggregationType, vals []int64, valid []bool, idx []int) (int64, bool) {
	switch agg {
	case AggSum:
		return sumOf(vals, valid, idx)
	case AggMin:
		return minOf(vals, valid, idx)
	case AggMax:
		return maxOf(vals, valid, idx)
	case AggFirst:
		return firstOf(vals, valid, idx)
	default:
		return 0, false
	}
}

// AggregateStrings applies min, max or first over string rows.
func AggregateStrings(agg AggregationType, vals []string, valid []bool, idx []int) (string, bool) {
	switch agg {
	case AggMin:
		return minOf(vals, valid, idx)
	case AggMax:
		return maxOf(vals, valid, idx)
	case AggFirst:
		return firstOf(vals, valid, idx)
	default:
		return "", false
	}
}
