package expr

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/prepd/prepd/internal/config"
	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/parallel"
)

// evalWindow evaluates a window-bound function: rows are grouped by the
// partition key, ordered by the window ordering, computed per
// partition, and scattered back so row count and row order of the
// table are preserved.
func (e *Evaluator) evalWindow(node *WindowExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	window := node.window
	if window == nil {
		return nil, errors.NewTypeMismatchError("Evaluate", "", "window expression has no window spec")
	}

	partitions, err := e.partitionRows(window, columns, n)
	if err != nil {
		return nil, err
	}
	if err := e.orderPartitions(window, columns, n, partitions); err != nil {
		return nil, err
	}

	var operand *vector
	if op := windowOperand(node.function); op != nil {
		operand, err = e.eval(op, columns, n)
		if err != nil {
			return nil, err
		}
	}

	out, err := newWindowOutput(node.function, operand, n)
	if err != nil {
		return nil, err
	}

	compute := func(part []int) error {
		switch fn := node.function.(type) {
		case *WindowFunctionExpr:
			return e.computeWindowFunction(fn, operand, part, out)
		case *AggregationExpr:
			return e.computeWindowAggregation(fn, operand, part, out)
		default:
			return errors.NewTypeMismatchError("Evaluate", "",
				fmt.Sprintf("%T cannot be used as a window function", node.function))
		}
	}

	// Partitions cover disjoint row indices, so workers can scatter
	// into the shared output vector without coordination; results are
	// identical to sequential evaluation.
	cfg := config.GetConfig()
	if n >= cfg.ParallelThreshold && len(partitions) > 1 {
		pool := parallel.NewWorkerPool(cfg.WorkerPoolSize)
		defer pool.Close()
		errs := parallel.ProcessIndexed(pool, partitions, func(_ int, part []int) error {
			return compute(part)
		})
		return out, errors.Collect("Window", errs...)
	}

	for _, part := range partitions {
		if err := compute(part); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// partitionRows groups row indices by the partition key, partitions
// ordered by first appearance so output is deterministic.
func (e *Evaluator) partitionRows(window *WindowSpec, columns map[string]arrow.Array, n int) ([][]int, error) {
	keys := window.PartitionColumns()
	if len(keys) == 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return [][]int{all}, nil
	}

	keyVecs := make([]*vector, len(keys))
	for i, name := range keys {
		arr, ok := columns[name]
		if !ok {
			return nil, errors.NewColumnNotFoundError("Window", name)
		}
		v, err := fromArrow(arr)
		if err != nil {
			return nil, err
		}
		keyVecs[i] = v
	}

	index := make(map[string]int)
	var partitions [][]int
	var sb strings.Builder
	for row := 0; row < n; row++ {
		sb.Reset()
		for _, v := range keyVecs {
			if v.valid[row] {
				sb.WriteByte('v')
				sb.WriteString(v.stringAt(row))
			} else {
				sb.WriteByte('n')
			}
			sb.WriteByte(0x1f)
		}
		key := sb.String()
		id, seen := index[key]
		if !seen {
			id = len(partitions)
			index[key] = id
			partitions = append(partitions, nil)
		}
		partitions[id] = append(partitions[id], row)
	}
	return partitions, nil
}

// orderPartitions stably sorts each partition's row indices by the
// window ordering, nulls last.
func (e *Evaluator) orderPartitions(window *WindowSpec, columns map[string]arrow.Array, n int, partitions [][]int) error {
	ordering := window.Ordering()
	if len(ordering) == 0 {
		return nil
	}
	orderVecs := make([]*vector, len(ordering))
	for i, o := range ordering {
		arr, ok := columns[o.Column]
		if !ok {
			return errors.NewColumnNotFoundError("Window", o.Column)
		}
		v, err := fromArrow(arr)
		if err != nil {
			return err
		}
		orderVecs[i] = v
	}
	for _, part := range partitions {
		sort.SliceStable(part, func(a, b int) bool {
			for i, o := range ordering {
				v := orderVecs[i]
				ra, rb := part[a], part[b]
				// nulls sort last regardless of direction
				switch {
				case !v.valid[ra] && !v.valid[rb]:
					continue
				case !v.valid[ra]:
					return false
				case !v.valid[rb]:
					return true
				}
				c := compareAt(v, ra, rb)
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	return nil
}

// compareAt orders two slots of a vector; null sorts after any value.
func compareAt(v *vector, i, j int) int {
	switch {
	case !v.valid[i] && !v.valid[j]:
		return 0
	case !v.valid[i]:
		return 1
	case !v.valid[j]:
		return -1
	}
	switch v.kind {
	case kindString:
		return strings.Compare(v.strs[i], v.strs[j])
	case kindInt:
		switch {
		case v.ints[i] < v.ints[j]:
			return -1
		case v.ints[i] > v.ints[j]:
			return 1
		}
		return 0
	case kindFloat:
		switch {
		case v.floats[i] < v.floats[j]:
			return -1
		case v.floats[i] > v.floats[j]:
			return 1
		}
		return 0
	default:
		switch {
		case !v.bools[i] && v.bools[j]:
			return -1
		case v.bools[i] && !v.bools[j]:
			return 1
		}
		return 0
	}
}

func windowOperand(function Expr) Expr {
	switch fn := function.(type) {
	case *WindowFunctionExpr:
		return fn.operand
	case *AggregationExpr:
		return fn.Column()
	default:
		return nil
	}
}

// newWindowOutput allocates the result vector with the kind the bound
// function produces.
func newWindowOutput(function Expr, operand *vector, n int) (*vector, error) {
	switch fn := function.(type) {
	case *WindowFunctionExpr:
		switch fn.funcName {
		case "row_number", "rank", "qcut":
			return newVector(kindInt, n), nil
		case "rolling_mean":
			return newVector(kindFloat, n), nil
		case "cum_sum", "forward_fill":
			if operand == nil {
				return nil, errors.NewTypeMismatchError("Window", "", fn.funcName+" needs an operand")
			}
			return newVector(operand.kind, n), nil
		default:
			return nil, errors.NewTypeMismatchError("Window", "", "unknown window function "+fn.funcName)
		}
	case *AggregationExpr:
		if fn.AggType() == AggCount {
			return newVector(kindInt, n), nil
		}
		if operand != nil && operand.kind == kindString {
			if agg := fn.AggType(); agg != AggMin && agg != AggMax && agg != AggFirst {
				return nil, errors.NewTypeMismatchError("Window", "",
					fmt.Sprintf("%s cannot aggregate a string column", agg))
			}
			return newVector(kindString, n), nil
		}
		if operand != nil && operand.kind == kindInt &&
			(fn.AggType() == AggSum || fn.AggType() == AggMin || fn.AggType() == AggMax || fn.AggType() == AggFirst) {
			return newVector(kindInt, n), nil
		}
		return newVector(kindFloat, n), nil
	default:
		return nil, errors.NewTypeMismatchError("Window", "",
			fmt.Sprintf("%T cannot be used as a window function", function))
	}
}

func (e *Evaluator) computeWindowFunction(fn *WindowFunctionExpr, operand *vector, part []int, out *vector) error {
	switch fn.funcName {
	case "row_number":
		for pos, row := range part {
			out.ints[row] = int64(pos + 1)
			out.valid[row] = true
		}
		return nil
	case "rank":
		return computeRank(fn, operand, part, out)
	case "cum_sum":
		return computeCumSum(operand, part, out)
	case "rolling_mean":
		return computeRollingMean(fn, operand, part, out)
	case "forward_fill":
		computeForwardFill(operand, part, out)
		return nil
	case "qcut":
		return computeQCut(fn, operand, part, out)
	default:
		return errors.NewTypeMismatchError("Window", "", "unknown window function "+fn.funcName)
	}
}

// computeRank ranks operand values inside the partition. Null operands
// rank as null and do not displace other ranks.
func computeRank(fn *WindowFunctionExpr, operand *vector, part []int, out *vector) error {
	if operand == nil {
		return errors.NewTypeMismatchError("Window", "", "rank needs an operand")
	}
	ranked := make([]int, 0, len(part))
	for _, row := range part {
		if operand.valid[row] {
			ranked = append(ranked, row)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		c := compareAt(operand, ranked[a], ranked[b])
		if fn.descending {
			return c > 0
		}
		return c < 0
	})

	if fn.rankMethod == RankRandom {
		shuffleTies(operand, ranked)
	}

	for pos, row := range ranked {
		rank := int64(pos + 1)
		if fn.rankMethod == RankMin && pos > 0 && compareAt(operand, row, ranked[pos-1]) == 0 {
			rank = out.ints[ranked[pos-1]]
		}
		out.ints[row] = rank
		out.valid[row] = true
	}
	return nil
}

// shuffleTies permutes each run of equal values. The RNG is seeded from
// config so runs are reproducible only when a seed is configured.
func shuffleTies(operand *vector, ranked []int) {
	rng := rand.New(rand.NewSource(config.GetConfig().RankTieSeed))
	start := 0
	for i := 1; i <= len(ranked); i++ {
		if i == len(ranked) || compareAt(operand, ranked[i], ranked[start]) != 0 {
			if i-start > 1 {
				group := ranked[start:i]
				rng.Shuffle(len(group), func(a, b int) {
					group[a], group[b] = group[b], group[a]
				})
			}
			start = i
		}
	}
}

// computeCumSum accumulates in window order. Null inputs stay null and
// leave the running total unchanged.
func computeCumSum(operand *vector, part []int, out *vector) error {
	switch operand.kind {
	case kindInt:
		var total int64
		for _, row := range part {
			if operand.valid[row] {
				total += operand.ints[row]
				out.ints[row] = total
				out.valid[row] = true
			}
		}
		return nil
	case kindFloat:
		var total float64
		for _, row := range part {
			if operand.valid[row] {
				total += operand.floats[row]
				out.floats[row] = total
				out.valid[row] = true
			}
		}
		return nil
	default:
		return errors.NewTypeMismatchError("Window", "", "cum_sum needs a numeric operand")
	}
}

func computeRollingMean(fn *WindowFunctionExpr, operand *vector, part []int, out *vector) error {
	vf, ok := operand.asFloat()
	if !ok {
		return errors.NewTypeMismatchError("Window", "", "rolling_mean needs a numeric operand")
	}
	for pos, row := range part {
		from := pos - fn.windowSize + 1
		if from < 0 {
			from = 0
		}
		var total float64
		count := 0
		for _, prev := range part[from : pos+1] {
			if vf.valid[prev] {
				total += vf.floats[prev]
				count++
			}
		}
		if count < fn.minPeriods || count == 0 {
			continue
		}
		out.floats[row] = total / float64(count)
		out.valid[row] = true
	}
	return nil
}

func computeForwardFill(operand *vector, part []int, out *vector) {
	last := -1
	for _, row := range part {
		if operand.valid[row] {
			last = row
		}
		if last >= 0 {
			out.copyFrom(row, operand, last)
		}
	}
}

// computeQCut assigns equal-frequency bucket labels 1..buckets in
// ascending value order. Runs of equal values share the bucket of the
// run's first position, so a boundary tie falls in the lower bucket.
func computeQCut(fn *WindowFunctionExpr, operand *vector, part []int, out *vector) error {
	if fn.buckets < 1 {
		return errors.NewTypeMismatchError("Window", "", "qcut needs at least one bucket")
	}
	if operand == nil {
		return errors.NewTypeMismatchError("Window", "", "qcut needs an operand")
	}
	ranked := make([]int, 0, len(part))
	for _, row := range part {
		if operand.valid[row] {
			ranked = append(ranked, row)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return compareAt(operand, ranked[a], ranked[b]) < 0
	})
	m := len(ranked)
	for pos, row := range ranked {
		bucket := int64(pos*fn.buckets/m) + 1
		if pos > 0 && compareAt(operand, row, ranked[pos-1]) == 0 {
			bucket = out.ints[ranked[pos-1]]
		}
		out.ints[row] = bucket
		out.valid[row] = true
	}
	return nil
}

// computeWindowAggregation broadcasts a group aggregate to every row of
// the partition without collapsing row count.
func (e *Evaluator) computeWindowAggregation(fn *AggregationExpr, operand *vector, part []int, out *vector) error {
	if operand == nil {
		return errors.NewTypeMismatchError("Window", "", "aggregation needs an operand")
	}

	if fn.AggType() == AggCount {
		count := CountValid(operand.valid, part)
		for _, row := range part {
			out.ints[row] = count
			out.valid[row] = true
		}
		return nil
	}

	switch out.kind {
	case kindString:
		value, ok := AggregateStrings(fn.AggType(), operand.strs, operand.valid, part)
		for _, row := range part {
			if ok {
				out.strs[row] = value
				out.valid[row] = true
			}
		}
	case kindInt:
		value, ok := AggregateInts(fn.AggType(), operand.ints, operand.valid, part)
		for _, row := range part {
			if ok {
				out.ints[row] = value
				out.valid[row] = true
			}
		}
	default:
		vf, okFloat := operand.asFloat()
		if !okFloat {
			return errors.NewTypeMismatchError("Window", "",
				fmt.Sprintf("%s cannot aggregate a %s column", fn.AggType(), operand.kind))
		}
		value, ok := AggregateFloats(fn.AggType(), vf.floats, vf.valid, part)
		for _, row := range part {
			if ok {
				out.floats[row] = value
				out.valid[row] = true
			}
		}
	}
	return nil
}
