package expr

import (
	"fmt"
	"strings"
)

// RankMethod selects how ties are resolved by Rank.
type RankMethod int

const (
	// RankMin assigns tied values the lowest rank of the tie group
	// (values [10, 10, 5] descending rank as [1, 1, 3]).
	RankMin RankMethod = iota
	// RankOrdinal assigns stable distinct ranks in encounter order.
	RankOrdinal
	// RankRandom breaks ties arbitrarily. The tie-break RNG is seeded
	// from config.RankTieSeed; with a zero seed the output is
	// non-reproducible, which call sites must accept explicitly by
	// choosing this method.
	RankRandom
)

func (m RankMethod) String() string {
	switch m {
	case RankMin:
		return "min"
	case RankOrdinal:
		return "ordinal"
	default:
		return "random"
	}
}

// SortOrder is one ordering key of a window.
type SortOrder struct {
	Column     string
	Descending bool
}

// WindowSpec scopes window functions to partitions of the table without
// collapsing row count, with an optional in-partition ordering.
type WindowSpec struct {
	partitionBy []string
	orderBy     []SortOrder
}

// NewWindow creates an empty window specification.
func NewWindow() *WindowSpec { return &WindowSpec{} }

// Over is shorthand for NewWindow().PartitionBy(columns...).
func Over(columns ...string) *WindowSpec {
	return NewWindow().PartitionBy(columns...)
}

// PartitionBy sets the partition key columns.
func (w *WindowSpec) PartitionBy(columns ...string) *WindowSpec {
	return &WindowSpec{partitionBy: columns, orderBy: w.orderBy}
}

// OrderBy appends an ordering key; rows inside each partition are
// visited in this order by ranking, running and filling functions.
func (w *WindowSpec) OrderBy(column string, descending bool) *WindowSpec {
	orderBy := make([]SortOrder, len(w.orderBy)+1)
	copy(orderBy, w.orderBy)
	orderBy[len(w.orderBy)] = SortOrder{Column: column, Descending: descending}
	return &WindowSpec{partitionBy: w.partitionBy, orderBy: orderBy}
}

// PartitionColumns returns the partition key column names.
func (w *WindowSpec) PartitionColumns() []string { return w.partitionBy }

// Ordering returns the in-partition ordering keys.
func (w *WindowSpec) Ordering() []SortOrder { return w.orderBy }

// String renders the window spec in SQL-like form.
func (w *WindowSpec) String() string {
	var parts []string
	if len(w.partitionBy) > 0 {
		parts = append(parts, "partition by "+strings.Join(w.partitionBy, ", "))
	}
	for _, o := range w.orderBy {
		dir := "asc"
		if o.Descending {
			dir = "desc"
		}
		parts = append(parts, fmt.Sprintf("order by %s %s", o.Column, dir))
	}
	return "over (" + strings.Join(parts, " ") + ")"
}

// WindowFunctionExpr is a window-specific function (rank, running sum,
// rolling mean, forward fill, quantile binning). It only becomes
// evaluable once bound to a WindowSpec via Over.
type WindowFunctionExpr struct {
	funcName   string
	operand    Expr
	descending bool
	rankMethod RankMethod
	windowSize int
	minPeriods int
	buckets    int
}

func (w *WindowFunctionExpr) Type() ExprType { return ExprWindowFunction }

func (w *WindowFunctionExpr) String() string {
	if w.operand == nil {
		return fmt.Sprintf("%s()", w.funcName)
	}
	return fmt.Sprintf("%s(%s)", w.funcName, w.operand.String())
}

// Over binds the window function to a window specification.
func (w *WindowFunctionExpr) Over(window *WindowSpec) *WindowExpr {
	return &WindowExpr{function: w, window: window}
}

// WindowExpr is a window function or aggregation bound to a window.
type WindowExpr struct {
	function Expr
	window   *WindowSpec
}

func (w *WindowExpr) Type() ExprType { return ExprWindow }

func (w *WindowExpr) String() string {
	return fmt.Sprintf("%s %s", w.function.String(), w.window.String())
}

func (w *WindowExpr) Function() Expr      { return w.function }
func (w *WindowExpr) Window() *WindowSpec { return w.window }

func (w *WindowExpr) As(name string) *AliasExpr { return As(w, name) }

// Window function constructors

// RowNumber numbers rows 1..n inside each partition in window order.
func RowNumber() *WindowFunctionExpr {
	return &WindowFunctionExpr{funcName: "row_number"}
}

// Rank ranks the operand values inside each partition. The tie method
// must be stated explicitly at every call site because it changes
// output determinism.
func Rank(operand Expr, descending bool, method RankMethod) *WindowFunctionExpr {
	return &WindowFunctionExpr{
		funcName:   "rank",
		operand:    operand,
		descending: descending,
		rankMethod: method,
	}
}

// CumSum computes the running sum of the operand in window order. Null
// inputs stay null and leave the running total unchanged.
func CumSum(operand Expr) *WindowFunctionExpr {
	return &WindowFunctionExpr{funcName: "cum_sum", operand: operand}
}

// RollingMean computes a trailing mean over windowSize rows (including
// the current one). Rows with fewer than minPeriods observations yield
// null.
func RollingMean(operand Expr, windowSize, minPeriods int) *WindowFunctionExpr {
	return &WindowFunctionExpr{
		funcName:   "rolling_mean",
		operand:    operand,
		windowSize: windowSize,
		minPeriods: minPeriods,
	}
}

// ForwardFill propagates the last non-null operand value forward in
// window order.
func ForwardFill(operand Expr) *WindowFunctionExpr {
	return &WindowFunctionExpr{funcName: "forward_fill", operand: operand}
}

// QCut bins the operand into buckets of (approximately) equal frequency
// per partition, labelled 1..buckets in ascending value order. Boundary
// ties make exact bucket membership implementation-defined: here a
// value tied on a boundary falls in the lower bucket.
func QCut(operand Expr, buckets int) *WindowFunctionExpr {
	return &WindowFunctionExpr{funcName: "qcut", operand: operand, buckets: buckets}
}

// Window function methods on column expressions.

func (c *ColumnExpr) CumSum() *WindowFunctionExpr { return CumSum(c) }

func (c *ColumnExpr) RollingMean(windowSize, minPeriods int) *WindowFunctionExpr {
	return RollingMean(c, windowSize, minPeriods)
}

func (c *ColumnExpr) ForwardFill() *WindowFunctionExpr { return ForwardFill(c) }

func (c *ColumnExpr) Rank(descending bool, method RankMethod) *WindowFunctionExpr {
	return Rank(c, descending, method)
}

func (c *ColumnExpr) QCut(buckets int) *WindowFunctionExpr { return QCut(c, buckets) }

// Over binds an aggregation to a window, broadcasting the aggregate to
// every row of its partition instead of collapsing the group.
func (a *AggregationExpr) Over(window *WindowSpec) *WindowExpr {
	return &WindowExpr{function: a, window: window}
}
