// Package prepd is a tabular pipeline engine: immutable Arrow-backed
// tables, lazy composable expressions, window functions and relational
// operators, built for data preparation pipelines. This package is the
// sole public API; implementation lives under internal/.
package prepd

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/prepd/prepd/internal/config"
	"github.com/prepd/prepd/internal/expr"
	"github.com/prepd/prepd/internal/io"
	"github.com/prepd/prepd/internal/series"
	"github.com/prepd/prepd/internal/table"
)

// Core types.
type (
	// Table is an immutable ordered collection of named columns.
	Table = table.Table
	// GroupedTable is a table with a pending grouping.
	GroupedTable = table.GroupedTable
	// Column is one named, typed, nullable column.
	Column = series.Column
	// Expr is a deferred computation over table columns.
	Expr = expr.Expr
	// SortOrder is one ordering key.
	SortOrder = expr.SortOrder
	// WindowSpec scopes window functions to partitions.
	WindowSpec = expr.WindowSpec
	// JoinOptions configures Table.Join.
	JoinOptions = table.JoinOptions
	// JoinType selects join semantics.
	JoinType = table.JoinType
	// RankMethod selects rank tie resolution.
	RankMethod = expr.RankMethod
	// AggregationType enumerates aggregation functions.
	AggregationType = expr.AggregationType
	// Config tunes engine behavior.
	Config = config.Config
	// Lookup is an immutable string-to-string reference table.
	Lookup = config.Lookup
	// CSVOptions configures CSV reading.
	CSVOptions = io.CSVOptions
	// ExcelOptions configures workbook reading.
	ExcelOptions = io.ExcelOptions
	// ColumnType names a CSV schema override target type.
	ColumnType = io.ColumnType
)

// Join types.
const (
	InnerJoin = table.JoinInner
	LeftJoin  = table.JoinLeft
	AntiJoin  = table.JoinAnti
	CrossJoin = table.JoinCross
)

// Rank tie methods.
const (
	RankMin     = expr.RankMin
	RankOrdinal = expr.RankOrdinal
	RankRandom  = expr.RankRandom
)

// Aggregation types, for pivot aggregations.
const (
	AggSum    = expr.AggSum
	AggCount  = expr.AggCount
	AggMean   = expr.AggMean
	AggMedian = expr.AggMedian
	AggMin    = expr.AggMin
	AggMax    = expr.AggMax
	AggFirst  = expr.AggFirst
)

// CSV schema override types.
const (
	TypeString  = io.TypeString
	TypeInt64   = io.TypeInt64
	TypeFloat64 = io.TypeFloat64
	TypeBool    = io.TypeBool
)

// NewTable creates a table taking ownership of the given columns.
func NewTable(mem memory.Allocator, columns ...*Column) (*Table, error) {
	return table.New(mem, columns...)
}

// NewColumn creates a typed column from values.
func NewColumn[T any](name string, values []T, mem memory.Allocator) *Column {
	return series.New(name, values, mem)
}

// NewColumnWithNulls creates a typed column with a validity mask.
func NewColumnWithNulls[T any](name string, values []T, valid []bool, mem memory.Allocator) *Column {
	return series.NewWithNulls(name, values, valid, mem)
}

// Expression constructors.

// Col references a column by name.
func Col(name string) *expr.ColumnExpr { return expr.Col(name) }

// Lit is a literal value.
func Lit(value any) *expr.LiteralExpr { return expr.Lit(value) }

// As names the result of any expression.
func As(e Expr, name string) *expr.AliasExpr { return expr.As(e, name) }

// Case starts a first-match-wins conditional chain.
func Case() *expr.CaseExpr { return expr.Case() }

// If is a two-armed conditional.
func If(condition, thenValue, elseValue Expr) *expr.FunctionExpr {
	return expr.If(condition, thenValue, elseValue)
}

// Coalesce returns the first non-null argument per row.
func Coalesce(exprs ...Expr) *expr.FunctionExpr { return expr.Coalesce(exprs...) }

// ConcatStr concatenates string representations of its arguments per
// row.
func ConcatStr(exprs ...Expr) *expr.FunctionExpr { return expr.Concat(exprs...) }

// Aggregations.

func Sum(column Expr) *expr.AggregationExpr    { return expr.Sum(column) }
func Count(column Expr) *expr.AggregationExpr  { return expr.Count(column) }
func Mean(column Expr) *expr.AggregationExpr   { return expr.Mean(column) }
func Median(column Expr) *expr.AggregationExpr { return expr.Median(column) }
func Min(column Expr) *expr.AggregationExpr    { return expr.Min(column) }
func Max(column Expr) *expr.AggregationExpr    { return expr.Max(column) }
func First(column Expr) *expr.AggregationExpr  { return expr.First(column) }

// Window functions.

// NewWindow creates an empty window specification.
func NewWindow() *WindowSpec { return expr.NewWindow() }

// Over partitions a window by the given columns.
func Over(columns ...string) *WindowSpec { return expr.Over(columns...) }

// RowNumber numbers rows 1..n inside each partition in window order.
func RowNumber() *expr.WindowFunctionExpr { return expr.RowNumber() }

// Rank ranks operand values inside each partition with an explicit tie
// method.
func Rank(operand Expr, descending bool, method RankMethod) *expr.WindowFunctionExpr {
	return expr.Rank(operand, descending, method)
}

// CumSum is the running sum of the operand in window order.
func CumSum(operand Expr) *expr.WindowFunctionExpr { return expr.CumSum(operand) }

// RollingMean is a trailing mean over windowSize rows.
func RollingMean(operand Expr, windowSize, minPeriods int) *expr.WindowFunctionExpr {
	return expr.RollingMean(operand, windowSize, minPeriods)
}

// ForwardFill propagates the last non-null value forward in window
// order.
func ForwardFill(operand Expr) *expr.WindowFunctionExpr { return expr.ForwardFill(operand) }

// QCut bins the operand into equal-frequency buckets per partition.
func QCut(operand Expr, buckets int) *expr.WindowFunctionExpr { return expr.QCut(operand, buckets) }

// Table-level operations.

// Concat stacks tables with identical schemas.
func Concat(tables ...*Table) (*Table, error) { return table.Concat(tables...) }

// DiagonalConcat stacks tables over the union of their columns,
// null-filling gaps.
func DiagonalConcat(tables ...*Table) (*Table, error) { return table.DiagonalConcat(tables...) }

// IO.

// DefaultCSVOptions reads comma-separated input with a header row.
func DefaultCSVOptions() CSVOptions { return io.DefaultCSVOptions() }

// DefaultExcelOptions reads the first sheet with a header row.
func DefaultExcelOptions() ExcelOptions { return io.DefaultExcelOptions() }

// ReadCSVFile reads a CSV file into a table.
func ReadCSVFile(path string, options CSVOptions, mem memory.Allocator) (*Table, error) {
	return io.ReadCSVFile(path, options, mem)
}

// ReadExcelFile reads one workbook sheet into a table.
func ReadExcelFile(path string, options ExcelOptions, mem memory.Allocator) (*Table, error) {
	return io.ReadExcelFile(path, options, mem)
}

// ReadZip reads every data file in a ZIP archive, keyed by base
// filename.
func ReadZip(path string, options CSVOptions, mem memory.Allocator) (map[string]*Table, error) {
	return io.ReadZip(path, options, mem)
}

// WriteCSVFile writes a table to path as CSV with a header row.
func WriteCSVFile(path string, tbl *Table) error { return io.WriteCSVFile(path, tbl) }

// WriteNDJSONFile writes a table to path as newline-delimited JSON.
func WriteNDJSONFile(path string, tbl *Table) error { return io.WriteNDJSONFile(path, tbl) }

// WriteJSONDocumentFile writes named tables to path as one JSON
// object.
func WriteJSONDocumentFile(path string, names []string, tables map[string]*Table) error {
	return io.WriteJSONDocumentFile(path, names, tables)
}

// Configuration.

// GetConfig returns a copy of the global configuration.
func GetConfig() Config { return config.GetConfig() }

// SetConfig replaces the global configuration.
func SetConfig(cfg Config) { config.SetConfig(cfg) }

// NewLookup copies entries into an immutable lookup.
func NewLookup(name string, entries map[string]string) *Lookup {
	return config.NewLookup(name, entries)
}

// LoadLookup reads a lookup from a YAML file.
func LoadLookup(name, filename string) (*Lookup, error) {
	return config.LoadLookup(name, filename)
}
