// Package expr provides lazily-evaluated, composable expressions over
// table columns. An expression is a tree of nodes (column references,
// literals, operators, conditional chains, window specifications) that
// is not bound to any table until evaluation, so the same expression
// value can be reused across pipeline variants.
package expr

import (
	"fmt"
	"strings"
)

// ExprType discriminates expression node kinds.
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprLiteral
	ExprBinary
	ExprUnary
	ExprFunction
	ExprAggregation
	ExprCase
	ExprAlias
	ExprWindow
	ExprWindowFunction
)

// Expr represents an expression that can be evaluated lazily against a
// table.
type Expr interface {
	Type() ExprType
	String() string
}

// ColumnExpr references a column by name.
type ColumnExpr struct {
	name string
}

func (c *ColumnExpr) Type() ExprType { return ExprColumn }

func (c *ColumnExpr) String() string { return fmt.Sprintf("col(%s)", c.name) }

// Name returns the referenced column name.
func (c *ColumnExpr) Name() string { return c.name }

// LiteralExpr holds a constant value (string, int64, float64 or bool;
// nil means a typed null decided at evaluation).
type LiteralExpr struct {
	value any
}

func (l *LiteralExpr) Type() ExprType { return ExprLiteral }

func (l *LiteralExpr) String() string { return fmt.Sprintf("lit(%v)", l.value) }

// Value returns the literal value.
func (l *LiteralExpr) Value() any { return l.value }

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	default:
		return "||"
	}
}

// BinaryExpr applies a binary operator to two sub-expressions.
type BinaryExpr struct {
	left  Expr
	op    BinaryOp
	right Expr
}

func (b *BinaryExpr) Type() ExprType { return ExprBinary }

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left.String(), b.op, b.right.String())
}

func (b *BinaryExpr) Left() Expr   { return b.left }
func (b *BinaryExpr) Op() BinaryOp { return b.op }
func (b *BinaryExpr) Right() Expr  { return b.right }

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// UnaryExpr applies a unary operator to one sub-expression.
type UnaryExpr struct {
	op      UnaryOp
	operand Expr
}

func (u *UnaryExpr) Type() ExprType { return ExprUnary }

func (u *UnaryExpr) String() string {
	if u.op == UnaryNeg {
		return fmt.Sprintf("(-%s)", u.operand.String())
	}
	return fmt.Sprintf("(!%s)", u.operand.String())
}

func (u *UnaryExpr) Op() UnaryOp   { return u.op }
func (u *UnaryExpr) Operand() Expr { return u.operand }

// FunctionExpr applies a named function to argument expressions. The
// evaluator dispatches on the name.
type FunctionExpr struct {
	name string
	args []Expr
}

func (f *FunctionExpr) Type() ExprType { return ExprFunction }

func (f *FunctionExpr) String() string {
	argStrs := make([]string, len(f.args))
	for i, arg := range f.args {
		argStrs[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", f.name, strings.Join(argStrs, ", "))
}

func (f *FunctionExpr) Name() string { return f.name }
func (f *FunctionExpr) Args() []Expr { return f.args }

// AliasExpr names the result column of its inner expression.
type AliasExpr struct {
	inner Expr
	name  string
}

func (a *AliasExpr) Type() ExprType { return ExprAlias }

func (a *AliasExpr) String() string {
	return fmt.Sprintf("%s as %s", a.inner.String(), a.name)
}

func (a *AliasExpr) Inner() Expr { return a.inner }
func (a *AliasExpr) Name() string { return a.name }

// OutputName resolves the column name an expression produces: an alias
// if present, the referenced name for plain column expressions, and a
// generated name for aggregations. Other expressions must be aliased.
func OutputName(e Expr) (string, error) {
	switch ex := e.(type) {
	case *AliasExpr:
		return ex.name, nil
	case *ColumnExpr:
		return ex.name, nil
	case *AggregationExpr:
		return ex.OutputName(), nil
	default:
		return "", fmt.Errorf("expression %s has no output name; use As", e.String())
	}
}

// Constructor functions

// Col creates a column reference expression.
func Col(name string) *ColumnExpr { return &ColumnExpr{name: name} }

// Lit creates a literal expression. Integer literals of any Go int type
// are widened to int64.
func Lit(value any) *LiteralExpr {
	switch v := value.(type) {
	case int:
		return &LiteralExpr{value: int64(v)}
	case int32:
		return &LiteralExpr{value: int64(v)}
	case float32:
		return &LiteralExpr{value: float64(v)}
	default:
		return &LiteralExpr{value: value}
	}
}

// NewFunction creates a function expression by name.
func NewFunction(name string, args ...Expr) *FunctionExpr {
	return &FunctionExpr{name: name, args: args}
}

// As names the result of any expression.
func As(e Expr, name string) *AliasExpr { return &AliasExpr{inner: e, name: name} }

func binary(left Expr, op BinaryOp, right Expr) *BinaryExpr {
	return &BinaryExpr{left: left, op: op, right: right}
}

// Fluent builders on column expressions.

func (c *ColumnExpr) Add(other Expr) *BinaryExpr { return binary(c, OpAdd, other) }
func (c *ColumnExpr) Sub(other Expr) *BinaryExpr { return binary(c, OpSub, other) }
func (c *ColumnExpr) Mul(other Expr) *BinaryExpr { return binary(c, OpMul, other) }
func (c *ColumnExpr) Div(other Expr) *BinaryExpr { return binary(c, OpDiv, other) }
func (c *ColumnExpr) Eq(other Expr) *BinaryExpr  { return binary(c, OpEq, other) }
func (c *ColumnExpr) Ne(other Expr) *BinaryExpr  { return binary(c, OpNe, other) }
func (c *ColumnExpr) Lt(other Expr) *BinaryExpr  { return binary(c, OpLt, other) }
func (c *ColumnExpr) Le(other Expr) *BinaryExpr  { return binary(c, OpLe, other) }
func (c *ColumnExpr) Gt(other Expr) *BinaryExpr  { return binary(c, OpGt, other) }
func (c *ColumnExpr) Ge(other Expr) *BinaryExpr  { return binary(c, OpGe, other) }

func (c *ColumnExpr) Neg() *UnaryExpr { return &UnaryExpr{op: UnaryNeg, operand: c} }
func (c *ColumnExpr) Not() *UnaryExpr { return &UnaryExpr{op: UnaryNot, operand: c} }

func (c *ColumnExpr) As(name string) *AliasExpr { return As(c, name) }

// Fluent builders on binary expressions for chaining.

func (b *BinaryExpr) Add(other Expr) *BinaryExpr { return binary(b, OpAdd, other) }
func (b *BinaryExpr) Sub(other Expr) *BinaryExpr { return binary(b, OpSub, other) }
func (b *BinaryExpr) Mul(other Expr) *BinaryExpr { return binary(b, OpMul, other) }
func (b *BinaryExpr) Div(other Expr) *BinaryExpr { return binary(b, OpDiv, other) }
func (b *BinaryExpr) And(other Expr) *BinaryExpr { return binary(b, OpAnd, other) }
func (b *BinaryExpr) Or(other Expr) *BinaryExpr  { return binary(b, OpOr, other) }
func (b *BinaryExpr) Eq(other Expr) *BinaryExpr  { return binary(b, OpEq, other) }
func (b *BinaryExpr) Gt(other Expr) *BinaryExpr  { return binary(b, OpGt, other) }
func (b *BinaryExpr) Not() *UnaryExpr            { return &UnaryExpr{op: UnaryNot, operand: b} }

func (b *BinaryExpr) As(name string) *AliasExpr { return As(b, name) }

// Fluent builders on function expressions for chaining.

func (f *FunctionExpr) Add(other Expr) *BinaryExpr { return binary(f, OpAdd, other) }
func (f *FunctionExpr) Sub(other Expr) *BinaryExpr { return binary(f, OpSub, other) }
func (f *FunctionExpr) Mul(other Expr) *BinaryExpr { return binary(f, OpMul, other) }
func (f *FunctionExpr) Div(other Expr) *BinaryExpr { return binary(f, OpDiv, other) }
func (f *FunctionExpr) Eq(other Expr) *BinaryExpr  { return binary(f, OpEq, other) }
func (f *FunctionExpr) Ne(other Expr) *BinaryExpr  { return binary(f, OpNe, other) }
func (f *FunctionExpr) Lt(other Expr) *BinaryExpr  { return binary(f, OpLt, other) }
func (f *FunctionExpr) Gt(other Expr) *BinaryExpr  { return binary(f, OpGt, other) }
func (f *FunctionExpr) Ge(other Expr) *BinaryExpr  { return binary(f, OpGe, other) }

func (f *FunctionExpr) As(name string) *AliasExpr { return As(f, name) }

// Math functions

func (c *ColumnExpr) Abs() *FunctionExpr   { return NewFunction("abs", c) }
func (c *ColumnExpr) Round() *FunctionExpr { return NewFunction("round", c) }
func (c *ColumnExpr) RoundTo(digits int) *FunctionExpr {
	return NewFunction("round", c, Lit(digits))
}
func (c *ColumnExpr) Floor() *FunctionExpr { return NewFunction("floor", c) }
func (c *ColumnExpr) Ceil() *FunctionExpr  { return NewFunction("ceil", c) }

func (f *FunctionExpr) Abs() *FunctionExpr   { return NewFunction("abs", f) }
func (f *FunctionExpr) Round() *FunctionExpr { return NewFunction("round", f) }
func (f *FunctionExpr) RoundTo(digits int) *FunctionExpr {
	return NewFunction("round", f, Lit(digits))
}

func (b *BinaryExpr) Round() *FunctionExpr { return NewFunction("round", b) }
func (b *BinaryExpr) RoundTo(digits int) *FunctionExpr {
	return NewFunction("round", b, Lit(digits))
}

// String functions

func (c *ColumnExpr) Upper() *FunctionExpr  { return NewFunction("upper", c) }
func (c *ColumnExpr) Lower() *FunctionExpr  { return NewFunction("lower", c) }
func (c *ColumnExpr) Trim() *FunctionExpr   { return NewFunction("trim", c) }
func (c *ColumnExpr) Length() *FunctionExpr { return NewFunction("length", c) }
func (c *ColumnExpr) Substring(start, length int) *FunctionExpr {
	return NewFunction("substring", c, Lit(start), Lit(length))
}

func (f *FunctionExpr) Upper() *FunctionExpr  { return NewFunction("upper", f) }
func (f *FunctionExpr) Lower() *FunctionExpr  { return NewFunction("lower", f) }
func (f *FunctionExpr) Trim() *FunctionExpr   { return NewFunction("trim", f) }
func (f *FunctionExpr) Length() *FunctionExpr { return NewFunction("length", f) }
func (f *FunctionExpr) Substring(start, length int) *FunctionExpr {
	return NewFunction("substring", f, Lit(start), Lit(length))
}

// Extract returns the capture group (1-based) of the first regex match.
// Rows with no match, or where the group did not participate, yield
// null rather than an error.
func (c *ColumnExpr) Extract(pattern string, group int) *FunctionExpr {
	return NewFunction("extract", c, Lit(pattern), Lit(group))
}

func (f *FunctionExpr) Extract(pattern string, group int) *FunctionExpr {
	return NewFunction("extract", f, Lit(pattern), Lit(group))
}

// ReplaceMany applies pattern→replacement pairs positionally, in order.
// Patterns are plain substrings.
func (c *ColumnExpr) ReplaceMany(patterns, replacements []string) *FunctionExpr {
	return NewFunction("replace_many", c, &LiteralExpr{value: patterns}, &LiteralExpr{value: replacements})
}

// ReplaceAll is regex find/replace over the whole string.
func (c *ColumnExpr) ReplaceAll(pattern, replacement string) *FunctionExpr {
	return NewFunction("replace_all", c, Lit(pattern), Lit(replacement))
}

// ParseNumber parses numeric strings with optional unit suffixes:
// K, M and B multiply by 1e3, 1e6 and 1e9; no suffix multiplies by 1.
// Leading currency symbols and thousands separators are stripped.
func (c *ColumnExpr) ParseNumber() *FunctionExpr { return NewFunction("parse_number", c) }

func (f *FunctionExpr) ParseNumber() *FunctionExpr { return NewFunction("parse_number", f) }

// Date functions. Dates are carried as int64 days since the Unix epoch.

// ToDate parses a string column into epoch days with an explicit Go
// time layout.
func (c *ColumnExpr) ToDate(layout string) *FunctionExpr {
	return NewFunction("to_date", c, Lit(layout))
}

func (f *FunctionExpr) ToDate(layout string) *FunctionExpr {
	return NewFunction("to_date", f, Lit(layout))
}

// FormatDate renders an epoch-days column with a Go time layout.
func (c *ColumnExpr) FormatDate(layout string) *FunctionExpr {
	return NewFunction("format_date", c, Lit(layout))
}

func (f *FunctionExpr) FormatDate(layout string) *FunctionExpr {
	return NewFunction("format_date", f, Lit(layout))
}

func (c *ColumnExpr) Year() *FunctionExpr  { return NewFunction("year", c) }
func (c *ColumnExpr) Month() *FunctionExpr { return NewFunction("month", c) }
func (c *ColumnExpr) Day() *FunctionExpr   { return NewFunction("day", c) }

func (f *FunctionExpr) Year() *FunctionExpr  { return NewFunction("year", f) }
func (f *FunctionExpr) Month() *FunctionExpr { return NewFunction("month", f) }
func (f *FunctionExpr) Day() *FunctionExpr   { return NewFunction("day", f) }

// Type casts

func (c *ColumnExpr) CastToString() *FunctionExpr  { return NewFunction("cast_string", c) }
func (c *ColumnExpr) CastToInt64() *FunctionExpr   { return NewFunction("cast_int64", c) }
func (c *ColumnExpr) CastToFloat64() *FunctionExpr { return NewFunction("cast_float64", c) }
func (c *ColumnExpr) CastToBool() *FunctionExpr    { return NewFunction("cast_bool", c) }

func (f *FunctionExpr) CastToString() *FunctionExpr  { return NewFunction("cast_string", f) }
func (f *FunctionExpr) CastToInt64() *FunctionExpr   { return NewFunction("cast_int64", f) }
func (f *FunctionExpr) CastToFloat64() *FunctionExpr { return NewFunction("cast_float64", f) }
func (f *FunctionExpr) CastToBool() *FunctionExpr    { return NewFunction("cast_bool", f) }

// Conditional constructors

// If is a two-armed conditional.
func If(condition, thenValue, elseValue Expr) *FunctionExpr {
	return NewFunction("if", condition, thenValue, elseValue)
}

// Coalesce returns the first non-null argument per row.
func Coalesce(exprs ...Expr) *FunctionExpr { return NewFunction("coalesce", exprs...) }

// Concat concatenates string representations of its arguments per row.
func Concat(exprs ...Expr) *FunctionExpr { return NewFunction("concat", exprs...) }

// CaseWhen is one condition/value arm of a CASE chain.
type CaseWhen struct {
	condition Expr
	value     Expr
}

// CaseExpr is a conditional chain evaluated top to bottom with strict
// first-match-wins semantics: the first arm whose condition holds
// supplies the value, later arms are never consulted for that row, and
// a row matching no arm yields the Else value or null.
type CaseExpr struct {
	whens     []CaseWhen
	elseValue Expr
}

func (c *CaseExpr) Type() ExprType { return ExprCase }

func (c *CaseExpr) String() string {
	var sb strings.Builder
	sb.WriteString("case")
	for _, w := range c.whens {
		fmt.Fprintf(&sb, " when %s then %s", w.condition.String(), w.value.String())
	}
	if c.elseValue != nil {
		fmt.Fprintf(&sb, " else %s", c.elseValue.String())
	}
	sb.WriteString(" end")
	return sb.String()
}

func (c *CaseExpr) Whens() []CaseWhen { return c.whens }
func (c *CaseExpr) ElseValue() Expr   { return c.elseValue }

func (w CaseWhen) Condition() Expr { return w.condition }
func (w CaseWhen) Value() Expr     { return w.value }

// Case starts a new conditional chain.
func Case() *CaseExpr { return &CaseExpr{} }

// When appends a condition/value arm.
func (c *CaseExpr) When(condition, value Expr) *CaseExpr {
	whens := make([]CaseWhen, len(c.whens)+1)
	copy(whens, c.whens)
	whens[len(c.whens)] = CaseWhen{condition: condition, value: value}
	return &CaseExpr{whens: whens, elseValue: c.elseValue}
}

// Else sets the default value.
func (c *CaseExpr) Else(value Expr) *CaseExpr {
	return &CaseExpr{whens: c.whens, elseValue: value}
}

func (c *CaseExpr) As(name string) *AliasExpr { return As(c, name) }

// AggregationType enumerates aggregation functions.
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggMean
	AggMedian
	AggMin
	AggMax
	AggFirst
)

func (a AggregationType) String() string {
	switch a {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggMean:
		return "mean"
	case AggMedian:
		return "median"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	default:
		return "first"
	}
}

// AggregationExpr aggregates a column expression, either collapsing a
// group (GroupBy.Agg) or broadcasting over a window partition (Over).
type AggregationExpr struct {
	column  Expr
	aggType AggregationType
	alias   string
}

func (a *AggregationExpr) Type() ExprType { return ExprAggregation }

func (a *AggregationExpr) String() string {
	return fmt.Sprintf("%s(%s)", a.aggType, a.column.String())
}

func (a *AggregationExpr) Column() Expr             { return a.column }
func (a *AggregationExpr) AggType() AggregationType { return a.aggType }
func (a *AggregationExpr) Alias() string            { return a.alias }

// OutputName is the alias if set, otherwise "<column>_<agg>".
func (a *AggregationExpr) OutputName() string {
	if a.alias != "" {
		return a.alias
	}
	if col, ok := a.column.(*ColumnExpr); ok {
		return fmt.Sprintf("%s_%s", col.Name(), a.aggType)
	}
	return a.aggType.String()
}

// As sets the output column name of the aggregation.
func (a *AggregationExpr) As(alias string) *AggregationExpr {
	return &AggregationExpr{column: a.column, aggType: a.aggType, alias: alias}
}

// Aggregation constructors

func Sum(column Expr) *AggregationExpr    { return &AggregationExpr{column: column, aggType: AggSum} }
func Count(column Expr) *AggregationExpr  { return &AggregationExpr{column: column, aggType: AggCount} }
func Mean(column Expr) *AggregationExpr   { return &AggregationExpr{column: column, aggType: AggMean} }
func Median(column Expr) *AggregationExpr { return &AggregationExpr{column: column, aggType: AggMedian} }
func Min(column Expr) *AggregationExpr    { return &AggregationExpr{column: column, aggType: AggMin} }
func Max(column Expr) *AggregationExpr    { return &AggregationExpr{column: column, aggType: AggMax} }
func First(column Expr) *AggregationExpr  { return &AggregationExpr{column: column, aggType: AggFirst} }

// Aggregation methods on column expressions.

func (c *ColumnExpr) Sum() *AggregationExpr    { return Sum(c) }
func (c *ColumnExpr) Count() *AggregationExpr  { return Count(c) }
func (c *ColumnExpr) Mean() *AggregationExpr   { return Mean(c) }
func (c *ColumnExpr) Median() *AggregationExpr { return Median(c) }
func (c *ColumnExpr) Min() *AggregationExpr    { return Min(c) }
func (c *ColumnExpr) Max() *AggregationExpr    { return Max(c) }
func (c *ColumnExpr) First() *AggregationExpr  { return First(c) }
