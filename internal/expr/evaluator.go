package expr

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prepd/prepd/internal/errors"
)

const secondsPerDay = 86400

// Evaluator evaluates expression trees against the columns of a table.
// Evaluation is lenient for string parsing (failed parses yield null)
// and strict for type mismatches (they abort with a TypeMismatch
// error), matching the behavior pipelines depend on.
type Evaluator struct {
	mem memory.Allocator
}

// NewEvaluator creates an evaluator allocating from mem.
func NewEvaluator(mem memory.Allocator) *Evaluator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Evaluator{mem: mem}
}

// Evaluate evaluates an expression into an Arrow array of length n.
// Columns maps column names to their arrays; n is the table row count
// (needed when the expression references no column).
func (e *Evaluator) Evaluate(ex Expr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	v, err := e.eval(ex, columns, n)
	if err != nil {
		return nil, err
	}
	return v.toArrow(e.mem), nil
}

// EvaluateBoolean evaluates a predicate expression and fails unless the
// result is boolean.
func (e *Evaluator) EvaluateBoolean(ex Expr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	v, err := e.eval(ex, columns, n)
	if err != nil {
		return nil, err
	}
	if v.kind != kindBool {
		return nil, errors.NewTypeMismatchError("Filter", "",
			fmt.Sprintf("predicate %s evaluates to %s, want bool", ex.String(), v.kind))
	}
	return v.toArrow(e.mem), nil
}

func (e *Evaluator) eval(ex Expr, columns map[string]arrow.Array, n int) (*vector, error) {
	switch node := ex.(type) {
	case *AliasExpr:
		return e.eval(node.inner, columns, n)
	case *ColumnExpr:
		arr, ok := columns[node.name]
		if !ok {
			return nil, errors.NewColumnNotFoundError("Evaluate", node.name)
		}
		return fromArrow(arr)
	case *LiteralExpr:
		return broadcastLiteral(node.value, n)
	case *BinaryExpr:
		return e.evalBinary(node, columns, n)
	case *UnaryExpr:
		return e.evalUnary(node, columns, n)
	case *FunctionExpr:
		return e.evalFunction(node, columns, n)
	case *CaseExpr:
		return e.evalCase(node, columns, n)
	case *WindowExpr:
		return e.evalWindow(node, columns, n)
	case *AggregationExpr:
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("aggregation %s is only valid inside GroupBy.Agg or Over", node.String()))
	case *WindowFunctionExpr:
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("window function %s requires Over(window)", node.String()))
	default:
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("unsupported expression type %T", ex))
	}
}

// Binary operators

func (e *Evaluator) evalBinary(node *BinaryExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	left, err := e.eval(node.left, columns, n)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(node.right, columns, n)
	if err != nil {
		return nil, err
	}
	if left.length() != right.length() {
		return nil, errors.NewSchemaError("Evaluate", "",
			fmt.Sprintf("operand lengths differ: %d vs %d", left.length(), right.length()))
	}

	switch node.op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return e.evalArithmetic(left, right, node.op, node)
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return e.evalComparison(left, right, node.op, node)
	default:
		return e.evalLogical(left, right, node.op, node)
	}
}

func (e *Evaluator) evalArithmetic(left, right *vector, op BinaryOp, node *BinaryExpr) (*vector, error) {
	// Integer arithmetic stays integral except division, which always
	// yields floats. Division by zero yields null.
	if left.kind == kindInt && right.kind == kindInt && op != OpDiv {
		out := newVector(kindInt, left.length())
		for i := range out.ints {
			if !left.valid[i] || !right.valid[i] {
				continue
			}
			out.valid[i] = true
			switch op {
			case OpAdd:
				out.ints[i] = left.ints[i] + right.ints[i]
			case OpSub:
				out.ints[i] = left.ints[i] - right.ints[i]
			case OpMul:
				out.ints[i] = left.ints[i] * right.ints[i]
			}
		}
		return out, nil
	}

	lf, lok := left.asFloat()
	rf, rok := right.asFloat()
	if !lok || !rok {
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("arithmetic %s needs numeric operands, got %s and %s", node.String(), left.kind, right.kind))
	}

	out := newVector(kindFloat, lf.length())
	for i := range out.floats {
		if !lf.valid[i] || !rf.valid[i] {
			continue
		}
		switch op {
		case OpAdd:
			out.floats[i] = lf.floats[i] + rf.floats[i]
		case OpSub:
			out.floats[i] = lf.floats[i] - rf.floats[i]
		case OpMul:
			out.floats[i] = lf.floats[i] * rf.floats[i]
		case OpDiv:
			if rf.floats[i] == 0 {
				continue
			}
			out.floats[i] = lf.floats[i] / rf.floats[i]
		}
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalComparison(left, right *vector, op BinaryOp, node *BinaryExpr) (*vector, error) {
	n := left.length()
	out := newVector(kindBool, n)

	compare := func(i int) (int, bool) { return 0, false }

	switch {
	case left.kind == kindString && right.kind == kindString:
		compare = func(i int) (int, bool) {
			return strings.Compare(left.strs[i], right.strs[i]), true
		}
	case left.kind == kindBool && right.kind == kindBool:
		if op != OpEq && op != OpNe {
			return nil, errors.NewTypeMismatchError("Evaluate", "",
				fmt.Sprintf("booleans only support == and != in %s", node.String()))
		}
		compare = func(i int) (int, bool) {
			if left.bools[i] == right.bools[i] {
				return 0, true
			}
			return 1, true
		}
	case left.kind == kindInt && right.kind == kindInt:
		compare = func(i int) (int, bool) {
			switch {
			case left.ints[i] < right.ints[i]:
				return -1, true
			case left.ints[i] > right.ints[i]:
				return 1, true
			}
			return 0, true
		}
	default:
		lf, lok := left.asFloat()
		rf, rok := right.asFloat()
		if !lok || !rok {
			return nil, errors.NewTypeMismatchError("Evaluate", "",
				fmt.Sprintf("cannot compare %s with %s in %s", left.kind, right.kind, node.String()))
		}
		compare = func(i int) (int, bool) {
			switch {
			case lf.floats[i] < rf.floats[i]:
				return -1, true
			case lf.floats[i] > rf.floats[i]:
				return 1, true
			}
			return 0, true
		}
	}

	for i := 0; i < n; i++ {
		if !left.valid[i] || !right.valid[i] {
			continue
		}
		c, ok := compare(i)
		if !ok {
			continue
		}
		switch op {
		case OpEq:
			out.bools[i] = c == 0
		case OpNe:
			out.bools[i] = c != 0
		case OpLt:
			out.bools[i] = c < 0
		case OpLe:
			out.bools[i] = c <= 0
		case OpGt:
			out.bools[i] = c > 0
		case OpGe:
			out.bools[i] = c >= 0
		}
		out.valid[i] = true
	}
	return out, nil
}

// evalLogical applies && and || with strict null propagation: a null
// operand makes the result null.
func (e *Evaluator) evalLogical(left, right *vector, op BinaryOp, node *BinaryExpr) (*vector, error) {
	if left.kind != kindBool || right.kind != kindBool {
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("logical %s needs boolean operands, got %s and %s", node.String(), left.kind, right.kind))
	}
	out := newVector(kindBool, left.length())
	for i := range out.bools {
		if !left.valid[i] || !right.valid[i] {
			continue
		}
		if op == OpAnd {
			out.bools[i] = left.bools[i] && right.bools[i]
		} else {
			out.bools[i] = left.bools[i] || right.bools[i]
		}
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalUnary(node *UnaryExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.eval(node.operand, columns, n)
	if err != nil {
		return nil, err
	}
	switch node.op {
	case UnaryNot:
		if operand.kind != kindBool {
			return nil, errors.NewTypeMismatchError("Evaluate", "", "! needs a boolean operand")
		}
		out := newVector(kindBool, operand.length())
		for i := range out.bools {
			if operand.valid[i] {
				out.bools[i] = !operand.bools[i]
				out.valid[i] = true
			}
		}
		return out, nil
	default:
		switch operand.kind {
		case kindInt:
			out := newVector(kindInt, operand.length())
			for i := range out.ints {
				if operand.valid[i] {
					out.ints[i] = -operand.ints[i]
					out.valid[i] = true
				}
			}
			return out, nil
		case kindFloat:
			out := newVector(kindFloat, operand.length())
			for i := range out.floats {
				if operand.valid[i] {
					out.floats[i] = -operand.floats[i]
					out.valid[i] = true
				}
			}
			return out, nil
		default:
			return nil, errors.NewTypeMismatchError("Evaluate", "", "unary minus needs a numeric operand")
		}
	}
}

// Conditional chain: first matching predicate wins, later arms are
// never consulted for a matched row. A row matching no arm takes the
// else value, or null when none is set. The ordering is load-bearing:
// arms shadowed by earlier ones are intentionally unreachable.
func (e *Evaluator) evalCase(node *CaseExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	conds := make([]*vector, len(node.whens))
	values := make([]*vector, len(node.whens))
	kinds := make([]vecKind, 0, len(node.whens)+1)

	for i, arm := range node.whens {
		cond, err := e.eval(arm.condition, columns, n)
		if err != nil {
			return nil, err
		}
		if cond.kind != kindBool {
			return nil, errors.NewTypeMismatchError("Evaluate", "",
				fmt.Sprintf("case condition %s is %s, want bool", arm.condition.String(), cond.kind))
		}
		value, err := e.eval(arm.value, columns, n)
		if err != nil {
			return nil, err
		}
		conds[i] = cond
		values[i] = value
		kinds = append(kinds, value.kind)
	}

	var elseVec *vector
	if node.elseValue != nil {
		v, err := e.eval(node.elseValue, columns, n)
		if err != nil {
			return nil, err
		}
		elseVec = v
		kinds = append(kinds, v.kind)
	}

	outKind, ok := unifyKinds(kinds)
	if !ok {
		return nil, errors.NewTypeMismatchError("Evaluate", "", "case branches have incompatible types")
	}

	out := newVector(outKind, n)
	for row := 0; row < n; row++ {
		matched := false
		for i := range conds {
			if conds[i].valid[row] && conds[i].bools[row] {
				out.copyFrom(row, values[i], row)
				matched = true
				break
			}
		}
		if !matched && elseVec != nil {
			out.copyFrom(row, elseVec, row)
		}
	}
	return out, nil
}

// Function dispatch

func (e *Evaluator) evalFunction(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	switch node.name {
	case "if":
		return e.evalIf(node, columns, n)
	case "coalesce":
		return e.evalCoalesce(node, columns, n)
	case "concat":
		return e.evalConcat(node, columns, n)
	case "extract":
		return e.evalExtract(node, columns, n)
	case "replace_many":
		return e.evalReplaceMany(node, columns, n)
	case "replace_all":
		return e.evalReplaceAll(node, columns, n)
	case "parse_number":
		return e.evalParseNumber(node, columns, n)
	case "to_date":
		return e.evalToDate(node, columns, n)
	case "format_date":
		return e.evalFormatDate(node, columns, n)
	case "year", "month", "day":
		return e.evalDatePart(node, columns, n)
	case "upper", "lower", "trim":
		return e.evalStringUnary(node, columns, n)
	case "length":
		return e.evalLength(node, columns, n)
	case "substring":
		return e.evalSubstring(node, columns, n)
	case "abs", "floor", "ceil", "round":
		return e.evalMath(node, columns, n)
	case "cast_string", "cast_int64", "cast_float64", "cast_bool":
		return e.evalCast(node, columns, n)
	default:
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("unknown function %q", node.name))
	}
}

func (e *Evaluator) evalIf(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	if len(node.args) != 3 {
		return nil, errors.NewTypeMismatchError("Evaluate", "", "if takes condition, then, else")
	}
	chain := Case().When(node.args[0], node.args[1]).Else(node.args[2])
	return e.evalCase(chain, columns, n)
}

func (e *Evaluator) evalCoalesce(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	if len(node.args) == 0 {
		return nil, errors.NewTypeMismatchError("Evaluate", "", "coalesce needs at least one argument")
	}
	args := make([]*vector, len(node.args))
	kinds := make([]vecKind, len(node.args))
	for i, arg := range node.args {
		v, err := e.eval(arg, columns, n)
		if err != nil {
			return nil, err
		}
		args[i] = v
		kinds[i] = v.kind
	}
	outKind, ok := unifyKinds(kinds)
	if !ok {
		return nil, errors.NewTypeMismatchError("Evaluate", "", "coalesce arguments have incompatible types")
	}
	out := newVector(outKind, n)
	for row := 0; row < n; row++ {
		for _, v := range args {
			if v.valid[row] {
				out.copyFrom(row, v, row)
				break
			}
		}
	}
	return out, nil
}

func (e *Evaluator) evalConcat(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	args := make([]*vector, len(node.args))
	for i, arg := range node.args {
		v, err := e.eval(arg, columns, n)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	out := newVector(kindString, n)
	for row := 0; row < n; row++ {
		var sb strings.Builder
		valid := true
		for _, v := range args {
			if !v.valid[row] {
				valid = false
				break
			}
			sb.WriteString(v.stringAt(row))
		}
		if valid {
			out.strs[row] = sb.String()
			out.valid[row] = true
		}
	}
	return out, nil
}

// evalExtract pulls one regex capture group out of a string column.
// Zero matches propagate null silently; several pipelines rely on
// partial matches flowing through as nulls.
func (e *Evaluator) evalExtract(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, "extract")
	if err != nil {
		return nil, err
	}
	pattern, err := literalString(node.args[1], "extract pattern")
	if err != nil {
		return nil, err
	}
	group, err := literalInt(node.args[2], "extract group")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewTypeMismatchError("Evaluate", "", fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}
	out := newVector(kindString, n)
	g := int(group)
	for i := range operand.strs {
		if !operand.valid[i] {
			continue
		}
		// Submatch indices distinguish an empty capture from a group
		// that did not participate in the match.
		loc := re.FindStringSubmatchIndex(operand.strs[i])
		if loc == nil || 2*g+1 >= len(loc) || loc[2*g] < 0 {
			continue
		}
		out.strs[i] = operand.strs[i][loc[2*g]:loc[2*g+1]]
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalReplaceMany(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, "replace_many")
	if err != nil {
		return nil, err
	}
	patterns, ok1 := literalStrings(node.args[1])
	replacements, ok2 := literalStrings(node.args[2])
	if !ok1 || !ok2 || len(patterns) != len(replacements) {
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			"replace_many needs equal-length pattern and replacement lists")
	}
	out := newVector(kindString, n)
	for i := range operand.strs {
		if !operand.valid[i] {
			continue
		}
		s := operand.strs[i]
		// Pairs apply positionally, in order.
		for j, p := range patterns {
			s = strings.ReplaceAll(s, p, replacements[j])
		}
		out.strs[i] = s
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalReplaceAll(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, "replace_all")
	if err != nil {
		return nil, err
	}
	pattern, err := literalString(node.args[1], "replace_all pattern")
	if err != nil {
		return nil, err
	}
	replacement, err := literalString(node.args[2], "replace_all replacement")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewTypeMismatchError("Evaluate", "", fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}
	out := newVector(kindString, n)
	for i := range operand.strs {
		if operand.valid[i] {
			out.strs[i] = re.ReplaceAllString(operand.strs[i], replacement)
			out.valid[i] = true
		}
	}
	return out, nil
}

var numberCleaner = regexp.MustCompile(`^[^\d\-.]+`)

// evalParseNumber parses numeric strings with K/M/B unit suffixes
// (×1e3/×1e6/×1e9; no suffix means ×1). Currency prefixes and comma
// separators are stripped. Unparseable values yield null.
func (e *Evaluator) evalParseNumber(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, "parse_number")
	if err != nil {
		return nil, err
	}
	out := newVector(kindFloat, n)
	for i := range operand.strs {
		if !operand.valid[i] {
			continue
		}
		s := strings.ReplaceAll(strings.TrimSpace(operand.strs[i]), ",", "")
		s = numberCleaner.ReplaceAllString(s, "")
		multiplier := 1.0
		if len(s) > 0 {
			switch s[len(s)-1] {
			case 'K', 'k':
				multiplier = 1e3
				s = s[:len(s)-1]
			case 'M', 'm':
				multiplier = 1e6
				s = s[:len(s)-1]
			case 'B', 'b':
				multiplier = 1e9
				s = s[:len(s)-1]
			}
		}
		f, parseErr := strconv.ParseFloat(s, 64)
		if parseErr != nil {
			continue
		}
		out.floats[i] = f * multiplier
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalToDate(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, "to_date")
	if err != nil {
		return nil, err
	}
	layout, err := literalString(node.args[1], "to_date layout")
	if err != nil {
		return nil, err
	}
	out := newVector(kindInt, n)
	for i := range operand.strs {
		if !operand.valid[i] {
			continue
		}
		t, parseErr := time.Parse(layout, strings.TrimSpace(operand.strs[i]))
		if parseErr != nil {
			continue
		}
		out.ints[i] = t.Unix() / secondsPerDay
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalFormatDate(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.eval(node.args[0], columns, n)
	if err != nil {
		return nil, err
	}
	if operand.kind != kindInt {
		return nil, errors.NewTypeMismatchError("Evaluate", "", "format_date needs an epoch-days column")
	}
	layout, err := literalString(node.args[1], "format_date layout")
	if err != nil {
		return nil, err
	}
	out := newVector(kindString, n)
	for i := range operand.ints {
		if operand.valid[i] {
			out.strs[i] = time.Unix(operand.ints[i]*secondsPerDay, 0).UTC().Format(layout)
			out.valid[i] = true
		}
	}
	return out, nil
}

func (e *Evaluator) evalDatePart(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.eval(node.args[0], columns, n)
	if err != nil {
		return nil, err
	}
	if operand.kind != kindInt {
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("%s needs an epoch-days column", node.name))
	}
	out := newVector(kindInt, n)
	for i := range operand.ints {
		if !operand.valid[i] {
			continue
		}
		t := time.Unix(operand.ints[i]*secondsPerDay, 0).UTC()
		switch node.name {
		case "year":
			out.ints[i] = int64(t.Year())
		case "month":
			out.ints[i] = int64(t.Month())
		default:
			out.ints[i] = int64(t.Day())
		}
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalStringUnary(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, node.name)
	if err != nil {
		return nil, err
	}
	out := newVector(kindString, n)
	for i := range operand.strs {
		if !operand.valid[i] {
			continue
		}
		switch node.name {
		case "upper":
			out.strs[i] = strings.ToUpper(operand.strs[i])
		case "lower":
			out.strs[i] = strings.ToLower(operand.strs[i])
		default:
			out.strs[i] = strings.TrimSpace(operand.strs[i])
		}
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalLength(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, "length")
	if err != nil {
		return nil, err
	}
	out := newVector(kindInt, n)
	for i := range operand.strs {
		if operand.valid[i] {
			out.ints[i] = int64(len(operand.strs[i]))
			out.valid[i] = true
		}
	}
	return out, nil
}

// evalSubstring slices [start, start+length) with 0-based start,
// clamped to the string bounds.
func (e *Evaluator) evalSubstring(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.evalString(node.args[0], columns, n, "substring")
	if err != nil {
		return nil, err
	}
	start, err := literalInt(node.args[1], "substring start")
	if err != nil {
		return nil, err
	}
	length, err := literalInt(node.args[2], "substring length")
	if err != nil {
		return nil, err
	}
	out := newVector(kindString, n)
	for i := range operand.strs {
		if !operand.valid[i] {
			continue
		}
		s := operand.strs[i]
		from := int(start)
		if from > len(s) {
			from = len(s)
		}
		to := from + int(length)
		if to > len(s) {
			to = len(s)
		}
		out.strs[i] = s[from:to]
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalMath(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.eval(node.args[0], columns, n)
	if err != nil {
		return nil, err
	}
	vf, ok := operand.asFloat()
	if !ok {
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("%s needs a numeric operand, got %s", node.name, operand.kind))
	}
	digits := int64(0)
	if node.name == "round" && len(node.args) > 1 {
		digits, err = literalInt(node.args[1], "round digits")
		if err != nil {
			return nil, err
		}
	}
	out := newVector(kindFloat, n)
	for i := range vf.floats {
		if !vf.valid[i] {
			continue
		}
		switch node.name {
		case "abs":
			out.floats[i] = math.Abs(vf.floats[i])
		case "floor":
			out.floats[i] = math.Floor(vf.floats[i])
		case "ceil":
			out.floats[i] = math.Ceil(vf.floats[i])
		default:
			scale := math.Pow(10, float64(digits))
			out.floats[i] = math.Round(vf.floats[i]*scale) / scale
		}
		out.valid[i] = true
	}
	return out, nil
}

func (e *Evaluator) evalCast(node *FunctionExpr, columns map[string]arrow.Array, n int) (*vector, error) {
	operand, err := e.eval(node.args[0], columns, n)
	if err != nil {
		return nil, err
	}
	switch node.name {
	case "cast_string":
		out := newVector(kindString, n)
		for i := 0; i < n; i++ {
			if operand.valid[i] {
				out.strs[i] = operand.stringAt(i)
				out.valid[i] = true
			}
		}
		return out, nil
	case "cast_int64":
		out := newVector(kindInt, n)
		for i := 0; i < n; i++ {
			if !operand.valid[i] {
				continue
			}
			switch operand.kind {
			case kindInt:
				out.ints[i] = operand.ints[i]
			case kindFloat:
				out.ints[i] = int64(operand.floats[i])
			case kindBool:
				if operand.bools[i] {
					out.ints[i] = 1
				}
			case kindString:
				v, parseErr := strconv.ParseInt(strings.TrimSpace(operand.strs[i]), 10, 64)
				if parseErr != nil {
					continue
				}
				out.ints[i] = v
			}
			out.valid[i] = true
		}
		return out, nil
	case "cast_float64":
		out := newVector(kindFloat, n)
		for i := 0; i < n; i++ {
			if !operand.valid[i] {
				continue
			}
			switch operand.kind {
			case kindInt:
				out.floats[i] = float64(operand.ints[i])
			case kindFloat:
				out.floats[i] = operand.floats[i]
			case kindBool:
				if operand.bools[i] {
					out.floats[i] = 1
				}
			case kindString:
				v, parseErr := strconv.ParseFloat(strings.TrimSpace(operand.strs[i]), 64)
				if parseErr != nil {
					continue
				}
				out.floats[i] = v
			}
			out.valid[i] = true
		}
		return out, nil
	default: // cast_bool
		out := newVector(kindBool, n)
		for i := 0; i < n; i++ {
			if !operand.valid[i] {
				continue
			}
			switch operand.kind {
			case kindBool:
				out.bools[i] = operand.bools[i]
			case kindInt:
				out.bools[i] = operand.ints[i] != 0
			case kindFloat:
				out.bools[i] = operand.floats[i] != 0
			case kindString:
				switch strings.ToLower(strings.TrimSpace(operand.strs[i])) {
				case "true", "yes", "1":
					out.bools[i] = true
				case "false", "no", "0":
					out.bools[i] = false
				default:
					continue
				}
			}
			out.valid[i] = true
		}
		return out, nil
	}
}

// Helpers

func (e *Evaluator) evalString(ex Expr, columns map[string]arrow.Array, n int, op string) (*vector, error) {
	v, err := e.eval(ex, columns, n)
	if err != nil {
		return nil, err
	}
	if v.kind != kindString {
		return nil, errors.NewTypeMismatchError("Evaluate", "",
			fmt.Sprintf("%s needs a string operand, got %s; cast explicitly", op, v.kind))
	}
	return v, nil
}

func literalString(ex Expr, what string) (string, error) {
	lit, ok := ex.(*LiteralExpr)
	if !ok {
		return "", errors.NewTypeMismatchError("Evaluate", "", what+" must be a literal")
	}
	s, ok := lit.value.(string)
	if !ok {
		return "", errors.NewTypeMismatchError("Evaluate", "", what+" must be a string literal")
	}
	return s, nil
}

func literalInt(ex Expr, what string) (int64, error) {
	lit, ok := ex.(*LiteralExpr)
	if !ok {
		return 0, errors.NewTypeMismatchError("Evaluate", "", what+" must be a literal")
	}
	switch v := lit.value.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, errors.NewTypeMismatchError("Evaluate", "", what+" must be an integer literal")
	}
}

func literalStrings(ex Expr) ([]string, bool) {
	lit, ok := ex.(*LiteralExpr)
	if !ok {
		return nil, false
	}
	s, ok := lit.value.([]string)
	return s, ok
}
