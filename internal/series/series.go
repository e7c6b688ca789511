// Package series provides named, typed, nullable columns backed by
// Apache Arrow arrays. A Column is immutable once built; operators that
// change values build a new Column.
package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column is a type-erased named column over an Arrow array. The
// supported value types are string, int64, float64 and bool; every slot
// may be null.
type Column struct {
	name  string
	array arrow.Array
}

// New creates a Column from a slice of values with no nulls.
func New[T any](name string, values []T, mem memory.Allocator) *Column {
	return NewWithNulls(name, values, nil, mem)
}

// NewWithNulls creates a Column from values plus a validity mask. A nil
// mask means every value is valid; otherwise valid[i] == false marks
// slot i as null and values[i] is ignored.
func NewWithNulls[T any](name string, values []T, valid []bool, mem memory.Allocator) *Column {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array
	switch v := any(values).(type) {
	case []string:
		arr = BuildStrings(v, valid, mem)
	case []int64:
		arr = BuildInts(v, valid, mem)
	case []float64:
		arr = BuildFloats(v, valid, mem)
	case []bool:
		arr = BuildBools(v, valid, mem)
	default:
		panic(fmt.Sprintf("series: unsupported value type %T", values))
	}

	return &Column{name: name, array: arr}
}

// FromArrow wraps an existing Arrow array as a Column, taking over the
// caller's reference.
func FromArrow(name string, arr arrow.Array) *Column {
	return &Column{name: name, array: arr}
}

// Name returns the column name.
func (c *Column) Name() string {
	return c.name
}

// Len returns the number of rows.
func (c *Column) Len() int {
	return c.array.Len()
}

// DataType returns the Arrow data type.
func (c *Column) DataType() arrow.DataType {
	return c.array.DataType()
}

// IsNull reports whether the value at index is null.
func (c *Column) IsNull(index int) bool {
	return c.array.IsNull(index)
}

// NullCount returns the number of null slots.
func (c *Column) NullCount() int {
	return c.array.NullN()
}

// Array returns the underlying Arrow array, retaining a reference that
// the caller must release.
func (c *Column) Array() arrow.Array {
	if c.array != nil {
		c.array.Retain()
		return c.array
	}
	return nil
}

// Rename returns a Column sharing this column's data under a new name.
func (c *Column) Rename(name string) *Column {
	c.array.Retain()
	return &Column{name: name, array: c.array}
}

// Release releases the underlying Arrow memory.
func (c *Column) Release() {
	if c.array != nil {
		c.array.Release()
	}
}

// String returns a short description of the column.
func (c *Column) String() string {
	return fmt.Sprintf("Column[%s]: %s (len=%d, nulls=%d)",
		c.array.DataType(), c.name, c.Len(), c.NullCount())
}

// Value returns the value at index as an untyped Go value, with ok
// false when the slot is null.
func (c *Column) Value(index int) (any, bool) {
	if index < 0 || index >= c.array.Len() || c.array.IsNull(index) {
		return nil, false
	}
	switch arr := c.array.(type) {
	case *array.String:
		return arr.Value(index), true
	case *array.Int64:
		return arr.Value(index), true
	case *array.Float64:
		return arr.Value(index), true
	case *array.Boolean:
		return arr.Value(index), true
	default:
		return nil, false
	}
}

// Builders from values plus validity masks.

// BuildStrings builds an Arrow string array.
func BuildStrings(values []string, valid []bool, mem memory.Allocator) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
		} else {
			b.Append(v)
		}
	}
	return b.NewArray()
}

// BuildInts builds an Arrow int64 array.
func BuildInts(values []int64, valid []bool, mem memory.Allocator) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
		} else {
			b.Append(v)
		}
	}
	return b.NewArray()
}

// BuildFloats builds an Arrow float64 array.
func BuildFloats(values []float64, valid []bool, mem memory.Allocator) arrow.Array {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
		} else {
			b.Append(v)
		}
	}
	return b.NewArray()
}

// BuildBools builds an Arrow boolean array.
func BuildBools(values []bool, valid []bool, mem memory.Allocator) arrow.Array {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
		} else {
			b.Append(v)
		}
	}
	return b.NewArray()
}

// Extractors back to Go slices plus validity masks. The second return is
// never nil so callers can index it unconditionally.

// Strings extracts a string array. ok is false for other array types.
func Strings(arr arrow.Array) (values []string, valid []bool, ok bool) {
	typed, isString := arr.(*array.String)
	if !isString {
		return nil, nil, false
	}
	values = make([]string, typed.Len())
	valid = make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if !typed.IsNull(i) {
			values[i] = typed.Value(i)
			valid[i] = true
		}
	}
	return values, valid, true
}

// Ints extracts an int64 array. ok is false for other array types.
func Ints(arr arrow.Array) (values []int64, valid []bool, ok bool) {
	typed, isInt := arr.(*array.Int64)
	if !isInt {
		return nil, nil, false
	}
	values = make([]int64, typed.Len())
	valid = make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if !typed.IsNull(i) {
			values[i] = typed.Value(i)
			valid[i] = true
		}
	}
	return values, valid, true
}

// Floats extracts a float64 array, widening int64 arrays. ok is false
// for non-numeric array types.
func Floats(arr arrow.Array) (values []float64, valid []bool, ok bool) {
	switch typed := arr.(type) {
	case *array.Float64:
		values = make([]float64, typed.Len())
		valid = make([]bool, typed.Len())
		for i := 0; i < typed.Len(); i++ {
			if !typed.IsNull(i) {
				values[i] = typed.Value(i)
				valid[i] = true
			}
		}
		return values, valid, true
	case *array.Int64:
		values = make([]float64, typed.Len())
		valid = make([]bool, typed.Len())
		for i := 0; i < typed.Len(); i++ {
			if !typed.IsNull(i) {
				values[i] = float64(typed.Value(i))
				valid[i] = true
			}
		}
		return values, valid, true
	default:
		return nil, nil, false
	}
}

// Bools extracts a boolean array. ok is false for other array types.
func Bools(arr arrow.Array) (values []bool, valid []bool, ok bool) {
	typed, isBool := arr.(*array.Boolean)
	if !isBool {
		return nil, nil, false
	}
	values = make([]bool, typed.Len())
	valid = make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if !typed.IsNull(i) {
			values[i] = typed.Value(i)
			valid[i] = true
		}
	}
	return values, valid, true
}
