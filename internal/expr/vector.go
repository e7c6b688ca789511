package expr

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prepd/prepd/internal/series"
)

// vecKind is the value type of an evaluated vector.
type vecKind int

const (
	kindString vecKind = iota
	kindInt
	kindFloat
	kindBool
)

func (k vecKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindInt:
		return "int64"
	case kindFloat:
		return "float64"
	default:
		return "bool"
	}
}

// vector is the evaluator's working representation of a column: typed
// slices plus a validity mask. Exactly one of the value slices is
// populated, matching kind.
type vector struct {
	kind   vecKind
	strs   []string
	ints   []int64
	floats []float64
	bools  []bool
	valid  []bool
}

func newVector(kind vecKind, n int) *vector {
	v := &vector{kind: kind, valid: make([]bool, n)}
	switch kind {
	case kindString:
		v.strs = make([]string, n)
	case kindInt:
		v.ints = make([]int64, n)
	case kindFloat:
		v.floats = make([]float64, n)
	case kindBool:
		v.bools = make([]bool, n)
	}
	return v
}

func (v *vector) length() int {
	return len(v.valid)
}

// fromArrow converts an Arrow array into a vector.
func fromArrow(arr arrow.Array) (*vector, error) {
	switch arr.DataType().ID() {
	case arrow.STRING:
		values, valid, _ := series.Strings(arr)
		return &vector{kind: kindString, strs: values, valid: valid}, nil
	case arrow.INT64:
		values, valid, _ := series.Ints(arr)
		return &vector{kind: kindInt, ints: values, valid: valid}, nil
	case arrow.FLOAT64:
		values, valid, ok := series.Floats(arr)
		if !ok {
			return nil, fmt.Errorf("unsupported float array %s", arr.DataType())
		}
		return &vector{kind: kindFloat, floats: values, valid: valid}, nil
	case arrow.BOOL:
		values, valid, _ := series.Bools(arr)
		return &vector{kind: kindBool, bools: values, valid: valid}, nil
	default:
		return nil, fmt.Errorf("unsupported array type %s", arr.DataType())
	}
}

// toArrow materializes the vector as an Arrow array.
func (v *vector) toArrow(mem memory.Allocator) arrow.Array {
	switch v.kind {
	case kindString:
		return series.BuildStrings(v.strs, v.valid, mem)
	case kindInt:
		return series.BuildInts(v.ints, v.valid, mem)
	case kindFloat:
		return series.BuildFloats(v.floats, v.valid, mem)
	default:
		return series.BuildBools(v.bools, v.valid, mem)
	}
}

// asFloat widens an int vector to float; float vectors pass through.
func (v *vector) asFloat() (*vector, bool) {
	switch v.kind {
	case kindFloat:
		return v, true
	case kindInt:
		out := newVector(kindFloat, v.length())
		for i := range v.ints {
			if v.valid[i] {
				out.floats[i] = float64(v.ints[i])
				out.valid[i] = true
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// stringAt renders the value at i for concatenation and casts.
func (v *vector) stringAt(i int) string {
	switch v.kind {
	case kindString:
		return v.strs[i]
	case kindInt:
		return strconv.FormatInt(v.ints[i], 10)
	case kindFloat:
		return strconv.FormatFloat(v.floats[i], 'f', -1, 64)
	default:
		return strconv.FormatBool(v.bools[i])
	}
}

// copyFrom copies slot i of src (same kind) into slot j of v.
func (v *vector) copyFrom(j int, src *vector, i int) {
	if !src.valid[i] {
		v.valid[j] = false
		return
	}
	v.valid[j] = true
	switch v.kind {
	case kindString:
		v.strs[j] = src.strs[i]
	case kindInt:
		v.ints[j] = src.ints[i]
	case kindFloat:
		if src.kind == kindInt {
			v.floats[j] = float64(src.ints[i])
		} else {
			v.floats[j] = src.floats[i]
		}
	case kindBool:
		v.bools[j] = src.bools[i]
	}
}

// broadcastLiteral expands a literal value to a vector of length n. A
// nil value yields an all-null float vector, which coerces with any
// numeric context.
func broadcastLiteral(value any, n int) (*vector, error) {
	switch val := value.(type) {
	case nil:
		return newVector(kindFloat, n), nil
	case string:
		v := newVector(kindString, n)
		for i := range v.strs {
			v.strs[i] = val
			v.valid[i] = true
		}
		return v, nil
	case int64:
		v := newVector(kindInt, n)
		for i := range v.ints {
			v.ints[i] = val
			v.valid[i] = true
		}
		return v, nil
	case float64:
		v := newVector(kindFloat, n)
		for i := range v.floats {
			v.floats[i] = val
			v.valid[i] = true
		}
		return v, nil
	case bool:
		v := newVector(kindBool, n)
		for i := range v.bools {
			v.bools[i] = val
			v.valid[i] = true
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported literal type %T", value)
	}
}

// unifyKinds picks the common kind for conditional branches: equal
// kinds pass through, int and float promote to float, anything else is
// incompatible.
func unifyKinds(kinds []vecKind) (vecKind, bool) {
	if len(kinds) == 0 {
		return kindFloat, true
	}
	out := kinds[0]
	for _, k := range kinds[1:] {
		if k == out {
			continue
		}
		numeric := (k == kindInt || k == kindFloat) && (out == kindInt || out == kindFloat)
		if !numeric {
			return 0, false
		}
		out = kindFloat
	}
	return out, true
}
