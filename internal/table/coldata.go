package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"

	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/series"
)

type colKind int

const (
	colString colKind = iota
	colInt
	colFloat
	colBool
)

func (k colKind) String() string {
	switch k {
	case colString:
		return "string"
	case colInt:
		return "int64"
	case colFloat:
		return "float64"
	default:
		return "bool"
	}
}

// colData is the package's working view of one column: typed slices
// plus a validity mask, decoded once per operation instead of going
// through the Arrow array per row.
type colData struct {
	kind   colKind
	strs   []string
	ints   []int64
	floats []float64
	bools  []bool
	valid  []bool
}

func dataOf(arr arrow.Array) (*colData, error) {
	switch arr.DataType().ID() {
	case arrow.STRING:
		values, valid, _ := series.Strings(arr)
		return &colData{kind: colString, strs: values, valid: valid}, nil
	case arrow.INT64:
		values, valid, _ := series.Ints(arr)
		return &colData{kind: colInt, ints: values, valid: valid}, nil
	case arrow.FLOAT64:
		values, valid, _ := series.Floats(arr)
		return &colData{kind: colFloat, floats: values, valid: valid}, nil
	case arrow.BOOL:
		values, valid, _ := series.Bools(arr)
		return &colData{kind: colBool, bools: values, valid: valid}, nil
	default:
		return nil, errors.NewInternalError("Table",
			fmt.Errorf("unsupported column type %s", arr.DataType()))
	}
}

func newColData(kind colKind, n int) *colData {
	c := &colData{kind: kind, valid: make([]bool, n)}
	switch kind {
	case colString:
		c.strs = make([]string, n)
	case colInt:
		c.ints = make([]int64, n)
	case colFloat:
		c.floats = make([]float64, n)
	case colBool:
		c.bools = make([]bool, n)
	}
	return c
}

func (c *colData) length() int { return len(c.valid) }

func (c *colData) toArrow(mem memory.Allocator) arrow.Array {
	switch c.kind {
	case colString:
		return series.BuildStrings(c.strs, c.valid, mem)
	case colInt:
		return series.BuildInts(c.ints, c.valid, mem)
	case colFloat:
		return series.BuildFloats(c.floats, c.valid, mem)
	default:
		return series.BuildBools(c.bools, c.valid, mem)
	}
}

// set copies slot i of src into slot j of c, widening int to float when
// c is a float column.
func (c *colData) set(j int, src *colData, i int) {
	if !src.valid[i] {
		c.valid[j] = false
		return
	}
	c.valid[j] = true
	switch c.kind {
	case colString:
		c.strs[j] = src.strs[i]
	case colInt:
		c.ints[j] = src.ints[i]
	case colFloat:
		if src.kind == colInt {
			c.floats[j] = float64(src.ints[i])
		} else {
			c.floats[j] = src.floats[i]
		}
	case colBool:
		c.bools[j] = src.bools[i]
	}
}

// compare orders slots i and j; nulls sort after any value.
func (c *colData) compare(i, j int) int {
	switch {
	case !c.valid[i] && !c.valid[j]:
		return 0
	case !c.valid[i]:
		return 1
	case !c.valid[j]:
		return -1
	}
	switch c.kind {
	case colString:
		return strings.Compare(c.strs[i], c.strs[j])
	case colInt:
		switch {
		case c.ints[i] < c.ints[j]:
			return -1
		case c.ints[i] > c.ints[j]:
			return 1
		}
		return 0
	case colFloat:
		switch {
		case c.floats[i] < c.floats[j]:
			return -1
		case c.floats[i] > c.floats[j]:
			return 1
		}
		return 0
	default:
		switch {
		case !c.bools[i] && c.bools[j]:
			return -1
		case c.bools[i] && !c.bools[j]:
			return 1
		}
		return 0
	}
}

func (c *colData) stringAt(i int) string {
	switch c.kind {
	case colString:
		return c.strs[i]
	case colInt:
		return strconv.FormatInt(c.ints[i], 10)
	case colFloat:
		return strconv.FormatFloat(c.floats[i], 'f', -1, 64)
	default:
		return strconv.FormatBool(c.bools[i])
	}
}

// rowKey hashes one row of key columns with xxhash. The encoding tags
// every value with kind and validity so distinct tuples cannot collide
// by concatenation.
func rowKey(keys []*colData, row int) uint64 {
	var d xxhash.Digest
	d.Reset()
	var buf [9]byte
	for _, c := range keys {
		if !c.valid[row] {
			buf[0] = 0xff
			_, _ = d.Write(buf[:1])
			continue
		}
		switch c.kind {
		case colString:
			buf[0] = 0x01
			binary.LittleEndian.PutUint64(buf[1:], uint64(len(c.strs[row])))
			_, _ = d.Write(buf[:9])
			_, _ = d.WriteString(c.strs[row])
		case colInt:
			buf[0] = 0x02
			binary.LittleEndian.PutUint64(buf[1:], uint64(c.ints[row]))
			_, _ = d.Write(buf[:9])
		case colFloat:
			buf[0] = 0x03
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(c.floats[row]))
			_, _ = d.Write(buf[:9])
		case colBool:
			buf[0] = 0x04
			if c.bools[row] {
				buf[1] = 1
			} else {
				buf[1] = 0
			}
			_, _ = d.Write(buf[:2])
		}
	}
	return d.Sum64()
}

// rowsEqual verifies candidate rows that hash to the same bucket. Null
// key slots compare equal to null, so rows with null keys group
// together.
func rowsEqual(left []*colData, i int, right []*colData, j int) bool {
	for k := range left {
		lc, rc := left[k], right[k]
		if lc.valid[i] != rc.valid[j] {
			return false
		}
		if !lc.valid[i] {
			continue
		}
		if lc.kind != rc.kind {
			return false
		}
		switch lc.kind {
		case colString:
			if lc.strs[i] != rc.strs[j] {
				return false
			}
		case colInt:
			if lc.ints[i] != rc.ints[j] {
				return false
			}
		case colFloat:
			if lc.floats[i] != rc.floats[j] {
				return false
			}
		case colBool:
			if lc.bools[i] != rc.bools[j] {
				return false
			}
		}
	}
	return true
}

// grouper buckets rows by key hash with typed equality verification,
// preserving first-appearance group order.
type grouper struct {
	keys    []*colData
	buckets map[uint64][]int
	groups  [][]int
	reps    []int
}

func newGrouper(keys []*colData) *grouper {
	return &grouper{keys: keys, buckets: make(map[uint64][]int)}
}

// add assigns row to its group, creating the group on first sight, and
// returns the group id.
func (g *grouper) add(row int) int {
	h := rowKey(g.keys, row)
	for _, gid := range g.buckets[h] {
		if rowsEqual(g.keys, g.reps[gid], g.keys, row) {
			g.groups[gid] = append(g.groups[gid], row)
			return gid
		}
	}
	gid := len(g.groups)
	g.groups = append(g.groups, []int{row})
	g.reps = append(g.reps, row)
	g.buckets[h] = append(g.buckets[h], gid)
	return gid
}

// lookup finds the group whose key tuple equals row of probe columns,
// or -1.
func (g *grouper) lookup(probe []*colData, row int) int {
	h := rowKey(probe, row)
	for _, gid := range g.buckets[h] {
		if rowsEqual(g.keys, g.reps[gid], probe, row) {
			return gid
		}
	}
	return -1
}

// gather builds a new array holding rows of arr in the given order. A
// negative row index yields a null slot.
func gather(arr arrow.Array, rows []int, mem memory.Allocator) (arrow.Array, error) {
	src, err := dataOf(arr)
	if err != nil {
		return nil, err
	}
	out := newColData(src.kind, len(rows))
	for j, i := range rows {
		if i >= 0 {
			out.set(j, src, i)
		}
	}
	return out.toArrow(mem), nil
}
