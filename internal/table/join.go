package table

import (
	"fmt"

	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/series"
)

// JoinType selects the join semantics.
type JoinType int

const (
	// JoinInner keeps rows with a match on both sides.
	JoinInner JoinType = iota
	// JoinLeft keeps every left row, null-padding right columns when
	// unmatched.
	JoinLeft
	// JoinAnti keeps left rows with no right match; only left columns
	// appear in the result.
	JoinAnti
	// JoinCross pairs every left row with every right row.
	JoinCross
)

func (jt JoinType) String() string {
	switch jt {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinAnti:
		return "anti"
	default:
		return "cross"
	}
}

// JoinOptions configures a join. RightOn defaults to LeftOn when
// empty. Cross joins take no keys.
type JoinOptions struct {
	Type    JoinType
	LeftOn  []string
	RightOn []string
}

// Join is a hash join. Right key columns are dropped from the result;
// non-key right columns whose names collide with left columns get a
// "_right" suffix. Null key values never match, so a left row with a
// null key behaves as unmatched.
func (t *Table) Join(other *Table, opts JoinOptions) (*Table, error) {
	if opts.Type == JoinCross {
		if len(opts.LeftOn) > 0 || len(opts.RightOn) > 0 {
			return nil, errors.NewJoinKeyError("Join", "", "cross join takes no keys")
		}
		return t.crossJoin(other)
	}

	leftOn := opts.LeftOn
	rightOn := opts.RightOn
	if len(rightOn) == 0 {
		rightOn = leftOn
	}
	if len(leftOn) == 0 {
		return nil, errors.NewJoinKeyError("Join", "", "no join keys given")
	}
	if len(leftOn) != len(rightOn) {
		return nil, errors.NewJoinKeyError("Join", "",
			fmt.Sprintf("%d left keys vs %d right keys", len(leftOn), len(rightOn)))
	}
	for _, name := range leftOn {
		if !t.HasColumn(name) {
			return nil, errors.NewJoinKeyError("Join", name, "key column missing in left table")
		}
	}
	for _, name := range rightOn {
		if !other.HasColumn(name) {
			return nil, errors.NewJoinKeyError("Join", name, "key column missing in right table")
		}
	}

	leftKeys, err := t.keyData("Join", leftOn)
	if err != nil {
		return nil, err
	}
	rightKeys, err := other.keyData("Join", rightOn)
	if err != nil {
		return nil, err
	}

	build := newGrouper(rightKeys)
	for row := 0; row < other.NumRows(); row++ {
		build.add(row)
	}

	var leftRows, rightRows []int
	for row := 0; row < t.NumRows(); row++ {
		gid := -1
		if !anyNullKey(leftKeys, row) {
			gid = build.lookup(leftKeys, row)
		}
		switch opts.Type {
		case JoinInner:
			if gid >= 0 {
				for _, match := range build.groups[gid] {
					leftRows = append(leftRows, row)
					rightRows = append(rightRows, match)
				}
			}
		case JoinLeft:
			if gid >= 0 {
				for _, match := range build.groups[gid] {
					leftRows = append(leftRows, row)
					rightRows = append(rightRows, match)
				}
			} else {
				leftRows = append(leftRows, row)
				rightRows = append(rightRows, -1)
			}
		case JoinAnti:
			if gid < 0 {
				leftRows = append(leftRows, row)
			}
		default:
			return nil, errors.NewJoinKeyError("Join", "", "unknown join type")
		}
	}

	if opts.Type == JoinAnti {
		return t.takeRows(leftRows)
	}
	return t.assembleJoin(other, rightOn, leftRows, rightRows)
}

func anyNullKey(keys []*colData, row int) bool {
	for _, k := range keys {
		if !k.valid[row] {
			return true
		}
	}
	return false
}

// crossJoin pairs every row of t with every row of other.
func (t *Table) crossJoin(other *Table) (*Table, error) {
	leftRows := make([]int, 0, t.NumRows()*other.NumRows())
	rightRows := make([]int, 0, t.NumRows()*other.NumRows())
	for l := 0; l < t.NumRows(); l++ {
		for r := 0; r < other.NumRows(); r++ {
			leftRows = append(leftRows, l)
			rightRows = append(rightRows, r)
		}
	}
	return t.assembleJoin(other, nil, leftRows, rightRows)
}

// assembleJoin gathers both sides into the output schema: all left
// columns, then right columns minus dropped keys, suffixed on
// collision.
func (t *Table) assembleJoin(other *Table, dropRight []string, leftRows, rightRows []int) (*Table, error) {
	dropped := make(map[string]bool, len(dropRight))
	for _, name := range dropRight {
		dropped[name] = true
	}

	taken := make(map[string]bool, t.NumCols()+other.NumCols())
	for _, name := range t.ColumnNames() {
		taken[name] = true
	}

	columns := make([]*series.Column, 0, t.NumCols()+other.NumCols())
	releaseAll := func() {
		for _, col := range columns {
			col.Release()
		}
	}

	for _, col := range t.Columns() {
		arr := col.Array()
		out, err := gather(arr, leftRows, t.mem)
		arr.Release()
		if err != nil {
			releaseAll()
			return nil, err
		}
		columns = append(columns, series.FromArrow(col.Name(), out))
	}

	for _, col := range other.Columns() {
		if dropped[col.Name()] {
			continue
		}
		name := col.Name()
		if taken[name] {
			name += "_right"
			if taken[name] {
				releaseAll()
				return nil, errors.NewNameConflictError("Join", name, "suffixed column name already exists")
			}
		}
		taken[name] = true
		arr := col.Array()
		out, err := gather(arr, rightRows, t.mem)
		arr.Release()
		if err != nil {
			releaseAll()
			return nil, err
		}
		columns = append(columns, series.FromArrow(name, out))
	}
	return New(t.mem, columns...)
}
