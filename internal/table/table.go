// Package table implements the immutable tabular core: an ordered
// collection of named Arrow-backed columns with relational operations
// that always produce new tables.
package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/prepd/prepd/internal/errors"
	"github.com/prepd/prepd/internal/expr"
	"github.com/prepd/prepd/internal/series"
)

// Table is an immutable, ordered collection of equally long named
// columns. Operations never mutate the receiver; derived tables share
// column memory where possible. Release frees the table's references.
type Table struct {
	mem     memory.Allocator
	columns []*series.Column
	byName  map[string]int
}

// New creates a table taking ownership of the given columns. Columns
// must have distinct names and equal lengths; all violations are
// reported together.
func New(mem memory.Allocator, columns ...*series.Column) (*Table, error) {
	byName := make(map[string]int, len(columns))
	var errs []error
	for i, col := range columns {
		if _, dup := byName[col.Name()]; dup {
			errs = append(errs, errors.NewSchemaError("New", col.Name(), "duplicate column name"))
			continue
		}
		byName[col.Name()] = i
		if col.Len() != columns[0].Len() {
			errs = append(errs, errors.NewSchemaError("New", col.Name(),
				fmt.Sprintf("column length %d does not match %d", col.Len(), columns[0].Len())))
		}
	}
	if err := errors.Collect("New", errs...); err != nil {
		for _, col := range columns {
			col.Release()
		}
		return nil, err
	}
	return &Table{mem: mem, columns: columns, byName: byName}, nil
}

// Empty creates a table with no columns and no rows.
func Empty(mem memory.Allocator) *Table {
	return &Table{mem: mem, byName: map[string]int{}}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name()
	}
	return names
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Column returns the named column without transferring ownership.
func (t *Table) Column(name string) (*series.Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Columns returns the columns in table order without transferring
// ownership.
func (t *Table) Columns() []*series.Column { return t.columns }

// Allocator returns the table's allocator.
func (t *Table) Allocator() memory.Allocator { return t.mem }

// Release frees the table's column references.
func (t *Table) Release() {
	for _, col := range t.columns {
		col.Release()
	}
}

// String renders a short schema description.
func (t *Table) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table[%dx%d]", t.NumRows(), t.NumCols())
	for i, col := range t.columns {
		if i == 0 {
			sb.WriteString(" (")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s:%s", col.Name(), col.DataType())
	}
	if len(t.columns) > 0 {
		sb.WriteString(")")
	}
	return sb.String()
}

// arrays exposes the columns as a name-to-array map for expression
// evaluation. The returned release function must be called.
func (t *Table) arrays() (map[string]arrow.Array, func()) {
	m := make(map[string]arrow.Array, len(t.columns))
	for _, col := range t.columns {
		m[col.Name()] = col.Array()
	}
	return m, func() {
		for _, arr := range m {
			arr.Release()
		}
	}
}

// Select returns a table with only the named columns, in the given
// order.
func (t *Table) Select(names ...string) (*Table, error) {
	columns := make([]*series.Column, 0, len(names))
	var errs []error
	for _, name := range names {
		i, ok := t.byName[name]
		if !ok {
			errs = append(errs, errors.NewColumnNotFoundError("Select", name))
			continue
		}
		columns = append(columns, t.columns[i].Rename(name))
	}
	if err := errors.Collect("Select", errs...); err != nil {
		for _, col := range columns {
			col.Release()
		}
		return nil, err
	}
	return New(t.mem, columns...)
}

// Drop returns a table without the named columns. Dropping a column
// that does not exist is an error.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	var errs []error
	for _, name := range names {
		if !t.HasColumn(name) {
			errs = append(errs, errors.NewColumnNotFoundError("Drop", name))
		}
		drop[name] = true
	}
	if err := errors.Collect("Drop", errs...); err != nil {
		return nil, err
	}
	columns := make([]*series.Column, 0, len(t.columns)-len(drop))
	for _, col := range t.columns {
		if !drop[col.Name()] {
			columns = append(columns, col.Rename(col.Name()))
		}
	}
	return New(t.mem, columns...)
}

// Rename returns a table with columns renamed per the old-to-new
// mapping. Renaming onto the name of a column that is not itself being
// renamed away is a name conflict.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	var errs []error
	for old, next := range mapping {
		if !t.HasColumn(old) {
			errs = append(errs, errors.NewColumnNotFoundError("Rename", old))
			continue
		}
		if _, taken := t.byName[next]; taken {
			if _, renamedAway := mapping[next]; !renamedAway {
				errs = append(errs, errors.NewNameConflictError("Rename", next,
					fmt.Sprintf("renaming %q onto existing column %q", old, next)))
			}
		}
	}
	if err := errors.Collect("Rename", errs...); err != nil {
		return nil, err
	}
	columns := make([]*series.Column, len(t.columns))
	for i, col := range t.columns {
		name := col.Name()
		if next, ok := mapping[name]; ok {
			name = next
		}
		columns[i] = col.Rename(name)
	}
	return New(t.mem, columns...)
}

// WithColumns evaluates each expression against the receiver and adds
// the result as a column, replacing an existing column of the same
// name in place. Every expression needs a determinable output name.
func (t *Table) WithColumns(exprs ...expr.Expr) (*Table, error) {
	arrays, release := t.arrays()
	defer release()

	n := t.NumRows()
	eval := expr.NewEvaluator(t.mem)

	columns := make([]*series.Column, len(t.columns))
	for i, col := range t.columns {
		columns[i] = col.Rename(col.Name())
	}
	releaseAll := func() {
		for _, col := range columns {
			col.Release()
		}
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col.Name()] = i
	}

	for _, ex := range exprs {
		name, err := expr.OutputName(ex)
		if err != nil {
			releaseAll()
			return nil, err
		}
		arr, err := eval.Evaluate(ex, arrays, n)
		if err != nil {
			releaseAll()
			return nil, err
		}
		col := series.FromArrow(name, arr)
		if i, ok := index[name]; ok {
			columns[i].Release()
			columns[i] = col
		} else {
			index[name] = len(columns)
			columns = append(columns, col)
		}
	}
	return New(t.mem, columns...)
}

// Filter returns the rows where the boolean predicate holds. Rows
// where the predicate is null are excluded.
func (t *Table) Filter(predicate expr.Expr) (*Table, error) {
	arrays, release := t.arrays()
	defer release()

	arr, err := expr.NewEvaluator(t.mem).EvaluateBoolean(predicate, arrays, t.NumRows())
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	mask, valid, ok := series.Bools(arr)
	if !ok {
		return nil, errors.NewInternalError("Filter", fmt.Errorf("predicate produced %s", arr.DataType()))
	}
	rows := make([]int, 0, len(mask))
	for i := range mask {
		if valid[i] && mask[i] {
			rows = append(rows, i)
		}
	}
	return t.takeRows(rows)
}

// Sort returns the rows ordered by the given keys. The sort is stable
// and nulls order last regardless of direction.
func (t *Table) Sort(orders ...expr.SortOrder) (*Table, error) {
	keys := make([]*colData, len(orders))
	for i, o := range orders {
		col, ok := t.Column(o.Column)
		if !ok {
			return nil, errors.NewColumnNotFoundError("Sort", o.Column)
		}
		arr := col.Array()
		data, err := dataOf(arr)
		arr.Release()
		if err != nil {
			return nil, err
		}
		keys[i] = data
	}

	rows := make([]int, t.NumRows())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		for i, o := range orders {
			k := keys[i]
			ra, rb := rows[a], rows[b]
			// nulls last regardless of direction
			switch {
			case !k.valid[ra] && !k.valid[rb]:
				continue
			case !k.valid[ra]:
				return false
			case !k.valid[rb]:
				return true
			}
			c := k.compare(ra, rb)
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
	return t.takeRows(rows)
}

// SortBy sorts ascending by the named columns.
func (t *Table) SortBy(columns ...string) (*Table, error) {
	orders := make([]expr.SortOrder, len(columns))
	for i, name := range columns {
		orders[i] = expr.SortOrder{Column: name}
	}
	return t.Sort(orders...)
}

// WithRowIndex prepends an int64 index column counting from offset in
// current row order.
func (t *Table) WithRowIndex(name string, offset int64) (*Table, error) {
	if t.HasColumn(name) {
		return nil, errors.NewNameConflictError("WithRowIndex", name, "column already exists")
	}
	indices := make([]int64, t.NumRows())
	for i := range indices {
		indices[i] = offset + int64(i)
	}
	columns := make([]*series.Column, 0, len(t.columns)+1)
	columns = append(columns, series.New(name, indices, t.mem))
	for _, col := range t.columns {
		columns = append(columns, col.Rename(col.Name()))
	}
	return New(t.mem, columns...)
}

// Unique keeps the first row of each distinct key tuple. An empty
// subset means all columns.
func (t *Table) Unique(subset ...string) (*Table, error) {
	if len(subset) == 0 {
		subset = t.ColumnNames()
	}
	keys, err := t.keyData("Unique", subset)
	if err != nil {
		return nil, err
	}
	g := newGrouper(keys)
	rows := make([]int, 0, t.NumRows())
	for row := 0; row < t.NumRows(); row++ {
		if gid := g.add(row); len(g.groups[gid]) == 1 {
			rows = append(rows, row)
		}
	}
	return t.takeRows(rows)
}

// Head returns the first n rows, or all rows when fewer exist.
func (t *Table) Head(n int) (*Table, error) {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.takeRows(rows)
}

// keyData decodes the named columns for keying operations.
func (t *Table) keyData(op string, names []string) ([]*colData, error) {
	keys := make([]*colData, len(names))
	for i, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError(op, name)
		}
		arr := col.Array()
		data, err := dataOf(arr)
		arr.Release()
		if err != nil {
			return nil, err
		}
		keys[i] = data
	}
	return keys, nil
}

// takeRows gathers the given row indices, in order, into a new table.
func (t *Table) takeRows(rows []int) (*Table, error) {
	columns := make([]*series.Column, len(t.columns))
	for i, col := range t.columns {
		arr := col.Array()
		taken, err := gather(arr, rows, t.mem)
		arr.Release()
		if err != nil {
			for _, built := range columns[:i] {
				built.Release()
			}
			return nil, err
		}
		columns[i] = series.FromArrow(col.Name(), taken)
	}
	return New(t.mem, columns...)
}
