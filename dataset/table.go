// Package dataset provides the in-memory table the pipeline operates on and
// the CSV loader that produces it.
package dataset

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Table is a column-oriented dataset with named, uniquely named columns.
// Tables are treated as immutable: every transformation returns a new Table.
type Table struct {
	columns []string
	kinds   map[string]Kind
	data    map[string][]Value
	nRows   int
}

// NewTable builds a table from a header and string records, inferring the kind
// of every column. A column whose present cells all parse as float64 is Numeric.
func NewTable(columns []string, records [][]string) (*Table, error) {
	if len(columns) == 0 {
		return nil, errors.NewValueError("NewTable", "a table needs at least one column")
	}
	if dups := lo.FindDuplicates(columns); len(dups) > 0 {
		return nil, errors.NewValueError("NewTable", "duplicate column names: "+strings.Join(dups, ", "))
	}
	for _, rec := range records {
		if len(rec) != len(columns) {
			return nil, errors.NewDimensionError("NewTable", len(columns), len(rec), 1)
		}
	}

	t := &Table{
		columns: append([]string(nil), columns...),
		kinds:   make(map[string]Kind, len(columns)),
		data:    make(map[string][]Value, len(columns)),
		nRows:   len(records),
	}
	for j, name := range columns {
		raw := make([]string, len(records))
		for i, rec := range records {
			raw[i] = rec[j]
		}
		t.kinds[name], t.data[name] = parseColumn(raw)
	}
	return t, nil
}

// FromColumns builds a table from typed columns. All columns must have the same length.
func FromColumns(columns []string, kinds []Kind, values [][]Value) (*Table, error) {
	if len(columns) == 0 {
		return nil, errors.NewValueError("FromColumns", "a table needs at least one column")
	}
	if len(kinds) != len(columns) || len(values) != len(columns) {
		return nil, errors.NewDimensionError("FromColumns", len(columns), len(values), 1)
	}
	if dups := lo.FindDuplicates(columns); len(dups) > 0 {
		return nil, errors.NewValueError("FromColumns", "duplicate column names: "+strings.Join(dups, ", "))
	}
	n := len(values[0])
	t := &Table{
		columns: append([]string(nil), columns...),
		kinds:   make(map[string]Kind, len(columns)),
		data:    make(map[string][]Value, len(columns)),
		nRows:   n,
	}
	for j, name := range columns {
		if len(values[j]) != n {
			return nil, errors.NewDimensionError("FromColumns", n, len(values[j]), 0)
		}
		t.kinds[name] = kinds[j]
		t.data[name] = append([]Value(nil), values[j]...)
	}
	return t, nil
}

func parseColumn(raw []string) (Kind, []Value) {
	values := make([]Value, len(raw))
	numeric := true
	for i, s := range raw {
		if IsMissingToken(s) {
			values[i] = Missing()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			numeric = false
			break
		}
		values[i] = Num(f)
	}
	if numeric {
		return Numeric, values
	}
	for i, s := range raw {
		if IsMissingToken(s) {
			values[i] = Missing()
		} else {
			values[i] = Str(s)
		}
	}
	return Categorical, values
}

// NRows returns the number of rows.
func (t *Table) NRows() int { return t.nRows }

// NCols returns the number of columns.
func (t *Table) NCols() int { return len(t.columns) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Kind returns the kind of column name.
func (t *Table) Kind(name string) (Kind, error) {
	k, ok := t.kinds[name]
	if !ok {
		return 0, errors.NewColumnNotFoundError("Kind", name, t.columns)
	}
	return k, nil
}

// Column returns a copy of the values of column name.
func (t *Table) Column(name string) ([]Value, error) {
	v, ok := t.data[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("Column", name, t.columns)
	}
	return append([]Value(nil), v...), nil
}

// Row returns the i-th row in column order.
func (t *Table) Row(i int) []Value {
	return lo.Map(t.columns, func(c string, _ int) Value { return t.data[c][i] })
}

// IsMissing reports whether the cell (column, row) is missing.
func (t *Table) IsMissing(column string, i int) bool {
	return t.data[column][i].Missing
}

// RowHasMissing reports whether any cell of row i is missing.
func (t *Table) RowHasMissing(i int) bool {
	for _, c := range t.columns {
		if t.data[c][i].Missing {
			return true
		}
	}
	return false
}

// MissingCount returns the total number of missing cells.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.columns {
		n += lo.CountBy(t.data[c], func(v Value) bool { return v.Missing })
	}
	return n
}

// SelectRows returns a new table made of the rows at idx, in that order.
func (t *Table) SelectRows(idx []int) *Table {
	out := t.emptyLike(len(idx))
	for _, c := range t.columns {
		src := t.data[c]
		dst := make([]Value, len(idx))
		for i, r := range idx {
			dst[i] = src[r]
		}
		out.data[c] = dst
	}
	return out
}

// DropColumn returns a new table without column name.
func (t *Table) DropColumn(name string) (*Table, error) {
	if !t.HasColumn(name) {
		return nil, errors.NewColumnNotFoundError("DropColumn", name, t.columns)
	}
	if len(t.columns) == 1 {
		return nil, errors.NewValueError("DropColumn", "cannot drop the only column "+strconv.Quote(name))
	}
	out := t.Clone()
	out.columns = lo.Without(out.columns, name)
	delete(out.kinds, name)
	delete(out.data, name)
	return out, nil
}

// ReplaceColumn returns a new table where column name holds values with the given kind.
func (t *Table) ReplaceColumn(name string, kind Kind, values []Value) (*Table, error) {
	if !t.HasColumn(name) {
		return nil, errors.NewColumnNotFoundError("ReplaceColumn", name, t.columns)
	}
	if len(values) != t.nRows {
		return nil, errors.NewDimensionError("ReplaceColumn", t.nRows, len(values), 0)
	}
	out := t.Clone()
	out.kinds[name] = kind
	out.data[name] = append([]Value(nil), values...)
	return out, nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := t.emptyLike(t.nRows)
	for _, c := range t.columns {
		out.data[c] = append([]Value(nil), t.data[c]...)
	}
	return out
}

func (t *Table) emptyLike(nRows int) *Table {
	out := &Table{
		columns: append([]string(nil), t.columns...),
		kinds:   make(map[string]Kind, len(t.columns)),
		data:    make(map[string][]Value, len(t.columns)),
		nRows:   nRows,
	}
	for _, c := range t.columns {
		out.kinds[c] = t.kinds[c]
	}
	return out
}

// ToMatrix converts the given columns (all columns when none are given) into a
// (n_rows, n_cols) matrix. Missing cells become NaN. Categorical columns cannot
// be converted.
func (t *Table) ToMatrix(columns ...string) (*mat.Dense, error) {
	if len(columns) == 0 {
		columns = t.columns
	}
	if t.nRows == 0 {
		return nil, errors.ErrEmptyData
	}
	m := mat.NewDense(t.nRows, len(columns), nil)
	for j, c := range columns {
		vals, ok := t.data[c]
		if !ok {
			return nil, errors.NewColumnNotFoundError("ToMatrix", c, t.columns)
		}
		if t.kinds[c] != Numeric {
			first, _ := lo.Find(vals, func(v Value) bool { return !v.Missing })
			return nil, errors.Newf("could not convert string to float: %q (column %q)", first.Str, c)
		}
		for i, v := range vals {
			m.Set(i, j, v.Float())
		}
	}
	return m, nil
}

// Records renders the table back into string records, header excluded.
func (t *Table) Records() [][]string {
	out := make([][]string, t.nRows)
	for i := range out {
		rec := make([]string, len(t.columns))
		for j, c := range t.columns {
			rec[j] = t.data[c][i].Format(t.kinds[c])
		}
		out[i] = rec
	}
	return out
}

// Equal reports whether both tables have the same columns, kinds and cells.
func (t *Table) Equal(other *Table) bool {
	if t.nRows != other.nRows || len(t.columns) != len(other.columns) {
		return false
	}
	for j, c := range t.columns {
		if other.columns[j] != c || t.kinds[c] != other.kinds[c] {
			return false
		}
		a, b := t.data[c], other.data[c]
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
