package stats

// Column is one named statistic with a value per row.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Cell is a category/value pair used to build rows.
type Cell struct {
	Category string
	Value    Value
}

// Row is an ordered list of cells.
type Row []Cell

// Get returns the value of a category in the row.
func (r Row) Get(category string) (Value, bool) {
	for _, c := range r {
		if c.Category == category {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Table is the per-contact statistics table. Every column always holds
// exactly Rows() values; all mutating methods keep that invariant.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Categories returns column names in insertion order.
func (t *Table) Categories() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(category string) bool {
	_, ok := t.index[category]
	return ok
}

// Kind returns the kind of a column.
func (t *Table) Kind(category string) (Kind, bool) {
	i, ok := t.index[category]
	if !ok {
		return 0, false
	}
	return t.cols[i].Kind, true
}

// AddColumn adds a column back-filled with zeros. Existing columns are left alone.
func (t *Table) AddColumn(category string, kind Kind) {
	if t.Has(category) {
		return
	}
	values := make([]Value, t.rows)
	for i := range values {
		values[i] = Zero(kind)
	}
	t.index[category] = len(t.cols)
	t.cols = append(t.cols, &Column{Name: category, Kind: kind, Values: values})
}

// Drop removes a column if present.
func (t *Table) Drop(category string) {
	i, ok := t.index[category]
	if !ok {
		return
	}
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	t.reindex()
}

// Rename changes a column name. It fails when from is missing or to exists.
func (t *Table) Rename(from, to string) bool {
	i, ok := t.index[from]
	if !ok || t.Has(to) {
		return false
	}
	t.cols[i].Name = to
	t.reindex()
	return true
}

// Get returns a cell, or the zero value when the column is missing.
func (t *Table) Get(category string, row int) Value {
	i, ok := t.index[category]
	if !ok || row < 0 || row >= t.rows {
		return Value{}
	}
	return t.cols[i].Values[row]
}

// Set overwrites a cell. Values of a different kind than the column are rejected.
func (t *Table) Set(category string, row int, v Value) bool {
	i, ok := t.index[category]
	if !ok || row < 0 || row >= t.rows || t.cols[i].Kind != v.Kind {
		return false
	}
	t.cols[i].Values[row] = v
	return true
}

// Append adds a row. Unknown categories become new columns back-filled with
// zeros; columns absent from the row get a zero. A cell whose kind disagrees
// with its existing column is stored as that column's zero.
func (t *Table) Append(row Row) {
	for _, c := range row {
		t.AddColumn(c.Category, c.Value.Kind)
	}
	for _, col := range t.cols {
		col.Values = append(col.Values, Zero(col.Kind))
	}
	for _, c := range row {
		col := t.cols[t.index[c.Category]]
		if col.Kind == c.Value.Kind {
			col.Values[t.rows] = c.Value
		}
	}
	t.rows++
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	out := make(Row, len(t.cols))
	for j, c := range t.cols {
		out[j] = Cell{Category: c.Name, Value: c.Values[i]}
	}
	return out
}

// Find returns the indices of rows whose Contact is in names.
func (t *Table) Find(names map[string]bool) []int {
	var out []int
	for i := 0; i < t.rows; i++ {
		if names[t.Get(Contact, i).Text] {
			out = append(out, i)
		}
	}
	return out
}

// IndexOf returns the first row whose Contact equals name, or -1.
func (t *Table) IndexOf(name string) int {
	for i := 0; i < t.rows; i++ {
		if t.Get(Contact, i).Text == name {
			return i
		}
	}
	return -1
}

// RemoveRows deletes the given row indices.
func (t *Table) RemoveRows(indices []int) {
	if len(indices) == 0 {
		return
	}
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	for _, col := range t.cols {
		kept := col.Values[:0]
		for i, v := range col.Values {
			if !drop[i] {
				kept = append(kept, v)
			}
		}
		col.Values = kept
	}
	n := 0
	for i := range drop {
		if i >= 0 && i < t.rows {
			n++
		}
	}
	t.rows -= n
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: t.rows}
	for i, c := range t.cols {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind, Values: values})
		out.index[c.Name] = i
	}
	return out
}

// Equal reports whether two tables hold the same columns, in order, and values.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for i, c := range t.cols {
		oc := o.cols[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for r := range c.Values {
			if c.Values[r] != oc.Values[r] {
				return false
			}
		}
	}
	return true
}

// Union returns a new table holding a's rows then b's rows over the union of
// their columns. Cells missing on either side are zero of the column's kind.
func Union(a, b *Table) *Table {
	out := NewTable()
	for _, src := range []*Table{a, b} {
		for _, c := range src.cols {
			out.AddColumn(c.Name, c.Kind)
		}
	}
	for _, src := range []*Table{a, b} {
		for i := 0; i < src.rows; i++ {
			out.Append(src.Row(i))
		}
	}
	return out
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.cols))
	for i, c := range t.cols {
		t.index[c.Name] = i
	}
}
