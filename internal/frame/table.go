package frame

// Table is a two-dimensional string table with ordered row and column
// labels. Empty cells represent missing values.
type Table struct {
	Index   []string
	Columns []string
	Cells   [][]string
}

// NewTable returns a Table of the given shape with all cells empty.
func NewTable(index, columns []string) *Table {
	cells := make([][]string, len(index))
	for i := range cells {
		cells[i] = make([]string, len(columns))
	}
	return &Table{Index: index, Columns: columns, Cells: cells}
}

// NRows returns the number of rows.
func (t *Table) NRows() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// HasColumn reports whether the table has a column with the given label.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Column returns the cells of the named column in row order.
func (t *Table) Column(name string) ([]string, bool) {
	for j, col := range t.Columns {
		if col != name {
			continue
		}
		out := make([]string, len(t.Index))
		for i := range t.Index {
			out[i] = t.Cells[i][j]
		}
		return out, true
	}
	return nil, false
}

// IndexSet returns the row labels as a set.
func (t *Table) IndexSet() map[string]struct{} {
	set := make(map[string]struct{}, len(t.Index))
	for _, label := range t.Index {
		set[label] = struct{}{}
	}
	return set
}

// Reindex returns a new Table with rows in the given label order. Labels not
// present in t produce rows of empty cells.
func (t *Table) Reindex(index []string) *Table {
	pos := make(map[string]int, len(t.Index))
	for i, label := range t.Index {
		pos[label] = i
	}
	out := NewTable(append([]string(nil), index...), append([]string(nil), t.Columns...))
	for i, label := range index {
		if j, ok := pos[label]; ok {
			copy(out.Cells[i], t.Cells[j])
		}
	}
	return out
}

// FillMissing returns a new Table with empty cells replaced by token.
func (t *Table) FillMissing(token string) *Table {
	out := NewTable(append([]string(nil), t.Index...), append([]string(nil), t.Columns...))
	for i := range t.Index {
		for j, v := range t.Cells[i] {
			if v == "" {
				out.Cells[i][j] = token
			} else {
				out.Cells[i][j] = v
			}
		}
	}
	return out
}

// Records serializes the table as one map per row, keyed by column label.
func (t *Table) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Index))
	for i := range t.Index {
		rec := make(map[string]string, len(t.Columns))
		for j, col := range t.Columns {
			rec[col] = t.Cells[i][j]
		}
		records = append(records, rec)
	}
	return records
}

// SplitTable is the columnar serialization of a Table.
type SplitTable struct {
	Index   []string   `json:"index"`
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
}

// Split serializes the table in index/columns/data form.
func (t *Table) Split() *SplitTable {
	data := make([][]string, 0, len(t.Index))
	for i := range t.Index {
		row := make([]string, len(t.Columns))
		copy(row, t.Cells[i])
		data = append(data, row)
	}
	return &SplitTable{
		Index:   append([]string(nil), t.Index...),
		Columns: append([]string(nil), t.Columns...),
		Data:    data,
	}
}

// IndexRecords serializes the table as a map of row label to column/value
// map.
func (t *Table) IndexRecords() map[string]map[string]string {
	records := make(map[string]map[string]string, len(t.Index))
	for i, label := range t.Index {
		rec := make(map[string]string, len(t.Columns))
		for j, col := range t.Columns {
			rec[col] = t.Cells[i][j]
		}
		records[label] = rec
	}
	return records
}
