// Package frame provides small labelled-table types used for expression
// matrices and sample annotation tables: Matrix holds numeric cells, Table
// holds string cells. Both keep row and column order, read and write
// tab-delimited files, and serialize to the record/split layouts the portal
// API responds with.
package frame

import "math"

// Matrix is a two-dimensional numeric table with ordered row and column
// labels. Missing cells are NaN.
type Matrix struct {
	Index   []string
	Columns []string
	Values  [][]float64
}

// NewMatrix returns a Matrix of the given shape with all cells zero.
func NewMatrix(index, columns []string) *Matrix {
	values := make([][]float64, len(index))
	for i := range values {
		values[i] = make([]float64, len(columns))
	}
	return &Matrix{Index: index, Columns: columns, Values: values}
}

// NRows returns the number of rows.
func (m *Matrix) NRows() int {
	if m == nil {
		return 0
	}
	return len(m.Index)
}

// NCols returns the number of columns.
func (m *Matrix) NCols() int {
	if m == nil {
		return 0
	}
	return len(m.Columns)
}

// Row returns the values of the row with the given label.
func (m *Matrix) Row(label string) ([]float64, bool) {
	for i, idx := range m.Index {
		if idx == label {
			return m.Values[i], true
		}
	}
	return nil, false
}

// HasDuplicateIndex reports whether any row label occurs more than once.
func (m *Matrix) HasDuplicateIndex() bool {
	seen := make(map[string]struct{}, len(m.Index))
	for _, label := range m.Index {
		if _, ok := seen[label]; ok {
			return true
		}
		seen[label] = struct{}{}
	}
	return false
}

// IndexSet returns the row labels as a set.
func (m *Matrix) IndexSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m.Index))
	for _, label := range m.Index {
		set[label] = struct{}{}
	}
	return set
}

// Reindex returns a new Matrix with rows in the given label order. Labels
// not present in m produce rows of NaN, matching reindex-then-compute use.
func (m *Matrix) Reindex(index []string) *Matrix {
	pos := make(map[string]int, len(m.Index))
	for i, label := range m.Index {
		pos[label] = i
	}
	out := &Matrix{
		Index:   append([]string(nil), index...),
		Columns: append([]string(nil), m.Columns...),
		Values:  make([][]float64, len(index)),
	}
	for i, label := range index {
		row := make([]float64, len(m.Columns))
		if j, ok := pos[label]; ok {
			copy(row, m.Values[j])
		} else {
			for k := range row {
				row[k] = math.NaN()
			}
		}
		out.Values[i] = row
	}
	return out
}

// SelectRows returns a new Matrix keeping only rows whose label is in keep,
// preserving m's row order.
func (m *Matrix) SelectRows(keep map[string]struct{}) *Matrix {
	out := &Matrix{Columns: append([]string(nil), m.Columns...)}
	for i, label := range m.Index {
		if _, ok := keep[label]; !ok {
			continue
		}
		row := make([]float64, len(m.Columns))
		copy(row, m.Values[i])
		out.Index = append(out.Index, label)
		out.Values = append(out.Values, row)
	}
	return out
}

// ColumnSums returns per-column sums, skipping NaN cells.
func (m *Matrix) ColumnSums() []float64 {
	sums := make([]float64, len(m.Columns))
	for i := range m.Index {
		for j, v := range m.Values[i] {
			if !math.IsNaN(v) {
				sums[j] += v
			}
		}
	}
	return sums
}

// CPM returns the counts-per-million transform: each cell scaled by
// 1e6 / column sum.
func (m *Matrix) CPM() *Matrix {
	sums := m.ColumnSums()
	out := NewMatrix(append([]string(nil), m.Index...), append([]string(nil), m.Columns...))
	for i := range m.Index {
		for j, v := range m.Values[i] {
			if sums[j] == 0 {
				out.Values[i][j] = math.NaN()
				continue
			}
			out.Values[i][j] = v * 1e6 / sums[j]
		}
	}
	return out
}

// Records serializes the matrix as one map per row, keyed by column label.
// NaN cells become nil so the result marshals to valid JSON.
func (m *Matrix) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(m.Index))
	for i := range m.Index {
		rec := make(map[string]interface{}, len(m.Columns))
		for j, col := range m.Columns {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				rec[col] = nil
			} else {
				rec[col] = v
			}
		}
		records = append(records, rec)
	}
	return records
}

// SplitMatrix is the columnar serialization of a Matrix.
type SplitMatrix struct {
	Index   []string        `json:"index"`
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

// Split serializes the matrix in index/columns/data form. NaN cells become
// nil.
func (m *Matrix) Split() *SplitMatrix {
	data := make([][]interface{}, 0, len(m.Index))
	for i := range m.Index {
		row := make([]interface{}, len(m.Columns))
		for j, v := range m.Values[i] {
			if math.IsNaN(v) {
				row[j] = nil
			} else {
				row[j] = v
			}
		}
		data = append(data, row)
	}
	return &SplitMatrix{
		Index:   append([]string(nil), m.Index...),
		Columns: append([]string(nil), m.Columns...),
		Data:    data,
	}
}

// IndexRecords serializes the matrix as a map of row label to column/value
// map. NaN cells become nil.
func (m *Matrix) IndexRecords() map[string]map[string]interface{} {
	records := make(map[string]map[string]interface{}, len(m.Index))
	for i, label := range m.Index {
		rec := make(map[string]interface{}, len(m.Columns))
		for j, col := range m.Columns {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				rec[col] = nil
			} else {
				rec[col] = v
			}
		}
		records[label] = rec
	}
	return records
}
