package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// ReadMatrix parses a tab-delimited matrix: header row of column labels, one
// row per line with its label in the first field. Empty, NA, NaN and null
// cells parse to NaN.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	rows, err := readTSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Matrix{}, nil
	}
	header := rows[0]
	if len(header) < 1 {
		return nil, fmt.Errorf("matrix header is empty")
	}
	columns := append([]string(nil), header[1:]...)
	m := &Matrix{Columns: columns}
	for lineNo, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("matrix row %d has %d fields, expected %d", lineNo+2, len(row), len(header))
		}
		values := make([]float64, len(columns))
		for j, cell := range row[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("matrix row %d column %q: %w", lineNo+2, columns[j], err)
			}
			values[j] = v
		}
		m.Index = append(m.Index, row[0])
		m.Values = append(m.Values, values)
	}
	return m, nil
}

// ReadMatrixFile reads a tab-delimited matrix from path.
func ReadMatrixFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMatrix(f)
}

// WriteMatrix writes m in tab-delimited form. NaN cells are written empty.
func WriteMatrix(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	header := append([]string{""}, m.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, label := range m.Index {
		row := make([]string, 0, len(m.Columns)+1)
		row = append(row, label)
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				row = append(row, "")
			} else {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMatrixFile writes m to path in tab-delimited form.
func WriteMatrixFile(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteMatrix(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTable parses a tab-delimited string table laid out like ReadMatrix,
// keeping cells verbatim.
func ReadTable(r io.Reader) (*Table, error) {
	rows, err := readTSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	header := rows[0]
	if len(header) < 1 {
		return nil, fmt.Errorf("table header is empty")
	}
	columns := append([]string(nil), header[1:]...)
	t := &Table{Columns: columns}
	for lineNo, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("table row %d has %d fields, expected %d", lineNo+2, len(row), len(header))
		}
		cells := append([]string(nil), row[1:]...)
		t.Index = append(t.Index, row[0])
		t.Cells = append(t.Cells, cells)
	}
	return t, nil
}

// ReadTableFile reads a tab-delimited string table from path.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

// WriteTable writes t in tab-delimited form.
func WriteTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	header := append([]string{""}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, label := range t.Index {
		row := append([]string{label}, t.Cells[i]...)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readTSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

func parseCell(cell string) (float64, error) {
	switch cell {
	case "", "NA", "NaN", "nan", "null", "None":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as number", cell)
	}
	return v, nil
}
