package projection

import (
	"math"
	"sort"

	"github.com/wellslab/s4m-api/internal/frame"
)

// RankTransform converts each column of the matrix to scaled descending
// ranks in (0, 1]: the largest value of a column maps to 1, the smallest to
// 1/nRows. Ties share their averaged rank. Missing values are ranked below
// every real value, tied among themselves, so the output has no NaN cells.
func RankTransform(m *frame.Matrix) *frame.Matrix {
	nRows := m.NRows()
	out := frame.NewMatrix(append([]string(nil), m.Index...), append([]string(nil), m.Columns...))
	if nRows == 0 {
		return out
	}

	for j := range m.Columns {
		type cell struct {
			row   int
			value float64
		}
		present := make([]cell, 0, nRows)
		var missing []int
		for i := 0; i < nRows; i++ {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				missing = append(missing, i)
			} else {
				present = append(present, cell{row: i, value: v})
			}
		}
		sort.Slice(present, func(a, b int) bool { return present[a].value > present[b].value })

		ranks := make([]float64, nRows)
		for start := 0; start < len(present); {
			end := start + 1
			for end < len(present) && present[end].value == present[start].value {
				end++
			}
			// 1-based positions start+1 .. end averaged across the tie run
			avg := float64(start+1+end) / 2
			for k := start; k < end; k++ {
				ranks[present[k].row] = avg
			}
			start = end
		}
		if len(missing) > 0 {
			avg := float64(len(present)) + float64(len(missing)+1)/2
			for _, i := range missing {
				ranks[i] = avg
			}
		}

		for i := 0; i < nRows; i++ {
			out.Values[i][j] = (float64(nRows) - ranks[i] + 1) / float64(nRows)
		}
	}
	return out
}
