package projection

import (
	"fmt"
	"strings"

	"github.com/wellslab/s4m-api/internal/frame"
)

// ValidateFormat checks an expression matrix and its paired sample table for
// mutual consistency before projection. It returns a human-readable message
// describing the first failed check, or "" when all checks pass:
//
//  1. the matrix has one column per sample table row,
//  2. every matrix column appears among the sample table's row ids,
//  3. every matrix row id is an Ensembl gene id,
//  4. the grouping column, when named, exists in the sample table.
func ValidateFormat(m *frame.Matrix, samples *frame.Table, column string) string {
	if m.NCols() != samples.NRows() {
		return fmt.Sprintf("Number of columns in the expression matrix (%d) does not equal the number of rows in the sample table (%d).",
			m.NCols(), samples.NRows())
	}

	sampleIDs := samples.IndexSet()
	for _, col := range m.Columns {
		if _, ok := sampleIDs[col]; !ok {
			return "Some columns of the expression matrix were not found in the sample table. Check that sample ids match."
		}
	}

	for _, geneID := range m.Index {
		if !strings.HasPrefix(geneID, "ENSG") {
			return "Row ids of the expression matrix must be Ensembl gene ids (eg. ENSG00000102145)."
		}
	}

	if column != "" && !samples.HasColumn(column) {
		return fmt.Sprintf("Selected sample group column (%s) was not found in the sample table.", column)
	}

	return ""
}
