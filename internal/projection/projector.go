package projection

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wellslab/s4m-api/internal/atlas"
	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
)

// Validation messages surfaced through Result.Error. MsgZeroRows is checked
// by callers before any atlas data is loaded.
const (
	MsgZeroRows       = "Data to project appears to have 0 rows. Check format of the file."
	msgDuplicateIndex = "This expression data contain duplicate index. Please remove these first."
	msgNoCommonGenes  = "No genes common between test data and atlas, likely due to row ids not in Ensembl ids."
	msgLowCommonGenes = "Less than 50%% of genes in test data are common with atlas (%d common)"
)

const (
	nComponents = 10
	nAxes       = 3
)

// Result holds the outcome of projecting test data onto an atlas. Error is a
// validation message; when it is non-empty the remaining fields are unset.
type Result struct {
	Name           string
	Error          string
	Coords         *frame.Matrix
	CombinedCoords *frame.Matrix
	Scores         map[string]*frame.Matrix
}

// PCAProjector projects expression data onto an atlas coordinate space. It
// fits a PCA on the atlas' rank-normalised expression matrix, then rank
// transforms the test data over the atlas gene index and transforms it with
// the fitted components.
type PCAProjector struct {
	atlasRoot       string
	groupingColumns []string
	log             *logger.Logger
}

// NewPCAProjector returns a projector reading atlases under atlasRoot.
// groupingColumns is the preference order of sample columns used to build
// per-group score tables.
func NewPCAProjector(atlasRoot string, groupingColumns []string, log *logger.Logger) *PCAProjector {
	return &PCAProjector{
		atlasRoot:       atlasRoot,
		groupingColumns: append([]string(nil), groupingColumns...),
		log:             log.With("component", "PCAProjector"),
	}
}

func (p *PCAProjector) Project(ctx context.Context, atlasType, name string, testData *frame.Matrix, includeCombinedCoords bool) (*Result, error) {
	result := &Result{Name: name}

	atl, err := atlas.Open(p.atlasRoot, atlasType, "")
	if err != nil {
		return nil, err
	}
	atlasExpression, err := atl.Expression(true)
	if err != nil {
		return nil, err
	}
	inclusionCount, err := atl.InclusionGeneCount()
	if err != nil {
		return nil, err
	}

	common := commonGeneCount(testData, atlasExpression)
	errMsg := ""
	switch {
	case testData.NRows() == 0:
		errMsg = MsgZeroRows
	case testData.HasDuplicateIndex():
		errMsg = msgDuplicateIndex
	case common == 0:
		errMsg = msgNoCommonGenes
	case float64(common)/float64(inclusionCount) < 0.5:
		errMsg = fmt.Sprintf(msgLowCommonGenes, common)
	}
	if errMsg != "" {
		result.Error = errMsg
		return result, nil
	}

	// Test data is reindexed on the full atlas gene index rather than the
	// common genes, since the PCA is fitted on the atlas matrix. Atlas genes
	// absent from the test data rank at the bottom.
	dfTest := RankTransform(testData.Reindex(atlasExpression.Index))

	atlasScores, components, geneMeans, err := fitPCA(atlasExpression)
	if err != nil {
		return nil, err
	}
	testScores := transformPCA(dfTest, components, geneMeans)

	p.log.Debug("Projection computed",
		"atlas_type", atlasType,
		"name", name,
		"test_samples", len(dfTest.Columns),
		"common_genes", common)

	if scores := p.methodScores(atl, atlasScores, testScores); len(scores) > 0 {
		result.Scores = scores
	}

	coords := takeAxes(testScores, nAxes)
	if includeCombinedCoords {
		// Projected points are renamed in place so they stay distinguishable
		// from atlas points in the combined table.
		for i, id := range coords.Index {
			coords.Index[i] = fmt.Sprintf("%s_%s", name, id)
		}
		result.CombinedCoords = concatRows(takeAxes(atlasScores, nAxes), coords)
	}
	result.Coords = coords

	return result, nil
}

func commonGeneCount(testData, atlasExpression *frame.Matrix) int {
	atlasGenes := atlasExpression.IndexSet()
	seen := make(map[string]struct{})
	count := 0
	for _, gene := range testData.Index {
		if _, ok := atlasGenes[gene]; !ok {
			continue
		}
		if _, dup := seen[gene]; dup {
			continue
		}
		seen[gene] = struct{}{}
		count++
	}
	return count
}

// fitPCA runs a principal component analysis over the atlas expression
// matrix, samples as observations and genes as features. It returns the
// atlas sample scores, the component matrix (genes x components) and the
// per-gene means used for centering.
func fitPCA(expr *frame.Matrix) (*frame.Matrix, *mat.Dense, []float64, error) {
	nGenes := expr.NRows()
	nSamples := expr.NCols()
	if nGenes == 0 || nSamples == 0 {
		return nil, nil, nil, errors.New("empty atlas expression matrix")
	}

	X := mat.NewDense(nSamples, nGenes, nil)
	for i := 0; i < nGenes; i++ {
		for j := 0; j < nSamples; j++ {
			X.Set(j, i, expr.Values[i][j])
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return nil, nil, nil, errors.New("principal component decomposition failed")
	}

	k := nComponents
	if nSamples < k {
		k = nSamples
	}
	if nGenes < k {
		k = nGenes
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)
	components := mat.DenseCopyOf(vec.Slice(0, nGenes, 0, k))

	geneMeans := make([]float64, nGenes)
	for i := 0; i < nGenes; i++ {
		sum := 0.0
		for j := 0; j < nSamples; j++ {
			sum += expr.Values[i][j]
		}
		geneMeans[i] = sum / float64(nSamples)
	}

	centered := mat.NewDense(nSamples, nGenes, nil)
	for j := 0; j < nSamples; j++ {
		for i := 0; i < nGenes; i++ {
			centered.Set(j, i, X.At(j, i)-geneMeans[i])
		}
	}
	var scores mat.Dense
	scores.Mul(centered, components)

	// Make each component's sign deterministic: the largest-magnitude atlas
	// score of a component is positive.
	for c := 0; c < k; c++ {
		maxAbs, maxVal := 0.0, 0.0
		for j := 0; j < nSamples; j++ {
			v := scores.At(j, c)
			if a := math.Abs(v); a > maxAbs {
				maxAbs, maxVal = a, v
			}
		}
		if maxVal < 0 {
			for j := 0; j < nSamples; j++ {
				scores.Set(j, c, -scores.At(j, c))
			}
			for i := 0; i < nGenes; i++ {
				components.Set(i, c, -components.At(i, c))
			}
		}
	}

	return scoresFrame(expr.Columns, &scores, k), components, geneMeans, nil
}

// transformPCA projects a gene x sample matrix into the fitted component
// space. The matrix must share the gene index the PCA was fitted on.
func transformPCA(df *frame.Matrix, components *mat.Dense, geneMeans []float64) *frame.Matrix {
	nGenes := df.NRows()
	nTest := df.NCols()
	_, k := components.Dims()

	centered := mat.NewDense(nTest, nGenes, nil)
	for j := 0; j < nTest; j++ {
		for i := 0; i < nGenes; i++ {
			centered.Set(j, i, df.Values[i][j]-geneMeans[i])
		}
	}
	var scores mat.Dense
	scores.Mul(centered, components)
	return scoresFrame(df.Columns, &scores, k)
}

func scoresFrame(sampleIDs []string, scores *mat.Dense, k int) *frame.Matrix {
	columns := make([]string, k)
	for c := range columns {
		columns[c] = fmt.Sprintf("%d", c)
	}
	out := frame.NewMatrix(append([]string(nil), sampleIDs...), columns)
	for j := range sampleIDs {
		for c := 0; c < k; c++ {
			out.Values[j][c] = scores.At(j, c)
		}
	}
	return out
}

func takeAxes(scores *frame.Matrix, n int) *frame.Matrix {
	if scores.NCols() < n {
		n = scores.NCols()
	}
	columns := make([]string, n)
	for c := range columns {
		columns[c] = fmt.Sprintf("%d", c)
	}
	out := frame.NewMatrix(append([]string(nil), scores.Index...), columns)
	for i := range scores.Index {
		copy(out.Values[i], scores.Values[i][:n])
	}
	return out
}

func concatRows(a, b *frame.Matrix) *frame.Matrix {
	out := frame.NewMatrix(append(append([]string(nil), a.Index...), b.Index...), append([]string(nil), a.Columns...))
	for i := range a.Index {
		copy(out.Values[i], a.Values[i])
	}
	for i := range b.Index {
		copy(out.Values[len(a.Index)+i], b.Values[i])
	}
	return out
}
