package projection

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wellslab/s4m-api/internal/atlas"
	"github.com/wellslab/s4m-api/internal/frame"
)

// methodScores builds the auxiliary score tables attached to a successful
// projection, keyed by method name. The only method currently implemented is
// "centroid": each projected sample is scored against the mean atlas
// coordinates of every sample group by Pearson correlation across the
// principal components.
func (p *PCAProjector) methodScores(atl *atlas.Atlas, atlasScores, testScores *frame.Matrix) map[string]*frame.Matrix {
	samples, err := atl.Samples()
	if err != nil {
		p.log.Warn("Could not read atlas samples for scoring", "atlas_type", atl.Type, "error", err)
		return nil
	}

	column := ""
	for _, candidate := range p.groupingColumns {
		if samples.HasColumn(candidate) {
			column = candidate
			break
		}
	}
	if column == "" {
		return nil
	}

	table := centroidScoreTable(atlasScores, samples, column, testScores)
	if table == nil {
		return nil
	}
	return map[string]*frame.Matrix{"centroid": table}
}

// centroidScoreTable returns a test-sample x group matrix of correlation
// scores, or nil when the grouping column yields fewer than two annotated
// groups.
func centroidScoreTable(atlasScores *frame.Matrix, samples *frame.Table, column string, testScores *frame.Matrix) *frame.Matrix {
	values, ok := samples.Column(column)
	if !ok {
		return nil
	}
	groupOf := make(map[string]string, len(samples.Index))
	for i, sampleID := range samples.Index {
		if values[i] != "" {
			groupOf[sampleID] = values[i]
		}
	}

	k := atlasScores.NCols()
	sums := map[string][]float64{}
	counts := map[string]int{}
	for i, sampleID := range atlasScores.Index {
		group, ok := groupOf[sampleID]
		if !ok {
			continue
		}
		if _, ok := sums[group]; !ok {
			sums[group] = make([]float64, k)
		}
		for c := 0; c < k; c++ {
			sums[group][c] += atlasScores.Values[i][c]
		}
		counts[group]++
	}
	if len(sums) < 2 {
		return nil
	}

	groups := make([]string, 0, len(sums))
	for group := range sums {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	centroids := make([][]float64, len(groups))
	for gi, group := range groups {
		centroid := make([]float64, k)
		for c := 0; c < k; c++ {
			centroid[c] = sums[group][c] / float64(counts[group])
		}
		centroids[gi] = centroid
	}

	out := frame.NewMatrix(append([]string(nil), testScores.Index...), groups)
	for i := range testScores.Index {
		for gi := range groups {
			out.Values[i][gi] = stat.Correlation(testScores.Values[i], centroids[gi], nil)
		}
	}
	return out
}
