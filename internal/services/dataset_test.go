package services

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
	"github.com/wellslab/s4m-api/internal/repos"
	"github.com/wellslab/s4m-api/internal/repos/testutil"
	"github.com/wellslab/s4m-api/internal/types"
)

func TestExpressionFilePath(t *testing.T) {
	ds := &datasetService{expressionRoot: "/data/expression", log: logger.NewNop()}

	microarray := &types.Dataset{DatasetID: 6003, PlatformType: "Microarray"}
	rnaseq := &types.Dataset{DatasetID: 7283, PlatformType: "RNASeq"}

	cases := []struct {
		dataset *types.Dataset
		key     string
		want    string
	}{
		{microarray, "raw", "/data/expression/6003/6003.raw.tsv"},
		{microarray, "genes", "/data/expression/6003/6003.genes.tsv"},
		// Microarray data is already normalised, so cpm serves the genes file.
		{microarray, "cpm", "/data/expression/6003/6003.genes.tsv"},
		{rnaseq, "raw", "/data/expression/7283/7283.raw.tsv"},
		{rnaseq, "genes", "/data/expression/7283/7283.raw.tsv"},
		{rnaseq, "cpm", "/data/expression/7283/7283.raw.tsv"},
	}
	for _, tc := range cases {
		if got := ds.ExpressionFilePath(tc.dataset, tc.key); got != filepath.FromSlash(tc.want) {
			t.Fatalf("ExpressionFilePath(%s, %s): want=%s got=%s",
				tc.dataset.PlatformType, tc.key, tc.want, got)
		}
	}
}

func TestExpressionMatrix(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "7283"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	m := frame.NewMatrix([]string{"ENSG00000000101", "ENSG00000000102"}, []string{"s1", "s2"})
	m.Values[0][0] = 100
	m.Values[0][1] = 300
	m.Values[1][0] = 300
	m.Values[1][1] = 100
	if err := frame.WriteMatrixFile(filepath.Join(root, "7283", "7283.raw.tsv"), m); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ds := &datasetService{expressionRoot: root, log: logger.NewNop()}
	dataset := &types.Dataset{DatasetID: 7283, PlatformType: "RNASeq"}
	ctx := context.Background()

	raw, err := ds.ExpressionMatrix(ctx, dataset, "raw")
	if err != nil {
		t.Fatalf("ExpressionMatrix raw: %v", err)
	}
	if raw.Values[0][0] != 100 {
		t.Fatalf("raw cell: want=100 got=%v", raw.Values[0][0])
	}

	cpm, err := ds.ExpressionMatrix(ctx, dataset, "cpm")
	if err != nil {
		t.Fatalf("ExpressionMatrix cpm: %v", err)
	}
	for j, sum := range cpm.ColumnSums() {
		if math.Abs(sum-1e6) > 1e-6 {
			t.Fatalf("cpm column %d should sum to 1e6, got %v", j, sum)
		}
	}

	if _, err := ds.ExpressionMatrix(ctx, dataset, "genes"); err != nil {
		t.Fatalf("ExpressionMatrix genes (same file as raw): %v", err)
	}

	missing := &types.Dataset{DatasetID: 9999, PlatformType: "RNASeq"}
	if _, err := ds.ExpressionMatrix(ctx, missing, "raw"); err == nil {
		t.Fatalf("expected error for missing expression file")
	}
}

func TestSampleTableShape(t *testing.T) {
	spec := portal.Current(logger.NewNop())
	samples := []types.Sample{
		{SampleID: "100_1", DatasetID: 100, CellType: "monocyte", Organism: "homo sapiens"},
		{SampleID: "100_2", DatasetID: 100, CellType: "", Organism: "homo sapiens"},
	}

	table := sampleTable(spec, samples)
	if table.NRows() != 2 || table.Index[0] != "100_1" {
		t.Fatalf("table index: got %v", table.Index)
	}
	// sample_id and dataset_id stay out of the annotation columns.
	for _, col := range table.Columns {
		if col == "sample_id" || col == "dataset_id" {
			t.Fatalf("internal column leaked: %s", col)
		}
	}
	values, ok := table.Column("cell_type")
	if !ok {
		t.Fatalf("cell_type column missing: %v", table.Columns)
	}
	if values[0] != "monocyte" || values[1] != "" {
		t.Fatalf("cell_type values: %v", values)
	}
}

func TestBuildValues(t *testing.T) {
	raw := []string{"RNASeq", "Microarray", "RNASeq", ""}

	distinct := buildValues(raw, false)
	if !equalStringSlices(distinct.Values, []string{"", "Microarray", "RNASeq"}) {
		t.Fatalf("distinct: got %v", distinct.Values)
	}

	counts := buildValues(raw, true)
	if counts.Counts["RNASeq"] != 2 || counts.Counts["Microarray"] != 1 || counts.Counts[""] != 1 {
		t.Fatalf("counts: got %v", counts.Counts)
	}
}

func TestGetMapsMissingDataset(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	testutil.SeedDataset(t, ctx, tx, &types.Dataset{DatasetID: 9201, PlatformType: "RNASeq"})

	log := logger.NewNop()
	svc := NewDatasetService(repos.NewDatasetRepo(tx, log), repos.NewSampleRepo(tx, log), nil, nil, t.TempDir(), log)

	dataset, err := svc.Get(ctx, 9201)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if dataset.DatasetID != 9201 {
		t.Fatalf("Get: want=9201 got=%d", dataset.DatasetID)
	}

	if _, err := svc.Get(ctx, 424242); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("Get missing: want ErrDatasetNotFound got %v", err)
	}
	if _, err := svc.GetByName(ctx, "no-such-name", true); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("GetByName missing: want ErrDatasetNotFound got %v", err)
	}
}

func TestAllValues(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()

	testutil.SeedDataset(t, ctx, tx, &types.Dataset{DatasetID: 9301, PlatformType: "RNASeq"})
	testutil.SeedDataset(t, ctx, tx, &types.Dataset{DatasetID: 9302, PlatformType: "RNASeq"})
	testutil.SeedDataset(t, ctx, tx, &types.Dataset{DatasetID: 9303, PlatformType: "Microarray", Private: true})
	testutil.SeedSample(t, ctx, tx, &types.Sample{DatasetID: 9301, CellType: "monocyte", Organism: "homo sapiens"}, 1)
	testutil.SeedSample(t, ctx, tx, &types.Sample{DatasetID: 9302, CellType: "fibroblast", Organism: "mus musculus"}, 1)
	testutil.SeedSample(t, ctx, tx, &types.Sample{DatasetID: 9303, CellType: "dendritic cell", Organism: "homo sapiens"}, 1)

	log := logger.NewNop()
	datasetRepo := repos.NewDatasetRepo(tx, log)
	sampleRepo := repos.NewSampleRepo(tx, log)
	query := NewQueryService(datasetRepo, sampleRepo, log)
	svc := NewDatasetService(datasetRepo, sampleRepo, query, nil, t.TempDir(), log)

	values, err := svc.AllValues(ctx, "datasets", "platform_type", ValuesOptions{PublicOnly: true})
	if err != nil {
		t.Fatalf("AllValues: %v", err)
	}
	// Only the two public datasets are in scope.
	if !equalStringSlices(values.Values, []string{"RNASeq"}) {
		t.Fatalf("platform values: want=[RNASeq] got=%v", values.Values)
	}

	counts, err := svc.AllValues(ctx, "datasets", "platform_type", ValuesOptions{PublicOnly: true, IncludeCount: true})
	if err != nil {
		t.Fatalf("AllValues counts: %v", err)
	}
	if counts.Counts["RNASeq"] != 2 {
		t.Fatalf("platform counts: got %v", counts.Counts)
	}

	// Organism scoping narrows the parent datasets.
	values, err = svc.AllValues(ctx, "samples", "cell_type", ValuesOptions{PublicOnly: true, Organism: "mus musculus"})
	if err != nil {
		t.Fatalf("AllValues organism: %v", err)
	}
	if !equalStringSlices(values.Values, []string{"fibroblast"}) {
		t.Fatalf("cell_type values: want=[fibroblast] got=%v", values.Values)
	}

	if _, err := svc.AllValues(ctx, "datasets", "not_a_field", ValuesOptions{}); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("unknown key: want ErrKeyNotFound got %v", err)
	}
	if _, err := svc.AllValues(ctx, "things", "name", ValuesOptions{}); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("unknown collection: want ErrKeyNotFound got %v", err)
	}

	// A field that holds only empty values reads as unknown.
	if _, err := svc.AllValues(ctx, "samples", "treatment", ValuesOptions{PublicOnly: true}); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("empty field: want ErrKeyNotFound got %v", err)
	}
}
