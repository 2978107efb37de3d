package repos

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wellslab/s4m-api/internal/repos/testutil"
	"github.com/wellslab/s4m-api/internal/types"
)

func seedDatasetFixtures(t *testing.T, ctx context.Context, tx *gorm.DB) {
	t.Helper()
	testutil.SeedDataset(t, ctx, tx, &types.Dataset{
		DatasetID:    100,
		Name:         "ernst_2019",
		Title:        "CD34+ progenitor profiling",
		Description:  "Expression profiling of cord blood progenitors",
		PlatformType: "RNASeq",
		Status:       "passed",
		Projects:     datatypes.JSON([]byte(`["blood_atlas"]`)),
	})
	testutil.SeedDataset(t, ctx, tx, &types.Dataset{
		DatasetID:    101,
		Name:         "silva_2016",
		Title:        "Fibroblast reprogramming time course",
		Description:  "iPSC derivation sampled across twelve days",
		PlatformType: "Microarray",
		Status:       "passed",
	})
	testutil.SeedDataset(t, ctx, tx, &types.Dataset{
		DatasetID:    102,
		Name:         "keita_2021",
		Title:        "Unpublished dendritic cell dataset",
		PlatformType: "RNASeq",
		Private:      true,
		Status:       "in_review",
	})
	testutil.SeedDataset(t, ctx, tx, &types.Dataset{
		DatasetID:    103,
		Name:         "marsh_2020",
		Title:        "Myeloid differentiation atlas samples",
		PlatformType: "scRNASeq",
		Status:       "passed",
		Projects:     datatypes.JSON([]byte(`["myeloid_atlas","benchmarking"]`)),
	})
}

func datasetIDsOf(rows []types.Dataset) []int {
	ids := make([]int, len(rows))
	for i := range rows {
		ids[i] = rows[i].DatasetID
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDatasetRepoFind(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	seedDatasetFixtures(t, ctx, tx)

	repo := NewDatasetRepo(db, testutil.Logger(t))

	rows, err := repo.Find(ctx, tx, NewDatasetFilter())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got := datasetIDsOf(rows); !equalInts(got, []int{100, 101, 103}) {
		t.Fatalf("Find public: want=[100 101 103] got=%v", got)
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithPublicOnly(false))
	if err != nil {
		t.Fatalf("Find all: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Find all: want=4 got=%d", len(rows))
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithPublicOnly(false).WithIDs([]int{100, 102}))
	if err != nil {
		t.Fatalf("Find ids: %v", err)
	}
	if got := datasetIDsOf(rows); !equalInts(got, []int{100, 102}) {
		t.Fatalf("Find ids: want=[100 102] got=%v", got)
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithExcludedIDs([]int{101}))
	if err != nil {
		t.Fatalf("Find excluded: %v", err)
	}
	if got := datasetIDsOf(rows); !equalInts(got, []int{100, 103}) {
		t.Fatalf("Find excluded: want=[100 103] got=%v", got)
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithPlatformTypes([]string{"RNASeq", "Microarray"}))
	if err != nil {
		t.Fatalf("Find platform: %v", err)
	}
	if got := datasetIDsOf(rows); !equalInts(got, []int{100, 101}) {
		t.Fatalf("Find platform: want=[100 101] got=%v", got)
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithProjects([]string{"blood_atlas", "myeloid_atlas"}))
	if err != nil {
		t.Fatalf("Find projects: %v", err)
	}
	if got := datasetIDsOf(rows); !equalInts(got, []int{100, 103}) {
		t.Fatalf("Find projects: want=[100 103] got=%v", got)
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithStatus("in_review").WithPublicOnly(false))
	if err != nil {
		t.Fatalf("Find status: %v", err)
	}
	if got := datasetIDsOf(rows); !equalInts(got, []int{102}) {
		t.Fatalf("Find status: want=[102] got=%v", got)
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithQuery("cd34"))
	if err != nil {
		t.Fatalf("Find query: %v", err)
	}
	if got := datasetIDsOf(rows); !equalInts(got, []int{100}) {
		t.Fatalf("Find query: want=[100] got=%v", got)
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithLimit(2))
	if err != nil {
		t.Fatalf("Find limit: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Find limit: want=2 got=%d", len(rows))
	}

	rows, err = repo.Find(ctx, tx, NewDatasetFilter().WithIDs([]int{101}).WithFields([]string{"dataset_id", "name"}))
	if err != nil {
		t.Fatalf("Find fields: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "silva_2016" {
		t.Fatalf("Find fields: unexpected rows: %+v", rows)
	}
	if rows[0].Title != "" {
		t.Fatalf("Find fields: title should not be selected, got %q", rows[0].Title)
	}
}

func TestDatasetRepoFindIDs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	seedDatasetFixtures(t, ctx, tx)

	repo := NewDatasetRepo(db, testutil.Logger(t))

	ids, err := repo.FindIDs(ctx, tx, NewDatasetFilter().WithPlatformTypes([]string{"RNASeq"}).WithPublicOnly(false))
	if err != nil {
		t.Fatalf("FindIDs: %v", err)
	}
	if !equalInts(ids, []int{100, 102}) {
		t.Fatalf("FindIDs: want=[100 102] got=%v", ids)
	}
}

func TestDatasetRepoSearchIDs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	seedDatasetFixtures(t, ctx, tx)

	repo := NewDatasetRepo(db, testutil.Logger(t))

	// Search has no visibility filter: private dataset 102 matches too.
	ids, err := repo.SearchIDs(ctx, tx, "DENDRITIC")
	if err != nil {
		t.Fatalf("SearchIDs: %v", err)
	}
	if !equalInts(ids, []int{102}) {
		t.Fatalf("SearchIDs: want=[102] got=%v", ids)
	}

	ids, err = repo.SearchIDs(ctx, tx, "no-such-term-anywhere")
	if err != nil {
		t.Fatalf("SearchIDs empty: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("SearchIDs empty: want=[] got=%v", ids)
	}
}

func TestDatasetRepoGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	seedDatasetFixtures(t, ctx, tx)

	repo := NewDatasetRepo(db, testutil.Logger(t))

	ds, err := repo.Get(ctx, tx, 102)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ds.Name != "keita_2021" || !ds.Private {
		t.Fatalf("Get: unexpected dataset: %+v", ds)
	}

	if _, err := repo.Get(ctx, tx, 999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Get missing: want ErrRecordNotFound got %v", err)
	}
}

func TestDatasetRepoGetByName(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	seedDatasetFixtures(t, ctx, tx)

	repo := NewDatasetRepo(db, testutil.Logger(t))

	ds, err := repo.GetByName(ctx, tx, "ernst_2019", true)
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if ds.DatasetID != 100 {
		t.Fatalf("GetByName: want=100 got=%d", ds.DatasetID)
	}

	// Private dataset is invisible to a public-only lookup.
	if _, err := repo.GetByName(ctx, tx, "keita_2021", true); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByName private: want ErrRecordNotFound got %v", err)
	}
	ds, err = repo.GetByName(ctx, tx, "keita_2021", false)
	if err != nil {
		t.Fatalf("GetByName private visible: %v", err)
	}
	if ds.DatasetID != 102 {
		t.Fatalf("GetByName private visible: want=102 got=%d", ds.DatasetID)
	}
}

func TestDatasetRepoColumnValues(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	seedDatasetFixtures(t, ctx, tx)

	repo := NewDatasetRepo(db, testutil.Logger(t))

	values, err := repo.ColumnValues(ctx, tx, "platform_type", NewDatasetFilter().WithPublicOnly(false))
	if err != nil {
		t.Fatalf("ColumnValues: %v", err)
	}
	want := []string{"RNASeq", "Microarray", "RNASeq", "scRNASeq"}
	if len(values) != len(want) {
		t.Fatalf("ColumnValues: want=%d values got=%d", len(want), len(values))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("ColumnValues[%d]: want=%q got=%q", i, want[i], values[i])
		}
	}

	projects, err := repo.ColumnValues(ctx, tx, "projects", NewDatasetFilter().WithPublicOnly(false))
	if err != nil {
		t.Fatalf("ColumnValues projects: %v", err)
	}
	wantProjects := []string{"blood_atlas", "", "", "myeloid_atlas,benchmarking"}
	for i := range wantProjects {
		if projects[i] != wantProjects[i] {
			t.Fatalf("ColumnValues projects[%d]: want=%q got=%q", i, wantProjects[i], projects[i])
		}
	}
}
