package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/wellslab/s4m-api/internal/clients/redis"
	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
	"github.com/wellslab/s4m-api/internal/repos"
	"github.com/wellslab/s4m-api/internal/types"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrKeyNotFound     = errors.New("key not found")
)

const valuesCacheTTL = time.Hour

// ValuesOptions scope an AllValues lookup.
type ValuesOptions struct {
	IncludeCount bool
	Organism     string // "" or "all" disables the organism restriction
	PublicOnly   bool
}

// Values holds either the sorted distinct values of a field or, with
// IncludeCount, the per-value record counts.
type Values struct {
	Values []string       `json:"values,omitempty"`
	Counts map[string]int `json:"counts,omitempty"`
}

type DatasetService interface {
	Get(ctx context.Context, datasetID int) (*types.Dataset, error)
	GetByName(ctx context.Context, name string, publicOnly bool) (*types.Dataset, error)
	Samples(ctx context.Context, datasetID int) ([]types.Sample, error)
	SampleTable(ctx context.Context, datasetID int) (*frame.Table, error)
	ExpressionMatrix(ctx context.Context, dataset *types.Dataset, key string) (*frame.Matrix, error)
	ExpressionFilePath(dataset *types.Dataset, key string) string
	AllValues(ctx context.Context, collection, key string, opts ValuesOptions) (*Values, error)
}

type datasetService struct {
	datasets       repos.DatasetRepo
	samples        repos.SampleRepo
	query          QueryService
	cache          redis.Cache
	expressionRoot string
	log            *logger.Logger
}

// NewDatasetService wires the dataset accessor. cache may be nil, in which
// case aggregate lookups always hit the database.
func NewDatasetService(datasets repos.DatasetRepo, samples repos.SampleRepo, query QueryService, cache redis.Cache, expressionRoot string, log *logger.Logger) DatasetService {
	return &datasetService{
		datasets:       datasets,
		samples:        samples,
		query:          query,
		cache:          cache,
		expressionRoot: expressionRoot,
		log:            log.With("service", "DatasetService"),
	}
}

// Get loads a dataset's metadata record by id, private datasets included.
// Visibility is the caller's concern.
func (ds *datasetService) Get(ctx context.Context, datasetID int) (*types.Dataset, error) {
	dataset, err := ds.datasets.Get(ctx, nil, datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrDatasetNotFound, datasetID)
		}
		return nil, err
	}
	return dataset, nil
}

func (ds *datasetService) GetByName(ctx context.Context, name string, publicOnly bool) (*types.Dataset, error) {
	dataset, err := ds.datasets.GetByName(ctx, nil, name, publicOnly)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
		}
		return nil, err
	}
	return dataset, nil
}

func (ds *datasetService) Samples(ctx context.Context, datasetID int) ([]types.Sample, error) {
	samples, err := ds.samples.ListByDatasetID(ctx, nil, datasetID)
	if err != nil {
		return nil, err
	}
	if samples == nil {
		samples = []types.Sample{}
	}
	return samples, nil
}

// SampleTable returns the dataset's sample annotations as a table indexed by
// sample id. The dataset id column is internal and not part of the table.
func (ds *datasetService) SampleTable(ctx context.Context, datasetID int) (*frame.Table, error) {
	samples, err := ds.Samples(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return sampleTable(portal.Current(ds.log), samples), nil
}

// ExpressionFilePath maps a representation key (raw, genes or cpm) to the
// expression file for the dataset's platform. Microarray datasets carry a
// processed genes file and treat cpm as genes; other platforms carry only
// the raw file.
func (ds *datasetService) ExpressionFilePath(dataset *types.Dataset, key string) string {
	suffix := "raw.tsv"
	if dataset.PlatformType == "Microarray" {
		if key == "cpm" {
			key = "genes"
		}
		suffix = key + ".tsv"
	}
	return filepath.Join(ds.expressionRoot,
		fmt.Sprintf("%d", dataset.DatasetID),
		fmt.Sprintf("%d.%s", dataset.DatasetID, suffix))
}

func (ds *datasetService) ExpressionMatrix(ctx context.Context, dataset *types.Dataset, key string) (*frame.Matrix, error) {
	m, err := frame.ReadMatrixFile(ds.ExpressionFilePath(dataset, key))
	if err != nil {
		return nil, err
	}
	if dataset.PlatformType != "Microarray" && key == "cpm" {
		m = m.CPM()
	}
	return m, nil
}

// AllValues returns the distinct values (or value counts) of one field in
// the datasets or samples collection, scoped to datasets matching the
// organism and visibility options. A field whose values are all empty is
// reported as unknown.
func (ds *datasetService) AllValues(ctx context.Context, collection, key string, opts ValuesOptions) (*Values, error) {
	spec := portal.Current(ds.log)
	switch collection {
	case "datasets":
		if !spec.IsDatasetField(key) {
			return nil, fmt.Errorf("%w: %s.%s", ErrKeyNotFound, collection, key)
		}
	case "samples":
		if !spec.IsSampleField(key) {
			return nil, fmt.Errorf("%w: %s.%s", ErrKeyNotFound, collection, key)
		}
	default:
		return nil, fmt.Errorf("%w: unknown collection %s", ErrKeyNotFound, collection)
	}

	cacheKey := fmt.Sprintf("values:%s:%s:%s:%t:%t", collection, key, opts.Organism, opts.PublicOnly, opts.IncludeCount)
	if ds.cache != nil {
		var cached Values
		if found, err := ds.cache.Get(ctx, cacheKey, &cached); err != nil {
			ds.log.Warn("Values cache read failed", "key", cacheKey, "error", err)
		} else if found {
			return &cached, nil
		}
	}

	var scope []int
	scoped := false
	if (opts.Organism != "" && opts.Organism != "all") || opts.PublicOnly {
		queryOpts := NewDatasetQueryOptions()
		queryOpts.IDsOnly = true
		queryOpts.PublicOnly = opts.PublicOnly
		queryOpts.Organism = opts.Organism
		resolved, err := ds.query.ResolveDatasets(ctx, queryOpts)
		if err != nil {
			return nil, err
		}
		scope = resolved.IDs
		scoped = true
		if len(scope) == 0 {
			return emptyValues(opts.IncludeCount), nil
		}
	}

	var raw []string
	var err error
	if collection == "datasets" {
		filter := repos.NewDatasetFilter().WithPublicOnly(false)
		if scoped {
			filter = filter.WithIDs(scope)
		}
		raw, err = ds.datasets.ColumnValues(ctx, nil, key, filter)
	} else {
		var ids []int
		if scoped {
			ids = scope
		}
		raw, err = ds.samples.ColumnValues(ctx, nil, key, ids)
	}
	if err != nil {
		return nil, err
	}

	allEmpty := len(raw) > 0
	for _, v := range raw {
		if v != "" {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return nil, fmt.Errorf("%w: %s.%s holds no values", ErrKeyNotFound, collection, key)
	}

	result := buildValues(raw, opts.IncludeCount)
	if ds.cache != nil {
		if err := ds.cache.Set(ctx, cacheKey, result, valuesCacheTTL); err != nil {
			ds.log.Warn("Values cache write failed", "key", cacheKey, "error", err)
		}
	}
	return result, nil
}

func emptyValues(includeCount bool) *Values {
	if includeCount {
		return &Values{Counts: map[string]int{}}
	}
	return &Values{Values: []string{}}
}

func buildValues(raw []string, includeCount bool) *Values {
	if includeCount {
		counts := make(map[string]int)
		for _, v := range raw {
			counts[v]++
		}
		return &Values{Counts: counts}
	}
	seen := make(map[string]struct{}, len(raw))
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return &Values{Values: values}
}

// sampleTable converts sample records into a table indexed by sample id with
// the portal's annotation columns.
func sampleTable(spec *portal.Spec, samples []types.Sample) *frame.Table {
	columns := make([]string, 0, len(spec.SampleFields))
	for _, field := range spec.SampleFields {
		if field == "sample_id" || field == "dataset_id" {
			continue
		}
		columns = append(columns, field)
	}
	index := make([]string, len(samples))
	for i := range samples {
		index[i] = samples[i].SampleID
	}
	table := frame.NewTable(index, columns)
	for i := range samples {
		for j, col := range columns {
			if v, ok := samples[i].FieldValue(col); ok {
				table.Cells[i][j] = v
			}
		}
	}
	return table
}
