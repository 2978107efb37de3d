package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
	"github.com/wellslab/s4m-api/internal/repos"
	"github.com/wellslab/s4m-api/internal/types"
)

// DatasetQueryOptions enumerates every recognised dataset filter option.
// Zero values mean the option was not supplied; use NewDatasetQueryOptions
// for the defaults rather than a bare literal.
type DatasetQueryOptions struct {
	Limit               int
	IDsOnly             bool
	PublicOnly          bool
	IncludeSamplesQuery bool
	DatasetIDs          []int
	Name                string
	QueryString         string
	PlatformType        string // single value or comma-separated list
	Projects            string // literal tag, or "atlas" for any atlas tag
	Organism            string // "all" disables the organism filter
	Status              string
	Fields              []string
}

// NewDatasetQueryOptions returns the default option set: public datasets
// only, dataset-collection search only, no other filters.
func NewDatasetQueryOptions() DatasetQueryOptions {
	return DatasetQueryOptions{PublicOnly: true}
}

// SampleQueryOptions are the recognised sample lookup options.
type SampleQueryOptions struct {
	QueryString string
	Organism    string
	DatasetIDs  []int
	Limit       int
	PublicOnly  bool
}

func NewSampleQueryOptions() SampleQueryOptions {
	return SampleQueryOptions{PublicOnly: true}
}

// ResolvedDatasets is the outcome of a dataset query: matching ids when
// IDsOnly was set, otherwise the matching records restricted to Fields.
type ResolvedDatasets struct {
	IDs      []int
	Datasets []types.Dataset
	Fields   []string
}

// Records serializes the resolved datasets one map per record.
func (r *ResolvedDatasets) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(r.Datasets))
	for i := range r.Datasets {
		records = append(records, r.Datasets[i].Record(r.Fields))
	}
	return records
}

type QueryService interface {
	ResolveDatasets(ctx context.Context, opts DatasetQueryOptions) (*ResolvedDatasets, error)
	ResolveSamples(ctx context.Context, opts SampleQueryOptions) ([]types.Sample, error)
}

type queryService struct {
	datasets repos.DatasetRepo
	samples  repos.SampleRepo
	log      *logger.Logger
}

func NewQueryService(datasets repos.DatasetRepo, samples repos.SampleRepo, log *logger.Logger) QueryService {
	return &queryService{
		datasets: datasets,
		samples:  samples,
		log:      log.With("service", "QueryService"),
	}
}

// ResolveDatasets translates the filter options into one dataset lookup.
//
// Free-text search (when it also scans the sample collection), the organism
// filter and the explicit id list each produce a set of candidate dataset
// ids; the sets are combined by union (the two text searches) and
// intersection (everything after). A pool that no step has touched is
// "unrestricted" and must not be confused with a pool some step emptied:
// once a search-derived step has run and the pool is empty, the result is
// empty no matter what the remaining filters would match. Scalar filters and
// the deny-list are applied on the final lookup itself.
func (qs *queryService) ResolveDatasets(ctx context.Context, opts DatasetQueryOptions) (*ResolvedDatasets, error) {
	spec := portal.Current(qs.log)
	fields := qs.datasetFields(spec, opts.Fields)

	base := repos.NewDatasetFilter().
		WithPublicOnly(opts.PublicOnly).
		WithExcludedIDs(spec.ExcludedDatasetIDs)

	var pool []int
	poolSet := false
	searched := false

	if opts.QueryString != "" && opts.QueryString != "*" {
		if opts.IncludeSamplesQuery {
			var sampleHits, datasetHits []int
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				sampleHits, err = qs.samples.SearchDatasetIDs(gctx, nil, opts.QueryString)
				return err
			})
			g.Go(func() error {
				var err error
				datasetHits, err = qs.datasets.SearchIDs(gctx, nil, opts.QueryString)
				return err
			})
			if err := g.Wait(); err != nil {
				return nil, err
			}
			pool = unionInts(sampleHits, datasetHits)
			poolSet = true
			searched = true
		} else {
			base = base.WithQuery(opts.QueryString)
		}
	}

	if opts.Organism != "" && opts.Organism != "all" {
		ids, err := qs.samples.DatasetIDsByOrganism(ctx, nil, opts.Organism)
		if err != nil {
			return nil, err
		}
		if poolSet {
			pool = intersectInts(pool, ids)
		} else {
			pool = ids
			poolSet = true
		}
		searched = true
	}

	if len(opts.DatasetIDs) > 0 {
		if poolSet {
			pool = intersectInts(pool, opts.DatasetIDs)
		} else {
			pool = append([]int(nil), opts.DatasetIDs...)
			poolSet = true
		}
	}

	if searched && len(pool) == 0 {
		qs.log.Debug("Dataset search matched nothing", "query", opts.QueryString, "organism", opts.Organism)
		return emptyResolved(opts.IDsOnly, fields), nil
	}
	if poolSet && len(pool) > 0 {
		base = base.WithIDs(pool)
	}

	if opts.PlatformType != "" {
		base = base.WithPlatformTypes(splitCommaList(opts.PlatformType))
	}
	if opts.Projects != "" {
		if opts.Projects == "atlas" {
			base = base.WithProjects(spec.AtlasProjectTags())
		} else {
			base = base.WithProjects([]string{opts.Projects})
		}
	}
	if opts.Status != "" {
		base = base.WithStatus(opts.Status)
	}
	if opts.Name != "" {
		base = base.WithName(opts.Name)
	}
	if opts.Limit > 0 {
		base = base.WithLimit(opts.Limit)
	}

	if opts.IDsOnly {
		ids, err := qs.datasets.FindIDs(ctx, nil, base)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []int{}
		}
		return &ResolvedDatasets{IDs: ids, Fields: fields}, nil
	}

	rows, err := qs.datasets.Find(ctx, nil, base.WithFields(fields))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []types.Dataset{}
	}
	return &ResolvedDatasets{Datasets: rows, Fields: fields}, nil
}

// ResolveSamples looks up sample records by text search, organism and
// dataset ids. "*" as the query string matches everything. With PublicOnly
// the result is restricted to samples of visible datasets.
func (qs *queryService) ResolveSamples(ctx context.Context, opts SampleQueryOptions) ([]types.Sample, error) {
	filter := repos.NewSampleFilter().
		WithDatasetIDs(opts.DatasetIDs).
		WithLimit(opts.Limit)
	if opts.QueryString != "" && opts.QueryString != "*" {
		filter = filter.WithQuery(opts.QueryString)
	}
	if opts.Organism != "" && opts.Organism != "all" {
		filter = filter.WithOrganism(opts.Organism)
	}
	if opts.PublicOnly {
		filter = filter.WithPublicOnly(true)
	}

	samples, err := qs.samples.Find(ctx, nil, filter)
	if err != nil {
		return nil, err
	}
	if samples == nil {
		samples = []types.Sample{}
	}
	return samples, nil
}

// datasetFields validates the requested projection against the portal field
// list and guarantees dataset_id is present.
func (qs *queryService) datasetFields(spec *portal.Spec, requested []string) []string {
	if len(requested) == 0 {
		return append([]string(nil), spec.DatasetFields...)
	}
	fields := make([]string, 0, len(requested)+1)
	hasID := false
	for _, field := range requested {
		if !spec.IsDatasetField(field) {
			qs.log.Debug("Ignoring unknown dataset field", "field", field)
			continue
		}
		if field == "dataset_id" {
			hasID = true
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return append([]string(nil), spec.DatasetFields...)
	}
	if !hasID {
		fields = append([]string{"dataset_id"}, fields...)
	}
	return fields
}

func emptyResolved(idsOnly bool, fields []string) *ResolvedDatasets {
	if idsOnly {
		return &ResolvedDatasets{IDs: []int{}, Fields: fields}
	}
	return &ResolvedDatasets{Datasets: []types.Dataset{}, Fields: fields}
}

// unionInts merges two id lists preserving first-seen order.
func unionInts(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, list := range [][]int{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// intersectInts keeps the elements of a that also occur in b, in a's order.
func intersectInts(a, b []int) []int {
	inB := make(map[int]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	out := make([]int, 0, len(a))
	for _, id := range a {
		if _, ok := inB[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
