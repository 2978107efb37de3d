package repos

import (
	"strings"
)

// DatasetFilter is an immutable specification of a dataset lookup. Every
// With method returns a modified copy, so partially built filters can be
// shared and extended without ordering bugs.
type DatasetFilter struct {
	ids           []int
	excludeIDs    []int
	publicOnly    bool
	name          string
	platformTypes []string
	projects      []string
	status        string
	query         string
	limit         int
	fields        []string
}

// NewDatasetFilter returns the base filter: public datasets only, no other
// constraints.
func NewDatasetFilter() DatasetFilter {
	return DatasetFilter{publicOnly: true}
}

func (f DatasetFilter) WithIDs(ids []int) DatasetFilter {
	f.ids = append([]int(nil), ids...)
	return f
}

func (f DatasetFilter) WithExcludedIDs(ids []int) DatasetFilter {
	f.excludeIDs = append([]int(nil), ids...)
	return f
}

func (f DatasetFilter) WithPublicOnly(publicOnly bool) DatasetFilter {
	f.publicOnly = publicOnly
	return f
}

func (f DatasetFilter) WithName(name string) DatasetFilter {
	f.name = name
	return f
}

func (f DatasetFilter) WithPlatformTypes(platformTypes []string) DatasetFilter {
	f.platformTypes = append([]string(nil), platformTypes...)
	return f
}

func (f DatasetFilter) WithProjects(projects []string) DatasetFilter {
	f.projects = append([]string(nil), projects...)
	return f
}

func (f DatasetFilter) WithStatus(status string) DatasetFilter {
	f.status = status
	return f
}

// WithQuery applies a text search directly as a dataset constraint, for
// lookups that do not pre-compute a candidate pool across collections.
func (f DatasetFilter) WithQuery(query string) DatasetFilter {
	f.query = query
	return f
}

func (f DatasetFilter) WithLimit(limit int) DatasetFilter {
	f.limit = limit
	return f
}

func (f DatasetFilter) WithFields(fields []string) DatasetFilter {
	f.fields = append([]string(nil), fields...)
	return f
}

// SampleFilter is the sample-collection counterpart of DatasetFilter.
type SampleFilter struct {
	query      string
	organism   string
	datasetIDs []int
	excludeIDs []int
	publicOnly bool
	limit      int
}

func NewSampleFilter() SampleFilter {
	return SampleFilter{}
}

func (f SampleFilter) WithQuery(query string) SampleFilter {
	f.query = query
	return f
}

func (f SampleFilter) WithOrganism(organism string) SampleFilter {
	f.organism = organism
	return f
}

func (f SampleFilter) WithDatasetIDs(ids []int) SampleFilter {
	f.datasetIDs = append([]int(nil), ids...)
	return f
}

func (f SampleFilter) WithExcludedIDs(ids []int) SampleFilter {
	f.excludeIDs = append([]int(nil), ids...)
	return f
}

func (f SampleFilter) WithPublicOnly(publicOnly bool) SampleFilter {
	f.publicOnly = publicOnly
	return f
}

func (f SampleFilter) WithLimit(limit int) SampleFilter {
	f.limit = limit
	return f
}

// datasetSearchColumns are the text fields scanned by the LIKE fallback on
// drivers without tsvector support. Postgres searches the generated
// search_tsv column instead.
var datasetSearchColumns = []string{"name", "title", "authors", "description", "accession", "platform"}

var sampleSearchColumns = []string{
	"cell_type", "parental_cell_type", "final_cell_type", "disease_state",
	"sample_type", "tissue_of_origin", "sample_name_long", "cell_line",
	"sample_description", "treatment", "sample_source", "developmental_stage",
}

func textSearchClause(driver string, columns []string, query string) (string, []interface{}) {
	if driver == "postgres" {
		return "search_tsv @@ plainto_tsquery('english', ?)", []interface{}{query}
	}
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	pattern := "%" + strings.ToLower(query) + "%"
	for _, col := range columns {
		parts = append(parts, "lower("+col+") LIKE ?")
		args = append(args, pattern)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// projectsClause matches datasets whose projects JSON array contains any of
// the given tags.
func projectsClause(driver string) string {
	if driver == "postgres" {
		return "EXISTS (SELECT 1 FROM jsonb_array_elements_text(projects) AS p(tag) WHERE p.tag IN ?)"
	}
	return "EXISTS (SELECT 1 FROM json_each(projects) WHERE json_each.value IN ?)"
}
