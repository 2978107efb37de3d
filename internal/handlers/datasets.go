package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
	"github.com/wellslab/s4m-api/internal/requestdata"
	"github.com/wellslab/s4m-api/internal/services"
	"github.com/wellslab/s4m-api/internal/types"
)

type DatasetHandler struct {
	log            *logger.Logger
	queryService   services.QueryService
	datasetService services.DatasetService
}

func NewDatasetHandler(log *logger.Logger, qsvc services.QueryService, dsvc services.DatasetService) *DatasetHandler {
	return &DatasetHandler{
		log:            log.With("handler", "DatasetHandler"),
		queryService:   qsvc,
		datasetService: dsvc,
	}
}

// GET /search/datasets
// Filterable dataset search. Anonymous callers only see public datasets.
func (dh *DatasetHandler) SearchDatasets(c *gin.Context) {
	opts := services.NewDatasetQueryOptions()
	opts.QueryString = c.Query("query_string")
	opts.Organism = c.Query("organism")
	opts.PlatformType = c.Query("platform_type")
	opts.Projects = c.Query("projects")
	opts.Status = c.Query("status")
	opts.Name = c.Query("name")
	opts.IncludeSamplesQuery = parseBool(c.Query("include_samples_query"), false)
	opts.IDsOnly = parseBool(c.Query("ids_only"), false)
	opts.PublicOnly = !requestdata.Authenticated(c.Request.Context())

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		opts.Limit = n
	}
	if raw := c.Query("dataset_id"); raw != "" {
		ids, err := parseIntList(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_dataset_id", err)
			return
		}
		opts.DatasetIDs = ids
	}
	if raw := c.Query("fields"); raw != "" {
		opts.Fields = strings.Split(raw, ",")
	}

	resolved, err := dh.queryService.ResolveDatasets(c.Request.Context(), opts)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	if opts.IDsOnly {
		ids := resolved.IDs
		if ids == nil {
			ids = []int{}
		}
		RespondOK(c, ids)
		return
	}
	RespondOK(c, resolved.Records())
}

// GET /search/samples
// Free-text sample search, one record per matching sample.
func (dh *DatasetHandler) SearchSamples(c *gin.Context) {
	opts := services.NewSampleQueryOptions()
	opts.QueryString = c.Query("query_string")
	opts.Organism = c.Query("organism")
	opts.PublicOnly = !requestdata.Authenticated(c.Request.Context())
	opts.Limit = 100

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		opts.Limit = n
	}
	if raw := c.Query("dataset_id"); raw != "" {
		ids, err := parseIntList(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_dataset_id", err)
			return
		}
		opts.DatasetIDs = ids
	}

	samples, err := dh.queryService.ResolveSamples(c.Request.Context(), opts)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	RespondOK(c, sampleRecords(portal.Current(dh.log), samples))
}

// GET /datasets/:datasetId/metadata
// Full metadata record for one dataset. Private datasets need a login.
func (dh *DatasetHandler) Metadata(c *gin.Context) {
	dataset, ok := dh.loadDataset(c)
	if !ok {
		return
	}
	spec := portal.Current(dh.log)
	RespondOK(c, dataset.Record(spec.DatasetFields))
}

// GET /datasets/:datasetId/samples
// Sample annotation table for one dataset. orient selects the serialized
// shape, na replaces missing values.
func (dh *DatasetHandler) Samples(c *gin.Context) {
	dataset, ok := dh.loadDataset(c)
	if !ok {
		return
	}
	table, err := dh.datasetService.SampleTable(c.Request.Context(), dataset.DatasetID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "samples_failed", err)
		return
	}
	if na := c.Query("na"); na != "" {
		table = table.FillMissing(na)
	}
	payload, ok := tableByOrient(table, c.DefaultQuery("orient", "records"))
	if !ok {
		RespondError(c, http.StatusBadRequest, "invalid_orient", fmt.Errorf("orient must be one of records, split, index"))
		return
	}
	RespondOK(c, payload)
}

// GET /datasets/:datasetId/expression
// Expression values for one dataset, optionally restricted to a gene list.
// key selects the representation (raw, genes or cpm).
func (dh *DatasetHandler) Expression(c *gin.Context) {
	dataset, ok := dh.loadDataset(c)
	if !ok {
		return
	}
	key := c.DefaultQuery("key", "raw")
	switch key {
	case "raw", "genes", "cpm":
	default:
		RespondError(c, http.StatusBadRequest, "invalid_key", fmt.Errorf("key must be one of raw, genes, cpm"))
		return
	}

	matrix, err := dh.datasetService.ExpressionMatrix(c.Request.Context(), dataset, key)
	if err != nil {
		RespondError(c, http.StatusNotFound, "expression_not_found", fmt.Errorf("No expression file found for dataset %d", dataset.DatasetID))
		return
	}
	if geneIDs := queryList(c, "gene_id"); len(geneIDs) > 0 {
		keep := make(map[string]struct{}, len(geneIDs))
		for _, id := range geneIDs {
			keep[id] = struct{}{}
		}
		matrix = matrix.SelectRows(keep)
	}
	payload, ok := matrixByOrient(matrix, c.DefaultQuery("orient", "records"))
	if !ok {
		RespondError(c, http.StatusBadRequest, "invalid_orient", fmt.Errorf("orient must be one of records, split, index"))
		return
	}
	RespondOK(c, payload)
}

// GET /values/:collection/:key
// Distinct values of one field across the visible datasets or samples, or
// per-value counts with include_count.
func (dh *DatasetHandler) Values(c *gin.Context) {
	opts := services.ValuesOptions{
		IncludeCount: parseBool(c.Query("include_count"), false),
		Organism:     c.Query("organism"),
		PublicOnly:   !requestdata.Authenticated(c.Request.Context()),
	}
	values, err := dh.datasetService.AllValues(c.Request.Context(), c.Param("collection"), c.Param("key"), opts)
	if err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			RespondError(c, http.StatusNotFound, "key_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "values_failed", err)
		return
	}
	if opts.IncludeCount {
		counts := values.Counts
		if counts == nil {
			counts = map[string]int{}
		}
		RespondOK(c, counts)
		return
	}
	vals := values.Values
	if vals == nil {
		vals = []string{}
	}
	RespondOK(c, vals)
}

// loadDataset resolves the datasetId path parameter and enforces the
// private-dataset gate. On failure it has already written the response.
func (dh *DatasetHandler) loadDataset(c *gin.Context) (*types.Dataset, bool) {
	id, err := strconv.Atoi(c.Param("datasetId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_dataset_id", fmt.Errorf("datasetId must be an integer"))
		return nil, false
	}
	dataset, err := dh.datasetService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrDatasetNotFound) {
			RespondError(c, http.StatusNotFound, "dataset_not_found", err)
			return nil, false
		}
		RespondError(c, http.StatusInternalServerError, "dataset_failed", err)
		return nil, false
	}
	if dataset.Private && !requestdata.Authenticated(c.Request.Context()) {
		RespondError(c, http.StatusForbidden, "private_dataset", fmt.Errorf("Dataset %d is private", id))
		return nil, false
	}
	return dataset, true
}

func sampleRecords(spec *portal.Spec, samples []types.Sample) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(samples))
	for i := range samples {
		record := make(map[string]interface{}, len(spec.SampleFields))
		for _, field := range spec.SampleFields {
			switch field {
			case "sample_id":
				record[field] = samples[i].SampleID
			case "dataset_id":
				record[field] = samples[i].DatasetID
			default:
				value, _ := samples[i].FieldValue(field)
				record[field] = value
			}
		}
		records = append(records, record)
	}
	return records
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseIntList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("dataset_id must be a comma-separated list of integers")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// queryList gathers a repeatable query parameter, also splitting any
// comma-separated values.
func queryList(c *gin.Context, name string) []string {
	var values []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}
