package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
	"github.com/wellslab/s4m-api/internal/projection"
)

// ErrProjectionFailed is the only error callers see for an unexpected
// failure inside the projection pipeline. The cause is logged, never
// returned.
var ErrProjectionFailed = errors.New("Projection of dataset failed. Check file formats.")

// Projector is the projection capability: fit on the named atlas, project
// the test matrix, optionally combine atlas and projected coordinates.
type Projector interface {
	Project(ctx context.Context, atlasType, name string, testData *frame.Matrix, includeCombinedCoords bool) (*projection.Result, error)
}

// ProjectionParams carries the per-request projection inputs. DataSource
// "stemformatics" projects a catalogued dataset resolved by Name;
// "user" projects the uploaded Expression/Samples pair.
type ProjectionParams struct {
	DataSource  string
	Name        string
	SampleGroup string
	PublicOnly  bool
	Expression  io.Reader
	Samples     io.Reader
}

// ProjectionResult is the transport form of a projection. Either Error is
// set (a validation message) or the remaining fields are.
type ProjectionResult struct {
	Coords         []map[string]interface{}      `json:"coords,omitempty"`
	Samples        []map[string]string           `json:"samples,omitempty"`
	SampleIDs      []string                      `json:"sampleIds,omitempty"`
	Column         string                        `json:"column,omitempty"`
	CombinedCoords *frame.SplitMatrix            `json:"combinedCoords,omitempty"`
	Scores         map[string]*frame.SplitMatrix `json:"scores,omitempty"`
	Error          string                        `json:"error,omitempty"`
}

type ProjectionService interface {
	RunProjection(ctx context.Context, atlasType string, params ProjectionParams) (*ProjectionResult, error)
}

type projectionService struct {
	datasets  DatasetService
	projector Projector
	log       *logger.Logger
}

func NewProjectionService(datasets DatasetService, projector Projector, log *logger.Logger) ProjectionService {
	return &projectionService{
		datasets:  datasets,
		projector: projector,
		log:       log.With("service", "ProjectionService"),
	}
}

// RunProjection resolves the test data for the requested source, projects it
// onto the atlas and assembles the transport result. Validation problems
// come back inside the result; apart from an unknown dataset name, any other
// failure is collapsed into ErrProjectionFailed.
func (ps *projectionService) RunProjection(ctx context.Context, atlasType string, params ProjectionParams) (result *ProjectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			ps.log.Error("Projection panicked",
				"atlas_type", atlasType,
				"data_source", params.DataSource,
				"cause", r)
			result, err = nil, ErrProjectionFailed
		}
	}()

	switch params.DataSource {
	case "stemformatics":
		return ps.fromDataset(ctx, atlasType, params)
	case "user":
		return ps.fromUpload(ctx, atlasType, params)
	default:
		return nil, fmt.Errorf("unknown data source %q", params.DataSource)
	}
}

// fromDataset projects a catalogued dataset. Microarray datasets use their
// processed genes matrix, every other platform the raw one. The grouping
// column is the first preference-order candidate with at least two distinct
// annotated values, and missing annotations are replaced with the portal's
// placeholder token before serialization.
func (ps *projectionService) fromDataset(ctx context.Context, atlasType string, params ProjectionParams) (*ProjectionResult, error) {
	spec := portal.Current(ps.log)

	dataset, err := ps.datasets.GetByName(ctx, params.Name, params.PublicOnly)
	if err != nil {
		if errors.Is(err, ErrDatasetNotFound) {
			return nil, err
		}
		return nil, ps.opaque(err, "name", params.Name)
	}

	key := "raw"
	if dataset.PlatformType == "Microarray" {
		key = "genes"
	}
	matrix, err := ps.datasets.ExpressionMatrix(ctx, dataset, key)
	if err != nil {
		return nil, ps.opaque(err, "dataset_id", dataset.DatasetID, "key", key)
	}
	samples, err := ps.datasets.SampleTable(ctx, dataset.DatasetID)
	if err != nil {
		return nil, ps.opaque(err, "dataset_id", dataset.DatasetID)
	}

	column := chooseGroupingColumn(spec, samples)
	samples = samples.FillMissing(spec.MissingValueToken)

	return ps.project(ctx, atlasType, dataset.Name, matrix, samples, column)
}

// fromUpload projects caller-supplied expression and sample tables. Format
// problems are returned as validation messages. The grouping column falls
// back to the sample table's first column when the requested one does not
// exist.
func (ps *projectionService) fromUpload(ctx context.Context, atlasType string, params ProjectionParams) (*ProjectionResult, error) {
	if params.Expression == nil {
		return &ProjectionResult{Error: "No expression file provided."}, nil
	}
	if params.Samples == nil {
		return &ProjectionResult{Error: "No sample table file provided."}, nil
	}

	matrix, err := frame.ReadMatrix(params.Expression)
	if err != nil {
		return &ProjectionResult{Error: "Could not read the expression file as a tab-separated matrix. Check format of the file."}, nil
	}
	samples, err := frame.ReadTable(params.Samples)
	if err != nil {
		return &ProjectionResult{Error: "Could not read the sample table file as tab-separated values. Check format of the file."}, nil
	}

	if matrix.NRows() == 0 {
		return &ProjectionResult{Error: projection.MsgZeroRows}, nil
	}
	if samples.NRows() == 0 {
		return &ProjectionResult{Error: "Sample table appears to have 0 rows. Check format of the file."}, nil
	}

	if msg := projection.ValidateFormat(matrix, samples, ""); msg != "" {
		return &ProjectionResult{Error: msg}, nil
	}

	samples = samples.Reindex(matrix.Columns)

	column := params.SampleGroup
	if column == "" || !samples.HasColumn(column) {
		if len(samples.Columns) == 0 {
			return &ProjectionResult{Error: "Sample table has no annotation columns."}, nil
		}
		column = samples.Columns[0]
	}

	return ps.project(ctx, atlasType, params.Name, matrix, samples, column)
}

func (ps *projectionService) project(ctx context.Context, atlasType, name string, matrix *frame.Matrix, samples *frame.Table, column string) (*ProjectionResult, error) {
	if matrix.NRows() == 0 {
		return &ProjectionResult{Error: projection.MsgZeroRows}, nil
	}

	res, err := ps.projector.Project(ctx, atlasType, name, matrix, false)
	if err != nil {
		return nil, ps.opaque(err, "atlas_type", atlasType, "name", name)
	}
	if res.Error != "" {
		return &ProjectionResult{Error: res.Error}, nil
	}

	sampleIDs := make([]string, len(res.Coords.Index))
	for i, id := range res.Coords.Index {
		sampleIDs[i] = fmt.Sprintf("%s_%s", name, id)
	}

	out := &ProjectionResult{
		Coords:    res.Coords.Records(),
		Samples:   samples.Records(),
		SampleIDs: sampleIDs,
		Column:    column,
	}
	if res.CombinedCoords != nil {
		out.CombinedCoords = res.CombinedCoords.Split()
	}
	if len(res.Scores) > 0 {
		out.Scores = make(map[string]*frame.SplitMatrix, len(res.Scores))
		for method, table := range res.Scores {
			out.Scores[method] = table.Split()
		}
	}
	return out, nil
}

func (ps *projectionService) opaque(cause error, keysAndValues ...interface{}) error {
	ps.log.Error("Projection failed", append(keysAndValues, "error", cause)...)
	return ErrProjectionFailed
}

// chooseGroupingColumn picks the first candidate column holding at least two
// distinct annotated values, defaulting to cell_type.
func chooseGroupingColumn(spec *portal.Spec, samples *frame.Table) string {
	for _, candidate := range spec.GroupingColumnPreference {
		values, ok := samples.Column(candidate)
		if !ok {
			continue
		}
		distinct := make(map[string]struct{})
		for _, v := range values {
			if v != "" {
				distinct[v] = struct{}{}
			}
		}
		if len(distinct) >= 2 {
			return candidate
		}
	}
	return "cell_type"
}
