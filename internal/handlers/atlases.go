package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
	"github.com/wellslab/s4m-api/internal/requestdata"
	"github.com/wellslab/s4m-api/internal/services"
)

type AtlasHandler struct {
	log               *logger.Logger
	atlasService      services.AtlasService
	projectionService services.ProjectionService
	uploadService     services.UploadService
}

func NewAtlasHandler(log *logger.Logger, asvc services.AtlasService, psvc services.ProjectionService, usvc services.UploadService) *AtlasHandler {
	return &AtlasHandler{
		log:               log.With("handler", "AtlasHandler"),
		atlasService:      asvc,
		projectionService: psvc,
		uploadService:     usvc,
	}
}

// GET /atlas-types
// Available atlas types with their current and past versions.
func (ah *AtlasHandler) Types(c *gin.Context) {
	types, err := ah.atlasService.Types(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "atlas_types_failed", err)
		return
	}
	RespondOK(c, types)
}

// GET /atlas/:atlasType/coordinates
func (ah *AtlasHandler) Coordinates(c *gin.Context) {
	coords, err := ah.atlasService.Coordinates(c.Request.Context(), c.Param("atlasType"))
	if err != nil {
		ah.respondAtlasError(c, err)
		return
	}
	payload, ok := matrixByOrient(coords, c.DefaultQuery("orient", "records"))
	if !ok {
		RespondError(c, http.StatusBadRequest, "invalid_orient", fmt.Errorf("orient must be one of records, split, index"))
		return
	}
	RespondOK(c, payload)
}

// GET /atlas/:atlasType/samples
func (ah *AtlasHandler) Samples(c *gin.Context) {
	table, err := ah.atlasService.SampleTable(c.Request.Context(), c.Param("atlasType"))
	if err != nil {
		ah.respondAtlasError(c, err)
		return
	}
	payload, ok := tableByOrient(table, c.DefaultQuery("orient", "records"))
	if !ok {
		RespondError(c, http.StatusBadRequest, "invalid_orient", fmt.Errorf("orient must be one of records, split, index"))
		return
	}
	RespondOK(c, payload)
}

// GET /atlas/:atlasType/expression-values
// Expression of the requested genes across the atlas samples.
func (ah *AtlasHandler) ExpressionValues(c *gin.Context) {
	matrix, err := ah.atlasService.ExpressionValues(c.Request.Context(), c.Param("atlasType"), queryList(c, "gene_id"))
	if err != nil {
		ah.respondAtlasError(c, err)
		return
	}
	payload, ok := matrixByOrient(matrix, c.DefaultQuery("orient", "records"))
	if !ok {
		RespondError(c, http.StatusBadRequest, "invalid_orient", fmt.Errorf("orient must be one of records, split, index"))
		return
	}
	RespondOK(c, payload)
}

// GET /atlas/:atlasType/colours-and-ordering
func (ah *AtlasHandler) ColoursAndOrdering(c *gin.Context) {
	colours, err := ah.atlasService.ColoursAndOrdering(c.Request.Context(), c.Param("atlasType"))
	if err != nil {
		ah.respondAtlasError(c, err)
		return
	}
	RespondOK(c, colours)
}

// GET /atlas/:atlasType/possible-genes
// Genes whose symbol starts with query_string, most useful first.
func (ah *AtlasHandler) PossibleGenes(c *gin.Context) {
	genes, err := ah.atlasService.PossibleGenes(c.Request.Context(), c.Param("atlasType"), c.Query("query_string"))
	if err != nil {
		ah.respondAtlasError(c, err)
		return
	}
	RespondOK(c, genes)
}

// GET /atlas/:atlasType/expression-file
// Serves the atlas expression matrix as a download. filtered selects the
// rank-normalised matrix (the default) over the full one.
func (ah *AtlasHandler) ExpressionFile(c *gin.Context) {
	path, filename, err := ah.atlasService.ExpressionFile(c.Request.Context(), c.Param("atlasType"), parseBool(c.Query("filtered"), true))
	if err != nil {
		ah.respondAtlasError(c, err)
		return
	}
	c.FileAttachment(path, filename)
}

// POST /atlas/:atlasType/projection
// Projects expression data onto the atlas. data_source selects where the
// data comes from: "stemformatics" names a catalogued dataset, "user" sends
// an expression matrix and sample table, "user-single" registers an upload
// for later processing and returns nothing.
func (ah *AtlasHandler) Projection(c *gin.Context) {
	atlasType := c.Param("atlasType")
	if !portal.Current(ah.log).IsAtlasType(atlasType) {
		RespondError(c, http.StatusNotFound, "atlas_not_found", fmt.Errorf("Unknown atlas type: %s", atlasType))
		return
	}

	dataSource := c.DefaultPostForm("data_source", "stemformatics")
	switch dataSource {
	case "stemformatics":
		params := services.ProjectionParams{
			DataSource: dataSource,
			Name:       c.PostForm("name"),
			PublicOnly: !requestdata.Authenticated(c.Request.Context()),
		}
		ah.respondProjection(c, atlasType, params)

	case "user":
		expression, ok := openFormFile(c, "data")
		if !ok {
			return
		}
		defer expression.Close()
		samples, ok := openFormFile(c, "samples")
		if !ok {
			return
		}
		defer samples.Close()

		params := services.ProjectionParams{
			DataSource:  dataSource,
			Name:        c.DefaultPostForm("name", "test-data"),
			SampleGroup: c.PostForm("sample_group"),
			Expression:  expression,
			Samples:     samples,
		}
		ah.respondProjection(c, atlasType, params)

	case "user-single":
		expression, ok := openFormFile(c, "data")
		if !ok {
			return
		}
		defer expression.Close()

		matrix, err := frame.ReadMatrix(expression)
		if err != nil {
			RespondOK(c, services.ProjectionResult{Error: "Could not read the expression file as a tab-separated matrix. Check format of the file."})
			return
		}
		ah.uploadService.Register(c.Request.Context(), matrix, c.PostForm("email"), atlasType)
		RespondOK(c, gin.H{})

	default:
		RespondError(c, http.StatusBadRequest, "invalid_data_source", fmt.Errorf("data_source must be one of stemformatics, user, user-single"))
	}
}

func (ah *AtlasHandler) respondProjection(c *gin.Context, atlasType string, params services.ProjectionParams) {
	result, err := ah.projectionService.RunProjection(c.Request.Context(), atlasType, params)
	if err != nil {
		if errors.Is(err, services.ErrDatasetNotFound) {
			RespondError(c, http.StatusNotFound, "dataset_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "projection_failed", services.ErrProjectionFailed)
		return
	}
	RespondOK(c, result)
}

func (ah *AtlasHandler) respondAtlasError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrAtlasNotFound) {
		RespondError(c, http.StatusNotFound, "atlas_not_found", err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "atlas_failed", err)
}

// openFormFile opens a multipart upload field, writing the error response
// itself when the field is missing.
func openFormFile(c *gin.Context, field string) (multipart.File, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("Missing uploaded file field %q", field))
		return nil, false
	}
	file, err := header.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file", fmt.Errorf("Could not open uploaded file %q", field))
		return nil, false
	}
	return file, true
}
