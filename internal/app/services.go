package app

import (
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
	"github.com/wellslab/s4m-api/internal/projection"
	"github.com/wellslab/s4m-api/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Query      services.QueryService
	Dataset    services.DatasetService
	Atlas      services.AtlasService
	Projection services.ProjectionService
	Upload     services.UploadService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	spec := portal.Current(log)

	authService := services.NewAuthService(reposet.User, cfg.SecretKey, cfg.AccessTokenTTL, log)
	queryService := services.NewQueryService(reposet.Dataset, reposet.Sample, log)
	datasetService := services.NewDatasetService(reposet.Dataset, reposet.Sample, queryService, clients.Cache, cfg.ExpressionFilepath, log)
	atlasService := services.NewAtlasService(cfg.AtlasFilepath, log)
	projector := projection.NewPCAProjector(cfg.AtlasFilepath, spec.GroupingColumnPreference, log)
	projectionService := services.NewProjectionService(datasetService, projector, log)
	uploadService := services.NewUploadService(clients.Storage, log)

	return Services{
		Auth:       authService,
		Query:      queryService,
		Dataset:    datasetService,
		Atlas:      atlasService,
		Projection: projectionService,
		Upload:     uploadService,
	}
}
