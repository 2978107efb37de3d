package app

import (
	"github.com/wellslab/s4m-api/internal/handlers"
	"github.com/wellslab/s4m-api/internal/logger"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Dataset *handlers.DatasetHandler
	Atlas   *handlers.AtlasHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:    handlers.NewAuthHandler(services.Auth),
		Dataset: handlers.NewDatasetHandler(log, services.Query, services.Dataset),
		Atlas:   handlers.NewAtlasHandler(log, services.Atlas, services.Projection, services.Upload),
	}
}
