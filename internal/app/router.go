package app

import (
	"github.com/gin-gonic/gin"

	"github.com/wellslab/s4m-api/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:    handlers.Auth,
		DatasetHandler: handlers.Dataset,
		AtlasHandler:   handlers.Atlas,
		AuthMiddleware: middleware.Auth,
		AllowOrigins:   cfg.AllowOrigins,
		TracingEnabled: cfg.TracingEnabled,
		ServiceName:    cfg.ServiceName,
	})
}
