package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/wellslab/s4m-api/internal/handlers"
	"github.com/wellslab/s4m-api/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	DatasetHandler *handlers.DatasetHandler
	AtlasHandler   *handlers.AtlasHandler
	AuthMiddleware *middleware.AuthMiddleware
	AllowOrigins   []string
	TracingEnabled bool
	ServiceName    string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/auth/login", cfg.AuthHandler.Login)
	router.DELETE("/auth/logout", cfg.AuthHandler.Logout)

	// Read paths attach the caller's identity when a token is present so
	// private datasets become visible, but never require one.
	identified := router.Group("/")
	identified.Use(cfg.AuthMiddleware.Identify())
	// Search
	identified.GET("/search/datasets", cfg.DatasetHandler.SearchDatasets)
	identified.GET("/search/samples", cfg.DatasetHandler.SearchSamples)
	// Datasets
	identified.GET("/datasets/:datasetId/metadata", cfg.DatasetHandler.Metadata)
	identified.GET("/datasets/:datasetId/samples", cfg.DatasetHandler.Samples)
	identified.GET("/datasets/:datasetId/expression", cfg.DatasetHandler.Expression)
	identified.GET("/values/:collection/:key", cfg.DatasetHandler.Values)
	// Atlases
	identified.GET("/atlas-types", cfg.AtlasHandler.Types)
	identified.GET("/atlas/:atlasType/coordinates", cfg.AtlasHandler.Coordinates)
	identified.GET("/atlas/:atlasType/samples", cfg.AtlasHandler.Samples)
	identified.GET("/atlas/:atlasType/expression-values", cfg.AtlasHandler.ExpressionValues)
	identified.GET("/atlas/:atlasType/colours-and-ordering", cfg.AtlasHandler.ColoursAndOrdering)
	identified.GET("/atlas/:atlasType/possible-genes", cfg.AtlasHandler.PossibleGenes)
	identified.GET("/atlas/:atlasType/expression-file", cfg.AtlasHandler.ExpressionFile)
	identified.POST("/atlas/:atlasType/projection", cfg.AtlasHandler.Projection)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.GET("/auth/user", cfg.AuthHandler.User)

	return router
}
