package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Legacy path used by existing chat integrations
	router.POST("/ai/query", handler.Query)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		datasets := v1.Group("/datasets")
		{
			datasets.GET("", handler.ListDatasets)
			datasets.GET("/:key", handler.GetDataset)
		}

		v1.GET("/search", handler.Search)
		v1.GET("/join", handler.Join)
		v1.GET("/diagnostic", handler.Diagnostic)
		v1.POST("/refresh", handler.Refresh)
		v1.POST("/auth", handler.Authorize)

		ai := v1.Group("/ai")
		{
			ai.POST("/query", handler.Query)
			ai.GET("/query", handler.QuerySimple)
		}

		v1.GET("/export/catalog.xlsx", handler.ExportCatalog)
		v1.GET("/export/catalog.json", handler.ExportCatalogJSON)
		v1.GET("/export/datasets", handler.ExportDatasets)
	}

	return router
}
