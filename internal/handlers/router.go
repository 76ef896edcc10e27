package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"room-staging-backend/internal/config"
	"room-staging-backend/internal/ingest"
	"room-staging-backend/internal/middleware"
	"room-staging-backend/internal/services"
	"room-staging-backend/internal/styles"
	"room-staging-backend/internal/workspace"
)

// Deps are the services the routes are served by. Limiter and Ledger are
// optional.
type Deps struct {
	Catalog        *styles.Catalog
	DefaultModel   string
	Registry       *workspace.Registry
	Decoder        *ingest.Decoder
	StorageService *services.StorageService
	Limiter        middleware.Limiter
	Ledger         AttemptLister
	Logger         zerolog.Logger
}

func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(deps.Logger))

	stylesHandler := NewStylesHandler(deps.Catalog, deps.DefaultModel)
	workspaceHandler := NewWorkspaceHandler(deps.Registry, deps.Decoder, deps.Logger)
	exportHandler := NewExportHandler(deps.Registry, deps.StorageService)
	usageHandler := NewUsageHandler(deps.Ledger)

	// Public
	router.GET("/health", HealthHandler)
	router.GET("/api/v1/styles", stylesHandler.ListStyles)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.GET("/workspace", workspaceHandler.GetWorkspace)
	api.DELETE("/workspace", workspaceHandler.ResetWorkspace)

	// Ingestion
	api.POST("/workspace/images", workspaceHandler.UploadImages)
	api.POST("/workspace/paste", workspaceHandler.PasteImages)
	api.DELETE("/workspace/images/:image_id", workspaceHandler.DeleteImage)

	// Selection and staging
	api.PUT("/workspace/active", workspaceHandler.SelectActiveImage)
	api.PUT("/workspace/selection", workspaceHandler.UpdateSelection)
	api.PUT("/workspace/view", workspaceHandler.SelectView)
	if deps.Limiter != nil {
		api.POST("/workspace/stage", workspaceHandler.StagePrecheck, middleware.RateLimit(deps.Limiter, deps.Logger), workspaceHandler.Stage)
	} else {
		api.POST("/workspace/stage", workspaceHandler.Stage)
	}

	// Comparison and output
	api.POST("/workspace/comparison/pointer", workspaceHandler.MovePointer)
	api.GET("/workspace/download", workspaceHandler.Download)
	api.POST("/workspace/export", exportHandler.Export)

	api.GET("/usage", usageHandler.GetUsage)

	return router
}
