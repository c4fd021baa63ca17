package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/foodlens/internal/api/handler"
	"github.com/timmy/foodlens/internal/api/middleware"
	"github.com/timmy/foodlens/internal/config"
)

// SetupRouter configures the Gin router with all routes.
func SetupRouter(
	pipeline handler.AnalysisRunner,
	meals handler.HistoryStore,
	cfg *config.Config,
) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	if cfg.Fetch.MaxBytes > 0 {
		r.MaxMultipartMemory = cfg.Fetch.MaxBytes
	}

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	analysisHandler := handler.NewAnalysisHandler(pipeline, cfg.Fetch.MaxBytes)
	historyHandler := handler.NewHistoryHandler(meals, cfg.History.Limit)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "FoodLens API"})
	})
	r.GET("/health", healthHandler.Health)

	r.POST("/upload", analysisHandler.Upload)
	r.POST("/analyze-url", analysisHandler.AnalyzeURL)
	r.GET("/history", historyHandler.List)
	r.DELETE("/history", historyHandler.Clear)

	return r
}
