// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hospitalops/parlogic/internal/api/handlers"
	"github.com/hospitalops/parlogic/internal/api/middleware"
	"github.com/hospitalops/parlogic/internal/service"
)

// RouterConfig bundles what the router needs beyond the service itself.
type RouterConfig struct {
	AllowedOrigins []string
	APIKeys        *middleware.APIKeyStore
	UploadDir      string
}

// defaultRateLimit applies when a client tier carries no limit of its own.
const defaultRateLimit = 100

// NewRouter wires the gin front-end: request logging, recovery, CORS, then
// API-key auth and per-client rate limiting ahead of every data endpoint.
// Only the health check is unauthenticated.
func NewRouter(svc *service.InventoryService, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.APIKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(cfg.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "parlogic"})
	})

	limiter := middleware.NewRateLimiter(time.Minute, defaultRateLimit)

	apiGroup := router.Group("/api/v1")
	apiGroup.Use(middleware.APIKeyAuth(cfg.APIKeys))
	apiGroup.Use(limiter.Middleware())

	handler := handlers.NewInventoryHandler(svc, cfg.UploadDir)

	apiGroup.POST("/upload", handler.Upload)

	analyzeGroup := apiGroup.Group("/analyze")
	{
		analyzeGroup.GET("/usage", handler.MonthlyUsage)
		analyzeGroup.GET("/range", handler.UsageRange)
		analyzeGroup.GET("/seasonality", handler.Seasonality)
	}

	parGroup := apiGroup.Group("/par")
	{
		parGroup.GET("/levels", handler.PARLevels)
		parGroup.POST("/lead_time", handler.SetLeadTime)
	}

	apiGroup.POST("/recommendations", handler.Recommendations)

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
