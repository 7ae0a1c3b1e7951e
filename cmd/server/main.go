// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hospitalops/parlogic/internal/analysis"
	"github.com/hospitalops/parlogic/internal/api"
	"github.com/hospitalops/parlogic/internal/api/middleware"
	"github.com/hospitalops/parlogic/internal/cache"
	"github.com/hospitalops/parlogic/internal/config"
	"github.com/hospitalops/parlogic/internal/service"
	"github.com/hospitalops/parlogic/internal/storage"
	"github.com/hospitalops/parlogic/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetMode(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// API key tiers
	keyStore, err := middleware.ParseAPIKeys(cfg.Auth.APIKeys)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to parse API keys")
	}

	// Optional recommendation cache
	recCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize recommendation cache")
	}

	// Optional upload archive
	var archive storage.ObjectStorage
	if cfg.Archive.Enabled {
		client, err := storage.NewArchiveClient(storage.ArchiveConfig{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize upload archive")
		}
		archive = client
	}

	// Engine and service
	engine := analysis.NewEngine(cfg.Engine.ServiceLevel, cfg.Engine.ReviewPeriodDays)
	svc := service.NewInventoryService(engine, recCache, archive)

	router := api.NewRouter(svc, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        keyStore,
		UploadDir:      cfg.App.UploadDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
