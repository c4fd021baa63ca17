package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/foodlens/internal/api"
	"github.com/timmy/foodlens/internal/config"
	"github.com/timmy/foodlens/internal/fetcher"
	"github.com/timmy/foodlens/internal/logger"
	"github.com/timmy/foodlens/internal/repository"
	"github.com/timmy/foodlens/internal/service"
	"github.com/timmy/foodlens/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(nil)
	logger.SetDefault(appLog)
	defer logger.Sync()

	// The database is a non-essential collaborator: analysis still works
	// without history, so a connection failure only logs.
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Warn("Database unavailable - continuing without history")
		db = nil
	}
	mealRepo := repository.NewMealRepository(db)

	// Object storage is best-effort too; without it the archiver runs in
	// fallback-only mode.
	var objectStorage storage.ObjectStorage
	s3Storage, err := storage.NewS3Storage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLog.WithError(err).Warn("Object storage unavailable - archiver will use fallback URLs")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			appLog.WithError(err).Warn("Storage bucket check failed - archiver will use fallback URLs")
		} else {
			objectStorage = s3Storage
		}
		cancel()
	}

	imageFetcher := fetcher.New(cfg.Fetch.MaxBytes, appLog)
	analyzer := service.NewAnalyzer(&service.AnalyzerConfig{
		Model:       cfg.Vision.Model,
		APIKey:      cfg.Vision.APIKey,
		BaseURL:     cfg.Vision.BaseURL,
		MaxTokens:   cfg.Vision.MaxTokens,
		Temperature: cfg.Vision.Temp,
	}, appLog)
	archiver := service.NewArchiver(objectStorage, appLog)

	pipeline := service.NewAnalysisService(imageFetcher, analyzer, archiver, mealRepo, appLog)

	router := api.SetupRouter(pipeline, mealRepo, cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLog.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Fatal("Server forced to shutdown")
	}

	appLog.Info("Server exited")
}
