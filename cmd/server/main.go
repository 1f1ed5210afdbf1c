package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/config"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/db"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/library"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/llm"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/repository"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/router"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/services"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/storage"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open database", "error", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.NewS3Storage(startupCtx, cfg)
	cancelStartup()
	if err != nil {
		logger.Fatal("Failed to initialize object storage", "error", err)
	}

	// Extraction: AI first when a credential is configured, heuristic otherwise
	var strategies []syllabus.Extractor
	if client := llm.FromConfig(cfg, logger); client != nil {
		strategies = append(strategies, syllabus.NewAIExtractor(client, cfg.LLMTimeout))
	} else {
		logger.Warn("No LLM credential configured, using heuristic extraction only", "provider", cfg.LLMProvider)
	}
	orchestrator := syllabus.NewOrchestrator(logger, strategies...)

	catalog := library.FromConfig(cfg, logger)
	if catalog == nil {
		logger.Warn("No Primo API key configured, reading materials will not be found")
	}
	matcher := library.NewMatcher(catalog, cfg.MatchConcurrency, logger)

	repo := repository.NewRepository(database)
	service := services.NewService(repo, store, orchestrator, matcher, logger)

	handler := router.NewRouter(service, cfg.MaxFileSize, logger)

	// Extraction and matching wait on external services, so writes get
	// room for the LLM and catalog timeouts.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 2*cfg.PrimoTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
