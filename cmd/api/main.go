package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/archetype-engine/internal/config"
	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/handlers"
	"github.com/jwebster45206/archetype-engine/internal/logger"
	"github.com/jwebster45206/archetype-engine/internal/middleware"
	"github.com/jwebster45206/archetype-engine/internal/observability"
	"github.com/jwebster45206/archetype-engine/internal/services"
	"github.com/jwebster45206/archetype-engine/internal/storage"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Archetype Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	tp, err := observability.InitTracing(context.Background(), observability.Config{
		Enabled:        cfg.OTelEnabled,
		Endpoint:       cfg.OTelEndpoint,
		ServiceVersion: version,
		Environment:    cfg.Environment,
	})
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Scenario problems are fatal at startup, never at request time.
	registry, err := storage.LoadRegistry(cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to load scenarios", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	providerCtx, providerCancel := context.WithTimeout(context.Background(), 30*time.Second)
	provider, err := services.NewProvider(providerCtx, cfg.Provider(), log)
	providerCancel()
	if err != nil {
		log.Error("Failed to initialize LLM provider", "error", err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	gateway := services.NewGateway(provider, cfg.LLMTimeout, log)
	processor := engine.NewTurnProcessor(gateway, log)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log, storage.WithLockTTL(cfg.LockTTL()))
	if err != nil {
		log.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx, 10, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	mux := http.NewServeMux()
	handlers.Register(mux, log, store, registry, processor)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logger(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}
