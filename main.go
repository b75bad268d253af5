package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/supermercado/products-api/internal/app/service"
	"github.com/supermercado/products-api/internal/infrastructure/config"
	apphttp "github.com/supermercado/products-api/internal/infrastructure/http"
	"github.com/supermercado/products-api/internal/infrastructure/http/handler"
	"github.com/supermercado/products-api/internal/infrastructure/repository/mongodb"
	"github.com/supermercado/products-api/internal/infrastructure/telemetry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize OpenTelemetry
	telem, err := telemetry.NewTelemetry(&cfg.OTLP)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure telemetry is shutdown on exit
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer("products-api")
	meter := telem.MeterProvider.Meter("products-api")
	logger := telem.Logger

	logger.Info("Starting Products API")

	// Connect to MongoDB; the client is the single long-lived handle shared
	// by all request handlers
	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer connectCancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Error("Failed to connect to MongoDB", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		logger.Error("Failed to ping MongoDB", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error("Error disconnecting from MongoDB", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Connected to MongoDB",
		slog.String("database", cfg.Mongo.Database),
	)

	// Initialize repository (dependency injection)
	repo := mongodb.NewProductRepository(client.Database(cfg.Mongo.Database), tracer, logger)

	// Install the collection schema validator, idempotent on every startup
	if err := repo.EnsureSchema(connectCtx); err != nil {
		logger.Error("Failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize service
	productService := service.NewProductService(repo, tracer, meter, logger)

	// Initialize handler
	productHandler := handler.NewProductHandler(productService, logger)

	// Initialize HTTP server
	server := apphttp.NewServer(&cfg.Server, productHandler, logger, telem)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err.Error())
			cancel()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
}
