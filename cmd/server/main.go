package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/config"
	"github.com/scantablehq/billing-service/internal/infrastructure/crypto"
	"github.com/scantablehq/billing-service/internal/infrastructure/database"
	httpServer "github.com/scantablehq/billing-service/internal/infrastructure/http"
	"github.com/scantablehq/billing-service/internal/pkg/logger"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	encryption, err := crypto.NewAESEncryptionService(cfg.Service.EncryptionKey)
	if err != nil {
		zapLogger.Fatal("Failed to initialize encryption service", zap.Error(err))
	}

	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, encryption, zapLogger)

	srv := httpServer.NewServer(cfg, zapLogger, repos)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down server")

	// In-flight webhook deliveries get a bounded window to finish; the
	// provider retries anything cut off.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down")
}
