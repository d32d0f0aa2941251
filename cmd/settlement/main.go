package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/config"
	"github.com/maobits/coban365-sub000/internal/server"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Settlement: No .env file found, relying on system env vars")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	// Load config
	cfg := config.Load()

	// Start HTTP server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("settlement server starting", zap.String("addr", cfg.HTTPAddr))
		// This blocks until server exits
		server.NewSettlementServer(cfg, logger)
		errCh <- nil
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("settlement service shutting down gracefully")
	case err := <-errCh:
		if err != nil {
			logger.Fatal("settlement service failed", zap.Error(err))
		}
	}
}
