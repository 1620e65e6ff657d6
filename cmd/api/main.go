package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/rentledger/reconcile-backend/internal/api"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/config"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/logging"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	server := api.NewAPIServer(store, cfg, logger)

	gin.SetMode(gin.ReleaseMode)
	router := server.Router()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("starting API server", "addr", addr, "db", cfg.Storage.DatabasePath)
	if err := router.Run(addr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
