package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"killay/internal/config"
	"killay/internal/container"
	"killay/internal/logging"
	"killay/ui"
)

func main() {
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(appConfig.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize container")
	}
	defer appContainer.Close()

	metricsPath := ""
	if appConfig.Metrics.Enabled {
		metricsPath = appConfig.Metrics.Path
	}
	server, err := ui.NewServer(appContainer.Imports, appContainer.Metrics, ui.Options{
		Addr:          ":" + appConfig.Server.Port,
		MaxUploadSize: appConfig.Server.MaxUploadSize,
		MetricsPath:   metricsPath,
	}, logger.WithField("service", "killay"))
	if err != nil {
		logger.WithError(err).Fatal("failed to build http server")
	}

	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Fatal("http server failed")
	}
}
