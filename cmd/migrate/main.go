package main

import (
	"context"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"killay/adapters/db/postgres/migrations"
	"killay/internal/config"
	"killay/internal/container"
	"killay/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.InMemory() {
		log.Fatal("Usage: DATABASE_URL=<url> migrate [status]")
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	ctx := context.Background()
	db, err := container.Open(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	files, err := migrations.Files(cfg.Database.Driver)
	if err != nil {
		logger.WithError(err).Fatal("no migrations for driver")
	}
	migrator := migrations.NewMigrator(db, files, logger.WithField("component", "migrator"))

	if len(os.Args) > 1 && os.Args[1] == "status" {
		statuses, err := migrator.Status(ctx)
		if err != nil {
			logger.WithError(err).Fatal("failed to read migration status")
		}
		for _, s := range statuses {
			logger.WithFields(logrus.Fields{
				"version": s.Version,
				"name":    s.Name,
				"applied": s.Applied,
			}).Info("migration")
		}
		return
	}

	applied, err := migrator.Up(ctx)
	if err != nil {
		logger.WithError(err).Fatal("migration failed")
	}
	logger.WithField("applied", applied).Info("migrations complete")
}
