package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"killay/adapters/cache"
	"killay/adapters/db/postgres/migrations"
	"killay/adapters/excel"
	"killay/adapters/memory"
	"killay/adapters/postgres"
	"killay/adapters/s3"
	"killay/app"
	"killay/internal/bulk"
	"killay/internal/config"
	"killay/internal/metrics"
	"killay/internal/pieces"
	"killay/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	// Infrastructure
	DB *sqlx.DB

	// Catalog store and its cached choice listings
	Catalog ports.CatalogRepository
	Choices *cache.ChoiceSource
	Archive ports.UploadArchive

	// Bulk import engine
	Registry  *bulk.Registry
	Reader    *excel.SheetReader
	Templates *excel.TemplateProvider
	Metrics   *metrics.Recorder
	Imports   *app.ImportService
}

// New creates a new dependency injection container. Without a database URL
// the catalog lives in memory.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Container{Config: cfg, Logger: logger}

	if cfg.Database.InMemory() {
		logger.Warn("DATABASE_URL is empty, using the in-memory catalog store")
		c.Catalog = memory.NewCatalogStore()
	} else {
		db, err := Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Catalog = postgres.NewCatalogRepository(db)

		if cfg.Database.AutoMigrate {
			if err := Migrate(ctx, db, cfg.Database.Driver, logger); err != nil {
				c.Close()
				return nil, err
			}
		}
	}

	if cfg.Archive.Enabled() {
		archive, err := s3.NewArchive(s3.Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to init upload archive: %w", err)
		}
		c.Archive = archive
	}

	c.initEngine()
	logger.WithFields(logrus.Fields{
		"actions":   len(c.Registry.Actions()),
		"in_memory": cfg.Database.InMemory(),
		"archive":   cfg.Archive.Enabled(),
	}).Info("container initialized")
	return c, nil
}

// NewWithCatalog builds the engine around an existing catalog store
func NewWithCatalog(cfg *config.Config, logger *logrus.Logger, catalog ports.CatalogRepository) *Container {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Container{Config: cfg, Logger: logger, Catalog: catalog}
	c.initEngine()
	return c
}

func (c *Container) initEngine() {
	cfg := c.Config
	c.Choices = cache.NewChoiceSource(c.Catalog, cache.Config{Size: cfg.Cache.Size, TTL: cfg.Cache.TTL})
	c.Registry = bulk.NewRegistry(
		pieces.NewCreateAction(c.Catalog, c.Choices, pieces.NewLinks(cfg.Admin.BasePath)),
	)
	c.Reader = excel.NewSheetReader(c.Logger.WithField("component", "sheet_reader"))
	c.Templates = excel.NewTemplateProvider(c.Registry, cfg.Template.Rows, c.Logger.WithField("component", "template_provider"))
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.NewRecorder()
	}

	opts := []app.ImportServiceOption{app.WithCache(c.Choices), app.WithMetrics(c.Metrics)}
	if c.Archive != nil {
		opts = append(opts, app.WithArchive(c.Archive))
	}
	c.Imports = app.NewImportService(c.Registry, c.Reader, c.Templates, c.Logger.WithField("component", "import_service"), opts...)
}

// Open connects to the configured database and checks the connection
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded migrations of driver
func Migrate(ctx context.Context, db *sqlx.DB, driver string, logger *logrus.Logger) error {
	files, err := migrations.Files(driver)
	if err != nil {
		return err
	}
	applied, err := migrations.NewMigrator(db, files, logger.WithField("component", "migrator")).Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.WithField("applied", applied).Info("database migrated")
	return nil
}

// Close releases the database connection
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
