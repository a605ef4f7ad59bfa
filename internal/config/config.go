package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"killay/internal/errors"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Admin    AdminConfig
	Template TemplateConfig
	Cache    CacheConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory catalog store.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	Driver          string        `env:"DATABASE_DRIVER" envDefault:"postgres" validate:"oneof=postgres sqlite"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10" validate:"gte=1"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DATABASE_AUTO_MIGRATE" envDefault:"false"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port          string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	GinMode       string `env:"GIN_MODE" envDefault:"debug" validate:"oneof=debug release test"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760" validate:"gt=0"`
}

// AdminConfig locates the admin screens linked from import results
type AdminConfig struct {
	BasePath string `env:"ADMIN_BASE_PATH" envDefault:"/admin"`
}

// TemplateConfig shapes generated spreadsheet templates
type TemplateConfig struct {
	Rows int `env:"TEMPLATE_ROWS" envDefault:"1000" validate:"gte=2,lte=1048576"`
}

// CacheConfig bounds the template choice cache
type CacheConfig struct {
	Size int           `env:"CHOICES_CACHE_SIZE" envDefault:"16" validate:"gte=1"`
	TTL  time.Duration `env:"CHOICES_CACHE_TTL" envDefault:"5m"`
}

// ArchiveConfig holds the object storage that keeps uploaded workbooks.
// Archiving is disabled while Endpoint is empty.
type ArchiveConfig struct {
	Endpoint  string `env:"ARCHIVE_S3_ENDPOINT"`
	Region    string `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"ARCHIVE_S3_BUCKET" envDefault:"killay-imports" validate:"required_with=Endpoint"`
	AccessKey string `env:"ARCHIVE_S3_ACCESS_KEY" validate:"required_with=Endpoint"`
	SecretKey string `env:"ARCHIVE_S3_SECRET_KEY" validate:"required_with=Endpoint"`
	UseSSL    bool   `env:"ARCHIVE_S3_USE_SSL" envDefault:"false"`
}

// MetricsConfig holds prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics" validate:"startswith=/"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error"`
	Format string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Enabled reports whether uploads are archived
func (a ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(a.Endpoint) != ""
}

// InMemory reports whether no database is configured
func (d DatabaseConfig) InMemory() bool {
	return strings.TrimSpace(d.URL) == ""
}

// Load reads the default .env files and the environment
func Load() (*Config, error) {
	return LoadFrom(DefaultEnvFiles)
}

// LoadFrom loads the existing files among envFiles, then parses and validates
// the environment. Variables already set win over file values.
func LoadFrom(envFiles []string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, errors.Wrap(err, "failed to load env files")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to parse environment"))
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func loadEnvFiles(envFiles []string) error {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func validateConfig(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}
