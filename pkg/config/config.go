// Package config loads spendsort settings from an optional JSON file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ArionMiles/spendsort/pkg/logging"
)

// FileEnv names the environment variable holding an optional JSON config file path.
const FileEnv = "SPENDSORT_CONFIG"

// Config holds the application configuration.
// Keys in the JSON file use the same names as the environment variables.
type Config struct {
	// HTTPAddr is the listen address of the HTTP server.
	// Environment variable: HTTP_ADDR
	HTTPAddr string `koanf:"HTTP_ADDR"`

	// StoreBackend is the name of the store plugin ("postgres" or "memory").
	// Environment variable: STORE_BACKEND
	StoreBackend string `koanf:"STORE_BACKEND"`

	// StoreConfig is raw JSON configuration for the store plugin. When empty,
	// it is built from DatabaseURL and the POSTGRES_* settings.
	// Environment variable: STORE_CONFIG
	StoreConfig json.RawMessage `koanf:"STORE_CONFIG"`

	// DatabaseURL is a full PostgreSQL connection string.
	// Environment variable: DATABASE_URL
	DatabaseURL string `koanf:"DATABASE_URL"`

	Postgres PostgresConfig `koanf:",squash"`

	// CategoriesFile is an optional YAML category table replacing the built-in one.
	// Environment variable: CATEGORIES_FILE
	CategoriesFile string `koanf:"CATEGORIES_FILE"`

	// MaxUploadBytes caps the size of an uploaded statement.
	// Environment variable: MAX_UPLOAD_BYTES
	MaxUploadBytes int64 `koanf:"MAX_UPLOAD_BYTES"`

	// ArchiveBucket is a GCS bucket receiving a copy of every accepted upload.
	// Archiving is disabled when empty.
	// Environment variable: ARCHIVE_BUCKET
	ArchiveBucket string `koanf:"ARCHIVE_BUCKET"`

	// ArchivePrefix is prepended to archived object names.
	// Environment variable: ARCHIVE_PREFIX
	ArchivePrefix string `koanf:"ARCHIVE_PREFIX"`

	// ArchiveEndpoint overrides the storage API endpoint, for emulators.
	// Environment variable: ARCHIVE_ENDPOINT
	ArchiveEndpoint string `koanf:"ARCHIVE_ENDPOINT"`

	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host            string        `koanf:"POSTGRES_HOST"`
	Port            int           `koanf:"POSTGRES_PORT"`
	Database        string        `koanf:"POSTGRES_DB"`
	User            string        `koanf:"POSTGRES_USER"`
	Password        string        `koanf:"POSTGRES_PASSWORD"`
	SSLMode         string        `koanf:"POSTGRES_SSLMODE"`
	ConnectAttempts uint          `koanf:"POSTGRES_CONNECT_ATTEMPTS"`
	ConnectDelay    time.Duration `koanf:"POSTGRES_CONNECT_DELAY"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPAddr:       ":5000",
		StoreBackend:   "postgres",
		MaxUploadBytes: 32 << 20,
		ArchivePrefix:  "uploads",
		LogLevel:       "INFO",
		LogFormat:      "text",
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "transactions",
			User:            "postgres",
			Password:        "postgres",
			SSLMode:         "disable",
			ConnectAttempts: 5,
			ConnectDelay:    5 * time.Second,
		},
	}
}

// Load reads the JSON file named by SPENDSORT_CONFIG, if any, then the
// environment. Environment values override file values; both override defaults.
func Load() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable fallback.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR must not be empty")
	}
	if c.StoreBackend == "" {
		return errors.New("STORE_BACKEND must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if len(c.StoreConfig) > 0 && !json.Valid(c.StoreConfig) {
		return errors.New("STORE_CONFIG is not valid JSON")
	}
	return nil
}

// StoreSettings returns the JSON config for the selected store plugin.
func (c Config) StoreSettings() (json.RawMessage, error) {
	if len(c.StoreConfig) > 0 {
		return c.StoreConfig, nil
	}

	if c.StoreBackend != "postgres" {
		return json.RawMessage(`{}`), nil
	}

	cfg := map[string]any{
		"host":            c.Postgres.Host,
		"port":            c.Postgres.Port,
		"database":        c.Postgres.Database,
		"user":            c.Postgres.User,
		"password":        c.Postgres.Password,
		"sslmode":         c.Postgres.SSLMode,
		"connectAttempts": c.Postgres.ConnectAttempts,
		"connectDelay":    int(c.Postgres.ConnectDelay / time.Second),
	}
	if c.DatabaseURL != "" {
		cfg["url"] = c.DatabaseURL
	}

	return json.Marshal(cfg)
}

// Logging returns the logging configuration for these settings.
func (c Config) Logging() logging.Config {
	return logging.New(c.LogLevel, c.LogFormat)
}
