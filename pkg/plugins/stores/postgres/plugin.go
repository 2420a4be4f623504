// Package postgres provides a plugin wrapper for the PostgreSQL store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArionMiles/spendsort/pkg/api"
	pgstore "github.com/ArionMiles/spendsort/pkg/store/postgres"
)

// Plugin implements the StorePlugin interface for PostgreSQL.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "postgres"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Store committed transaction batches in a PostgreSQL database"
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Full connection string; overrides the discrete fields",
			},
			"host": map[string]any{
				"type":        "string",
				"description": "PostgreSQL host address",
				"default":     "localhost",
			},
			"port": map[string]any{
				"type":        "integer",
				"description": "PostgreSQL port",
				"default":     5432,
			},
			"database": map[string]any{
				"type":        "string",
				"description": "Database name",
				"default":     "spendsort",
			},
			"user": map[string]any{
				"type":        "string",
				"description": "Database user",
			},
			"password": map[string]any{
				"type":        "string",
				"description": "Database password",
			},
			"sslmode": map[string]any{
				"type":        "string",
				"description": "SSL mode (disable, require, verify-ca, verify-full)",
				"default":     "disable",
				"enum":        []string{"disable", "require", "verify-ca", "verify-full"},
			},
			"maxPoolSize": map[string]any{
				"type":        "integer",
				"description": "Maximum number of connections in the pool (default: 10)",
				"default":     10,
			},
			"connectAttempts": map[string]any{
				"type":        "integer",
				"description": "Connection attempts before giving up (default: 5)",
				"default":     5,
			},
			"connectDelay": map[string]any{
				"type":        "integer",
				"description": "Seconds between connection attempts (default: 5)",
				"default":     5,
			},
		},
	}
}

// Config represents the PostgreSQL store configuration.
type Config struct {
	URL             string `json:"url,omitempty"`
	Host            string `json:"host,omitempty"`
	Port            int    `json:"port,omitempty"`
	Database        string `json:"database,omitempty"`
	User            string `json:"user,omitempty"`
	Password        string `json:"password,omitempty"`
	SSLMode         string `json:"sslmode,omitempty"`
	MaxPoolSize     int    `json:"maxPoolSize,omitempty"`
	ConnectAttempts uint   `json:"connectAttempts,omitempty"`
	ConnectDelay    int    `json:"connectDelay,omitempty"` // in seconds
}

// Validate checks that either a URL or the discrete connection fields are present.
func (c Config) Validate() error {
	if c.URL != "" {
		return nil
	}
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.User == "" {
		return errors.New("user is required")
	}
	return nil
}

// NewStore connects to PostgreSQL and returns a ready store.
func (p *Plugin) NewStore(ctx context.Context, configData json.RawMessage, logger *slog.Logger) (api.Store, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling postgres config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return pgstore.New(ctx, pgstore.Config{
		URL:             cfg.URL,
		Host:            cfg.Host,
		Port:            cfg.Port,
		Database:        cfg.Database,
		User:            cfg.User,
		Password:        cfg.Password,
		SSLMode:         cfg.SSLMode,
		MaxPoolSize:     cfg.MaxPoolSize,
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectDelay:    time.Duration(cfg.ConnectDelay) * time.Second,
	}, logger)
}
