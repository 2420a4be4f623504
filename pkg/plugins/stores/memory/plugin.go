// Package memory provides a plugin wrapper for the in-memory store.
package memory

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ArionMiles/spendsort/pkg/api"
	memstore "github.com/ArionMiles/spendsort/pkg/store/memory"
)

// Plugin implements the StorePlugin interface for the in-memory store.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "memory"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Keep committed transactions in process memory (lost on restart)"
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// NewStore creates an empty store. The config is ignored.
func (p *Plugin) NewStore(_ context.Context, _ json.RawMessage, logger *slog.Logger) (api.Store, error) {
	return memstore.New(logger), nil
}
