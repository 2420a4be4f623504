// Package plugins provides a registry for table readers, stores and exporters.
package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ArionMiles/spendsort/pkg/api"
	"github.com/ArionMiles/spendsort/pkg/table"
)

// StorePlugin defines the interface for transaction store plugins.
type StorePlugin interface {
	// Name returns the plugin name (e.g., "postgres", "memory").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ConfigSchema returns a JSON schema describing the plugin's configuration.
	ConfigSchema() map[string]any
	// NewStore creates a new store instance with the given config.
	NewStore(ctx context.Context, config json.RawMessage, logger *slog.Logger) (api.Store, error)
}

// Registry manages available table readers, store plugins and exporters.
type Registry struct {
	readers     map[string]table.Reader
	byExtension map[string]table.Reader
	stores      map[string]StorePlugin
	exporters   map[string]api.Exporter
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		readers:     make(map[string]table.Reader),
		byExtension: make(map[string]table.Reader),
		stores:      make(map[string]StorePlugin),
		exporters:   make(map[string]api.Exporter),
	}
}

// RegisterReader registers a table reader under its name and extensions.
func (r *Registry) RegisterReader(reader table.Reader) error {
	name := reader.Name()
	if _, exists := r.readers[name]; exists {
		return fmt.Errorf("table reader %q already registered", name)
	}
	for _, ext := range reader.Extensions() {
		if other, exists := r.byExtension[strings.ToLower(ext)]; exists {
			return fmt.Errorf("extension %q already handled by table reader %q", ext, other.Name())
		}
	}

	r.readers[name] = reader
	for _, ext := range reader.Extensions() {
		r.byExtension[strings.ToLower(ext)] = reader
	}
	return nil
}

// RegisterStore registers a store plugin.
func (r *Registry) RegisterStore(plugin StorePlugin) error {
	name := plugin.Name()
	if _, exists := r.stores[name]; exists {
		return fmt.Errorf("store plugin %q already registered", name)
	}
	r.stores[name] = plugin
	return nil
}

// RegisterExporter registers an exporter.
func (r *Registry) RegisterExporter(exporter api.Exporter) error {
	name := exporter.Name()
	if _, exists := r.exporters[name]; exists {
		return fmt.Errorf("exporter %q already registered", name)
	}
	r.exporters[name] = exporter
	return nil
}

// ReaderFor returns the table reader for a file name, chosen by extension.
func (r *Registry) ReaderFor(filename string) (table.Reader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	reader, exists := r.byExtension[ext]
	if !exists {
		return nil, fmt.Errorf("unsupported file type %q (allowed: %s)", ext, strings.Join(r.Extensions(), ", "))
	}
	return reader, nil
}

// Extensions returns every registered file extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// GetStore returns a store plugin by name.
func (r *Registry) GetStore(name string) (StorePlugin, error) {
	plugin, exists := r.stores[name]
	if !exists {
		return nil, fmt.Errorf("store plugin %q not found", name)
	}
	return plugin, nil
}

// GetExporter returns an exporter by name.
func (r *Registry) GetExporter(name string) (api.Exporter, error) {
	exporter, exists := r.exporters[name]
	if !exists {
		return nil, fmt.Errorf("exporter %q not found", name)
	}
	return exporter, nil
}

// ListStores returns all registered store plugins sorted by name.
func (r *Registry) ListStores() []StorePlugin {
	plugins := make([]StorePlugin, 0, len(r.stores))
	for _, plugin := range r.stores {
		plugins = append(plugins, plugin)
	}
	slices.SortFunc(plugins, func(a, b StorePlugin) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return plugins
}

// ListReaders returns all registered table readers sorted by name.
func (r *Registry) ListReaders() []table.Reader {
	readers := make([]table.Reader, 0, len(r.readers))
	for _, reader := range r.readers {
		readers = append(readers, reader)
	}
	slices.SortFunc(readers, func(a, b table.Reader) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return readers
}

// CreateStore creates a store instance from a plugin.
func (r *Registry) CreateStore(ctx context.Context, name string, config json.RawMessage, logger *slog.Logger) (api.Store, error) {
	plugin, err := r.GetStore(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewStore(ctx, config, logger)
}
