package plugins

import (
	"fmt"

	"github.com/ArionMiles/spendsort/pkg/export"
	memoryplugin "github.com/ArionMiles/spendsort/pkg/plugins/stores/memory"
	postgresplugin "github.com/ArionMiles/spendsort/pkg/plugins/stores/postgres"
	"github.com/ArionMiles/spendsort/pkg/table"
)

// Builtin returns a registry holding every bundled table reader, store and exporter.
func Builtin() (*Registry, error) {
	r := NewRegistry()

	for _, reader := range []table.Reader{table.CSV{}, table.XLSX{}, table.XLS{}} {
		if err := r.RegisterReader(reader); err != nil {
			return nil, fmt.Errorf("registering %s reader: %w", reader.Name(), err)
		}
	}

	for _, store := range []StorePlugin{&postgresplugin.Plugin{}, &memoryplugin.Plugin{}} {
		if err := r.RegisterStore(store); err != nil {
			return nil, fmt.Errorf("registering %s store: %w", store.Name(), err)
		}
	}

	if err := r.RegisterExporter(export.CSV{}); err != nil {
		return nil, fmt.Errorf("registering csv exporter: %w", err)
	}
	if err := r.RegisterExporter(export.JSON{}); err != nil {
		return nil, fmt.Errorf("registering json exporter: %w", err)
	}

	return r, nil
}
