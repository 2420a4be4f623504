// Package gcs archives raw uploaded statements to a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// Config holds the archive configuration.
type Config struct {
	// Bucket receives the archived files.
	Bucket string
	// Prefix is prepended to every object name (e.g., "uploads/").
	Prefix string
	// Endpoint overrides the storage API endpoint, for emulators.
	// Authentication is disabled when it is set.
	Endpoint string
	// Timeout bounds a single upload. Defaults to 2 minutes.
	Timeout time.Duration
}

// Archiver copies raw uploads into a bucket under their batch id.
type Archiver struct {
	client  *storage.Client
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an archiver. Credentials come from Application Default Credentials
// unless an endpoint override or explicit options are given.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	logger.Info("upload archive enabled", "bucket", cfg.Bucket, "prefix", prefix)
	return &Archiver{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "gcs_archive"),
	}, nil
}

// ObjectName returns the object an upload is stored under.
func (a *Archiver) ObjectName(batchID uuid.UUID, name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	return a.prefix + batchID.String() + "/" + base
}

// Archive writes data to the bucket and returns once the upload is finalized.
func (a *Archiver) Archive(ctx context.Context, batchID uuid.UUID, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	object := a.ObjectName(batchID, name)
	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ChunkSize = 0
	w.ContentType = contentType(name)
	w.Metadata = map[string]string{
		"batch_id":      batchID.String(),
		"original_name": name,
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing %s to gcs: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing upload of %s: %w", object, err)
	}

	a.logger.Info("archived upload",
		"batch_id", batchID,
		"object", fmt.Sprintf("gs://%s/%s", a.bucket, object),
		"bytes", len(data),
	)
	return nil
}

// Close releases the storage client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	default:
		return "application/octet-stream"
	}
}
