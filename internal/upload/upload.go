// Package upload runs an uploaded statement through ingestion, archiving and commit.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ArionMiles/spendsort/pkg/api"
	"github.com/ArionMiles/spendsort/pkg/ingest"
	"github.com/ArionMiles/spendsort/pkg/table"
)

// ErrUnsupportedType is returned when no table reader handles the file's extension.
var ErrUnsupportedType = errors.New("unsupported file type")

// ReaderSource picks a table reader for a file name.
type ReaderSource interface {
	ReaderFor(filename string) (table.Reader, error)
}

// Service turns raw uploads into committed batches.
type Service struct {
	pipeline *ingest.Pipeline
	readers  ReaderSource
	store    api.Committer
	archiver api.Archiver
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithArchiver keeps a copy of every accepted upload.
func WithArchiver(a api.Archiver) Option {
	return func(s *Service) {
		s.archiver = a
	}
}

// New creates an upload service.
func New(pipeline *ingest.Pipeline, readers ReaderSource, store api.Committer, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = ingest.New(nil, logger)
	}

	s := &Service{
		pipeline: pipeline,
		readers:  readers,
		store:    store,
		logger:   logger.With("component", "upload"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview runs the pipeline without archiving or committing.
func (s *Service) Preview(name string, data []byte) (*api.BatchResult, error) {
	reader, err := s.readers.ReaderFor(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}

	s.logger.Info("processing upload", "file", name, "format", reader.Name(), "bytes", len(data))
	return s.pipeline.Ingest(name, bytes.NewReader(data), reader)
}

// Upload ingests a file and commits the resulting batch. The returned batch
// carries the stored transactions with their ids. Pipeline errors are input
// errors (see api.IsInputError); commit failures are *api.StoreError.
func (s *Service) Upload(ctx context.Context, name string, data []byte) (*api.BatchResult, error) {
	batch, err := s.Preview(name, data)
	if err != nil {
		return nil, err
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, batch.BatchID, name, data); err != nil {
			s.logger.Warn("failed to archive upload", "batch_id", batch.BatchID, "error", err)
		}
	}

	stored, err := s.store.Commit(ctx, batch)
	if err != nil {
		return nil, err
	}
	batch.Transactions = stored

	s.logger.Info("upload committed",
		"file", name,
		"batch_id", batch.BatchID,
		"total_rows", batch.Stats.TotalRows,
		"total_amount", batch.Stats.TotalAmount.String(),
		"rejected", batch.Rejected,
	)
	return batch, nil
}
