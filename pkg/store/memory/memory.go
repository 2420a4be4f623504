// Package memory provides an in-process transaction store for development and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ArionMiles/spendsort/pkg/api"
)

// Store keeps committed transactions in memory. It is safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	transactions []api.Transaction
	nextID       int64
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		nextID: 1,
		logger: logger.With("component", "memory_store"),
		now:    time.Now,
	}
}

// Commit appends every transaction of the batch or none of them.
func (s *Store) Commit(ctx context.Context, batch *api.BatchResult) ([]api.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, &api.StoreError{Op: "commit", Err: err}
	}
	if batch == nil {
		return nil, &api.StoreError{Op: "commit", Err: errors.New("nil batch")}
	}
	for i, tx := range batch.Transactions {
		if err := validate(tx); err != nil {
			return nil, &api.StoreError{Op: "commit", Err: fmt.Errorf("transaction %d: %w", i, err)}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC()
	stored := make([]api.Transaction, len(batch.Transactions))
	for i, tx := range batch.Transactions {
		tx.ID = s.nextID
		tx.BatchID = batch.BatchID
		tx.CreatedAt = createdAt
		s.nextID++
		stored[i] = tx
	}
	s.transactions = append(s.transactions, stored...)

	s.logger.Info("committed batch",
		"batch_id", batch.BatchID,
		"count", len(stored),
	)
	return slices.Clone(stored), nil
}

// ListTransactions returns all committed transactions, newest date first and
// most recently inserted first within a date.
func (s *Store) ListTransactions(ctx context.Context) ([]api.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, &api.StoreError{Op: "list", Err: err}
	}

	s.mu.Lock()
	out := slices.Clone(s.transactions)
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b api.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() {}

func validate(tx api.Transaction) error {
	if strings.TrimSpace(tx.Description) == "" {
		return errors.New("empty description")
	}
	if tx.Date.IsZero() {
		return errors.New("missing date")
	}
	if tx.Category == "" {
		return errors.New("missing category")
	}
	return nil
}
