// Package postgres provides a PostgreSQL store for committed transaction batches.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendsort/pkg/api"
)

//go:embed 001_create_transactions.sql
var migrationSQL string

// Config holds the PostgreSQL store configuration.
type Config struct {
	// URL is a full connection string. When set, the discrete fields are ignored.
	URL string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int

	// ConnectAttempts bounds how many times the initial ping is tried.
	ConnectAttempts uint
	// ConnectDelay is the pause between connection attempts.
	ConnectDelay time.Duration

	// CommitAttempts bounds retries of a batch commit on transient errors.
	CommitAttempts uint
}

// Store persists batches to PostgreSQL.
type Store struct {
	pool           *pgxpool.Pool
	logger         *slog.Logger
	commitAttempts uint
}

// New connects to PostgreSQL, retrying the initial ping, and applies the schema.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres_store")

	cfg = withDefaults(cfg)

	poolConfig, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(cfg.ConnectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready, retrying",
				"attempt", n+1,
				"max_attempts", cfg.ConnectAttempts,
				"error", err,
			)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	s := &Store{
		pool:           pool,
		logger:         logger,
		commitAttempts: cfg.CommitAttempts,
	}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = 5
	}
	if cfg.ConnectDelay == 0 {
		cfg.ConnectDelay = 5 * time.Second
	}
	if cfg.CommitAttempts == 0 {
		cfg.CommitAttempts = 3
	}
	return cfg
}

func (c Config) connString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, quoteValue(c.Password), c.Database, c.SSLMode,
	)
}

// quoteValue quotes a keyword/value connection parameter when it contains
// spaces, quotes or backslashes.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func (s *Store) runMigrations(ctx context.Context) error {
	s.logger.Info("running database migrations")

	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}

	s.logger.Info("migrations completed successfully")
	return nil
}

// Commit writes the batch record and every transaction in one database
// transaction. Transient failures retry the whole unit; any other failure
// leaves the database unchanged and is returned as *api.StoreError.
func (s *Store) Commit(ctx context.Context, batch *api.BatchResult) ([]api.Transaction, error) {
	if batch == nil {
		return nil, &api.StoreError{Op: "commit", Err: errors.New("nil batch")}
	}

	var stored []api.Transaction
	err := retry.Do(
		func() error {
			var err error
			stored, err = s.writeBatch(ctx, batch)
			return err
		},
		retry.RetryIf(func(err error) bool {
			if isTransient(err) {
				s.logger.Warn("transient database error, retrying batch",
					"batch_id", batch.BatchID,
					"error", err,
				)
				return true
			}
			return false
		}),
		retry.Attempts(s.commitAttempts),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		s.logger.Error("failed to commit batch", "batch_id", batch.BatchID, "error", err)
		return nil, &api.StoreError{Op: "commit", Err: err}
	}

	s.logger.Info("committed batch",
		"batch_id", batch.BatchID,
		"count", len(stored),
		"rejected", batch.Rejected,
	)
	return stored, nil
}

func (s *Store) writeBatch(ctx context.Context, batch *api.BatchResult) ([]api.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO batches (id, source, row_count, rejected_count, total_amount)
		VALUES ($1, $2, $3, $4, $5)
	`,
		batch.BatchID,
		batch.Source,
		batch.Stats.TotalRows,
		batch.Rejected,
		batch.Stats.TotalAmount.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting batch record: %w", err)
	}

	stored, err := insertTransactions(ctx, tx, batch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return stored, nil
}

func insertTransactions(ctx context.Context, tx pgx.Tx, batch *api.BatchResult) ([]api.Transaction, error) {
	if len(batch.Transactions) == 0 {
		return []api.Transaction{}, nil
	}

	b := &pgx.Batch{}
	for _, t := range batch.Transactions {
		b.Queue(`
			INSERT INTO transactions (batch_id, date, description, amount, category)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`,
			batch.BatchID,
			t.Date,
			t.Description,
			t.Amount.String(),
			t.Category,
		)
	}

	results := tx.SendBatch(ctx, b)
	stored := make([]api.Transaction, len(batch.Transactions))
	for i, t := range batch.Transactions {
		t.BatchID = batch.BatchID
		if err := results.QueryRow().Scan(&t.ID, &t.CreatedAt); err != nil {
			results.Close()
			return nil, fmt.Errorf("inserting transaction %d: %w", i, err)
		}
		stored[i] = t
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("closing batch results: %w", err)
	}
	return stored, nil
}

// ListTransactions returns all committed transactions ordered by date
// descending, then id descending.
func (s *Store) ListTransactions(ctx context.Context) ([]api.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, batch_id, date, description, amount::text, category, created_at
		FROM transactions
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, &api.StoreError{Op: "list", Err: fmt.Errorf("querying transactions: %w", err)}
	}

	out, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return nil, &api.StoreError{Op: "list", Err: fmt.Errorf("scanning transactions: %w", err)}
	}
	return out, nil
}

func scanTransaction(row pgx.CollectableRow) (api.Transaction, error) {
	var (
		t      api.Transaction
		amount string
	)
	if err := row.Scan(&t.ID, &t.BatchID, &t.Date, &t.Description, &amount, &t.Category, &t.CreatedAt); err != nil {
		return api.Transaction{}, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return api.Transaction{}, fmt.Errorf("parsing stored amount %q: %w", amount, err)
	}
	t.Amount = d
	t.Date = t.Date.UTC()
	return t, nil
}

// isTransient reports whether a failed commit may succeed if retried from scratch.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}

// Close closes the database connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("closed PostgreSQL connection pool")
	}
}
