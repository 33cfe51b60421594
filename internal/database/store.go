package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveStatus appends a status row and sets entry.ID to the generated key.
	SaveStatus(ctx context.Context, entry *StatusEntry) error

	// GetStatusesBetween returns rows with from <= timestamp < to, oldest first.
	GetStatusesBetween(ctx context.Context, from, to time.Time) ([]StatusEntry, error)

	// CountStatuses returns the number of stored rows.
	CountStatuses(ctx context.Context) (int, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveStatus inserts a status row. There is no uniqueness constraint besides the
// surrogate key, so saving the same entry twice yields two rows.
func (s *sqlxStore) SaveStatus(ctx context.Context, entry *StatusEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil status entry")
	}
	if entry.SenderID == 0 {
		return fmt.Errorf("status entry must have a non-zero sender_id")
	}
	if entry.Status == "" {
		return fmt.Errorf("status entry must have a non-empty status")
	}
	if entry.Timestamp.IsZero() {
		return fmt.Errorf("status entry must have a non-zero timestamp")
	}

	query := s.db.Rebind(`
        INSERT INTO statuses (sender_id, source_username, display_name, status, timestamp)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id;
    `)

	var id int64
	err := s.db.QueryRowxContext(ctx, query,
		entry.SenderID, entry.SourceUsername, entry.DisplayName, entry.Status, entry.Timestamp,
	).Scan(&id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving status", "sender_id", entry.SenderID, "status", entry.Status, "error", err)
		return fmt.Errorf("failed to save status (sender %d): %w", entry.SenderID, err)
	}
	entry.ID = id

	s.logger.DebugContext(ctx, "Status saved successfully", "sender_id", entry.SenderID, "status_id", entry.ID)
	return nil
}

// GetStatusesBetween returns rows with from <= timestamp < to, oldest first.
func (s *sqlxStore) GetStatusesBetween(ctx context.Context, from, to time.Time) ([]StatusEntry, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("invalid range: from %s is not before to %s", from, to)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := s.db.Rebind(`
        SELECT id, sender_id, source_username, display_name, status, timestamp
        FROM statuses
        WHERE timestamp >= ? AND timestamp < ?
        ORDER BY timestamp ASC, id ASC;
    `)

	var entries []StatusEntry
	if err := s.db.SelectContext(ctx, &entries, query, from, to); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching statuses", "from", from, "to", to, "error", err)
		return nil, fmt.Errorf("failed to fetch statuses: %w", err)
	}
	return entries, nil
}

// CountStatuses returns the number of stored rows.
func (s *sqlxStore) CountStatuses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM statuses;"); err != nil {
		return 0, fmt.Errorf("failed to count statuses: %w", err)
	}
	return n, nil
}

// RunSQLMaintenance executes VACUUM (SQLite) or VACUUM ANALYZE (Postgres).
// VACUUM must run outside a transaction on both engines.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	stmt := "VACUUM;"
	if s.db.DriverName() == DriverPostgres {
		stmt = "VACUUM ANALYZE statuses;"
	}

	s.logger.InfoContext(ctx, "Starting database maintenance", "statement", stmt)
	_, err := s.db.ExecContext(ctx, stmt)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to execute VACUUM", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully.")
	return nil
}
