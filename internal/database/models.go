package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/edgard/statusbot/internal/status"
)

// StatusEntry is one row of the append-only statuses table.
// ID is assigned by the database on insert and reflects write-completion order.
type StatusEntry struct {
	ID             int64          `db:"id"`
	SenderID       int64          `db:"sender_id"`
	SourceUsername sql.NullString `db:"source_username"`
	DisplayName    sql.NullString `db:"display_name"`
	Status         string         `db:"status"`
	Timestamp      time.Time      `db:"timestamp"`
}

// NewStatusEntry converts a record into an unsaved row.
func NewStatusEntry(rec status.Record) *StatusEntry {
	return &StatusEntry{
		SenderID:       rec.SenderID,
		SourceUsername: nullString(rec.SourceUsername),
		DisplayName:    nullString(rec.DisplayName),
		Status:         rec.Status,
		Timestamp:      rec.Timestamp,
	}
}

// Name returns the stored display name. Rows written before display_name
// existed fall back to the source handle, then to "ID:<sender_id>".
func (e StatusEntry) Name() string {
	if e.DisplayName.Valid && e.DisplayName.String != "" {
		return e.DisplayName.String
	}
	if e.SourceUsername.Valid && e.SourceUsername.String != "" {
		return e.SourceUsername.String
	}
	return fmt.Sprintf("ID:%d", e.SenderID)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
