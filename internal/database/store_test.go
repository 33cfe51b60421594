package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/statusbot/internal/database"
	"github.com/edgard/statusbot/internal/status"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(database.DriverSQLite, filepath.Join(t.TempDir(), "statuses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"file:data/statuses.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite",
		database.SQLiteDSN("data/statuses.db"))
	assert.Equal(t, "file:x.db?mode=ro", database.SQLiteDSN("file:x.db?mode=ro"))
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := database.NewDB("mysql", "whatever")
	require.Error(t, err)
}

func TestSaveStatusAssignsIncreasingIDs(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	loc := time.FixedZone("MSK", 3*60*60)
	rec := status.NewRecord(status.Sender{ID: 283779327, Username: "egor_tg"}, "Егор", "на месте", time.Now(), loc)

	first := database.NewStatusEntry(rec)
	require.NoError(t, store.SaveStatus(ctx, first))
	second := database.NewStatusEntry(rec)
	require.NoError(t, store.SaveStatus(ctx, second))

	assert.Positive(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	n, err := store.CountStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "saving the same record twice must produce two rows")
}

func TestSaveStatusValidates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.Error(t, store.SaveStatus(ctx, nil))
	require.Error(t, store.SaveStatus(ctx, &database.StatusEntry{Status: "в пути", Timestamp: time.Now()}))
	require.Error(t, store.SaveStatus(ctx, &database.StatusEntry{SenderID: 1, Timestamp: time.Now()}))
	require.Error(t, store.SaveStatus(ctx, &database.StatusEntry{SenderID: 1, Status: "в пути"}))
}

func TestGetStatusesBetween(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	loc := time.FixedZone("MSK", 3*60*60)
	day := time.Date(2025, time.April, 10, 0, 0, 0, 0, loc)

	save := func(id int64, name, st string, at time.Time) {
		rec := status.NewRecord(status.Sender{ID: id}, name, st, at, loc)
		require.NoError(t, store.SaveStatus(ctx, database.NewStatusEntry(rec)))
	}
	save(1, "Аня", "в пути", day.Add(-time.Minute))
	save(2, "Егор", "на месте", day.Add(9*time.Hour))
	save(1, "Аня", "закончил", day.Add(18*time.Hour))
	save(2, "Егор", "в пути", day.Add(24*time.Hour))

	entries, err := store.GetStatusesBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Егор", entries[0].Name())
	assert.Equal(t, "на месте", entries[0].Status)
	assert.True(t, entries[0].Timestamp.Equal(day.Add(9*time.Hour)))
	assert.Equal(t, "закончил", entries[1].Status)

	_, err = store.GetStatusesBetween(ctx, day, day)
	require.Error(t, err)
}

func TestStatusEntryName(t *testing.T) {
	t.Parallel()

	rec := status.Record{SenderID: 5, SourceUsername: "anna", Status: "в пути", Timestamp: time.Now()}
	entry := database.NewStatusEntry(rec)
	assert.False(t, entry.DisplayName.Valid)
	assert.Equal(t, "anna", entry.Name())

	assert.Equal(t, "ID:5", database.StatusEntry{SenderID: 5}.Name())
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.RunSQLMaintenance(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, store.RunSQLMaintenance(ctx), context.Canceled)
}
