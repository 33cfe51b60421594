package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/statusbot/internal/config"
	"github.com/edgard/statusbot/internal/database"
)

type fakeStore struct {
	database.Store
	entries     []database.StatusEntry
	from, to    time.Time
	vacuumed    int
	maintainErr error
}

func (f *fakeStore) GetStatusesBetween(_ context.Context, from, to time.Time) ([]database.StatusEntry, error) {
	f.from, f.to = from, to
	return f.entries, nil
}

func (f *fakeStore) CountStatuses(context.Context) (int, error) {
	return len(f.entries), nil
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error {
	f.vacuumed++
	return f.maintainErr
}

func testDeps(store database.Store, notify Notifier) TaskDeps {
	cfg := &config.Config{}
	cfg.Telegram.ChatID = -100
	cfg.Messages = config.DefaultMessages
	return TaskDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:  store,
		Config: cfg,
		Notify: notify,
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	withNotify := RegisterAllTasks(testDeps(&fakeStore{}, func(context.Context, int64, string) error { return nil }))
	assert.Contains(t, withNotify, "sql_maintenance")
	assert.Contains(t, withNotify, "daily_summary")

	without := RegisterAllTasks(testDeps(&fakeStore{}, nil))
	assert.Contains(t, without, "sql_maintenance")
	assert.NotContains(t, without, "daily_summary")
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	require.NoError(t, newSQLMaintenanceTask(testDeps(store, nil))(context.Background()))
	assert.Equal(t, 1, store.vacuumed)

	store.maintainErr = errors.New("disk full")
	err := newSQLMaintenanceTask(testDeps(store, nil))(context.Background())
	require.ErrorIs(t, err, store.maintainErr)
}

func TestDailySummaryTask(t *testing.T) {
	t.Parallel()

	store := &fakeStore{entries: []database.StatusEntry{{
		SenderID:  1,
		Status:    "на месте",
		Timestamp: time.Date(2025, 4, 10, 9, 30, 0, 0, time.UTC),
	}}}

	var gotChat int64
	var gotText string
	deps := testDeps(store, func(_ context.Context, chatID int64, text string) error {
		gotChat, gotText = chatID, text
		return nil
	})
	task := dailySummary{deps: deps, now: func() time.Time {
		return time.Date(2025, 4, 10, 20, 0, 0, 0, time.UTC)
	}}

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, int64(-100), gotChat)
	assert.Equal(t, config.DefaultMessages.TodayHeader+"09:30:00 ID:1 - на месте", gotText)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), store.from)
	assert.Equal(t, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC), store.to)
}

func TestDailySummaryTaskSendFailure(t *testing.T) {
	t.Parallel()

	sendErr := errors.New("forbidden")
	deps := testDeps(&fakeStore{}, func(context.Context, int64, string) error { return sendErr })
	err := newDailySummaryTask(deps)(context.Background())
	require.ErrorIs(t, err, sendErr)
}
