package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/statusbot/internal/bot/handlers"
)

// newDailySummaryTask posts the day's statuses to the group chat. It is meant
// to run late in the day; the day is taken from the configured timezone.
func newDailySummaryTask(deps TaskDeps) ScheduledTaskFunc {
	return dailySummary{deps: deps, now: time.Now}.Run
}

type dailySummary struct {
	deps TaskDeps
	now  func() time.Time
}

func (t dailySummary) Run(ctx context.Context) error {
	cfg := t.deps.Config
	from, to := handlers.DayBounds(t.now(), cfg.Location())

	entries, err := t.deps.Store.GetStatusesBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("daily summary: failed to load statuses: %w", err)
	}

	text := handlers.FormatStatuses(entries, cfg.Messages.TodayHeader, cfg.Messages.TodayEmpty, cfg.Location())
	if err := t.deps.Notify(ctx, cfg.Telegram.ChatID, text); err != nil {
		return fmt.Errorf("daily summary: failed to send: %w", err)
	}

	t.deps.Logger.InfoContext(ctx, "Daily summary sent", "task", "daily_summary", "statuses", len(entries))
	return nil
}
