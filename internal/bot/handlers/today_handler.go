package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/statusbot/internal/database"
	"github.com/edgard/statusbot/internal/status"
)

const dbReadTimeout = 5 * time.Second

// NewTodayHandler returns a handler for the /today command, which lists the
// statuses recorded since midnight in the configured timezone.
func NewTodayHandler(deps HandlerDeps) bot.HandlerFunc {
	return todayHandler{deps: deps, now: time.Now}.Handle
}

type todayHandler struct {
	deps HandlerDeps
	now  func() time.Time
}

func (h todayHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "today")

	if update.Message == nil {
		log.WarnContext(ctx, "Today handler received update with nil message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	from, to := DayBounds(h.now(), h.deps.Pipeline.Location())
	dbCtx, cancel := context.WithTimeout(ctx, dbReadTimeout)
	entries, err := h.deps.Store.GetStatusesBetween(dbCtx, from, to)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load today's statuses", "error", err)
		entries = nil
	}

	text := FormatStatuses(entries, h.deps.Config.Messages.TodayHeader, h.deps.Config.Messages.TodayEmpty, h.deps.Pipeline.Location())
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send today's statuses", "error", err, "chat_id", chatID)
	}
}

// DayBounds returns the start of the day containing now in loc and the start of the next day.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	now = now.In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// FormatStatuses renders one "HH:MM:SS name - status" line per entry under
// header, with times shown in loc.
func FormatStatuses(entries []database.StatusEntry, header, empty string, loc *time.Location) string {
	if len(entries) == 0 {
		return empty
	}
	var sb strings.Builder
	sb.WriteString(header)
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s - %s\n", e.Timestamp.In(loc).Format(status.TimeLayout), e.Name(), e.Status)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderStatusList substitutes the quoted, comma-separated keywords for the
// first %s.
func renderStatusList(template string, keywords []string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = "'" + kw + "'"
	}
	return strings.Replace(template, "%s", strings.Join(quoted, ", "), 1)
}
