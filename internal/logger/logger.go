// Package logger builds the process-wide slog logger and the update-logging
// middleware for the Telegram client.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const previewRunes = 50

// ParseLevel maps a configured level name to a slog.Level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a logger writing to stdout and installs it as the default.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New creates a logger writing to w, text or JSON formatted.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Middleware logs every update the client dispatches and how long its
// handler took.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			entry := log.With(UpdateAttrs(update)...)

			entry.DebugContext(ctx, "Processing update")
			next(ctx, b, update)
			entry.DebugContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// UpdateAttrs returns the log attributes that identify an update.
func UpdateAttrs(update *models.Update) []any {
	attrs := []any{"update_id", update.ID}

	var msg *models.Message
	switch {
	case update.Message != nil:
		msg = update.Message
		attrs = append(attrs, "update_type", "message")
	case update.EditedMessage != nil:
		msg = update.EditedMessage
		attrs = append(attrs, "update_type", "edited_message")
	case update.ChannelPost != nil:
		msg = update.ChannelPost
		attrs = append(attrs, "update_type", "channel_post")
	default:
		return append(attrs, "update_type", "other")
	}

	attrs = append(attrs, "message_id", msg.ID, "chat_id", msg.Chat.ID)
	if msg.From != nil {
		attrs = append(attrs, "user_id", msg.From.ID)
	}
	if msg.Text != "" {
		attrs = append(attrs, "text_preview", Truncate(msg.Text, previewRunes))
	}
	return attrs
}

// Truncate shortens s to at most maxRunes runes, marking the cut with "...".
func Truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return "..."
	}
	return string(r[:maxRunes-3]) + "..."
}
