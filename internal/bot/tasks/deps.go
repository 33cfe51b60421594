// Package tasks implements the bot's scheduled jobs.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/statusbot/internal/config"
	"github.com/edgard/statusbot/internal/database"
)

// Notifier posts a message to the configured group chat.
type Notifier func(ctx context.Context, chatID int64, text string) error

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
	// Notify may be nil, in which case tasks that post to the chat are not registered.
	Notify Notifier
}
