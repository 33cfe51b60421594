package handlers

import (
	"log/slog"

	"github.com/edgard/statusbot/internal/config"
	"github.com/edgard/statusbot/internal/database"
	"github.com/edgard/statusbot/internal/pipeline"
)

// HandlerDeps provides dependencies for Telegram command and message handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Pipeline *pipeline.Pipeline
}
