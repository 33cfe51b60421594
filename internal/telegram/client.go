// Package telegram creates the Telegram client lazily, registers handlers on it
// and exposes the webhook HTTP endpoint.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/edgard/statusbot/internal/bot/handlers"
)

// ClientGuard guards the one Telegram client of the process.
type ClientGuard = Guard[*bot.Bot]

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
// Unless bot.WithSkipGetMe is passed, this calls getMe and fails on a bad token.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(token))
	return b, nil
}

// NewClientGuard returns a guard whose first use creates the bot and registers
// the given command handlers on it.
func NewClientGuard(token string, logger *slog.Logger, registered map[string]handlers.RegisteredHandler, opts ...bot.Option) *ClientGuard {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "client_guard")

	return NewGuard(func(ctx context.Context) (*bot.Bot, error) {
		log.InfoContext(ctx, "Initializing Telegram client on first use")
		start := time.Now()

		b, err := NewTelegramBot(token, logger, opts...)
		if err != nil {
			log.ErrorContext(ctx, "Telegram client initialization failed", "error", err)
			return nil, err
		}
		if err := RegisterHandlers(b, logger, registered); err != nil {
			log.ErrorContext(ctx, "Handler registration failed", "error", err)
			return nil, err
		}

		log.InfoContext(ctx, "Telegram client ready", "duration", time.Since(start))
		return b, nil
	})
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers command and message handlers with the Telegram bot instance.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registeredHandlers map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registeredHandlers) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	for _, regHandler := range registeredHandlers {
		if regHandler.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", regHandler.Pattern)
			continue
		}

		finalHandler := applyMiddleware(regHandler.Handler, regHandler.Middleware)
		b.RegisterHandler(regHandler.HandlerType, regHandler.Pattern, regHandler.MatchType, finalHandler)
		log.Debug("Registered handler", "pattern", regHandler.Pattern, "match_type", regHandler.MatchType, "middleware_count", len(regHandler.Middleware))
	}

	log.Info("Registered Telegram handlers successfully", "count", len(registeredHandlers))
	return nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}

// Notifier returns a function that sends plain text to a chat through the
// guarded client, creating it if needed.
func Notifier(guard *ClientGuard) func(ctx context.Context, chatID int64, text string) error {
	return func(ctx context.Context, chatID int64, text string) error {
		b, err := guard.Get(ctx)
		if err != nil {
			return err
		}
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
		}
		return nil
	}
}
