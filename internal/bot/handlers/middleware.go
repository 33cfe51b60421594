// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ChatOnly creates a middleware that drops messages from chats other than the
// configured group chat. A zero chat ID disables the filter.
func ChatOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			allowed := deps.Config.Telegram.ChatID
			if allowed == 0 || update.Message == nil {
				next(ctx, bot, update)
				return
			}

			if chatID := update.Message.Chat.ID; chatID != allowed {
				deps.Logger.With("middleware", "ChatOnly").DebugContext(ctx, "Ignoring message from foreign chat",
					"chat_id", chatID, "allowed_chat_id", allowed)
				return
			}

			next(ctx, bot, update)
		}
	}
}
