package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/statusbot/internal/pipeline"
)

const sendMessageTimeout = 10 * time.Second

// NewStatusHandler returns the default handler: every non-command message from
// the configured chat goes through the status pipeline.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return ChatOnly(deps)(statusHandler{deps}.Handle)
}

type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")

	ev, ok := EventFromUpdate(update)
	if !ok {
		log.DebugContext(ctx, "Ignoring update without a message or sender", "update_id", update.ID)
		return
	}
	if strings.HasPrefix(ev.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "chat_id", ev.ChatID)
		return
	}

	h.deps.Pipeline.OnMessage(ctx, ev, NewReplier(b))
}

// EventFromUpdate extracts the pipeline event from a message update.
func EventFromUpdate(update *models.Update) (pipeline.Event, bool) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return pipeline.Event{}, false
	}
	msg := update.Message
	return pipeline.Event{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		SenderID:  msg.From.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Text:      msg.Text,
	}, true
}

// replier sends acknowledgments through the Bot API as replies to the status message.
type replier struct {
	b *bot.Bot
}

// NewReplier adapts b to pipeline.Replier.
func NewReplier(b *bot.Bot) pipeline.Replier {
	return replier{b: b}
}

func (r replier) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if replyTo > 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}
	_, err := r.b.SendMessage(sendCtx, params)
	return err
}
