// Package bot orchestrates the lifecycle of the status bot: the Telegram
// transport, the scheduler, and draining of pending remote writes.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/statusbot/internal/config"
	"github.com/edgard/statusbot/internal/pipeline"
	"github.com/edgard/statusbot/internal/telegram"
)

const drainTimeout = 30 * time.Second

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	guard     *telegram.ClientGuard
	webhook   *telegram.WebhookServer
	pipe      *pipeline.Pipeline
	scheduler *Scheduler
}

// NewBot creates the orchestrator. webhook may be nil in polling mode.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	guard *telegram.ClientGuard,
	webhook *telegram.WebhookServer,
	pipe *pipeline.Pipeline,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		guard:     guard,
		webhook:   webhook,
		pipe:      pipe,
		scheduler: scheduler,
	}
}

// Run starts the transport and the scheduler and blocks until ctx is cancelled
// or a component fails. Statuses still being processed and their pending
// remote writes are drained before it returns.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator", "mode", b.cfg.Telegram.Mode)

	g, gCtx := errgroup.WithContext(ctx)

	switch b.cfg.Telegram.Mode {
	case config.ModeWebhook:
		if b.webhook == nil {
			return fmt.Errorf("webhook mode requires a webhook server")
		}
		g.Go(func() error {
			return b.webhook.ListenAndServe(gCtx, b.cfg.Telegram.Webhook.ListenAddr)
		})
		if b.cfg.Telegram.Webhook.Register {
			g.Go(func() error { return b.registerWebhook(gCtx) })
		}
	default:
		g.Go(func() error { return b.poll(gCtx) })
	}

	g.Go(func() error {
		if _, err := b.scheduler.Start(gCtx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		<-gCtx.Done()
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	b.drain(ctx)

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}
	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

// poll creates the client and runs long polling until ctx is cancelled. A
// stale webhook would make getUpdates fail, so it is removed first.
func (b *Bot) poll(ctx context.Context) error {
	client, err := b.guard.Get(ctx)
	if err != nil {
		return err
	}
	if _, err := client.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		b.logger.WarnContext(ctx, "Failed to delete webhook before polling", "error", err)
	}

	b.logger.Info("Starting Telegram long polling")
	client.Start(ctx)

	if ctx.Err() == nil {
		return fmt.Errorf("telegram polling stopped unexpectedly")
	}
	b.logger.Info("Telegram long polling stopped")
	return nil
}

// registerWebhook points Telegram at the configured public URL. This creates
// the client eagerly.
func (b *Bot) registerWebhook(ctx context.Context) error {
	client, err := b.guard.Get(ctx)
	if err != nil {
		return err
	}

	wh := b.cfg.Telegram.Webhook
	ok, err := client.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:            wh.URL,
		SecretToken:    wh.SecretToken,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	b.logger.InfoContext(ctx, "Webhook registered", "url", wh.URL, "ok", ok)
	return nil
}

func (b *Bot) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	if err := b.pipe.Close(drainCtx); err != nil {
		b.logger.Error("Pending statuses were not drained", "error", err, "in_flight", b.pipe.InFlight())
		return
	}
	b.logger.Info("Pending statuses drained")
}
