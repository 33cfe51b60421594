// Package main contains the entrypoint for the status bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/statusbot/internal/bot"
	"github.com/edgard/statusbot/internal/bot/handlers"
	"github.com/edgard/statusbot/internal/bot/tasks"
	"github.com/edgard/statusbot/internal/config"
	"github.com/edgard/statusbot/internal/database"
	"github.com/edgard/statusbot/internal/logger"
	"github.com/edgard/statusbot/internal/pipeline"
	"github.com/edgard/statusbot/internal/resilience"
	"github.com/edgard/statusbot/internal/sheets"
	"github.com/edgard/statusbot/internal/status"
	"github.com/edgard/statusbot/internal/telegram"

	_ "time/tzdata"
)

const sheetsSetupTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires all components, blocks until shutdown, and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	for _, w := range cfg.Warnings() {
		log.Warn("Configuration warning", "warning", w)
	}

	db, err := database.NewDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	vocab, err := status.NewVocabulary(cfg.Status.Keywords)
	if err != nil {
		log.Error("Invalid status vocabulary", "error", err)
		return 1
	}
	resolver := status.NewResolver(cfg.RosterMap())

	sinkOpts := pipeline.SinkOptions{
		LocalTimeout:  cfg.Database.WriteTimeout,
		RemoteTimeout: cfg.Sheets.Timeout,
		Logger:        log,
	}
	if ws := openWorksheet(ctx, cfg.Sheets, log); ws != nil {
		breaker := resilience.NewBreaker(resilience.Config{
			Name:        "sheets",
			Attempts:    cfg.Sheets.RetryAttempts,
			MaxFailures: cfg.Sheets.BreakerFailures,
			Cooldown:    cfg.Sheets.BreakerCooldown,
		}, log)
		sinkOpts.Remote = resilience.NewAppender(ws, breaker)
		sinkOpts.Pool = pipeline.NewPool(cfg.Sheets.Workers, cfg.Sheets.QueueSize)
	}
	sink := pipeline.NewDualSink(store, sinkOpts)

	pipe := pipeline.New(vocab, resolver, sink, pipeline.Options{
		Location:      cfg.Location(),
		ReplyTemplate: cfg.Status.ReplyTemplate,
		Logger:        log,
	})

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Pipeline: pipe,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewStatusHandler(hDeps)),
	}
	var webhook *telegram.WebhookServer
	if cfg.Telegram.Mode == config.ModeWebhook {
		// Updates are processed inside the request so Telegram only sees 200
		// after the status has been handled.
		botOpts = append(botOpts, tgbot.WithNotAsyncHandlers())
	}

	guard := telegram.NewClientGuard(cfg.Telegram.Token, log, handlers.RegisterAllCommands(hDeps), botOpts...)
	if cfg.Telegram.Mode == config.ModeWebhook {
		webhook = telegram.NewWebhookServer(guard, telegram.WebhookOptions{
			Path:        cfg.Telegram.Webhook.Path,
			SecretToken: cfg.Telegram.Webhook.SecretToken,
		}, log)
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
		Notify: telegram.Notifier(guard),
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), cfg.Location())
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, guard, webhook, pipe, sched)

	log.Info("Starting bot...", "statuses", vocab.Keywords(), "roster_size", len(cfg.Roster), "remote_sheet", sink.RemoteEnabled())
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

// openWorksheet resolves the remote worksheet once. Any failure leaves the
// bot running with the remote sheet disabled.
func openWorksheet(ctx context.Context, cfg config.SheetsConfig, log *slog.Logger) *sheets.Worksheet {
	if !cfg.Enabled {
		log.Info("Remote sheet disabled by configuration")
		return nil
	}

	setupCtx, cancel := context.WithTimeout(ctx, sheetsSetupTimeout)
	defer cancel()

	client, err := sheets.NewClient(setupCtx, sheets.Options{
		CredentialsJSON: cfg.CredentialsJSON,
		CredentialsFile: cfg.CredentialsFile,
	}, log)
	if err != nil {
		log.Error("Failed to create Google Sheets client, remote sheet disabled", "error", err)
		return nil
	}

	spreadsheetID := cfg.SpreadsheetID
	if spreadsheetID == "" {
		spreadsheetID, err = client.SpreadsheetID(setupCtx, cfg.SpreadsheetName)
		if err != nil {
			log.Error("Failed to find spreadsheet, remote sheet disabled", "name", cfg.SpreadsheetName, "error", err)
			return nil
		}
	}

	res := client.FindOrCreate(setupCtx, spreadsheetID, cfg.WorksheetName, status.Header)
	if res.Outcome == sheets.Failed {
		log.Error("Failed to open worksheet, remote sheet disabled", "worksheet", cfg.WorksheetName, "error", res.Err)
		return nil
	}
	log.Info("Remote worksheet ready", "worksheet", res.Worksheet.Title(), "outcome", res.Outcome.String())
	return res.Worksheet
}
