package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/statusbot/internal/bot/handlers"
	"github.com/edgard/statusbot/internal/bot/tasks"
	"github.com/edgard/statusbot/internal/config"
	"github.com/edgard/statusbot/internal/database"
	"github.com/edgard/statusbot/internal/pipeline"
	"github.com/edgard/statusbot/internal/status"
	"github.com/edgard/statusbot/internal/telegram"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopLog struct{}

func (nopLog) SaveStatus(context.Context, *database.StatusEntry) error { return nil }

func nopPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	vocab, err := status.NewVocabulary([]string{"в пути"})
	require.NoError(t, err)
	sink := pipeline.NewDualSink(nopLog{}, pipeline.SinkOptions{})
	return pipeline.New(vocab, status.NewResolver(nil), sink, pipeline.Options{})
}

func TestSchedulerSkipsMisconfiguredTasks(t *testing.T) {
	t.Parallel()

	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"disabled":   {Enabled: false, Schedule: "0 0 4 * * *"},
		"unknown":    {Enabled: true, Schedule: "0 0 4 * * *"},
		"no_cron":    {Enabled: true},
		"bad_cron":   {Enabled: true, Schedule: "not a cron"},
		"nightly_ok": {Enabled: true, Schedule: "0 0 4 * * *"},
	}}
	noop := func(context.Context) error { return nil }
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"disabled": noop, "no_cron": noop, "bad_cron": noop, "nightly_ok": noop,
	}

	s, err := NewScheduler(discardLogger(), cfg, taskMap, time.UTC)
	require.NoError(t, err)

	n, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Start(context.Background())
	require.ErrorIs(t, err, ErrSchedulerRunning)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestSchedulerRunsTask(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick": {Enabled: true, Schedule: "* * * * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error {
			runs.Add(1)
			return errors.New("logged, not fatal")
		},
	}

	s, err := NewScheduler(discardLogger(), cfg, taskMap, time.UTC)
	require.NoError(t, err)
	_, err = s.Start(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop())
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunWebhookModeStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Telegram.Mode = config.ModeWebhook
	cfg.Telegram.Webhook.ListenAddr = freeAddr(t)

	var inits atomic.Int32
	guard := telegram.NewGuard(func(context.Context) (*tgbot.Bot, error) {
		inits.Add(1)
		return nil, errors.New("unused")
	})
	server := telegram.NewWebhookServer(guard, telegram.WebhookOptions{}, discardLogger())

	sched, err := NewScheduler(discardLogger(), &cfg.Scheduler, nil, time.UTC)
	require.NoError(t, err)

	b := NewBot(discardLogger(), cfg, guard, server, nopPipeline(t), sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Zero(t, inits.Load(), "webhook mode creates the client lazily")
	assert.Equal(t, telegram.StateUninitialized, guard.State())
}

func TestRunPollingFailsWhenClientCannotInitialize(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Telegram.Mode = config.ModePolling

	guard := telegram.NewGuard(func(context.Context) (*tgbot.Bot, error) {
		return nil, errors.New("unauthorized")
	})
	sched, err := NewScheduler(discardLogger(), &cfg.Scheduler, nil, time.UTC)
	require.NoError(t, err)

	b := NewBot(discardLogger(), cfg, guard, nil, nopPipeline(t), sched)
	err = b.Run(context.Background())
	require.ErrorIs(t, err, telegram.ErrInitialization)
}

// slowLog signals when a write starts and then takes a while to finish.
type slowLog struct {
	started chan struct{}
	once    sync.Once
	delay   time.Duration
	saved   atomic.Int32
}

func (l *slowLog) SaveStatus(context.Context, *database.StatusEntry) error {
	l.once.Do(func() { close(l.started) })
	time.Sleep(l.delay)
	l.saved.Add(1)
	return nil
}

type countingSheet struct {
	rows atomic.Int32
}

func (s *countingSheet) AppendRow(context.Context, []string) error {
	s.rows.Add(1)
	return nil
}

// pollingAPI serves a single status update on the first getUpdates call.
func pollingAPI() *httptest.Server {
	var served atomic.Bool
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served.CompareAndSwap(false, true) {
				_, _ = io.WriteString(w, `{"ok":true,"result":[{"update_id":1,"message":{"message_id":5,"date":1744315507,`+
					`"chat":{"id":-100,"type":"group"},"from":{"id":42,"is_bot":false,"first_name":"Анна"},"text":"в пути"}}]}`)
				return
			}
			select {
			case <-r.Context().Done():
			case <-time.After(50 * time.Millisecond):
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":6,"date":0,"chat":{"id":-100,"type":"group"}}}`)
		default:
			_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
		}
	}))
}

func TestRunPollingDrainsInFlightStatusOnShutdown(t *testing.T) {
	t.Parallel()

	api := pollingAPI()
	defer api.Close()

	cfg := &config.Config{}
	cfg.Telegram.Mode = config.ModePolling
	cfg.Messages = config.DefaultMessages

	vocab, err := status.NewVocabulary(config.DefaultKeywords)
	require.NoError(t, err)
	local := &slowLog{started: make(chan struct{}), delay: 300 * time.Millisecond}
	remote := &countingSheet{}
	sink := pipeline.NewDualSink(local, pipeline.SinkOptions{Remote: remote, Pool: pipeline.NewPool(1, 8)})
	pipe := pipeline.New(vocab, status.NewResolver(nil), sink, pipeline.Options{})

	deps := handlers.HandlerDeps{Logger: discardLogger(), Config: cfg, Pipeline: pipe}
	guard := telegram.NewClientGuard("123:test", discardLogger(), handlers.RegisterAllCommands(deps),
		tgbot.WithServerURL(api.URL),
		tgbot.WithSkipGetMe(),
		tgbot.WithDefaultHandler(handlers.NewStatusHandler(deps)),
	)
	sched, err := NewScheduler(discardLogger(), &cfg.Scheduler, nil, time.UTC)
	require.NoError(t, err)

	b := NewBot(discardLogger(), cfg, guard, nil, pipe, sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case <-local.started:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("status update was never processed")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.EqualValues(t, 1, local.saved.Load())
	assert.EqualValues(t, 1, remote.rows.Load(), "remote row of the in-flight status must be written before Run returns")
	assert.Zero(t, pipe.InFlight())
}
