package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/statusbot/internal/bot/handlers"
)

const updateJSON = `{"update_id":10,"message":{"message_id":3,"date":1744315507,"chat":{"id":-100,"type":"group"},"from":{"id":42,"is_bot":false,"first_name":"Анна"},"text":"в пути"}}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// offlineBot builds a client that never contacts Telegram and dispatches
// updates synchronously to handler.
func offlineBot(t *testing.T, handler bot.HandlerFunc) *bot.Bot {
	t.Helper()
	b, err := bot.New("123:test",
		bot.WithSkipGetMe(),
		bot.WithNotAsyncHandlers(),
		bot.WithDefaultHandler(handler),
	)
	require.NoError(t, err)
	return b
}

func post(t *testing.T, h http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDeliversUpdate(t *testing.T) {
	t.Parallel()

	var got atomic.Pointer[models.Update]
	guard := NewGuard(func(context.Context) (*bot.Bot, error) {
		return offlineBot(t, func(_ context.Context, _ *bot.Bot, u *models.Update) { got.Store(u) }), nil
	})
	srv := NewWebhookServer(guard, WebhookOptions{SecretToken: "s3cret"}, discardLogger())

	rec := post(t, srv, "/webhook", updateJSON, map[string]string{secretTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Load())
	assert.Equal(t, "в пути", got.Load().Message.Text)
	assert.Equal(t, StateReady, guard.State())
}

func TestWebhookRejections(t *testing.T) {
	t.Parallel()

	var inits atomic.Int32
	guard := NewGuard(func(context.Context) (*bot.Bot, error) {
		inits.Add(1)
		return offlineBot(t, func(context.Context, *bot.Bot, *models.Update) {}), nil
	})
	srv := NewWebhookServer(guard, WebhookOptions{Path: "/tg", SecretToken: "s3cret"}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/tg", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = post(t, srv, "/tg", updateJSON, map[string]string{secretTokenHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, srv, "/tg", updateJSON, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, srv, "/tg", "{not json", map[string]string{secretTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, srv, "/tg", "", map[string]string{secretTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, inits.Load(), "rejected requests must not create the client")
}

func TestWebhookInitializationFailureIs500(t *testing.T) {
	t.Parallel()

	var inits atomic.Int32
	guard := NewGuard(func(context.Context) (*bot.Bot, error) {
		inits.Add(1)
		return nil, errors.New("bad token")
	})
	srv := NewWebhookServer(guard, WebhookOptions{}, discardLogger())

	for range 3 {
		rec := post(t, srv, "/webhook", updateJSON, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	assert.EqualValues(t, 1, inits.Load())
	assert.Equal(t, StateFailed, guard.State())
}

func TestWebhookInitializationPanicIs500(t *testing.T) {
	t.Parallel()

	guard := NewGuard(func(context.Context) (*bot.Bot, error) { panic("boom") })
	srv := NewWebhookServer(guard, WebhookOptions{}, discardLogger())

	for range 2 {
		rec := post(t, srv, "/webhook", updateJSON, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	assert.Equal(t, StateFailed, guard.State())
}

func TestHealthReportsGuardState(t *testing.T) {
	t.Parallel()

	guard := NewGuard(func(context.Context) (*bot.Bot, error) { return nil, errors.New("x") })
	srv := NewWebhookServer(guard, WebhookOptions{}, discardLogger())

	health := func() map[string]string {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		return body
	}

	assert.Equal(t, "uninitialized", health()["client"])
	_, _ = guard.Get(context.Background())
	assert.Equal(t, "failed", health()["client"])
}

func TestClientGuardRegistersCommands(t *testing.T) {
	t.Parallel()

	var started, wrapped atomic.Bool
	registered := map[string]handlers.RegisteredHandler{
		"/start": {
			HandlerType: bot.HandlerTypeMessageText,
			Pattern:     "start",
			MatchType:   bot.MatchTypeCommandStartOnly,
			Handler:     func(context.Context, *bot.Bot, *models.Update) { started.Store(true) },
			Middleware: []bot.Middleware{func(next bot.HandlerFunc) bot.HandlerFunc {
				return func(ctx context.Context, b *bot.Bot, u *models.Update) {
					wrapped.Store(true)
					next(ctx, b, u)
				}
			}},
		},
	}
	guard := NewClientGuard("123:test", discardLogger(), registered, bot.WithSkipGetMe(), bot.WithNotAsyncHandlers())

	b, err := guard.Get(context.Background())
	require.NoError(t, err)

	b.ProcessUpdate(context.Background(), &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:       1,
			Chat:     models.Chat{ID: -100},
			From:     &models.User{ID: 42},
			Text:     "/start",
			Entities: []models.MessageEntity{{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: 6}},
		},
	})
	assert.True(t, started.Load())
	assert.True(t, wrapped.Load())
}

func TestNewClientGuardRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	_, err := NewClientGuard("", discardLogger(), nil).Get(context.Background())
	require.ErrorIs(t, err, ErrInitialization)
}
