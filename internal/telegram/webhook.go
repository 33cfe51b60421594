package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot/models"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes    = 1 << 20
	shutdownTimeout   = 10 * time.Second
)

// WebhookOptions configures the webhook endpoint.
type WebhookOptions struct {
	Path        string
	SecretToken string
}

// WebhookServer receives updates pushed by Telegram. The client is created on
// the first update; if that fails the endpoint answers 500 so Telegram retries.
type WebhookServer struct {
	guard  *ClientGuard
	secret string
	mux    *http.ServeMux
	log    *slog.Logger
}

// NewWebhookServer builds the HTTP handler for the webhook and health routes.
func NewWebhookServer(guard *ClientGuard, opts WebhookOptions, logger *slog.Logger) *WebhookServer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Path == "" {
		opts.Path = "/webhook"
	}

	s := &WebhookServer{
		guard:  guard,
		secret: opts.SecretToken,
		mux:    http.NewServeMux(),
		log:    logger.With("component", "webhook"),
	}
	s.mux.HandleFunc(opts.Path, s.handleWebhook)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *WebhookServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *WebhookServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Webhook server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server stopped: %w", err)
	}
	s.log.Info("Webhook server stopped")
	return nil
}

func (s *WebhookServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretTokenHeader)), []byte(s.secret)) != 1 {
		s.log.WarnContext(r.Context(), "Webhook request with invalid secret token", "remote_addr", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var update models.Update
	if err := json.Unmarshal(body, &update); err != nil || len(body) == 0 {
		s.log.WarnContext(r.Context(), "Webhook request with invalid JSON", "error", err)
		http.Error(w, "bad request: invalid JSON", http.StatusBadRequest)
		return
	}

	b, err := s.guard.Get(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Cannot process update, Telegram client unavailable", "update_id", update.ID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	b.ProcessUpdate(r.Context(), &update)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (s *WebhookServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"client": s.guard.State().String(),
	})
}
