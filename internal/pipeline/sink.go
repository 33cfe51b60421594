package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/statusbot/internal/database"
	"github.com/edgard/statusbot/internal/status"
)

const (
	defaultLocalTimeout  = 5 * time.Second
	defaultRemoteTimeout = 30 * time.Second
)

// LocalLog is the durable, authoritative status store.
type LocalLog interface {
	SaveStatus(ctx context.Context, entry *database.StatusEntry) error
}

// RowAppender is the remote spreadsheet seen as an append-only row sink.
type RowAppender interface {
	AppendRow(ctx context.Context, row []string) error
}

// SinkOptions configures a DualSink.
type SinkOptions struct {
	// Remote may be nil when the worksheet could not be resolved at startup;
	// remote writes are then skipped.
	Remote        RowAppender
	Pool          *Pool
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration
	Logger        *slog.Logger
}

// DualSink writes every record to the local store and, independently and in
// the background, to the remote sheet. The two writes share no transaction and
// a failure of either is invisible to the other.
type DualSink struct {
	local         LocalLog
	remote        RowAppender
	pool          *Pool
	localTimeout  time.Duration
	remoteTimeout time.Duration
	log           *slog.Logger
}

// NewDualSink creates a sink over local and the optional remote appender.
func NewDualSink(local LocalLog, opts SinkOptions) *DualSink {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.LocalTimeout <= 0 {
		opts.LocalTimeout = defaultLocalTimeout
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}
	if opts.Remote != nil && opts.Pool == nil {
		opts.Pool = NewPool(1, 64)
	}
	return &DualSink{
		local:         local,
		remote:        opts.Remote,
		pool:          opts.Pool,
		localTimeout:  opts.LocalTimeout,
		remoteTimeout: opts.RemoteTimeout,
		log:           logger.With("component", "dual_sink"),
	}
}

// RemoteEnabled reports whether a remote worksheet is attached.
func (s *DualSink) RemoteEnabled() bool {
	return s.remote != nil
}

// WriteLocal inserts rec into the local store and returns its surrogate id.
// Any failure is wrapped with ErrLocalWrite.
func (s *DualSink) WriteLocal(ctx context.Context, rec status.Record) (int64, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.localTimeout)
	defer cancel()

	entry := database.NewStatusEntry(rec)
	if err := s.local.SaveStatus(dbCtx, entry); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	return entry.ID, nil
}

// WriteRemote schedules the append of rec to the remote sheet and returns
// immediately. Failures are logged and dropped.
func (s *DualSink) WriteRemote(rec status.Record) {
	if s.remote == nil {
		s.log.Debug("Remote sheet unavailable, skipping remote write", "sender_id", rec.SenderID, "status", rec.Status)
		return
	}

	row := rec.Row()
	err := s.pool.Submit(func(ctx context.Context) {
		appendCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		defer cancel()

		if err := s.remote.AppendRow(appendCtx, row); err != nil {
			s.logRemoteFailure(rec, fmt.Errorf("%w: %w", ErrRemoteWrite, err))
			return
		}
		s.log.Info("Status appended to remote sheet", "sender_id", rec.SenderID, "display_name", rec.DisplayName, "status", rec.Status)
	})
	if err != nil {
		s.logRemoteFailure(rec, fmt.Errorf("%w: %w", ErrRemoteWrite, err))
	}
}

func (s *DualSink) logRemoteFailure(rec status.Record, err error) {
	s.log.Error("Failed to append status to remote sheet",
		"sender_id", rec.SenderID, "status", rec.Status, "timestamp", rec.Timestamp, "error", err)
}

// Close waits for pending remote writes until ctx is done.
func (s *DualSink) Close(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Close(ctx)
}
