// Package pipeline implements status ingestion: recognizing a status in an
// incoming message, persisting it to the local store and the remote sheet,
// and acknowledging it to the sender.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/edgard/statusbot/internal/status"
)

// DefaultReplyTemplate is the acknowledgment text; %s is the matched status.
const DefaultReplyTemplate = "✅ Status '%s' saved."

// Event is an incoming message as seen by the pipeline.
// An empty Text means the message carried no text payload.
type Event struct {
	ChatID    int64
	MessageID int
	SenderID  int64
	Username  string
	FirstName string
	LastName  string
	Text      string
}

// Replier sends the acknowledgment back to the originating conversation.
type Replier interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error
}

// Outcome summarizes what OnMessage did with an event.
type Outcome struct {
	Record    status.Record
	Matched   bool
	LocalID   int64
	LocalErr  error
	ReplyErr  error
	Responded bool
}

// Options configures a Pipeline.
type Options struct {
	Location      *time.Location
	ReplyTemplate string
	Logger        *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Pipeline turns events into status records. It is safe for concurrent use;
// its only mutable state is the count of events in flight.
type Pipeline struct {
	vocab    *status.Vocabulary
	resolver *status.Resolver
	sink     *DualSink
	loc      *time.Location
	reply    string
	now      func() time.Time
	log      *slog.Logger

	mu       sync.Mutex
	inflight int
	idle     chan struct{}
}

// New creates a pipeline.
func New(vocab *status.Vocabulary, resolver *status.Resolver, sink *DualSink, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ReplyTemplate == "" {
		opts.ReplyTemplate = DefaultReplyTemplate
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		vocab:    vocab,
		resolver: resolver,
		sink:     sink,
		loc:      opts.Location,
		reply:    opts.ReplyTemplate,
		now:      opts.Now,
		log:      logger.With("component", "pipeline"),
	}
}

// OnMessage processes one event: resolve the sender, extract a status, write
// it locally, schedule the remote write, then acknowledge. Nothing is returned
// to the caller as an error; failures are logged and reported in the Outcome.
// Once started, processing is not interrupted by cancellation of ctx.
func (p *Pipeline) OnMessage(ctx context.Context, ev Event, replier Replier) Outcome {
	p.begin()
	defer p.end()

	ctx = context.WithoutCancel(ctx)
	var out Outcome

	if ev.Text == "" {
		return out
	}

	sender := status.Sender{
		ID:        ev.SenderID,
		Username:  ev.Username,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
	}
	name := p.resolver.Resolve(sender)
	log := p.log.With("chat_id", ev.ChatID, "sender_id", ev.SenderID, "display_name", name)

	st, ok := p.vocab.Extract(ev.Text)
	if !ok {
		log.DebugContext(ctx, "No status keyword in message")
		return out
	}
	out.Matched = true

	rec := status.NewRecord(sender, name, st, p.now(), p.loc)
	out.Record = rec
	log.InfoContext(ctx, "Status recognized", "status", st, "timestamp", rec.Timestamp)

	id, err := p.sink.WriteLocal(ctx, rec)
	if err != nil {
		out.LocalErr = err
		log.ErrorContext(ctx, "Failed to save status locally", "status", st, "error", err)
	} else {
		out.LocalID = id
		log.DebugContext(ctx, "Status saved locally", "status_id", id)
	}

	p.sink.WriteRemote(rec)

	if err := replier.Reply(ctx, ev.ChatID, ev.MessageID, p.ReplyText(st)); err != nil {
		out.ReplyErr = err
		log.ErrorContext(ctx, "Failed to send status acknowledgment", "status", st, "error", err)
		return out
	}
	out.Responded = true
	return out
}

// ReplyText renders the acknowledgment for st. Only the first %s is
// substituted; any other % in the template is kept literally.
func (p *Pipeline) ReplyText(st string) string {
	return strings.Replace(p.reply, "%s", st, 1)
}

// Close waits for events already inside OnMessage to finish, then drains the
// sink's pending remote writes. Both waits end when ctx is done.
func (p *Pipeline) Close(ctx context.Context) error {
	if err := p.wait(ctx); err != nil {
		return fmt.Errorf("waiting for in-flight statuses: %w", err)
	}
	return p.sink.Close(ctx)
}

// InFlight returns the number of events currently being processed.
func (p *Pipeline) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight
}

func (p *Pipeline) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == 0 {
		p.idle = make(chan struct{})
	}
	p.inflight++
}

func (p *Pipeline) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

func (p *Pipeline) wait(ctx context.Context) error {
	p.mu.Lock()
	if p.inflight == 0 {
		p.mu.Unlock()
		return nil
	}
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Keywords returns the recognized statuses in declaration order.
func (p *Pipeline) Keywords() []string {
	return p.vocab.Keywords()
}

// Location returns the fixed timezone records are stamped in.
func (p *Pipeline) Location() *time.Location {
	return p.loc
}
