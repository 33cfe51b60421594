// Package resilience protects calls to flaky remote services with retries and
// a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without calling the service while the breaker is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Config tunes retries and the breaker. Zero values select defaults.
type Config struct {
	Name string
	// Attempts is the total number of tries per call, including the first.
	Attempts   uint
	RetryDelay time.Duration
	// MaxFailures consecutive failed calls open the breaker for Cooldown.
	MaxFailures uint32
	Cooldown    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "remote"
	}
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = time.Minute
	}
	return c
}

// Breaker runs operations with bounded retries behind a circuit breaker. One
// Execute call counts as a single success or failure for the breaker no
// matter how many retries it took.
type Breaker struct {
	cfg Config
	cb  *gobreaker.CircuitBreaker
	log *slog.Logger
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg Config, logger *slog.Logger) *Breaker {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "breaker", "name", cfg.Name)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Breaker{cfg: cfg, cb: gobreaker.NewCircuitBreaker(settings), log: log}
}

// Execute calls op, retrying with exponential backoff until it succeeds, the
// attempts run out, or ctx ends.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, retry.Do(
			func() error { return op(ctx) },
			retry.Context(ctx),
			retry.Attempts(b.cfg.Attempts),
			retry.Delay(b.cfg.RetryDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}),
			retry.OnRetry(func(n uint, err error) {
				b.log.DebugContext(ctx, "Remote call failed, retrying", "attempt", n+1, "error", err)
			}),
		)
	})
	return err
}

// State returns the breaker state name: "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// RowAppender is the remote call being protected.
type RowAppender interface {
	AppendRow(ctx context.Context, row []string) error
}

// Appender wraps a RowAppender with a Breaker.
type Appender struct {
	next    RowAppender
	breaker *Breaker
}

// NewAppender protects next with breaker.
func NewAppender(next RowAppender, breaker *Breaker) *Appender {
	return &Appender{next: next, breaker: breaker}
}

// AppendRow appends row through the breaker.
func (a *Appender) AppendRow(ctx context.Context, row []string) error {
	return a.breaker.Execute(ctx, func(ctx context.Context) error {
		return a.next.AppendRow(ctx, row)
	})
}
