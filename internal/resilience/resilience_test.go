package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyAppender struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (f *flakyAppender) AppendRow(context.Context, []string) error {
	if f.calls.Add(1) <= f.failures {
		return f.err
	}
	return nil
}

func fastConfig() Config {
	return Config{Name: "test", Attempts: 3, RetryDelay: time.Millisecond, MaxFailures: 2, Cooldown: time.Hour}
}

func TestAppenderRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	inner := &flakyAppender{failures: 2, err: errors.New("503")}
	a := NewAppender(inner, NewBreaker(fastConfig(), nil))

	require.NoError(t, a.AppendRow(context.Background(), []string{"row"}))
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cause := errors.New("quota exceeded")
	inner := &flakyAppender{failures: 1000, err: cause}
	b := NewBreaker(fastConfig(), nil)
	a := NewAppender(inner, b)

	for range 2 {
		require.ErrorIs(t, a.AppendRow(context.Background(), nil), cause)
	}
	assert.Equal(t, "open", b.State())

	calls := inner.calls.Load()
	require.ErrorIs(t, a.AppendRow(context.Background(), nil), ErrCircuitOpen)
	assert.Equal(t, calls, inner.calls.Load(), "open breaker must not call the service")
}

func TestBreakerDoesNotRetryCancelledContext(t *testing.T) {
	t.Parallel()

	inner := &flakyAppender{failures: 1000, err: context.Canceled}
	a := NewAppender(inner, NewBreaker(fastConfig(), nil))

	require.ErrorIs(t, a.AppendRow(context.Background(), nil), context.Canceled)
	assert.EqualValues(t, 1, inner.calls.Load())
}
