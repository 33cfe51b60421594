package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is a unit of background work. It receives the pool's context, which is
// never cancelled before the queue is drained.
type Job func(ctx context.Context)

// Pool runs submitted jobs on a fixed number of workers fed by a bounded queue.
// Submit never blocks.
type Pool struct {
	jobs chan Job
	g    *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines consuming a queue of queueSize jobs.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		jobs: make(chan Job, queueSize),
		g:    new(errgroup.Group),
	}
	for range workers {
		p.g.Go(func() error {
			for job := range p.jobs {
				job(context.Background())
			}
			return nil
		})
	}
	return p
}

// Submit enqueues job. It returns ErrPoolFull when the queue has no free slot
// and ErrPoolClosed after Close.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close stops accepting jobs and waits until queued jobs finish or ctx is done.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
