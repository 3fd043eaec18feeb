package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("worker pool is closed")

// Job is one unit of queued work.
type Job func(ctx context.Context)

// Scheduler is what the service needs from a pool.
type Scheduler interface {
	Submit(job Job) error
	SubmitAfter(d time.Duration, job Job) error
}

// Pool runs jobs on a fixed number of workers over an unbounded FIFO.
// Submit never blocks, so a running job may enqueue more jobs.
type Pool struct {
	workers int
	log     *slog.Logger

	mu      sync.Mutex
	ready   *sync.Cond // queue non-empty or closed
	idle    *sync.Cond // pending dropped to zero
	queue   []Job
	pending int // queued + running + delayed
	running int
	closed  bool

	cancel context.CancelFunc
	g      *errgroup.Group
}

func NewPool(workers int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{workers: workers, log: log}
	p.ready = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Start launches the workers. Jobs receive a context derived from ctx
// that is cancelled when Shutdown gives up waiting.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	p.mu.Lock()
	p.cancel, p.g = cancel, g
	p.mu.Unlock()
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.work(gctx)
			return nil
		})
	}
	go func() {
		<-gctx.Done()
		p.close()
	}()
}

func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.pending++
	p.queue = append(p.queue, job)
	p.ready.Signal()
	return nil
}

// SubmitAfter enqueues job once d has elapsed. The delay does not hold a
// worker, and Wait covers delayed jobs.
func (p *Pool) SubmitAfter(d time.Duration, job Job) error {
	if d <= 0 {
		return p.Submit(job)
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.pending++
	p.mu.Unlock()

	time.AfterFunc(d, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			p.done()
			return
		}
		p.queue = append(p.queue, job)
		p.ready.Signal()
	})
	return nil
}

// Wait blocks until no job is queued, running or delayed.
func (p *Pool) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending > 0 {
		p.idle.Wait()
	}
}

// Stats returns queued and running job counts.
func (p *Pool) Stats() (queued, running int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue), p.running
}

// Shutdown stops accepting jobs, lets workers drain the queue and waits
// for them. When ctx expires first the job context is cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.close()
	p.mu.Lock()
	g, cancel := p.g, p.cancel
	p.mu.Unlock()
	if g == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		cancel()
		return err
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

func (p *Pool) close() {
	p.mu.Lock()
	p.closed = true
	p.ready.Broadcast()
	p.mu.Unlock()
}

// done must be called with mu held.
func (p *Pool) done() {
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
}

func (p *Pool) work(ctx context.Context) {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.ready.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.running++
		p.mu.Unlock()

		p.run(ctx, job)

		p.mu.Lock()
		p.running--
		p.done()
		p.mu.Unlock()
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("job panicked", "panic", r)
		}
	}()
	job(ctx)
}
