// Package workpool bounds pipeline concurrency and absorbs fire-and-forget
// persistence tasks behind a buffered queue.
package workpool

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
)

// taskTimeout caps one background task; persistence touches Redis, Postgres
// and Kafka, each with its own shorter timeout.
const taskTimeout = 30 * time.Second

// Pool couples a concurrency semaphore for foreground pipeline runs with a
// single background drainer for fire-and-forget work. Background tasks run
// on a fresh context, not the request context, so they survive the response
// being written.
type Pool struct {
	sem    chan struct{}
	tasks  chan func(context.Context)
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Pool with the given foreground width and background queue
// capacity and starts the drainer.
func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	base, cancel := context.WithCancel(context.Background())
	p := &Pool{
		sem:    make(chan struct{}, workers),
		tasks:  make(chan func(context.Context), queueSize),
		base:   base,
		cancel: cancel,
	}
	p.wg.Add(1)
	go p.drain()
	return p
}

// Do runs fn once a foreground slot frees up, on the caller's goroutine and
// context. It returns the context error when the caller gives up waiting or
// the pool is closed.
func (p *Pool) Do(ctx context.Context, fn func(context.Context)) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.base.Done():
		return p.base.Err()
	}
	observability.WorkpoolBusy.Inc()
	defer func() {
		observability.WorkpoolBusy.Dec()
		<-p.sem
	}()
	fn(ctx)
	return nil
}

// TrySubmit enqueues fn for the background drainer. A full queue drops the
// task and returns false instead of blocking the caller.
func (p *Pool) TrySubmit(fn func(context.Context)) bool {
	select {
	case p.tasks <- fn:
		return true
	default:
		observability.WorkpoolDroppedTotal.Inc()
		slog.Warn("workpool queue full, task dropped")
		return false
	}
}

// Close stops the drainer after flushing queued tasks.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) drain() {
	defer p.wg.Done()
	for {
		select {
		case fn := <-p.tasks:
			p.runTask(fn)
		case <-p.base.Done():
			for {
				select {
				case fn := <-p.tasks:
					p.runTask(fn)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) runTask(fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workpool task panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()
	fn(ctx)
}
