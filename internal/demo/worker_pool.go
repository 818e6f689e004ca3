// Package demo provides a trivial in-process execution substrate used by
// the demo command and the integration tests: a bounded-concurrency
// goroutine pool implementing backlog.Dispatcher, grounded on the
// teacher's pkg/pool.ConnectionPool lifecycle shape (ctx/cancel/wg plus a
// buffered channel used as a semaphore) but repurposed here to bound
// concurrent task execution instead of pooling net.Conn values.
package demo

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// WorkerPool runs dispatched functions on their own goroutine, bounded to
// at most Concurrency simultaneously in flight. It is the default
// execution substrate wired behind pkg/dispatch.Pool by the serve command.
type WorkerPool struct {
	log zerolog.Logger

	sem chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running int
}

// NewWorkerPool builds a pool that admits at most concurrency tasks at
// once. A concurrency of 0 or less is treated as 1.
func NewWorkerPool(concurrency int, log zerolog.Logger) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		log:    log,
		sem:    make(chan struct{}, concurrency),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Dispatch implements backlog.Dispatcher. It blocks the caller only long
// enough to acquire a slot or observe shutdown; the task itself always
// runs on its own goroutine.
func (p *WorkerPool) Dispatch(fn func()) {
	if p.ctx.Err() != nil {
		p.log.Warn().Msg("worker pool: dispatch dropped, pool is shutting down")
		return
	}
	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		p.log.Warn().Msg("worker pool: dispatch dropped, pool is shutting down")
		return
	}

	p.wg.Add(1)
	p.trackStart()

	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		defer p.trackDone()
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().Interface("panic", r).Msg("worker pool: recovered from panicking task")
			}
		}()
		fn()
	}()
}

// Stop refuses further dispatches, then blocks until every in-flight task
// has returned.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Running reports the number of tasks currently executing.
func (p *WorkerPool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *WorkerPool) trackStart() {
	p.mu.Lock()
	p.running++
	p.mu.Unlock()
}

func (p *WorkerPool) trackDone() {
	p.mu.Lock()
	p.running--
	p.mu.Unlock()
}
