// Package dispatch implements the dispatch façade (spec §4.10): the
// composition root that wires the priority tree, executor hierarchy, TPS
// gate, and per-executor backlog into a single Submit/SubmitFunc surface.
package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/khryptorgraphics/taskgate/pkg/backlog"
	"github.com/khryptorgraphics/taskgate/pkg/executor"
	"github.com/khryptorgraphics/taskgate/pkg/prioritytree"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
	"github.com/khryptorgraphics/taskgate/pkg/tpsgate"
)

// Options configures a Pool at construction time.
type Options struct {
	Hierarchy  *executor.Hierarchy
	Matcher    Matcher
	Window     time.Duration // sliding-window size for TPS accounting; defaults to 1s
	Dispatcher backlog.Dispatcher
	Logger     zerolog.Logger
}

// Pool is the dispatch façade: the single entry point a caller submits
// work through.
type Pool struct {
	hierarchy  *executor.Hierarchy
	gate       *tpsgate.Gate
	dispatcher backlog.Dispatcher
	log        zerolog.Logger

	matcher atomic.Value // holds Matcher; swapped wholesale by Reload

	queues   map[string]*backlog.Queue
	drainers map[string]*backlog.Drainer

	global      counters
	perExecutor map[string]*counters
	statsMu     sync.RWMutex

	inFlight sync.WaitGroup

	shutdown    atomic.Bool
	shutdownNow atomic.Bool
	started     atomic.Bool
}

// NewPool builds a Pool from opts. The hierarchy and matcher must already
// be validated (executor.Build, condition/exprlang parsing); NewPool itself
// performs no configuration validation.
func NewPool(opts Options) *Pool {
	if opts.Window <= 0 {
		opts.Window = time.Second
	}

	p := &Pool{
		hierarchy:   opts.Hierarchy,
		gate:        tpsgate.New(opts.Hierarchy, opts.Window),
		dispatcher:  opts.Dispatcher,
		log:         opts.Logger,
		queues:      make(map[string]*backlog.Queue),
		drainers:    make(map[string]*backlog.Drainer),
		perExecutor: make(map[string]*counters),
	}
	p.matcher.Store(opts.Matcher)

	for id := range allExecutorSpecIDs(opts.Hierarchy) {
		p.queues[id] = backlog.NewQueue(opts.Hierarchy.QueueCapacity(id))
		p.perExecutor[id] = &counters{}
	}
	for id, q := range p.queues {
		p.drainers[id] = backlog.NewDrainer(id, q, p.gate, p.dispatcher, p.log)
	}
	return p
}

// allExecutorSpecIDs walks every leaf's chain to root so every known
// executor id gets a queue and counters, matching tpsgate's own enumeration.
func allExecutorSpecIDs(h *executor.Hierarchy) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, leaf := range h.LeafIDs() {
		chain, err := h.Chain(leaf)
		if err != nil {
			continue
		}
		for _, id := range chain {
			ids[id] = struct{}{}
		}
	}
	ids[h.RootID()] = struct{}{}
	return ids
}

// Start launches every executor's drainer. Submit works without calling
// Start (immediate admissions don't need a drainer), but deferred/backlogged
// tasks never run until the drainers are running.
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, d := range p.drainers {
		d.Start()
	}
}

func (p *Pool) matcherValue() Matcher {
	return p.matcher.Load().(Matcher)
}

// Reload atomically swaps the active priority-tree matcher. It does not
// affect the executor hierarchy or gate — those require a full restart,
// consistent with spec's config errors being fatal at construction.
func (p *Pool) Reload(m Matcher) {
	p.matcher.Store(m)
}

// Submit is the fire-and-forget variant: errors are surfaced only on
// rejection (spec §4.10).
func (p *Pool) Submit(ctx *taskcontext.Context, runnable func()) error {
	if ctx == nil {
		panic(ErrNilContext)
	}
	if runnable == nil {
		panic(ErrNilRunnable)
	}
	_, err := p.submit(ctx, runnable, nil)
	return err
}

// SubmitFunc is the callable variant: it returns a Future observing the
// callable's eventual result or error.
func (p *Pool) SubmitFunc(ctx *taskcontext.Context, fn func() (any, error)) (*Future, error) {
	if ctx == nil {
		panic(ErrNilContext)
	}
	if fn == nil {
		panic(ErrNilRunnable)
	}
	future := newFuture()
	wrapped := func() {
		result, err := fn()
		future.complete(result, err)
	}
	if _, err := p.submit(ctx, wrapped, future); err != nil {
		return nil, err
	}
	return future, nil
}

// submit implements the five-step submission algorithm of spec §4.10.
// future is nil for the fire-and-forget path; it exists only so a rejected
// SubmitFunc can fail its Future too instead of leaving it forever pending.
func (p *Pool) submit(ctx *taskcontext.Context, runnable func(), future *Future) (string, error) {
	if p.shutdown.Load() {
		return "", p.reject(ctx.TaskID, "", ReasonShutdown, future)
	}

	match, matched := p.matcherValue().Match(ctx)
	key := prioritytree.Compute(match, matched, ctx)

	execID := p.hierarchy.RootID()
	if matched && match.Executor != "" {
		execID = match.Executor
	}
	if !p.hierarchy.Exists(execID) {
		return "", p.reject(ctx.TaskID, execID, ReasonUnknownExecutor, future)
	}

	p.global.incSubmitted()
	p.execCounters(execID).incSubmitted()

	admitted, err := p.gate.TryAcquire(ctx, execID)
	if err != nil {
		return "", p.reject(ctx.TaskID, execID, ReasonUnknownExecutor, future)
	}
	if admitted {
		p.dispatchNow(execID, runnable)
		return execID, nil
	}

	entry := &backlog.Entry{
		Runnable:   runnable,
		TaskID:     ctx.TaskID,
		ExecutorID: execID,
		Key:        key,
		Context:    ctx,
	}
	if err := p.queues[execID].Enqueue(entry); err != nil {
		return "", p.reject(ctx.TaskID, execID, ReasonBacklogFull, future)
	}
	return execID, nil
}

func (p *Pool) reject(taskID, execID string, reason RejectReason, future *Future) error {
	p.global.incRejected()
	if execID != "" {
		p.execCounters(execID).incRejected()
	}
	err := &RejectedSubmission{Reason: reason}
	if future != nil {
		future.complete(nil, err)
	}
	return err
}

func (p *Pool) execCounters(execID string) *counters {
	p.statsMu.RLock()
	c, ok := p.perExecutor[execID]
	p.statsMu.RUnlock()
	if ok {
		return c
	}
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if c, ok := p.perExecutor[execID]; ok {
		return c
	}
	c = &counters{}
	p.perExecutor[execID] = c
	return c
}

// dispatchNow hands runnable to the execution substrate immediately,
// tracking active count and the executed tally around it.
func (p *Pool) dispatchNow(execID string, runnable func()) {
	p.global.incActive()
	p.execCounters(execID).incActive()
	p.inFlight.Add(1)

	p.dispatcher.Dispatch(func() {
		defer func() {
			p.global.decActive()
			p.execCounters(execID).decActive()
			p.global.incExecuted()
			p.execCounters(execID).incExecuted()
			p.inFlight.Done()
		}()
		runnable()
	})
}

// Shutdown refuses new submissions but lets in-flight and backlogged tasks
// drain to completion.
func (p *Pool) Shutdown() {
	p.shutdown.Store(true)
}

// ShutdownNow refuses new submissions and discards every currently
// backlogged task without running it. In-flight (already-dispatched) work
// is not interrupted here; that requires substrate-level cancellation
// support, which is outside this façade's scope.
func (p *Pool) ShutdownNow() {
	p.shutdown.Store(true)
	p.shutdownNow.Store(true)
	for _, q := range p.queues {
		for q.Pop() != nil {
		}
	}
	for _, d := range p.drainers {
		d.Stop()
	}
}

// AwaitTermination blocks until every dispatched runnable has completed or
// deadline elapses, returning true iff termination completed in time.
func (p *Pool) AwaitTermination(deadline time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(deadline):
		return false
	}
}

// IsShutdown reports whether Shutdown or ShutdownNow has been called.
func (p *Pool) IsShutdown() bool { return p.shutdown.Load() }

// IsTerminated reports whether shutdown has been requested and no work
// remains in flight.
func (p *Pool) IsTerminated() bool {
	if !p.shutdown.Load() {
		return false
	}
	_, _, _, active := p.global.snapshot()
	return active == 0 && p.GetQueueSize() == 0
}

// GetQueueSize returns the aggregate backlog size across every executor.
func (p *Pool) GetQueueSize() int64 {
	var total int64
	for _, q := range p.queues {
		total += int64(q.Size())
	}
	return total
}

// GetActiveCount returns the aggregate number of currently-dispatched
// runnables.
func (p *Pool) GetActiveCount() int64 {
	_, _, _, active := p.global.snapshot()
	return active
}

// Stats returns the aggregate stats tuple (spec §4.10).
func (p *Pool) Stats() Stats {
	submitted, executed, rejected, active := p.global.snapshot()
	return Stats{
		Submitted: submitted,
		Executed:  executed,
		Rejected:  rejected,
		QueueSize: p.GetQueueSize(),
		Active:    active,
	}
}

// ExecutorStats returns the per-executor stats tuple, including its TPS
// budget and current live-identifier count.
func (p *Pool) ExecutorStats(execID string) (Stats, bool) {
	if !p.hierarchy.Exists(execID) {
		return Stats{}, false
	}
	c := p.execCounters(execID)
	submitted, executed, rejected, active := c.snapshot()
	q := p.queues[execID]
	var queueSize int64
	if q != nil {
		queueSize = int64(q.Size())
	}
	return Stats{
		Submitted:  submitted,
		Executed:   executed,
		Rejected:   rejected,
		Active:     active,
		QueueSize:  queueSize,
		MaxTPS:     int64(p.hierarchy.TPS(execID)),
		CurrentTPS: p.gate.CurrentTPS(execID),
	}, true
}
