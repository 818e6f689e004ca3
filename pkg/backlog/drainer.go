package backlog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

// pollInterval bounds how long the drainer waits between checks of the
// heap head, so it stays responsive to shutdown (spec §5, §4.9).
const pollInterval = 100 * time.Millisecond

// backoffBase is the nominal re-admission backoff after a failed drain
// attempt (spec §4.9, "yields briefly (~10ms)").
const backoffBase = 10 * time.Millisecond

// Gate is the subset of the TPS gate a drainer needs: re-running admission
// for the executor it drains.
type Gate interface {
	TryAcquire(ctx *taskcontext.Context, execID string) (bool, error)
}

// Dispatcher is the injected execution substrate: the thread/goroutine
// primitive that actually invokes user code, deliberately out of this
// repository's core per spec §1.
type Dispatcher interface {
	Dispatch(fn func())
}

// Drainer is a long-running worker for one executor: it continuously tries
// to re-admit its queue's head-of-heap entry once the gate has capacity.
type Drainer struct {
	executorID string
	queue      *Queue
	gate       Gate
	dispatcher Dispatcher
	log        zerolog.Logger

	// backoffLimiter smooths repeated failed re-acquire attempts so many
	// contended executors' drainers don't all wake in lockstep every 10ms.
	backoffLimiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDrainer builds a Drainer for executorID, draining queue through gate
// and dispatching admitted work to dispatcher.
func NewDrainer(executorID string, queue *Queue, gate Gate, dispatcher Dispatcher, log zerolog.Logger) *Drainer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Drainer{
		executorID:     executorID,
		queue:          queue,
		gate:           gate,
		dispatcher:     dispatcher,
		log:            log.With().Str("executor", executorID).Logger(),
		backoffLimiter: rate.NewLimiter(rate.Every(backoffBase), 1),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start launches the drain loop in a background goroutine.
func (d *Drainer) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Stop signals the drain loop to exit and waits for it to do so.
func (d *Drainer) Stop() {
	d.cancel()
	d.wg.Wait()
}

func (d *Drainer) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.drainOnce()
		}
	}
}

// drainOnce pops the current head entry (if any), re-runs admission, and
// either dispatches it or re-inserts it and backs off briefly. Because the
// heap head is by construction the highest-priority queued task, this
// preserves priority order across the back-pressure boundary.
func (d *Drainer) drainOnce() {
	for {
		entry := d.queue.Pop()
		if entry == nil {
			return
		}

		admitted, err := d.gate.TryAcquire(entry.Context, d.executorID)
		if err != nil {
			d.log.Error().Err(err).Str("task", entry.TaskID).Msg("drainer: admission check failed")
			// Unrecoverable for this entry (e.g. unknown executor); drop it
			// rather than spin forever on a request that can never admit.
			return
		}
		if !admitted {
			if reErr := d.queue.Enqueue(entry); reErr != nil {
				d.log.Error().Err(reErr).Str("task", entry.TaskID).Msg("drainer: failed to re-enqueue after rejected re-acquire")
			}
			_ = d.backoffLimiter.Wait(d.ctx)
			return
		}

		d.dispatcher.Dispatch(entry.Runnable)
		// Keep draining while the gate still has room, instead of waiting
		// for the next poll tick, so a burst of freed capacity is consumed
		// promptly.
		if d.queue.IsEmpty() {
			return
		}
	}
}
