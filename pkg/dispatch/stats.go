package dispatch

import "sync/atomic"

// Stats is the aggregate or per-executor counters exposed by spec §4.10:
// {submitted, executed, rejected, queueSize, active, maxTps, currentTps}.
type Stats struct {
	Submitted  int64
	Executed   int64
	Rejected   int64
	QueueSize  int64
	Active     int64
	MaxTPS     int64
	CurrentTPS int64
}

// counters holds the mutable tallies backing Stats for one executor or for
// the pool as a whole.
type counters struct {
	submitted int64
	executed  int64
	rejected  int64
	active    int64
}

func (c *counters) incSubmitted() { atomic.AddInt64(&c.submitted, 1) }
func (c *counters) incExecuted()  { atomic.AddInt64(&c.executed, 1) }
func (c *counters) incRejected()  { atomic.AddInt64(&c.rejected, 1) }
func (c *counters) incActive()    { atomic.AddInt64(&c.active, 1) }
func (c *counters) decActive()    { atomic.AddInt64(&c.active, -1) }

func (c *counters) snapshot() (submitted, executed, rejected, active int64) {
	return atomic.LoadInt64(&c.submitted),
		atomic.LoadInt64(&c.executed),
		atomic.LoadInt64(&c.rejected),
		atomic.LoadInt64(&c.active)
}
