// Package observability exposes the dispatch façade's stats tuple as
// Prometheus collectors, mirroring the shape of the teacher's
// MetricsRegistry (CounterVec/GaugeVec per subsystem) but scoped to the
// three counters and four gauges spec §4.10 names.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/khryptorgraphics/taskgate/pkg/dispatch"
	"github.com/khryptorgraphics/taskgate/pkg/executor"
)

// StatsSource is the subset of dispatch.Pool this collector needs: pulled
// on every Prometheus scrape rather than pushed, so the collector never
// drifts from the façade's live counters.
type StatsSource interface {
	Stats() dispatch.Stats
	ExecutorStats(execID string) (dispatch.Stats, bool)
}

// Collector implements prometheus.Collector over one dispatch.Pool's
// aggregate and per-executor stats.
type Collector struct {
	pool      StatsSource
	executors []string

	submitted  *prometheus.Desc
	executed   *prometheus.Desc
	rejected   *prometheus.Desc
	queueSize  *prometheus.Desc
	active     *prometheus.Desc
	maxTPS     *prometheus.Desc
	currentTPS *prometheus.Desc
}

// NewCollector builds a Collector reporting pool-wide totals under the
// label executor="__all__" and one row per leaf executor of hierarchy.
func NewCollector(namespace string, pool StatsSource, hierarchy *executor.Hierarchy) *Collector {
	if namespace == "" {
		namespace = "taskgate"
	}
	labels := []string{"executor"}
	return &Collector{
		pool:      pool,
		executors: hierarchy.LeafIDs(),
		submitted: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "submitted_total"),
			"Total tasks submitted.", labels, nil),
		executed: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "executed_total"),
			"Total tasks dispatched to the execution substrate.", labels, nil),
		rejected: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "rejected_total"),
			"Total tasks rejected at submission.", labels, nil),
		queueSize: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "queue_size"),
			"Current backlog size.", labels, nil),
		active: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "active"),
			"Current number of dispatched-but-not-completed tasks.", labels, nil),
		maxTPS: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "max_tps"),
			"Configured TPS budget (0 = unbounded).", labels, nil),
		currentTPS: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "current_tps"),
			"Current live distinct-identifier count in the sliding window.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submitted
	ch <- c.executed
	ch <- c.rejected
	ch <- c.queueSize
	ch <- c.active
	ch <- c.maxTPS
	ch <- c.currentTPS
}

// Collect implements prometheus.Collector, pulling fresh values from the
// pool on every scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.emit(ch, "__all__", c.pool.Stats())
	for _, execID := range c.executors {
		if s, ok := c.pool.ExecutorStats(execID); ok {
			c.emit(ch, execID, s)
		}
	}
}

func (c *Collector) emit(ch chan<- prometheus.Metric, label string, s dispatch.Stats) {
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.Submitted), label)
	ch <- prometheus.MustNewConstMetric(c.executed, prometheus.CounterValue, float64(s.Executed), label)
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Rejected), label)
	ch <- prometheus.MustNewConstMetric(c.queueSize, prometheus.GaugeValue, float64(s.QueueSize), label)
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.Active), label)
	ch <- prometheus.MustNewConstMetric(c.maxTPS, prometheus.GaugeValue, float64(s.MaxTPS), label)
	ch <- prometheus.MustNewConstMetric(c.currentTPS, prometheus.GaugeValue, float64(s.CurrentTPS), label)
}
