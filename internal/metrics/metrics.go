// Package metrics exposes catalog engine activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobmate/catalog-service/internal/model"
)

const namespace = "catalog"

// Collector implements catalog.Recorder.
type Collector struct {
	fallbackWrites *prometheus.CounterVec
	fallbackReads  *prometheus.CounterVec
	syncBatches    *prometheus.CounterVec
	syncRecords    prometheus.Counter
	deactivated    prometheus.Counter
	counters       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollector registers the catalog metrics on reg. A nil reg uses a
// fresh private registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		fallbackWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_writes_total",
			Help:      "Mutations served by the local cache because the remote store failed.",
		}, []string{"op"}),
		fallbackReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_reads_total",
			Help:      "Reads served from the local cache because the remote store failed.",
		}, []string{"op"}),
		syncBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_batches_total",
			Help:      "Sync batches by outcome.",
		}, []string{"outcome"}),
		syncRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_pushed_total",
			Help:      "Records pushed to the remote store by the synchronizer.",
		}),
		deactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_deactivated_total",
			Help:      "Records deactivated by the expiration sweeper.",
		}),
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_increments_total",
			Help:      "Engagement counter increments by counter.",
		}, []string{"counter"}),
		gatherer: reg,
	}
	reg.MustRegister(
		c.fallbackWrites,
		c.fallbackReads,
		c.syncBatches,
		c.syncRecords,
		c.deactivated,
		c.counters,
	)
	return c
}

func (c *Collector) FallbackWrite(op string) { c.fallbackWrites.WithLabelValues(op).Inc() }
func (c *Collector) FallbackRead(op string)  { c.fallbackReads.WithLabelValues(op).Inc() }

func (c *Collector) SyncBatch(committed bool, size int) {
	if !committed {
		c.syncBatches.WithLabelValues("failed").Inc()
		return
	}
	c.syncBatches.WithLabelValues("committed").Inc()
	c.syncRecords.Add(float64(size))
}

func (c *Collector) Deactivated(n int) {
	if n > 0 {
		c.deactivated.Add(float64(n))
	}
}

func (c *Collector) CounterIncremented(ct model.Counter) {
	c.counters.WithLabelValues(string(ct)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
