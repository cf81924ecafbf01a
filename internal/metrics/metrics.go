package metrics

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the tracking server's Prometheus metrics behind a
// private registry.
type Collector struct {
	reg *prometheus.Registry

	SamplesIngested prometheus.Counter
	SamplesRejected *prometheus.CounterVec // reason label: invalid|dependency
	EventsEmitted   *prometheus.CounterVec // type label

	SessionsActive  prometheus.Gauge
	MessagesSent    prometheus.Counter
	MessagesDropped prometheus.Counter

	IngestDuration prometheus.Histogram
}

// NewCollector builds and registers the metric set.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		SamplesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracking_samples_ingested_total",
			Help: "Total position samples accepted by the pipeline.",
		}),
		SamplesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracking_samples_rejected_total",
			Help: "Total position samples rejected, by reason.",
		}, []string{"reason"}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracking_events_emitted_total",
			Help: "Total domain events emitted, by type.",
		}, []string{"type"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracking_sessions_active",
			Help: "Number of live broadcast sessions.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracking_broadcast_messages_total",
			Help: "Total messages enqueued for broadcast delivery.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracking_broadcast_dropped_total",
			Help: "Total messages dropped from full session queues.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracking_ingest_duration_seconds",
			Help:    "Duration of full sample ingestion.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	reg.MustRegister(
		c.SamplesIngested, c.SamplesRejected, c.EventsEmitted,
		c.SessionsActive, c.MessagesSent, c.MessagesDropped,
		c.IngestDuration,
	)
	return c
}

// Hub delivery counters, satisfying broadcast.Metrics.

func (c *Collector) SessionOpened()    { c.SessionsActive.Inc() }
func (c *Collector) SessionClosed()    { c.SessionsActive.Dec() }
func (c *Collector) MessageDelivered() { c.MessagesSent.Inc() }
func (c *Collector) MessageDropped()   { c.MessagesDropped.Inc() }

// ObserveIngest records one ingestion attempt.
func (c *Collector) ObserveIngest(d time.Duration, err error, reason string) {
	c.IngestDuration.Observe(d.Seconds())
	if err == nil {
		c.SamplesIngested.Inc()
		return
	}
	c.SamplesRejected.WithLabelValues(reason).Inc()
}

// CountEvent bumps the per-type event counter.
func (c *Collector) CountEvent(eventType string) {
	c.EventsEmitted.WithLabelValues(eventType).Inc()
}

// Handler exposes the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts a metrics server on addr. Blocks; intended for a goroutine.
func (c *Collector) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	log.WithField("addr", addr).Info("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}
