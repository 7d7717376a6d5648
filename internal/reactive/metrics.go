package reactive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing, so call sites never check.
type Metrics struct {
	mutations      *prometheus.CounterVec
	canceled       *prometheus.CounterVec
	enqueued       prometheus.Counter
	flushes        prometheus.Counter
	delivered      prometheus.Counter
	observerPanics *prometheus.CounterVec
	pending        prometheus.Gauge
	flushDuration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rstate_mutations_total",
			Help: "Applied writes, deletes and bulk list operations",
		}, []string{"op"}),
		canceled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rstate_mutations_canceled_total",
			Help: "Mutations canceled by a change observer",
		}, []string{"op"}),
		enqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "rstate_notify_enqueued_total",
			Help: "Paths added to the notify queue (after deduplication)",
		}),
		flushes: f.NewCounter(prometheus.CounterOpts{
			Name: "rstate_flushes_total",
			Help: "Non-empty notify batches drained",
		}),
		delivered: f.NewCounter(prometheus.CounterOpts{
			Name: "rstate_notify_delivered_total",
			Help: "Notify observer invocations",
		}),
		observerPanics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rstate_observer_panics_total",
			Help: "Observer callbacks that panicked",
		}, []string{"kind"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "rstate_notify_pending",
			Help: "Paths waiting for the next flush",
		}),
		flushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rstate_flush_duration_seconds",
			Help:    "Time spent delivering one notify batch",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}),
	}
}

func (m *Metrics) mutation(op Op) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op.String()).Inc()
}

func (m *Metrics) cancel(op Op) {
	if m == nil {
		return
	}
	m.canceled.WithLabelValues(op.String()).Inc()
}

func (m *Metrics) enqueue(added, pending int) {
	if m == nil {
		return
	}
	m.enqueued.Add(float64(added))
	m.pending.Set(float64(pending))
}

func (m *Metrics) flush(seconds float64) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.flushDuration.Observe(seconds)
}

func (m *Metrics) drained() {
	if m == nil {
		return
	}
	m.pending.Set(0)
}

func (m *Metrics) deliver() {
	if m == nil {
		return
	}
	m.delivered.Inc()
}

func (m *Metrics) panicked(kind ObserverKind) {
	if m == nil {
		return
	}
	m.observerPanics.WithLabelValues(kind.String()).Inc()
}
