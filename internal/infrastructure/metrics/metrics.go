package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for undelivered recalculation requests.
const (
	DropNoSubscribers = "no_subscribers"
	DropBufferFull    = "buffer_full"
)

// Metrics holds all Prometheus metrics.
//
// Methods are safe to call on a nil *Metrics so components can run without
// instrumentation in tests.
type Metrics struct {
	// Activity metrics
	ActivityMutations *prometheus.CounterVec
	MutationDuration  *prometheus.HistogramVec
	ImportRows        prometheus.Histogram

	// Recalculation metrics
	RecalculationsDispatched prometheus.Counter
	RecalculationsDelivered  prometheus.Counter
	RecalculationsDropped    *prometheus.CounterVec
	RecalculationSymbols     prometheus.Histogram
	RecalculationSubscribers prometheus.Gauge

	// Relay metrics
	RelayPublished *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActivityMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_activity_mutations_total",
				Help: "Total activity mutations by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		MutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_activity_mutation_duration_seconds",
				Help:    "Duration of activity mutations including store writes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ImportRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "folio_import_rows",
			Help:    "Rows per activity import",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 50000},
		}),

		RecalculationsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_recalculations_dispatched_total",
			Help: "Total recalculation requests handed to the broadcaster",
		}),
		RecalculationsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_recalculations_delivered_total",
			Help: "Total recalculation requests delivered to a subscriber",
		}),
		RecalculationsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_recalculations_dropped_total",
				Help: "Total recalculation deliveries dropped by reason",
			},
			[]string{"reason"},
		),
		RecalculationSymbols: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "folio_recalculation_symbols",
			Help:    "Symbols named per recalculation request",
			Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 500},
		}),
		RecalculationSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "folio_recalculation_subscribers",
			Help: "Current number of recalculation subscribers",
		}),

		RelayPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_relay_published_total",
				Help: "Total recalculation requests forwarded by the relay",
			},
			[]string{"publisher", "status"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}

// ObserveMutation records the outcome of one activity mutation.
func (m *Metrics) ObserveMutation(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ActivityMutations.WithLabelValues(operation, status(err)).Inc()
	m.MutationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveImport records the size of an import batch.
func (m *Metrics) ObserveImport(rows int) {
	if m == nil {
		return
	}
	m.ImportRows.Observe(float64(rows))
}

// RecalculationDispatched records a request entering the broadcaster.
func (m *Metrics) RecalculationDispatched(symbols int) {
	if m == nil {
		return
	}
	m.RecalculationsDispatched.Inc()
	m.RecalculationSymbols.Observe(float64(symbols))
}

// RecalculationDelivered records one successful subscriber delivery.
func (m *Metrics) RecalculationDelivered() {
	if m == nil {
		return
	}
	m.RecalculationsDelivered.Inc()
}

// RecalculationDropped records an undelivered request.
func (m *Metrics) RecalculationDropped(reason string) {
	if m == nil {
		return
	}
	m.RecalculationsDropped.WithLabelValues(reason).Inc()
}

// SetSubscribers records the current subscriber count.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.RecalculationSubscribers.Set(float64(n))
}

// RelayPublish records a relay forward attempt.
func (m *Metrics) RelayPublish(publisher string, err error) {
	if m == nil {
		return
	}
	m.RelayPublished.WithLabelValues(publisher, status(err)).Inc()
}

// RateLimited records a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitHits.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
