package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for planning traffic.
//
// Metrics:
//   - hss_decisions_total{mode,source} - planning cycles by resulting mode
//   - hss_errors_total{kind,source} - failed requests by error kind
//   - hss_plan_duration_seconds - time spent decoding, planning and journalling
//   - hss_journal_failures_total - decisions that could not be journalled
//   - hss_zones - zone count of the most recent request
//   - hss_serial_dropped_lines_total - inbound serial lines dropped on a full
//     subscriber, once WatchSerialDrops is called
type Metrics struct {
	DecisionsTotal  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	PlanDuration    prometheus.Histogram
	JournalFailures prometheus.Counter
	Zones           prometheus.Gauge

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on a fresh registry,
// so several instances (one per test) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hss_decisions_total",
				Help: "Total number of planning cycles by resulting mode",
			},
			[]string{"mode", "source"},
		),
		ErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hss_errors_total",
				Help: "Total number of failed planning requests by error kind",
			},
			[]string{"kind", "source"},
		),
		PlanDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hss_plan_duration_seconds",
				Help:    "Duration of request handling in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
			},
		),
		JournalFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hss_journal_failures_total",
				Help: "Total number of decisions that could not be journalled",
			},
		),
		Zones: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "hss_zones",
				Help: "Number of zones in the most recent planning request",
			},
		),
		registerer: reg,
		gatherer:   reg,
	}
}

// ObserveDecision records one successful planning cycle.
func (m *Metrics) ObserveDecision(mode, source string, zones int, elapsed time.Duration) {
	m.DecisionsTotal.WithLabelValues(mode, source).Inc()
	m.Zones.Set(float64(zones))
	m.PlanDuration.Observe(elapsed.Seconds())
}

// ObserveError records one failed request.
func (m *Metrics) ObserveError(kind, source string, elapsed time.Duration) {
	m.ErrorsTotal.WithLabelValues(kind, source).Inc()
	m.PlanDuration.Observe(elapsed.Seconds())
}

// WatchSerialDrops exports the serial link's dropped-line count, read from
// dropped at scrape time. Call it once per Metrics.
func (m *Metrics) WatchSerialDrops(dropped func() int64) {
	promauto.With(m.registerer).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "hss_serial_dropped_lines_total",
			Help: "Total number of inbound serial lines dropped because a subscriber was full",
		},
		func() float64 { return float64(dropped()) },
	)
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
