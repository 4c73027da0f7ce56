package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	alertsTotal  *prometheus.CounterVec
	tickDuration prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_fetches_total",
				Help: "Total number of upstream API requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last recorded USD price for an instrument",
			},
			[]string{"instrument"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_alerts_total",
				Help: "Total number of anomaly alerts by kind and window",
			},
			[]string{"kind", "window"},
		),
		tickDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketpulse_tick_duration_seconds",
				Help:    "Duration of pipeline ticks in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordFetch records one upstream request outcome.
func (r *Recorder) RecordFetch(endpoint, result string) {
	r.fetchesTotal.WithLabelValues(endpoint, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an instrument.
func (r *Recorder) RecordLastPrice(instrument string, price float64) {
	r.lastPrice.WithLabelValues(instrument).Set(price)
}

// RecordAlert records an emitted anomaly alert.
func (r *Recorder) RecordAlert(kind, window string) {
	r.alertsTotal.WithLabelValues(kind, window).Inc()
}

// RecordTickDuration records one pipeline tick duration in seconds.
func (r *Recorder) RecordTickDuration(seconds float64) {
	r.tickDuration.Observe(seconds)
}
