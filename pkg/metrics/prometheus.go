package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scansTotal  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	winRate     *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	cacheTotal  *prometheus.CounterVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railscan_signals_total",
				Help: "Total number of analyses by resulting side",
			},
			[]string{"side"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railscan_errors_total",
				Help: "Total number of per-instrument analysis errors",
			},
			[]string{"kind"},
		),
		winRate: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "railscan_tp_sl_winrate",
				Help: "Last first-hit TP win rate for a symbol in percent",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "railscan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railscan_cache_lookups_total",
				Help: "Analysis cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordScan counts a finished analysis.
func (r *Recorder) RecordScan(side string) {
	r.scansTotal.WithLabelValues(side).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordWinRate records the last backtest win rate for a symbol.
func (r *Recorder) RecordWinRate(symbol string, winrate float64) {
	r.winRate.WithLabelValues(symbol).Set(winrate)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCache counts a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheTotal.WithLabelValues(result).Inc()
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordScan(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordWinRate(string, float64) {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordCache(bool) {}
