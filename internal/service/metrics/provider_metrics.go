package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "railscan",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Latency of market data fetches",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "railscan",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Market data fetches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "railscan",
			Subsystem: "provider",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per source (0 closed, 1 half-open, 2 open)",
		},
		[]string{"source"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProviderLatency, ProviderRequests, BreakerState)
	})
}
