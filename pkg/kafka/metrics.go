package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	producerMessages *prometheus.CounterVec
	producerBytes    *prometheus.CounterVec
	producerLatency  *prometheus.HistogramVec

	consumerMessages *prometheus.CounterVec
	consumerQueue    *prometheus.GaugeVec
	consumerLatency  *prometheus.HistogramVec

	metricsOnce sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "railscan",
			Subsystem: "kafka_producer",
			Name:      "messages_total",
			Help:      "Messages published to Kafka by result",
		}, []string{"topic", "result"})
		producerBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "railscan",
			Subsystem: "kafka_producer",
			Name:      "bytes_total",
			Help:      "Payload bytes published",
		}, []string{"topic"})
		producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "railscan",
			Subsystem: "kafka_producer",
			Name:      "publish_seconds",
			Help:      "Publish latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"})

		consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "railscan",
			Subsystem: "kafka_consumer",
			Name:      "messages_total",
			Help:      "Messages handled by outcome (ok, dlq, dropped)",
		}, []string{"topic", "outcome"})
		consumerQueue = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "railscan",
			Subsystem: "kafka_consumer",
			Name:      "queue_depth",
			Help:      "Messages waiting for a worker",
		}, []string{"topic"})
		consumerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "railscan",
			Subsystem: "kafka_consumer",
			Name:      "handle_seconds",
			Help:      "Handling time per message including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

func observePublish(topic string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMessages.WithLabelValues(topic, result).Add(float64(count))
	producerBytes.WithLabelValues(topic).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
