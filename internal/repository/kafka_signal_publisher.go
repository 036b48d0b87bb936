package repository

import (
	"context"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	pkgkafka "RailScan/pkg/kafka"
)

// batchPublisher is the part of the Kafka producer the publisher needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaSignalPublisher writes results to a topic keyed by symbol.
type KafkaSignalPublisher struct {
	producer batchPublisher
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishResults(ctx context.Context, results []models.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(results))
	for i, r := range results {
		msgs[i] = pkgkafka.Message{
			Key:     []byte(r.Symbol),
			Value:   r,
			Headers: map[string]string{"side": string(r.Side)},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}
