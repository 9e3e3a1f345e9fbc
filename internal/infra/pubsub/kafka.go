package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"quote_relay/internal/domain"

	"github.com/segmentio/kafka-go"
)

// Compile-time check to ensure KafkaPublisher implements TopicPublisher
var _ domain.TopicPublisher = (*KafkaPublisher)(nil)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes quotes to a single Kafka topic keyed by symbol, so
// one symbol always lands on one partition in receive order.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers and Kafka topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	})
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Name implements domain.TopicPublisher.
func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish implements domain.TopicPublisher. The relay topic travels as a header.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, q domain.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:     []byte(q.Symbol),
		Value:   payload,
		Headers: []kafka.Header{{Key: "topic", Value: []byte(topic)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return domain.NewNetworkError("kafka write", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
