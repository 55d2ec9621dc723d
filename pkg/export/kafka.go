package export

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Result holds the outcome of an asynchronous publish.
type Result struct {
	Error error
}

// Publisher ships change events to the audit topic. Publishing is strictly
// best-effort from the sync core's perspective: the remote changes
// collection stays the source of truth and a failed publish never surfaces
// to the user.
type Publisher interface {
	// PublishAsync sends an event envelope without blocking the caller.
	// The returned channel receives the result when the write completes.
	PublishAsync(ctx context.Context, key, value []byte) <-chan Result

	// Close gracefully shuts down the publisher.
	Close() error
}

// KafkaPublisher implements Publisher using kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Async:    true,
		Balancer: &kafka.LeastBytes{},
	}

	return &KafkaPublisher{
		writer: writer,
	}
}

// PublishAsync sends an event envelope asynchronously.
func (p *KafkaPublisher) PublishAsync(ctx context.Context, key, value []byte) <-chan Result {
	resultChan := make(chan Result, 1)

	msg := kafka.Message{
		Key:   key,
		Value: value,
	}

	go func() {
		err := p.writer.WriteMessages(ctx, msg)
		resultChan <- Result{Error: err}
		close(resultChan)
	}()

	return resultChan
}

// Close gracefully shuts down the publisher.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
