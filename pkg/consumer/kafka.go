package consumer

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Message is one change event envelope consumed from the audit topic.
type Message struct {
	Key    []byte
	Value  []byte
	Offset int64
	Topic  string
	Raw    kafka.Message // kept for committing
}

// Consumer feeds the archiver with change event envelopes.
type Consumer interface {
	// Consume returns a channel of messages and a channel of transport
	// errors.
	Consume(ctx context.Context) (<-chan Message, <-chan error)

	// Commit commits the offset for a specific message. The archiver
	// commits only after the event reached Postgres.
	Commit(ctx context.Context, msg Message) error

	// Close gracefully shuts down the consumer.
	Close() error
}

// KafkaConsumer implements Consumer using kafka-go.
type KafkaConsumer struct {
	reader *kafka.Reader
}

// Config holds Kafka consumer configuration.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaConsumer creates a KafkaConsumer.
func NewKafkaConsumer(cfg Config) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	return &KafkaConsumer{reader: reader}
}

// Consume starts the fetch loop. Offsets are not advanced here; Commit is
// explicit so a crashed archiver replays unarchived events.
func (c *KafkaConsumer) Consume(ctx context.Context) (<-chan Message, <-chan error) {
	msgChan := make(chan Message)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errChan <- fmt.Errorf("failed to fetch message: %w", err)
				return
			}

			select {
			case msgChan <- Message{
				Key:    m.Key,
				Value:  m.Value,
				Offset: m.Offset,
				Topic:  m.Topic,
				Raw:    m,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, errChan
}

// Commit commits the offset for a message.
func (c *KafkaConsumer) Commit(ctx context.Context, msg Message) error {
	return c.reader.CommitMessages(ctx, msg.Raw)
}

// Close gracefully shuts down the consumer.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
