package archiver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/esgarath/wardenlevel/pkg/archive"
	"github.com/esgarath/wardenlevel/pkg/consumer"
	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/worker"
)

// Service drains the audit topic into PostgreSQL. It parses each envelope,
// hands it to the worker pool for batched writes, and leaves offset commits
// to the pool so nothing is acknowledged before it is durable.
type Service struct {
	logger   *logger.Logger
	consumer consumer.Consumer
	pool     *worker.Pool
}

// NewService creates an archiver Service.
func NewService(l *logger.Logger, c consumer.Consumer, p *worker.Pool) *Service {
	return &Service{
		logger:   l,
		consumer: c,
		pool:     p,
	}
}

// Start begins the consumption loop. It blocks until the context is
// canceled or the consumer fails.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting archiver service")

	s.pool.Start(ctx)

	msgChan, errChan := s.consumer.Consume(ctx)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}

			if err := s.handleMessage(ctx, msg); err != nil {
				s.logger.Error("failed to handle message", err, zap.Int64("offset", msg.Offset))
			}

		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("consumer error: %w", err)
			}

		case <-ctx.Done():
			return s.Shutdown(context.Background())
		}
	}
}

func (s *Service) handleMessage(ctx context.Context, msg consumer.Message) error {
	record, err := ParseEnvelope(msg.Value)
	if err != nil {
		// Malformed envelopes are skipped, not retried. Committing the
		// offset keeps the partition moving.
		s.logger.Warn("skipping malformed envelope",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("payload", msg.Value))

		return s.consumer.Commit(ctx, msg)
	}

	return s.pool.Submit(ctx, archive.Entry{
		Record:  record,
		Message: msg,
	})
}

// Shutdown stops the service gracefully.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down archiver service")

	errPool := s.pool.Shutdown(ctx)
	errCons := s.consumer.Close()

	if errPool != nil || errCons != nil {
		return fmt.Errorf("shutdown errors: pool=%v, consumer=%v", errPool, errCons)
	}
	return nil
}
