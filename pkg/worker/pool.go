package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/esgarath/wardenlevel/pkg/archive"
	"github.com/esgarath/wardenlevel/pkg/consumer"
	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/metrics"
	"github.com/esgarath/wardenlevel/pkg/retry"
)

// Pool fans archived change events out to a fixed set of workers, each
// batching writes to PostgreSQL and committing Kafka offsets only after
// a batch lands.
type Pool struct {
	logger        *logger.Logger
	writer        archive.PostgresWriter
	consumer      consumer.Consumer
	numWorkers    int
	batchSize     int
	flushInterval time.Duration
	retryOpts     retry.RetryOptions
	inputChan     chan archive.Entry
	wg            sync.WaitGroup
	cancel        context.CancelFunc
}

// NewPool creates a Pool. Entries submitted after Shutdown panic, so the
// caller must stop submitting first.
func NewPool(l *logger.Logger, w archive.PostgresWriter, c consumer.Consumer, numWorkers, batchSize int, flushInterval time.Duration) *Pool {
	return &Pool{
		logger:        l,
		writer:        w,
		consumer:      c,
		numWorkers:    numWorkers,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retryOpts:     retry.DefaultOptions(),
		inputChan:     make(chan archive.Entry, numWorkers*2),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(workerCtx, i)
	}
}

// Submit hands an entry to the pool for batching.
func (p *Pool) Submit(ctx context.Context, entry archive.Entry) error {
	select {
	case p.inputChan <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", zap.Int("worker_id", id))

	buffer := archive.NewInMemoryBuffer(p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-p.inputChan:
			if !ok {
				p.flush(ctx, buffer)
				return
			}

			if buffer.Add(entry) {
				p.flush(ctx, buffer)
			}
			metrics.ArchiverEventsConsumedTotal.Inc()

		case <-ticker.C:
			if buffer.ShouldFlush(p.flushInterval) {
				p.flush(ctx, buffer)
			}

		case <-ctx.Done():
			// Final flush on shutdown
			p.flush(context.Background(), buffer)
			return
		}
	}
}

func (p *Pool) flush(ctx context.Context, buffer archive.BatchBuffer) {
	entries := buffer.Flush()
	if len(entries) == 0 {
		return
	}

	records := make([]archive.Record, len(entries))
	for i, e := range entries {
		records[i] = e.Record
	}

	start := time.Now()
	err := retry.Do(ctx, func() error {
		return p.writer.WriteBatch(ctx, records)
	}, p.retryOpts)
	if err != nil {
		p.logger.Error("failed to write batch", err, zap.Int("batch_size", len(records)))
		metrics.ArchiverWriteErrorsTotal.Inc()
		// Offsets stay uncommitted so the events replay after restart.
		return
	}
	metrics.ArchiverUpsertLatency.Observe(time.Since(start).Seconds())
	metrics.ArchiverBatchWritesTotal.Inc()

	// Commit offsets only after the batch reached Postgres.
	for _, e := range entries {
		if err := p.consumer.Commit(ctx, e.Message); err != nil {
			p.logger.Error("failed to commit offset", err, zap.Int64("offset", e.Message.Offset))
		}
	}
}

// Shutdown stops all workers and waits for their final flush.
func (p *Pool) Shutdown(ctx context.Context) error {
	close(p.inputChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
