package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/esgarath/wardenlevel/pkg/archive"
	"github.com/esgarath/wardenlevel/pkg/consumer"
	"github.com/esgarath/wardenlevel/pkg/logger"
)

type MockPGWriter struct {
	mock.Mock
}

func (m *MockPGWriter) WriteBatch(ctx context.Context, records []archive.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockPGWriter) Close() error {
	return m.Called().Error(0)
}

type MockConsumer struct {
	mock.Mock
}

func (m *MockConsumer) Consume(ctx context.Context) (<-chan consumer.Message, <-chan error) {
	args := m.Called(ctx)
	return args.Get(0).(<-chan consumer.Message), args.Get(1).(<-chan error)
}

func (m *MockConsumer) Commit(ctx context.Context, msg consumer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockConsumer) Close() error {
	return m.Called().Error(0)
}

func TestPoolDistribution(t *testing.T) {
	properties := gopter.NewProperties(nil)
	l := logger.NewNop()

	properties.Property("all submitted entries are eventually written", prop.ForAll(
		func(numEntries int) bool {
			if numEntries < 1 || numEntries > 100 {
				return true
			}

			mw := new(MockPGWriter)
			mc := new(MockConsumer)
			mc.On("Commit", mock.Anything, mock.Anything).Return(nil)

			var totalCount int
			var mu sync.Mutex

			mw.On("WriteBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
				records := args.Get(1).([]archive.Record)
				mu.Lock()
				totalCount += len(records)
				mu.Unlock()
			}).Return(nil)

			p := NewPool(l, mw, mc, 2, 10, 50*time.Millisecond)
			p.Start(context.Background())

			for i := 0; i < numEntries; i++ {
				_ = p.Submit(context.Background(), archive.Entry{
					Record:  archive.Record{ID: "k1", EventType: "status_changed"},
					Message: consumer.Message{Key: []byte("user-abc")},
				})
			}

			// Shutdown triggers the final flush
			p.Shutdown(context.Background())

			mu.Lock()
			defer mu.Unlock()
			return totalCount == numEntries
		},
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPoolCommitsAfterWrite(t *testing.T) {
	l := logger.NewNop()
	mw := new(MockPGWriter)
	mc := new(MockConsumer)

	mw.On("WriteBatch", mock.Anything, mock.Anything).Return(nil)
	mc.On("Commit", mock.Anything, mock.Anything).Return(nil)

	p := NewPool(l, mw, mc, 1, 2, 1*time.Second)
	p.Start(context.Background())

	for i := 0; i < 2; i++ {
		err := p.Submit(context.Background(), archive.Entry{
			Record:  archive.Record{ID: "k1"},
			Message: consumer.Message{Offset: int64(i)},
		})
		assert.NoError(t, err)
	}

	assert.NoError(t, p.Shutdown(context.Background()))

	mw.AssertCalled(t, "WriteBatch", mock.Anything, mock.Anything)
	mc.AssertNumberOfCalls(t, "Commit", 2)
}

func TestPoolShutdown(t *testing.T) {
	mw := new(MockPGWriter)
	mc := new(MockConsumer)
	l := logger.NewNop()
	p := NewPool(l, mw, mc, 1, 100, 1*time.Second)

	p.Start(context.Background())
	err := p.Shutdown(context.Background())
	assert.NoError(t, err)
}

func BenchmarkPoolSubmit(b *testing.B) {
	l := logger.NewNop()
	mw := new(MockPGWriter)
	mc := new(MockConsumer)

	mw.On("WriteBatch", mock.Anything, mock.Anything).Return(nil)
	mc.On("Commit", mock.Anything, mock.Anything).Return(nil)

	p := NewPool(l, mw, mc, 4, 1000, 100*time.Millisecond)
	p.Start(context.Background())
	defer p.Shutdown(context.Background())

	entry := archive.Entry{
		Record:  archive.Record{ID: "k1"},
		Message: consumer.Message{Key: []byte("user-abc")},
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = p.Submit(context.Background(), entry)
	}
}
