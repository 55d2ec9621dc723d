package archiver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esgarath/wardenlevel/pkg/archive"
	"github.com/esgarath/wardenlevel/pkg/changelog"
	"github.com/esgarath/wardenlevel/pkg/consumer"
	"github.com/esgarath/wardenlevel/pkg/export"
	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/worker"
)

type stubConsumer struct {
	mu        sync.Mutex
	msgs      chan consumer.Message
	errs      chan error
	committed []int64
}

func newStubConsumer() *stubConsumer {
	return &stubConsumer{
		msgs: make(chan consumer.Message, 16),
		errs: make(chan error, 1),
	}
}

func (s *stubConsumer) Consume(ctx context.Context) (<-chan consumer.Message, <-chan error) {
	return s.msgs, s.errs
}

func (s *stubConsumer) Commit(ctx context.Context, msg consumer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, msg.Offset)
	return nil
}

func (s *stubConsumer) Close() error { return nil }

func (s *stubConsumer) committedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.committed...)
}

type stubWriter struct {
	mu      sync.Mutex
	records []archive.Record
}

func (w *stubWriter) WriteBatch(ctx context.Context, records []archive.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, records...)
	return nil
}

func (w *stubWriter) Close() error { return nil }

func (w *stubWriter) written() []archive.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]archive.Record(nil), w.records...)
}

func TestServiceArchivesWellFormedEnvelopes(t *testing.T) {
	l := logger.NewNop()
	sc := newStubConsumer()
	sw := &stubWriter{}
	pool := worker.NewPool(l, sw, sc, 1, 1, 10*time.Millisecond)
	svc := NewService(l, sc, pool)

	env := export.Envelope{
		ID:    "k-001",
		Event: changelog.Record(changelog.PlayerAdded{Player: "Aria"}, "user-abc123def"),
	}
	payload, err := json.Marshal(env)
	require.NoError(t, err)

	sc.msgs <- consumer.Message{Value: payload, Offset: 7}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	assert.Eventually(t, func() bool {
		return len(sw.written()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	records := sw.written()
	require.Len(t, records, 1)
	assert.Equal(t, "k-001", records[0].ID)
	assert.Equal(t, "player_added", records[0].EventType)
	assert.Contains(t, sc.committedOffsets(), int64(7))
}

func TestServiceSkipsAndCommitsMalformedEnvelopes(t *testing.T) {
	l := logger.NewNop()
	sc := newStubConsumer()
	sw := &stubWriter{}
	pool := worker.NewPool(l, sw, sc, 1, 100, time.Second)
	svc := NewService(l, sc, pool)

	sc.msgs <- consumer.Message{Value: []byte("not json"), Offset: 3}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	assert.Eventually(t, func() bool {
		return len(sc.committedOffsets()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, sw.written())
	assert.Equal(t, []int64{3}, sc.committedOffsets())
}

func TestServiceStopsWhenMessageChannelCloses(t *testing.T) {
	l := logger.NewNop()
	sc := newStubConsumer()
	sw := &stubWriter{}
	pool := worker.NewPool(l, sw, sc, 1, 100, time.Second)
	svc := NewService(l, sc, pool)

	close(sc.msgs)

	err := svc.Start(context.Background())
	assert.NoError(t, err)
}
