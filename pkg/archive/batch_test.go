package archive

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestBatchBufferProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("buffer adds entries until capacity", prop.ForAll(
		func(cap int) bool {
			if cap < 1 || cap > 1000 {
				return true
			}
			b := NewInMemoryBuffer(cap)
			for i := 0; i < cap-1; i++ {
				shouldFlush := b.Add(Entry{})
				if shouldFlush {
					return false
				}
				if b.Size() != i+1 {
					return false
				}
			}
			// One more reaches capacity
			shouldFlush := b.Add(Entry{})
			return shouldFlush && b.Size() == cap
		},
		gen.IntRange(1, 1000),
	))

	properties.Property("buffer is cleared after flush", prop.ForAll(
		func(count int) bool {
			if count < 0 || count > 500 {
				return true
			}
			b := NewInMemoryBuffer(1000)
			for i := 0; i < count; i++ {
				b.Add(Entry{})
			}

			batch := b.Flush()
			return len(batch) == count && b.Size() == 0
		},
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBufferTimeFlush(t *testing.T) {
	b := NewInMemoryBuffer(100)

	// Empty buffer never flushes on time alone
	assert.False(t, b.ShouldFlush(100*time.Millisecond))

	b.Add(Entry{Record: Record{ID: "k1"}})

	assert.False(t, b.ShouldFlush(100*time.Millisecond))

	time.Sleep(110 * time.Millisecond)

	assert.True(t, b.ShouldFlush(100*time.Millisecond))
}

func TestFlushResetsClock(t *testing.T) {
	b := NewInMemoryBuffer(100)
	b.Add(Entry{Record: Record{ID: "k1"}})

	time.Sleep(60 * time.Millisecond)
	batch := b.Flush()
	assert.Len(t, batch, 1)

	b.Add(Entry{Record: Record{ID: "k2"}})
	assert.False(t, b.ShouldFlush(50*time.Millisecond))
}
