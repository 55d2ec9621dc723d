package archive

import (
	"sync"
	"time"

	"github.com/esgarath/wardenlevel/pkg/consumer"
)

// Entry pairs a record with the Kafka message it came from, so the offset
// can be committed after a successful flush.
type Entry struct {
	Record  Record
	Message consumer.Message
}

// BatchBuffer buffers entries before a flush to PostgreSQL.
type BatchBuffer interface {
	// Add adds an entry. Returns true when the buffer reached capacity
	// and should be flushed.
	Add(entry Entry) bool

	// Flush returns all buffered entries and clears the buffer.
	Flush() []Entry

	// Size returns the current number of buffered entries.
	Size() int

	// ShouldFlush reports whether the time-based flush condition is met.
	ShouldFlush(interval time.Duration) bool
}

// InMemoryBuffer implements BatchBuffer using a slice.
type InMemoryBuffer struct {
	mu        sync.Mutex
	entries   []Entry
	capacity  int
	lastFlush time.Time
}

// NewInMemoryBuffer creates an InMemoryBuffer with the given capacity.
func NewInMemoryBuffer(capacity int) *InMemoryBuffer {
	return &InMemoryBuffer{
		entries:   make([]Entry, 0, capacity),
		capacity:  capacity,
		lastFlush: time.Now(),
	}
}

// Add adds an entry to the buffer.
func (b *InMemoryBuffer) Add(entry Entry) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	return len(b.entries) >= b.capacity
}

// Flush returns the current batch and clears the buffer.
func (b *InMemoryBuffer) Flush() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.entries
	b.entries = make([]Entry, 0, b.capacity)
	b.lastFlush = time.Now()
	return batch
}

// Size returns the current size.
func (b *InMemoryBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// ShouldFlush returns true if the interval has passed since the last flush
// and the buffer is non-empty.
func (b *InMemoryBuffer) ShouldFlush(interval time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return false
	}
	return time.Since(b.lastFlush) >= interval
}
