package export

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestPublishAsyncNonBlocking(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("PublishAsync returns immediately", prop.ForAll(
		func(key, value []byte) bool {
			// Non-existent brokers: in async mode the call must still
			// hand back a channel without blocking.
			p := NewKafkaPublisher(Config{
				Brokers: []string{"localhost:9999"},
				Topic:   "wardenlevel.changes",
			})
			defer p.Close()

			start := time.Now()
			_ = p.PublishAsync(context.Background(), key, value)
			return time.Since(start) < 10*time.Millisecond
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPublishAsyncDeliversResult(t *testing.T) {
	p := NewKafkaPublisher(Config{
		Brokers: []string{"localhost:9999"},
		Topic:   "wardenlevel.changes",
	})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	resultChan := p.PublishAsync(ctx, []byte("key"), []byte("value"))

	select {
	case res := <-resultChan:
		_ = res
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for publish result")
	}
}

func TestClose(t *testing.T) {
	p := NewKafkaPublisher(Config{
		Brokers: []string{"localhost:9092"},
		Topic:   "wardenlevel.changes",
	})
	assert.NoError(t, p.Close())
}
