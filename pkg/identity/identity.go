// Package identity supplies the best-effort anonymous writer identity. There
// is no user account system; a random per-process id stands in for one.
package identity

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewWriterID generates a writer identity of the form "user-" followed by
// nine base36 characters, stable for the process lifetime.
func NewWriterID() string {
	buf := make([]byte, 9)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing is effectively fatal elsewhere; a
			// fixed character keeps identity generation total.
			buf[i] = alphabet[0]
			continue
		}
		buf[i] = alphabet[n.Int64()]
	}
	return "user-" + string(buf)
}

// Registry announces writer presence in Redis with a TTL. All operations are
// best-effort: bootstrap failure is non-fatal and must not block the rest of
// the system.
type Registry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRegistry(client *redis.Client, prefix string, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Registry{client: client, prefix: prefix, ttl: ttl}
}

// Announce registers the writer id. Callers log the error and carry on.
func (r *Registry) Announce(ctx context.Context, writerID string) error {
	return r.client.Set(ctx, r.prefix+":"+writerID, time.Now().UnixMilli(), r.ttl).Err()
}

// Active lists currently announced writer ids.
func (r *Registry) Active(ctx context.Context) ([]string, error) {
	keys, err := r.client.Keys(ctx, r.prefix+":*").Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(r.prefix)+1:])
	}
	return ids, nil
}
