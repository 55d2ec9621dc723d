package resume

import (
	"context"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

// Store persists change stream resume tokens so a reopened subscription can
// pick up where the previous one stopped. Tokens are keyed by collection:
// the players and changes subscriptions advance independently.
type Store interface {
	// Save persists the resume token for a collection.
	Save(ctx context.Context, collection string, token bson.Raw) error

	// Load retrieves the last saved token for a collection. Returns nil
	// if no token exists yet.
	Load(ctx context.Context, collection string) (bson.Raw, error)
}

// FileStore implements Store using one file per collection under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".token")
}

func (s *FileStore) Save(ctx context.Context, collection string, token bson.Raw) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(collection), token, 0644)
}

func (s *FileStore) Load(ctx context.Context, collection string) (bson.Raw, error) {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return bson.Raw(data), nil
}

// RedisStore implements Store using Redis, one key per collection.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(collection string) string {
	return s.prefix + ":" + collection
}

func (s *RedisStore) Save(ctx context.Context, collection string, token bson.Raw) error {
	return s.client.Set(ctx, s.key(collection), []byte(token), 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, collection string) (bson.Raw, error) {
	data, err := s.client.Get(ctx, s.key(collection)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return bson.Raw(data), nil
}
