package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Redis is a Store backed by Redis or Valkey.
type Redis struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedis connects to the given addresses. A zero ttl keeps entries forever.
func NewRedis(addrs []string, password string, ttl time.Duration) (*Redis, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("embedder: redis address is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  addrs,
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to create redis client: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Close() {
	r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("embedder: redis get: %w", err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	var cmd rueidis.Completed
	if r.ttl > 0 {
		cmd = r.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(r.ttl).Build()
	} else {
		cmd = r.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	}
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("embedder: redis set: %w", err)
	}
	return nil
}
