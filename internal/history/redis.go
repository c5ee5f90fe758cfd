package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/agentgate/internal/model"
)

const historyKeyPrefix = "agentgate:history:"

// RedisStore keeps each key's history in a capped Redis list.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) key(k string) string {
	return historyKeyPrefix + k
}

func (r *RedisStore) Recent(ctx context.Context, key string) ([]model.HistoryEntry, error) {
	results, err := r.client.LRange(ctx, r.key(key), int64(-model.MaxHistory), -1).Result()
	if err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrStoreClosed
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]model.HistoryEntry, 0, len(results))
	for _, data := range results {
		var e model.HistoryEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisStore) Append(ctx context.Context, key string, e model.HistoryEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	k := r.key(key)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, k, data)
	pipe.LTrim(ctx, k, int64(-model.MaxHistory), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return ErrStoreClosed
		}
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func parseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid history ttl %q: %w", s, err)
	}
	return d, nil
}
