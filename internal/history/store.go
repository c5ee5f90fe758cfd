// Package history keeps each caller's recent call history.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/agentgate/internal/model"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("history store closed")

// Store holds per-key chronological history, trimmed to model.MaxHistory.
type Store interface {
	// Recent returns the key's history, oldest first.
	Recent(ctx context.Context, key string) ([]model.HistoryEntry, error)
	// Append adds one entry and trims to the most recent model.MaxHistory.
	Append(ctx context.Context, key string, entry model.HistoryEntry) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Type      string `yaml:"type"` // memory | sqlite | redis
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`
	// TTL is how long an idle key survives in redis. Zero keeps it forever.
	TTL string `yaml:"ttl,omitempty"`
}

// NewStore creates a store based on configuration.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			return nil, fmt.Errorf("path is required when type=sqlite")
		}
		return NewSQLiteStore(path)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis_addr is required when type=redis")
		}
		ttl, err := parseTTL(cfg.TTL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB, ttl)
	default:
		return nil, fmt.Errorf("unknown history store type: %s", cfg.Type)
	}
}
