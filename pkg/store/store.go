package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("key not found")

// Store is the key-value substrate chats are persisted on. Values are
// overwritten whole; there are no partial updates.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// ListKeys returns every key starting with prefix, sorted. An empty
	// prefix lists everything.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverPebble   = "pebble"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string

	// pebble
	Path string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// postgres
	DSN string
}

// Open builds the backend named by cfg.Driver.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverPebble:
		return OpenPebbleStore(cfg.Path)
	case DriverRedis:
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case DriverPostgres:
		return OpenGormStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func sortedKeys(keys []string) []string {
	sort.Strings(keys)
	return keys
}
