// Package storage provides durable key-value backends for client-local state.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small durable key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver    string
	Path      string
	Namespace string
	Redis     *redis.Client

	// FallbackPath, when set with the redis driver, keeps a file copy that
	// serves reads while redis is unreachable.
	FallbackPath string
	Logger       *zerolog.Logger
}

// Open constructs the backend named by opts.Driver.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile, "":
		return NewFileStore(opts.Path)
	case DriverSQLite:
		return NewSQLiteStore(opts.Path)
	case DriverRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("storage: redis driver requires a redis client")
		}
		primary := NewRedisStore(opts.Redis, opts.Namespace)
		if opts.FallbackPath == "" {
			return primary, nil
		}
		fallback, err := NewFileStore(opts.FallbackPath)
		if err != nil {
			return nil, fmt.Errorf("storage: open fallback: %w", err)
		}
		return NewFailoverStore(primary, fallback, opts.Logger), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}
