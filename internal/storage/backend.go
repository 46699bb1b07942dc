// Package storage provides the persistence backends the token store writes to.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a flat string key/value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// New opens the backend selected by cfg. For StorageNone it returns a nil Backend,
// which callers treat as "no persistent storage available". The returned close
// func is never nil.
func New(ctx context.Context, cfg config.StorageConfig) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.StorageNone:
		return nil, noop, nil
	case config.StorageMemory:
		return NewMemoryBackend(), noop, nil
	case config.StorageFile, "":
		return NewFileBackend(cfg.FilePath), noop, nil
	case config.StorageSQLite:
		b, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisBackend(client, cfg.Redis.Prefix), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func provideBackend(lc fx.Lifecycle, cfg *config.Config) (Backend, error) {
	backend, closeFn, err := New(context.Background(), cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Debug("credential storage ready", zap.String("backend", string(cfg.Storage.Backend)))
	lc.Append(fx.StopHook(func() error {
		return closeFn()
	}))
	return backend, nil
}

// Module provides the configured Backend
var Module = fx.Module("storage",
	fx.Provide(provideBackend),
)
