// Package storage provides the durable key-value store each container
// persists its state snapshot into. Every container owns a distinct
// namespaced key; there are no cross-container transactions.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
)

// ErrNotFound is returned by Load when no snapshot exists under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store persists container snapshots as opaque blobs under namespaced
// keys.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open selects a store backend from configuration.
func Open(cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "redis":
		return NewRedis(cfg, logger), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
