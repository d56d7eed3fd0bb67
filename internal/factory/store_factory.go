package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/kvstore"
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
)

// KVStore is a durable store that holds resources until stopped
type KVStore interface {
	core.KVStore
	Stop()
}

// StoreFactory creates key-value stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateKVStore creates the store selected by store.type
func (f *StoreFactory) CreateKVStore(ctx context.Context) (KVStore, error) {
	storeCfg := f.cfg.GetStore()
	if storeCfg.Scope == "" {
		return nil, fmt.Errorf("store.scope must not be empty")
	}

	switch storeCfg.Type {
	case "memory":
		return kvstore.NewMemoryStore(storeCfg.Scope, f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return kvstore.NewSQLiteStore(storeCfg.SQLitePath, storeCfg.Scope, f.logger)
	case "mysql":
		return kvstore.NewMySQLStore(storeCfg.MySQLDSN, storeCfg.Scope, f.logger)
	case "postgres":
		return kvstore.NewPostgresStore(ctx, storeCfg.PostgresDSN, storeCfg.Scope, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
