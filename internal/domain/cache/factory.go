package cache

import (
	"fmt"

	"imageset-go/internal/platform/config"
	"imageset-go/internal/platform/storage"
)

// New builds the configured descriptor cache store.
func New(cfg config.CacheConfig) (Store, error) {
	storeCfg := Config{
		TTL: cfg.TTL,
	}

	switch cfg.Type {
	case "memory":
		storeCfg.Memory = &MemoryConfig{GCInterval: cfg.Memory.GCInterval}
		return NewMemory(storeCfg), nil
	case "redis":
		storeCfg.Redis = &RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
		return NewRedis(storeCfg)
	case "sqlite":
		db, err := storage.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		storeCfg.SQLite = &SQLiteConfig{Path: cfg.SQLite.Path}
		return NewSQLite(db, storeCfg)
	default:
		return nil, fmt.Errorf("unknown cache store type %q", cfg.Type)
	}
}
