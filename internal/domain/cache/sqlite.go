package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	domainimage "imageset-go/internal/domain/image"
	"imageset-go/internal/platform/storage"
)

// SQLiteConfig locates the database file backing the store.
type SQLiteConfig struct {
	Path string
}

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a sqlite-backed descriptor cache over an opened database
// handle.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:  db,
		ttl: cfg.TTL,
	}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (*domainimage.Descriptor, bool, error) {
	var record storage.CachedDescriptor
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if record.ExpiresAt != nil && time.Now().After(*record.ExpiresAt) {
		_ = s.db.WithContext(ctx).Where("key = ?", key).Delete(&storage.CachedDescriptor{}).Error
		return nil, false, nil
	}

	var d domainimage.Descriptor
	if err := sonic.Unmarshal(record.Descriptor, &d); err != nil {
		return nil, false, fmt.Errorf("decode cached descriptor: %w", err)
	}
	return &d, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, key, sourcePath string, d *domainimage.Descriptor) error {
	data, err := sonic.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}

	record := &storage.CachedDescriptor{
		Key:        key,
		SourcePath: sourcePath,
		Descriptor: data,
		CreatedAt:  time.Now(),
	}
	if s.ttl > 0 {
		exp := record.CreatedAt.Add(s.ttl)
		record.ExpiresAt = &exp
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ?", key).Delete(&storage.CachedDescriptor{}).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
}

func (s *sqliteStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
