package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CachedDescriptor persists one generated descriptor keyed by source content
// hash plus option digest.
type CachedDescriptor struct {
	Key        string         `gorm:"primaryKey;size:64"`
	SourcePath string         `gorm:"index"`
	Descriptor datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	ExpiresAt  *time.Time `gorm:"index"`
}

// Open initialises the sqlite database and runs migrations.
func Open(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&CachedDescriptor{}); err != nil {
		return nil, fmt.Errorf("migrate cache schema: %w", err)
	}
	return db, nil
}
