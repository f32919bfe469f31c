package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"

	domainimage "imageset-go/internal/domain/image"
)

// Store caches generated descriptors across invocations. The derivative core
// itself stays stateless; caching belongs to the build-tool layer around it.
type Store interface {
	Get(ctx context.Context, key string) (*domainimage.Descriptor, bool, error)
	Put(ctx context.Context, key, sourcePath string, d *domainimage.Descriptor) error
	Close(ctx context.Context) error
}

// Config carries store construction parameters.
type Config struct {
	TTL    time.Duration
	Memory *MemoryConfig
	Redis  *RedisConfig
	SQLite *SQLiteConfig
}

// Key derives the cache key from the source bytes and the resolved options.
// Any option change invalidates the entry.
func Key(source []byte, opts domainimage.Options) (string, error) {
	digest, err := sonic.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("digest options: %w", err)
	}
	return fmt.Sprintf("%016x-%016x", xxhash.Sum64(source), xxhash.Sum64(digest)), nil
}
