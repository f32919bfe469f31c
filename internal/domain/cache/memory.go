package cache

import (
	"context"
	"sync"
	"time"

	domainimage "imageset-go/internal/domain/image"
)

// MemoryConfig tunes the in-process store.
type MemoryConfig struct {
	GCInterval time.Duration
}

type memoryEntry struct {
	descriptor domainimage.Descriptor
	expiresAt  time.Time
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewMemory builds an in-process descriptor cache with periodic expiry
// sweeps.
func NewMemory(cfg Config) Store {
	interval := time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		interval = cfg.Memory.GCInterval
	}

	s := &memoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     cfg.TTL,
		stop:    make(chan struct{}),
	}
	go s.gcLoop(interval)
	return s
}

func (s *memoryStore) Get(ctx context.Context, key string) (*domainimage.Descriptor, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	d := entry.descriptor
	return &d, true, nil
}

func (s *memoryStore) Put(ctx context.Context, key, sourcePath string, d *domainimage.Descriptor) error {
	entry := memoryEntry{descriptor: *d}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close(ctx context.Context) error {
	s.once.Do(func() {
		close(s.stop)
	})
	return nil
}

func (s *memoryStore) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, entry := range s.entries {
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
