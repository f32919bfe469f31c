package config

import "time"

// DefaultConfig returns the configuration used when no file overrides exist.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Source: SourceConfig{
			Dir:        "assets",
			Extensions: []string{"jpg", "jpeg", "png", "webp"},
		},
		Output: OutputConfig{
			Dir:        "dist/assets",
			PublicPath: "/assets",
			Template:   "[name]-[width]x[height]-[hash].[ext]",
			Emitter:    "fs",
			Manifest:   "imageset.manifest.json",
		},
		Derivatives: DerivativesConfig{
			Steps:           4,
			Quality:         85,
			Placeholder:     false,
			PlaceholderSize: 40,
		},
		Limits: LimitsConfig{
			MaxFileSize: 32 * 1024 * 1024,
			MaxWidth:    16384,
			MaxHeight:   16384,
			MaxPixels:   16384 * 16384,
		},
		Cache: CacheConfig{
			Enabled: true,
			Type:    "memory",
			TTL:     24 * time.Hour,
			Memory: MemoryCacheConfig{
				GCInterval: time.Minute,
			},
			SQLite: SQLiteCacheConfig{
				Path: "data/imageset-cache.db",
			},
		},
		Web: WebConfig{
			Enabled:     false,
			IP:          "127.0.0.1",
			Port:        8080,
			ServeOutput: true,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 250 * time.Millisecond,
			Workers:  4,
		},
	}
}
