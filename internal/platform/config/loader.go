package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is searched when no config file is given explicitly.
const DefaultPath = "imageset.yaml"

// Loader reads configuration from a yaml file layered over the defaults.
type Loader struct {
	path      string
	useDotEnv bool
}

// NewLoader creates a loader for the given path; an empty path means
// DefaultPath, which may be absent.
func NewLoader(path string) *Loader {
	return &Loader{
		path:      path,
		useDotEnv: true,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the config file, applies environment overrides and validates.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path := l.path
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		path = ""
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("IMAGESET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("IMAGESET_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("IMAGESET_S3_ACCESS_KEY"); v != "" {
		cfg.Output.S3.AccessKey = v
	}
	if v := os.Getenv("IMAGESET_S3_SECRET_KEY"); v != "" {
		cfg.Output.S3.SecretKey = v
	}
	if v := os.Getenv("IMAGESET_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Derivatives.Quality < 1 || cfg.Derivatives.Quality > 100 {
		return fmt.Errorf("derivatives.quality must be within 1-100, got %d", cfg.Derivatives.Quality)
	}
	if cfg.Derivatives.PlaceholderSize <= 0 {
		return fmt.Errorf("derivatives.placeholder_size must be positive, got %d", cfg.Derivatives.PlaceholderSize)
	}
	if cfg.Web.Port < 1 || cfg.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", cfg.Web.Port)
	}
	switch cfg.Output.Emitter {
	case "fs", "s3":
	default:
		return fmt.Errorf("output.emitter must be fs or s3, got %q", cfg.Output.Emitter)
	}
	switch cfg.Cache.Type {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("cache.type must be memory, redis or sqlite, got %q", cfg.Cache.Type)
	}
	if cfg.Output.Template == "" {
		return fmt.Errorf("output.template must not be empty")
	}
	return nil
}
