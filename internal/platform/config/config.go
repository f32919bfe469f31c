package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// SizeValue holds a raw width token exactly as it appeared in configuration.
// Parsing is deferred to the size planner so malformed values fail the
// invocation that uses them, not config loading.
type SizeValue string

func (v *SizeValue) UnmarshalYAML(node *yaml.Node) error {
	*v = SizeValue(node.Value)
	return nil
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Source      SourceConfig      `yaml:"source"`
	Output      OutputConfig      `yaml:"output"`
	Derivatives DerivativesConfig `yaml:"derivatives"`
	Limits      LimitsConfig      `yaml:"limits"`
	Cache       CacheConfig       `yaml:"cache"`
	Web         WebConfig         `yaml:"web"`
	Watch       WatchConfig       `yaml:"watch"`
	Obs         ObsConfig         `yaml:"observability"`
}

type LogConfig struct {
	Level  string `yaml:"log_level"`
	Dir    string `yaml:"log_dir"`
	File   string `yaml:"log_file"`
	Format string `yaml:"log_format"`
}

// SourceConfig locates the images a batch or watch run operates on.
type SourceConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

type OutputConfig struct {
	Dir        string   `yaml:"dir"`
	PublicPath string   `yaml:"public_path"`
	Template   string   `yaml:"template"`
	Emitter    string   `yaml:"emitter"` // "fs" or "s3"
	Manifest   string   `yaml:"manifest"`
	S3         S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// DerivativesConfig is the static size policy applied to every source image.
// Per-call overrides (CLI flags, dev-server query params) take priority over
// these values.
type DerivativesConfig struct {
	Size            SizeValue   `yaml:"size"`
	Sizes           []SizeValue `yaml:"sizes"`
	Min             SizeValue   `yaml:"min"`
	Max             SizeValue   `yaml:"max"`
	Steps           int         `yaml:"steps"`
	Quality         int         `yaml:"quality"`
	Background      string      `yaml:"background"`
	Format          string      `yaml:"format"`
	Placeholder     bool        `yaml:"placeholder"`
	PlaceholderSize int         `yaml:"placeholder_size"`
	Disable         bool        `yaml:"disable"`
}

type LimitsConfig struct {
	MaxFileSize int64 `yaml:"max_file_size"`
	MaxWidth    int   `yaml:"max_width"`
	MaxHeight   int   `yaml:"max_height"`
	MaxPixels   int64 `yaml:"max_pixels"`
}

type CacheConfig struct {
	Enabled bool              `yaml:"enabled"`
	Type    string            `yaml:"type"` // "memory", "redis" or "sqlite"
	TTL     time.Duration     `yaml:"ttl"`
	Memory  MemoryCacheConfig `yaml:"memory"`
	Redis   RedisCacheConfig  `yaml:"redis"`
	SQLite  SQLiteCacheConfig `yaml:"sqlite"`
}

type MemoryCacheConfig struct {
	GCInterval time.Duration `yaml:"gc_interval"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteCacheConfig struct {
	Path string `yaml:"path"`
}

type WebConfig struct {
	Enabled     bool   `yaml:"enabled"`
	IP          string `yaml:"ip"`
	Port        int    `yaml:"port"`
	ServeOutput bool   `yaml:"serve_output"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
	Workers  int           `yaml:"workers"`
}

type ObsConfig struct {
	Enabled bool `yaml:"enabled"`
}
