/*
Package config handles loading and validating game-curator configuration.

Configuration is layered with koanf: struct defaults, then an optional YAML
file (~/.game-curator/config.yaml, --config, or GAME_CURATOR_CONFIG), then
environment variables prefixed with GAME_CURATOR_ (highest priority).

Example:

	database:
	  path: ~/.game-curator/curator.db
	cache:
	  backend: redis
	  redis_addr: localhost:6379
	embedding:
	  model: text-embedding-3-small
	  api_key: sk-...
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the root configuration structure.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Cache      CacheConfig      `koanf:"cache"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Generation GenerationConfig `koanf:"generation"`
	Covers     CoversConfig     `koanf:"covers"`
	Log        LogConfig        `koanf:"log"`
	Breaker    BreakerConfig    `koanf:"breaker"`
}

// DatabaseConfig locates the SQLite datastore.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// CacheConfig selects the cache backend and namespace TTLs.
type CacheConfig struct {
	// Backend is "memory" (in-process) or "redis".
	Backend       string        `koanf:"backend" validate:"oneof=memory redis none"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"gte=0"`
	EmbeddingTTL  time.Duration `koanf:"embedding_ttl" validate:"gt=0"`
	SearchTTL     time.Duration `koanf:"search_ttl" validate:"gt=0"`
	LibraryTTL    time.Duration `koanf:"library_ttl" validate:"gt=0"`
}

// EmbeddingConfig configures the system-wide embedding provider.
type EmbeddingConfig struct {
	Provider   string `koanf:"provider" validate:"oneof=openai"`
	Model      string `koanf:"model" validate:"required"`
	BaseURL    string `koanf:"base_url" validate:"omitempty,url"`
	APIKey     string `koanf:"api_key"`
	Dimensions int    `koanf:"dimensions" validate:"gte=0"` // 0 keeps the model default
	BatchSize  int    `koanf:"batch_size" validate:"gte=1,lte=2048"`
}

// GenerationConfig holds defaults for per-user generation providers.
type GenerationConfig struct {
	Provider string `koanf:"provider" validate:"oneof=openai"`
	BaseURL  string `koanf:"base_url" validate:"omitempty,url"`
}

// CoversConfig controls where generated cover art is written.
type CoversConfig struct {
	Dir           string `koanf:"dir" validate:"required"`
	PublicBaseURL string `koanf:"public_base_url"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// BreakerConfig tunes the provider circuit breakers.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests" validate:"gte=1"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MinRequests  uint32        `koanf:"min_requests" validate:"gte=1"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// DefaultDir returns ~/.game-curator.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".game-curator"), nil
}

// GetDefaultConfigPath returns the path to ~/.game-curator/config.yaml.
func GetDefaultConfigPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// NewConfig returns a configuration populated with defaults rooted at dir.
func NewConfig(dir string) *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "curator.db"),
		},
		Cache: CacheConfig{
			Backend:      "memory",
			EmbeddingTTL: 30 * 24 * time.Hour,
			SearchTTL:    24 * time.Hour,
			LibraryTTL:   5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BatchSize: 100,
		},
		Generation: GenerationConfig{
			Provider: "openai",
		},
		Covers: CoversConfig{
			Dir: filepath.Join(dir, "covers"),
		},
		Log: LogConfig{
			Level: "info",
		},
		Breaker: BreakerConfig{
			MaxRequests:  3,
			Interval:     time.Minute,
			Timeout:      2 * time.Minute,
			MinRequests:  10,
			FailureRatio: 0.6,
		},
	}
}
