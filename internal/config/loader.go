package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "GAME_CURATOR_"

	// ConfigPathEnvVar overrides the config file location.
	ConfigPathEnvVar = "GAME_CURATOR_CONFIG"
)

// Load reads configuration from the default locations.
func Load() (*Config, error) {
	path := os.Getenv(ConfigPathEnvVar)
	if path == "" {
		p, err := GetDefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return LoadFrom(path, false)
}

// LoadFrom layers defaults, the YAML file at path and environment overrides.
// When required is false a missing file is not an error.
func LoadFrom(path string, required bool) (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(NewConfig(dir), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			switch {
			case os.IsNotExist(err) && required:
				return nil, &ConfigNotFoundError{
					Path: path,
					Hint: "Run 'game-curator init' to write a default configuration",
				}
			case os.IsPermission(err):
				return nil, &PermissionError{Path: path, Op: "read", Fix: readPermissionFix(path)}
			case !os.IsNotExist(err):
				return nil, fmt.Errorf("failed to access config: %w", err)
			}
		} else if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &InvalidConfigError{
				Path:    path,
				Message: fmt.Sprintf("YAML parse error: %v", err),
				Hint:    "Restore from .bak file if available",
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, &InvalidConfigError{Path: path, Message: err.Error()}
	}

	return cfg, nil
}

// envTransform maps GAME_CURATOR_CACHE_REDIS_ADDR to cache.redis_addr.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}
