// Package config loads service configuration from an optional YAML
// file overlaid with ASSISTANT_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server      Server                `koanf:"server"`
	Storage     Storage               `koanf:"storage"`
	Model       Model                 `koanf:"model"`
	Features    map[string]bool       `koanf:"features"`
	Permissions map[string][]string   `koanf:"permissions"`
	Quotas      map[string]QuotaLimit `koanf:"quotas"`
	APIKeys     []APIKey              `koanf:"api_keys"`
}

type Server struct {
	Port int `koanf:"port"`
}

type Storage struct {
	Type   string `koanf:"type"` // sqlite, memory
	SQLite SQLite `koanf:"sqlite"`
}

type SQLite struct {
	Path string `koanf:"path"`
}

type Model struct {
	Type    string `koanf:"type"` // openai, mock
	APIKey  string `koanf:"api_key"`
	Name    string `koanf:"name"`
	BaseURL string `koanf:"base_url"`
}

// QuotaLimit is the allotment for one action.
type QuotaLimit struct {
	Count  int           `koanf:"count"`
	Window time.Duration `koanf:"window"`
}

// APIKey maps a hashed API key to the principal it authenticates.
type APIKey struct {
	KeyHash     string `koanf:"key_hash"`
	Principal   string `koanf:"principal"`
	Description string `koanf:"description"`
}

// Load reads configPath (when non-empty) and overlays environment
// variables: ASSISTANT_SERVER__PORT=9000 sets server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("ASSISTANT_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "ASSISTANT_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "sqlite")
	}
	if !k.Exists("storage.sqlite.path") {
		k.Set("storage.sqlite.path", "assistant.db")
	}
	if !k.Exists("model.type") {
		k.Set("model.type", "openai")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
