package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const DefaultDatabaseURL = "postgres://localhost:5432/joseki?sslmode=disable"

// Config holds runtime parameters for the joseki server and CLI.
// Zero values mean "unspecified" and are filled in by Default.
type Config struct {
	Addr          string   `json:"addr" yaml:"addr" toml:"addr"`
	DatabaseURL   string   `json:"database_url" yaml:"database_url" toml:"database_url"`
	JWTSecretPath string   `json:"jwt_secret_path" yaml:"jwt_secret_path" toml:"jwt_secret_path"`
	TokenTTL      string   `json:"token_ttl" yaml:"token_ttl" toml:"token_ttl"`
	PollTimeout   string   `json:"poll_timeout" yaml:"poll_timeout" toml:"poll_timeout"`
	RedisURL      string   `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
	RedisChannel  string   `json:"redis_channel" yaml:"redis_channel" toml:"redis_channel"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	LogLevel      string   `json:"log_level" yaml:"log_level" toml:"log_level"`
}

func Default() Config {
	return Config{
		Addr:          ":8080",
		DatabaseURL:   DefaultDatabaseURL,
		JWTSecretPath: "jwtsecret.key",
		TokenTTL:      "24h",
		PollTimeout:   "50s",
		RedisChannel:  "joseki:store",
		CORSOrigins:   []string{"*"},
		LogLevel:      "info",
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Resolve builds the effective configuration: defaults, then the file at
// path (if any), then environment overrides. The result is validated.
func Resolve(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	cfg = cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge returns c with every non-zero field of other applied on top.
func (c Config) Merge(other Config) Config {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.DatabaseURL != "" {
		c.DatabaseURL = other.DatabaseURL
	}
	if other.JWTSecretPath != "" {
		c.JWTSecretPath = other.JWTSecretPath
	}
	if other.TokenTTL != "" {
		c.TokenTTL = other.TokenTTL
	}
	if other.PollTimeout != "" {
		c.PollTimeout = other.PollTimeout
	}
	if other.RedisURL != "" {
		c.RedisURL = other.RedisURL
	}
	if other.RedisChannel != "" {
		c.RedisChannel = other.RedisChannel
	}
	if len(other.CORSOrigins) > 0 {
		c.CORSOrigins = other.CORSOrigins
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	return c
}

// ApplyEnv overrides fields from the environment. DATABASE_URL is used
// verbatim when set.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) Config {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.DatabaseURL = v
	}
	if v, ok := lookup("JOSEKI_ADDR"); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup("JOSEKI_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("JOSEKI_JWT_SECRET_PATH"); ok && v != "" {
		c.JWTSecretPath = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.RedisURL = v
	}
	return c
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url must be set")
	}
	if _, err := c.TokenTTLDuration(); err != nil {
		return err
	}
	if _, err := c.PollTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func (c Config) TokenTTLDuration() (time.Duration, error) {
	return parsePositiveDuration("token_ttl", c.TokenTTL)
}

func (c Config) PollTimeoutDuration() (time.Duration, error) {
	return parsePositiveDuration("poll_timeout", c.PollTimeout)
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}
