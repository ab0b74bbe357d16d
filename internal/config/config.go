package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Persistence backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendRemote   = "remote"
)

// Config holds the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Execution   ExecutionConfig   `yaml:"execution"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	NATS        NATSConfig        `yaml:"nats"`
	Auth        AuthConfig        `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ExecutionConfig points at the remote execution service.
type ExecutionConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"` // transient failures only; 0 disables
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxConcurrent int           `yaml:"max_concurrent"` // across all workspaces
}

// PersistenceConfig selects where saved workflows live.
type PersistenceConfig struct {
	Backend string `yaml:"backend"` // memory, postgres, redis or remote
	URL     string `yaml:"url"`     // remote persistence service; defaults to execution.url
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// NATSConfig enables forwarding canvas events to NATS when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Subject       string `yaml:"subject"`
	MaxReconnects int    `yaml:"max_reconnects"`
}

// AuthConfig holds the bearer token secret. An empty secret disables
// bearer tokens; the session headers still work.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RemoteURL returns the persistence service URL.
func (c *Config) RemoteURL() string {
	if c.Persistence.URL != "" {
		return c.Persistence.URL
	}
	return c.Execution.URL
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{Level: "info"},
		Execution: ExecutionConfig{
			URL:           "http://localhost:5000",
			Timeout:       2 * time.Minute,
			RetryDelay:    500 * time.Millisecond,
			MaxConcurrent: 10,
		},
		Persistence: PersistenceConfig{Backend: BackendMemory},
		Redis:       RedisConfig{Addr: "localhost:6379", PoolSize: 10},
		NATS:        NATSConfig{Subject: "agentflow.canvas", MaxReconnects: 10},
	}
}

// Load reads a YAML configuration file at path and returns a Config.
// Fields the file leaves empty keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := mergo.Merge(cfg, defaults()); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadDefault loads ".env" and "config.yaml" from the current directory,
// then applies AGENTFLOW_* environment overrides. Missing files are not an
// error; any other failure (e.g. malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := Load("config.yaml")
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Persistence.Backend {
	case BackendMemory, BackendRemote, BackendRedis:
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("persistence backend postgres requires database.url")
		}
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Persistence.Backend)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"AGENTFLOW_HOST":                &cfg.Server.Host,
		"AGENTFLOW_LOG_LEVEL":           &cfg.Log.Level,
		"AGENTFLOW_EXECUTION_URL":       &cfg.Execution.URL,
		"AGENTFLOW_PERSISTENCE_BACKEND": &cfg.Persistence.Backend,
		"AGENTFLOW_PERSISTENCE_URL":     &cfg.Persistence.URL,
		"AGENTFLOW_DATABASE_URL":        &cfg.Database.URL,
		"AGENTFLOW_REDIS_ADDR":          &cfg.Redis.Addr,
		"AGENTFLOW_REDIS_PASSWORD":      &cfg.Redis.Password,
		"AGENTFLOW_NATS_URL":            &cfg.NATS.URL,
		"AGENTFLOW_JWT_SECRET":          &cfg.Auth.JWTSecret,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"AGENTFLOW_PORT":     &cfg.Server.Port,
		"AGENTFLOW_REDIS_DB": &cfg.Redis.DB,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}
