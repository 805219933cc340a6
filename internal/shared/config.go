package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	// EnvAPIBaseURL overrides [APIConfig.Host]. It is also what relative asset paths resolve against.
	EnvAPIBaseURL = "MEDIADESK_API_BASE_URL"
	// EnvConfigPath overrides the default config file location.
	EnvConfigPath = "MEDIADESK_CONFIG"

	DefaultConfigPath = "config.toml"
)

// Storage drivers accepted by [SessionConfig.StorageDriver].
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
}

// APIConfig locates the upstream media platform API.
type APIConfig struct {
	Host        string        `toml:"host"`
	Prefix      string        `toml:"prefix"`
	RefreshPath string        `toml:"refresh_path"`
	Timeout     time.Duration `toml:"timeout"`
	RateLimit   float64       `toml:"rate_limit"`
}

// BaseURL joins host and prefix, e.g. http://localhost:5000/api/v1
func (c APIConfig) BaseURL() string {
	return strings.TrimRight(c.Host, "/") + "/" + strings.Trim(c.Prefix, "/")
}

// SessionConfig controls session persistence and background refresh.
type SessionConfig struct {
	RefreshInterval time.Duration `toml:"refresh_interval"`
	ValidateOnCheck bool          `toml:"validate_on_check"`
	StorageDriver   string        `toml:"storage_driver"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains settings for the redis session storage driver.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Key      string `toml:"key"`
}

// ServerConfig contains local dashboard server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	if c.API.Host == "" {
		return fmt.Errorf("%w: api.host is empty", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.API.Host, "http://") && !strings.HasPrefix(c.API.Host, "https://") {
		return fmt.Errorf("%w: api.host must be an http(s) URL, got %q", ErrInvalidConfig, c.API.Host)
	}
	if c.Session.RefreshInterval <= 0 {
		return fmt.Errorf("%w: session.refresh_interval must be positive", ErrInvalidConfig)
	}
	switch c.Session.StorageDriver {
	case StorageSQLite, StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("%w: unknown session.storage_driver %q", ErrInvalidConfig, c.Session.StorageDriver)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the given .env files into the process environment.
//
// Missing files are ignored; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides onto c.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBaseURL)); v != "" {
		c.API.Host = v
	}
}

// ResolveConfig loads the config at path (or $MEDIADESK_CONFIG) when it exists, falls back to defaults otherwise,
// then applies environment overrides.
func ResolveConfig(path string) (*Config, error) {
	if env := os.Getenv(EnvConfigPath); env != "" && path == DefaultConfigPath {
		path = env
	}

	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
