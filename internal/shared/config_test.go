package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL() != "http://localhost:5000/api/v1" {
			t.Errorf("expected base URL http://localhost:5000/api/v1, got %s", config.API.BaseURL())
		}

		if config.Session.RefreshInterval != 15*time.Minute {
			t.Errorf("expected refresh interval 15m, got %v", config.Session.RefreshInterval)
		}

		if config.Session.StorageDriver != StorageSQLite {
			t.Errorf("expected storage driver sqlite, got %s", config.Session.StorageDriver)
		}

		if config.Server.Addr() != "127.0.0.1:3000" {
			t.Errorf("expected server addr 127.0.0.1:3000, got %s", config.Server.Addr())
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
host = "https://media.example.com/"
prefix = "/v2/"
timeout = "5s"

[session]
refresh_interval = "1m"
storage_driver = "memory"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL() != "https://media.example.com/v2" {
			t.Errorf("expected base URL https://media.example.com/v2, got %s", config.API.BaseURL())
		}
		if config.API.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", config.API.Timeout)
		}
		if config.Session.StorageDriver != StorageMemory {
			t.Errorf("expected storage driver memory, got %s", config.Session.StorageDriver)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected unset keys to keep defaults, got port %d", config.Server.Port)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tt := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "empty host", mutate: func(c *Config) { c.API.Host = "" }},
			{name: "non http host", mutate: func(c *Config) { c.API.Host = "ftp://example.com" }},
			{name: "zero interval", mutate: func(c *Config) { c.Session.RefreshInterval = 0 }},
			{name: "unknown driver", mutate: func(c *Config) { c.Session.StorageDriver = "etcd" }},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				config := DefaultConfig()
				tc.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvAPIBaseURL, "https://api.example.org")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.API.Host != "https://api.example.org" {
			t.Errorf("expected env override, got %s", config.API.Host)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, ".env")
		if err := os.WriteFile(envPath, []byte("MEDIADESK_TEST_LOADENV=yes\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("MEDIADESK_TEST_LOADENV") })

		if err := LoadEnv(filepath.Join(tmpDir, "missing.env"), envPath); err != nil {
			t.Fatalf("expected missing files to be skipped, got %v", err)
		}

		if got := os.Getenv("MEDIADESK_TEST_LOADENV"); got != "yes" {
			t.Errorf("expected variable from .env, got %q", got)
		}
	})

	t.Run("ResolveConfig Without File", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv(EnvAPIBaseURL, "")

		config, err := ResolveConfig(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("expected defaults, got %v", err)
		}
		if config.API.Host != DefaultConfig().API.Host {
			t.Errorf("expected default host, got %s", config.API.Host)
		}
	})
}
