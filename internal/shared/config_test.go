package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "finmirror.db" {
			t.Errorf("expected database path finmirror.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5050 {
			t.Errorf("expected server port 5050, got %d", config.Server.Port)
		}

		if config.Provider.BaseURL != "https://api.monarchmoney.com" {
			t.Errorf("expected provider base URL https://api.monarchmoney.com, got %s", config.Provider.BaseURL)
		}

		if config.Sync.IntervalHours != 0 {
			t.Errorf("expected auto-sync disabled by default, got %d", config.Sync.IntervalHours)
		}

		if config.Sync.TransactionLookbackDays != 3 {
			t.Errorf("expected transaction lookback 3, got %d", config.Sync.TransactionLookbackDays)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[provider]
base_url = "http://localhost:9999"
token = "test_token"
fetch_timeout_secs = 30
rate_limit = 2.5

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[sync]
interval_hours = 6
transaction_lookback_days = 7
budget_lookback_months = 6
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Provider.Token != "test_token" {
			t.Errorf("expected provider token test_token, got %s", config.Provider.Token)
		}

		if config.Provider.FetchTimeout() != 30*time.Second {
			t.Errorf("expected fetch timeout 30s, got %s", config.Provider.FetchTimeout())
		}

		if config.Sync.IntervalHours != 6 {
			t.Errorf("expected interval 6, got %d", config.Sync.IntervalHours)
		}
	})

	t.Run("LoadConfigMissingFile", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("loading a missing config file should fail")
		}
	})

	t.Run("FetchTimeoutFallback", func(t *testing.T) {
		p := ProviderConfig{}
		if p.FetchTimeout() != 60*time.Second {
			t.Errorf("expected 60s fallback, got %s", p.FetchTimeout())
		}
	})
}
