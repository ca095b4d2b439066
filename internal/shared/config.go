package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Sync     SyncConfig     `toml:"sync"`
}

// ProviderConfig contains settings for the upstream budgeting API.
type ProviderConfig struct {
	BaseURL          string  `toml:"base_url"`
	Token            string  `toml:"token"`
	FetchTimeoutSecs int     `toml:"fetch_timeout_secs"`
	RateLimit        float64 `toml:"rate_limit"`
}

// FetchTimeout returns the per-entity provider fetch timeout.
func (p ProviderConfig) FetchTimeout() time.Duration {
	if p.FetchTimeoutSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(p.FetchTimeoutSecs) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig contains sync tuning knobs. IntervalHours is only the initial
// scheduler value; the persisted setting wins once one is stored.
type SyncConfig struct {
	IntervalHours           int `toml:"interval_hours"`
	TransactionLookbackDays int `toml:"transaction_lookback_days"`
	BudgetLookbackMonths    int `toml:"budget_lookback_months"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
