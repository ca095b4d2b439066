package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// Setting keys. Saved selection configurations live in the settings table as
// JSON rather than their own table: the API replaces the whole collection on
// every write, so there are no partial-update semantics to get wrong.
const (
	settingSyncInterval = "sync_interval_hours"
	settingGroupConfigs = "group_configs"
	settingActiveConfig = "group_active_config_id"
)

// SettingStore persists plain key/value settings and the saved selection
// configurations serialized into them.
type SettingStore struct {
	db *sql.DB
}

// NewSettingStore creates a SettingStore over the given database handle.
func NewSettingStore(db *sql.DB) *SettingStore {
	return &SettingStore{db: db}
}

// Get returns the stored value for key, or fallback when absent.
func (s *SettingStore) Get(key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (s *SettingStore) Set(key, value string) error {
	if _, err := s.db.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// SyncIntervalHours returns the scheduler interval; 0 means disabled.
func (s *SettingStore) SyncIntervalHours() (int, error) {
	raw, err := s.Get(settingSyncInterval, "0")
	if err != nil {
		return 0, err
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 0 {
		return 0, nil
	}
	return hours, nil
}

// SetSyncIntervalHours persists the scheduler interval.
func (s *SettingStore) SetSyncIntervalHours(hours int) error {
	if hours < 0 {
		return fmt.Errorf("%w: interval must be >= 0", shared.ErrInvalidInput)
	}
	return s.Set(settingSyncInterval, strconv.Itoa(hours))
}

// GroupConfigs returns the saved selection configurations and the id of the
// active one, if any. Corrupt stored JSON degrades to an empty collection
// rather than an error; the feature is a convenience.
func (s *SettingStore) GroupConfigs() ([]models.SavedConfig, string, error) {
	raw, err := s.Get(settingGroupConfigs, "[]")
	if err != nil {
		return nil, "", err
	}
	active, err := s.Get(settingActiveConfig, "")
	if err != nil {
		return nil, "", err
	}

	var configs []models.SavedConfig
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		configs = []models.SavedConfig{}
		active = ""
	}
	if configs == nil {
		configs = []models.SavedConfig{}
	}

	return configs, active, nil
}

// SaveGroupConfigs replaces the whole saved-configuration collection and the
// active pointer. Configs without an id are assigned one.
func (s *SettingStore) SaveGroupConfigs(configs []models.SavedConfig, activeID string) ([]models.SavedConfig, error) {
	for i := range configs {
		if configs[i].ID == "" {
			configs[i].ID = shared.GenerateID()
		}
	}

	encoded, err := json.Marshal(configs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode group configs: %w", err)
	}

	if err := s.Set(settingGroupConfigs, string(encoded)); err != nil {
		return nil, err
	}
	if err := s.Set(settingActiveConfig, activeID); err != nil {
		return nil, err
	}

	return configs, nil
}
