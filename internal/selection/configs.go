package selection

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// ConfigStore persists the saved-configuration collection. Satisfied by
// repositories.SettingStore.
type ConfigStore interface {
	GroupConfigs() ([]models.SavedConfig, string, error)
	SaveGroupConfigs(configs []models.SavedConfig, activeID string) ([]models.SavedConfig, error)
}

// Manager owns the saved selection configurations and the pointer to the
// active one. Persistence is best-effort: a failed write is logged and the
// in-memory state stays authoritative for the session.
type Manager struct {
	store      ConfigStore
	controller *Controller
	logger     *log.Logger

	mu       sync.Mutex
	configs  []models.SavedConfig
	activeID string
}

// NewManager creates a Manager bound to a selection controller and a store.
func NewManager(store ConfigStore, controller *Controller, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		store:      store,
		controller: controller,
		logger:     logger,
	}
}

// Load reads the persisted configurations. A read failure leaves the
// manager empty and usable.
func (m *Manager) Load() error {
	configs, activeID, err := m.store.GroupConfigs()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.configs = configs
	m.activeID = activeID
	m.mu.Unlock()
	return nil
}

// Configs returns the saved configurations and the active config id, empty
// string when none is active.
func (m *Manager) Configs() ([]models.SavedConfig, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.SavedConfig, len(m.configs))
	copy(out, m.configs)
	return out, m.activeID
}

// Save captures the current selection under the given name. The selection
// reached this point through conflict-respecting toggles, so it is not
// revalidated here.
func (m *Manager) Save(name string) (models.SavedConfig, error) {
	if name == "" {
		return models.SavedConfig{}, fmt.Errorf("%w: configuration name is required", shared.ErrInvalidInput)
	}

	config := models.SavedConfig{
		ID:       shared.GenerateID(),
		Name:     name,
		GroupIDs: m.controller.Selected(),
	}

	m.mu.Lock()
	m.configs = append(m.configs, config)
	m.mu.Unlock()

	m.persist()
	return config, nil
}

// Activate replaces the selection with the configuration's group ids and
// marks it active. Group ids that no longer resolve to a group are kept;
// they match nothing and fall out the next time the user saves.
func (m *Manager) Activate(configID string) error {
	m.mu.Lock()
	var found *models.SavedConfig
	for i := range m.configs {
		if m.configs[i].ID == configID {
			found = &m.configs[i]
			break
		}
	}
	if found == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: configuration %s", shared.ErrGroupNotFound, configID)
	}
	config := *found
	m.activeID = configID
	m.mu.Unlock()

	m.controller.SelectConfig(config)
	m.persist()
	return nil
}

// Delete removes a configuration. Deleting the active one clears the active
// pointer but leaves the current selection alone.
func (m *Manager) Delete(configID string) error {
	m.mu.Lock()
	kept := m.configs[:0]
	removed := false
	for _, config := range m.configs {
		if config.ID == configID {
			removed = true
			continue
		}
		kept = append(kept, config)
	}
	if !removed {
		m.mu.Unlock()
		return fmt.Errorf("%w: configuration %s", shared.ErrGroupNotFound, configID)
	}
	m.configs = kept
	if m.activeID == configID {
		m.activeID = ""
	}
	m.mu.Unlock()

	m.persist()
	return nil
}

// Replace swaps the whole collection and active pointer, as the settings
// API does, and persists the result.
func (m *Manager) Replace(configs []models.SavedConfig, activeID string) ([]models.SavedConfig, error) {
	saved, err := m.store.SaveGroupConfigs(configs, activeID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.configs = saved
	m.activeID = activeID
	m.mu.Unlock()
	return saved, nil
}

func (m *Manager) persist() {
	m.mu.Lock()
	configs := make([]models.SavedConfig, len(m.configs))
	copy(configs, m.configs)
	activeID := m.activeID
	m.mu.Unlock()

	if _, err := m.store.SaveGroupConfigs(configs, activeID); err != nil {
		m.logger.Warn("failed to persist group configurations", "error", err)
	}
}
