package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/ivymeadows/finmirror/internal/tasks"
)

// SettingsHandler serves the scheduler configuration. Writing a new interval
// rearms the running scheduler immediately, not just on restart.
type SettingsHandler struct {
	settings  *repositories.SettingStore
	scheduler *tasks.Scheduler
	logger    *log.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(settings *repositories.SettingStore, scheduler *tasks.Scheduler, logger *log.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, scheduler: scheduler, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *SettingsHandler) Routes() []string {
	return []string{
		"GET /api/settings",
		"POST /api/settings",
	}
}

type settingsBody struct {
	SyncIntervalHours int `json:"sync_interval_hours"`
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w)
	case http.MethodPost:
		h.post(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter) {
	hours, err := h.settings.SyncIntervalHours()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsBody{SyncIntervalHours: hours})
}

func (h *SettingsHandler) post(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	if err := h.settings.SetSyncIntervalHours(body.SyncIntervalHours); err != nil {
		respondError(w, err)
		return
	}

	if h.scheduler != nil {
		h.scheduler.Reschedule(body.SyncIntervalHours)
	}

	h.logger.Info("sync interval updated", "hours", body.SyncIntervalHours)
	writeJSON(w, http.StatusOK, settingsBody{SyncIntervalHours: body.SyncIntervalHours})
}
