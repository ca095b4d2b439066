package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/selection"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// GroupsHandler serves account-group CRUD, the saved selection
// configurations and the per-group balance snapshot.
type GroupsHandler struct {
	groups  *repositories.GroupStore
	configs *selection.Manager
	logger  *log.Logger
}

// NewGroupsHandler creates a GroupsHandler. The saved-configuration
// collection is managed in memory and persisted through the setting store.
func NewGroupsHandler(groups *repositories.GroupStore, settings *repositories.SettingStore, logger *log.Logger) *GroupsHandler {
	configs := selection.NewManager(settings, selection.NewController(nil), logger)
	if err := configs.Load(); err != nil {
		logger.Warn("failed to load saved group configurations", "error", err)
	}
	return &GroupsHandler{groups: groups, configs: configs, logger: logger}
}

// Routes returns the HTTP routes this handler serves. The literal /configs
// and /snapshot segments take precedence over the {id} wildcard.
func (h *GroupsHandler) Routes() []string {
	return []string{
		"GET /api/groups",
		"POST /api/groups",
		"GET /api/groups/configs",
		"POST /api/groups/configs",
		"GET /api/groups/snapshot",
		"GET /api/groups/{id}",
		"PUT /api/groups/{id}",
		"DELETE /api/groups/{id}",
	}
}

func (h *GroupsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/api/groups" && r.Method == http.MethodGet:
		h.list(w)
	case path == "/api/groups" && r.Method == http.MethodPost:
		h.create(w, r)
	case path == "/api/groups/configs" && r.Method == http.MethodGet:
		h.getConfigs(w)
	case path == "/api/groups/configs" && r.Method == http.MethodPost:
		h.setConfigs(w, r)
	case path == "/api/groups/snapshot" && r.Method == http.MethodGet:
		h.snapshot(w)
	case r.Method == http.MethodGet:
		h.get(w, r.PathValue("id"))
	case r.Method == http.MethodPut:
		h.update(w, r)
	case r.Method == http.MethodDelete:
		h.delete(w, r.PathValue("id"))
	default:
		http.NotFound(w, r)
	}
}

type groupBody struct {
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	AccountIDs []string `json:"account_ids"`
}

type groupListResponse struct {
	Groups    []models.Group      `json:"groups"`
	Conflicts map[string][]string `json:"conflicts"`
}

// list returns all groups together with the derived conflict relation, so
// a client can disable conflicting selections without a second round trip.
func (h *GroupsHandler) list(w http.ResponseWriter) {
	groups, err := h.groups.List()
	if err != nil {
		respondError(w, err)
		return
	}

	conflictMap := selection.BuildConflictMap(groups)
	conflicts := make(map[string][]string, len(groups))
	for _, group := range groups {
		conflicts[group.ID] = conflictMap.Conflicts(group.ID)
	}

	writeJSON(w, http.StatusOK, groupListResponse{Groups: groups, Conflicts: conflicts})
}

func (h *GroupsHandler) get(w http.ResponseWriter, id string) {
	group, err := h.groups.Get(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body groupBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if body.Name == "" {
		respondError(w, fmt.Errorf("%w: group name is required", shared.ErrInvalidInput))
		return
	}

	group, err := h.groups.Create(body.Name, body.Color, body.AccountIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	h.logger.Info("group created", "id", group.ID, "name", group.Name)
	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupsHandler) update(w http.ResponseWriter, r *http.Request) {
	var body groupBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	group, err := h.groups.Update(r.PathValue("id"), body.Name, body.Color, body.AccountIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupsHandler) delete(w http.ResponseWriter, id string) {
	if err := h.groups.Delete(id); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *GroupsHandler) snapshot(w http.ResponseWriter) {
	snapshots, err := h.groups.Snapshot()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

type configsBody struct {
	Configs        []models.SavedConfig `json:"configs"`
	ActiveConfigID string               `json:"active_config_id"`
}

func (h *GroupsHandler) getConfigs(w http.ResponseWriter) {
	configs, activeID := h.configs.Configs()
	writeJSON(w, http.StatusOK, configsBody{Configs: configs, ActiveConfigID: activeID})
}

// setConfigs replaces the whole saved-configuration collection. There is no
// incremental patch on purpose; replace-all has no partial-update edge
// cases.
func (h *GroupsHandler) setConfigs(w http.ResponseWriter, r *http.Request) {
	var body configsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	saved, err := h.configs.Replace(body.Configs, body.ActiveConfigID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configsBody{Configs: saved, ActiveConfigID: body.ActiveConfigID})
}
