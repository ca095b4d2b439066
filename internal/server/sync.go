package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/ivymeadows/finmirror/internal/tasks"
)

// SyncHandler serves the sync-job lifecycle endpoints: start, status,
// history and the per-entity last-sync summary.
type SyncHandler struct {
	engine *tasks.SyncEngine
	jobs   *repositories.JobStore
	logger *log.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(engine *tasks.SyncEngine, jobs *repositories.JobStore, logger *log.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, jobs: jobs, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *SyncHandler) Routes() []string {
	return []string{
		"POST /api/sync/start",
		"GET /api/sync/status/{id}",
		"GET /api/sync/history",
		"GET /api/sync/last-status",
	}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/sync/start":
		h.start(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/sync/history":
		h.history(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/sync/last-status":
		h.lastStatus(w)
	case r.Method == http.MethodGet && r.PathValue("id") != "":
		h.status(w, r.PathValue("id"))
	default:
		http.NotFound(w, r)
	}
}

type startRequest struct {
	Entities    []models.EntityKind `json:"entities"`
	FullRefresh bool                `json:"full_refresh"`
}

type startResponse struct {
	JobID string `json:"job_id"`
}

// start submits a sync job. The job runs in the background; the response
// carries only the id for the caller to poll. A second start while a job is
// running is rejected with 409 and creates no record.
func (h *SyncHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	job, err := h.engine.Start(req.Entities, req.FullRefresh)
	if err != nil {
		respondError(w, err)
		return
	}

	h.logger.Info("sync started", "job_id", job.ID, "entities", job.Entities, "full_refresh", job.FullRefresh)
	writeJSON(w, http.StatusAccepted, startResponse{JobID: job.ID})
}

func (h *SyncHandler) status(w http.ResponseWriter, jobID string) {
	job, err := h.jobs.Get(jobID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *SyncHandler) history(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.History(0)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *SyncHandler) lastStatus(w http.ResponseWriter) {
	states, err := h.jobs.LastStatusPerEntity()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}
