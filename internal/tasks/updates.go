package tasks

import (
	"fmt"

	"github.com/ivymeadows/finmirror/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase             // Operation phase
	Entity  models.EntityKind // Entity being processed, empty for job-level events
	Step    int               // Current step number within the job
	Total   int               // Total steps in the job
	Message string            // Human-readable message for display
	Data    any               // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	JobStart Phase = iota
	FetchEntity
	EntityDone
	JobDone
)

func (p Phase) String() string {
	switch p {
	case JobStart:
		return "job_start"
	case FetchEntity:
		return "fetch_entity"
	case EntityDone:
		return "entity_done"
	case JobDone:
		return "job_done"
	default:
		return ""
	}
}

func jobStartUpdate(job *models.SyncJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobStart,
		Step:    0,
		Total:   len(job.Entities),
		Message: fmt.Sprintf("Syncing %d entities...", len(job.Entities)),
		Data:    job,
	}
}

func fetchEntityUpdate(step, total int, entity models.EntityKind) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchEntity,
		Entity:  entity,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, entity.Label()),
	}
}

func entityDoneUpdate(step, total int, entity models.EntityKind, result models.EntityResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d stored, %d new)", step, total, entity.Label(), result.Count, result.New)
	if result.Status == models.StatusFailed {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, entity.Label(), result.Error)
	}
	return ProgressUpdate{
		Phase:   EntityDone,
		Entity:  entity,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    result,
	}
}

func jobDoneUpdate(total int, status models.JobStatus) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobDone,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Sync finished: %s", status),
		Data:    status,
	}
}
