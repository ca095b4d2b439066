package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// JobStore persists sync job records and is the source of truth for
// "is a job currently running" across process restarts.
type JobStore struct {
	db *sql.DB
}

// NewJobStore creates a JobStore over the given database handle.
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// TryStart atomically checks that no job is running and creates a new one.
// The check and insert are a single conditional statement; zero rows
// affected means another job holds the running slot and the caller gets
// [shared.ErrSyncInProgress] with no record created.
func (s *JobStore) TryStart(entities []models.EntityKind, fullRefresh bool) (*models.SyncJob, error) {
	if len(entities) == 0 {
		return nil, shared.ErrNoEntities
	}
	for _, e := range entities {
		if !e.Valid() {
			return nil, fmt.Errorf("%w: %s", shared.ErrUnknownEntity, e)
		}
	}

	job := &models.SyncJob{
		ID:          shared.GenerateID(),
		Status:      models.StatusRunning,
		StartedAt:   time.Now().UTC(),
		Entities:    models.OrderEntities(entities),
		FullRefresh: fullRefresh,
	}

	entitiesJSON, err := json.Marshal(job.Entities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO sync_jobs (id, started_at, status, entities, full_refresh)
		SELECT ?, ?, 'running', ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM sync_jobs WHERE status = 'running')`,
		job.ID, job.StartedAt.Format(time.RFC3339Nano), string(entitiesJSON), boolToInt(fullRefresh),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check job creation: %w", err)
	}
	if affected == 0 {
		return nil, shared.ErrSyncInProgress
	}

	return job, nil
}

// RecordEntityResult appends one entity's result to a running job's results
// map. Read-modify-write of the results column happens inside a transaction
// so concurrent polls always see a consistent snapshot.
func (s *JobStore) RecordEntityResult(jobID string, entity models.EntityKind, result models.EntityResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw sql.NullString
	err = tx.QueryRow("SELECT results FROM sync_jobs WHERE id = ?", jobID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
	}
	if err != nil {
		return fmt.Errorf("failed to read job results: %w", err)
	}

	results := make(map[models.EntityKind]models.EntityResult)
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &results); err != nil {
			return fmt.Errorf("failed to decode job results: %w", err)
		}
	}
	results[entity] = result

	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode job results: %w", err)
	}

	if _, err := tx.Exec("UPDATE sync_jobs SET results = ? WHERE id = ?", string(encoded), jobID); err != nil {
		return fmt.Errorf("failed to write job results: %w", err)
	}

	return tx.Commit()
}

// Finish sets the job's terminal status and finished_at. The update is
// guarded on status = 'running' so a terminal job can never transition again.
func (s *JobStore) Finish(jobID string, status models.JobStatus, jobError string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %s is not a terminal status", shared.ErrInvalidInput, status)
	}

	var errValue any
	if jobError != "" {
		errValue = jobError
	}

	res, err := s.db.Exec(
		"UPDATE sync_jobs SET status = ?, finished_at = ?, error = ? WHERE id = ? AND status = 'running'",
		string(status), time.Now().UTC().Format(time.RFC3339Nano), errValue, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job finish: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s is not running", shared.ErrJobNotFound, jobID)
	}

	return nil
}

// Get retrieves one job by id, for status polling.
func (s *JobStore) Get(jobID string) (*models.SyncJob, error) {
	row := s.db.QueryRow(
		"SELECT id, started_at, finished_at, status, entities, full_refresh, results, error FROM sync_jobs WHERE id = ?",
		jobID,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Running returns the currently running job, or nil if none.
func (s *JobStore) Running() (*models.SyncJob, error) {
	row := s.db.QueryRow(
		"SELECT id, started_at, finished_at, status, entities, full_refresh, results, error FROM sync_jobs WHERE status = 'running' ORDER BY started_at DESC LIMIT 1",
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running job: %w", err)
	}
	return job, nil
}

// History returns the most recent jobs, newest first.
func (s *JobStore) History(limit int) ([]models.SyncJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		"SELECT id, started_at, finished_at, status, entities, full_refresh, results, error FROM sync_jobs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query job history: %w", err)
	}
	defer rows.Close()

	history := []models.SyncJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		history = append(history, *job)
	}

	return history, rows.Err()
}

// LastStatusPerEntity returns the sync log: when each entity last synced
// successfully and how many records it holds. Used to show "last synced"
// hints before any job has run in the current session.
func (s *JobStore) LastStatusPerEntity() ([]models.EntitySyncState, error) {
	rows, err := s.db.Query(
		"SELECT entity, last_synced_at, last_sync_count, total_records FROM sync_log ORDER BY entity",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer rows.Close()

	states := []models.EntitySyncState{}
	for rows.Next() {
		var state models.EntitySyncState
		var entity, syncedAt string
		if err := rows.Scan(&entity, &syncedAt, &state.LastSyncCount, &state.TotalRecords); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		state.Entity = models.EntityKind(entity)
		if ts, err := time.Parse(time.RFC3339Nano, syncedAt); err == nil {
			state.LastSyncedAt = ts
		}
		states = append(states, state)
	}

	return states, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.SyncJob, error) {
	var job models.SyncJob
	var startedAt string
	var finishedAt, results, jobErr sql.NullString
	var entitiesJSON string
	var fullRefresh int

	err := row.Scan(&job.ID, &startedAt, &finishedAt, &job.Status, &entitiesJSON, &fullRefresh, &results, &jobErr)
	if err != nil {
		return nil, err
	}

	if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		job.StartedAt = ts
	}
	if finishedAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
			job.FinishedAt = &ts
		}
	}
	if err := json.Unmarshal([]byte(entitiesJSON), &job.Entities); err != nil {
		return nil, fmt.Errorf("failed to decode entities: %w", err)
	}
	if results.Valid && results.String != "" {
		if err := json.Unmarshal([]byte(results.String), &job.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results: %w", err)
		}
	}
	job.FullRefresh = fullRefresh != 0
	job.Error = jobErr.String

	return &job, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
