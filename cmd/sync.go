package main

import (
	"context"
	"fmt"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/poll"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/ivymeadows/finmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncStart runs a sync job in-process and streams progress to the
// terminal. The job record is persisted exactly as it would be under the
// server, so a later `sync history` shows it.
func (r *Runner) SyncStart(ctx context.Context, cmd *cli.Command) error {
	if r.provider == nil {
		return fmt.Errorf("%w: set provider.token in config.toml", shared.ErrMissingCredentials)
	}

	entities, err := parseEntities(cmd.StringSlice("entity"))
	if err != nil {
		return err
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	s := newStores(db)
	engine := r.newEngine(s)

	job, err := s.jobs.TryStart(entities, cmd.Bool("full"))
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
		close(done)
	}()

	runErr := engine.Run(ctx, job, progress)
	close(progress)
	<-done

	if runErr != nil {
		return runErr
	}

	finished, err := s.jobs.Get(job.ID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(finished, true)
	}
	return r.writeJob(finished)
}

// SyncStatus shows one persisted job record.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.StringArg("job-id")
	if jobID == "" {
		return fmt.Errorf("%w: job-id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := newStores(db).jobs.Get(jobID)
	if err != nil {
		return err
	}
	return r.writeJSON(job, cmd.Bool("pretty"))
}

// SyncHistory lists recent jobs, most recent first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := newStores(db).jobs.History(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}

	for _, job := range jobs {
		finished := "running"
		if job.FinishedAt != nil {
			finished = job.FinishedAt.Format("2006-01-02 15:04:05")
		}
		r.writePlain("%s  %-7s  %d entities  %s\n", job.ID, job.Status, len(job.Entities), finished)
	}
	return nil
}

// SyncWatch polls a job on a running dashboard server until it reaches a
// terminal state. Without a job id it resumes the most recent running job
// from the server's history, if any.
func (r *Runner) SyncWatch(ctx context.Context, cmd *cli.Command) error {
	source := poll.NewStatusClient(cmd.String("server"), r.httpClient)
	poller := poll.NewPoller(source, r.logger, 0)

	jobID := cmd.StringArg("job-id")
	if jobID != "" {
		// Validate up front; the poller treats fetch errors as transient
		// and would retry a bad id forever.
		job, err := source.JobStatus(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return r.writeJob(job)
		}
		poller.Track(job.ID, job.Entities, job.FullRefresh)
	} else {
		history, err := poller.Resume(ctx)
		if err != nil {
			return err
		}
		if poller.State() != poll.Polling {
			r.writePlain("No running job to watch (%d jobs in history)\n", len(history))
			return nil
		}
		r.writePlain("Resuming watch of job %s\n", poller.Job().ID)
	}

	defer poller.Stop()

	for update := range poller.Updates() {
		switch {
		case update.Stale:
			r.writePlain("status unavailable, retrying (last data may be stale)\n")
		case update.State == poll.Terminal:
			r.writePlain("Job finished: %s\n", update.Job.Status)
			return r.writeJob(update.Job)
		default:
			r.writePlain("job %s: %s (%d/%d results)\n",
				update.Job.ID, update.Job.Status, len(update.Job.Results), len(update.Job.Entities))
		}
	}
	return nil
}

// writeJob prints a per-entity outcome table for a job record.
func (r *Runner) writeJob(job *models.SyncJob) error {
	r.writePlain("Job %s: %s\n", job.ID, job.Status)
	if job.Error != "" {
		r.writePlain("  error: %s\n", job.Error)
	}
	for _, entity := range job.Entities {
		result, ok := job.Results[entity]
		if !ok {
			r.writePlain("  %-16s pending\n", entity.Label())
			continue
		}
		if result.Status == models.StatusFailed {
			r.writePlain("  %-16s failed: %s\n", entity.Label(), result.Error)
			continue
		}
		r.writePlain("  %-16s %s (%d stored, %d new)\n", entity.Label(), result.Status, result.Count, result.New)
	}
	return nil
}

// parseEntities converts --entity flags to entity kinds; empty means all.
func parseEntities(raw []string) ([]models.EntityKind, error) {
	if len(raw) == 0 {
		return models.EntityRunOrder, nil
	}

	entities := make([]models.EntityKind, 0, len(raw))
	for _, value := range raw {
		entity := models.EntityKind(value)
		if !entity.Valid() {
			return nil, fmt.Errorf("%w: %q", shared.ErrUnknownEntity, value)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
