package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/provider"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// SyncEngine executes sync jobs against the provider and record store.
// Contains dependencies on the job store (the concurrency gate), the record
// store, and the provider client.
type SyncEngine struct {
	jobs     *repositories.JobStore
	records  *repositories.RecordStore
	provider provider.Provider
	logger   *log.Logger

	fetchTimeout         time.Duration
	txLookbackDays       int
	budgetLookbackMonths int
}

// EngineOpts contains configuration options for creating a SyncEngine.
type EngineOpts struct {
	Jobs     *repositories.JobStore
	Records  *repositories.RecordStore
	Provider provider.Provider
	Logger   *log.Logger

	FetchTimeout         time.Duration // per-entity provider timeout
	TxLookbackDays       int           // incremental transaction overlap window
	BudgetLookbackMonths int           // budget window on any refresh
}

// NewSyncEngine creates a SyncEngine with the provided dependencies.
func NewSyncEngine(opts EngineOpts) *SyncEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 60 * time.Second
	}
	if opts.TxLookbackDays <= 0 {
		opts.TxLookbackDays = 3
	}
	if opts.BudgetLookbackMonths <= 0 {
		opts.BudgetLookbackMonths = 12
	}

	return &SyncEngine{
		jobs:                 opts.Jobs,
		records:              opts.Records,
		provider:             opts.Provider,
		logger:               opts.Logger,
		fetchTimeout:         opts.FetchTimeout,
		txLookbackDays:       opts.TxLookbackDays,
		budgetLookbackMonths: opts.BudgetLookbackMonths,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Start creates a job through the store's atomic concurrency gate and runs
// it on a background goroutine. The concurrency error is returned
// synchronously; everything after that is observable only by polling.
// The job keeps running if the caller's request context ends.
func (e *SyncEngine) Start(entities []models.EntityKind, fullRefresh bool) (*models.SyncJob, error) {
	job, err := e.jobs.TryStart(entities, fullRefresh)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := e.Run(context.Background(), job, nil); err != nil {
			e.logger.Error("sync job failed", "job_id", job.ID, "error", err)
		}
	}()

	return job, nil
}

// StartWithProgress behaves like Start but streams [ProgressUpdate]s to the
// given channel while the job runs. The engine never closes the channel; the
// JobDone update is the last send.
func (e *SyncEngine) StartWithProgress(entities []models.EntityKind, fullRefresh bool, progress chan<- ProgressUpdate) (*models.SyncJob, error) {
	job, err := e.jobs.TryStart(entities, fullRefresh)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := e.Run(context.Background(), job, progress); err != nil {
			e.logger.Error("sync job failed", "job_id", job.ID, "error", err)
		}
	}()

	return job, nil
}

// Run executes one already-created job to completion: every requested entity
// is attempted in order, per-entity outcomes are recorded incrementally so
// polls see live progress, and the terminal status is derived at the end.
// The returned error covers job-level failures only; entity failures are
// data, not errors.
func (e *SyncEngine) Run(ctx context.Context, job *models.SyncJob, progress chan<- ProgressUpdate) error {
	total := len(job.Entities)
	e.sendProgress(progress, jobStartUpdate(job))
	e.logger.Info("sync started", "job_id", job.ID, "entities", len(job.Entities), "full_refresh", job.FullRefresh)

	if e.provider == nil {
		err := fmt.Errorf("%w: provider not initialized", shared.ErrProviderUnavailable)
		if finishErr := e.jobs.Finish(job.ID, models.StatusFailed, err.Error()); finishErr != nil {
			return finishErr
		}
		return err
	}

	results := make(map[models.EntityKind]models.EntityResult, total)

	// syncedAccounts carries the accounts step's output to the history step
	// so one job doesn't fetch the account list twice.
	var syncedAccounts []provider.Account

	for i, entity := range job.Entities {
		e.sendProgress(progress, fetchEntityUpdate(i+1, total, entity))

		before, countErr := e.records.Count(entity)
		if countErr != nil && i == 0 && len(results) == 0 {
			// Store unusable before any entity was attempted: job-level failure.
			e.logger.Error("store unavailable", "job_id", job.ID, "error", countErr)
			return e.jobs.Finish(job.ID, models.StatusFailed, countErr.Error())
		}

		result := models.EntityResult{Status: models.StatusSuccess}

		if countErr != nil {
			result.Status = models.StatusFailed
			result.Error = countErr.Error()
		} else {
			entityCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
			upsert, err := e.syncEntity(entityCtx, entity, job.FullRefresh, &syncedAccounts)
			cancel()

			switch {
			case err != nil:
				result.Status = models.StatusFailed
				result.Error = err.Error()
			case upsert.Rejected > 0:
				result.Status = models.StatusPartial
			}

			after, err := e.records.Count(entity)
			if err == nil {
				result.Count = after
				result.New = after - before
			}

			if result.Status != models.StatusFailed {
				if err := e.records.UpdateSyncLog(entity, upsert.Written); err != nil {
					e.logger.Warn("failed to update sync log", "entity", entity, "error", err)
				}
			}
		}

		results[entity] = result
		if err := e.jobs.RecordEntityResult(job.ID, entity, result); err != nil {
			e.logger.Warn("failed to record entity result", "job_id", job.ID, "entity", entity, "error", err)
		}
		e.sendProgress(progress, entityDoneUpdate(i+1, total, entity, result))
	}

	status := models.AggregateStatus(results)
	if err := e.jobs.Finish(job.ID, status, ""); err != nil {
		return err
	}

	e.sendProgress(progress, jobDoneUpdate(total, status))
	e.logger.Info("sync finished", "job_id", job.ID, "status", status)
	return nil
}

// syncEntity performs one entity's fetch+persist cycle.
func (e *SyncEngine) syncEntity(ctx context.Context, entity models.EntityKind, fullRefresh bool, syncedAccounts *[]provider.Account) (repositories.UpsertResult, error) {
	switch entity {
	case models.EntityAccounts:
		accounts, err := e.provider.FetchAccounts(ctx)
		if err != nil {
			return repositories.UpsertResult{}, err
		}
		*syncedAccounts = accounts
		return e.records.UpsertAccounts(accounts)

	case models.EntityAccountHistory:
		return e.syncAccountHistory(ctx, fullRefresh, *syncedAccounts)

	case models.EntityCategories:
		categories, err := e.provider.FetchCategories(ctx)
		if err != nil {
			return repositories.UpsertResult{}, err
		}
		return e.records.UpsertCategories(categories)

	case models.EntityTransactions:
		start := ""
		if !fullRefresh {
			start = e.transactionStart()
		}
		transactions, err := e.provider.FetchTransactions(ctx, start, "")
		if err != nil {
			return repositories.UpsertResult{}, err
		}
		return e.records.UpsertTransactions(transactions)

	case models.EntityBudgets:
		start, end := e.budgetWindow(time.Now().UTC())
		budgets, err := e.provider.FetchBudgets(ctx, start, end)
		if err != nil {
			return repositories.UpsertResult{}, err
		}
		return e.records.UpsertBudgets(budgets)

	default:
		return repositories.UpsertResult{}, fmt.Errorf("%w: %s", shared.ErrUnknownEntity, entity)
	}
}

// syncAccountHistory fetches balance history per account. When the accounts
// step didn't run in this job, account ids come from the store instead.
func (e *SyncEngine) syncAccountHistory(ctx context.Context, fullRefresh bool, syncedAccounts []provider.Account) (repositories.UpsertResult, error) {
	var ids []string
	if len(syncedAccounts) > 0 {
		for _, a := range syncedAccounts {
			ids = append(ids, a.ID)
		}
	} else {
		stored, err := e.records.AccountIDs()
		if err != nil {
			return repositories.UpsertResult{}, err
		}
		ids = stored
	}

	var total repositories.UpsertResult
	for _, id := range ids {
		since := ""
		if !fullRefresh {
			latest, err := e.records.LatestHistoryDate(id)
			if err != nil {
				return total, err
			}
			since = latest
		}

		history, err := e.provider.FetchAccountHistory(ctx, id, since)
		if err != nil {
			return total, err
		}
		if len(history) == 0 {
			continue
		}

		result, err := e.records.UpsertAccountHistory(id, history)
		total.Written += result.Written
		total.Rejected += result.Rejected
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// transactionStart returns the incremental fetch start date: the last
// successful transaction sync minus the lookback window, so pending
// transactions near the boundary get re-pulled.
func (e *SyncEngine) transactionStart() string {
	lastSync, err := e.records.LastSyncDate(models.EntityTransactions)
	if err != nil || lastSync == "" {
		return ""
	}

	ts, err := time.Parse(time.RFC3339Nano, lastSync)
	if err != nil {
		return ""
	}

	return ts.AddDate(0, 0, -e.txLookbackDays).Format("2006-01-02")
}

// budgetWindow returns the budget fetch range: the first of the month
// budgetLookbackMonths back, through the first of the current month.
func (e *SyncEngine) budgetWindow(now time.Time) (string, string) {
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -e.budgetLookbackMonths, 0)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}
