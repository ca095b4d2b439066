// package models defines the data model for the finmirror dashboard service
package models

import (
	"fmt"
	"time"
)

// EntityKind identifies one category of externally-sourced data that is
// fetched and persisted as a unit.
type EntityKind string

const (
	EntityAccounts       EntityKind = "accounts"
	EntityAccountHistory EntityKind = "account_history"
	EntityCategories     EntityKind = "categories"
	EntityTransactions   EntityKind = "transactions"
	EntityBudgets        EntityKind = "budgets"
)

// EntityRunOrder is the canonical execution order for a sync job. Account
// history depends on the account list, transactions on categories, so the
// order is fixed regardless of how the caller listed the entities.
var EntityRunOrder = []EntityKind{
	EntityAccounts,
	EntityAccountHistory,
	EntityCategories,
	EntityTransactions,
	EntityBudgets,
}

// Valid reports whether k names a known entity kind.
func (k EntityKind) Valid() bool {
	for _, e := range EntityRunOrder {
		if e == k {
			return true
		}
	}
	return false
}

// Label returns the human-readable name for the entity kind.
func (k EntityKind) Label() string {
	switch k {
	case EntityAccounts:
		return "Accounts"
	case EntityAccountHistory:
		return "Account History"
	case EntityCategories:
		return "Categories"
	case EntityTransactions:
		return "Transactions"
	case EntityBudgets:
		return "Budgets"
	default:
		return string(k)
	}
}

// OrderEntities returns the requested entities sorted into canonical run
// order, dropping duplicates. Unknown kinds sort last so validation errors
// are attributable.
func OrderEntities(selected []EntityKind) []EntityKind {
	index := make(map[EntityKind]int, len(EntityRunOrder))
	for i, e := range EntityRunOrder {
		index[e] = i
	}

	seen := make(map[EntityKind]bool, len(selected))
	ordered := make([]EntityKind, 0, len(selected))
	for _, e := range EntityRunOrder {
		for _, s := range selected {
			if s == e && !seen[s] {
				seen[s] = true
				ordered = append(ordered, s)
			}
		}
	}
	for _, s := range selected {
		if !seen[s] {
			seen[s] = true
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// JobStatus is the lifecycle state of a sync job. A job starts running and
// reaches exactly one terminal status.
type JobStatus string

const (
	StatusRunning JobStatus = "running"
	StatusSuccess JobStatus = "success"
	StatusPartial JobStatus = "partial"
	StatusFailed  JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusPartial || s == StatusFailed
}

// EntityResult records the outcome of one entity's fetch+persist cycle.
// Created atomically when the attempt completes and never mutated after.
type EntityResult struct {
	Status JobStatus `json:"status"`
	Count  int       `json:"count"` // total records now stored for the entity
	New    int       `json:"new"`   // records added or updated by this run
	Error  string    `json:"error,omitempty"`
}

// SyncJob is one execution attempt covering a chosen set of entities.
type SyncJob struct {
	ID          string                      `json:"id"`
	Status      JobStatus                   `json:"status"`
	StartedAt   time.Time                   `json:"started_at"`
	FinishedAt  *time.Time                  `json:"finished_at"`
	Entities    []EntityKind                `json:"entities"`
	FullRefresh bool                        `json:"full_refresh"`
	Results     map[EntityKind]EntityResult `json:"results,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// AggregateStatus derives the terminal status for a job from its entity
// results: success iff all succeeded, failed iff all failed, partial for
// any mix with at least one non-failure.
func AggregateStatus(results map[EntityKind]EntityResult) JobStatus {
	if len(results) == 0 {
		return StatusFailed
	}

	successes, failures := 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			successes++
		case StatusFailed:
			failures++
		}
	}

	switch {
	case successes == len(results):
		return StatusSuccess
	case failures == len(results):
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Validate checks the job's creation-time invariants.
func (j *SyncJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if len(j.Entities) == 0 {
		return fmt.Errorf("at least one entity must be selected")
	}
	for _, e := range j.Entities {
		if !e.Valid() {
			return fmt.Errorf("unknown entity: %s", e)
		}
	}
	return nil
}

// EntitySyncState summarizes the most recent successful sync of one entity,
// used to show "last synced" hints before any job has run this session.
type EntitySyncState struct {
	Entity        EntityKind `json:"entity"`
	LastSyncedAt  time.Time  `json:"last_synced_at"`
	LastSyncCount int        `json:"last_sync_count"`
	TotalRecords  int        `json:"total_records"`
}

// Group is a named set of account ids used for dashboard filtering. Two
// groups sharing an account id conflict; conflicts are derived, not stored.
type Group struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	AccountIDs []string  `json:"account_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

// SavedConfig is a saved multi-group selection restorable as a dashboard view.
type SavedConfig struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	GroupIDs []string `json:"group_ids"`
}

// Account is a mirrored provider account, trimmed to dashboard needs.
type Account struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Subtype           string  `json:"subtype"`
	Institution       string  `json:"institution"`
	CurrentBalance    float64 `json:"current_balance"`
	DisplayBalance    float64 `json:"display_balance"`
	IsAsset           bool    `json:"is_asset"`
	IsHidden          bool    `json:"is_hidden"`
	IncludeInNetWorth bool    `json:"include_in_net_worth"`
}

// GroupSnapshot is a per-group balance rollup for the selection view.
type GroupSnapshot struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Color        string  `json:"color"`
	Total        float64 `json:"total"`
	AccountCount int     `json:"account_count"`
}
