package models

import (
	"testing"
	"time"
)

func TestOrderEntities(t *testing.T) {
	t.Run("SortsIntoCanonicalOrder", func(t *testing.T) {
		got := OrderEntities([]EntityKind{EntityBudgets, EntityAccounts, EntityTransactions})
		want := []EntityKind{EntityAccounts, EntityTransactions, EntityBudgets}

		if len(got) != len(want) {
			t.Fatalf("expected %d entities, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("Deduplicates", func(t *testing.T) {
		got := OrderEntities([]EntityKind{EntityAccounts, EntityAccounts, EntityAccounts})
		if len(got) != 1 {
			t.Fatalf("expected 1 entity, got %d", len(got))
		}
	})

	t.Run("AccountsAlwaysBeforeHistory", func(t *testing.T) {
		got := OrderEntities([]EntityKind{EntityAccountHistory, EntityAccounts})
		if got[0] != EntityAccounts || got[1] != EntityAccountHistory {
			t.Errorf("expected accounts before account_history, got %v", got)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if got := OrderEntities(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
}

func TestEntityKind(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		for _, entity := range EntityRunOrder {
			if !entity.Valid() {
				t.Errorf("%s should be valid", entity)
			}
		}
		if EntityKind("holdings").Valid() {
			t.Error("unknown kind should be invalid")
		}
	})

	t.Run("Label", func(t *testing.T) {
		if EntityAccountHistory.Label() != "Account History" {
			t.Errorf("unexpected label %q", EntityAccountHistory.Label())
		}
	})
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[EntityKind]EntityResult
		want    JobStatus
	}{
		{
			name: "AllSuccess",
			results: map[EntityKind]EntityResult{
				EntityAccounts:     {Status: StatusSuccess},
				EntityTransactions: {Status: StatusSuccess},
			},
			want: StatusSuccess,
		},
		{
			name: "AllFailed",
			results: map[EntityKind]EntityResult{
				EntityAccounts: {Status: StatusFailed, Error: "boom"},
				EntityBudgets:  {Status: StatusFailed, Error: "boom"},
			},
			want: StatusFailed,
		},
		{
			name: "Mixed",
			results: map[EntityKind]EntityResult{
				EntityAccounts: {Status: StatusSuccess},
				EntityBudgets:  {Status: StatusFailed, Error: "Timeout"},
			},
			want: StatusPartial,
		},
		{
			name: "PartialEntityCountsAsNotFullSuccess",
			results: map[EntityKind]EntityResult{
				EntityAccounts:     {Status: StatusSuccess},
				EntityTransactions: {Status: StatusPartial},
			},
			want: StatusPartial,
		},
		{
			name:    "Empty",
			results: map[EntityKind]EntityResult{},
			want:    StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateStatus(tt.results); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if StatusRunning.Terminal() {
		t.Error("running should not be terminal")
	}
	for _, status := range []JobStatus{StatusSuccess, StatusPartial, StatusFailed} {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
}

func TestSyncJobValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		job := SyncJob{
			ID:        "abc",
			Status:    StatusRunning,
			StartedAt: time.Now(),
			Entities:  []EntityKind{EntityAccounts},
		}
		if err := job.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("NoEntities", func(t *testing.T) {
		job := SyncJob{ID: "abc", Status: StatusRunning, StartedAt: time.Now()}
		if err := job.Validate(); err == nil {
			t.Error("expected error for empty entity set")
		}
	})

	t.Run("UnknownEntity", func(t *testing.T) {
		job := SyncJob{
			ID:        "abc",
			Status:    StatusRunning,
			StartedAt: time.Now(),
			Entities:  []EntityKind{"holdings"},
		}
		if err := job.Validate(); err == nil {
			t.Error("expected error for unknown entity")
		}
	})
}
