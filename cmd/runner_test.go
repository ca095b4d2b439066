package main

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
	tu "github.com/ivymeadows/finmirror/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			mock := &tu.MockProvider{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Provider:   mock,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.provider != mock {
				t.Error("expected provider to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}
	})
}

func TestParseEntities(t *testing.T) {
	t.Run("empty means every entity", func(t *testing.T) {
		entities, err := parseEntities(nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(entities) != len(models.EntityRunOrder) {
			t.Errorf("expected full run order, got %v", entities)
		}
	})

	t.Run("valid names pass through", func(t *testing.T) {
		entities, err := parseEntities([]string{"accounts", "budgets"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(entities) != 2 || entities[0] != models.EntityAccounts || entities[1] != models.EntityBudgets {
			t.Errorf("unexpected entities: %v", entities)
		}
	})

	t.Run("unknown name is rejected", func(t *testing.T) {
		if _, err := parseEntities([]string{"stocks"}); !errors.Is(err, shared.ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
	})
}

func TestWriteJob(t *testing.T) {
	now := time.Now().UTC()
	job := &models.SyncJob{
		ID:         "job-1",
		Status:     models.StatusPartial,
		StartedAt:  now,
		FinishedAt: &now,
		Entities:   []models.EntityKind{models.EntityAccounts, models.EntityTransactions, models.EntityBudgets},
		Results: map[models.EntityKind]models.EntityResult{
			models.EntityAccounts:     {Status: models.StatusSuccess, Count: 67, New: 0},
			models.EntityTransactions: {Status: models.StatusFailed, Error: "Timeout"},
		},
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output})

	if err := runner.writeJob(job); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result := output.String()
	if !strings.Contains(result, "Job job-1: partial") {
		t.Errorf("expected job header, got %q", result)
	}
	if !strings.Contains(result, "67 stored, 0 new") {
		t.Errorf("expected accounts counts, got %q", result)
	}
	if !strings.Contains(result, "failed: Timeout") {
		t.Errorf("expected transaction failure line, got %q", result)
	}
	// Budgets has no result yet.
	if !strings.Contains(result, "pending") {
		t.Errorf("expected pending line for budgets, got %q", result)
	}
}
