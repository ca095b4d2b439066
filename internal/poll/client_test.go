package poll

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
)

func TestStatusClient(t *testing.T) {
	t.Run("JobStatusDecodesJob", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/sync/status/j1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(models.SyncJob{
				ID:        "j1",
				Status:    models.StatusRunning,
				StartedAt: time.Now().UTC(),
			})
		}))
		defer server.Close()

		client := NewStatusClient(server.URL, nil)
		job, err := client.JobStatus(context.Background(), "j1")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if job.ID != "j1" || job.Status != models.StatusRunning {
			t.Errorf("unexpected job: %+v", job)
		}
	})

	t.Run("HistoryDecodesList", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/sync/history" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode([]models.SyncJob{
				{ID: "j2", Status: models.StatusSuccess},
				{ID: "j1", Status: models.StatusFailed},
			})
		}))
		defer server.Close()

		client := NewStatusClient(server.URL, nil)
		history, err := client.History(context.Background())
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if len(history) != 2 || history[0].ID != "j2" {
			t.Errorf("unexpected history: %+v", history)
		}
	})

	t.Run("NotFoundMapsToJobNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such job", http.StatusNotFound)
		}))
		defer server.Close()

		client := NewStatusClient(server.URL, nil)
		if _, err := client.JobStatus(context.Background(), "nope"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("ServerErrorIsPlain", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "broken", http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewStatusClient(server.URL, nil)
		_, err := client.History(context.Background())
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
		if errors.Is(err, shared.ErrServerUnreachable) || errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("500 should not map to a sentinel, got %v", err)
		}
	})

	t.Run("ConnectionFailureIsUnreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := NewStatusClient(server.URL, nil)
		if _, err := client.History(context.Background()); !errors.Is(err, shared.ErrServerUnreachable) {
			t.Errorf("expected ErrServerUnreachable, got %v", err)
		}
	})

	t.Run("TrailingSlashInBaseURL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/sync/history" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		client := NewStatusClient(server.URL+"/", nil)
		if _, err := client.History(context.Background()); err != nil {
			t.Errorf("history failed: %v", err)
		}
	})
}
