package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/ivymeadows/finmirror/internal/tasks"
	mock "github.com/ivymeadows/finmirror/internal/testing"
)

type testApp struct {
	handler http.Handler
	jobs    *repositories.JobStore
	groups  *repositories.GroupStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := mock.MustOpenDB(t)
	logger := shared.NewLogger(io.Discard)

	jobs := repositories.NewJobStore(db)
	records := repositories.NewRecordStore(db)
	groups := repositories.NewGroupStore(db)
	settings := repositories.NewSettingStore(db)

	engine := tasks.NewSyncEngine(tasks.EngineOpts{
		Jobs:     jobs,
		Records:  records,
		Provider: &mock.MockProvider{},
		Logger:   logger,
	})

	app := NewApp(AppOpts{
		Engine:   engine,
		Jobs:     jobs,
		Records:  records,
		Groups:   groups,
		Settings: settings,
		Logger:   logger,
	})

	return &testApp{handler: app.Router(), jobs: jobs, groups: groups}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestSyncEndpoints(t *testing.T) {
	t.Run("StartAcceptsJob", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(t, http.MethodPost, "/api/sync/start", map[string]any{
			"entities": []string{"accounts"},
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decode[map[string]string](t, rec)
		if body["job_id"] == "" {
			t.Error("response should carry the job id")
		}
	})

	t.Run("SecondStartConflicts", func(t *testing.T) {
		app := newTestApp(t)

		// Occupy the single job slot without running the engine.
		if _, err := app.jobs.TryStart([]models.EntityKind{models.EntityAccounts}, false); err != nil {
			t.Fatalf("failed to start blocking job: %v", err)
		}

		rec := app.do(t, http.MethodPost, "/api/sync/start", map[string]any{
			"entities": []string{"transactions"},
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("UnknownEntityIsBadRequest", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(t, http.MethodPost, "/api/sync/start", map[string]any{
			"entities": []string{"cryptocurrencies"},
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("MalformedBodyIsBadRequest", func(t *testing.T) {
		app := newTestApp(t)

		req := httptest.NewRequest(http.MethodPost, "/api/sync/start", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("StatusReturnsJob", func(t *testing.T) {
		app := newTestApp(t)

		job, err := app.jobs.TryStart([]models.EntityKind{models.EntityAccounts}, false)
		if err != nil {
			t.Fatalf("failed to start job: %v", err)
		}

		rec := app.do(t, http.MethodGet, "/api/sync/status/"+job.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		got := decode[models.SyncJob](t, rec)
		if got.ID != job.ID || got.Status != models.StatusRunning {
			t.Errorf("unexpected job: %+v", got)
		}
	})

	t.Run("StatusUnknownJobIsNotFound", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(t, http.MethodGet, "/api/sync/status/ghost", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("HistoryListsJobs", func(t *testing.T) {
		app := newTestApp(t)

		job, err := app.jobs.TryStart([]models.EntityKind{models.EntityAccounts}, false)
		if err != nil {
			t.Fatalf("failed to start job: %v", err)
		}
		if err := app.jobs.Finish(job.ID, models.StatusSuccess, ""); err != nil {
			t.Fatalf("failed to finish job: %v", err)
		}

		rec := app.do(t, http.MethodGet, "/api/sync/history", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		history := decode[[]models.SyncJob](t, rec)
		if len(history) != 1 || history[0].ID != job.ID {
			t.Errorf("unexpected history: %+v", history)
		}
	})

	t.Run("LastStatusIsServed", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(t, http.MethodGet, "/api/sync/last-status", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestSettingsEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[map[string]int](t, rec); got["sync_interval_hours"] != 0 {
		t.Errorf("expected auto-sync disabled by default, got %v", got)
	}

	rec = app.do(t, http.MethodPost, "/api/settings", map[string]int{"sync_interval_hours": 6})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(t, http.MethodGet, "/api/settings", nil)
	if got := decode[map[string]int](t, rec); got["sync_interval_hours"] != 6 {
		t.Errorf("expected interval 6 after update, got %v", got)
	}

	rec = app.do(t, http.MethodPost, "/api/settings", map[string]int{"sync_interval_hours": -2})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative interval, got %d", rec.Code)
	}
}

func TestGroupsEndpoints(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(t, http.MethodPost, "/api/groups", map[string]any{
			"name":        "Retirement",
			"color":       "#22C55E",
			"account_ids": []string{"a1", "a2"},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		created := decode[models.Group](t, rec)
		if created.ID == "" || created.Name != "Retirement" {
			t.Fatalf("unexpected group: %+v", created)
		}

		rec = app.do(t, http.MethodGet, "/api/groups/"+created.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		got := decode[models.Group](t, rec)
		if len(got.AccountIDs) != 2 {
			t.Errorf("expected 2 members, got %+v", got)
		}
	})

	t.Run("CreateWithoutNameIsBadRequest", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(t, http.MethodPost, "/api/groups", map[string]any{"name": ""})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("DuplicateNameConflicts", func(t *testing.T) {
		app := newTestApp(t)

		body := map[string]any{"name": "Cash"}
		if rec := app.do(t, http.MethodPost, "/api/groups", body); rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if rec := app.do(t, http.MethodPost, "/api/groups", body); rec.Code != http.StatusConflict {
			t.Errorf("expected 409 for duplicate name, got %d", rec.Code)
		}
	})

	t.Run("ListIncludesConflictRelation", func(t *testing.T) {
		app := newTestApp(t)

		a, err := app.groups.Create("Alpha", "", []string{"shared", "a-only"})
		if err != nil {
			t.Fatalf("failed to create group: %v", err)
		}
		b, err := app.groups.Create("Beta", "", []string{"shared"})
		if err != nil {
			t.Fatalf("failed to create group: %v", err)
		}
		c, err := app.groups.Create("Gamma", "", []string{"c-only"})
		if err != nil {
			t.Fatalf("failed to create group: %v", err)
		}

		rec := app.do(t, http.MethodGet, "/api/groups", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body struct {
			Groups    []models.Group      `json:"groups"`
			Conflicts map[string][]string `json:"conflicts"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode list: %v", err)
		}
		if len(body.Groups) != 3 {
			t.Fatalf("expected 3 groups, got %d", len(body.Groups))
		}
		if len(body.Conflicts[a.ID]) != 1 || body.Conflicts[a.ID][0] != b.ID {
			t.Errorf("expected alpha to conflict with beta, got %v", body.Conflicts[a.ID])
		}
		if len(body.Conflicts[c.ID]) != 0 {
			t.Errorf("gamma should have no conflicts, got %v", body.Conflicts[c.ID])
		}
	})

	t.Run("UpdateReplacesMembers", func(t *testing.T) {
		app := newTestApp(t)

		group, err := app.groups.Create("Savings", "", []string{"a1"})
		if err != nil {
			t.Fatalf("failed to create group: %v", err)
		}

		rec := app.do(t, http.MethodPut, "/api/groups/"+group.ID, map[string]any{
			"name":        "Savings",
			"account_ids": []string{"a2", "a3"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		updated := decode[models.Group](t, rec)
		if len(updated.AccountIDs) != 2 {
			t.Errorf("expected replaced members, got %+v", updated)
		}
	})

	t.Run("DeleteThenNotFound", func(t *testing.T) {
		app := newTestApp(t)

		group, err := app.groups.Create("Doomed", "", nil)
		if err != nil {
			t.Fatalf("failed to create group: %v", err)
		}

		if rec := app.do(t, http.MethodDelete, "/api/groups/"+group.ID, nil); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec := app.do(t, http.MethodGet, "/api/groups/"+group.ID, nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", rec.Code)
		}
	})

	t.Run("ConfigsReplaceRoundTrip", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(t, http.MethodPost, "/api/groups/configs", map[string]any{
			"configs": []map[string]any{
				{"name": "everyday", "group_ids": []string{"g1", "g2"}},
			},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var saved struct {
			Configs []models.SavedConfig `json:"configs"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
			t.Fatalf("failed to decode save response: %v", err)
		}
		if len(saved.Configs) != 1 || saved.Configs[0].ID == "" {
			t.Fatalf("saved config should get an id, got %+v", saved.Configs)
		}

		rec = app.do(t, http.MethodGet, "/api/groups/configs", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got struct {
			Configs        []models.SavedConfig `json:"configs"`
			ActiveConfigID string               `json:"active_config_id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode configs: %v", err)
		}
		if len(got.Configs) != 1 || got.Configs[0].Name != "everyday" {
			t.Errorf("unexpected configs: %+v", got.Configs)
		}
	})

	t.Run("SnapshotIsServed", func(t *testing.T) {
		app := newTestApp(t)

		if _, err := app.groups.Create("Empty", "", nil); err != nil {
			t.Fatalf("failed to create group: %v", err)
		}

		rec := app.do(t, http.MethodGet, "/api/groups/snapshot", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		snapshots := decode[[]models.GroupSnapshot](t, rec)
		if len(snapshots) != 1 {
			t.Errorf("expected 1 snapshot, got %d", len(snapshots))
		}
	})
}
