package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// StatusClient reads job state from a running dashboard server. It satisfies
// [Source] so a CLI watch session can poll a server it did not start.
type StatusClient struct {
	baseURL string
	client  *http.Client
}

// NewStatusClient builds a StatusClient against the given server base URL,
// e.g. "http://localhost:8080". base overrides the HTTP client for tests.
func NewStatusClient(baseURL string, base *http.Client) *StatusClient {
	if base == nil {
		base = http.DefaultClient
	}
	return &StatusClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  base,
	}
}

func (c *StatusClient) JobStatus(ctx context.Context, jobID string) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := c.getJSON(ctx, "/api/sync/status/"+jobID, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *StatusClient) History(ctx context.Context) ([]models.SyncJob, error) {
	var history []models.SyncJob
	if err := c.getJSON(ctx, "/api/sync/history", &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *StatusClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, path)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
