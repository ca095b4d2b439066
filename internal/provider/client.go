// HTTP implementation of [Provider] for the hosted budgeting API
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ivymeadows/finmirror/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.monarchmoney.com"

// transactionPageSize is the provider's maximum page size for transaction queries.
const transactionPageSize = 100

// Client implements [Provider] over the budgeting service's REST API.
// Requests are authenticated with a bearer token and throttled by a shared
// rate limiter so history backfills don't trip the upstream's limits.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOpts configures a [Client].
type ClientOpts struct {
	BaseURL   string
	Token     string
	RateLimit float64      // requests per second; <= 0 uses 5 rps
	Base      *http.Client // underlying transport, defaults to http.DefaultClient
}

// NewClient creates a provider client. The token is wrapped in an oauth2
// static token source so every request carries the Authorization header.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: provider token is required", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	ctx := context.Background()
	if opts.Base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.Base)
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: oauth2.NewClient(ctx, source),
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}, nil
}

// Name returns the provider's display name.
func (c *Client) Name() string { return "Monarch Money" }

// get performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderRequest, err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", shared.ErrTimeout, path)
		}
		return fmt.Errorf("%w: %v", shared.ErrProviderRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrProviderRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway {
			return fmt.Errorf("%w: status %d", shared.ErrProviderUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrProviderRequest, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", shared.ErrProviderRequest, err)
	}

	return nil
}

// FetchAccounts retrieves all linked accounts.
func (c *Client) FetchAccounts(ctx context.Context) ([]Account, error) {
	var payload struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.get(ctx, "/api/v1/accounts", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Accounts, nil
}

// FetchAccountHistory retrieves daily balance history for one account,
// filtered to records after since when it is non-empty.
func (c *Client) FetchAccountHistory(ctx context.Context, accountID, since string) ([]HistoryPoint, error) {
	var payload struct {
		History []HistoryPoint `json:"history"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/history", url.PathEscape(accountID))
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, err
	}

	if since == "" {
		return payload.History, nil
	}

	filtered := make([]HistoryPoint, 0, len(payload.History))
	for _, h := range payload.History {
		if h.Date > since {
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}

// FetchCategories retrieves all transaction categories.
func (c *Client) FetchCategories(ctx context.Context) ([]Category, error) {
	var payload struct {
		Categories []Category `json:"categories"`
	}
	if err := c.get(ctx, "/api/v1/categories", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

// FetchTransactions retrieves transactions between start and end dates,
// paginating until the provider reports no further results.
func (c *Client) FetchTransactions(ctx context.Context, start, end string) ([]Transaction, error) {
	var all []Transaction
	offset := 0

	for {
		query := url.Values{}
		if start != "" {
			query.Set("start_date", start)
		}
		if end != "" {
			query.Set("end_date", end)
		}
		query.Set("limit", strconv.Itoa(transactionPageSize))
		query.Set("offset", strconv.Itoa(offset))

		var payload struct {
			Results    []Transaction `json:"results"`
			TotalCount int           `json:"total_count"`
		}
		if err := c.get(ctx, "/api/v1/transactions", query, &payload); err != nil {
			return nil, err
		}

		all = append(all, payload.Results...)
		offset += len(payload.Results)

		if offset >= payload.TotalCount || len(payload.Results) == 0 {
			break
		}
	}

	return all, nil
}

// FetchBudgets retrieves budget-vs-actual rows for months in [start, end].
func (c *Client) FetchBudgets(ctx context.Context, start, end string) ([]BudgetRow, error) {
	query := url.Values{}
	query.Set("start_date", start)
	query.Set("end_date", end)

	var payload struct {
		Budgets []BudgetRow `json:"budgets"`
	}
	if err := c.get(ctx, "/api/v1/budgets", query, &payload); err != nil {
		return nil, err
	}
	return payload.Budgets, nil
}
