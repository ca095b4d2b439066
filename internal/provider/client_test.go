package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ivymeadows/finmirror/internal/shared"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOpts{
		BaseURL:   server.URL,
		Token:     "test-token",
		RateLimit: 1000, // don't throttle tests
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, server
}

func TestNewClient(t *testing.T) {
	t.Run("RequiresToken", func(t *testing.T) {
		if _, err := NewClient(ClientOpts{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("DefaultsBaseURL", func(t *testing.T) {
		client, err := NewClient(ClientOpts{Token: "tok"})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if client.baseURL != defaultBaseURL {
			t.Errorf("expected default base url, got %s", client.baseURL)
		}
	})
}

func TestClientAuth(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		w.Write([]byte(`{"accounts": []}`))
	}))

	if _, err := client.FetchAccounts(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
}

func TestFetchAccounts(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"accounts": []Account{
				{ID: "a1", DisplayName: "Checking", CurrentBalance: 1200},
				{ID: "a2", DisplayName: "Savings", CurrentBalance: 8000},
			},
		})
	}))

	accounts, err := client.FetchAccounts(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(accounts) != 2 || accounts[0].DisplayName != "Checking" {
		t.Errorf("unexpected accounts: %+v", accounts)
	}
}

func TestFetchAccountHistory(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/a1/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"history": []HistoryPoint{
				{Date: "2025-05-30", Balance: 90},
				{Date: "2025-05-31", Balance: 95},
				{Date: "2025-06-01", Balance: 100},
			},
		})
	})

	t.Run("FullHistory", func(t *testing.T) {
		client, _ := newTestClient(t, handler)
		history, err := client.FetchAccountHistory(context.Background(), "a1", "")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(history) != 3 {
			t.Errorf("expected 3 points, got %d", len(history))
		}
	})

	t.Run("SinceFiltersStrictlyAfter", func(t *testing.T) {
		client, _ := newTestClient(t, handler)
		history, err := client.FetchAccountHistory(context.Background(), "a1", "2025-05-31")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		// Only dates strictly after since come back.
		if len(history) != 1 || history[0].Date != "2025-06-01" {
			t.Errorf("unexpected filtered history: %+v", history)
		}
	})
}

func TestFetchTransactionsPagination(t *testing.T) {
	const total = 250

	var requests []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit != transactionPageSize {
			t.Errorf("expected limit %d, got %d", transactionPageSize, limit)
		}

		count := limit
		if offset+count > total {
			count = total - offset
		}
		page := make([]Transaction, 0, count)
		for i := 0; i < count; i++ {
			page = append(page, Transaction{ID: fmt.Sprintf("t%d", offset+i), Date: "2025-06-01"})
		}

		json.NewEncoder(w).Encode(map[string]any{
			"results":     page,
			"total_count": total,
		})
	}))

	txns, err := client.FetchTransactions(context.Background(), "2025-01-01", "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(txns) != total {
		t.Errorf("expected %d transactions, got %d", total, len(txns))
	}
	if len(requests) != 3 {
		t.Errorf("expected 3 pages, got %d: %v", len(requests), requests)
	}
	if txns[0].ID != "t0" || txns[total-1].ID != fmt.Sprintf("t%d", total-1) {
		t.Errorf("pages out of order: first %s last %s", txns[0].ID, txns[len(txns)-1].ID)
	}
}

func TestFetchTransactionsEmptyPageStops(t *testing.T) {
	// A provider that lies about total_count must not loop forever.
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results":     []Transaction{},
			"total_count": 9999,
		})
	}))

	txns, err := client.FetchTransactions(context.Background(), "", "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("expected no transactions, got %d", len(txns))
	}
}

func TestFetchBudgets(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("start_date"); got != "2025-03-01" {
			t.Errorf("unexpected start_date %q", got)
		}
		if got := r.URL.Query().Get("end_date"); got != "2025-06-01" {
			t.Errorf("unexpected end_date %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"budgets": []BudgetRow{{CategoryID: "c1", Month: "2025-05-01", Budgeted: 500, Actual: 410}},
		})
	}))

	budgets, err := client.FetchBudgets(context.Background(), "2025-03-01", "2025-06-01")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(budgets) != 1 || budgets[0].Variance() != 90 {
		t.Errorf("unexpected budgets: %+v", budgets)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Run("ServiceUnavailable", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		}))
		if _, err := client.FetchAccounts(context.Background()); !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("BadGateway", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream", http.StatusBadGateway)
		}))
		if _, err := client.FetchCategories(context.Background()); !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("OtherStatusIsRequestError", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}))
		if _, err := client.FetchAccounts(context.Background()); !errors.Is(err, shared.ErrProviderRequest) {
			t.Errorf("expected ErrProviderRequest, got %v", err)
		}
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		if _, err := client.FetchAccounts(context.Background()); !errors.Is(err, shared.ErrProviderRequest) {
			t.Errorf("expected ErrProviderRequest, got %v", err)
		}
	})
}
