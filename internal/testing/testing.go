// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/ivymeadows/finmirror/internal/provider"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// MockProvider is a test double for [provider.Provider]. Each entity's
// response and error are settable independently so a test can make one
// entity fail while its siblings succeed.
type MockProvider struct {
	Accounts     []provider.Account
	AccountsErr  error
	History      map[string][]provider.HistoryPoint
	HistoryErr   error
	Categories   []provider.Category
	CategoryErr  error
	Transactions []provider.Transaction
	TxErr        error
	Budgets      []provider.BudgetRow
	BudgetErr    error

	// Calls records fetch invocations in order, for asserting entity order
	// and sibling isolation.
	Calls []string
}

func (m *MockProvider) FetchAccounts(ctx context.Context) ([]provider.Account, error) {
	m.Calls = append(m.Calls, "accounts")
	return m.Accounts, m.AccountsErr
}

func (m *MockProvider) FetchAccountHistory(ctx context.Context, accountID, since string) ([]provider.HistoryPoint, error) {
	m.Calls = append(m.Calls, "account_history:"+accountID)
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	return m.History[accountID], nil
}

func (m *MockProvider) FetchCategories(ctx context.Context) ([]provider.Category, error) {
	m.Calls = append(m.Calls, "categories")
	return m.Categories, m.CategoryErr
}

func (m *MockProvider) FetchTransactions(ctx context.Context, start, end string) ([]provider.Transaction, error) {
	m.Calls = append(m.Calls, "transactions")
	return m.Transactions, m.TxErr
}

func (m *MockProvider) FetchBudgets(ctx context.Context, start, end string) ([]provider.BudgetRow, error) {
	m.Calls = append(m.Calls, "budgets")
	return m.Budgets, m.BudgetErr
}

func (m *MockProvider) Name() string { return "mock" }

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// RoundTripFunc adapts a function to http.RoundTripper for per-request
// behavior.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MustOpenDB opens an in-memory sqlite database with the full schema
// applied, closed automatically when the test ends.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}
