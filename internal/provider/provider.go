package provider

import (
	"context"
)

// Provider defines the interface for the upstream budgeting service the
// dashboard mirrors. One method per entity kind; each returns normalized
// records ready to hand to the repositories layer.
type Provider interface {
	// FetchAccounts retrieves all linked accounts.
	FetchAccounts(ctx context.Context) ([]Account, error)

	// FetchAccountHistory retrieves daily balance history for one account.
	// When since is non-empty (YYYY-MM-DD) only later records are returned.
	FetchAccountHistory(ctx context.Context, accountID, since string) ([]HistoryPoint, error)

	// FetchCategories retrieves all transaction categories.
	FetchCategories(ctx context.Context) ([]Category, error)

	// FetchTransactions retrieves transactions between start and end dates
	// (YYYY-MM-DD), paginating until the full result set is retrieved.
	FetchTransactions(ctx context.Context, start, end string) ([]Transaction, error)

	// FetchBudgets retrieves budget-vs-actual rows for months in [start, end].
	FetchBudgets(ctx context.Context, start, end string) ([]BudgetRow, error)

	// Name returns the provider's display name.
	Name() string
}

// Account is a provider account record.
type Account struct {
	ID                string  `json:"id"`
	DisplayName       string  `json:"display_name"`
	Type              string  `json:"type"`
	Subtype           string  `json:"subtype"`
	CurrentBalance    float64 `json:"current_balance"`
	DisplayBalance    float64 `json:"display_balance"`
	Institution       string  `json:"institution"`
	IsHidden          bool    `json:"is_hidden"`
	IsAsset           bool    `json:"is_asset"`
	IncludeInNetWorth bool    `json:"include_in_net_worth"`
	UpdatedAt         string  `json:"updated_at"`
}

// HistoryPoint is one day's closing balance for an account.
type HistoryPoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"signed_balance"`
}

// Category is a provider transaction category.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	GroupType string `json:"group_type"`
}

// Transaction is a provider transaction record.
type Transaction struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	Amount          float64 `json:"amount"`
	MerchantName    string  `json:"merchant_name"`
	CategoryID      string  `json:"category_id"`
	CategoryName    string  `json:"category_name"`
	CategoryGroup   string  `json:"category_group"`
	AccountID       string  `json:"account_id"`
	AccountName     string  `json:"account_name"`
	Pending         bool    `json:"pending"`
	IsRecurring     bool    `json:"is_recurring"`
	Notes           string  `json:"notes"`
	HideFromReports bool    `json:"hide_from_reports"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// BudgetRow is one category-month of budgeted vs actual amounts.
type BudgetRow struct {
	CategoryID string  `json:"category_id"`
	Month      string  `json:"month"`
	Budgeted   float64 `json:"budgeted"`
	Actual     float64 `json:"actual"`
}

// Variance is the budgeted amount minus the actual amount for the month.
func (b BudgetRow) Variance() float64 {
	return b.Budgeted - b.Actual
}
