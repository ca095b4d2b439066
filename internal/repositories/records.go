package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/provider"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// entityTables maps entity kinds to their backing tables. Kept explicit so
// Count can never interpolate caller input into SQL.
var entityTables = map[models.EntityKind]string{
	models.EntityAccounts:       "accounts",
	models.EntityAccountHistory: "account_history",
	models.EntityCategories:     "categories",
	models.EntityTransactions:   "transactions",
	models.EntityBudgets:        "budgets",
}

// UpsertResult reports one batch write: rows written and rows rejected
// (records the provider returned without a usable external id).
type UpsertResult struct {
	Written  int
	Rejected int
}

// RecordStore persists mirrored provider records. All writes are
// INSERT OR REPLACE keyed on the provider's external id, so re-syncs are
// idempotent and "new" counts come from table-count deltas, not row counts.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore creates a RecordStore over the given database handle.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Count returns the total rows stored for the entity.
func (s *RecordStore) Count(entity models.EntityKind) (int, error) {
	table, ok := entityTables[entity]
	if !ok {
		return 0, fmt.Errorf("%w: %s", shared.ErrUnknownEntity, entity)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// UpsertAccounts writes a batch of provider accounts.
func (s *RecordStore) UpsertAccounts(accounts []provider.Account) (UpsertResult, error) {
	var result UpsertResult

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO accounts
			(id, name, type, subtype, current_balance, display_balance,
			 institution, is_hidden, is_asset, include_in_net_worth,
			 last_updated, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	stamp := nowStamp()
	for _, a := range accounts {
		if a.ID == "" {
			result.Rejected++
			continue
		}
		_, err := stmt.Exec(a.ID, a.DisplayName, a.Type, a.Subtype, a.CurrentBalance, a.DisplayBalance,
			a.Institution, boolToInt(a.IsHidden), boolToInt(a.IsAsset), boolToInt(a.IncludeInNetWorth),
			a.UpdatedAt, stamp)
		if err != nil {
			return result, fmt.Errorf("failed to upsert account %s: %w", a.ID, err)
		}
		result.Written++
	}

	return result, tx.Commit()
}

// UpsertAccountHistory writes daily balance points for one account.
func (s *RecordStore) UpsertAccountHistory(accountID string, history []provider.HistoryPoint) (UpsertResult, error) {
	var result UpsertResult

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO account_history (account_id, date, balance) VALUES (?, ?, ?)")
	if err != nil {
		return result, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, h := range history {
		if h.Date == "" {
			result.Rejected++
			continue
		}
		if _, err := stmt.Exec(accountID, h.Date, h.Balance); err != nil {
			return result, fmt.Errorf("failed to upsert history for %s: %w", accountID, err)
		}
		result.Written++
	}

	return result, tx.Commit()
}

// UpsertCategories writes a batch of provider categories.
func (s *RecordStore) UpsertCategories(categories []provider.Category) (UpsertResult, error) {
	var result UpsertResult

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO categories (id, name, group_id, group_name, group_type) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return result, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range categories {
		if c.ID == "" {
			result.Rejected++
			continue
		}
		if _, err := stmt.Exec(c.ID, c.Name, c.GroupID, c.GroupName, c.GroupType); err != nil {
			return result, fmt.Errorf("failed to upsert category %s: %w", c.ID, err)
		}
		result.Written++
	}

	return result, tx.Commit()
}

// UpsertTransactions writes a batch of provider transactions.
func (s *RecordStore) UpsertTransactions(transactions []provider.Transaction) (UpsertResult, error) {
	var result UpsertResult

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO transactions
			(id, date, amount, merchant_name, category_id, category_name,
			 category_group, account_id, account_name, is_pending, is_recurring,
			 notes, hide_from_reports, created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	stamp := nowStamp()
	for _, t := range transactions {
		if t.ID == "" {
			result.Rejected++
			continue
		}
		_, err := stmt.Exec(t.ID, t.Date, t.Amount, t.MerchantName, t.CategoryID, t.CategoryName,
			t.CategoryGroup, t.AccountID, t.AccountName, boolToInt(t.Pending), boolToInt(t.IsRecurring),
			t.Notes, boolToInt(t.HideFromReports), t.CreatedAt, t.UpdatedAt, stamp)
		if err != nil {
			return result, fmt.Errorf("failed to upsert transaction %s: %w", t.ID, err)
		}
		result.Written++
	}

	return result, tx.Commit()
}

// UpsertBudgets writes a batch of budget-vs-actual rows.
func (s *RecordStore) UpsertBudgets(budgets []provider.BudgetRow) (UpsertResult, error) {
	var result UpsertResult

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO budgets (category_id, month, budgeted_amount, actual_amount, variance)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range budgets {
		if b.CategoryID == "" || b.Month == "" {
			result.Rejected++
			continue
		}
		if _, err := stmt.Exec(b.CategoryID, b.Month, b.Budgeted, b.Actual, b.Variance()); err != nil {
			return result, fmt.Errorf("failed to upsert budget %s/%s: %w", b.CategoryID, b.Month, err)
		}
		result.Written++
	}

	return result, tx.Commit()
}

// AccountIDs returns all stored account ids, for history syncs that run
// without an accounts step in the same job.
func (s *RecordStore) AccountIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query account ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestHistoryDate returns the most recent stored history date for the
// account, or empty if none.
func (s *RecordStore) LatestHistoryDate(accountID string) (string, error) {
	var date sql.NullString
	err := s.db.QueryRow(
		"SELECT MAX(date) FROM account_history WHERE account_id = ?", accountID,
	).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to query latest history date: %w", err)
	}
	return date.String, nil
}

// LastSyncDate returns the timestamp of the entity's last successful sync,
// or empty if it has never synced.
func (s *RecordStore) LastSyncDate(entity models.EntityKind) (string, error) {
	var ts sql.NullString
	err := s.db.QueryRow("SELECT last_synced_at FROM sync_log WHERE entity = ?", string(entity)).Scan(&ts)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query sync log: %w", err)
	}
	return ts.String, nil
}

// UpdateSyncLog records a successful sync for the entity: timestamp, rows
// written this run, and the table's total row count.
func (s *RecordStore) UpdateSyncLog(entity models.EntityKind, count int) error {
	total, err := s.Count(entity)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sync_log (entity, last_synced_at, last_sync_count, total_records)
		VALUES (?, ?, ?, ?)`,
		string(entity), nowStamp(), count, total,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync log: %w", err)
	}
	return nil
}

// AccountsSummary returns visible accounts ordered for the dashboard's
// account list (assets first, largest balances first).
func (s *RecordStore) AccountsSummary() ([]models.Account, error) {
	rows, err := s.db.Query(`
		SELECT id, name, type, subtype, institution, current_balance, display_balance,
		       is_asset, is_hidden, include_in_net_worth
		FROM accounts
		WHERE include_in_net_worth = 1 AND is_hidden = 0
		ORDER BY is_asset DESC, type, current_balance DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		var tp, subtype, institution sql.NullString
		var isAsset, isHidden, include int
		err := rows.Scan(&a.ID, &a.Name, &tp, &subtype, &institution,
			&a.CurrentBalance, &a.DisplayBalance, &isAsset, &isHidden, &include)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Type = tp.String
		a.Subtype = subtype.String
		a.Institution = institution.String
		a.IsAsset = isAsset != 0
		a.IsHidden = isHidden != 0
		a.IncludeInNetWorth = include != 0
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
