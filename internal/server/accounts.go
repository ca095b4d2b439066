package server

import (
	"net/http"

	"github.com/ivymeadows/finmirror/internal/repositories"
)

// AccountsHandler serves the mirrored account summary used by the dashboard
// and by the group editor's account picker.
type AccountsHandler struct {
	records *repositories.RecordStore
}

// NewAccountsHandler creates an AccountsHandler.
func NewAccountsHandler(records *repositories.RecordStore) *AccountsHandler {
	return &AccountsHandler{records: records}
}

// Routes returns the HTTP routes this handler serves.
func (h *AccountsHandler) Routes() []string {
	return []string{"GET /api/accounts/summary"}
}

func (h *AccountsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.records.AccountsSummary()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}
