package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ivymeadows/finmirror/internal/shared"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// respondError maps the shared sentinel errors onto HTTP statuses. Anything
// unrecognized is a 500 with the error text passed through; there is no
// untrusted caller to hide it from.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, shared.ErrSyncInProgress),
		errors.Is(err, shared.ErrDuplicateGroup):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrJobNotFound),
		errors.Is(err, shared.ErrGroupNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrNoEntities),
		errors.Is(err, shared.ErrUnknownEntity),
		errors.Is(err, shared.ErrMissingArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrProviderUnavailable),
		errors.Is(err, shared.ErrTimeout):
		status = http.StatusBadGateway
	}

	writeError(w, status, err.Error())
}
