package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/store"
)

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// respondJSON sends data as JSON with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// respondError sends an ErrorResponse.
func respondError(w http.ResponseWriter, status int, message string, details any) {
	respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// errUnknownClient is returned for clients without history.
var errUnknownClient = fmt.Errorf("unknown client: %w", store.ErrNotFound)

// badRequest marks errors caused by the request parameters.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	var bad badRequest
	switch {
	case errors.As(err, &bad),
		errors.Is(err, costbasis.ErrMalformedTransaction),
		errors.Is(err, costbasis.ErrUnknownMethod),
		errors.Is(err, costbasis.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, costbasis.ErrInsufficientLots):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status matching err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		respondError(w, status, "internal error", nil)
		return
	}
	respondError(w, status, http.StatusText(status), err.Error())
}

// rejection is a malformed record skipped from a batch.
type rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func rejections(errs []*costbasis.MalformedTransactionError) []rejection {
	var list []rejection
	for _, e := range errs {
		list = append(list, rejection{Index: e.Index, ID: e.ID, Field: e.Field, Reason: e.Reason})
	}
	return list
}
