package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cleanco/backend/pkg/apperror"
)

// ProblemDetails is the RFC 7807 error envelope returned by every failing
// request. request_id lets support correlate a report with server logs;
// errors carries field-level validation detail when present.
type ProblemDetails struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Respond writes v as a JSON body with the given status code.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// RespondProblem writes a Problem-Details error response for a raw kind/message
// pair, without an underlying *apperror.Error.
func RespondProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	Respond(w, status, ProblemDetails{
		Type:      "https://cleanco.example/problems/" + title,
		Title:     title,
		Status:    status,
		Detail:    detail,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// RespondAppError translates a domain error into a Problem-Details response.
// Errors that are not *apperror.Error are treated as internal errors and
// logged at error level without leaking their detail to the client.
func RespondAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ae := apperror.As(err)
	if ae == nil {
		logger.Error("unhandled internal error", "error", err, "request_id", RequestIDFromContext(r.Context()))
		RespondProblem(w, r, http.StatusInternalServerError, string(apperror.KindInternal), "an internal error occurred")
		return
	}

	pd := ProblemDetails{
		Type:      "https://cleanco.example/problems/" + string(ae.Kind),
		Title:     string(ae.Kind),
		Status:    ae.Status(),
		Detail:    ae.Message,
		RequestID: RequestIDFromContext(r.Context()),
		Errors:    ae.Fields,
	}
	if pd.Status >= 500 {
		logger.Error("internal error", "error", err, "request_id", pd.RequestID)
	}
	Respond(w, pd.Status, pd)
}
