package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/org"
)

// Handler provides the staff-facing read-only audit log listing route.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an audit log Handler.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Routes returns the audit log listing route.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	db := org.DBFromContext(r.Context())
	rows, err := db.Query(r.Context(), `
		SELECT id, org_id, user_id, api_key_id, action, resource, resource_id, detail, ip_address, user_agent, created_at
		FROM audit_log
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		id.OrgID, params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OrgID, &rec.UserID, &rec.APIKeyID, &rec.Action, &rec.Resource,
			&rec.ResourceID, &rec.Detail, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			h.logger.Error("scanning audit log row", "error", err)
			httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to list audit log")
			return
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("reading audit log rows", "error", err)
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(out, params, len(out)))
}
