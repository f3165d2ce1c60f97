package adminsafety

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
)

// Handler exposes the read-only toggle and break-glass token issuance
// routes. These routes are themselves exempt from the Gate's write-blocking
// (an incident response tool that read-only mode locked out would defeat its
// own purpose) — callers must mount Handler.Routes() outside Gate.Middleware.
type Handler struct {
	gate   *Gate
	logger *slog.Logger
}

// NewHandler creates an adminsafety Handler.
func NewHandler(gate *Gate, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, logger: logger}
}

// Routes returns the admin-safety control routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/read-only", h.handleSetReadOnly)
	r.Post("/break-glass", h.handleIssueBreakGlass)
	return r
}

type setReadOnlyRequest struct {
	ReadOnly bool `json:"read_only"`
}

func (h *Handler) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	if id.Role != identity.RoleOwner && id.Role != identity.RoleAdmin {
		httpserver.RespondProblem(w, r, http.StatusForbidden, "forbidden", "only owners and admins may toggle read-only mode")
		return
	}

	var req setReadOnlyRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.gate.store.SetReadOnly(r.Context(), id.OrgID, req.ReadOnly); err != nil {
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to update read-only state")
		return
	}
	httpserver.Respond(w, http.StatusOK, setReadOnlyRequest{ReadOnly: req.ReadOnly})
}

func (h *Handler) handleIssueBreakGlass(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	if id.Role != identity.RoleOwner {
		httpserver.RespondProblem(w, r, http.StatusForbidden, "forbidden", "only owners may issue break-glass tokens")
		return
	}

	token, err := h.gate.IssueBreakGlassToken(r)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, map[string]string{"token": token})
}
