package apikey

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/internal/audit"
	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/org"
)

// Handler provides HTTP handlers for the API keys API. API keys are managed
// by org staff over the regular JWT session, so every route here runs behind
// identity.Middleware + org.Middleware, not behind API-key auth itself.
type Handler struct {
	logger *slog.Logger
	audit  *audit.Writer
}

// NewHandler creates an API key Handler.
func NewHandler(logger *slog.Logger, auditWriter *audit.Writer) *Handler {
	return &Handler{logger: logger, audit: auditWriter}
}

// Routes returns a chi.Router with all API key routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Delete("/{id}", h.handleRevoke)
	return r
}

func (h *Handler) service(r *http.Request) *Service {
	return NewService(org.DBFromContext(r.Context()), h.logger)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	resp, err := h.service(r).Create(r.Context(), id.OrgID, req)
	if err != nil {
		h.logger.Error("creating api key", "error", err)
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to create api key")
		return
	}

	if h.audit != nil {
		detail, _ := json.Marshal(map[string]any{"description": resp.Description, "scopes": resp.Scopes})
		h.audit.LogFromRequest(r, "create", "api_key", resp.ID, detail)
	}

	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	items, err := h.service(r).List(r.Context(), id.OrgID)
	if err != nil {
		h.logger.Error("listing api keys", "error", err)
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to list api keys")
		return
	}

	httpserver.Respond(w, http.StatusOK, ListResponse{Keys: items, Count: len(items)})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid api key ID")
		return
	}

	if err := h.service(r).Revoke(r.Context(), id.OrgID, keyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondProblem(w, r, http.StatusNotFound, "not_found", "api key not found")
			return
		}
		h.logger.Error("revoking api key", "error", err, "id", keyID)
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to revoke api key")
		return
	}

	if h.audit != nil {
		h.audit.LogFromRequest(r, "revoke", "api_key", keyID, nil)
	}

	httpserver.Respond(w, http.StatusNoContent, nil)
}
