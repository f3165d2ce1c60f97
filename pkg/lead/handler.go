package lead

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/audit"
	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/org"
)

// Handler provides the public lead intake route and the admin listing/status
// routes.
type Handler struct {
	logger *slog.Logger
	audit  *audit.Writer
}

// NewHandler creates a lead Handler.
func NewHandler(logger *slog.Logger, auditWriter *audit.Writer) *Handler {
	return &Handler{logger: logger, audit: auditWriter}
}

func (h *Handler) service(r *http.Request) *Service {
	return NewService(NewStore(org.DBFromContext(r.Context())))
}

// PublicRoutes returns the customer-facing lead intake route.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleIntake)
	return r
}

// AdminRoutes returns the staff-facing lead listing/status routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/status", h.handleSetStatus)
	return r
}

type intakeRequest struct {
	Name             string          `json:"name" validate:"required"`
	Phone            string          `json:"phone" validate:"required"`
	Email            string          `json:"email" validate:"omitempty,email"`
	Address          string          `json:"address"`
	EstimateSnapshot json.RawMessage `json:"estimate_snapshot" validate:"required"`
	ReferredByCode   string          `json:"referred_by_code"`
}

func (h *Handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	orgInfo := org.FromContext(r.Context())
	if orgInfo == nil {
		httpserver.RespondProblem(w, r, http.StatusUnprocessableEntity, "org_required", "organization could not be resolved")
		return
	}

	l, err := h.service(r).Intake(r.Context(), orgInfo.ID, IntakeParams{
		Contact:          Contact{Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address},
		EstimateSnapshot: req.EstimateSnapshot,
		ReferredByCode:   req.ReferredByCode,
	})
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, l)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	leads, err := h.service(r).List(r.Context(), id.OrgID, limit)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"leads": leads})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid lead ID")
		return
	}
	l, err := h.service(r).Get(r.Context(), id.OrgID, leadID)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, l)
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid lead ID")
		return
	}

	if err := h.service(r).SetStatus(r.Context(), id.OrgID, leadID, req.Status); err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "set_status", "lead", leadID, nil)
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": req.Status})
}
