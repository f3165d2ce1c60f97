package booking

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/audit"
	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/org"
	"github.com/cleanco/backend/internal/telemetry"
	"github.com/cleanco/backend/pkg/entitlements"
	"github.com/cleanco/backend/pkg/outbox"
	"github.com/cleanco/backend/pkg/team"
	"github.com/cleanco/backend/pkg/webhookverify"
)

// Handler provides the public slot-search/booking-creation routes, the
// payment provider's webhook, and the admin confirm/cancel/complete actions.
// There is no reschedule route.
type Handler struct {
	logger        *slog.Logger
	audit         *audit.Writer
	referrals     ReferralCrediter
	webhookSecret string
}

// NewHandler creates a booking Handler. webhookSecret is the shared secret
// used to verify the payment provider's webhook signature; empty disables
// verification (dev mode only).
func NewHandler(logger *slog.Logger, auditWriter *audit.Writer, referrals ReferralCrediter, webhookSecret string) *Handler {
	return &Handler{logger: logger, audit: auditWriter, referrals: referrals, webhookSecret: webhookSecret}
}

func (h *Handler) service(r *http.Request) *Service {
	db := org.DBFromContext(r.Context())
	store := NewStore(db)
	teams := team.NewService(team.NewStore(db))
	ob := outbox.NewStore(db)
	quota := entitlements.NewChecker(entitlements.NewStore(db))
	return NewService(store, teams, ob, quota, h.referrals, h.logger)
}

// PublicRoutes returns the customer-facing slot search and booking creation
// endpoints, mounted behind org resolution but not staff authentication.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/slots", h.handleFindSlots)
	r.Post("/bookings", h.handleCreate)
	return r
}

// AdminRoutes returns the staff-facing booking management actions.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/confirm", h.handleConfirm)
	r.Post("/{id}/cancel", h.handleCancel)
	r.Post("/{id}/complete", h.handleComplete)
	return r
}

// PaymentWebhookRoute returns the payment provider's webhook endpoint, wrapped
// in HMAC signature verification.
func (h *Handler) PaymentWebhookRoute() http.Handler {
	onInvalid := func() { telemetry.WebhookSignatureInvalidTotal.WithLabelValues("payment_provider").Inc() }
	return webhookverify.Middleware(h.webhookSecret, "X-Webhook-Signature", onInvalid)(http.HandlerFunc(h.handlePaymentWebhook))
}

type findSlotsResponse struct {
	Slots []slotJSON `json:"slots"`
}

type slotJSON struct {
	TeamID string    `json:"team_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func (h *Handler) handleFindSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err1 := time.Parse(time.RFC3339, q.Get("from"))
	to, err2 := time.Parse(time.RFC3339, q.Get("to"))
	if err1 != nil || err2 != nil || !to.After(from) {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "from and to must be valid RFC3339 timestamps with to after from")
		return
	}
	duration := 120
	orgInfo := org.FromContext(r.Context())
	if orgInfo == nil {
		httpserver.RespondProblem(w, r, http.StatusUnprocessableEntity, "org_required", "organization could not be resolved")
		return
	}

	slots, err := h.service(r).FindSlots(r.Context(), orgInfo.ID, from, to, duration)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}

	out := make([]slotJSON, len(slots))
	for i, s := range slots {
		out[i] = slotJSON{TeamID: s.TeamID, Start: s.Start, End: s.End}
	}
	httpserver.Respond(w, http.StatusOK, findSlotsResponse{Slots: out})
}

type createBookingRequest struct {
	LeadID          *uuid.UUID `json:"lead_id"`
	TeamID          uuid.UUID  `json:"team_id" validate:"required"`
	StartsAt        time.Time  `json:"starts_at" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"required,min=30,max=600"`
	IsWeekend       bool       `json:"is_weekend"`
	IsDeepClean     bool       `json:"is_deep_clean"`
	IsNewClient     bool       `json:"is_new_client"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	orgInfo := org.FromContext(r.Context())
	if orgInfo == nil {
		httpserver.RespondProblem(w, r, http.StatusUnprocessableEntity, "org_required", "organization could not be resolved")
		return
	}

	b, err := h.service(r).Create(r.Context(), orgInfo.ID, CreateParams{
		LeadID:          req.LeadID,
		TeamID:          req.TeamID,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		DepositPolicy: DepositPolicyInput{
			IsWeekend:   req.IsWeekend,
			IsDeepClean: req.IsDeepClean,
			IsNewClient: req.IsNewClient,
		},
	})
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}

	if h.audit != nil {
		h.audit.LogFromRequest(r, "create", "booking", b.ID, nil)
	}
	httpserver.Respond(w, http.StatusCreated, b)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, func(s *Service, orgID, id uuid.UUID) (Booking, error) {
		return s.Confirm(r.Context(), orgID, id)
	}, "confirm")
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, func(s *Service, orgID, id uuid.UUID) (Booking, error) {
		return s.Cancel(r.Context(), orgID, id)
	}, "cancel")
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, func(s *Service, orgID, id uuid.UUID) (Booking, error) {
		return s.Complete(r.Context(), orgID, id)
	}, "complete")
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, fn func(*Service, uuid.UUID, uuid.UUID) (Booking, error), action string) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid booking ID")
		return
	}

	b, err := fn(h.service(r), id.OrgID, bookingID)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}

	if h.audit != nil {
		h.audit.LogFromRequest(r, action, "booking", b.ID, nil)
	}
	httpserver.Respond(w, http.StatusOK, b)
}

type paymentWebhookPayload struct {
	EventID   string `json:"event_id"`
	SessionID string `json:"session_id"`
}

func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var payload paymentWebhookPayload
	if err := httpserver.Decode(r, &payload); err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if payload.EventID == "" || payload.SessionID == "" {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "event_id and session_id are required")
		return
	}

	if err := h.service(r).HandleDepositPaymentWebhook(r.Context(), payload.EventID, payload.SessionID); err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
