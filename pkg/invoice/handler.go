package invoice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/internal/audit"
	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/org"
	"github.com/cleanco/backend/pkg/apperror"
	"github.com/cleanco/backend/pkg/objectstore"
)

// Handler provides the admin invoice management routes and the public
// token-addressed invoice view/PDF/signed-URL routes.
type Handler struct {
	logger  *slog.Logger
	audit   *audit.Writer
	storage objectstore.Gateway
}

// NewHandler creates an invoice Handler.
func NewHandler(logger *slog.Logger, auditWriter *audit.Writer, storage objectstore.Gateway) *Handler {
	return &Handler{logger: logger, audit: auditWriter, storage: storage}
}

func (h *Handler) service(r *http.Request) *Service {
	return NewService(NewStore(org.DBFromContext(r.Context())))
}

// AdminRoutes returns the staff-facing invoice management routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/payments", h.handleRecordPayment)
	r.Post("/{id}/void", h.handleVoid)
	r.Post("/{id}/link", h.handleIssueLink)
	return r
}

// PublicRoutes returns the customer-facing, token-addressed invoice routes.
// These run without org/identity middleware — the opaque token itself is
// the authenticator, and resolution is org-unscoped by design.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.handlePublicView)
	r.Get("/{token}.pdf", h.handlePublicPDF)
	r.Get("/{token}/signed_url", h.handleSignedURL)
	return r
}

type createInvoiceRequest struct {
	BookingID *uuid.UUID        `json:"booking_id"`
	Items     []itemRequestJSON `json:"items" validate:"required,min=1,dive"`
}

type itemRequestJSON struct {
	Description string `json:"description" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"required,gte=1"`
	UnitCents   int64  `json:"unit_cents" validate:"gte=0"`
	TaxCents    int64  `json:"tax_cents" validate:"gte=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	items := make([]ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = ItemInput{Description: it.Description, Quantity: it.Quantity, UnitCents: it.UnitCents, TaxCents: it.TaxCents}
	}

	inv, createdItems, err := h.service(r).Create(r.Context(), id.OrgID, req.BookingID, items)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}

	if h.audit != nil {
		h.audit.LogFromRequest(r, "create", "invoice", inv.ID, nil)
	}
	httpserver.Respond(w, http.StatusCreated, map[string]any{"invoice": inv, "items": createdItems})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	invID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid invoice ID")
		return
	}

	store := NewStore(org.DBFromContext(r.Context()))
	inv, err := store.Get(r.Context(), id.OrgID, invID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondProblem(w, r, http.StatusNotFound, "not_found", "invoice not found")
			return
		}
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	items, _ := store.Items(r.Context(), invID)
	payments, _ := store.Payments(r.Context(), invID)
	httpserver.Respond(w, http.StatusOK, map[string]any{"invoice": inv, "items": items, "payments": payments})
}

type recordPaymentRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Reference   string `json:"reference" validate:"required"`
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	invID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid invoice ID")
		return
	}

	inv, err := h.service(r).RecordPayment(r.Context(), id.OrgID, invID, req.AmountCents, req.Reference)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}

	if h.audit != nil {
		detail, _ := json.Marshal(map[string]any{"amount_cents": req.AmountCents})
		h.audit.LogFromRequest(r, "record_payment", "invoice", invID, detail)
	}
	httpserver.Respond(w, http.StatusOK, inv)
}

func (h *Handler) handleVoid(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	invID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid invoice ID")
		return
	}

	if err := h.service(r).Void(r.Context(), id.OrgID, invID); err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "void", "invoice", invID, nil)
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "void"})
}

func (h *Handler) handleIssueLink(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	invID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid invoice ID")
		return
	}

	token, err := h.service(r).IssuePublicLink(r.Context(), id.OrgID, invID)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "issue_link", "invoice", invID, nil)
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"url": "/i/" + token})
}

func (h *Handler) resolvePublic(r *http.Request) (Invoice, []Item, []Payment, error) {
	token := chi.URLParam(r, "token")
	store := NewStore(org.DBFromContext(r.Context()))
	svc := NewService(store)
	inv, err := svc.ResolvePublicLink(r.Context(), token)
	if err != nil {
		return Invoice{}, nil, nil, err
	}
	items, err := store.Items(r.Context(), inv.ID)
	if err != nil {
		return Invoice{}, nil, nil, err
	}
	payments, err := store.Payments(r.Context(), inv.ID)
	if err != nil {
		return Invoice{}, nil, nil, err
	}
	return inv, items, payments, nil
}

func (h *Handler) handlePublicView(w http.ResponseWriter, r *http.Request) {
	inv, items, payments, err := h.resolvePublic(r)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	total, paid := Totals(items, payments)
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"number": inv.Number, "status": inv.Status, "items": items,
		"total_cents": total, "paid_cents": paid,
	})
}

func (h *Handler) handlePublicPDF(w http.ResponseWriter, r *http.Request) {
	inv, items, payments, err := h.resolvePublic(r)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	body, err := RenderPDF(inv, items, payments)
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, string(apperror.KindInternal), "failed to render invoice")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	inv, _, _, err := h.resolvePublic(r)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	key := objectstore.ContentKey(inv.OrgID.String(), "invoices", inv.ID.String(), inv.Number+".pdf")
	url, err := h.storage.SignDownload(r.Context(), key, 15*time.Minute)
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, string(apperror.KindInternal), "failed to sign download URL")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"url": url})
}
