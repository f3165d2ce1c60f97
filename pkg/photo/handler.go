package photo

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cleanco/backend/internal/audit"
	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/org"
	"github.com/cleanco/backend/pkg/entitlements"
	"github.com/cleanco/backend/pkg/objectstore"
	"github.com/cleanco/backend/pkg/outbox"
)

const maxUploadBody = MaxSizeBytes + (1 << 20) // allow for multipart overhead

// Handler provides the worker/admin photo upload, download-link, and delete
// routes, mounted under a booking's photos sub-route.
type Handler struct {
	logger  *slog.Logger
	audit   *audit.Writer
	storage objectstore.Gateway
	rdb     *redis.Client
}

// NewHandler creates a photo Handler.
func NewHandler(logger *slog.Logger, auditWriter *audit.Writer, storage objectstore.Gateway, rdb *redis.Client) *Handler {
	return &Handler{logger: logger, audit: auditWriter, storage: storage, rdb: rdb}
}

func (h *Handler) service(r *http.Request) *Service {
	db := org.DBFromContext(r.Context())
	quota := entitlements.NewChecker(entitlements.NewStore(db))
	return NewService(NewStore(db), h.storage, outbox.NewStore(db), quota, h.rdb)
}

// Routes returns the photo routes, mounted at /bookings/{booking_id}/photos.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleUpload)
	r.Get("/", h.handleList)
	r.Get("/{id}/download", h.handleDownloadLink)
	r.Delete("/{id}", h.handleDelete)
	return r
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "booking_id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid booking ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "photo upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "missing file field")
		return
	}
	defer file.Close()

	mime := header.Header.Get("Content-Type")
	createdBy := id.UserID
	if createdBy == nil {
		createdBy = id.WorkerID
	}
	var creator uuid.UUID
	if createdBy != nil {
		creator = *createdBy
	}

	p, err := h.service(r).Upload(r.Context(), id.OrgID, bookingID, creator, mime, header.Size, file)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}

	if h.audit != nil {
		h.audit.LogFromRequest(r, "upload", "photo", p.ID, nil)
	}
	httpserver.Respond(w, http.StatusCreated, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "booking_id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid booking ID")
		return
	}
	store := NewStore(org.DBFromContext(r.Context()))
	photos, err := store.ListForBooking(r.Context(), id.OrgID, bookingID)
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to list photos")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"photos": photos})
}

func (h *Handler) handleDownloadLink(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	photoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid photo ID")
		return
	}

	store := NewStore(org.DBFromContext(r.Context()))
	p, err := store.Get(r.Context(), id.OrgID, photoID)
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusNotFound, "not_found", "photo not found")
		return
	}
	if !CanView(id.Role, id.Principal, id.WorkerID, id.BookingID, p) {
		httpserver.RespondProblem(w, r, http.StatusForbidden, "forbidden", "not permitted to view this photo")
		return
	}

	url, err := h.service(r).IssueDownloadLink(r.Context(), id.OrgID, photoID)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}
	photoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblem(w, r, http.StatusBadRequest, "bad_request", "invalid photo ID")
		return
	}

	if err := h.service(r).Delete(r.Context(), id.OrgID, photoID); err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "delete", "photo", photoID, nil)
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}
