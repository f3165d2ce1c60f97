package identity

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/org"
)

// Handler serves the session lifecycle routes: login, refresh, logout, the
// current-user lookup, and password change.
type Handler struct {
	logger         *slog.Logger
	sessions       *SessionManager
	accessTokenTTL time.Duration
	refreshTTL     time.Duration
}

// NewHandler creates an auth Handler. accessTokenTTL and refreshTTL size the
// tokens issued by login and refresh.
func NewHandler(logger *slog.Logger, sessions *SessionManager, accessTokenTTL, refreshTTL time.Duration) *Handler {
	return &Handler{logger: logger, sessions: sessions, accessTokenTTL: accessTokenTTL, refreshTTL: refreshTTL}
}

func (h *Handler) service(r *http.Request) *Service {
	return NewService(NewStore(org.DBFromContext(r.Context())), h.sessions, h.accessTokenTTL)
}

// PublicRoutes returns the login and refresh routes, which run ahead of any
// authenticated identity — only an org (resolved from X-Tenant-Slug) is
// required.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	return r
}

// AuthenticatedRoutes returns the routes that require an existing session:
// logout, the current-user lookup, and password change.
func (h *Handler) AuthenticatedRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Post("/change-password", h.handleChangePassword)
	return r
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	orgInfo := org.FromContext(r.Context())
	if orgInfo == nil {
		httpserver.RespondProblem(w, r, http.StatusUnprocessableEntity, "org_required", "organization could not be resolved")
		return
	}

	pair, _, err := h.service(r).Authenticate(r.Context(), orgInfo.ID, req.Email, req.Password, h.refreshTTL)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, ExpiresAt: pair.ExpiresAt})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.service(r).Refresh(r.Context(), req.RefreshToken, h.refreshTTL)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, ExpiresAt: pair.ExpiresAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if id == nil || id.SessionID == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if err := h.service(r).Revoke(r.Context(), *id.SessionID, "logout"); err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	MustChangePW bool   `json:"must_change_password"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if id == nil || id.UserID == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	orgInfo := org.FromContext(r.Context())
	user, err := NewStore(org.DBFromContext(r.Context())).GetUserByID(r.Context(), orgInfo.ID, *id.UserID)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, userResponse{
		ID:           user.ID.String(),
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Role:         user.Role,
		MustChangePW: user.MustChangePW,
	})
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if id == nil || id.UserID == nil {
		httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	var req changePasswordRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	orgInfo := org.FromContext(r.Context())
	store := NewStore(org.DBFromContext(r.Context()))
	user, err := store.GetUserByID(r.Context(), orgInfo.ID, *id.UserID)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	if err := h.service(r).ChangePassword(r.Context(), user, req.NewPassword); err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
