package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/httpserver"
)

// APIKeyAuthenticator resolves an X-API-Key header into an Identity. It is
// an interface rather than a direct dependency on pkg/apikey because that
// package imports identity for RequireRole/FromContext; the concrete
// implementation is supplied by the application entrypoint.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*Identity, error)
}

// Middleware resolves the caller's Identity from, in order: admin Basic auth,
// an org-scoped JWT session, a worker signed token, a customer magic-link
// token, an X-API-Key server-to-server key, and (dev environments only) the
// X-Tenant-Slug fallback header. The first variant that successfully
// authenticates wins; each variant's scope is disjoint by construction, so
// precedence order does not change outcomes for well-formed requests. See
// spec.md §4.1/§4.2. apiKeys may be nil to disable key-based auth.
func Middleware(store *Store, sessions *SessionManager, apiKeys APIKeyAuthenticator, isDev bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var id *Identity

			// 0. Admin Basic auth.
			if username, password, ok := r.BasicAuth(); ok && id == nil {
				orgID, err := resolveOrgID(r)
				if err == nil {
					admin, err := store.GetAdminUser(ctx, orgID, username)
					if err == nil {
						if ok, _ := VerifyPassword(admin.PasswordHash, password); ok {
							id = &Identity{
								Subject:   "admin:" + username,
								Role:      admin.Role,
								OrgID:     orgID,
								Principal: PrincipalOperator,
							}
						}
					}
				}
				if id == nil {
					httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "invalid admin credentials")
					return
				}
			}

			// 1. Bearer token: worker token, magic link, or org-scoped JWT session.
			if id == nil {
				if raw := bearerToken(r); raw != "" {
					if strings.HasPrefix(raw, WorkerTokenPrefix) {
						if wid, err := authenticateWorkerToken(ctx, store, raw); err == nil {
							id = wid
						}
					} else if strings.HasPrefix(raw, MagicLinkTokenPrefix) {
						if cid, err := authenticateMagicLink(ctx, store, raw); err == nil {
							id = cid
						}
					} else if claims, err := sessions.ValidateAccessToken(raw); err == nil {
						uid, _ := uuid.Parse(claims.Subject)
						orgID, _ := uuid.Parse(claims.OrgID)
						sid, _ := uuid.Parse(claims.SessionID)
						id = &Identity{
							Subject:    claims.Subject,
							Role:       claims.Role,
							OrgID:      orgID,
							UserID:     &uid,
							SessionID:  &sid,
							Principal:  PrincipalStaff,
							BreakGlass: claims.Purpose == "break-glass",
						}
					}
				}
			}

			// 2. X-API-Key server-to-server key.
			if id == nil && apiKeys != nil {
				if rawKey := r.Header.Get("X-API-Key"); rawKey != "" {
					kid, err := apiKeys.Authenticate(ctx, rawKey)
					if err == nil {
						id = kid
					}
				}
			}

			// 4. Dev-only X-Tenant-Slug fallback.
			if id == nil && isDev {
				if slug := r.Header.Get("X-Tenant-Slug"); slug != "" {
					id = &Identity{
						Subject:   "dev:anonymous",
						Role:      RoleOwner,
						OrgID:     uuid.Nil, // resolved from slug by the org middleware
						Principal: PrincipalDev,
					}
					logger.Debug("dev-mode authentication", "tenant_slug", slug)
				}
			}

			if id == nil {
				httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "no valid authentication provided")
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(ctx, id)))
		})
	}
}

// PublicMiddleware stamps an anonymous client Identity for unauthenticated,
// customer-facing routes (slot search, booking creation, lead intake,
// estimates, chat) so org.Middleware can resolve the org from the
// X-Tenant-Slug header. Unlike Middleware's dev-only header fallback, this
// runs in every environment — these routes have no staff session or token to
// carry an org on, and must still end up inside the org-scoped transaction.
func PublicMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := &Identity{
				Subject:   "public:anonymous",
				Role:      RoleViewer,
				OrgID:     uuid.Nil,
				Principal: PrincipalClient,
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// resolveOrgID reads the org hint a Basic-auth admin login must supply out of
// band (a header, since Basic auth carries no room for it otherwise).
func resolveOrgID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-Org-ID"))
}

func authenticateWorkerToken(ctx context.Context, store *Store, raw string) (*Identity, error) {
	t, err := store.GetWorkerTokenByHash(ctx, HashToken(raw))
	if err != nil {
		return nil, err
	}
	return &Identity{
		Subject:   "worker:" + t.WorkerID.String(),
		Role:      RoleDispatcher,
		OrgID:     t.OrgID,
		WorkerID:  &t.WorkerID,
		Principal: PrincipalWorker,
	}, nil
}

func authenticateMagicLink(ctx context.Context, store *Store, raw string) (*Identity, error) {
	t, err := store.GetMagicLinkByHash(ctx, HashToken(raw))
	if err != nil {
		return nil, err
	}
	return &Identity{
		Subject:   "client:link",
		Role:      RoleViewer,
		OrgID:     t.OrgID,
		BookingID: t.BookingID,
		Principal: PrincipalClient,
	}, nil
}
