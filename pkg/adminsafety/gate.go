// Package adminsafety implements the admin surface's blast-radius controls:
// an optional CIDR allowlist, an org-level read-only toggle that turns
// writes into 409s during an incident, and a short-TTL break-glass token
// that overrides the toggle for its issuing org only.
package adminsafety

import (
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/audit"
	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/pkg/apperror"
	"github.com/cleanco/backend/pkg/ratelimit"
)

// BreakGlassTTL bounds how long a break-glass token overrides read-only mode.
const BreakGlassTTL = 15 * time.Minute

// BreakGlassPurpose is the AccessClaims.Purpose value minted for break-glass
// tokens, distinguishing them from normal session tokens signed with the
// same SessionManager primitive.
const BreakGlassPurpose = "break-glass"

// Gate is the admin-route middleware: CIDR allowlist, read-only enforcement,
// and break-glass override detection.
type Gate struct {
	store        *Store
	sessions     *identity.SessionManager
	auditWriter  *audit.Writer
	allowedCIDRs []netip.Prefix
}

// NewGate creates a Gate. allowedCIDRs may be empty to disable the allowlist.
func NewGate(store *Store, sessions *identity.SessionManager, auditWriter *audit.Writer, allowedCIDRs []netip.Prefix) *Gate {
	return &Gate{store: store, sessions: sessions, auditWriter: auditWriter, allowedCIDRs: allowedCIDRs}
}

// Middleware enforces the CIDR allowlist and read-only toggle on every
// request under the admin surface.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(g.allowedCIDRs) > 0 && !g.peerAllowed(r) {
			httpserver.RespondProblem(w, r, http.StatusForbidden, "forbidden", "caller address is not on the admin allowlist")
			return
		}

		if !isWriteMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		id := identity.FromContext(r.Context())
		if id == nil {
			httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
			return
		}

		readOnly, err := g.store.IsReadOnly(r.Context(), id.OrgID)
		if err != nil {
			httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to check admin safety state")
			return
		}
		if readOnly && !g.hasValidBreakGlass(r, id) {
			httpserver.RespondProblem(w, r, http.StatusConflict, "read_only_mode", "writes are disabled while the org is in read-only mode; use a break-glass token to override")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (g *Gate) peerAllowed(r *http.Request) bool {
	ip := ratelimit.ClientIP(r, nil)
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range g.allowedCIDRs {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// hasValidBreakGlass checks the X-Break-Glass-Token header for a token
// minted with BreakGlassPurpose and scoped to the caller's org.
func (g *Gate) hasValidBreakGlass(r *http.Request, id *identity.Identity) bool {
	raw := strings.TrimSpace(r.Header.Get("X-Break-Glass-Token"))
	if raw == "" {
		return false
	}
	claims, err := g.sessions.ValidateAccessToken(raw)
	if err != nil || claims.Purpose != BreakGlassPurpose {
		return false
	}
	if claims.OrgID != id.OrgID.String() {
		return false
	}

	if g.auditWriter != nil {
		g.auditWriter.LogFromRequest(r, "break_glass_use", "admin_safety", uuid.Nil, nil)
	}
	return true
}

// IssueBreakGlassToken mints a short-TTL token that overrides read-only mode
// for the caller's org, auditing the issuance against the originating request.
func (g *Gate) IssueBreakGlassToken(r *http.Request) (string, error) {
	id := identity.FromContext(r.Context())
	if id == nil {
		return "", apperror.New(apperror.KindUnauthorized, "missing authentication")
	}

	token, err := g.sessions.IssueAccessToken(identity.AccessClaims{
		Subject: id.Subject,
		OrgID:   id.OrgID.String(),
		Role:    id.Role,
		Purpose: BreakGlassPurpose,
	}, BreakGlassTTL)
	if err != nil {
		return "", err
	}

	if g.auditWriter != nil {
		g.auditWriter.LogFromRequest(r, "break_glass_issue", "admin_safety", uuid.Nil, nil)
	}
	return token, nil
}
