// Package identity implements the five-variant authenticator, DB-backed
// session rotation, and role-based authorization described for the
// Identity & Session Store and Authorization & Entitlements components.
package identity

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Roles, ordered from lowest to highest privilege.
const (
	RoleViewer     = "viewer"
	RoleFinance    = "finance"
	RoleDispatcher = "dispatcher"
	RoleAdmin      = "admin"
	RoleOwner      = "owner"
)

// Principal kinds identify which auth variant produced an Identity.
// Authorization rules may branch on this in addition to Role.
const (
	PrincipalOperator = "admin-operator" // admin Basic auth
	PrincipalStaff    = "staff"          // org-scoped JWT session
	PrincipalWorker   = "worker"         // worker signed token
	PrincipalClient   = "client"         // customer magic link
	PrincipalAPIKey   = "api-key"        // X-API-Key server-to-server key
	PrincipalDev      = "dev"            // dev-only header fallback
)

// Identity is the authenticated caller attached to the request context by
// Middleware.
type Identity struct {
	Subject     string
	Email       string
	Role        string
	OrgID       uuid.UUID
	UserID      *uuid.UUID
	SessionID   *uuid.UUID
	WorkerID    *uuid.UUID
	BookingID   *uuid.UUID // set for customer magic-link principals
	APIKeyID    *uuid.UUID
	Principal   string
	BreakGlass  bool
}

type identityKey struct{}

// NewContext attaches id to ctx.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the Identity attached to ctx, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// FromRequest is a convenience wrapper over FromContext.
func FromRequest(r *http.Request) *Identity {
	return FromContext(r.Context())
}
