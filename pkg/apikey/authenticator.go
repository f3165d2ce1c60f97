package apikey

import (
	"context"
	"fmt"

	"github.com/cleanco/backend/internal/identity"
)

// Authenticator implements identity.APIKeyAuthenticator against the raw
// connection pool — API key auth runs in identity.Middleware, ahead of
// org.Middleware's per-request transaction, so it cannot use an org-scoped
// Store built from request context.
type Authenticator struct {
	store *Store
}

// NewAuthenticator creates an Authenticator backed by db.
func NewAuthenticator(store *Store) *Authenticator {
	return &Authenticator{store: store}
}

// Authenticate looks up rawKey by its hash and returns the Identity it
// grants, or an error if the key is missing, revoked, or expired.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*identity.Identity, error) {
	row, err := a.store.GetByHash(ctx, identity.HashToken(rawKey))
	if err != nil {
		return nil, fmt.Errorf("looking up api key: %w", err)
	}
	id := row.ID
	return &identity.Identity{
		Subject:   "api-key:" + row.KeyPrefix,
		Role:      identity.RoleViewer,
		OrgID:     row.OrgID,
		APIKeyID:  &id,
		Principal: identity.PrincipalAPIKey,
	}, nil
}
