package apikey

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// KeyPrefix identifies every API key in leaked-credential scans. API keys
// are a sixth, ambient authentication branch used by server-to-server
// integration callers (export webhook receivers, partner read access) —
// distinct from the five customer-facing variants resolved by
// identity.Middleware.
const KeyPrefix = "cln_key_"

// ValidScopes lists the scopes an API key may be granted.
var ValidScopes = []string{"read:bookings", "read:invoices", "write:webhooks"}

// CreateRequest is the JSON body for POST /v1/admin/api-keys.
type CreateRequest struct {
	Description string   `json:"description" validate:"required"`
	Scopes      []string `json:"scopes" validate:"required,min=1,dive,oneof=read:bookings read:invoices write:webhooks"`
	ExpiresIn   *int     `json:"expires_in_days"`
}

// Response is the JSON response for a single API key (without the raw key).
type Response struct {
	ID          uuid.UUID  `json:"id"`
	KeyPrefix   string     `json:"key_prefix"`
	Description string     `json:"description"`
	Scopes      []string   `json:"scopes"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateResponse includes the raw key (only shown once at creation).
type CreateResponse struct {
	Response
	RawKey string `json:"raw_key"`
}

// ListResponse wraps a list of keys.
type ListResponse struct {
	Keys  []Response `json:"keys"`
	Count int        `json:"count"`
}

// Row represents a row from the api_keys table.
type Row struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	KeyHash     string
	KeyPrefix   string
	Description string
	Scopes      []string
	LastUsed    pgtype.Timestamptz
	ExpiresAt   pgtype.Timestamptz
	RevokedAt   pgtype.Timestamptz
	CreatedAt   time.Time
}

// ToResponse converts a Row to a Response DTO.
func (r *Row) ToResponse() Response {
	resp := Response{
		ID:          r.ID,
		KeyPrefix:   r.KeyPrefix,
		Description: r.Description,
		Scopes:      ensureSlice(r.Scopes),
		CreatedAt:   r.CreatedAt,
	}
	if r.LastUsed.Valid {
		t := r.LastUsed.Time
		resp.LastUsed = &t
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	return resp
}

// HasScope reports whether the key carries the given scope.
func (r *Row) HasScope(scope string) bool {
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ensureSlice returns s if non-nil, otherwise an empty slice.
func ensureSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
