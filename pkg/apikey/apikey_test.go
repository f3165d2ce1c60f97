package apikey

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestRow_ToResponse_OmitsOptionalTimestampsWhenInvalid(t *testing.T) {
	row := Row{
		ID:          uuid.New(),
		KeyPrefix:   KeyPrefix,
		Description: "export integration",
		Scopes:      []string{"read:bookings"},
		CreatedAt:   time.Now(),
	}
	resp := row.ToResponse()
	if resp.LastUsed != nil {
		t.Errorf("LastUsed = %v, want nil when the row's LastUsed is not Valid", resp.LastUsed)
	}
	if resp.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil when the row's ExpiresAt is not Valid", resp.ExpiresAt)
	}
}

func TestRow_ToResponse_IncludesValidTimestamps(t *testing.T) {
	now := time.Now()
	row := Row{
		ID:        uuid.New(),
		KeyPrefix: KeyPrefix,
		Scopes:    []string{"read:invoices"},
		LastUsed:  pgtype.Timestamptz{Time: now, Valid: true},
		ExpiresAt: pgtype.Timestamptz{Time: now, Valid: true},
		CreatedAt: now,
	}
	resp := row.ToResponse()
	if resp.LastUsed == nil || !resp.LastUsed.Equal(now) {
		t.Errorf("LastUsed = %v, want %v", resp.LastUsed, now)
	}
	if resp.ExpiresAt == nil || !resp.ExpiresAt.Equal(now) {
		t.Errorf("ExpiresAt = %v, want %v", resp.ExpiresAt, now)
	}
}

func TestRow_ToResponse_NilScopesBecomeEmptySlice(t *testing.T) {
	row := Row{ID: uuid.New(), CreatedAt: time.Now()}
	resp := row.ToResponse()
	if resp.Scopes == nil {
		t.Error("Scopes should be an empty slice, not nil, for stable JSON encoding")
	}
	if len(resp.Scopes) != 0 {
		t.Errorf("Scopes = %v, want empty", resp.Scopes)
	}
}

func TestRow_HasScope(t *testing.T) {
	row := Row{Scopes: []string{"read:bookings", "write:webhooks"}}
	if !row.HasScope("read:bookings") {
		t.Error("HasScope(\"read:bookings\") = false, want true")
	}
	if row.HasScope("read:invoices") {
		t.Error("HasScope(\"read:invoices\") = true, want false")
	}
}
