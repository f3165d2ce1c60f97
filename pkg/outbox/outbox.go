// Package outbox implements the transactional outbox: domain writes enqueue
// an event in the same transaction as their state change, and a background
// drain job delivers it (email, SMS-free notification webhook, export
// webhook) at-least-once, deduplicated per (org_id, dedupe_key).
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status values for an outbox entry's lifecycle.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusDead      = "dead"
)

// MaxAttempts caps retries before an entry is parked dead for manual review.
const MaxAttempts = 8

// Entry is a single outbox row.
type Entry struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	Kind        string
	DedupeKey   *string
	Payload     json.RawMessage
	Status      string
	Attempts    int
	NextAttempt time.Time
	LastError   *string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// backoff returns the delay before the next retry, capped at 30 minutes.
func backoff(attempts int) time.Duration {
	d := time.Duration(1<<uint(attempts)) * time.Second
	if d > 30*time.Minute {
		return 30 * time.Minute
	}
	return d
}
