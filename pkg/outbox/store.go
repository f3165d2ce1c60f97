package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/platform"
)

// Store provides the database operations behind enqueue and drain.
type Store struct {
	db platform.DBTX
}

// NewStore creates an outbox Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// Enqueue inserts a new outbox entry within the caller's transaction, so it
// commits atomically with whatever domain state change produced it. A
// duplicate (org_id, dedupe_key) is silently ignored — Postgres's
// UNIQUE NULLS NOT DISTINCT constraint on that pair makes a NULL dedupe_key
// never collide, matching at-least-once delivery for non-deduplicated kinds.
func (s *Store) Enqueue(ctx context.Context, orgID uuid.UUID, kind string, dedupeKey *string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling outbox payload: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO outbox_entries (org_id, kind, dedupe_key, payload, status, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (org_id, dedupe_key) DO NOTHING`,
		orgID, kind, dedupeKey, body, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("enqueuing outbox entry: %w", err)
	}
	return nil
}

// ClaimBatch selects up to limit pending entries due for delivery and marks
// them as claimed by bumping next_attempt_at past the claim window, so a
// concurrent drain worker does not pick up the same rows. Uses
// SELECT ... FOR UPDATE SKIP LOCKED so multiple drain replicas can run
// safely in parallel.
func (s *Store) ClaimBatch(ctx context.Context, limit int, claimWindow time.Duration) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE outbox_entries SET next_attempt_at = now() + $2
		WHERE id IN (
			SELECT id FROM outbox_entries
			WHERE status = 'pending' AND next_attempt_at <= now()
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		RETURNING id, org_id, kind, dedupe_key, payload, status, attempts, next_attempt_at, last_error, created_at, delivered_at`,
		limit, claimWindow,
	)
	if err != nil {
		return nil, fmt.Errorf("claiming outbox batch: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Kind, &e.DedupeKey, &e.Payload, &e.Status, &e.Attempts, &e.NextAttempt, &e.LastError, &e.CreatedAt, &e.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scanning outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkDelivered records a successful delivery.
func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox_entries SET status = 'delivered', delivered_at = now() WHERE id = $1`,
		id)
	return err
}

// MarkFailed records a failed delivery attempt, scheduling the next retry
// with exponential backoff, or parking the entry dead once attempts reaches
// MaxAttempts.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, deliveryErr error) error {
	status := StatusFailed
	if attempts >= MaxAttempts {
		status = StatusDead
	}
	msg := deliveryErr.Error()

	_, err := s.db.Exec(ctx, `
		UPDATE outbox_entries
		SET status = CASE WHEN $3 = 'dead' THEN 'dead' ELSE 'pending' END,
		    attempts = $2, last_error = $4, next_attempt_at = now() + $5
		WHERE id = $1`,
		id, attempts, status, msg, backoff(attempts),
	)
	return err
}

// Get returns a single entry by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	var e Entry
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, kind, dedupe_key, payload, status, attempts, next_attempt_at, last_error, created_at, delivered_at
		FROM outbox_entries WHERE id = $1`, id,
	).Scan(&e.ID, &e.OrgID, &e.Kind, &e.DedupeKey, &e.Payload, &e.Status, &e.Attempts, &e.NextAttempt, &e.LastError, &e.CreatedAt, &e.DeliveredAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}
