package booking

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/internal/platform"
)

// Store provides database operations for bookings.
type Store struct {
	db platform.DBTX
}

// NewStore creates a booking Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// teamLockKey derives a deterministic advisory-lock key for a team so that
// concurrent slot checks against the same team serialize even though the
// conflict scan and the insert are two separate statements.
func teamLockKey(teamID uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write(teamID[:])
	return int64(h.Sum64())
}

// LockTeamSlot takes a transaction-scoped Postgres advisory lock for teamID,
// held until the enclosing transaction commits or rolls back. Every booking
// create/reschedule against a team must hold this lock before checking for
// an overlapping interval, so the check-then-insert is atomic across
// concurrent requests.
func (s *Store) LockTeamSlot(ctx context.Context, teamID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, teamLockKey(teamID))
	if err != nil {
		return fmt.Errorf("acquiring team slot lock: %w", err)
	}
	return nil
}

// HasOverlap reports whether a team already has a booking that is neither
// cancelled nor expired
// whose interval intersects [start, end). excludeID, if non-nil, skips a
// booking being rescheduled so it doesn't conflict with itself.
func (s *Store) HasOverlap(ctx context.Context, teamID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE team_id = $1
			  AND status NOT IN ('CANCELLED', 'EXPIRED')
			  AND ($4::uuid IS NULL OR id != $4)
			  AND starts_at < $3
			  AND starts_at + (duration_minutes || ' minutes')::interval > $2
		)`, teamID, start, end, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking slot overlap: %w", err)
	}
	return exists, nil
}

// Create inserts a new booking. Caller must hold the team's slot lock and
// have already confirmed no overlap exists within the same transaction.
func (s *Store) Create(ctx context.Context, b Booking) (Booking, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO bookings (org_id, lead_id, team_id, starts_at, duration_minutes, status, deposit_required, deposit_session_id, deposit_paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, org_id, lead_id, team_id, starts_at, duration_minutes, status, deposit_required, deposit_session_id, deposit_paid_at, created_at, updated_at`,
		b.OrgID, b.LeadID, b.TeamID, b.StartsAt, b.DurationMinutes, b.Status, b.DepositRequired, b.DepositSessionID, b.DepositPaidAt,
	).Scan(&b.ID, &b.OrgID, &b.LeadID, &b.TeamID, &b.StartsAt, &b.DurationMinutes, &b.Status, &b.DepositRequired, &b.DepositSessionID, &b.DepositPaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Booking{}, fmt.Errorf("inserting booking: %w", err)
	}
	return b, nil
}

// Get returns a booking by ID, scoped to org.
func (s *Store) Get(ctx context.Context, orgID, id uuid.UUID) (Booking, error) {
	var b Booking
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, lead_id, team_id, starts_at, duration_minutes, status, deposit_required, deposit_session_id, deposit_paid_at, created_at, updated_at
		FROM bookings WHERE org_id = $1 AND id = $2`,
		orgID, id,
	).Scan(&b.ID, &b.OrgID, &b.LeadID, &b.TeamID, &b.StartsAt, &b.DurationMinutes, &b.Status, &b.DepositRequired, &b.DepositSessionID, &b.DepositPaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}

// GetForUpdate returns a booking locked FOR UPDATE, used by the webhook
// handler and state transitions to serialize concurrent status changes.
func (s *Store) GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (Booking, error) {
	var b Booking
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, lead_id, team_id, starts_at, duration_minutes, status, deposit_required, deposit_session_id, deposit_paid_at, created_at, updated_at
		FROM bookings WHERE org_id = $1 AND id = $2 FOR UPDATE`,
		orgID, id,
	).Scan(&b.ID, &b.OrgID, &b.LeadID, &b.TeamID, &b.StartsAt, &b.DurationMinutes, &b.Status, &b.DepositRequired, &b.DepositSessionID, &b.DepositPaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}

// GetByDepositSession finds a booking by its deposit payment session id,
// used to resolve an inbound payment webhook to its booking.
func (s *Store) GetByDepositSession(ctx context.Context, sessionID string) (Booking, error) {
	var b Booking
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, lead_id, team_id, starts_at, duration_minutes, status, deposit_required, deposit_session_id, deposit_paid_at, created_at, updated_at
		FROM bookings WHERE deposit_session_id = $1 FOR UPDATE`,
		sessionID,
	).Scan(&b.ID, &b.OrgID, &b.LeadID, &b.TeamID, &b.StartsAt, &b.DurationMinutes, &b.Status, &b.DepositRequired, &b.DepositSessionID, &b.DepositPaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}

// SetDepositSession records the payment provider's checkout session id
// against a booking awaiting deposit.
func (s *Store) SetDepositSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings SET deposit_session_id = $2, updated_at = now() WHERE id = $1`,
		id, sessionID,
	)
	if err != nil {
		return fmt.Errorf("setting deposit session: %w", err)
	}
	return nil
}

// UpdateStatus transitions a booking to newStatus, optionally stamping
// deposit_paid_at.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string, depositPaidAt *time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET status = $2, deposit_paid_at = coalesce($3, deposit_paid_at), updated_at = now()
		WHERE id = $1`,
		id, newStatus, depositPaidAt,
	)
	if err != nil {
		return fmt.Errorf("updating booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ExpireSweepCandidates returns pending/awaiting-deposit bookings whose
// hold TTL has elapsed, locked FOR UPDATE SKIP LOCKED so multiple sweeper
// replicas can run concurrently.
func (s *Store) ExpireSweepCandidates(ctx context.Context, olderThan time.Time, limit int) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, org_id, lead_id, team_id, starts_at, duration_minutes, status, deposit_required, deposit_session_id, deposit_paid_at, created_at, updated_at
		FROM bookings
		WHERE status IN ('PENDING', 'AWAITING_DEPOSIT') AND created_at < $1
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $2`,
		olderThan, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting expiry candidates: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.OrgID, &b.LeadID, &b.TeamID, &b.StartsAt, &b.DurationMinutes, &b.Status, &b.DepositRequired, &b.DepositSessionID, &b.DepositPaidAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// WebhookEventSeen checks whether a payment provider event id has already
// been processed, recording it if not, within the caller's transaction so
// the check and the booking mutation commit atomically.
func (s *Store) WebhookEventSeen(ctx context.Context, orgID uuid.UUID, eventID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO payment_webhook_events (org_id, event_id) VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING`,
		orgID, eventID,
	)
	if err != nil {
		return false, fmt.Errorf("recording webhook event: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}
