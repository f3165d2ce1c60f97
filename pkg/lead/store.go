package lead

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/platform"
)

// Store provides database operations for leads and referral credits.
type Store struct {
	db platform.DBTX
}

// NewStore creates a lead Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// Create inserts a new lead.
func (s *Store) Create(ctx context.Context, l Lead) (Lead, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO leads (org_id, name, phone, email, address, estimate_snapshot, referral_code, referred_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		l.OrgID, l.Contact.Name, l.Contact.Phone, l.Contact.Email, l.Contact.Address,
		l.EstimateSnapshot, l.ReferralCode, l.ReferredBy, l.Status,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Lead{}, fmt.Errorf("inserting lead: %w", err)
	}
	return l, nil
}

// CodeExists reports whether a referral code is already in use within org,
// used to retry generation until a unique one is found.
func (s *Store) CodeExists(ctx context.Context, orgID uuid.UUID, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE org_id = $1 AND referral_code = $2)`, orgID, code).Scan(&exists)
	return exists, err
}

// Get returns a lead by ID, scoped to org.
func (s *Store) Get(ctx context.Context, orgID, id uuid.UUID) (Lead, error) {
	return s.scanOne(ctx, `
		SELECT id, org_id, name, phone, email, address, estimate_snapshot, referral_code, referred_by, status, created_at, updated_at
		FROM leads WHERE org_id = $1 AND id = $2`, orgID, id)
}

// GetByReferralCode resolves the lead that issued a referral code, within
// the same org as the referred lead being created.
func (s *Store) GetByReferralCode(ctx context.Context, orgID uuid.UUID, code string) (Lead, error) {
	return s.scanOne(ctx, `
		SELECT id, org_id, name, phone, email, address, estimate_snapshot, referral_code, referred_by, status, created_at, updated_at
		FROM leads WHERE org_id = $1 AND referral_code = $2`, orgID, code)
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (Lead, error) {
	var l Lead
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&l.ID, &l.OrgID, &l.Contact.Name, &l.Contact.Phone, &l.Contact.Email, &l.Contact.Address,
		&l.EstimateSnapshot, &l.ReferralCode, &l.ReferredBy, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// List returns leads for an org, most recent first.
func (s *Store) List(ctx context.Context, orgID uuid.UUID, limit int) ([]Lead, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, org_id, name, phone, email, address, estimate_snapshot, referral_code, referred_by, status, created_at, updated_at
		FROM leads WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.OrgID, &l.Contact.Name, &l.Contact.Phone, &l.Contact.Email, &l.Contact.Address,
			&l.EstimateSnapshot, &l.ReferralCode, &l.ReferredBy, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SetStatus updates a lead's status.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

// LeadIDForBooking returns the lead_id a booking was created against.
func (s *Store) LeadIDForBooking(ctx context.Context, bookingID uuid.UUID) (*uuid.UUID, error) {
	var leadID *uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT lead_id FROM bookings WHERE id = $1`, bookingID).Scan(&leadID)
	return leadID, err
}

// CreateReferralCredit inserts a PENDING credit for a newly referred lead.
func (s *Store) CreateReferralCredit(ctx context.Context, c ReferralCredit) (ReferralCredit, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO referral_credits (org_id, beneficiary_lead_id, source_lead_id, amount_cents, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		c.OrgID, c.BeneficiaryID, c.SourceLeadID, c.AmountCents, c.State,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return ReferralCredit{}, fmt.Errorf("inserting referral credit: %w", err)
	}
	return c, nil
}

// PendingCreditForSourceLead returns the PENDING credit tied to a source
// lead, if any, locked FOR UPDATE so its resolution races safely against a
// concurrent booking transition.
func (s *Store) PendingCreditForSourceLead(ctx context.Context, leadID uuid.UUID) (*ReferralCredit, error) {
	var c ReferralCredit
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, beneficiary_lead_id, source_lead_id, amount_cents, state, created_at, resolved_at
		FROM referral_credits WHERE source_lead_id = $1 AND state = 'PENDING' FOR UPDATE`,
		leadID,
	).Scan(&c.ID, &c.OrgID, &c.BeneficiaryID, &c.SourceLeadID, &c.AmountCents, &c.State, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveCredit transitions a credit to GRANTED or VOIDED, stamping
// resolved_at. The WHERE state = 'PENDING' predicate makes this idempotent:
// a repeat call (e.g. a webhook replay) affects zero rows and is a no-op.
func (s *Store) ResolveCredit(ctx context.Context, id uuid.UUID, state string) error {
	now := time.Now()
	_, err := s.db.Exec(ctx, `
		UPDATE referral_credits SET state = $2, resolved_at = $3 WHERE id = $1 AND state = 'PENDING'`,
		id, state, now,
	)
	return err
}
