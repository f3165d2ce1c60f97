package lead

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/pkg/apperror"
)

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // excludes ambiguous 0/O, 1/I

// Service implements lead intake, referral code issuance, and the referral
// credit lifecycle driven by booking state transitions.
type Service struct {
	store *Store
}

// NewService creates a lead Service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// IntakeParams describes a new lead captured by the public intake flow.
type IntakeParams struct {
	Contact          Contact
	EstimateSnapshot json.RawMessage
	ReferredByCode   string // optional referral code quoted by the new customer
}

// Intake validates and creates a new lead, issuing a unique referral code
// and, if a referring code was supplied, resolving it to a PENDING credit
// owed to the referrer once this lead's own booking confirms.
func (s *Service) Intake(ctx context.Context, orgID uuid.UUID, p IntakeParams) (Lead, error) {
	if len(p.EstimateSnapshot) == 0 || !json.Valid(p.EstimateSnapshot) {
		return Lead{}, apperror.Validation("estimate snapshot is required and must be valid JSON", nil)
	}

	var referredBy *uuid.UUID
	if p.ReferredByCode != "" {
		referrer, err := s.store.GetByReferralCode(ctx, orgID, normalizeCode(p.ReferredByCode))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Lead{}, apperror.Validation("referral code does not match a lead in this organization", map[string]string{"referred_by": "unknown referral code"})
			}
			return Lead{}, err
		}
		referredBy = &referrer.ID
	}

	code, err := s.issueUniqueCode(ctx, orgID)
	if err != nil {
		return Lead{}, err
	}

	l, err := s.store.Create(ctx, Lead{
		OrgID:            orgID,
		Contact:          p.Contact,
		EstimateSnapshot: p.EstimateSnapshot,
		ReferralCode:     code,
		ReferredBy:       referredBy,
		Status:           StatusNew,
	})
	if err != nil {
		return Lead{}, err
	}

	if referredBy != nil {
		if _, err := s.store.CreateReferralCredit(ctx, ReferralCredit{
			OrgID:         orgID,
			BeneficiaryID: *referredBy,
			SourceLeadID:  l.ID,
			AmountCents:   DefaultReferralCreditCents,
			State:         CreditPending,
		}); err != nil {
			return Lead{}, fmt.Errorf("creating referral credit: %w", err)
		}
	}

	return l, nil
}

func (s *Service) issueUniqueCode(ctx context.Context, orgID uuid.UUID) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		exists, err := s.store.CodeExists(ctx, orgID, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate a unique referral code after 10 attempts")
}

func randomCode() (string, error) {
	b := make([]byte, ReferralCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, ReferralCodeLength)
	for i, v := range b {
		out[i] = referralCodeAlphabet[int(v)%len(referralCodeAlphabet)]
	}
	return string(out), nil
}

func normalizeCode(code string) string {
	out := make([]byte, 0, len(code))
	for _, r := range code {
		if r >= 'a' && r <= 'z' {
			r -= 32
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// List returns an org's leads, most recent first.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, limit int) ([]Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.List(ctx, orgID, limit)
}

// Get returns a single lead scoped to org.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (Lead, error) {
	l, err := s.store.Get(ctx, orgID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperror.NotFound("lead")
	}
	return l, err
}

// SetStatus transitions a lead's status, an admin-driven operation with no
// enforced state machine beyond the closed set of valid values.
func (s *Service) SetStatus(ctx context.Context, orgID, id uuid.UUID, status string) error {
	switch status {
	case StatusNew, StatusContacted, StatusBooked, StatusDone, StatusCancelled:
	default:
		return apperror.Validation("invalid lead status", map[string]string{"status": "unrecognized value"})
	}
	if _, err := s.store.Get(ctx, orgID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("lead")
		}
		return err
	}
	return s.store.SetStatus(ctx, id, status)
}

// GrantForBooking implements booking.ReferralCrediter: transitions the
// PENDING credit sourced from bookingID's lead to GRANTED. A no-op if the
// lead has no pending credit (no referrer) or it was already resolved,
// making this safe to call on a payment webhook replay.
func (s *Service) GrantForBooking(ctx context.Context, bookingID uuid.UUID) error {
	return s.resolveForBooking(ctx, bookingID, CreditGranted)
}

// VoidForBooking implements booking.ReferralCrediter: transitions the
// PENDING credit sourced from bookingID's lead to VOIDED.
func (s *Service) VoidForBooking(ctx context.Context, bookingID uuid.UUID) error {
	return s.resolveForBooking(ctx, bookingID, CreditVoided)
}

func (s *Service) resolveForBooking(ctx context.Context, bookingID uuid.UUID, state string) error {
	leadID, err := s.store.LeadIDForBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("resolving lead for booking: %w", err)
	}
	if leadID == nil {
		return nil
	}

	credit, err := s.store.PendingCreditForSourceLead(ctx, *leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("loading pending referral credit: %w", err)
	}

	return s.store.ResolveCredit(ctx, credit.ID, state)
}
