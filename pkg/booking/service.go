package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"log/slog"

	"github.com/cleanco/backend/internal/telemetry"
	"github.com/cleanco/backend/pkg/apperror"
	"github.com/cleanco/backend/pkg/entitlements"
	"github.com/cleanco/backend/pkg/outbox"
	"github.com/cleanco/backend/pkg/team"
)

// ReferralCrediter transitions a lead's referral credit alongside a
// booking's confirmation or cancellation. Implemented by pkg/lead; declared
// here so booking doesn't import it directly.
type ReferralCrediter interface {
	GrantForBooking(ctx context.Context, bookingID uuid.UUID) error
	VoidForBooking(ctx context.Context, bookingID uuid.UUID) error
}

// PendingHoldTTL is how long a PENDING or AWAITING_DEPOSIT booking may sit
// before the sweeper expires it and releases its slot.
const PendingHoldTTL = 30 * time.Minute

// CreateParams describes a new booking request.
type CreateParams struct {
	LeadID          *uuid.UUID
	TeamID          uuid.UUID
	StartsAt        time.Time
	DurationMinutes int
	DepositPolicy   DepositPolicyInput
}

// Service implements the booking lifecycle: slot search, creation under
// exclusivity, state transitions, and payment webhook processing.
type Service struct {
	store      *Store
	teams      *team.Service
	outbox     *outbox.Store
	quota      *entitlements.Checker
	referrals  ReferralCrediter
	logger     *slog.Logger
}

// NewService creates a booking Service. referrals may be nil when referral
// crediting isn't wired (e.g. in tests exercising the FSM alone).
func NewService(store *Store, teams *team.Service, ob *outbox.Store, quota *entitlements.Checker, referrals ReferralCrediter, logger *slog.Logger) *Service {
	return &Service{store: store, teams: teams, outbox: ob, quota: quota, referrals: referrals, logger: logger}
}

// FindSlots returns available starting times for a team-eligible booking
// between from and to, ranked by fair team rotation.
func (s *Service) FindSlots(ctx context.Context, orgID uuid.UUID, from, to time.Time, durationMinutes int) ([]Slot, error) {
	var slots []Slot
	for _, start := range CandidateSlots(from, to, durationMinutes) {
		end := start.Add(time.Duration(durationMinutes) * time.Minute)
		teams, err := s.teams.AvailableTeams(ctx, orgID, start, end)
		if err != nil {
			return nil, fmt.Errorf("resolving available teams: %w", err)
		}
		for _, t := range teams {
			overlap, err := s.store.HasOverlap(ctx, t.ID, start, end, nil)
			if err != nil {
				return nil, err
			}
			if !overlap {
				slots = append(slots, Slot{TeamID: t.ID.String(), Start: start, End: end})
				break // one team's worth of availability per start time is enough
			}
		}
	}
	return slots, nil
}

// Create reserves a slot and inserts a new booking. The team's slot lock is
// held for the remainder of the caller's transaction, so the overlap check
// and insert are atomic against concurrent requests for the same team.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, p CreateParams) (Booking, error) {
	if err := s.quota.CheckBookingQuota(ctx, orgID); err != nil {
		return Booking{}, err
	}

	if err := s.store.LockTeamSlot(ctx, p.TeamID); err != nil {
		return Booking{}, err
	}

	end := p.StartsAt.Add(time.Duration(p.DurationMinutes) * time.Minute)
	overlap, err := s.store.HasOverlap(ctx, p.TeamID, p.StartsAt, end, nil)
	if err != nil {
		return Booking{}, err
	}
	if overlap {
		return Booking{}, apperror.New(apperror.KindSlotTaken, "requested time slot is no longer available")
	}

	requiresDeposit := RequiresDeposit(p.DepositPolicy)
	status := StatusPending
	if requiresDeposit {
		status = StatusAwaitingDeposit
	}

	b := Booking{
		OrgID:           orgID,
		LeadID:          p.LeadID,
		TeamID:          &p.TeamID,
		StartsAt:        p.StartsAt,
		DurationMinutes: p.DurationMinutes,
		Status:          status,
		DepositRequired: requiresDeposit,
	}
	created, err := s.store.Create(ctx, b)
	if err != nil {
		return Booking{}, err
	}

	telemetry.BookingsCreatedTotal.WithLabelValues(boolLabel(requiresDeposit)).Inc()
	return created, nil
}

// AttachDepositSession records the payment provider's checkout session id
// against a booking awaiting deposit, so a later webhook can resolve it.
func (s *Service) AttachDepositSession(ctx context.Context, orgID, bookingID uuid.UUID, sessionID string) error {
	b, err := s.store.GetForUpdate(ctx, orgID, bookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusAwaitingDeposit {
		return apperror.New(apperror.KindConflict, "booking is not awaiting a deposit")
	}
	return s.store.SetDepositSession(ctx, bookingID, sessionID)
}

// Confirm transitions a booking to CONFIRMED, granting any pending referral
// credit for its lead in the same transaction.
func (s *Service) Confirm(ctx context.Context, orgID, bookingID uuid.UUID) (Booking, error) {
	return s.transition(ctx, orgID, bookingID, StatusConfirmed, func(b Booking) error {
		if s.referrals != nil && b.LeadID != nil {
			if err := s.referrals.GrantForBooking(ctx, bookingID); err != nil {
				return fmt.Errorf("granting referral credit: %w", err)
			}
		}
		return s.enqueueConfirmedEmail(ctx, b)
	})
}

// Cancel transitions a booking to CANCELLED, voiding any granted referral
// credit tied to it.
func (s *Service) Cancel(ctx context.Context, orgID, bookingID uuid.UUID) (Booking, error) {
	return s.transition(ctx, orgID, bookingID, StatusCancelled, func(b Booking) error {
		if s.referrals != nil && b.LeadID != nil {
			if err := s.referrals.VoidForBooking(ctx, bookingID); err != nil {
				return fmt.Errorf("voiding referral credit: %w", err)
			}
		}
		return nil
	})
}

// Start transitions a CONFIRMED booking to IN_PROGRESS.
func (s *Service) Start(ctx context.Context, orgID, bookingID uuid.UUID) (Booking, error) {
	return s.transition(ctx, orgID, bookingID, StatusInProgress, nil)
}

// Complete transitions an IN_PROGRESS booking to DONE.
func (s *Service) Complete(ctx context.Context, orgID, bookingID uuid.UUID) (Booking, error) {
	return s.transition(ctx, orgID, bookingID, StatusDone, nil)
}

func (s *Service) transition(ctx context.Context, orgID, bookingID uuid.UUID, to string, onSuccess func(Booking) error) (Booking, error) {
	b, err := s.store.GetForUpdate(ctx, orgID, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, apperror.NotFound("booking")
		}
		return Booking{}, err
	}
	if !CanTransition(b.Status, to) {
		return Booking{}, apperror.New(apperror.KindConflict, fmt.Sprintf("cannot move booking from %s to %s", b.Status, to))
	}

	var depositPaidAt *time.Time
	if to == StatusConfirmed && b.DepositRequired && b.DepositPaidAt == nil {
		now := time.Now()
		depositPaidAt = &now
	}

	if err := s.store.UpdateStatus(ctx, bookingID, to, depositPaidAt); err != nil {
		return Booking{}, err
	}
	telemetry.BookingStateTransitionsTotal.WithLabelValues(b.Status, to).Inc()

	b.Status = to
	if depositPaidAt != nil {
		b.DepositPaidAt = depositPaidAt
	}

	if onSuccess != nil {
		if err := onSuccess(b); err != nil {
			return Booking{}, err
		}
	}
	return b, nil
}

// HandleDepositPaymentWebhook applies an inbound payment provider event to
// the booking identified by its checkout session id. Processing is
// idempotent on eventID: a replay after the booking is already CONFIRMED is
// a no-op, and a replay landing on a cancelled booking is logged without
// mutating state.
func (s *Service) HandleDepositPaymentWebhook(ctx context.Context, eventID, sessionID string) error {
	b, err := s.store.GetByDepositSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("booking for deposit session")
		}
		return err
	}

	seen, err := s.store.WebhookEventSeen(ctx, b.OrgID, eventID)
	if err != nil {
		return err
	}
	if seen {
		s.logger.Info("payment webhook replay ignored", "event_id", eventID, "booking_id", b.ID, "status", b.Status)
		return nil
	}

	switch b.Status {
	case StatusConfirmed:
		return nil
	case StatusCancelled, StatusExpired:
		s.logger.Warn("payment webhook replay_mismatch", "event_id", eventID, "booking_id", b.ID, "status", b.Status)
		return nil
	case StatusAwaitingDeposit:
		_, err := s.Confirm(ctx, b.OrgID, b.ID)
		return err
	default:
		return apperror.New(apperror.KindConflict, fmt.Sprintf("unexpected booking status %s for deposit webhook", b.Status))
	}
}

// SweepExpired moves stale PENDING/AWAITING_DEPOSIT bookings to EXPIRED,
// releasing their slot. Returns the number of bookings expired.
func (s *Service) SweepExpired(ctx context.Context, limit int) (int, error) {
	candidates, err := s.store.ExpireSweepCandidates(ctx, time.Now().Add(-PendingHoldTTL), limit)
	if err != nil {
		return 0, err
	}
	for _, b := range candidates {
		if err := s.store.UpdateStatus(ctx, b.ID, StatusExpired, nil); err != nil {
			return 0, fmt.Errorf("expiring booking %s: %w", b.ID, err)
		}
		telemetry.BookingStateTransitionsTotal.WithLabelValues(b.Status, StatusExpired).Inc()
	}
	return len(candidates), nil
}

func (s *Service) enqueueConfirmedEmail(ctx context.Context, b Booking) error {
	dedupe := "booking_confirmed:" + b.ID.String()
	return s.outbox.Enqueue(ctx, b.OrgID, "booking_confirmed", &dedupe, map[string]any{
		"booking_id": b.ID.String(),
		"starts_at":  b.StartsAt,
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
