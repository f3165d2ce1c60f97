// Package booking implements the booking state machine: slot search with
// fair team rotation, atomic slot-exclusive creation, deposit-gated
// confirmation via an idempotent payment webhook, and the scheduled sweep of
// expired holds.
package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status values for a booking's lifecycle. Terminal states: Done, Cancelled,
// Expired.
const (
	StatusPending         = "PENDING"
	StatusAwaitingDeposit = "AWAITING_DEPOSIT"
	StatusConfirmed       = "CONFIRMED"
	StatusInProgress      = "IN_PROGRESS"
	StatusDone            = "DONE"
	StatusCancelled       = "CANCELLED"
	StatusExpired         = "EXPIRED"
)

// transitions lists the legal next states for each status.
var transitions = map[string][]string{
	StatusPending:         {StatusAwaitingDeposit, StatusConfirmed, StatusCancelled, StatusExpired},
	StatusAwaitingDeposit: {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed:       {StatusInProgress, StatusCancelled},
	StatusInProgress:      {StatusDone, StatusCancelled},
	StatusDone:            {},
	StatusCancelled:       {},
	StatusExpired:         {},
}

// CanTransition reports whether from -> to is a legal state transition.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no further transitions.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// Booking is a single scheduled cleaning job.
type Booking struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	LeadID           *uuid.UUID
	TeamID           *uuid.UUID
	StartsAt         time.Time
	DurationMinutes  int
	Status           string
	DepositRequired  bool
	DepositSessionID *string
	DepositPaidAt    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EndsAt returns the end of the booking's time interval.
func (b Booking) EndsAt() time.Time {
	return b.StartsAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// DepositPolicyInput is the context a deposit policy predicate evaluates.
type DepositPolicyInput struct {
	IsWeekend   bool
	IsDeepClean bool
	IsNewClient bool
}

// RequiresDeposit is a pure predicate over booking context. Its output is
// stored on the booking at creation time so later policy changes never
// retroactively alter existing bookings.
func RequiresDeposit(in DepositPolicyInput) bool {
	return in.IsWeekend || in.IsDeepClean || in.IsNewClient
}
