// Package lead implements lead intake with estimate-snapshot capture and
// referral attribution, plus the referral credit lifecycle that booking
// confirmation/cancellation drives.
package lead

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status values for a lead's lifecycle.
const (
	StatusNew       = "NEW"
	StatusContacted = "CONTACTED"
	StatusBooked    = "BOOKED"
	StatusDone      = "DONE"
	StatusCancelled = "CANCELLED"
)

// ReferralCodeLength is the fixed length of an issued referral code.
const ReferralCodeLength = 8

// Contact holds a lead's identifying details.
type Contact struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// Lead is a prospective customer captured via the public intake flow.
type Lead struct {
	ID              uuid.UUID
	OrgID           uuid.UUID
	Contact         Contact
	EstimateSnapshot json.RawMessage
	ReferralCode    string
	ReferredBy      *uuid.UUID
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReferralCredit states. GRANTED only occurs when the referred lead's
// booking reaches CONFIRMED; VOIDED when that booking is cancelled instead.
const (
	CreditPending = "PENDING"
	CreditGranted = "GRANTED"
	CreditVoided  = "VOIDED"
)

// ReferralCredit is the credit owed to a lead's referrer, resolved when the
// referred lead's booking is confirmed or cancelled.
type ReferralCredit struct {
	ID            uuid.UUID
	OrgID         uuid.UUID
	BeneficiaryID uuid.UUID // the referrer, who receives the credit
	SourceLeadID  uuid.UUID // the referred lead whose booking resolves it
	AmountCents   int64
	State         string
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// DefaultReferralCreditCents is the flat credit amount awarded per
// successful referral.
const DefaultReferralCreditCents = 2500
