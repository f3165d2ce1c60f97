// Package invoice implements invoice numbering, line items, payment
// recording, and hash-only public link tokens.
package invoice

import (
	"time"

	"github.com/google/uuid"
)

// Status values for an invoice's lifecycle. VOID is terminal.
const (
	StatusDraft   = "DRAFT"
	StatusSent    = "SENT"
	StatusPartial = "PARTIAL"
	StatusPaid    = "PAID"
	StatusOverdue = "OVERDUE"
	StatusVoid    = "VOID"
)

// Invoice is a single billing document, optionally tied to a booking.
type Invoice struct {
	ID             uuid.UUID
	OrgID          uuid.UUID
	BookingID      *uuid.UUID
	Number         string
	Status         string
	PublicTokenHash *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item is a single line item on an invoice.
type Item struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    int64
	UnitCents   int64
	TaxCents    int64
}

// LineTotal returns qty * unit_price + tax for this item, in cents.
func (i Item) LineTotal() int64 {
	return i.Quantity*i.UnitCents + i.TaxCents
}

// Payment is a single recorded payment against an invoice.
type Payment struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	AmountCents int64
	Reference  string
	ReceivedAt time.Time
}

// Totals computes the invoice total and the sum of recorded payments, in
// cents.
func Totals(items []Item, payments []Payment) (total, paid int64) {
	for _, it := range items {
		total += it.LineTotal()
	}
	for _, p := range payments {
		paid += p.AmountCents
	}
	return total, paid
}

// StatusForPayment derives the invoice status implied by total/paid alone:
// SENT when nothing is paid, PARTIAL below total, PAID otherwise. It does not
// look at the invoice's current status, so it never returns VOID.
func StatusForPayment(total, paid int64) string {
	switch {
	case paid <= 0:
		return StatusSent
	case paid < total:
		return StatusPartial
	default:
		return StatusPaid
	}
}
