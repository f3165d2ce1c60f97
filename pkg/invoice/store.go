package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/platform"
)

// Store provides database operations for invoices, items, payments, and
// the per-(org, year) numbering sequence.
type Store struct {
	db platform.DBTX
}

// NewStore creates an invoice Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// NextNumber atomically allocates the next invoice number for (org, year)
// via an UPSERT returning the post-increment value, so concurrent creation
// within the same org/year cannot collide.
func (s *Store) NextNumber(ctx context.Context, orgID uuid.UUID, year int) (string, error) {
	var seq int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO invoice_number_seq (org_id, year, next_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (org_id, year)
		DO UPDATE SET next_value = invoice_number_seq.next_value + 1
		RETURNING next_value`,
		orgID, year,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocating invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%04d-%06d", year, seq), nil
}

// Create inserts a new draft invoice.
func (s *Store) Create(ctx context.Context, orgID uuid.UUID, bookingID *uuid.UUID, number string) (Invoice, error) {
	var inv Invoice
	err := s.db.QueryRow(ctx, `
		INSERT INTO invoices (org_id, booking_id, number, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, org_id, booking_id, number, status, public_token_hash, created_at, updated_at`,
		orgID, bookingID, number, StatusDraft,
	).Scan(&inv.ID, &inv.OrgID, &inv.BookingID, &inv.Number, &inv.Status, &inv.PublicTokenHash, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("inserting invoice: %w", err)
	}
	return inv, nil
}

// Get returns an invoice by ID, scoped to org.
func (s *Store) Get(ctx context.Context, orgID, id uuid.UUID) (Invoice, error) {
	var inv Invoice
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, booking_id, number, status, public_token_hash, created_at, updated_at
		FROM invoices WHERE org_id = $1 AND id = $2`,
		orgID, id,
	).Scan(&inv.ID, &inv.OrgID, &inv.BookingID, &inv.Number, &inv.Status, &inv.PublicTokenHash, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// GetByPublicTokenHash resolves an invoice from the hash of a public link
// token, org-unscoped since the token itself is the authenticator.
func (s *Store) GetByPublicTokenHash(ctx context.Context, hash string) (Invoice, error) {
	var inv Invoice
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, booking_id, number, status, public_token_hash, created_at, updated_at
		FROM invoices WHERE public_token_hash = $1`,
		hash,
	).Scan(&inv.ID, &inv.OrgID, &inv.BookingID, &inv.Number, &inv.Status, &inv.PublicTokenHash, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// SetPublicTokenHash rotates the invoice's public link token hash,
// invalidating any previously issued link.
func (s *Store) SetPublicTokenHash(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := s.db.Exec(ctx, `UPDATE invoices SET public_token_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	return err
}

// SetStatus updates an invoice's status.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

// AddItem inserts a line item.
func (s *Store) AddItem(ctx context.Context, invoiceID uuid.UUID, it Item) (Item, error) {
	it.InvoiceID = invoiceID
	err := s.db.QueryRow(ctx, `
		INSERT INTO invoice_items (invoice_id, description, quantity, unit_cents, tax_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		invoiceID, it.Description, it.Quantity, it.UnitCents, it.TaxCents,
	).Scan(&it.ID)
	if err != nil {
		return Item{}, fmt.Errorf("inserting invoice item: %w", err)
	}
	return it, nil
}

// Items returns all line items for an invoice.
func (s *Store) Items(ctx context.Context, invoiceID uuid.UUID) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_cents, tax_cents
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing invoice items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitCents, &it.TaxCents); err != nil {
			return nil, fmt.Errorf("scanning invoice item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddPayment records a payment against an invoice.
func (s *Store) AddPayment(ctx context.Context, invoiceID uuid.UUID, amountCents int64, reference string) (Payment, error) {
	p := Payment{InvoiceID: invoiceID, AmountCents: amountCents, Reference: reference}
	err := s.db.QueryRow(ctx, `
		INSERT INTO invoice_payments (invoice_id, amount_cents, reference, received_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, received_at`,
		invoiceID, amountCents, reference,
	).Scan(&p.ID, &p.ReceivedAt)
	if err != nil {
		return Payment{}, fmt.Errorf("inserting payment: %w", err)
	}
	return p, nil
}

// Payments returns all payments recorded against an invoice.
func (s *Store) Payments(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, invoice_id, amount_cents, reference, received_at
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY received_at`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.AmountCents, &p.Reference, &p.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// OverdueCandidates returns SENT/PARTIAL invoices older than cutoff, for the
// invoice-overdue-mark job to flag OVERDUE.
func (s *Store) OverdueCandidates(ctx context.Context, cutoff time.Time, limit int) ([]Invoice, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, org_id, booking_id, number, status, public_token_hash, created_at, updated_at
		FROM invoices
		WHERE status IN ('SENT', 'PARTIAL') AND created_at < $1
		ORDER BY created_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing overdue candidates: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.OrgID, &inv.BookingID, &inv.Number, &inv.Status, &inv.PublicTokenHash, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
