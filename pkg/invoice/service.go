package invoice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/pkg/apperror"
)

// publicTokenBytes matches the 48-random-byte convention fixed for invoice
// links, wider than the 32-byte default used for session/worker tokens
// since these links carry no other authentication factor.
const publicTokenBytes = 48

// Service implements invoice creation, line items, payments, and public
// link issuance.
type Service struct {
	store *Store
}

// NewService creates an invoice Service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// ItemInput describes a line item to add at invoice creation.
type ItemInput struct {
	Description string
	Quantity    int64
	UnitCents   int64
	TaxCents    int64
}

// Create allocates the next invoice number for the current year and inserts
// a draft invoice with the given line items.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, bookingID *uuid.UUID, items []ItemInput) (Invoice, []Item, error) {
	number, err := s.store.NextNumber(ctx, orgID, time.Now().Year())
	if err != nil {
		return Invoice{}, nil, err
	}

	inv, err := s.store.Create(ctx, orgID, bookingID, number)
	if err != nil {
		return Invoice{}, nil, err
	}

	created := make([]Item, 0, len(items))
	for _, in := range items {
		it, err := s.store.AddItem(ctx, inv.ID, Item{Description: in.Description, Quantity: in.Quantity, UnitCents: in.UnitCents, TaxCents: in.TaxCents})
		if err != nil {
			return Invoice{}, nil, err
		}
		created = append(created, it)
	}
	return inv, created, nil
}

// RecordPayment adds a payment and recomputes the invoice's status from
// sum(payments) vs. the item total. The sum(payments) <= total invariant is
// enforced here: a payment that would exceed total is rejected.
func (s *Service) RecordPayment(ctx context.Context, orgID, invoiceID uuid.UUID, amountCents int64, reference string) (Invoice, error) {
	inv, err := s.store.Get(ctx, orgID, invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, apperror.NotFound("invoice")
		}
		return Invoice{}, err
	}
	if inv.Status == StatusVoid {
		return Invoice{}, apperror.New(apperror.KindConflict, "invoice is void")
	}

	items, err := s.store.Items(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	payments, err := s.store.Payments(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}

	total, paid := Totals(items, payments)
	if paid+amountCents > total {
		return Invoice{}, apperror.New(apperror.KindValidation, "payment would exceed invoice total")
	}

	if _, err := s.store.AddPayment(ctx, invoiceID, amountCents, reference); err != nil {
		return Invoice{}, err
	}

	newStatus := StatusForPayment(total, paid+amountCents)
	if err := s.store.SetStatus(ctx, invoiceID, newStatus); err != nil {
		return Invoice{}, err
	}
	inv.Status = newStatus
	return inv, nil
}

// Void marks an invoice VOID, a terminal state.
func (s *Service) Void(ctx context.Context, orgID, invoiceID uuid.UUID) error {
	inv, err := s.store.Get(ctx, orgID, invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("invoice")
		}
		return err
	}
	if inv.Status == StatusVoid {
		return nil
	}
	return s.store.SetStatus(ctx, invoiceID, StatusVoid)
}

// IssuePublicLink generates a new 48-random-byte public link token, storing
// only its hash. Calling this again rotates the token, invalidating any
// previously issued link — the behavior required when an invoice is resent.
func (s *Service) IssuePublicLink(ctx context.Context, orgID, invoiceID uuid.UUID) (string, error) {
	if _, err := s.store.Get(ctx, orgID, invoiceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperror.NotFound("invoice")
		}
		return "", err
	}

	b := make([]byte, publicTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating public link token: %w", err)
	}
	raw := identity.InvoiceLinkPrefix + base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(raw))
	hash := hex.EncodeToString(sum[:])

	if err := s.store.SetPublicTokenHash(ctx, invoiceID, hash); err != nil {
		return "", err
	}
	return raw, nil
}

// ResolvePublicLink looks up the invoice addressed by a raw public link
// token. URLs never embed the invoice or customer identifier — only this
// opaque token — so this is the sole way the public routes resolve one.
func (s *Service) ResolvePublicLink(ctx context.Context, rawToken string) (Invoice, error) {
	sum := sha256.Sum256([]byte(rawToken))
	hash := hex.EncodeToString(sum[:])

	inv, err := s.store.GetByPublicTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, apperror.NotFound("invoice")
		}
		return Invoice{}, err
	}
	return inv, nil
}

// MarkOverdue sweeps SENT/PARTIAL invoices past cutoff to OVERDUE, returning
// the count updated.
func (s *Service) MarkOverdue(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	candidates, err := s.store.OverdueCandidates(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	for _, inv := range candidates {
		if err := s.store.SetStatus(ctx, inv.ID, StatusOverdue); err != nil {
			return 0, fmt.Errorf("marking invoice %s overdue: %w", inv.ID, err)
		}
	}
	return len(candidates), nil
}
