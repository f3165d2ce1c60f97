package photo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/platform"
)

// Store provides database operations for photo evidence rows.
type Store struct {
	db platform.DBTX
}

// NewStore creates a photo Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// Create inserts a photo row.
func (s *Store) Create(ctx context.Context, p Photo) (Photo, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO photos (org_id, booking_id, storage_key, mime, size_bytes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.OrgID, p.BookingID, p.StorageKey, p.MIME, p.SizeBytes, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Photo{}, fmt.Errorf("inserting photo: %w", err)
	}
	return p, nil
}

// Get returns a photo by ID, scoped to org.
func (s *Store) Get(ctx context.Context, orgID, id uuid.UUID) (Photo, error) {
	var p Photo
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, booking_id, storage_key, mime, size_bytes, created_by, created_at
		FROM photos WHERE org_id = $1 AND id = $2`,
		orgID, id,
	).Scan(&p.ID, &p.OrgID, &p.BookingID, &p.StorageKey, &p.MIME, &p.SizeBytes, &p.CreatedBy, &p.CreatedAt)
	return p, err
}

// ListForBooking returns all photos attached to a booking.
func (s *Store) ListForBooking(ctx context.Context, orgID, bookingID uuid.UUID) ([]Photo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, org_id, booking_id, storage_key, mime, size_bytes, created_by, created_at
		FROM photos WHERE org_id = $1 AND booking_id = $2 ORDER BY created_at`,
		orgID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.OrgID, &p.BookingID, &p.StorageKey, &p.MIME, &p.SizeBytes, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a photo row. Callers must enqueue the matching storage
// delete (a storage_delete outbox entry) after this succeeds —
// the DB row is the source of truth for "does this photo still exist", so
// it is removed first.
func (s *Store) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM photos WHERE org_id = $1 AND id = $2`, orgID, id)
	return err
}
