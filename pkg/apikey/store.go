package apikey

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cleanco/backend/internal/platform"
)

const apiKeyColumns = `id, org_id, key_hash, key_prefix, description, scopes, last_used, expires_at, revoked_at, created_at`

// Store provides database operations for API keys.
type Store struct {
	db platform.DBTX
}

// NewStore creates an API key Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// CreateParams holds parameters for creating an API key.
type CreateParams struct {
	OrgID       uuid.UUID
	KeyHash     string
	KeyPrefix   string
	Description string
	Scopes      []string
	ExpiresAt   pgtype.Timestamptz
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(
		&r.ID, &r.OrgID, &r.KeyHash, &r.KeyPrefix, &r.Description,
		&r.Scopes, &r.LastUsed, &r.ExpiresAt, &r.RevokedAt, &r.CreatedAt,
	)
	return r, err
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}
	return items, nil
}

// List returns all non-revoked API keys for the given org.
func (s *Store) List(ctx context.Context, orgID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE org_id = $1 AND revoked_at IS NULL ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	return scanRows(rows)
}

// Create inserts a new API key and returns the created row.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO api_keys (org_id, key_hash, key_prefix, description, scopes, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + apiKeyColumns

	row := s.db.QueryRow(ctx, query,
		p.OrgID, p.KeyHash, p.KeyPrefix, p.Description, p.Scopes, p.ExpiresAt,
	)
	return scanRow(row)
}

// GetByHash looks up a live (non-revoked, non-expired) key by the hash of its
// raw value, as presented in an X-API-Key header. Used by the API key
// branch of identity.Middleware.
func (s *Store) GetByHash(ctx context.Context, hash string) (Row, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys
	WHERE key_hash = $1 AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > now())`
	row := s.db.QueryRow(ctx, query, hash)
	r, err := scanRow(row)
	if err == nil {
		_, _ = s.db.Exec(ctx, `UPDATE api_keys SET last_used = now() WHERE id = $1`, r.ID)
	}
	return r, err
}

// Revoke marks an API key revoked, scoped to an org.
func (s *Store) Revoke(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND org_id = $2 AND revoked_at IS NULL`,
		id, orgID,
	)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
