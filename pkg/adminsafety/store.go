package adminsafety

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/internal/platform"
)

// readOnlyConfigKey is this package's row in the generic org_config
// (org_id, key, value jsonb) settings store.
const readOnlyConfigKey = "admin_read_only"

// Store reads and writes the org_config row backing the read-only toggle.
type Store struct {
	db platform.DBTX
}

// NewStore creates an adminsafety Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// IsReadOnly reports whether writes are currently disabled for orgID. An org
// with no config row yet is not read-only.
func (s *Store) IsReadOnly(ctx context.Context, orgID uuid.UUID) (bool, error) {
	var readOnly bool
	err := s.db.QueryRow(ctx, `
		SELECT (value #>> '{}')::boolean FROM org_config WHERE org_id = $1 AND key = $2`,
		orgID, readOnlyConfigKey,
	).Scan(&readOnly)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("checking read-only state: %w", err)
	}
	return readOnly, nil
}

// SetReadOnly toggles read-only mode for orgID, creating the config row on
// first use.
func (s *Store) SetReadOnly(ctx context.Context, orgID uuid.UUID, readOnly bool) error {
	value := "false"
	if readOnly {
		value = "true"
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO org_config (org_id, key, value)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (org_id, key) DO UPDATE SET value = $3::jsonb`,
		orgID, readOnlyConfigKey, value)
	if err != nil {
		return fmt.Errorf("setting read-only state: %w", err)
	}
	return nil
}
