package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/internal/platform"
)

// Store provides the database operations behind every authentication
// variant and session lifecycle operation.
type Store struct {
	db platform.DBTX
}

// NewStore creates an identity Store backed by the given database connection.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// User mirrors the users table row needed by authentication.
type User struct {
	ID           uuid.UUID
	OrgID        uuid.UUID
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	MustChangePW bool
	IsActive     bool
}

// GetUserByEmail looks up a user within an org by email (case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, orgID uuid.UUID, email string) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, email, display_name, password_hash, role, must_change_password, is_active
		FROM users WHERE org_id = $1 AND lower(email) = lower($2)`,
		orgID, email,
	).Scan(&u.ID, &u.OrgID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.MustChangePW, &u.IsActive)
	return u, err
}

// GetUserByID returns a user by its primary key, scoped to an org.
func (s *Store) GetUserByID(ctx context.Context, orgID, userID uuid.UUID) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, email, display_name, password_hash, role, must_change_password, is_active
		FROM users WHERE org_id = $1 AND id = $2`,
		orgID, userID,
	).Scan(&u.ID, &u.OrgID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.MustChangePW, &u.IsActive)
	return u, err
}

// UpdatePasswordHash rehashes a user's stored credential, e.g. after a
// successful legacy-scheme verification or an explicit change.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string, clearMustChange bool) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, must_change_password = ($3 AND false) OR must_change_password AND NOT $3, updated_at = now()
		WHERE id = $1`,
		userID, hash, clearMustChange)
	return err
}

// AdminUser is a per-org local-admin credential (principal_kind admin-operator).
type AdminUser struct {
	OrgID        uuid.UUID
	Username     string
	PasswordHash string
	Role         string
}

// GetAdminUser looks up a local admin credential by org + username.
func (s *Store) GetAdminUser(ctx context.Context, orgID uuid.UUID, username string) (AdminUser, error) {
	var a AdminUser
	err := s.db.QueryRow(ctx, `
		SELECT org_id, username, password_hash, role FROM admin_users
		WHERE org_id = $1 AND username = $2`,
		orgID, username,
	).Scan(&a.OrgID, &a.Username, &a.PasswordHash, &a.Role)
	return a, err
}

// Session is a DB-backed row tracking one issued refresh token and its
// rotation lineage.
type Session struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	UserID           uuid.UUID
	RefreshTokenHash string
	ExpiresAt        time.Time
	RevokedReason    *string
	CreatedAt        time.Time
}

// CreateSession inserts a new session row for a freshly issued refresh token.
func (s *Store) CreateSession(ctx context.Context, orgID, userID uuid.UUID, refreshHash string, expiresAt time.Time) (Session, error) {
	var sess Session
	err := s.db.QueryRow(ctx, `
		INSERT INTO sessions (org_id, user_id, refresh_token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, org_id, user_id, refresh_token_hash, expires_at, revoked_reason, created_at`,
		orgID, userID, refreshHash, expiresAt,
	).Scan(&sess.ID, &sess.OrgID, &sess.UserID, &sess.RefreshTokenHash, &sess.ExpiresAt, &sess.RevokedReason, &sess.CreatedAt)
	return sess, err
}

// GetSessionByRefreshHash looks up a live (non-revoked, non-expired) session
// by the hash of its refresh token.
func (s *Store) GetSessionByRefreshHash(ctx context.Context, hash string) (Session, error) {
	var sess Session
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, user_id, refresh_token_hash, expires_at, revoked_reason, created_at
		FROM sessions
		WHERE refresh_token_hash = $1 AND revoked_reason IS NULL AND expires_at > now()`,
		hash,
	).Scan(&sess.ID, &sess.OrgID, &sess.UserID, &sess.RefreshTokenHash, &sess.ExpiresAt, &sess.RevokedReason, &sess.CreatedAt)
	return sess, err
}

// RotateSession atomically revokes the predecessor session and inserts its
// replacement, using the predicated UPDATE's RowsAffected to decide the sole
// winner under concurrent refresh (spec.md §4.1's refresh invariant).
func (s *Store) RotateSession(ctx context.Context, oldID, orgID, userID uuid.UUID, newRefreshHash string, expiresAt time.Time) (Session, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE sessions SET revoked_reason = 'rotated'
		WHERE id = $1 AND revoked_reason IS NULL`,
		oldID)
	if err != nil {
		return Session{}, fmt.Errorf("revoking predecessor session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Session{}, pgx.ErrNoRows
	}
	return s.CreateSession(ctx, orgID, userID, newRefreshHash, expiresAt)
}

// RevokeSession marks a single session revoked with the given reason.
func (s *Store) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sessions SET revoked_reason = $2 WHERE id = $1 AND revoked_reason IS NULL`,
		sessionID, reason)
	return err
}

// RevokeAllForUser revokes every live session belonging to a user, returning
// the count revoked. Used by ChangePassword and account-compromise response.
func (s *Store) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE sessions SET revoked_reason = $2 WHERE user_id = $1 AND revoked_reason IS NULL`,
		userID, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// WorkerToken is an opaque, hash-checked, long-lived credential for cleaning
// staff (principal_kind worker).
type WorkerToken struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	WorkerID  uuid.UUID
	TokenHash string
	ExpiresAt *time.Time
	RevokedAt *time.Time
}

// GetWorkerTokenByHash looks up a live worker token by its hash.
func (s *Store) GetWorkerTokenByHash(ctx context.Context, hash string) (WorkerToken, error) {
	var t WorkerToken
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, worker_id, token_hash, expires_at, revoked_at
		FROM worker_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > now())`,
		hash,
	).Scan(&t.ID, &t.OrgID, &t.WorkerID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt)
	if err == nil {
		_, _ = s.db.Exec(ctx, `UPDATE worker_tokens SET last_used_at = now() WHERE id = $1`, t.ID)
	}
	return t, err
}

// MagicLinkToken is a single-use or TTL-bound opaque token bound to a
// booking or invoice, granting customer (principal_kind client) access.
type MagicLinkToken struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	BookingID *uuid.UUID
	InvoiceID *uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// GetMagicLinkByHash looks up a live magic-link token by its hash.
func (s *Store) GetMagicLinkByHash(ctx context.Context, hash string) (MagicLinkToken, error) {
	var t MagicLinkToken
	err := s.db.QueryRow(ctx, `
		SELECT id, org_id, booking_id, invoice_id, token_hash, expires_at, used_at
		FROM magic_link_tokens
		WHERE token_hash = $1 AND expires_at > now()`,
		hash,
	).Scan(&t.ID, &t.OrgID, &t.BookingID, &t.InvoiceID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt)
	return t, err
}
