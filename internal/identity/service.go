package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cleanco/backend/pkg/apperror"
)

// Service implements the identity operations named in spec.md §4.1:
// Authenticate, Refresh, Revoke, ChangePassword.
type Service struct {
	store          *Store
	sessions       *SessionManager
	accessTokenTTL time.Duration
}

// NewService creates an identity Service.
func NewService(store *Store, sessions *SessionManager, accessTokenTTL time.Duration) *Service {
	return &Service{store: store, sessions: sessions, accessTokenTTL: accessTokenTTL}
}

// TokenPair is returned by Authenticate and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Authenticate verifies an org-scoped user's email/password and issues a new
// session. It never reveals whether the email exists: on any failure it
// still runs a dummy bcrypt comparison so the response shape and rough
// timing match the success path.
func (s *Service) Authenticate(ctx context.Context, orgID uuid.UUID, email, password string, refreshTTL time.Duration) (TokenPair, User, error) {
	user, err := s.store.GetUserByEmail(ctx, orgID, email)
	if err != nil {
		_, _ = VerifyPassword(DummyHash, password)
		return TokenPair{}, User{}, apperror.New(apperror.KindUnauthorized, "invalid email or password")
	}
	if !user.IsActive {
		_, _ = VerifyPassword(DummyHash, password)
		return TokenPair{}, User{}, apperror.New(apperror.KindUnauthorized, "invalid email or password")
	}

	ok, rehash := VerifyPassword(user.PasswordHash, password)
	if !ok {
		return TokenPair{}, User{}, apperror.New(apperror.KindUnauthorized, "invalid email or password")
	}
	if rehash != "" {
		_ = s.store.UpdatePasswordHash(ctx, user.ID, rehash, false)
	}

	pair, err := s.issuePair(ctx, user, refreshTTL)
	return pair, user, err
}

func (s *Service) issuePair(ctx context.Context, user User, refreshTTL time.Duration) (TokenPair, error) {
	rawRefresh, refreshHash, err := GenerateOpaqueToken("cln_rt_")
	if err != nil {
		return TokenPair{}, apperror.Wrap(apperror.KindInternal, "generating refresh token", err)
	}

	sess, err := s.store.CreateSession(ctx, user.OrgID, user.ID, refreshHash, time.Now().Add(refreshTTL))
	if err != nil {
		return TokenPair{}, apperror.Wrap(apperror.KindInternal, "creating session", err)
	}

	access, err := s.sessions.IssueAccessToken(AccessClaims{
		Subject:   user.ID.String(),
		OrgID:     user.OrgID.String(),
		Role:      user.Role,
		SessionID: sess.ID.String(),
	}, s.accessTokenTTL)
	if err != nil {
		return TokenPair{}, apperror.Wrap(apperror.KindInternal, "issuing access token", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: rawRefresh, ExpiresAt: time.Now().Add(s.accessTokenTTL)}, nil
}

// Refresh rotates a refresh token: the predecessor session is revoked and a
// replacement issued in a single predicated update, so concurrent refresh
// attempts on the same token have exactly one winner.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string, refreshTTL time.Duration) (TokenPair, error) {
	hash := HashToken(rawRefreshToken)
	sess, err := s.store.GetSessionByRefreshHash(ctx, hash)
	if err != nil {
		return TokenPair{}, apperror.New(apperror.KindUnauthorized, "invalid or expired refresh token")
	}

	user, err := s.store.GetUserByID(ctx, sess.OrgID, sess.UserID)
	if err != nil || !user.IsActive {
		return TokenPair{}, apperror.New(apperror.KindUnauthorized, "account is no longer active")
	}

	rawRefresh, refreshHash, err := GenerateOpaqueToken("cln_rt_")
	if err != nil {
		return TokenPair{}, apperror.Wrap(apperror.KindInternal, "generating refresh token", err)
	}

	newSess, err := s.store.RotateSession(ctx, sess.ID, sess.OrgID, sess.UserID, refreshHash, time.Now().Add(refreshTTL))
	if err != nil {
		return TokenPair{}, apperror.New(apperror.KindUnauthorized, "refresh token already used")
	}

	access, err := s.sessions.IssueAccessToken(AccessClaims{
		Subject:   user.ID.String(),
		OrgID:     user.OrgID.String(),
		Role:      user.Role,
		SessionID: newSess.ID.String(),
	}, s.accessTokenTTL)
	if err != nil {
		return TokenPair{}, apperror.Wrap(apperror.KindInternal, "issuing access token", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: rawRefresh, ExpiresAt: time.Now().Add(s.accessTokenTTL)}, nil
}

// Revoke revokes a single session by ID.
func (s *Service) Revoke(ctx context.Context, sessionID uuid.UUID, reason string) error {
	return s.store.RevokeSession(ctx, sessionID, reason)
}

// RevokeAllForUser revokes every live session for a user (e.g. on password
// change or suspected compromise) and returns the count revoked.
func (s *Service) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error) {
	return s.store.RevokeAllForUser(ctx, userID, reason)
}

// ChangePassword rehashes a user's password, clears must-change, and
// bulk-revokes every live session for the user, the caller's included.
func (s *Service) ChangePassword(ctx context.Context, user User, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "hashing password", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash, true); err != nil {
		return apperror.Wrap(apperror.KindInternal, "updating password", err)
	}
	if _, err := s.store.RevokeAllForUser(ctx, user.ID, "password_changed"); err != nil {
		return apperror.Wrap(apperror.KindInternal, "revoking sessions", err)
	}
	return nil
}
