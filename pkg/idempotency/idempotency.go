// Package idempotency implements the admin write-path Idempotency-Key
// contract: the first request under a key is executed and its response
// cached; a retry presenting the same key and the same body replays the
// cached response, while a retry presenting the same key with a different
// body is rejected as a conflict.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cleanco/backend/internal/platform"
	"github.com/cleanco/backend/pkg/apperror"
)

const uniqueViolationCode = "23505"

// CacheTTL bounds how long a cached admin response may be replayed.
const CacheTTL = 24 * time.Hour

// HeaderName is the client-supplied retry-correlation header.
const HeaderName = "Idempotency-Key"

// Record is a cached admin write outcome.
type Record struct {
	OrgID          uuid.UUID
	Method         string
	Path           string
	IdempotencyKey string
	BodyHash       string
	ResponseStatus int
	ResponseBody   json.RawMessage
	CreatedAt      time.Time
}

// Store persists idempotency records.
type Store struct {
	db platform.DBTX
}

// NewStore creates an idempotency Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// HashBody computes the content fingerprint stored alongside a cached
// response, over method, path, and the raw request body. Two requests under
// the same Idempotency-Key with different bodies will have different
// hashes, which is how a conflicting retry is detected.
func HashBody(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached record for (org, key) if one exists and has not
// expired past CacheTTL.
func (s *Store) Lookup(ctx context.Context, orgID uuid.UUID, key string) (*Record, error) {
	var rec Record
	err := s.db.QueryRow(ctx, `
		SELECT org_id, method, path, idempotency_key, body_hash, response_status, response_body, created_at
		FROM admin_idempotency
		WHERE org_id = $1 AND idempotency_key = $2 AND created_at > now() - $3::interval`,
		orgID, key, fmt.Sprintf("%d seconds", int(CacheTTL.Seconds())),
	).Scan(&rec.OrgID, &rec.Method, &rec.Path, &rec.IdempotencyKey, &rec.BodyHash, &rec.ResponseStatus, &rec.ResponseBody, &rec.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up idempotency record: %w", err)
	}
	return &rec, nil
}

// Store records the outcome of a first-time admin write under key. A
// concurrent duplicate insert (two racing requests with the same key) is
// resolved by the unique constraint on (org_id, idempotency_key): the loser
// returns a conflict error, and the caller should re-Lookup to replay the
// winner's response.
func (s *Store) Store(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO admin_idempotency (org_id, method, path, idempotency_key, body_hash, response_status, response_body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		rec.OrgID, rec.Method, rec.Path, rec.IdempotencyKey, rec.BodyHash, rec.ResponseStatus, rec.ResponseBody)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.KindConflict, "idempotency key already in use by a concurrent request")
		}
		return fmt.Errorf("storing idempotency record: %w", err)
	}
	return nil
}

// RequireForWrites reports whether method requires an Idempotency-Key.
func RequireForWrites(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// isNoRows reports whether err is the sentinel for "no cached record yet".
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, the signal that a concurrent request raced this one under the
// same idempotency key.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}
