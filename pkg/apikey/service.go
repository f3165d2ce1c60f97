package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cleanco/backend/internal/platform"
)

// Service encapsulates API key business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates an API key Service.
func NewService(db platform.DBTX, logger *slog.Logger) *Service {
	return &Service{
		store:  NewStore(db),
		logger: logger,
	}
}

// List returns all live API keys for the given org.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]Response, error) {
	rows, err := s.store.List(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}

	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Create generates a new API key, stores its hash, and returns the raw key once.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req CreateRequest) (CreateResponse, error) {
	raw, hash, prefix, err := generateAPIKey()
	if err != nil {
		return CreateResponse{}, fmt.Errorf("generating api key: %w", err)
	}

	var expiresAt pgtype.Timestamptz
	if req.ExpiresIn != nil {
		expiresAt = pgtype.Timestamptz{Time: time.Now().AddDate(0, 0, *req.ExpiresIn), Valid: true}
	}

	row, err := s.store.Create(ctx, CreateParams{
		OrgID:       orgID,
		KeyHash:     hash,
		KeyPrefix:   prefix,
		Description: req.Description,
		Scopes:      req.Scopes,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return CreateResponse{}, fmt.Errorf("creating api key: %w", err)
	}

	return CreateResponse{
		Response: row.ToResponse(),
		RawKey:   raw,
	}, nil
}

// Revoke permanently disables an API key.
func (s *Service) Revoke(ctx context.Context, orgID, id uuid.UUID) error {
	if err := s.store.Revoke(ctx, orgID, id); err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	return nil
}

// generateAPIKey creates a random API key with the cln_key_ prefix, its
// SHA-256 hash, and a short display prefix.
func generateAPIKey() (raw, hash, displayPrefix string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	raw = KeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	h := sha256.Sum256([]byte(raw))
	hash = hex.EncodeToString(h[:])
	displayPrefix = raw[:len(KeyPrefix)+6]
	return raw, hash, displayPrefix, nil
}
