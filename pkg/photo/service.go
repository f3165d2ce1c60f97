package photo

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/pkg/apperror"
	"github.com/cleanco/backend/pkg/entitlements"
	"github.com/cleanco/backend/pkg/objectstore"
	"github.com/cleanco/backend/pkg/outbox"
)

const nonceKeyPrefix = "photo:dl-nonce:"

// Service implements upload validation, storage, authorized download-link
// minting, and delete with storage cleanup through the outbox.
type Service struct {
	store   *Store
	storage objectstore.Gateway
	outbox  *outbox.Store
	quota   *entitlements.Checker
	rdb     *redis.Client
}

// NewService creates a photo Service.
func NewService(store *Store, storage objectstore.Gateway, ob *outbox.Store, quota *entitlements.Checker, rdb *redis.Client) *Service {
	return &Service{store: store, storage: storage, outbox: ob, quota: quota, rdb: rdb}
}

// Upload validates a candidate photo and stores it, persisting the DB row
// only after the bytes are durably written.
func (s *Service) Upload(ctx context.Context, orgID, bookingID, createdBy uuid.UUID, mime string, size int64, data io.Reader) (Photo, error) {
	ext, ok := ValidateUpload(mime, size)
	if !ok {
		return Photo{}, apperror.Validation("unsupported photo type or size", map[string]string{"mime": "must be an allowed image type within the size ceiling"})
	}
	if err := s.quota.CheckStorage(ctx, orgID, size); err != nil {
		return Photo{}, err
	}

	photoID := uuid.New()
	key := StorageKey(orgID, bookingID, photoID, ext)

	if err := s.storage.Put(ctx, key, data, mime); err != nil {
		return Photo{}, fmt.Errorf("storing photo: %w", err)
	}

	p, err := s.store.Create(ctx, Photo{
		ID:         photoID,
		OrgID:      orgID,
		BookingID:  bookingID,
		StorageKey: key,
		MIME:       mime,
		SizeBytes:  size,
		CreatedBy:  createdBy,
	})
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return Photo{}, err
	}
	return p, nil
}

// CanView reports whether a caller may view a photo: an admin/owner/
// dispatcher/finance staff member, the worker who created it, or the
// magic-link client who owns the photo's booking.
func CanView(role, principal string, workerID, bookingID *uuid.UUID, photo Photo) bool {
	switch principal {
	case identity.PrincipalOperator:
		return true
	case identity.PrincipalStaff:
		return role == identity.RoleAdmin || role == identity.RoleOwner ||
			role == identity.RoleDispatcher || role == identity.RoleFinance
	case identity.PrincipalWorker:
		return workerID != nil && *workerID == photo.CreatedBy
	case identity.PrincipalClient:
		return bookingID != nil && *bookingID == photo.BookingID
	default:
		return false
	}
}

// IssueDownloadLink returns a signed download URL for a photo, valid for
// DownloadTTL. The URL is not bound to a nonce (IssueNonce/ConsumeNonce are
// separate), so it can be used any number of times until it expires.
func (s *Service) IssueDownloadLink(ctx context.Context, orgID, photoID uuid.UUID) (string, error) {
	p, err := s.store.Get(ctx, orgID, photoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperror.NotFound("photo")
		}
		return "", err
	}
	return s.storage.SignDownload(ctx, p.StorageKey, DownloadTTL)
}

// IssueNonce generates and records a single-use download nonce for a photo,
// valid for DownloadTTL.
func (s *Service) IssueNonce(ctx context.Context, photoID uuid.UUID) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := base64.RawURLEncoding.EncodeToString(b)
	key := nonceKeyPrefix + photoID.String() + ":" + nonce
	if err := s.rdb.Set(ctx, key, "1", DownloadTTL).Err(); err != nil {
		return "", fmt.Errorf("recording download nonce: %w", err)
	}
	return nonce, nil
}

// ConsumeNonce atomically checks and deletes a download nonce, returning
// false if it was already used or never existed.
func (s *Service) ConsumeNonce(ctx context.Context, photoID uuid.UUID, nonce string) (bool, error) {
	key := nonceKeyPrefix + photoID.String() + ":" + nonce
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("consuming download nonce: %w", err)
	}
	return n > 0, nil
}

// Delete removes a photo's DB row and enqueues a storage_delete outbox entry
// for its storage object, which the outbox drain delivers. The row is removed first so a
// concurrent reader never resolves a download link for a gone object.
func (s *Service) Delete(ctx context.Context, orgID, photoID uuid.UUID) error {
	p, err := s.store.Get(ctx, orgID, photoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("photo")
		}
		return err
	}
	if err := s.store.Delete(ctx, orgID, photoID); err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, orgID, "storage_delete", nil, map[string]any{"storage_key": p.StorageKey})
}
