package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cleanco/backend/pkg/webhookverify"
)

// CDNBackend wraps an origin S3Backend for writes, and returns HMAC
// query-signed URLs under a CDN host for reads — reusing the same
// client-facing signing shape as an outbound integration API call.
type CDNBackend struct {
	origin     *S3Backend
	baseURL    string
	signingKey string
	httpClient *http.Client
}

// NewCDNBackend wraps origin, serving signed reads from baseURL.
func NewCDNBackend(origin *S3Backend, baseURL, signingKey string) *CDNBackend {
	return &CDNBackend{
		origin:     origin,
		baseURL:    baseURL,
		signingKey: signingKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Put delegates to the origin S3 backend.
func (b *CDNBackend) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	return b.origin.Put(ctx, key, data, contentType)
}

// Delete delegates to the origin S3 backend, then invalidates nothing (the
// CDN cache is left to expire naturally on TTL).
func (b *CDNBackend) Delete(ctx context.Context, key string) error {
	return b.origin.Delete(ctx, key)
}

// SignDownload returns a query-signed CDN URL valid for ttl.
func (b *CDNBackend) SignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	expires := time.Now().Add(ttl).Unix()
	canonical := fmt.Sprintf("GET:%s:%d", key, expires)
	sig := webhookverify.SignQuery(b.signingKey, canonical)

	u, err := url.Parse(b.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing cdn base url: %w", err)
	}
	u.Path = u.Path + "/" + key
	q := u.Query()
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SignUpload falls back to the origin's presigned S3 PUT URL; the CDN only
// fronts reads.
func (b *CDNBackend) SignUpload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return b.origin.SignUpload(ctx, key, ttl)
}
