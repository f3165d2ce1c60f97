package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cleanco/backend/pkg/webhookverify"
)

// LocalBackend stores objects on the local filesystem and serves them behind
// HMAC-signed proxy URLs. Intended for development and single-node
// deployments, not production multi-node setups.
type LocalBackend struct {
	dir        string
	baseURL    string
	signingKey string
}

// NewLocalBackend creates a LocalBackend rooted at dir, serving signed URLs
// under baseURL (e.g. "http://localhost:8080/files").
func NewLocalBackend(dir, baseURL, signingKey string) *LocalBackend {
	return &LocalBackend{dir: dir, baseURL: baseURL, signingKey: signingKey}
}

func (b *LocalBackend) path(key string) string {
	return filepath.Join(b.dir, filepath.Clean("/"+key))
}

// Put writes data to dir/key.
func (b *LocalBackend) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	p := b.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", key, err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("creating file for %s: %w", key, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("writing file for %s: %w", key, err)
	}
	return nil
}

// Delete removes dir/key.
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file for %s: %w", key, err)
	}
	return nil
}

// SignDownload returns an HMAC-signed URL the local file-serving handler
// validates before streaming the file back.
func (b *LocalBackend) SignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return b.signedURL(key, ttl, "download")
}

// SignUpload returns an HMAC-signed URL for a direct PUT to the local
// file-serving handler.
func (b *LocalBackend) SignUpload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return b.signedURL(key, ttl, "upload")
}

func (b *LocalBackend) signedURL(key string, ttl time.Duration, action string) (string, error) {
	expires := time.Now().Add(ttl).Unix()
	canonical := fmt.Sprintf("%s:%s:%d", action, key, expires)
	sig := webhookverify.SignQuery(b.signingKey, canonical)

	u, err := url.Parse(b.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	u.Path = filepath.Join(u.Path, key)
	q := u.Query()
	q.Set("action", action)
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// VerifySignedURL checks a signed key/action/expires/sig tuple, as produced
// by signedURL, for the local file-serving HTTP handler.
func (b *LocalBackend) VerifySignedURL(key, action, expiresStr, sig string) error {
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expires: %w", err)
	}
	if time.Now().Unix() > expires {
		return fmt.Errorf("signed url expired")
	}
	canonical := fmt.Sprintf("%s:%s:%d", action, key, expires)
	expected := webhookverify.SignQuery(b.signingKey, canonical)
	if expected != sig {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Open returns a reader for the file at key, for the local file-serving
// handler to stream once VerifySignedURL succeeds.
func (b *LocalBackend) Open(key string) (*os.File, error) {
	return os.Open(b.path(key))
}
