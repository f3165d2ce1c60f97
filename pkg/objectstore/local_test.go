package objectstore

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestLocalBackend_PutOpenDelete(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir, "http://localhost:8080/files", "signing-key")
	ctx := context.Background()

	if err := b.Put(ctx, "orgs/1/photo.jpg", strings.NewReader("hello"), "image/jpeg"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	f, err := b.Open("orgs/1/photo.jpg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("read back %q, want %q", data, "hello")
	}

	if err := b.Delete(ctx, "orgs/1/photo.jpg"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := b.Open("orgs/1/photo.jpg"); err == nil {
		t.Error("Open() after Delete() should fail")
	}
}

func TestLocalBackend_DeleteMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir, "http://localhost:8080/files", "signing-key")
	if err := b.Delete(context.Background(), "never/existed.jpg"); err != nil {
		t.Errorf("Delete() of a missing key returned error %v, want nil", err)
	}
}

func parseSignedParams(t *testing.T, raw string) (action, expires, sig string) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing signed url: %v", err)
	}
	q := u.Query()
	return q.Get("action"), q.Get("expires"), q.Get("sig")
}

func TestLocalBackend_SignDownloadVerifies(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir, "http://localhost:8080/files", "signing-key")

	signed, err := b.SignDownload(context.Background(), "orgs/1/photo.jpg", time.Hour)
	if err != nil {
		t.Fatalf("SignDownload() error = %v", err)
	}
	action, expires, sig := parseSignedParams(t, signed)
	if action != "download" {
		t.Errorf("action = %q, want download", action)
	}
	if err := b.VerifySignedURL("orgs/1/photo.jpg", action, expires, sig); err != nil {
		t.Errorf("VerifySignedURL() error = %v, want nil for a freshly signed URL", err)
	}
}

func TestLocalBackend_VerifySignedURL_Expired(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir, "http://localhost:8080/files", "signing-key")

	signed, err := b.SignDownload(context.Background(), "orgs/1/photo.jpg", -time.Minute)
	if err != nil {
		t.Fatalf("SignDownload() error = %v", err)
	}
	action, expires, sig := parseSignedParams(t, signed)
	if err := b.VerifySignedURL("orgs/1/photo.jpg", action, expires, sig); err == nil {
		t.Error("VerifySignedURL() on an expired URL should fail")
	}
}

func TestLocalBackend_VerifySignedURL_TamperedKey(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir, "http://localhost:8080/files", "signing-key")

	signed, err := b.SignUpload(context.Background(), "orgs/1/photo.jpg", time.Hour)
	if err != nil {
		t.Fatalf("SignUpload() error = %v", err)
	}
	action, expires, sig := parseSignedParams(t, signed)
	if err := b.VerifySignedURL("orgs/2/other.jpg", action, expires, sig); err == nil {
		t.Error("VerifySignedURL() with a different key should fail signature check")
	}
}

func TestLocalBackend_VerifySignedURL_WrongSigningKey(t *testing.T) {
	dir := t.TempDir()
	signer := NewLocalBackend(dir, "http://localhost:8080/files", "signing-key-a")
	verifier := NewLocalBackend(dir, "http://localhost:8080/files", "signing-key-b")

	signed, err := signer.SignDownload(context.Background(), "orgs/1/photo.jpg", time.Hour)
	if err != nil {
		t.Fatalf("SignDownload() error = %v", err)
	}
	action, expires, sig := parseSignedParams(t, signed)
	if err := verifier.VerifySignedURL("orgs/1/photo.jpg", action, expires, sig); err == nil {
		t.Error("VerifySignedURL() with a different signing key should fail")
	}
}
