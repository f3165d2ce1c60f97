// Package photo implements worker-uploaded evidence photos: MIME/size
// validation, org-scoped storage keys, and authorized, time-limited
// download links via the storage gateway.
package photo

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AllowedMIMETypes is the upload allowlist.
var AllowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// MaxSizeBytes is the upload size ceiling.
const MaxSizeBytes = 15 << 20 // 15 MiB

// DownloadTTL is the maximum lifetime of a minted photo download URL,
// intentionally short since photos may contain a customer's property.
const DownloadTTL = 60 * time.Second

// Photo is a single evidence image attached to a booking.
type Photo struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	BookingID  uuid.UUID
	StorageKey string
	MIME       string
	SizeBytes  int64
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}

// ValidateUpload checks a candidate upload's MIME type and size against the
// allowlist/ceiling, returning the file extension to use in the storage key.
func ValidateUpload(mime string, size int64) (ext string, ok bool) {
	ext, ok = AllowedMIMETypes[mime]
	if !ok {
		return "", false
	}
	if size <= 0 || size > MaxSizeBytes {
		return "", false
	}
	return ext, true
}

// StorageKey builds the fixed orders/{org}/{booking}/{photo}[.ext] key,
// rejecting any path traversal by construction: every component is either a
// UUID or a whitelisted extension, never caller-supplied free text.
func StorageKey(orgID, bookingID, photoID uuid.UUID, ext string) string {
	clean := path.Clean(ext)
	if strings.Contains(clean, "..") || strings.ContainsAny(clean, "/\\") {
		clean = ""
	}
	return "orders/" + orgID.String() + "/" + bookingID.String() + "/" + photoID.String() + clean
}
