package photo

import (
	"testing"

	"github.com/google/uuid"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		mime    string
		size    int64
		wantExt string
		wantOK  bool
	}{
		{"jpeg within limit", "image/jpeg", 1024, ".jpg", true},
		{"png within limit", "image/png", 1024, ".png", true},
		{"webp within limit", "image/webp", 1024, ".webp", true},
		{"disallowed mime", "application/pdf", 1024, "", false},
		{"zero size", "image/jpeg", 0, "", false},
		{"negative size", "image/jpeg", -1, "", false},
		{"over ceiling", "image/jpeg", MaxSizeBytes + 1, "", false},
		{"at ceiling", "image/jpeg", MaxSizeBytes, ".jpg", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, ok := ValidateUpload(tt.mime, tt.size)
			if ok != tt.wantOK || ext != tt.wantExt {
				t.Errorf("ValidateUpload(%q, %d) = (%q, %v), want (%q, %v)", tt.mime, tt.size, ext, ok, tt.wantExt, tt.wantOK)
			}
		})
	}
}

func TestStorageKey(t *testing.T) {
	orgID, bookingID, photoID := uuid.New(), uuid.New(), uuid.New()

	key := StorageKey(orgID, bookingID, photoID, ".jpg")
	want := "orders/" + orgID.String() + "/" + bookingID.String() + "/" + photoID.String() + ".jpg"
	if key != want {
		t.Errorf("StorageKey() = %q, want %q", key, want)
	}
}

func TestStorageKey_RejectsPathTraversal(t *testing.T) {
	orgID, bookingID, photoID := uuid.New(), uuid.New(), uuid.New()

	tests := []string{"../../etc/passwd", "/etc/passwd", "..\\windows", ".."}
	for _, ext := range tests {
		key := StorageKey(orgID, bookingID, photoID, ext)
		want := "orders/" + orgID.String() + "/" + bookingID.String() + "/" + photoID.String()
		if key != want {
			t.Errorf("StorageKey() with ext %q = %q, want the traversal stripped down to %q", ext, key, want)
		}
	}
}

func TestCanView(t *testing.T) {
	bookingID := uuid.New()
	workerID := uuid.New()
	otherWorkerID := uuid.New()
	photo := Photo{BookingID: bookingID, CreatedBy: workerID}

	tests := []struct {
		name      string
		role      string
		principal string
		workerID  *uuid.UUID
		bookingID *uuid.UUID
		want      bool
	}{
		{"admin operator always sees it", "", "admin-operator", nil, nil, true},
		{"staff admin sees it", "admin", "staff", nil, nil, true},
		{"staff owner sees it", "owner", "staff", nil, nil, true},
		{"staff dispatcher sees it", "dispatcher", "staff", nil, nil, true},
		{"staff finance sees it", "finance", "staff", nil, nil, true},
		{"staff viewer does not", "viewer", "staff", nil, nil, false},
		{"creator worker sees it", "", "worker", &workerID, nil, true},
		{"other worker does not", "", "worker", &otherWorkerID, nil, false},
		{"nil worker does not", "", "worker", nil, nil, false},
		{"owning client sees it", "", "client", nil, &bookingID, true},
		{"other client does not", "", "client", nil, func() *uuid.UUID { b := uuid.New(); return &b }(), false},
		{"unknown principal never sees it", "", "mystery", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(tt.role, tt.principal, tt.workerID, tt.bookingID, photo); got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}
