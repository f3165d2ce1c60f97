package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func withIdentity(r *http.Request, id *Identity) *http.Request {
	return r.WithContext(NewContext(r.Context(), id))
}

func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("no identity is rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		RequireAuth(ok).ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("authenticated passes through", func(t *testing.T) {
		r := withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), &Identity{Role: RoleViewer})
		w := httptest.NewRecorder()
		RequireAuth(ok).ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mw := RequireRole(RoleAdmin, RoleOwner)

	tests := []struct {
		name string
		id   *Identity
		want int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"disallowed role", &Identity{Role: RoleViewer}, http.StatusForbidden},
		{"allowed role admin", &Identity{Role: RoleAdmin}, http.StatusOK},
		{"allowed role owner", &Identity{Role: RoleOwner}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != nil {
				r = withIdentity(r, tt.id)
			}
			w := httptest.NewRecorder()
			mw(ok).ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireMinRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mw := RequireMinRole(RoleDispatcher)

	tests := []struct {
		name string
		id   *Identity
		want int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"below minimum", &Identity{Role: RoleViewer}, http.StatusForbidden},
		{"finance below dispatcher", &Identity{Role: RoleFinance}, http.StatusForbidden},
		{"exactly at minimum", &Identity{Role: RoleDispatcher}, http.StatusOK},
		{"above minimum", &Identity{Role: RoleOwner}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != nil {
				r = withIdentity(r, tt.id)
			}
			w := httptest.NewRecorder()
			mw(ok).ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
