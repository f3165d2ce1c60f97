package identity

import (
	"net/http"

	"github.com/cleanco/backend/internal/httpserver"
)

// roleLevel maps roles to a numeric privilege level for hierarchical checks.
var roleLevel = map[string]int{
	RoleViewer:     10,
	RoleFinance:    20,
	RoleDispatcher: 30,
	RoleAdmin:      40,
	RoleOwner:      50,
}

// RequireAuth rejects requests that have no authenticated identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that rejects requests whose identity does not
// hold one of the listed roles, by exact match.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if id == nil {
				httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if _, ok := set[id.Role]; !ok {
				httpserver.RespondProblem(w, r, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMinRole returns middleware that rejects requests whose identity has
// a lower privilege level than the given minimum role.
func RequireMinRole(minRole string) func(http.Handler) http.Handler {
	minLevel := roleLevel[minRole]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if id == nil {
				httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if roleLevel[id.Role] < minLevel {
				httpserver.RespondProblem(w, r, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
