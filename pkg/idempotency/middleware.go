package idempotency

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/org"
)

// Middleware enforces the Idempotency-Key contract on admin write requests.
// A request without the header on a write method is rejected. A request
// whose key has already been seen with an identical body replays the cached
// response without re-invoking next. A request reusing a key with a
// different body is rejected as a conflict. The store is built per request
// from the org-scoped transaction already attached to the context, since
// every admin_idempotency row must be written under the same transaction
// as the request it guards.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RequireForWrites(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(HeaderName)
			if key == "" {
				httpserver.RespondProblem(w, r, http.StatusBadRequest, "missing_idempotency_key",
					"this request requires an "+HeaderName+" header")
				return
			}

			id := identity.FromContext(r.Context())
			if id == nil {
				httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "missing authentication")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				httpserver.RespondProblem(w, r, http.StatusBadRequest, "invalid_body", "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := HashBody(r.Method, r.URL.Path, body)

			s := &Store{db: org.DBFromContext(r.Context())}
			cached, err := s.Lookup(r.Context(), id.OrgID, key)
			if err != nil {
				logger.Error("idempotency lookup failed", "error", err)
				httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to check idempotency key")
				return
			}
			if cached != nil {
				if cached.BodyHash != hash {
					httpserver.RespondProblem(w, r, http.StatusConflict, "idempotency_key_reused",
						"this idempotency key was already used with a different request body")
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotency-Replayed", "true")
				w.WriteHeader(cached.ResponseStatus)
				_, _ = w.Write(cached.ResponseBody)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				storeErr := s.Store(r.Context(), Record{
					OrgID:          id.OrgID,
					Method:         r.Method,
					Path:           r.URL.Path,
					IdempotencyKey: key,
					BodyHash:       hash,
					ResponseStatus: rec.status,
					ResponseBody:   append([]byte(nil), rec.body.Bytes()...),
				})
				if storeErr != nil {
					logger.Error("idempotency store failed", "error", storeErr)
				}
			}
		})
	}
}

// responseRecorder buffers a handler's response so it can be cached
// alongside the idempotency record after a successful write.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
