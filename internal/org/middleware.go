package org

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
)

// Middleware acquires a pooled connection, opens a transaction scoping it to
// the caller's organization via a transaction-local app.current_org_id GUC,
// and attaches both the transaction (satisfying platform.DBTX) and the
// resolved Info to the request context. It must run after identity.Middleware
// so it can read the authenticated Identity's OrgID; in dev mode, where the
// header fallback leaves Identity.OrgID nil, it resolves the org by the
// X-Tenant-Slug header instead.
//
// The GUC is defense in depth only: every store method still carries its own
// explicit WHERE org_id = $1 predicate and must not rely on the GUC alone.
func Middleware(pool *pgxpool.Pool, store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := identity.FromContext(ctx)
			if id == nil {
				httpserver.RespondProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			orgID := id.OrgID
			if orgID == uuid.Nil {
				slug := r.Header.Get("X-Tenant-Slug")
				info, err := store.GetBySlug(ctx, slug)
				if err != nil {
					httpserver.RespondProblem(w, r, http.StatusNotFound, "not_found", "unknown tenant")
					return
				}
				orgID = info.ID
				id.OrgID = orgID
			}

			conn, err := pool.Acquire(ctx)
			if err != nil {
				httpserver.RespondProblem(w, r, http.StatusServiceUnavailable, "unavailable", "database unavailable")
				return
			}
			defer conn.Release()

			tx, err := conn.Begin(ctx)
			if err != nil {
				httpserver.RespondProblem(w, r, http.StatusServiceUnavailable, "unavailable", "database unavailable")
				return
			}
			committed := false
			defer func() {
				if !committed {
					_ = tx.Rollback(ctx)
				}
			}()

			if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org_id', $1, true)`, orgID.String()); err != nil {
				httpserver.RespondProblem(w, r, http.StatusInternalServerError, "internal_error", "failed to scope request to organization")
				return
			}

			info, err := store.GetByID(ctx, orgID)
			if err != nil {
				httpserver.RespondProblem(w, r, http.StatusNotFound, "not_found", "unknown organization")
				return
			}

			ctx = NewContext(ctx, &info)
			ctx = identity.NewContext(ctx, id)
			ctx = withTx(ctx, tx)

			next.ServeHTTP(w, r.WithContext(ctx))

			if err := tx.Commit(ctx); err == nil {
				committed = true
			}
		})
	}
}
