// Package org resolves the calling tenant (organization) for a request and
// attaches an org-scoped database connection to the request context, backing
// every store's mandatory WHERE org_id = $1 predicate with a transaction-local
// Postgres GUC as defense in depth.
package org

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleanco/backend/internal/platform"
)

// Info holds the resolved organization for the current request.
type Info struct {
	ID   uuid.UUID
	Slug string
	Name string
}

type contextKey string

const (
	infoKey contextKey = "org_info"
	connKey contextKey = "org_conn"
	txKey   contextKey = "org_tx"
)

// NewContext stores org info in the context.
func NewContext(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, infoKey, info)
}

// FromContext extracts the org info from the context. Returns nil if none is set.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(infoKey).(*Info)
	return v
}

// NewConnContext stores an org-scoped pooled connection in the context.
func NewConnContext(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, connKey, conn)
}

// ConnFromContext extracts the org-scoped connection from the context.
// Returns nil if none is set.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	v, _ := ctx.Value(connKey).(*pgxpool.Conn)
	return v
}

// withTx stores the org-scoped transaction in the context.
func withTx(ctx context.Context, tx platform.DBTX) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// WithPool attaches the raw connection pool as the request's database handle,
// for routes that resolve their own scope from an opaque token rather than
// from an authenticated Identity (the public, token-addressed invoice
// routes) — there is no org to open a GUC-scoped transaction for until the
// token is looked up, so these run against the pool directly. Every store
// query reached this way still carries its own explicit org_id predicate.
func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return withTx(ctx, pool)
}

// DBFromContext returns the request's org-scoped database handle (a
// transaction with app.current_org_id set for its lifetime). Every domain
// store should be constructed per-request from this handle rather than from
// the raw pool, so its queries run inside the org-scoped transaction.
func DBFromContext(ctx context.Context) platform.DBTX {
	v, _ := ctx.Value(txKey).(platform.DBTX)
	return v
}
