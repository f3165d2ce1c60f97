package org

import (
	"context"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/platform"
)

// Store resolves organization metadata by slug or ID.
type Store struct {
	db platform.DBTX
}

// NewStore creates an org Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// GetBySlug looks up an organization by its public slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (Info, error) {
	var info Info
	err := s.db.QueryRow(ctx, `SELECT id, slug, name FROM orgs WHERE slug = $1`, slug).
		Scan(&info.ID, &info.Slug, &info.Name)
	return info, err
}

// GetByID looks up an organization by its primary key.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Info, error) {
	var info Info
	err := s.db.QueryRow(ctx, `SELECT id, slug, name FROM orgs WHERE id = $1`, id).
		Scan(&info.ID, &info.Slug, &info.Name)
	return info, err
}
