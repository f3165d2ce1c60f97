// Package entitlements enforces per-org plan quotas: worker seats, storage
// bytes, bookings per month, and API keys. Breaching a quota returns
// apperror.KindPlanLimit so callers get a uniform 402 response.
package entitlements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/platform"
	"github.com/cleanco/backend/pkg/apperror"
)

// Plan names recognized by the quota table.
const (
	PlanStarter  = "starter"
	PlanGrowth   = "growth"
	PlanScale    = "scale"
)

// Quota is the set of limits attached to a plan.
type Quota struct {
	MaxWorkers        int
	MaxStorageBytes    int64
	MaxBookingsPerMonth int
	MaxAPIKeys         int
}

var defaultQuotas = map[string]Quota{
	PlanStarter: {MaxWorkers: 5, MaxStorageBytes: 5 << 30, MaxBookingsPerMonth: 200, MaxAPIKeys: 2},
	PlanGrowth:  {MaxWorkers: 25, MaxStorageBytes: 50 << 30, MaxBookingsPerMonth: 2000, MaxAPIKeys: 5},
	PlanScale:   {MaxWorkers: 200, MaxStorageBytes: 500 << 30, MaxBookingsPerMonth: 20000, MaxAPIKeys: 20},
}

// Store reads an org's plan and usage counters.
type Store struct {
	db platform.DBTX
}

// NewStore creates an entitlements Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// PlanFor returns the plan name configured for an org, defaulting to starter.
func (s *Store) PlanFor(ctx context.Context, orgID uuid.UUID) (string, error) {
	var plan string
	err := s.db.QueryRow(ctx, `SELECT plan FROM orgs WHERE id = $1`, orgID).Scan(&plan)
	if err != nil {
		return "", err
	}
	if plan == "" {
		plan = PlanStarter
	}
	return plan, nil
}

func (s *Store) countWorkers(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM workers WHERE org_id = $1 AND deactivated_at IS NULL`, orgID).Scan(&n)
	return n, err
}

func (s *Store) countAPIKeys(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM api_keys WHERE org_id = $1 AND revoked_at IS NULL`, orgID).Scan(&n)
	return n, err
}

func (s *Store) countBookingsThisMonth(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE org_id = $1 AND created_at >= date_trunc('month', now())`, orgID).Scan(&n)
	return n, err
}

func (s *Store) storageUsedBytes(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT coalesce(sum(size_bytes), 0) FROM photos WHERE org_id = $1`, orgID).Scan(&n)
	return n, err
}

// Checker enforces quotas ahead of a mutating operation.
type Checker struct {
	store *Store
}

// NewChecker creates an entitlements Checker.
func NewChecker(store *Store) *Checker {
	return &Checker{store: store}
}

func (c *Checker) quota(ctx context.Context, orgID uuid.UUID) (Quota, error) {
	plan, err := c.store.PlanFor(ctx, orgID)
	if err != nil {
		return Quota{}, fmt.Errorf("resolving plan: %w", err)
	}
	q, ok := defaultQuotas[plan]
	if !ok {
		q = defaultQuotas[PlanStarter]
	}
	return q, nil
}

// CheckWorkerSeat returns apperror.KindPlanLimit if adding one more worker
// would breach the org's plan.
func (c *Checker) CheckWorkerSeat(ctx context.Context, orgID uuid.UUID) error {
	q, err := c.quota(ctx, orgID)
	if err != nil {
		return err
	}
	n, err := c.store.countWorkers(ctx, orgID)
	if err != nil {
		return fmt.Errorf("counting workers: %w", err)
	}
	if n >= q.MaxWorkers {
		return apperror.New(apperror.KindPlanLimit, "worker seat limit reached for current plan")
	}
	return nil
}

// CheckAPIKey returns apperror.KindPlanLimit if minting one more API key
// would breach the org's plan.
func (c *Checker) CheckAPIKey(ctx context.Context, orgID uuid.UUID) error {
	q, err := c.quota(ctx, orgID)
	if err != nil {
		return err
	}
	n, err := c.store.countAPIKeys(ctx, orgID)
	if err != nil {
		return fmt.Errorf("counting api keys: %w", err)
	}
	if n >= q.MaxAPIKeys {
		return apperror.New(apperror.KindPlanLimit, "api key limit reached for current plan")
	}
	return nil
}

// CheckBookingQuota returns apperror.KindPlanLimit if one more booking this
// calendar month would breach the org's plan.
func (c *Checker) CheckBookingQuota(ctx context.Context, orgID uuid.UUID) error {
	q, err := c.quota(ctx, orgID)
	if err != nil {
		return err
	}
	n, err := c.store.countBookingsThisMonth(ctx, orgID)
	if err != nil {
		return fmt.Errorf("counting bookings: %w", err)
	}
	if n >= q.MaxBookingsPerMonth {
		return apperror.New(apperror.KindPlanLimit, "monthly booking limit reached for current plan")
	}
	return nil
}

// CheckStorage returns apperror.KindPlanLimit if storing additionalBytes more
// would breach the org's plan.
func (c *Checker) CheckStorage(ctx context.Context, orgID uuid.UUID, additionalBytes int64) error {
	q, err := c.quota(ctx, orgID)
	if err != nil {
		return err
	}
	used, err := c.store.storageUsedBytes(ctx, orgID)
	if err != nil {
		return fmt.Errorf("summing storage usage: %w", err)
	}
	if used+additionalBytes > q.MaxStorageBytes {
		return apperror.New(apperror.KindPlanLimit, "storage limit reached for current plan")
	}
	return nil
}
