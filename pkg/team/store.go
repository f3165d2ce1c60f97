package team

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleanco/backend/internal/platform"
)

// Store provides database operations for teams, working hours, and blackouts.
type Store struct {
	db platform.DBTX
}

// NewStore creates a team Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// List returns active teams for an org.
func (s *Store) List(ctx context.Context, orgID uuid.UUID) ([]Team, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, org_id, name, active, created_at FROM teams
		WHERE org_id = $1 AND active ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// Create inserts a new team.
func (s *Store) Create(ctx context.Context, orgID uuid.UUID, name string) (Team, error) {
	var t Team
	err := s.db.QueryRow(ctx, `
		INSERT INTO teams (org_id, name, active) VALUES ($1, $2, true)
		RETURNING id, org_id, name, active, created_at`,
		orgID, name,
	).Scan(&t.ID, &t.OrgID, &t.Name, &t.Active, &t.CreatedAt)
	return t, err
}

// WorkingHoursFor returns the recurring weekly hours for a team.
func (s *Store) WorkingHoursFor(ctx context.Context, teamID uuid.UUID) ([]WorkingHours, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, team_id, weekday, start_minute, end_minute
		FROM team_working_hours WHERE team_id = $1 ORDER BY weekday`, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing working hours: %w", err)
	}
	defer rows.Close()

	var hours []WorkingHours
	for rows.Next() {
		var h WorkingHours
		if err := rows.Scan(&h.ID, &h.TeamID, &h.Weekday, &h.StartMin, &h.EndMin); err != nil {
			return nil, fmt.Errorf("scanning working hours: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// BlackoutsBetween returns blackout windows for a team overlapping [from, to).
func (s *Store) BlackoutsBetween(ctx context.Context, teamID uuid.UUID, from, to time.Time) ([]Blackout, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, team_id, starts_at, ends_at, reason FROM team_blackouts
		WHERE team_id = $1 AND starts_at < $3 AND ends_at > $2`,
		teamID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing blackouts: %w", err)
	}
	defer rows.Close()

	var blackouts []Blackout
	for rows.Next() {
		var b Blackout
		if err := rows.Scan(&b.ID, &b.TeamID, &b.StartsAt, &b.EndsAt, &b.Reason); err != nil {
			return nil, fmt.Errorf("scanning blackout: %w", err)
		}
		blackouts = append(blackouts, b)
	}
	return blackouts, rows.Err()
}

// BookingCountSince returns how many bookings a team has been assigned since
// the given time, used to rank teams fairly when several can serve a slot.
func (s *Store) BookingCountSince(ctx context.Context, teamID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM bookings WHERE team_id = $1 AND created_at >= $2`,
		teamID, since,
	).Scan(&n)
	return n, err
}
