package team

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service implements team lookup and fair-rotation ranking.
type Service struct {
	store *Store
}

// NewService creates a team Service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// AvailableTeams returns the org's teams that can serve [start, end), ranked
// least-booked-first so repeated queries spread load evenly across crews —
// the same least-served selection the teacher used for on-call primaries.
func (s *Service) AvailableTeams(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]Team, error) {
	teams, err := s.store.List(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	type ranked struct {
		team  Team
		count int
	}
	var candidates []ranked

	since := time.Now().AddDate(0, 0, -30)
	for _, t := range teams {
		ok, err := s.isAvailable(ctx, t.ID, start, end)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		count, err := s.store.BookingCountSince(ctx, t.ID, since)
		if err != nil {
			return nil, fmt.Errorf("counting bookings for team %s: %w", t.ID, err)
		}
		candidates = append(candidates, ranked{team: t, count: count})
	}

	// Least-served first.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].count < candidates[j-1].count; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	out := make([]Team, len(candidates))
	for i, c := range candidates {
		out[i] = c.team
	}
	return out, nil
}

func (s *Service) isAvailable(ctx context.Context, teamID uuid.UUID, start, end time.Time) (bool, error) {
	hours, err := s.store.WorkingHoursFor(ctx, teamID)
	if err != nil {
		return false, fmt.Errorf("loading working hours: %w", err)
	}
	if !withinWorkingHours(hours, start, end) {
		return false, nil
	}

	blackouts, err := s.store.BlackoutsBetween(ctx, teamID, start, end)
	if err != nil {
		return false, fmt.Errorf("loading blackouts: %w", err)
	}
	for _, b := range blackouts {
		if b.Overlaps(start, end) {
			return false, nil
		}
	}
	return true, nil
}

func withinWorkingHours(hours []WorkingHours, start, end time.Time) bool {
	if start.Day() != end.Day() || start.Month() != end.Month() || start.Year() != end.Year() {
		return false
	}
	weekday := int(start.Weekday())
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	for _, h := range hours {
		if h.Weekday == weekday && startMin >= h.StartMin && endMin <= h.EndMin {
			return true
		}
	}
	return false
}
