// Package team manages cleaning crews: teams, their recurring working hours,
// and blackout windows (holidays, maintenance) that remove availability.
// Fair-rotation ranking for slot assignment is grounded on the teacher's
// least-served-member scheduling algorithm.
package team

import (
	"time"

	"github.com/google/uuid"
)

// Team is a crew of one or more workers that can be booked as a unit.
type Team struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// WorkingHours is a recurring weekly availability window for a team.
type WorkingHours struct {
	ID        uuid.UUID
	TeamID    uuid.UUID
	Weekday   int // 0=Sunday .. 6=Saturday
	StartMin  int // minutes since midnight
	EndMin    int
}

// Blackout is a one-off window where a team is unavailable.
type Blackout struct {
	ID        uuid.UUID
	TeamID    uuid.UUID
	StartsAt  time.Time
	EndsAt    time.Time
	Reason    string
}

// Overlaps reports whether the blackout covers any part of [start, end).
func (b Blackout) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndsAt) && end.After(b.StartsAt)
}
