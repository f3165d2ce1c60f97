// Package jobs runs the system's named background jobs — outbox draining,
// booking expiry sweeps and invoice overdue marking, as registered by
// internal/app — each on its own ticker, each recording a heartbeat so the
// readiness endpoint can detect a stalled job. There are no email reminder,
// retention cleanup or storage janitor jobs; storage objects are deleted by
// the outbox drain delivering storage_delete entries.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cleanco/backend/internal/platform"
)

// Job is a single named unit of recurring background work.
type Job struct {
	Name     string
	Interval time.Duration
	// Required marks a job whose heartbeat staleness should fail readiness.
	// Jobs doing best-effort cleanup (e.g. retention) are typically not required.
	Required bool
	Run      func(ctx context.Context) error
}

// Heartbeat records a single job's last run outcome.
type Heartbeat struct {
	JobName             string
	LastBeatAt          time.Time
	LastSuccessAt       *time.Time
	ConsecutiveFailures int
}

// Store persists job heartbeats.
type Store struct {
	db platform.DBTX
}

// NewStore creates a heartbeat Store.
func NewStore(db platform.DBTX) *Store {
	return &Store{db: db}
}

// Record upserts a job's heartbeat. last_beat_at always advances;
// last_success_at only advances and consecutive_failures only resets to
// zero when runErr is nil — a failing job keeps its last good
// last_success_at so staleness is measured from the last time it actually
// worked, not from its last (failing) attempt.
func (s *Store) Record(ctx context.Context, jobName string, runErr error) error {
	ok := runErr == nil
	_, err := s.db.Exec(ctx, `
		INSERT INTO job_heartbeats (job_name, last_beat_at, last_success_at, consecutive_failures)
		VALUES ($1, now(), CASE WHEN $2 THEN now() ELSE NULL END, CASE WHEN $2 THEN 0 ELSE 1 END)
		ON CONFLICT (job_name) DO UPDATE SET
			last_beat_at = now(),
			last_success_at = CASE WHEN $2 THEN now() ELSE job_heartbeats.last_success_at END,
			consecutive_failures = CASE WHEN $2 THEN 0 ELSE job_heartbeats.consecutive_failures + 1 END`,
		jobName, ok)
	if err != nil {
		return fmt.Errorf("recording heartbeat for %s: %w", jobName, err)
	}
	return nil
}

// Get returns the last recorded heartbeat for a job.
func (s *Store) Get(ctx context.Context, jobName string) (Heartbeat, error) {
	var hb Heartbeat
	hb.JobName = jobName
	err := s.db.QueryRow(ctx, `
		SELECT last_beat_at, last_success_at, consecutive_failures FROM job_heartbeats WHERE job_name = $1`,
		jobName,
	).Scan(&hb.LastBeatAt, &hb.LastSuccessAt, &hb.ConsecutiveFailures)
	if err != nil {
		return Heartbeat{}, err
	}
	return hb, nil
}

// All returns every recorded heartbeat.
func (s *Store) All(ctx context.Context) ([]Heartbeat, error) {
	rows, err := s.db.Query(ctx, `SELECT job_name, last_beat_at, last_success_at, consecutive_failures FROM job_heartbeats`)
	if err != nil {
		return nil, fmt.Errorf("listing heartbeats: %w", err)
	}
	defer rows.Close()

	var out []Heartbeat
	for rows.Next() {
		var hb Heartbeat
		if err := rows.Scan(&hb.JobName, &hb.LastBeatAt, &hb.LastSuccessAt, &hb.ConsecutiveFailures); err != nil {
			return nil, fmt.Errorf("scanning heartbeat: %w", err)
		}
		out = append(out, hb)
	}
	return out, rows.Err()
}

// isNoRows reports whether err is the sentinel for "no heartbeat recorded
// yet", which a brand-new job should not treat as unhealthy.
func isNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
