package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cleanco/backend/internal/telemetry"
)

// Supervisor runs a fixed set of named Jobs, each on its own ticker,
// generalizing the teacher's single escalation ticker loop into one runner
// per background task. Grounded on pkg/escalation/engine.go's Run/tick shape.
type Supervisor struct {
	store      *Store
	logger     *slog.Logger
	jobs       []Job
	staleAfter time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewSupervisor creates a Supervisor. staleAfter is how long a required
// job's heartbeat may go unrefreshed before readiness reports unhealthy.
func NewSupervisor(store *Store, logger *slog.Logger, staleAfter time.Duration, jobs ...Job) *Supervisor {
	return &Supervisor{store: store, logger: logger, jobs: jobs, staleAfter: staleAfter}
}

// Start launches every job's ticker loop in its own goroutine. It returns
// immediately; call Shutdown to stop.
func (sup *Supervisor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	sup.cancel = cancel

	for _, j := range sup.jobs {
		sup.wg.Add(1)
		go sup.loop(ctx, j)
	}
}

func (sup *Supervisor) loop(ctx context.Context, j Job) {
	defer sup.wg.Done()

	sup.logger.Info("job started", "job", j.Name, "interval", j.Interval)
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sup.logger.Info("job stopped", "job", j.Name)
			return
		case <-ticker.C:
			sup.runOnce(ctx, j)
		}
	}
}

func (sup *Supervisor) runOnce(ctx context.Context, j Job) {
	start := time.Now()
	err := j.Run(ctx)
	telemetry.JobDuration.WithLabelValues(j.Name).Observe(time.Since(start).Seconds())
	telemetry.JobHeartbeatsTotal.WithLabelValues(j.Name).Inc()

	if err != nil {
		sup.logger.Error("job iteration failed", "job", j.Name, "error", err)
	}
	if hbErr := sup.store.Record(ctx, j.Name, err); hbErr != nil {
		sup.logger.Error("recording job heartbeat", "job", j.Name, "error", hbErr)
	}
}

// Shutdown cancels every job loop and waits for in-flight iterations to
// finish, up to the given drain budget.
func (sup *Supervisor) Shutdown(drain time.Duration) {
	if sup.cancel == nil {
		return
	}
	sup.cancel()

	done := make(chan struct{})
	go func() {
		sup.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drain):
		sup.logger.Warn("job supervisor shutdown drain budget exceeded")
	}
}

// Healthy reports whether every required job's heartbeat is fresh. A
// required job with no heartbeat yet (e.g. the process just started) is
// treated as healthy for one staleAfter window, since it has not had a
// chance to run.
func (sup *Supervisor) Healthy(ctx context.Context, since time.Time) (bool, string) {
	for _, j := range sup.jobs {
		if !j.Required {
			continue
		}
		hb, err := sup.store.Get(ctx, j.Name)
		if err != nil {
			if isNoRows(err) && time.Since(since) < sup.staleAfter {
				continue
			}
			return false, j.Name + ": no heartbeat recorded"
		}
		if hb.LastSuccessAt == nil || time.Since(*hb.LastSuccessAt) > sup.staleAfter {
			return false, j.Name + ": no successful run within the staleness window"
		}
	}
	return true, ""
}
