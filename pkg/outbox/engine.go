package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleanco/backend/internal/telemetry"
)

// Handler delivers a single outbox entry of one kind (e.g. "booking_confirmed").
type Handler func(ctx context.Context, e Entry) error

// Engine polls for due outbox entries and dispatches them to the registered
// Handler for their kind. Grounded on the teacher's single ticker-loop
// background worker shape, generalized into one named job the Supervisor runs
// alongside others.
type Engine struct {
	pool     *pgxpool.Pool
	store    *Store
	logger   *slog.Logger
	handlers map[string]Handler
	batch    int
	claimTTL time.Duration
}

// NewEngine creates a drain Engine.
func NewEngine(pool *pgxpool.Pool, logger *slog.Logger) *Engine {
	return &Engine{
		pool:     pool,
		store:    NewStore(pool),
		logger:   logger,
		handlers: make(map[string]Handler),
		batch:    50,
		claimTTL: 2 * time.Minute,
	}
}

// Register associates a Handler with an outbox entry kind.
func (e *Engine) Register(kind string, h Handler) {
	e.handlers[kind] = h
}

// Tick claims and delivers one batch of due entries. Exported so the
// Supervisor can schedule it directly.
func (e *Engine) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() { telemetry.OutboxDrainDuration.Observe(time.Since(start).Seconds()) }()

	entries, err := e.store.ClaimBatch(ctx, e.batch, e.claimTTL)
	if err != nil {
		return fmt.Errorf("claiming outbox batch: %w", err)
	}

	for _, entry := range entries {
		e.deliver(ctx, entry)
	}
	return nil
}

func (e *Engine) deliver(ctx context.Context, entry Entry) {
	handler, ok := e.handlers[entry.Kind]
	if !ok {
		e.logger.Error("no outbox handler registered", "kind", entry.Kind, "id", entry.ID)
		_ = e.store.MarkFailed(ctx, entry.ID, entry.Attempts+1, fmt.Errorf("no handler for kind %q", entry.Kind))
		return
	}

	if err := handler(ctx, entry); err != nil {
		e.logger.Warn("outbox delivery failed", "kind", entry.Kind, "id", entry.ID, "attempts", entry.Attempts+1, "error", err)
		telemetry.OutboxFailedTotal.WithLabelValues(entry.Kind).Inc()
		_ = e.store.MarkFailed(ctx, entry.ID, entry.Attempts+1, err)
		return
	}

	telemetry.OutboxDeliveredTotal.WithLabelValues(entry.Kind).Inc()
	_ = e.store.MarkDelivered(ctx, entry.ID)
}
