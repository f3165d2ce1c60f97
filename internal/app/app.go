// Package app wires every component into the running process: the HTTP API
// in "api" mode, the background job supervisor in "worker" mode. All
// construction happens here so individual packages stay free of framework
// and configuration concerns.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cleanco/backend/internal/audit"
	"github.com/cleanco/backend/internal/config"
	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/internal/identity"
	"github.com/cleanco/backend/internal/jobs"
	"github.com/cleanco/backend/internal/org"
	"github.com/cleanco/backend/internal/platform"
	"github.com/cleanco/backend/internal/telemetry"
	"github.com/cleanco/backend/internal/version"
	"github.com/cleanco/backend/pkg/adminsafety"
	"github.com/cleanco/backend/pkg/apikey"
	"github.com/cleanco/backend/pkg/booking"
	"github.com/cleanco/backend/pkg/chatflow"
	"github.com/cleanco/backend/pkg/entitlements"
	"github.com/cleanco/backend/pkg/estimate"
	"github.com/cleanco/backend/pkg/idempotency"
	"github.com/cleanco/backend/pkg/invoice"
	"github.com/cleanco/backend/pkg/lead"
	"github.com/cleanco/backend/pkg/messaging"
	"github.com/cleanco/backend/pkg/objectstore"
	"github.com/cleanco/backend/pkg/outbox"
	"github.com/cleanco/backend/pkg/photo"
	"github.com/cleanco/backend/pkg/pricing"
	"github.com/cleanco/backend/pkg/ratelimit"
	"github.com/cleanco/backend/pkg/team"
)

// Run loads shared infrastructure and dispatches to the runner for cfg.Mode.
func Run(ctx context.Context, cfg *config.Config) error {
	baseLogger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	logger := slog.New(audit.NewRedactingHandler(baseLogger.Handler())).
		With("version", version.Version, "commit", version.Commit)

	logger.Info("starting", "mode", cfg.Mode, "env", cfg.Env)

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	auditWriter := audit.NewWriter(pool, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, pool, rdb, auditWriter)
	case "worker":
		return runWorker(ctx, cfg, logger, pool)
	default:
		return fmt.Errorf("unknown run mode %q", cfg.Mode)
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, auditWriter *audit.Writer) error {
	accessTTL := parseDurationOr(cfg.AccessTokenTTL, 15*time.Minute)
	refreshTTL := parseDurationOr(cfg.RefreshTokenTTL, 720*time.Hour)

	sessions, err := identity.NewSessionManager(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}
	identityStore := identity.NewStore(pool)
	apiKeyAuth := apikey.NewAuthenticator(apikey.NewStore(pool))
	orgStore := org.NewStore(pool)

	storage, err := objectstore.New(ctx, objectstore.Config{
		Backend:     cfg.StorageBackend,
		LocalDir:    cfg.StorageLocalDir,
		LocalBase:   cfg.StorageLocalBase,
		S3Bucket:    cfg.S3Bucket,
		S3Region:    cfg.S3Region,
		S3Endpoint:  cfg.S3Endpoint,
		S3PathStyle: cfg.S3PathStyle,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
		SigningKey:  cfg.StorageSigningKey,
		CDNBaseURL:  cfg.CDNBaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating storage gateway: %w", err)
	}

	trustedProxies, err := ratelimit.ParseCIDRs(joinCIDRs(cfg.TrustedProxyCIDRs))
	if err != nil {
		return fmt.Errorf("parsing trusted proxy CIDRs: %w", err)
	}
	adminCIDRs, err := ratelimit.ParseCIDRs(joinCIDRs(cfg.AdminAllowedCIDRs))
	if err != nil {
		return fmt.Errorf("parsing admin allowed CIDRs: %w", err)
	}
	loginLimiter := ratelimit.New(rdb, cfg.LoginRateLimitMax, parseDurationOr(cfg.LoginRateLimitBurst, 15*time.Minute))

	leadReferrals := lead.NewService(lead.NewStore(pool))
	bookingHandler := booking.NewHandler(logger, auditWriter, leadReferrals, cfg.PaymentWebhookSecret)
	invoiceHandler := invoice.NewHandler(logger, auditWriter, storage)
	leadHandler := lead.NewHandler(logger, auditWriter)
	photoHandler := photo.NewHandler(logger, auditWriter, storage, rdb)
	apiKeyHandler := apikey.NewHandler(logger, auditWriter)
	auditHandler := audit.NewHandler(logger)
	authHandler := identity.NewHandler(logger, sessions, accessTTL, refreshTTL)

	estimator := pricing.NewRuleBasedEstimator(map[string]int64{
		"standard": 1200,
		"deep":     1800,
		"move_out": 2200,
		"recurring": 1000,
	})
	flow := chatflow.NewStaticFlow("service_type", map[string]chatflow.Turn{
		"service_type": {
			StepID: "service_type",
			Prompt: "What kind of clean are you looking for?",
			Options: []chatflow.Option{
				{Label: "Standard", Value: "standard", Next: "square_feet"},
				{Label: "Deep clean", Value: "deep", Next: "square_feet"},
				{Label: "Move out", Value: "move_out", Next: "square_feet"},
			},
		},
		"square_feet": {StepID: "square_feet", Prompt: "About how many square feet is the home?"},
	})
	estimateHandler := estimate.NewHandler(logger, estimator, flow)

	adminSafetyStore := adminsafety.NewStore(pool)
	adminGate := adminsafety.NewGate(adminSafetyStore, sessions, auditWriter, adminCIDRs)
	adminSafetyHandler := adminsafety.NewHandler(adminGate, logger)

	ob := outbox.NewEngine(pool, logger)
	msgRegistry := messaging.NewRegistry()
	if cfg.EmailEnabled {
		msgRegistry.Register(messaging.NewEmailProvider(cfg.SMTPAddr, cfg.SMTPFrom, "", "", ""))
	}
	ob.Register("booking_confirmed", emailOutboxHandler(msgRegistry, logger))
	ob.Register("storage_delete", storageDeleteOutboxHandler(storage))

	jobStore := jobs.NewStore(pool)
	bookingSweepService := func() *booking.Service {
		return booking.NewService(booking.NewStore(pool), team.NewService(team.NewStore(pool)), outbox.NewStore(pool), entitlements.NewChecker(entitlements.NewStore(pool)), leadReferrals, logger)
	}
	invoiceService := invoice.NewService(invoice.NewStore(pool))
	supervisor := jobs.NewSupervisor(jobStore, logger, 10*time.Minute,
		jobs.Job{Name: "outbox-drain", Interval: 10 * time.Second, Required: true, Run: ob.Tick},
		jobs.Job{Name: "booking-expiry-sweep", Interval: 5 * time.Minute, Required: true, Run: func(c context.Context) error {
			_, err := bookingSweepService().SweepExpired(c, 200)
			return err
		}},
		jobs.Job{Name: "invoice-overdue-mark", Interval: 1 * time.Hour, Required: false, Run: func(c context.Context) error {
			_, err := invoiceService.MarkOverdue(c, time.Now(), 500)
			return err
		}},
	)
	supervisor.Start(ctx)
	defer supervisor.Shutdown(30 * time.Second)

	metricsReg := telemetry.NewRegistry(telemetry.All()...)
	startedAt := time.Now()
	readyFunc := func() (bool, string) { return supervisor.Healthy(ctx, startedAt) }
	srv := httpserver.NewServer(httpserver.ServerConfig{CORSAllowedOrigins: cfg.CORSAllowedOrigins}, logger, pool, rdb, metricsReg, readyFunc)

	authMiddleware := identity.Middleware(identityStore, sessions, apiKeyAuth, cfg.IsDev(), logger)
	orgMiddleware := org.Middleware(pool, orgStore)
	publicIdentity := identity.PublicMiddleware()

	// Public, unauthenticated customer-facing routes: org is resolved from
	// the X-Tenant-Slug header, no staff session required.
	srv.Router.Group(func(r chi.Router) {
		r.Use(publicIdentity)
		r.Use(orgMiddleware)
		r.Mount("/v1", publicRouter(estimateHandler, leadHandler, bookingHandler))
	})

	// Token-addressed invoice routes resolve their own scope from the
	// opaque token; they run against the pool directly rather than an
	// org-scoped transaction, since no org is known ahead of the lookup.
	srv.Router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(org.WithPool(r.Context(), pool)))
			})
		})
		r.Mount("/i", invoiceHandler.PublicRoutes())
	})

	// Payment provider webhook: the caller carries no session, so a
	// synthetic public Identity plus the booking URL's tenant slug resolve
	// the org before org.Middleware opens its scoped transaction.
	srv.Router.Route("/webhooks/payment/{org_slug}", func(r chi.Router) {
		r.Use(tenantSlugFromPath)
		r.Use(publicIdentity)
		r.Use(orgMiddleware)
		r.Handle("/", bookingHandler.PaymentWebhookRoute())
	})

	// Session lifecycle: login/refresh resolve org from X-Tenant-Slug;
	// logout/me/change-password require an established session. Login and
	// refresh POSTs are additionally rate-limited per client IP to slow
	// credential-stuffing.
	srv.Router.Group(func(r chi.Router) {
		r.Use(publicIdentity)
		r.Use(orgMiddleware)
		r.Use(loginRateLimitMiddleware(loginLimiter, trustedProxies))
		r.Mount("/auth", authHandler.PublicRoutes())
	})
	srv.Router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(orgMiddleware)
		r.Mount("/auth", authHandler.AuthenticatedRoutes())
	})

	// Admin/staff surface: authenticated identity, org-scoped transaction,
	// the admin-safety Gate (CIDR allowlist + read-only), and idempotency
	// on writes. adminsafety's own control routes are mounted outside the
	// Gate so read-only mode cannot lock out its own override.
	srv.Router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(orgMiddleware)
		r.Mount("/v1/admin/admin-safety", adminSafetyHandler.Routes())
	})
	srv.Router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(orgMiddleware)
		r.Use(adminGate.Middleware)
		r.Use(idempotency.Middleware(logger))
		r.Mount("/v1/admin", adminRouter(bookingHandler, invoiceHandler, leadHandler, photoHandler, apiKeyHandler, auditHandler))
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool) error {
	jobStore := jobs.NewStore(pool)
	ob := outbox.NewEngine(pool, logger)
	msgRegistry := messaging.NewRegistry()
	if cfg.EmailEnabled {
		msgRegistry.Register(messaging.NewEmailProvider(cfg.SMTPAddr, cfg.SMTPFrom, "", "", ""))
	}
	ob.Register("booking_confirmed", emailOutboxHandler(msgRegistry, logger))
	ob.Register("storage_delete", storageDeleteOutboxHandler(nil))

	supervisor := jobs.NewSupervisor(jobStore, logger, 10*time.Minute,
		jobs.Job{Name: "outbox-drain", Interval: 10 * time.Second, Required: true, Run: ob.Tick},
	)
	supervisor.Start(ctx)

	<-ctx.Done()
	supervisor.Shutdown(30 * time.Second)
	return nil
}

// publicRouter assembles the customer-facing, anonymous routes.
func publicRouter(estimateHandler *estimate.Handler, leadHandler *lead.Handler, bookingHandler *booking.Handler) chi.Router {
	r := chi.NewRouter()
	est := estimateHandler.PublicRoutes()
	r.Handle("/estimate", est)
	r.Handle("/chat/*", est)
	r.Mount("/leads", leadHandler.PublicRoutes())
	bk := bookingHandler.PublicRoutes()
	r.Handle("/slots", bk)
	r.Handle("/bookings", bk)
	return r
}

// adminRouter assembles the staff-facing routes, mounted behind
// authentication, org scoping, the admin-safety Gate, and idempotency.
func adminRouter(bookingHandler *booking.Handler, invoiceHandler *invoice.Handler, leadHandler *lead.Handler, photoHandler *photo.Handler, apiKeyHandler *apikey.Handler, auditHandler *audit.Handler) chi.Router {
	r := chi.NewRouter()
	r.Mount("/bookings", bookingHandler.AdminRoutes())
	r.Mount("/bookings/{booking_id}/photos", photoHandler.Routes())
	r.Mount("/invoices", invoiceHandler.AdminRoutes())
	r.Mount("/leads", leadHandler.AdminRoutes())
	r.Mount("/api-keys", apiKeyHandler.Routes())
	r.Mount("/audit-log", auditHandler.Routes())
	return r
}

// tenantSlugFromPath copies the {org_slug} chi URL param into the
// X-Tenant-Slug header so the shared identity/org middleware chain resolves
// the org the same way it does for header-carrying requests.
func tenantSlugFromPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slug := chi.URLParam(r, "org_slug"); slug != "" {
			r.Header.Set("X-Tenant-Slug", slug)
		}
		next.ServeHTTP(w, r)
	})
}

func emailOutboxHandler(registry *messaging.Registry, logger *slog.Logger) outbox.Handler {
	return func(ctx context.Context, e outbox.Entry) error {
		provider, err := registry.Get("email")
		if err != nil {
			logger.Debug("no email provider configured, skipping delivery", "kind", e.Kind)
			return nil
		}
		var data map[string]any
		if err := unmarshalPayload(e, &data); err != nil {
			return err
		}
		subject, body, err := messaging.Render(e.Kind, data)
		if err != nil {
			return err
		}
		_, err = provider.Send(ctx, messaging.Message{Kind: e.Kind, Subject: subject, BodyText: body, Payload: data})
		return err
	}
}

func storageDeleteOutboxHandler(storage objectstore.Gateway) outbox.Handler {
	return func(ctx context.Context, e outbox.Entry) error {
		if storage == nil {
			return nil
		}
		var payload struct {
			StorageKey string `json:"storage_key"`
		}
		if err := unmarshalPayload(e, &payload); err != nil {
			return err
		}
		return storage.Delete(ctx, payload.StorageKey)
	}
}

func unmarshalPayload(e outbox.Entry, v any) error {
	return json.Unmarshal(e.Payload, v)
}

func joinCIDRs(cidrs []string) string {
	out := ""
	for i, c := range cidrs {
		if i > 0 {
			out += ","
		}
		out += c
	}
	return out
}

// loginRateLimitMiddleware bounds login attempts per client IP, failing
// open (per ratelimit.Limiter.Check) if the shared store is unreachable.
func loginRateLimitMiddleware(limiter *ratelimit.Limiter, trustedProxies []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := ratelimit.ClientIP(r, trustedProxies)
			result, err := limiter.Check(r.Context(), "login", ip)
			if err == nil && !result.Allowed {
				httpserver.RespondProblem(w, r, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again later")
				return
			}
			_ = limiter.Record(r.Context(), "login", ip)
			next.ServeHTTP(w, r)
		})
	}
}
