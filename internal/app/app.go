package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/catering-kart/internal/domain/admin"
	"github.com/xenking/catering-kart/internal/domain/auth"
	"github.com/xenking/catering-kart/internal/domain/cart"
	"github.com/xenking/catering-kart/internal/domain/order"
	"github.com/xenking/catering-kart/internal/handler"
	"github.com/xenking/catering-kart/internal/storage/sqlstore"
	"github.com/xenking/catering-kart/pkg/health"
	"github.com/xenking/catering-kart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	store, err := sqlstore.Open(ctx, cfg.DB, lg.Named("db"))
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck(string(store.Driver()), 5*time.Second, health.PingCheck(store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, cfg.Health.Interval)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := sqlstore.NewCatalogRepository(store)
	cartRepo := sqlstore.NewCartRepository(store)
	orderRepo := sqlstore.NewOrderRepository(store)
	authRepo := sqlstore.NewAuthRepository(store)
	adminRepo := sqlstore.NewAdminRepository(store)

	// Domain services.
	pepper := cfg.Session.Pepper
	if pepper == "" {
		if pepper, err = auth.NewToken(); err != nil {
			return errors.Wrap(err, "generate session pepper")
		}
		lg.Warn("SESSION_PEPPER is not set, sessions will not survive a restart")
	}
	authSvc := auth.NewService(authRepo, authRepo, auth.Config{
		Pepper:     []byte(pepper),
		SessionTTL: cfg.Session.TTL,
	})

	h, err := handler.New(handler.Deps{
		Auth:      authSvc,
		Catalog:   catalogRepo,
		Occasions: catalogRepo,
		Cart:      cart.NewService(cartRepo, catalogRepo),
		Orders:    order.NewService(catalogRepo, cartRepo, orderRepo),
		Admin:     admin.NewService(adminRepo, orderRepo),
	}, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	// Router: health endpoints + API routes on one server.
	router := mux.NewRouter()
	router.HandleFunc("/livez", healthSvc.LiveEndpoint)
	router.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(router)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
		Key: func(r *http.Request) string {
			return httpmiddleware.ClientIP(r, cfg.RateLimit.TrustProxy)
		},
		Skip: func(r *http.Request) bool {
			return r.Method == http.MethodOptions || r.URL.Path == "/livez" || r.URL.Path == "/readyz"
		},
	})
	go limiter.Run(ctx)
	go purgeSessions(ctx, lg, authSvc, cfg.Session.PurgeInterval)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:     cfg.AllowedOrigins(),
				Headers:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
				Expose:      []string{httpmiddleware.RequestIDHeader},
				Credentials: true,
				MaxAge:      24 * time.Hour,
			}),
			limiter.Middleware(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("catering-api", routeFinder, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening",
		zap.String("addr", cfg.Addr),
		zap.String("db", string(store.Driver())),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// purgeSessions deletes expired sessions every interval until ctx is done.
func purgeSessions(ctx context.Context, lg *zap.Logger, svc *auth.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				lg.Warn("Purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Debug("Purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
