package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/basket-checkout/internal/domain/auth"
	"github.com/xenking/basket-checkout/internal/domain/checkout"
	"github.com/xenking/basket-checkout/internal/domain/pricing"
	"github.com/xenking/basket-checkout/internal/domain/product"
	"github.com/xenking/basket-checkout/internal/handler"
	"github.com/xenking/basket-checkout/internal/storage/postgres"
	"github.com/xenking/basket-checkout/internal/storage/yamlfile"
	"github.com/xenking/basket-checkout/pkg/health"
	"github.com/xenking/basket-checkout/pkg/httpmiddleware"
)

// sources are the repositories the checkout service reads from.
type sources struct {
	products product.Repository
	rules    pricing.Repository
	apikeys  auth.Repository
}

// openCatalogFile loads the catalog document at path, falling back to the
// embedded default catalog when the file does not exist.
func openCatalogFile(lg *zap.Logger, path string) (*yamlfile.Store, error) {
	store, err := yamlfile.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		lg.Info("Catalog file not found, using default catalog", zap.String("path", path))
		return yamlfile.Default()
	}
	if err != nil {
		return nil, err
	}
	lg.Info("Loaded catalog file",
		zap.String("path", path),
		zap.Int("products", len(store.Catalog())),
		zap.Int("rules", len(store.Rules())),
	)
	return store, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New().WithLogger(lg.Named("health"))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	var src sources
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		src = sources{
			products: postgres.NewProductRepository(pool),
			rules:    postgres.NewRuleRepository(pool),
			apikeys:  postgres.NewAPIKeyRepository(pool),
		}
	} else {
		store, err := openCatalogFile(lg, cfg.CatalogFile)
		if err != nil {
			return errors.Wrap(err, "open catalog")
		}
		src = sources{
			products: store.ProductRepository(),
			rules:    store.RuleRepository(),
		}
		lg.Warn("Running without a database, API key authentication is disabled")
	}

	svc, err := checkout.NewService(src.products, src.rules,
		checkout.WithMeterProvider(m.MeterProvider()),
		checkout.WithTracerProvider(m.TracerProvider()),
		checkout.WithCacheTTL(cfg.CatalogTTL),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}
	if _, _, err := svc.Load(ctx); err != nil {
		return errors.Wrap(err, "load catalog")
	}
	healthSvc.AddReadinessCheck("catalog", 5*time.Second, health.NonEmptyCheck("products",
		func(ctx context.Context) (int, error) {
			catalog, _, err := svc.Load(ctx)
			return len(catalog), err
		},
	))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h := handler.New(handler.Config{
		APIKeys: src.apikeys,
		Pepper:  []byte(cfg.APIKeyPepper),
	}, svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.LogRequests(),
			httpmiddleware.Instrument("basket-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
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

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
