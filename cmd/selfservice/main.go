package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/config"
	"github.com/boddenberg/pay-selfservice-go/internal/handler"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/client"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/resilience"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/stripeconnect"
	"github.com/boddenberg/pay-selfservice-go/internal/onboarding"
	"github.com/boddenberg/pay-selfservice-go/internal/port"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("session_store", cfg.SessionStore),
		zap.Duration("session_max_age", cfg.SessionMaxAge),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "pay-selfservice")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	resilienceCfg := resilience.Config{Timeout: cfg.HTTPTimeout, MaxConcurrency: cfg.MaxConcurrency}

	connector := client.NewConnectorClient(httpClient, cfg.ConnectorURL, resilienceCfg, metrics, logger)
	ledger := client.NewLedgerClient(httpClient, cfg.LedgerURL, resilienceCfg, metrics, logger)
	adminusers := client.NewAdminUsersClient(httpClient, cfg.AdminUsersURL, resilienceCfg, metrics, logger)
	publicAuth := client.NewPublicAuthClient(httpClient, cfg.PublicAuthURL, resilienceCfg, metrics, logger)
	products := client.NewProductsClient(httpClient, cfg.ProductsURL, resilienceCfg, metrics, logger)
	webhooks := client.NewWebhooksClient(httpClient, cfg.WebhooksURL, resilienceCfg, metrics, logger)
	stripe := stripeconnect.New(stripeconnect.Config{
		SecretKey:  cfg.StripeAPIKey,
		URL:        cfg.StripeAPIURL,
		HTTPClient: httpClient,
	}, metrics, logger)

	// --- Sessions ---
	store, closeStore, err := newSessionStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}
	defer closeStore()

	sessions, err := session.NewManager(cfg.SessionSecret, store, session.Options{
		MaxAge: cfg.SessionMaxAge,
		Secure: cfg.SecureCookies,
	}, metrics, logger)
	if err != nil {
		logger.Fatal("failed to create session manager", zap.Error(err))
	}

	// --- Onboarding tasks ---
	catalogue, err := onboarding.Load(cfg.OnboardingTasksFile)
	if err != nil {
		logger.Fatal("failed to load onboarding tasks", zap.Error(err))
	}

	// --- Router ---
	router, err := handler.NewRouter(handler.Deps{
		Accounts:     service.NewAccountService(adminusers, connector, metrics, logger),
		Auth:         service.NewAuthService(adminusers, logger),
		Dashboard:    service.NewDashboardService(ledger, publicAuth, products, connector, metrics, logger),
		Tokens:       service.NewTokenService(publicAuth, logger),
		Transactions: service.NewTransactionService(ledger, logger),
		PaymentLinks: service.NewPaymentLinkService(products, publicAuth, cfg.ProductsFriendlyBaseURI, logger),
		Settings:     service.NewSettingsService(connector, logger),
		Agreements:   service.NewAgreementService(ledger, connector, logger),
		Webhooks:     service.NewWebhookService(webhooks, logger),
		DemoPayments: service.NewDemoPaymentService(connector, logger),
		GoLive:       service.NewGoLiveService(adminusers, logger),
		Onboarding:   service.NewOnboardingService(connector, stripe, catalogue, logger),
		Sessions:     sessions,
		Features:     cfg.FeatureFlags,
		Pingers:      []port.Pinger{connector, ledger, adminusers, publicAuth, products, webhooks},
		Metrics:      metrics,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newSessionStore opens the configured session backend. The returned func
// releases it.
func newSessionStore(cfg *config.Config, logger *zap.Logger) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		logger.Info("using redis session store", zap.String("addr", opts.Addr))
		return session.NewRedisStore(rdb, ""), func() { _ = rdb.Close() }, nil

	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := session.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		purger := session.NewPurger(store, logger)
		if err := purger.Start(cfg.SessionPurgeSchedule); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("schedule session purge: %w", err)
		}
		logger.Info("using postgres session store")
		return store, func() {
			<-purger.Stop().Done()
			pool.Close()
		}, nil

	default:
		store := session.NewMemoryStore(time.Minute)
		logger.Warn("using in-memory session store, sessions are lost on restart")
		return store, store.Close, nil
	}
}
