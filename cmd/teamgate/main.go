package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/teamgate/pkg/api"
	"github.com/platinummonkey/teamgate/pkg/audit"
	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/config"
	"github.com/platinummonkey/teamgate/pkg/gate"
	"github.com/platinummonkey/teamgate/pkg/messaging"
	"github.com/platinummonkey/teamgate/pkg/messaging/msteams"
	"github.com/platinummonkey/teamgate/pkg/messaging/telegram"
	"github.com/platinummonkey/teamgate/pkg/middleware"
	"github.com/platinummonkey/teamgate/pkg/observability"
	"github.com/platinummonkey/teamgate/pkg/orgs"
	"github.com/platinummonkey/teamgate/pkg/rbac"
	"github.com/platinummonkey/teamgate/pkg/storage"
	"github.com/platinummonkey/teamgate/pkg/verification"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "teamgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)
	logger.WithField("version", version).Info("Starting teamgate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	// Runs the registered steps if startup fails part way
	started := false
	defer func() {
		if !started {
			_ = shutdown.Shutdown(context.Background())
		}
	}()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.Register("otel", providers.Shutdown)

	db, err := storage.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	shutdown.Register("postgres", func(context.Context) error { return db.Close() })
	if cfg.Database.AutoMigrate {
		if err := storage.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("Database schema applied")
	}

	rdb, err := storage.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	shutdown.Register("redis", func(context.Context) error { return rdb.Close() })

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promRegistry)

	flags := config.NewFlags(cfg.Features)
	if cfg.Features.FlagsFile != "" {
		if err := flags.Reload(cfg.Features.FlagsFile); err != nil {
			return err
		}
	}
	metrics.SetFeatureFlag(gate.FlagExtraMessagingBackends, flags.ExtraMessagingBackendsEnabled())

	codes := verification.NewStore(rdb, cfg.Verification.CodeTTL)
	tg := telegram.New(cfg.Messaging, codes)
	backends, err := messaging.NewRegistry(
		messaging.Descriptor{DefaultEnabled: true, Backend: tg},
		messaging.Descriptor{Backend: msteams.New(cfg.Messaging, codes)},
	)
	if err != nil {
		return fmt.Errorf("failed to build messaging registry: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"count":    backends.Len(),
		"backends": backends.VisibleKeys(true),
	}).Info("Messaging backends registered")

	auditLogger := audit.NewLogrusLogger(os.Stdout)
	shutdown.Register("audit", func(context.Context) error { return auditLogger.Close() })

	engine := rbac.NewEngine(rbac.DefaultActions(), rbac.NewMetrics(promRegistry))
	requestGate := gate.New(engine, backends, flags,
		gate.WithMetrics(metrics),
		gate.WithAuditLogger(auditLogger),
	)

	tokens := auth.NewTokenManager(auth.NewSQLStore(db))

	var limiter *middleware.DistributedRateLimiter
	if cfg.Verification.RequestsPerHour > 0 {
		limiter = middleware.NewDistributedRateLimiter(rdb,
			middleware.VerificationRateLimitConfig(cfg.Verification.RequestsPerHour), "")
	}

	apiServer, err := api.NewServer(api.Dependencies{
		Orgs:     orgs.NewPostgresService(db),
		Gate:     requestGate,
		Registry: backends,
		Telegram: tg,
		Tokens:   tokens,
		Limiter:  limiter,
		Metrics:  metrics,
		Audit:    auditLogger,
		Logger:   logger,
		BasePath: cfg.Server.BasePath,
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	scheduler, err := startMaintenance(cfg.Maintenance, tokens, db, rdb, metrics, logger)
	if err != nil {
		return err
	}
	shutdown.Register("maintenance", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(apiServer, "teamgate"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, rdb, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Registered last so they stop first
	shutdown.Register("health server", healthServer.Shutdown)
	shutdown.Register("api server", httpServer.Shutdown)
	started = true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(httpServer, "API", logger)
	})
	g.Go(func() error {
		return serve(healthServer, "health", logger)
	})
	if cfg.Features.FlagsFile != "" {
		g.Go(func() error {
			return flags.Watch(gctx, cfg.Features.FlagsFile, logger)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		return shutdown.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("teamgate stopped")
	return nil
}

func serve(server *http.Server, name string, logger *observability.Logger) error {
	logger.Infof("Starting %s server on %s", name, server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
