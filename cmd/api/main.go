package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/lorrc/service-desk-sla/internal/adapters/primary/http"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-sla/internal/adapters/secondary/email"
	"github.com/lorrc/service-desk-sla/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-sla/internal/adapters/secondary/redis"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/config"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/services"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/logging"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/metrics"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/policywatch"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Database
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.MigrationsPath, cfg.Database.URL); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection established")

	ticketRepo := postgres.NewTicketSnapshotRepository(pool)
	agentRepo := postgres.NewAgentRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)
	authzRepo := postgres.NewAuthorizationRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	if err := authzRepo.EnsureRBACDefaults(ctx); err != nil {
		logger.Error("failed to seed RBAC defaults", "error", err)
		os.Exit(1)
	}

	// 4. Redis lock for assignment commits
	redisClient := redis.NewClient(ctx, cfg.Redis, logger)
	defer func() { _ = redisClient.Close() }()
	locker := redis.NewTicketLocker(redisClient, cfg.Redis.LockTTL)

	// 5. SLA policy: env thresholds, optionally overridden by a watched YAML file
	basePolicy := sla.PolicyFromHours(map[domain.TicketPriority]float64{
		domain.PriorityCritical: cfg.SLA.CriticalHours,
		domain.PriorityHigh:     cfg.SLA.HighHours,
		domain.PriorityMedium:   cfg.SLA.MediumHours,
		domain.PriorityLow:      cfg.SLA.LowHours,
	})
	policyStore := policywatch.NewStore(basePolicy)

	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New()
		appMetrics.ObservePolicy(basePolicy)
	}

	var watcher *policywatch.Watcher
	if cfg.SLA.PolicyFile != "" {
		watcher = policywatch.NewWatcher(cfg.SLA.PolicyFile, basePolicy, policyStore, logger)
		if appMetrics != nil {
			watcher.OnReload(appMetrics.ObservePolicy)
		}
		if err := watcher.Reload(); err != nil {
			logger.Warn("sla policy file not applied, using environment thresholds",
				"path", cfg.SLA.PolicyFile,
				"error", err,
			)
		}
	}

	// 6. Real-time and notification adapters
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	notifier := email.NewMockSMTPNotifier(userRepo, logger)
	clock := ports.SystemClock{}

	// 7. Services (Core)
	var (
		assignmentMetrics ports.AssignmentMetrics = noopMetrics{}
		complianceMetrics ports.ComplianceMetrics = noopMetrics{}
	)
	if appMetrics != nil {
		assignmentMetrics = appMetrics
		complianceMetrics = appMetrics
	}

	authzService := services.NewAuthorizationService(authzRepo,
		services.WithPermissionCacheTTL(cfg.JWT.PermissionCacheTTL),
	)
	slaService := services.NewSLAService(ticketRepo, authzService, policyStore, clock, services.SLAServiceConfig{
		ForecastHorizon: cfg.SLA.ForecastHorizon,
		TrendDays:       cfg.SLA.TrendDays,
	}, logger)
	analyticsService := services.NewAnalyticsService(analyticsRepo, ticketRepo, authzService, policyStore, clock, logger)
	assignmentService := services.NewAssignmentService(services.AssignmentDeps{
		Tickets:     ticketRepo,
		Agents:      agentRepo,
		Locker:      locker,
		Authz:       authzService,
		Notifier:    notifier,
		Broadcaster: hub,
		Metrics:     assignmentMetrics,
		Policy:      policyStore,
		Clock:       clock,
		SweepLimit:  cfg.SLA.SweepLimit,
	}, logger)
	monitor := services.NewSLAMonitor(ticketRepo, policyStore, clock, hub, notifier, complianceMetrics, services.SLAMonitorConfig{
		Interval: cfg.SLA.MonitorInterval,
		Horizon:  cfg.SLA.ForecastHorizon,
	}, logger)

	// 8. Handlers and router
	errorHandler := httpAdapter.NewErrorHandler(logger)
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Config:       cfg,
		Logger:       logger,
		TokenManager: tokenManager,
		Metrics:      appMetrics,
		Health: httpAdapter.NewHealthHandler(cfg.App.Version,
			httpAdapter.NamedCheck{Name: "database", Checker: postgres.NewPoolHealth(pool)},
			httpAdapter.NamedCheck{Name: "redis", Checker: redisClient, Optional: true},
		),
		SLA:        httpAdapter.NewSLAHandler(slaService, errorHandler, logger),
		Analytics:  httpAdapter.NewAnalyticsHandler(analyticsService, errorHandler, logger),
		Assignment: httpAdapter.NewAssignmentHandler(assignmentService, errorHandler, logger),
		WebSocket:  httpAdapter.NewWebSocketHandler(hub, tokenManager, authzService, cfg, logger),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 9. Run workers and server until a signal arrives
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if cfg.SLA.MonitorEnabled {
		g.Go(func() error {
			monitor.Run(gctx)
			return nil
		})
	}

	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				// Reload failures are non-fatal; the last good policy stays in force.
				logger.Error("sla policy watcher stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		assignmentService.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

// noopMetrics stands in when METRICS_ENABLED is false.
type noopMetrics struct{}

func (noopMetrics) ObserveAssignment(domain.AssignmentOutcome) {}

func (noopMetrics) ObserveCompliance(domain.ComplianceSummary, int) {}

func (noopMetrics) ObserveBreachAlert(domain.TicketPriority) {}
