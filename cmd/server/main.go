package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventapp "github.com/Massea0/entrepriseOS-complete-sub002/internal/application/event"
	tradeapp "github.com/Massea0/entrepriseOS-complete-sub002/internal/application/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/auth"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/cache"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/config"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/event"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/logger"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/migration"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/notify"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/storage"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/telemetry"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/handler"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/middleware"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting purchase order engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("driver", cfg.Database.Driver),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	ladder, err := cfg.Approval.Ladder()
	if err != nil {
		log.Fatal("Invalid approval ladder", zap.Error(err))
	}

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = logsProvider.Bridge(log, log.Core())

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              cfg.Profiling.Enabled,
		ServerAddress:        cfg.Profiling.ServerAddress,
		ApplicationName:      cfg.Profiling.ApplicationName,
		Environment:          cfg.App.Env,
		BasicAuthUser:        cfg.Profiling.BasicAuthUser,
		BasicAuthPassword:    cfg.Profiling.BasicAuthPassword,
		ProfileTypes:         cfg.Profiling.ProfileTypes,
		MutexProfileFraction: cfg.Profiling.MutexProfileFraction,
		BlockProfileRate:     cfg.Profiling.BlockProfileRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles && tracerProvider.EnableSpanProfiles() {
		log.Info("Span profiles enabled")
	}

	// Storage
	var (
		db        *persistence.Database
		orderRepo trade.PurchaseOrderRepository
		gormRepo  *persistence.GormPurchaseOrderRepository
		dbMetrics *telemetry.DBMetrics
	)
	if cfg.Database.Driver == config.DriverMemory {
		orderRepo = persistence.NewMemoryPurchaseOrderRepository()
		cfg.Event.OutboxEnabled = false
		log.Warn("Using in-memory order storage, data is lost on restart")
	} else {
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
		db, err = persistence.NewDatabase(&cfg.Database, gormLog)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		log.Info("Database connected successfully")

		if cfg.Database.Driver == config.DriverPostgres && !cfg.Database.AutoMigrate {
			runMigrations(db, log)
		}

		tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        cfg.Database.Driver,
		}, log)
		if err := tracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}

		dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
		}
		dbMetrics, err = telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log)
		if err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		}
		if dbMetrics != nil {
			dbMetrics.StartPoolStatsCollection(ctx)
		}

		gormRepo = persistence.NewGormPurchaseOrderRepository(db.DB)
		orderRepo = gormRepo
	}

	// Idempotency store shared by the receive command and the event handlers
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Idempotency,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Event bus and its subscribers
	eventBus := event.NewInMemoryEventBus(log)
	snapshotStore := newSnapshotStore(ctx, cfg, log)
	subscribe := func(h shared.EventHandler, name string) {
		eventBus.Subscribe(event.NewIdempotentHandler(h, idempotencyStore, name, cfg.Idempotency.TTL, log), h.EventTypes()...)
	}

	hub := notify.NewHub(log)
	subscribe(tradeapp.NewStatusNotificationHandler(ladder,
		tradeapp.Notifiers{hub, notify.NewLoggingNotifier(log)}, log), "status_notification")
	subscribe(tradeapp.NewSnapshotArchiveHandler(orderRepo, ladder, snapshotStore, log), "snapshot_archive")

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application service
	orderService := tradeapp.NewPurchaseOrderService(orderRepo, ladder,
		tradeapp.NewLadderActorResolver(ladder, cfg.JWT.TrustLevelClaims))
	if cfg.Idempotency.Enabled {
		orderService.SetIdempotencyStore(idempotencyStore, cfg.Idempotency.TTL)
	}

	var outboxService *eventapp.OutboxService
	serializer := event.NewPurchaseOrderSerializer()
	if cfg.Event.OutboxEnabled && gormRepo != nil {
		// events are written in the order's transaction and delivered by the processor
		gormRepo.SetOutboxEventSaver(event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries))
		outboxRepo := event.NewGormOutboxRepository(db.DB)
		outboxService = eventapp.NewOutboxService(outboxRepo, log)

		if cfg.Event.ProcessorEnabled {
			processorCfg := event.OutboxProcessorConfig{
				BatchSize:        cfg.Event.BatchSize,
				PollInterval:     cfg.Event.PollInterval,
				CleanupEnabled:   cfg.Event.CleanupEnabled,
				CleanupRetention: cfg.Event.CleanupRetention,
			}
			outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log)
			if err := outboxProcessor.Start(ctx); err != nil {
				log.Fatal("Failed to start outbox processor", zap.Error(err))
			}
			defer func() {
				if err := outboxProcessor.Stop(context.Background()); err != nil {
					log.Error("Error stopping outbox processor", zap.Error(err))
				}
			}()
			log.Info("Outbox processor started",
				zap.Int("batch_size", processorCfg.BatchSize),
				zap.Duration("poll_interval", processorCfg.PollInterval),
			)
		}
	} else {
		orderService.SetEventPublisher(eventBus)
	}

	if db != nil && meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meterProvider.Meter("purchase_orders"),
			Logger:          log,
			CollectInterval: cfg.Telemetry.MetricsInterval,
			StatsProvider:   telemetry.NewGormOrderStatsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to create business metrics", zap.Error(err))
		} else {
			orderService.SetBusinessMetrics(businessMetrics)
			businessMetrics.StartPeriodicCollection(ctx, telemetry.NewGormTenantProvider(db.DB), cfg.Telemetry.MetricsInterval)
			defer businessMetrics.Stop()
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. Tracing and metrics
	// 7. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.HTTP))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(meterProvider))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, cfg.Database.Driver, pinger)
	engine.GET("/health", systemHandler.Health)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Notifications socket; browsers cannot set headers on the upgrade request
	wsGroup := engine.Group("/api/v1/ws",
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:      jwtService,
			AllowQueryToken: true,
			Logger:          log,
		}),
		middleware.TenantMiddleware(),
	)
	wsGroup.GET("/notifications", handler.NewNotificationHandler(hub, cfg.HTTP.CORSAllowOrigins).Connect)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			Logger:     log,
		}),
		middleware.TenantMiddleware(),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingLabels(profiler.IsEnabled()),
	)
	if cfg.HTTP.RateLimitRequests > 0 {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	orderHandler := handler.NewPurchaseOrderHandler(orderService)
	r.Register(router.PurchaseOrderRoutes(orderHandler)).
		Register(router.ApprovalLadderRoutes(orderHandler))
	if outboxService != nil {
		r.Register(router.OutboxRoutes(handler.NewOutboxHandler(outboxService)))
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}

func runMigrations(db *persistence.Database, log *zap.Logger) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB for migrations", zap.Error(err))
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		log.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	if err := m.Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
}

// newSnapshotStore archives closed orders to S3 when configured, in memory otherwise
func newSnapshotStore(ctx context.Context, cfg *config.Config, log *zap.Logger) tradeapp.SnapshotStore {
	if !cfg.Storage.Enabled {
		return storage.NewMemorySnapshotStore()
	}
	archiver, err := storage.NewS3SnapshotArchiver(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize snapshot archive", zap.Error(err))
	}
	if err := archiver.EnsureBucket(ctx); err != nil {
		log.Warn("Snapshot bucket unavailable", zap.String("bucket", archiver.Bucket()), zap.Error(err))
	}
	return archiver
}
