package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	appcart "github.com/pharmanet/backend/internal/application/cart"
	appevent "github.com/pharmanet/backend/internal/application/event"
	appidentity "github.com/pharmanet/backend/internal/application/identity"
	appinv "github.com/pharmanet/backend/internal/application/inventory"
	apptrade "github.com/pharmanet/backend/internal/application/trade"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/infrastructure/auth"
	"github.com/pharmanet/backend/internal/infrastructure/cache"
	"github.com/pharmanet/backend/internal/infrastructure/config"
	"github.com/pharmanet/backend/internal/infrastructure/event"
	"github.com/pharmanet/backend/internal/infrastructure/logger"
	"github.com/pharmanet/backend/internal/infrastructure/migration"
	"github.com/pharmanet/backend/internal/infrastructure/persistence"
	"github.com/pharmanet/backend/internal/infrastructure/printing"
	"github.com/pharmanet/backend/internal/infrastructure/storage"
	"github.com/pharmanet/backend/internal/infrastructure/telemetry"
	"github.com/pharmanet/backend/internal/interfaces/http/handler"
	"github.com/pharmanet/backend/internal/interfaces/http/middleware"
	"github.com/pharmanet/backend/internal/interfaces/http/router"
	"github.com/pharmanet/backend/migrations"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/pharmanet/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			PharmaNet Backend API
//	@version		1.0
//	@description	Supplier stock, pharmacist orders and cart reservations

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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
		_ = logger.Sync(log)
	}()

	rootCtx := context.Background()

	tel, err := telemetry.Setup(rootCtx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	// Tee zap to OTLP once the log provider is up
	log = tel.Logs.Bridge(log, zapcore.InfoLevel)

	log.Info("Starting PharmaNet backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Connect(rootCtx, &cfg.Database, persistence.ConnectOptions{
		Logger:   gormLog,
		Attempts: 5,
		Backoff:  time.Second,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	meter := tel.Meter.Meter("github.com/pharmanet/backend")
	dbInstrumentation, err := telemetry.NewDBInstrumentation(cfg.Telemetry, meter, log)
	if err != nil {
		log.Fatal("Failed to build database instrumentation", zap.Error(err))
	}
	if err := dbInstrumentation.Register(db.DB); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected")

	if cfg.Database.MigrateOnStart {
		if err := migrateSchema(&cfg.Database, log); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	// Redis is optional; without it revocations and idempotency stay per process
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(rootCtx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory fallbacks", zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	stockItemRepo := persistence.NewGormStockItemRepository(db.DB)
	alertRepo := persistence.NewGormStockAlertRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	orderLineRepo := persistence.NewGormOrderLineRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	cartLineRepo := persistence.NewGormCartLineRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Events are written to the outbox inside each business transaction
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxWriter := event.NewOutboxWriter(serializer, cfg.Event.MaxRetries)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxWriter)

	businessMetrics, err := telemetry.NewBusinessMetrics(meter, persistence.NewGormMetricsSnapshot(db.DB), log)
	if err != nil {
		log.Fatal("Failed to register business metrics", zap.Error(err))
	}
	defer func() { _ = businessMetrics.Stop() }()

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	eventBus := event.NewInMemoryEventBus(log)
	accountService := appidentity.NewAccountService(accountRepo, jwtService, blacklist, eventBus, log)
	stockItemService := appinv.NewStockItemService(stockItemRepo, txScope, log)
	alertService := appinv.NewAlertService(alertRepo, stockItemRepo)
	orderService := apptrade.NewOrderService(accountRepo, orderRepo, orderLineRepo, txScope, log)
	orderService.SetRecorder(businessMetrics)
	cartService := appcart.NewCartService(cartRepo, cartLineRepo, txScope, log)
	cartService.SetRecorder(businessMetrics)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	deliveryNoteService, closeDocuments := newDeliveryNoteService(rootCtx, cfg, log,
		accountRepo, orderRepo, orderLineRepo, stockItemRepo)
	defer closeDocuments()

	// Event handlers, each guarded against redelivery
	idempotencyStore := cache.NewIdempotencyStore(redisClient, log)
	defer func() { _ = idempotencyStore.Close() }()
	idempotencyConfig := shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}

	lowStockHandler := appinv.NewLowStockAlertHandler(alertRepo, log).WithRecorder(businessMetrics)
	eventBus.Subscribe(event.NewIdempotentHandler("low_stock_alert", lowStockHandler, idempotencyStore, log,
		event.WithIdempotencyConfig(idempotencyConfig)))

	if cfg.Kafka.Enabled {
		writer := event.NewKafkaWriter(event.KafkaForwarderConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		forwarder := event.NewKafkaForwarder(writer, serializer, log)
		defer func() { _ = forwarder.Close() }()
		eventBus.Subscribe(event.NewIdempotentHandler("kafka_forwarder", forwarder, idempotencyStore, log,
			event.WithIdempotencyConfig(idempotencyConfig)))
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			Retry: shared.RetryPolicy{
				MaxAttempts: cfg.Event.MaxRetries,
				BaseDelay:   time.Second,
				MaxDelay:    5 * time.Minute,
			},
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  cfg.Event.CleanupInterval,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorConfig, log)
		if err := outboxProcessor.Start(rootCtx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
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

	limiterCtx, stopLimiters := context.WithCancel(rootCtx)
	defer stopLimiters()

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.Meter,
		Enabled:       cfg.Telemetry.MetricsEnabled,
		Logger:        log,
	}))
	security := middleware.DefaultSecurityConfig()
	if cfg.App.Env == "production" {
		security.HSTS = 365 * 24 * time.Hour
	}
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    middleware.DefaultCORSConfig().ExposeHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.Run(limiterCtx)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Revocations = accountService
	jwtConfig.Logger = log
	authenticate := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)

	checks := []handler.HealthCheck{
		{Name: "database", Check: db.Ping},
	}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	systemHandler := handler.NewSystemHandler(telemetry.ServiceVersion, outboxService, checks...)
	engine.GET("/health", systemHandler.Health)

	// Swagger sits outside /api so it gets its own guard
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:  jwtService,
			Revocations: accountService,
			Logger:      log,
		})),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	var authLimiter gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		go limiter.Run(limiterCtx)
		authLimiter = middleware.RateLimit(limiter)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		authenticate,
		middleware.SpanAttributes(),
		middleware.Profiling(tel.Profiler.IsEnabled()),
	)
	r.Register(router.APIGroups(router.Handlers{
		Auth:      handler.NewAuthHandler(accountService),
		Inventory: handler.NewInventoryHandler(stockItemService, alertService),
		Trade:     handler.NewTradeHandler(orderService, deliveryNoteService),
		Cart:      handler.NewCartHandler(cartService),
		System:    systemHandler,
		Outbox:    handler.NewOutboxHandler(outboxService),
	}, router.APIOptions{
		AuthLimiter:   authLimiter,
		OperatorGuard: middleware.AllowIPs(cfg.Event.AdminAllowedIPs),
	})...)
	r.Setup()
	log.Info("Routes registered", zap.Int("count", len(r.Routes())))

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newDeliveryNoteService wires Chrome rendering and S3 storage when both are
// configured. Otherwise the service is built with neither and answers 503.
func newDeliveryNoteService(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	accounts *persistence.GormAccountRepository,
	orders *persistence.GormOrderRepository,
	lines *persistence.GormOrderLineRepository,
	items *persistence.GormStockItemRepository,
) (*apptrade.DeliveryNoteService, func()) {
	disabled := apptrade.NewDeliveryNoteService(accounts, orders, lines, items, nil, nil, 0, log)
	if !cfg.Printing.Enabled || !cfg.Storage.Enabled {
		log.Info("Delivery notes disabled",
			zap.Bool("printing", cfg.Printing.Enabled),
			zap.Bool("storage", cfg.Storage.Enabled),
		)
		return disabled, func() {}
	}

	docs, err := storage.NewS3DocumentStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Warn("Document storage unavailable, delivery notes disabled", zap.Error(err))
		return disabled, func() {}
	}
	if err := docs.EnsureBucket(ctx); err != nil {
		log.Warn("Document bucket unavailable, delivery notes disabled", zap.Error(err))
		return disabled, func() {}
	}
	renderer, err := printing.NewChromeRenderer(cfg.Printing, log)
	if err != nil {
		log.Warn("PDF renderer unavailable, delivery notes disabled", zap.Error(err))
		return disabled, func() {}
	}

	svc := apptrade.NewDeliveryNoteService(accounts, orders, lines, items, renderer, docs, cfg.Printing.LinkTTL, log)
	return svc, func() { _ = renderer.Close() }
}

// migrateSchema applies the embedded migrations over a dedicated pool, which
// the migrator closes when done
func migrateSchema(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.Open(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
