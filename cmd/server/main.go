package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	orderapp "github.com/storefront/backend/internal/application/order"
	outboxapp "github.com/storefront/backend/internal/application/outbox"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/messaging"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/storefront/backend/docs"
)

//	@title			Storefront Backend API
//	@version		1.0
//	@description	Storefront checkout backend: catalog, carts, checkout, orders and payment webhooks.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/storefront/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry (traces, metrics, logs, profiling)
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	otelCore := tel.Logs.Core(logger.ParseLevel(cfg.Log.Level))
	log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, otelCore)
	}))

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if err := runMigrations(&cfg.Database, log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Locks and idempotency marks
	coord, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithLockTTL(cfg.Checkout.LockTTL),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize coordination store", zap.Error(err))
	}
	defer func() {
		if err := coord.Close(); err != nil {
			log.Error("Failed to close coordination store", zap.Error(err))
		}
	}()

	gateway, err := payment.NewGateway(cfg.Payment, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	// Outbox
	serializer := event.NewEventSerializer()
	event.RegisterOrderEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer)

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB, outboxPublisher)
	ledger := persistence.NewGormStockLedger(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// Application services
	var checkoutMetrics checkoutapp.Metrics = checkoutapp.NoopMetrics{}
	var httpMeter metric.Meter
	handlerOpts := []event.IdempotentHandlerOption{
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Outbox.DedupeTTL, Enabled: true}),
	}
	if tel.Meter.IsEnabled() {
		m, err := telemetry.NewCheckoutMetrics(tel.Meter.Meter("storefront/checkout"))
		if err != nil {
			log.Fatal("Failed to create checkout metrics", zap.Error(err))
		}
		checkoutMetrics = m
		httpMeter = tel.Meter.Meter("storefront/http")
		handlerOpts = append(handlerOpts, event.WithHandlerMeter(tel.Meter.Meter("storefront/events")))
	}

	productService := catalogapp.NewProductService(productRepo, cfg.Checkout.LowStockThreshold)
	cartService := cartapp.NewService(cartRepo, productRepo, coord.Locker, log,
		cartapp.WithLockWait(cfg.Checkout.LockWait),
	)
	checkoutService := checkoutapp.NewService(cartRepo, orderRepo, ledger, gateway, txScope, coord.Locker, log,
		checkoutapp.WithMetrics(checkoutMetrics),
		checkoutapp.WithConfig(checkoutapp.Config{
			TaxRate:        cfg.Checkout.TaxRate,
			LockWait:       cfg.Checkout.LockWait,
			PaymentTimeout: cfg.Payment.Timeout,
			CancelTimeout:  cfg.Payment.CancelTimeout,
		}),
	)
	orderService := orderapp.NewService(orderRepo, gateway, log,
		orderapp.WithStrictTransitions(cfg.Checkout.StrictStatusTransitions),
	)
	webhookService := paymentapp.NewWebhookService(gateway, orderService, coord.Idempotency,
		cfg.Checkout.WebhookIdempotencyTTL, log)

	outboxRepo := event.NewGormOutboxRepository(db.DB)
	outboxService := outboxapp.NewService(outboxRepo, log)

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)
	subscribe := func(name string, h shared.EventHandler) {
		eventBus.Subscribe(event.NewIdempotentHandler(name, h, coord.Idempotency, log, handlerOpts...), h.EventTypes()...)
	}

	subscribe("low_stock_alert", catalogapp.NewLowStockHandler(productRepo, cfg.Checkout.LowStockThreshold, log))

	receiptStore, err := newReceiptStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize receipt storage", zap.Error(err))
	}
	subscribe("receipt_archiver", orderapp.NewReceiptArchiver(orderRepo, receiptStore, log))

	if cfg.Kafka.Enabled {
		writer, err := messaging.NewKafkaWriter(cfg.Kafka)
		if err != nil {
			log.Fatal("Failed to create Kafka writer", zap.Error(err))
		}
		relay := messaging.NewKafkaRelay(writer, cfg.Kafka.WriteTimeout, log)
		defer func() {
			if err := relay.Close(); err != nil {
				log.Error("Failed to close Kafka relay", zap.Error(err))
			}
		}()
		subscribe("kafka_relay", relay)
		log.Info("Kafka relay enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() { _ = eventBus.Stop(context.Background()) }()

	if cfg.Outbox.ProcessorEnabled {
		processor := event.NewOutboxProcessor(
			outboxRepo,
			eventBus,
			serializer,
			event.OutboxProcessorConfig{
				BatchSize:        cfg.Outbox.BatchSize,
				PollInterval:     cfg.Outbox.PollInterval,
				ClaimLease:       cfg.Outbox.ClaimLease,
				CleanupEnabled:   cfg.Outbox.CleanupEnabled,
				CleanupRetention: cfg.Outbox.CleanupRetention,
				CleanupInterval:  cfg.Outbox.CleanupInterval,
			},
			log,
		)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := processor.Stop(stopCtx); err != nil {
				log.Warn("Outbox processor did not stop cleanly", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", cfg.Outbox.BatchSize),
			zap.Duration("poll_interval", cfg.Outbox.PollInterval),
		)
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	authMiddleware := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		Validator: jwtService,
		Logger:    log,
	})

	checks := []handler.DependencyCheck{{Name: "database", Check: db.Ping}}
	if coord.Redis != nil {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return coord.Redis.Ping(ctx).Err()
		}})
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	r, err := router.New(router.Config{
		ServiceName:     cfg.Telemetry.ServiceName,
		MaxBodySize:     cfg.HTTP.MaxBodySize,
		CORS:            corsConfig,
		TrustedProxies:  cfg.HTTP.TrustedProxies,
		SwaggerEnabled:  cfg.Swagger.Enabled && !cfg.App.IsProduction(),
		TracingEnabled:  tel.Tracer.IsEnabled(),
		ProfilingLabels: tel.Profiler.IsEnabled(),
		Meter:           httpMeter,
	}, log)
	if err != nil {
		log.Fatal("Failed to create router", zap.Error(err))
	}
	r.Setup(router.Handlers{
		System:   handler.NewSystemHandler(version, checks...),
		Product:  handler.NewProductHandler(productService),
		Cart:     handler.NewCartHandler(cartService),
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Order:    handler.NewOrderHandler(orderService),
		Webhook:  handler.NewWebhookHandler(webhookService, cfg.Payment.WebhookMaxBytes),
		Outbox:   handler.NewOutboxHandler(outboxService),
	}, authMiddleware)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Engine(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

	log.Info("Server exited gracefully")
}

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// runMigrations applies pending migrations over a dedicated connection,
// since closing the migrator also closes its database handle.
func runMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

func newReceiptStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (orderapp.ReceiptStore, error) {
	if !cfg.Enabled {
		log.Info("Receipt storage disabled; receipts are logged only")
		return storage.NewLogReceiptStore(log), nil
	}
	store, err := storage.NewS3ReceiptStore(cfg, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Receipt storage enabled", zap.String("bucket", cfg.Bucket))
	return store, nil
}
