package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/flowbill/backend/internal/application/billing"
	"github.com/flowbill/backend/internal/infrastructure/auth"
	"github.com/flowbill/backend/internal/infrastructure/cache"
	"github.com/flowbill/backend/internal/infrastructure/config"
	"github.com/flowbill/backend/internal/infrastructure/logger"
	"github.com/flowbill/backend/internal/infrastructure/payment"
	"github.com/flowbill/backend/internal/infrastructure/persistence"
	"github.com/flowbill/backend/internal/infrastructure/receipt"
	"github.com/flowbill/backend/internal/interfaces/http/handler"
	"github.com/flowbill/backend/internal/interfaces/http/middleware"
	"github.com/flowbill/backend/internal/interfaces/http/router"
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

	log.Info("Starting billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis-backed idempotency store for webhook deduplication
	idempotencyStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	log.Info("Redis connected successfully")

	// Stripe clients, one per mode
	stripeClient, err := payment.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.TestSecretKey, log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe client", zap.Error(err))
	}

	// Transaction manager over the shared database
	txManager := persistence.NewGormTransactionManager(db)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	feeService := billingapp.NewFeeService(stripeClient, log)
	subscriptionService := billingapp.NewSubscriptionService(log)
	receiptGenerator := receipt.NewLoggingReceiptGenerator(txManager, log)
	bookkeepingService := billingapp.NewBookkeepingService(billingapp.BookkeepingServiceConfig{
		TxManager:   txManager,
		Processor:   stripeClient,
		Provisioner: subscriptionService,
		Receipts:    receiptGenerator,
		Logger:      log,
	})
	checkoutService := billingapp.NewCheckoutService(billingapp.CheckoutServiceConfig{
		TxManager:   txManager,
		Processor:   stripeClient,
		Fees:        feeService,
		Bookkeeping: bookkeepingService,
		Logger:      log,
	})
	revenueService := billingapp.NewRevenueService(txManager, log)
	usageService := billingapp.NewUsageService(txManager, log)
	webhookService := billingapp.NewStripeWebhookService(billingapp.StripeWebhookServiceConfig{
		WebhookSecret:     cfg.Stripe.WebhookSecret,
		TestWebhookSecret: cfg.Stripe.TestWebhookSecret,
		Idempotency:       idempotencyStore,
		IdempotencyTTL:    cfg.Billing.WebhookIdempotencyTTL,
		Checkout:          checkoutService,
		Logger:            log,
	})

	// HTTP handlers
	bookkeepingHandler := handler.NewBookkeepingHandler(bookkeepingService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	revenueHandler := handler.NewRevenueHandler(revenueService)
	usageHandler := handler.NewUsageHandler(usageService)
	webhookHandler := handler.NewStripeWebhookHandler(webhookService)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.CORS(cfg.HTTP.CORSAllowOrigins))
	engine.Use(middleware.BodyLimit(1 << 20))

	// Liveness and readiness outside API versioning and auth
	systemHandler.RegisterRoutes(engine)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Webhooks authenticate by Stripe signature, everything else by JWT
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPathPrefixes: []string{
			"/api/v1/webhooks",
		},
		Logger: log,
	}))

	r.Register(bookkeepingHandler).
		Register(checkoutHandler).
		Register(revenueHandler).
		Register(usageHandler).
		Register(webhookHandler)

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
