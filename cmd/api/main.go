package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/harborline/marketplace-backend/api/routes"
	"github.com/harborline/marketplace-backend/internal/addresses"
	"github.com/harborline/marketplace-backend/internal/cart"
	"github.com/harborline/marketplace-backend/internal/catalog"
	"github.com/harborline/marketplace-backend/internal/checkout"
	"github.com/harborline/marketplace-backend/internal/inventory"
	"github.com/harborline/marketplace-backend/internal/orders"
	"github.com/harborline/marketplace-backend/internal/paymentmethods"
	"github.com/harborline/marketplace-backend/internal/payments"
	"github.com/harborline/marketplace-backend/internal/pricing"
	"github.com/harborline/marketplace-backend/pkg/config"
	"github.com/harborline/marketplace-backend/pkg/db"
	"github.com/harborline/marketplace-backend/pkg/logger"
	"github.com/harborline/marketplace-backend/pkg/metrics"
	"github.com/harborline/marketplace-backend/pkg/migrate"
	"github.com/harborline/marketplace-backend/pkg/outbox"
	"github.com/harborline/marketplace-backend/pkg/redis"
	"github.com/harborline/marketplace-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()
	cartRepo := cart.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	addressRepo := addresses.NewRepository(gormDB)
	methodRepo := paymentmethods.NewRepository(gormDB)
	checkoutRepo := checkout.NewRepository(gormDB)
	publisher := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartService, err := cart.NewService(dbClient, cartRepo, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	gateway, err := payments.NewSquareGateway(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(dbClient, payments.NewRepository(gormDB), gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.NewRepository(gormDB), publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	calculator, err := pricing.NewCalculator(cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing calculator", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		catalogRepo,
		addressRepo,
		methodRepo,
		checkoutRepo,
		paymentService,
		orderService,
		inventory.NewLedger(),
		publisher,
		calculator,
		cfg.Checkout,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			cartService,
			checkoutService,
			orderService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
