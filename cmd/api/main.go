package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apparel-checkout/internal/client"
	"apparel-checkout/internal/config"
	"apparel-checkout/internal/discount"
	"apparel-checkout/internal/idempotency"
	"apparel-checkout/internal/logger"
	"apparel-checkout/internal/ordernumber"
	"apparel-checkout/internal/orderstatus"
	"apparel-checkout/internal/payment"
	"apparel-checkout/internal/repository"
	"apparel-checkout/internal/server"
	"apparel-checkout/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		slog.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		slog.Error("AUTH_JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := client.InitDatabase(cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	stripeClient := client.NewStripeClient(&cfg.Stripe)
	paypalClient := client.NewPaypalClient(&cfg.Paypal)

	var locker idempotency.Locker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		defer rdb.Close()
		locker = idempotency.NewRedisLocker(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		slog.Warn("REDIS_ADDR not set, idempotency in-flight lock disabled")
	}

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	machine := orderstatus.NewMachine(db, orderRepo)
	providers := payment.NewRegistry(
		payment.NewStripeProvider(stripeClient),
		payment.NewPaypalProvider(paypalClient, cfg.APIBaseURL+"/api/paypal/return"),
	)

	checkoutService := service.NewCheckoutService(
		db,
		productRepo,
		addressRepo,
		orderRepo,
		discount.NewValidator(discountRepo, orderRepo),
		providers,
		locker,
		ordernumber.New,
		cfg.BaseURL,
		cfg.Currency,
	)
	paypalService := service.NewPaypalService(paypalClient, cfg.BaseURL, orderRepo, webhookEventRepo, machine)
	stripeService := service.NewStripeService(stripeClient, orderRepo, webhookEventRepo, machine)
	orderService := service.NewOrderService(orderRepo, machine)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer([]byte(cfg.Auth.JWTSecret), checkoutService, paypalService, stripeService, orderService)

	slog.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	slog.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
}
