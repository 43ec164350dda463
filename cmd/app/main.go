package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/config"
	"github.com/bagdasarian/seatkeeper/internal/db"
	"github.com/bagdasarian/seatkeeper/internal/handler"
	"github.com/bagdasarian/seatkeeper/internal/handler/server"
	"github.com/bagdasarian/seatkeeper/internal/logger"
	"github.com/bagdasarian/seatkeeper/internal/notification"
	"github.com/bagdasarian/seatkeeper/internal/payment/stripe"
	"github.com/bagdasarian/seatkeeper/internal/repository"
	"github.com/bagdasarian/seatkeeper/internal/repository/memory"
	"github.com/bagdasarian/seatkeeper/internal/repository/postgres"
	"github.com/bagdasarian/seatkeeper/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var notifier service.Notifier
	if cfg.SMTP.Enabled() {
		notifier = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
	} else {
		logger.Warn("SMTP_HOST is not set, emails will only be logged")
		notifier = notification.NewLogNotifier(logger)
	}

	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET is not set, every webhook will be rejected")
	}
	var checkouts service.CheckoutResolver
	if cfg.Stripe.SecretKey != "" {
		checkouts = stripe.NewCheckoutResolver(cfg.Stripe.SecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set, refunds are matched by payment reference only")
	}

	syncer := service.NewCacheSynchronizer(store, logger, nil)
	entitlementService := service.NewEntitlementService(store, nil)
	inviteService := service.NewInviteService(store, syncer, notifier, service.InviteConfig{
		TTL:     cfg.Invite.TTL,
		BaseURL: cfg.Invite.BaseURL,
	}, logger, nil)
	paymentService := service.NewPaymentService(store, syncer, checkouts, notifier, cfg.Seats.Policy(), logger, nil)
	accountService := service.NewAccountService(store, syncer)

	h := handler.NewHandler(
		entitlementService,
		inviteService,
		paymentService,
		accountService,
		stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
		logger,
	)
	router := server.NewRouter(h, server.RouterConfig{
		Validator:       handler.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		InviteRateLimit: cfg.Invite.RateLimit,
		Logger:          logger,
	})
	srv := server.NewServer(router, cfg.Server.Addr, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Driver == config.StorageDriverMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	database, err := db.NewPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))

	return postgres.NewStore(database), func() { closeDB(database, logger) }, nil
}

func closeDB(database *sql.DB, logger *zap.Logger) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}
}
