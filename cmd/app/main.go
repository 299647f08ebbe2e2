package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"media-subscription-platform/internal/config"
	"media-subscription-platform/internal/domain/ports/adapter"
	pg "media-subscription-platform/internal/infra/db/postgres"
	"media-subscription-platform/internal/infra/logging"
	"media-subscription-platform/internal/infra/metrics"
	"media-subscription-platform/internal/infra/notify"
	"media-subscription-platform/internal/infra/payment"
	red "media-subscription-platform/internal/infra/redis"
	"media-subscription-platform/internal/infra/sched"
	"media-subscription-platform/internal/infra/web"
	"media-subscription-platform/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("development mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	redeemRepo := pg.NewRedeemRepo(pool)
	articleRepo := pg.NewArticleRepo(pool)
	adRepo := pg.NewAdRepo(pool)
	notifLogRepo := pg.NewNotificationLogRepo(pool)

	// ---- Adapters ----
	var gateway adapter.StatusGateway
	switch cfg.Payment.Provider {
	case "phonepe":
		gateway = payment.NewPhonePeGateway(
			cfg.Payment.PhonePe.MerchantID,
			cfg.Payment.PhonePe.SaltKey,
			cfg.Payment.PhonePe.SaltIndex,
			cfg.Payment.PhonePe.BaseURL,
			cfg.Payment.Timeout,
		)
	case "razorpay":
		gateway = payment.NewRazorpayGateway(
			cfg.Payment.Razorpay.KeyID,
			cfg.Payment.Razorpay.KeySecret,
			cfg.Payment.Razorpay.BaseURL,
			cfg.Payment.Timeout,
		)
	default:
		gateway = payment.NewNoopGateway()
	}
	logger.Info().Str("provider", gateway.Name()).Msg("payment gateway configured")

	var notifier adapter.Notifier
	if cfg.Notify.Provider == "fcm" {
		notifier = notify.NewFCMNotifier(cfg.Notify.FCMServerKey, cfg.Notify.FCMBaseURL, 10*time.Second)
	} else {
		notifier = notify.NewNoopNotifier(logger)
	}

	// ---- Use cases ----
	ledger := usecase.NewRedeemLedger(redeemRepo, tm, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, planRepo, ledger, gateway, tm, logger)
	gate := usecase.NewEntitlementGate(subRepo, redeemRepo, logger)
	reminderUC := usecase.NewReminderUseCase(subRepo, notifLogRepo, notifier, logger)
	contentUC := usecase.NewContentScheduler(articleRepo, adRepo, notifier, logger)

	// ---- Scheduled jobs ----
	sweeper := sched.NewSweepWorker(cfg.Jobs.SweepInterval, cfg.Jobs.LockTTL, subUC, contentUC, locker, logger)
	reminders := sched.NewReminderWorker(cfg.Jobs.ReminderHour, cfg.Jobs.LockTTL, reminderUC, locker, logger)
	reconciler := sched.NewPaymentReconciler(
		cfg.Jobs.ReconcileInterval, cfg.Jobs.ReconcileMinAge, cfg.Jobs.ReconcileBatch,
		cfg.Jobs.LockTTL, subUC, locker, logger,
	)
	publisher := sched.NewPublishWorker(cfg.Jobs.PublishInterval, cfg.Jobs.LockTTL, contentUC, locker, logger)

	go func() { _ = sweeper.Run(ctx) }()
	go func() { _ = reminders.Run(ctx) }()
	go func() { _ = reconciler.Run(ctx) }()
	go func() { _ = publisher.Run(ctx) }()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.SessionSecret, !cfg.Runtime.Dev, "", cfg.Admin.SessionTTL)
	srv := web.NewServer(subUC, ledger, gate, articleRepo, auth, cfg.Admin.APIKey, publisher.Trigger, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
