package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"bird_alerts/internal/alert"
	"bird_alerts/internal/config"
	"bird_alerts/internal/observability"
	"bird_alerts/internal/publisher"
	"bird_alerts/internal/scheduler"
	"bird_alerts/internal/server"
	"bird_alerts/internal/service"
	"bird_alerts/internal/source/ebird"
	"bird_alerts/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration; missing feed credentials are fatal here.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	metrics := observability.NewMetrics()

	// Alert event publisher is optional; the engine runs without it.
	var events service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	// Initialize stores
	subscriptionStore := postgres.NewSubscriptionStore(db, logger)
	notificationLogStore := postgres.NewNotificationLogStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize eBird feed and taxonomy
	feed := ebird.New(ebird.Config{
		BaseURL: cfg.EBird.BaseURL,
		APIKey:  cfg.EBird.APIKey,
		Timeout: cfg.EBird.Timeout,
	}, logger)
	taxonomy := ebird.NewTaxonomy(feed, logger)

	// Initialize SMS dispatcher
	dispatcher := alert.NewSMSDispatcher(alert.Config{
		BaseURL: cfg.SMS.BaseURL,
		APIKey:  cfg.SMS.APIKey,
		Sender:  cfg.SMS.Sender,
		Timeout: cfg.SMS.Timeout,
	}, logger)

	clock := clockwork.NewRealClock()

	notifyService := service.NewNotifyService(
		feed,
		subscriptionStore,
		notificationLogStore,
		txManager,
		dispatcher,
		events,
		metrics,
		clock,
		logger,
		cfg.Notify,
	)

	sched := scheduler.NewScheduler(notifyService, cfg.Notify.Interval, cfg.Notify.CycleTimeout, clock, logger)

	srv := server.New(cfg.Server.Addr, subscriptionStore, taxonomy, feed, notificationLogStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting bird alerts notifier",
		"interval", cfg.Notify.Interval,
		"min_notify_interval", cfg.Notify.MinNotifyInterval,
		"addr", cfg.Server.Addr,
	)

	schedErr := sched.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if schedErr != nil && !errors.Is(schedErr, context.Canceled) {
		logger.Error("scheduler error", "error", schedErr)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
