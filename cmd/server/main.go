package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/app"
	"github.com/tutorhub/classbooking/internal/config"
	"github.com/tutorhub/classbooking/internal/notify"
	"github.com/tutorhub/classbooking/internal/repository"
	"github.com/tutorhub/classbooking/internal/repository/base"
	"github.com/tutorhub/classbooking/internal/server"
	"github.com/tutorhub/classbooking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting class booking service",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr))

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	_ = migrator.Close()

	txRunner := base.NewTxRunner(pool)
	availRepo := repository.NewAvailabilityRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	var notifier notify.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = notify.NewTelegramNotifier(cfg.TelegramToken, userRepo, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram notifier", zap.Error(err))
		}
		logger.Info("Telegram notifications enabled")
	} else {
		notifier = notify.NewLogNotifier(logger)
		logger.Info("Telegram token not set, notifications go to the log")
	}

	availabilityService := service.NewAvailabilityService(txRunner, availRepo, userRepo, logger)
	bookingService := service.NewBookingService(txRunner, availRepo, bookingRepo, courseRepo, userRepo, notifier, logger)
	reminderService := service.NewReminderService(bookingRepo, notifier, cfg.ReminderHorizon, logger)

	scheduler := app.NewScheduler(reminderService, cfg.ReminderSweep, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := server.NewHandler(availabilityService, bookingService, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Service stopped")
}
