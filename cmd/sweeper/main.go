package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"studiobook/internal/notify"
	"studiobook/internal/outbox"
	"studiobook/internal/push"
	"studiobook/internal/storage"
	"studiobook/internal/sweep"
	"studiobook/libs/config"
	"studiobook/libs/db"
	otelx "studiobook/libs/otel"
	"studiobook/libs/runtime"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "studiobook-sweeper")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	loc, err := config.Location("BOOKING_TIMEZONE", "UTC")
	if err != nil {
		logger.Error("invalid booking timezone", "err", err)
		panic(err)
	}

	outboxRepo := outbox.NewRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	deviceRepo := storage.NewDeviceRepository(pool)
	notificationRepo := storage.NewNotificationRepository(pool)

	var gateway notify.Gateway
	if config.String("PUSH_PROVIDER", "noop") == "fcm" {
		fcm, err := push.NewFCMGateway(ctx, logger)
		if err != nil {
			logger.Error("fcm init failed", "err", err)
			panic(err)
		}
		gateway = fcm
	} else {
		gateway = push.NewNoopGateway(logger)
	}
	dispatcher := notify.NewDispatcher(notificationRepo, deviceRepo, gateway, logger)

	sweeper := sweep.New(appointmentRepo, deviceRepo, dispatcher, loc, logger)
	runSweep := func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := sweeper.Run(runCtx); err != nil {
			logger.Error("reminder sweep failed", "err", err)
		}
	}

	scheduler := cron.New(cron.WithLocation(loc))
	spec := config.String("SWEEP_CRON", "0 9 * * *")
	if _, err := scheduler.AddFunc(spec, runSweep); err != nil {
		logger.Error("invalid sweep schedule", "spec", spec, "err", err)
		panic(err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if config.String("SWEEP_RUN_ON_START", "") == "true" {
		go runSweep()
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("sweeper health server starting", "addr", srv.Addr, "schedule", spec)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", "err", err)
	}
	logger.Info("sweeper stopped")
}
