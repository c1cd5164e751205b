package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"studiobook/internal/authz"
	"studiobook/internal/blob"
	"studiobook/internal/events"
	"studiobook/internal/handlers"
	"studiobook/internal/inbox"
	"studiobook/internal/notify"
	"studiobook/internal/outbox"
	"studiobook/internal/push"
	"studiobook/internal/storage"
	"studiobook/libs/auth"
	"studiobook/libs/config"
	"studiobook/libs/db"
	"studiobook/libs/httpx"
	"studiobook/libs/kafkax"
	otelx "studiobook/libs/otel"
	"studiobook/libs/runtime"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "studiobook-api")
	port, err := config.Port("PORT", "8080")
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
	scenarioRepo := storage.NewScenarioRepository(pool, outboxRepo)
	clientRepo := storage.NewClientRepository(pool)
	deviceRepo := storage.NewDeviceRepository(pool)
	notificationRepo := storage.NewNotificationRepository(pool)
	photoRepo := storage.NewPhotoRequestRepository(pool, outboxRepo)
	adminRepo := storage.NewAdminRepository(pool)

	checker := authz.NewChecker(adminRepo, logger)

	var verifier *auth.Verifier
	if secret := config.String("AUTH_HS256_SECRET", ""); secret != "" {
		verifier = auth.NewHS256Verifier(secret)
	} else {
		jwksURL, err := config.RequiredString("AUTH_JWKS_URL")
		if err != nil {
			panic(err)
		}
		verifier = auth.NewJWKSVerifier(jwksURL, config.Duration("AUTH_JWKS_TTL", 10*time.Minute))
	}

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

	var deleter blob.Deleter
	if bucket := config.String("MEDIA_BUCKET", ""); bucket != "" {
		s3Deleter, err := blob.NewS3Deleter(ctx, bucket)
		if err != nil {
			logger.Error("s3 init failed", "err", err)
			panic(err)
		}
		deleter = s3Deleter
	} else {
		deleter = blob.NewNoopDeleter(logger)
	}

	dispatcher := notify.NewDispatcher(notificationRepo, deviceRepo, gateway, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	reactor := events.NewReactor(dispatcher, logger)
	groupID := config.String("KAFKA_GROUP_ID", "studiobook-api")
	startConsumer := func(topic string, handler events.Handler) {
		consumer := events.NewConsumer(logger, inboxRepo, events.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go consumer.Run(ctx)
	}
	startConsumer(outbox.TopicAppointmentUpdated, reactor.HandleAppointmentUpdated)
	startConsumer(outbox.TopicScenarioCreated, reactor.HandleScenarioCreated)
	startConsumer(outbox.TopicPhotoRequestDelivered, reactor.HandlePhotoRequestDelivered)

	appointmentHandler := handlers.NewAppointmentHandler(appointmentRepo, scenarioRepo, checker, loc, logger)
	scenarioHandler := handlers.NewScenarioHandler(scenarioRepo, checker, deleter, logger)
	clientHandler := handlers.NewClientHandler(clientRepo, checker, logger)
	deviceHandler := handlers.NewDeviceHandler(deviceRepo, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, logger)
	photoHandler := handlers.NewPhotoRequestHandler(photoRepo, checker, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handlers.Routes(mux, appointmentHandler, scenarioHandler, clientHandler, deviceHandler, notificationHandler, photoHandler)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limiter httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		limiter = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
	} else {
		limiter = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: []string{config.String("CORS_ALLOWED_ORIGINS", "*")}}),
		httpx.WithBodyLimit(1<<20),
		limiter,
		handlers.WithIdentity(verifier, logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "api")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
