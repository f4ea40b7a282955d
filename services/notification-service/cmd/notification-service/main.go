package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Noah202226/dental-clinic-v3-arctech/libs/config"
	"github.com/Noah202226/dental-clinic-v3-arctech/libs/db"
	"github.com/Noah202226/dental-clinic-v3-arctech/libs/httpx"
	otelx "github.com/Noah202226/dental-clinic-v3-arctech/libs/otel"
	"github.com/Noah202226/dental-clinic-v3-arctech/libs/runtime"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/notification-service/internal/email"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/notification-service/internal/handlers"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/notification-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
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

	pool, err := db.Open(ctx, dbURL, int32(config.Int("DB_MAX_CONNS", 5)))
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	notificationsRepo := storage.NewRepository(pool)
	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@clinic.local"),
	)
	notifyHandler := handlers.NewNotifyHandler(emailSender, notificationsRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)

	notifyLimit := config.Int("NOTIFY_RATE_LIMIT", 60)
	notifyWindow := time.Duration(config.Int("NOTIFY_RATE_WINDOW_SECONDS", 60)) * time.Second
	var limiter httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, notifyLimit, notifyWindow, service).Middleware(logger, true)
	} else {
		limiter = httpx.NewRateLimiter(notifyLimit, notifyWindow).Middleware()
	}
	mux.Handle("/api/notify", limiter(http.HandlerFunc(notifyHandler.Notify)))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
