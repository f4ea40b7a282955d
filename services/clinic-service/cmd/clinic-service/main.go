package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Noah202226/dental-clinic-v3-arctech/libs/config"
	"github.com/Noah202226/dental-clinic-v3-arctech/libs/db"
	"github.com/Noah202226/dental-clinic-v3-arctech/libs/httpx"
	"github.com/Noah202226/dental-clinic-v3-arctech/libs/kafkax"
	otelx "github.com/Noah202226/dental-clinic-v3-arctech/libs/otel"
	"github.com/Noah202226/dental-clinic-v3-arctech/libs/runtime"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/changefeed"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/handlers"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/lifecycle"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/notify"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/outbox"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/storage"
)

func corsOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}

func main() {
	service := config.String("SERVICE_NAME", "clinic-service")
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

	loc, err := config.Timezone("CLINIC_TIMEZONE", "Asia/Manila")
	if err != nil {
		logger.Error("invalid clinic timezone", "err", err)
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, int32(config.Int("DB_MAX_CONNS", 10)))
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	appointments := storage.NewAppointmentRepository(pool, outboxRepo, loc)
	patients := storage.NewPatientRepository(pool)
	payments := storage.NewPaymentRepository(pool)
	notifier := notify.NewClient(config.String("NOTIFY_ENDPOINT", ""))

	engine := lifecycle.NewEngine(appointments, patients, notifier, logger, loc)
	feed := changefeed.New(logger, changefeed.Config{
		Brokers: brokers,
		Topic:   outbox.TopicAppointmentChanged,
	})
	// A failed initial load is not fatal: the engine serves an empty list
	// until the next change notification triggers a reload.
	if err := engine.Start(ctx, feed); err != nil {
		logger.Error("initial appointment load failed", "err", err)
	}
	defer engine.Close()

	appointmentHandler := handlers.NewAppointmentHandler(engine, logger, loc)
	patientHandler := handlers.NewPatientHandler(patients, logger)
	paymentHandler := handlers.NewPaymentHandler(payments, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			appointmentHandler.List(w, r)
		case http.MethodPost:
			appointmentHandler.Create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/appointments/approve", appointmentHandler.Approve)
	mux.HandleFunc("/api/v1/appointments/decline", appointmentHandler.Decline)
	mux.HandleFunc("/api/v1/appointments/reschedule", appointmentHandler.Reschedule)
	mux.HandleFunc("/api/v1/appointments/delete", appointmentHandler.Delete)
	mux.HandleFunc("/api/v1/appointments/calendar", appointmentHandler.Calendar)
	mux.HandleFunc("/api/v1/patients", patientHandler.List)

	adminGate := httpx.WithAdminGate(config.String("ADMIN_PASSWORD", ""))
	mux.Handle("/api/v1/payments", adminGate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			paymentHandler.ListByPatient(w, r)
		case http.MethodPost:
			paymentHandler.Create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// The public booking channel is the only unauthenticated write path, so
	// it gets its own rate limit.
	publicLimit := config.Int("PUBLIC_RATE_LIMIT", 20)
	publicWindow := time.Duration(config.Int("PUBLIC_RATE_WINDOW_SECONDS", 60)) * time.Second
	var publicLimiter httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()
		publicLimiter = httpx.NewRedisRateLimiter(rdb, publicLimit, publicWindow, service).Middleware(logger, true)
	} else {
		logger.Warn("REDIS_ADDR not set; using in-memory rate limiter")
		publicLimiter = httpx.NewRateLimiter(publicLimit, publicWindow).Middleware()
	}
	mux.Handle("/api/v1/public/book", publicLimiter(http.HandlerFunc(appointmentHandler.PublicBook)))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: corsOrigins(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Admin-Password"},
			MaxAge:         10 * time.Minute,
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "clinic")
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
