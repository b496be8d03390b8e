package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bookwell/bookwell/libs/config"
	"github.com/bookwell/bookwell/libs/db"
	"github.com/bookwell/bookwell/libs/httpx"
	"github.com/bookwell/bookwell/libs/kafkax"
	otelx "github.com/bookwell/bookwell/libs/otel"
	"github.com/bookwell/bookwell/libs/runtime"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/directory"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/grid"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/handlers"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/outbox"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/storage"
)

// parseStaffSeed parses STAFF_SEED entries of the form "id:name", comma
// separated. The seed backs the static directory resolver in deployments
// without a directory service.
func parseStaffSeed(raw string, logger *slog.Logger) []model.StaffMember {
	var staff []model.StaffMember
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, _ := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			logger.Warn("invalid staff seed entry", "value", part)
			continue
		}
		staff = append(staff, model.StaffMember{ID: id, Name: strings.TrimSpace(name)})
	}
	return staff
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8084")
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

	readyChecks := []runtime.ReadyCheck{}

	// DATABASE_URL is optional: without it the engine runs on the in-memory
	// store, which is enough for dev and for the directory-less demo setup.
	var store booking.Store
	var pool *db.Pool
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err = db.OpenWithOptions(ctx, dbURL, db.Options{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		if err := storage.Migrate(ctx, pool); err != nil {
			logger.Error("migrate failed", "err", err)
			panic(err)
		}
		store = storage.NewPostgresStore(pool)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory store")
		store = storage.NewMemoryStore()
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		store = storage.NewDayViewCache(store, rdb, config.Duration("DAY_CACHE_TTL", 5*time.Second), logger)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: storage.ReadyCheck(rdb)})
	}

	var notifier booking.Notifier = booking.NopNotifier{}
	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" && pool != nil {
		outboxRepo := outbox.NewRepository(pool)
		notifier = outbox.NewNotifier(pool, outboxRepo)
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else if brokers != "" {
		logger.Warn("KAFKA_BROKERS set without DATABASE_URL; outbox publishing disabled")
	}

	seed := parseStaffSeed(config.String("STAFF_SEED", ""), logger)
	dir, err := directory.NewResolver(logger, seed, config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directory resolver init failed", "err", err)
		panic(err)
	}

	coord := booking.NewCoordinator(store, dir, notifier, logger, booking.Config{
		AllowPastDates: config.Bool("ALLOW_PAST_DATES", false),
	})
	projector := grid.NewProjector(float64(config.Int("GRID_PIXELS_PER_MINUTE", 2)))

	reservationHandler := handlers.NewReservationHandler(coord, store, projector, logger)
	windowHandler := handlers.NewWindowHandler(store, dir, logger)
	gridHandler := handlers.NewGridHandler(store, dir, projector, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/reservations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reservationHandler.List(w, r)
			return
		}
		reservationHandler.Create(w, r)
	})
	mux.HandleFunc("/api/v1/reservations/batch", reservationHandler.CreateBatch)
	mux.HandleFunc("/api/v1/reservations/reschedule", reservationHandler.Reschedule)
	mux.HandleFunc("/api/v1/reservations/cancel", reservationHandler.Cancel)
	mux.HandleFunc("/api/v1/slots", windowHandler.OpenSlots)
	mux.HandleFunc("/api/v1/grid", gridHandler.Get)
	mux.HandleFunc("/api/v1/working-windows", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			windowHandler.Get(w, r)
			return
		}
		windowHandler.Put(w, r)
	})

	middlewares := []httpx.Middleware{
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id")),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
	}
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 120), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT", 120), time.Minute)
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
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
