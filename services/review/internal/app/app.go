package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/fitvibe/pkg/database"
	"github.com/utafrali/fitvibe/pkg/health"
	pkgkafka "github.com/utafrali/fitvibe/pkg/kafka"
	"github.com/utafrali/fitvibe/pkg/middleware"
	"github.com/utafrali/fitvibe/pkg/tracing"
	"github.com/utafrali/fitvibe/services/review/internal/cache"
	"github.com/utafrali/fitvibe/services/review/internal/config"
	"github.com/utafrali/fitvibe/services/review/internal/event"
	handler "github.com/utafrali/fitvibe/services/review/internal/handler/http"
	"github.com/utafrali/fitvibe/services/review/internal/repository/postgres"
	"github.com/utafrali/fitvibe/services/review/internal/service"
	"github.com/utafrali/fitvibe/services/review/internal/storage"
	"github.com/utafrali/fitvibe/services/review/internal/storage/memory"
	"github.com/utafrali/fitvibe/services/review/internal/storage/minio"
	"github.com/utafrali/fitvibe/services/review/migrations"
)

const serviceName = "review"

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	orderCreated   *pkgkafka.Consumer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for the summary cache and event deduplication.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		URL:      cfg.RedisURL,
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("host", cfg.RedisHost), slog.Int("port", cfg.RedisPort))

	// Image storage.
	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, err
	}

	// Initialize Kafka producer with connection validation and retry.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	reviewRepo := postgres.NewReviewRepository(pool)
	replyRepo := postgres.NewReplyRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)
	purchaseRepo := postgres.NewPurchaseRepository(pool)
	summaryCache := cache.NewSummaryCache(rdb, cfg.SummaryCacheTTL)
	eventProducer := event.NewProducer(producer, logger)

	services := handler.Services{
		Reviews: service.NewReviewService(reviewRepo, purchaseRepo, store, summaryCache, eventProducer, cfg.MaxImageBytes, logger),
		Replies: service.NewReplyService(reviewRepo, replyRepo, eventProducer, logger),
		Reports: service.NewReportService(reportRepo, eventProducer, logger),
	}

	// Order events mark reviews as verified purchases.
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	orderCreated := event.NewOrderConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaConsumerGroup,
		event.NewConsumerHandler(purchaseRepo, logger),
		pkgkafka.NewRedisIdempotencyStore(rdb, "review:events:", 24*time.Hour),
		dlq,
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	codec := middleware.NewSessionCodec(cfg.JWTSecret, cfg.JWTIssuer)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 10*time.Minute)
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(services, codec, limiter, healthHandler, handler.RouterConfig{
		CORS:              cors,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		MaxImageBytes:     cfg.MaxImageBytes,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		dlq:            dlq,
		orderCreated:   orderCreated,
		limiter:        limiter,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newStorage picks the image storage driver from cfg.
func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMinio:
		s, err := minio.New(ctx, minio.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		return s, nil
	default:
		logger.Warn("using in-memory image storage; uploads are not persisted")
		return memory.New(cfg.PublicBaseURL()), nil
	}
}

// Run starts the HTTP server and the order consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		if err := a.orderCreated.Start(ctx); err != nil {
			errCh <- fmt.Errorf("order created consumer: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown drains HTTP first, then flushes spans and closes Kafka, Redis and
// PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.limiter.Close()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.orderCreated.Close(); err != nil {
		a.logger.Error("order created consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry pings the brokers up to three times with jittered
// exponential backoff.
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	const attempts = 3
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		base := time.Duration(1<<uint(attempt)) * time.Second
		wait := base + time.Duration(float64(base)*0.25*(2*rand.Float64()-1)) // #nosec G404 -- retry jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka ping after %d attempts: %w", attempts, lastErr)
}
