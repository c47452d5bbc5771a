package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/folio/internal/adapter/http"
	"github.com/iho/folio/internal/adapter/http/handler"
	"github.com/iho/folio/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/folio/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/folio/internal/adapter/repository/redis"
	"github.com/iho/folio/internal/infrastructure/auth"
	"github.com/iho/folio/internal/infrastructure/config"
	"github.com/iho/folio/internal/infrastructure/eventbus"
	"github.com/iho/folio/internal/infrastructure/eventpublisher"
	"github.com/iho/folio/internal/infrastructure/logger"
	"github.com/iho/folio/internal/infrastructure/logging"
	"github.com/iho/folio/internal/infrastructure/metrics"
	"github.com/iho/folio/internal/infrastructure/postgres"
	"github.com/iho/folio/internal/infrastructure/redis"
	"github.com/iho/folio/internal/usecase"
)

// limiterIdle is how long a client IP may stay silent before its limiter
// is dropped.
const limiterIdle = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "folio",
		Output:  os.Stderr,
	})
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))
	workerLog := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Recalculation broadcast and its relay to other processes
	bus := eventbus.New(eventbus.Config{
		BufferSize: cfg.RecalcBufferSize,
		Metrics:    m,
	})

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relay := eventpublisher.NewRelay(eventpublisher.Config{
		Source:     bus,
		Publishers: recalcPublishers(cfg, redisClient, workerLog),
		Logger:     workerLog,
		Metrics:    m,
	})
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Start(relayCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("recalculation relay stopped")
		}
	}()

	// Initialize repositories
	accountRepo := postgresRepo.NewAccountRepository(pool)
	activityRepo := postgresRepo.NewActivityRepository(pool, postgresRepo.NewRetrier().WithLogger(workerLog))
	mappingRepo := postgresRepo.NewImportMappingRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen)
	activityUC := usecase.NewActivityUseCase(activityRepo, accountRepo, mappingRepo, bus, idGen)
	portfolioUC := usecase.NewPortfolioUseCase(bus)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountUC)
	activityHandler := handler.NewActivityHandler(activityUC, m)
	importHandler := handler.NewImportHandler(activityUC, m)
	portfolioHandler := handler.NewPortfolioHandler(portfolioUC)
	eventsHandler := handler.NewEventsHandler(bus)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).OnLimit(m.RateLimited)
	go sweepLimiters(relayCtx, rateLimiter)

	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled {
		if cfg.JWTSecret == "" {
			log.Fatal().Msg("AUTH_ENABLED requires JWT_SECRET")
		}
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		log.Info().Msg("bearer authentication enabled")
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   accountHandler,
		ActivityHandler:  activityHandler,
		ImportHandler:    importHandler,
		PortfolioHandler: portfolioHandler,
		EventsHandler:    eventsHandler,
		HealthHandler:    healthHandler,
		MetricsHandler:   promhttp.Handler(),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		JWTManager:       jwtManager,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Closing the bus ends every subscription, including the relay's and
	// any open websocket streams.
	bus.Close()
	stopRelay()
	select {
	case <-relayDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("recalculation relay did not stop in time")
	}

	log.Info().Msg("server stopped")
}

// recalcPublishers lists where the relay forwards recalculation requests.
func recalcPublishers(cfg *config.Config, client *goredis.Client, workerLog *slog.Logger) []eventpublisher.Publisher {
	publishers := []eventpublisher.Publisher{eventpublisher.NewLogPublisher(workerLog)}
	if cfg.RecalcRedisEnabled && client != nil {
		publishers = append(publishers, redisRepo.NewRecalculationPublisher(client, cfg.RecalcRedisChannel))
	}
	return publishers
}

func sweepLimiters(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(limiterIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.CleanupLimiters(limiterIdle); n > 0 {
				log.Debug().Int("removed", n).Msg("dropped idle rate limiters")
			}
		}
	}
}
