package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carpool/internal/app"
	"carpool/internal/config"
	"carpool/internal/events"
	"carpool/internal/geocode"
	"carpool/internal/handler"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository/postgres"
	"carpool/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	publisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		logger.Fatal("failed to initialize event publisher", zap.Error(err))
	}
	defer publisher.Close()
	logger.Info("event publisher ready", zap.String("driver", cfg.Events.Driver))

	server := wireServer(db, redisClient, publisher, nrApp, logger, cfg)

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// newPublisher selects the event transport.
func newPublisher(cfg config.EventsConfig, logger *zap.Logger) (events.Publisher, error) {
	switch cfg.Driver {
	case "amqp":
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case "kafka":
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return events.NewLogPublisher(logger), nil
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, publisher events.Publisher, nrApp *newrelic.Application, logger *zap.Logger, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	idempotencyStore := internalRedis.NewIdempotencyStore(redisClient)

	// Initialize repositories.
	store := postgres.NewStore(db)
	tx := postgres.NewTransactor(db)

	// Geocoding is optional; without it rides carry no coordinates and
	// matching falls back to text.
	var resolver geocode.Resolver
	var router geocode.Router
	if cfg.Geocoding.Enabled {
		resolver = geocode.NewCachedResolver(
			geocode.NewNominatimClient(cfg.Geocoding.NominatimURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout),
			cacheStore, logger)
		router = geocode.NewCachedRouter(
			geocode.NewOSRMRouter(cfg.Geocoding.OSRMURL, cfg.Geocoding.Timeout),
			cacheStore, logger)
	}

	lockOpts := service.LockOptions{TTL: cfg.Booking.LockTTL, Wait: cfg.Booking.LockWait}

	// Initialize services.
	chat := service.NewChatSynchronizer(store, logger)
	rideService := service.NewRideService(store, tx, lockStore, chat, resolver, router, publisher, lockOpts, logger)
	bookingService := service.NewBookingService(store, tx, lockStore, chat, publisher, lockOpts, logger)
	searchService := service.NewSearchService(store.Rides, resolver, logger)

	httpRouter := app.NewRouter(app.RouterDeps{
		RideHandler:      handler.NewRideHandler(rideService),
		BookingHandler:   handler.NewBookingHandler(bookingService),
		SearchHandler:    handler.NewSearchHandler(searchService),
		ChatHandler:      handler.NewChatHandler(chat),
		IdempotencyStore: idempotencyStore,
		JWTSecret:        cfg.Auth.JWTSecret,
		Logger:           logger,
		NewRelicApp:      nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
