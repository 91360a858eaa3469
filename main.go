package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilmodi00/country-currency-api/config"
	"github.com/fenilmodi00/country-currency-api/database"
	"github.com/fenilmodi00/country-currency-api/handlers"
	"github.com/fenilmodi00/country-currency-api/jobs"
	"github.com/fenilmodi00/country-currency-api/services"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()
	unified := cfg.UnifiedConfiguration()
	config.ConfigureLogging(unified.Logging)

	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthCheck(cfg, unified))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, unified); err != nil {
		logrus.WithError(err).Fatal("Server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, unified *shared.UnifiedConfiguration) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := shared.NewAppMetrics(registry)

	httpFactory := shared.NewHTTPClientFactory(unified.Source.HTTPRequestTimeout)
	httpClient := httpFactory.CreateOptimizedHTTPClient(unified.Source.HTTPRequestTimeout)

	countriesSource := services.NewRestCountriesClient(unified.Source.CountriesURL, httpClient, metrics)
	ratesSource := services.NewExchangeRateClient(unified.Source.RatesURL, httpClient, metrics)

	artifact, err := services.NewSummaryArtifact(unified.Artifact)
	if err != nil {
		store.Close(ctx)
		return fmt.Errorf("initializing summary artifact: %w", err)
	}

	var (
		locker      services.RefreshLocker
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			store.Close(ctx)
			return err
		}
		locker = services.NewRedisRefreshLocker(redisClient, cfg.GetRefreshLockWait())
	} else {
		locker = services.NewLocalRefreshLocker(cfg.GetRefreshLockWait())
	}

	countryService := services.NewCountryService(store)
	cacheService := services.NewCacheService(unified.Cache, metrics)
	cachedCountryService := services.NewCachedCountryService(countryService, cacheService)

	if redisClient != nil {
		bus := services.NewRedisInvalidationBus(redisClient)
		if err := bus.Listen(ctx, cachedCountryService.ApplyInvalidation); err != nil {
			logrus.WithError(err).Warn("Cache invalidation listener unavailable; other replicas expire by TTL")
		}
		cachedCountryService.SetPublisher(bus)
	}

	refreshService := services.NewRefreshService(countriesSource, ratesSource, store, artifact, locker, metrics)
	refreshService.AddListener(cachedCountryService)

	logrus.WithFields(logrus.Fields{
		"store_driver":  cfg.StoreDriver,
		"countries_url": unified.Source.CountriesURL,
		"rates_url":     unified.Source.RatesURL,
		"http_timeout":  unified.Source.HTTPRequestTimeout,
		"cache_ttl":     unified.Cache.DefaultTTL,
		"cache_dir":     unified.Artifact.Directory,
		"redis_lock":    redisClient != nil,
	}).Info("Country currency services initialized")

	jobs.NewCacheCleanupJob(cacheService, unified.Cache.DefaultTTL).Start(ctx)
	if interval := cfg.GetRefreshInterval(); interval > 0 {
		jobs.NewRefreshJob(refreshService, interval).Start(ctx)
	}

	app := handlers.NewApp(handlers.Router{
		Country:        handlers.NewCountryHandler(cachedCountryService, refreshService, artifact),
		Status:         handlers.NewStatusHandler(cachedCountryService, store),
		Admin:          handlers.NewAdminHandler(cachedCountryService),
		Metrics:        metrics,
		Gatherer:       registry,
		CacheDir:       unified.Artifact.Directory,
		RequestLogging: true,
	})

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("Server starting on port %s", cfg.ServerPort)
		serverErr <- app.Listen(":" + cfg.ServerPort)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		logrus.Info("Shutdown signal received")
	case listenErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Store close failed")
	}
	httpFactory.CleanupAllClients()
	if redisClient != nil {
		redisClient.Close()
	}

	logrus.Info("Server stopped")
	return listenErr
}

// openStore connects the backend selected by STORE_DRIVER and brings its
// schema up to date
func openStore(ctx context.Context, cfg *config.Config) (database.CountryStore, error) {
	return connectStore(ctx, cfg, true)
}

// connectStore connects the backend selected by STORE_DRIVER. Schema
// migrations and index creation only run when prepare is set.
func connectStore(ctx context.Context, cfg *config.Config, prepare bool) (database.CountryStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if !prepare {
			return database.NewPostgresStore(db), nil
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		if _, err := database.NewSchemaValidator(db).Validate(ctx); err != nil {
			logrus.WithError(err).Warn("Schema validation could not run")
		}
		return database.NewPostgresStore(db), nil

	case config.StoreDriverMongo:
		if cfg.MongoURL == "" {
			return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "MISSING_MONGODB_URL",
				"MONGODB_URL is required for the mongo store", "main", "openStore", nil)
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		connect := database.ConnectMongo
		if !prepare {
			connect = database.DialMongo
		}
		mongoStore, err := connect(connectCtx, cfg.MongoURL, cfg.DatabaseName)
		if err != nil {
			return nil, err
		}
		return mongoStore, nil

	case config.StoreDriverMemory:
		if prepare {
			logrus.Warn("Using in-memory store; data is lost on restart")
		}
		return database.NewMemoryStore(), nil
	}

	return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "UNKNOWN_STORE_DRIVER",
		fmt.Sprintf("unknown STORE_DRIVER %q", cfg.StoreDriver), "main", "openStore", nil)
}
