// Package app provides application-level coordination and dependency injection.
// It orchestrates the initialization of all gateway components, manages their
// lifecycles, and provides a clean application structure following dependency
// inversion principles.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/adapters/primary/rest"
	"github.com/revlabs/weather-gateway/internal/adapters/secondary/openmeteo"
	"github.com/revlabs/weather-gateway/internal/config"
	"github.com/revlabs/weather-gateway/internal/core/ports"
	"github.com/revlabs/weather-gateway/internal/core/services"
	"github.com/revlabs/weather-gateway/internal/infrastructure/cache"
	"github.com/revlabs/weather-gateway/internal/infrastructure/circuitbreaker"
	"github.com/revlabs/weather-gateway/internal/infrastructure/database"
	"github.com/revlabs/weather-gateway/internal/infrastructure/ratelimit"
	"github.com/revlabs/weather-gateway/internal/infrastructure/storage"
	"github.com/revlabs/weather-gateway/internal/middleware"
	"github.com/revlabs/weather-gateway/internal/observability"
	"github.com/revlabs/weather-gateway/internal/version"
)

// App manages the application lifecycle and dependencies.
type App struct {
	cfg       *config.Config
	server    *http.Server
	logger    *zap.Logger
	telemetry *observability.Telemetry
	db        *database.PostgresStore
	cbManager *circuitbreaker.Manager
}

// New creates a new application instance.
//
// Returns:
//   - *App: Configured application instance
//   - error: Logger initialization error
func New() (*App, error) {
	logger, err := zap.NewProduction()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg := config.Load()

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start initializes and starts all application components.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Server start error
func (a *App) Start(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	weatherCache, rateLimitService := a.initCacheAndLimiter(ctx)

	if err := a.initDatabase(); err != nil {
		a.logger.Warn("failed to connect to database, continuing without request logs", zap.Error(err))
	}

	objectStore := a.initObjectStore(ctx)
	geocoder, forecasts := a.initUpstreamClients()

	var logStore ports.LogStore
	if a.db != nil {
		logStore = a.db
	}

	weatherService := services.NewWeatherService(geocoder, forecasts, weatherCache, logStore, objectStore, a.logger)
	weatherHandler := rest.NewWeatherHandler(weatherService, a.logger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.RPS,
		a.cfg.RateLimit.Window,
		a.logger,
	)

	router := a.setupRouter(weatherHandler, rateLimitMiddleware)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info("starting HTTP server",
			zap.String("port", a.cfg.Server.Port),
			zap.String("environment", a.cfg.Server.Environment))

		if err := a.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all application components.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	if err := a.logger.Sync(); err != nil {
		// Sync can fail on some platforms, ignore the error
		_ = err
	}
}

// WaitForShutdown blocks until the server receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// initTelemetry initializes OpenTelemetry providers.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Telemetry initialization error
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initCacheAndLimiter initializes Redis-based or memory-based weather caching
// and rate limiting. Redis failures fall back to the in-memory backends so a
// cache outage never blocks startup.
//
// Parameters:
//   - ctx: Context for Redis connection testing
//
// Returns:
//   - ports.WeatherCache: Cache implementation (Redis or memory)
//   - ports.RateLimitService: Rate limiter implementation (Redis or memory)
func (a *App) initCacheAndLimiter(ctx context.Context) (ports.WeatherCache, ports.RateLimitService) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled, using memory-based services")

		return a.memoryBackends()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		a.logger.Warn("Redis connection failed, falling back to memory-based services", zap.Error(err))

		return a.memoryBackends()
	}

	a.logger.Info("Redis connected successfully")

	redisCfg := cache.Config{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}

	redisCache, err := cache.NewRedisCache(redisCfg, a.cfg.Cache.TTL, a.logger)

	if err != nil {
		a.logger.Warn("Redis cache setup failed, falling back to memory-based services", zap.Error(err))

		return a.memoryBackends()
	}

	rateLimitService := ratelimit.NewRedisRateLimiter(redisClient, a.logger)

	return redisCache, rateLimitService
}

func (a *App) memoryBackends() (ports.WeatherCache, ports.RateLimitService) {
	memCache := cache.NewMemoryCache(a.cfg.Cache.Capacity, a.cfg.Cache.TTL, a.logger)
	memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

	return memCache, memRateLimit
}

// initDatabase connects the request-log store and applies pending migrations.
//
// Returns:
//   - error: Database connection or migration error
func (a *App) initDatabase() error {
	if !a.cfg.Database.Enabled {
		return nil
	}

	dbConfig := database.Config{
		Host:                  a.cfg.Database.Host,
		Port:                  a.cfg.Database.Port,
		User:                  a.cfg.Database.User,
		Password:              a.cfg.Database.Password,
		Database:              a.cfg.Database.Database,
		SSLMode:               a.cfg.Database.SSLMode,
		MaxConnections:        a.cfg.Database.MaxConnections,
		MaxIdleConnections:    a.cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: a.cfg.Database.ConnectionMaxLifetime,
	}

	db, err := database.NewPostgresStore(dbConfig, a.logger)

	if err != nil {
		return err
	}

	if err := database.RunMigrations(db.DB(), a.logger); err != nil {
		_ = db.Close()

		return err
	}

	a.db = db

	return nil
}

// initObjectStore initializes the CSV report object store. A nil return means
// uploads are disabled and reports are served without a csv_url.
//
// Parameters:
//   - ctx: Context for bucket setup
//
// Returns:
//   - ports.ObjectStore: Object store implementation, or nil when disabled
func (a *App) initObjectStore(ctx context.Context) ports.ObjectStore {
	if !a.cfg.Storage.Enabled {
		a.logger.Info("object storage disabled, CSV uploads will be skipped")

		return nil
	}

	storeConfig := storage.Config{
		Endpoint:        a.cfg.Storage.Endpoint,
		Region:          a.cfg.Storage.Region,
		Bucket:          a.cfg.Storage.Bucket,
		AccessKey:       a.cfg.Storage.AccessKey,
		SecretKey:       a.cfg.Storage.SecretKey,
		PublicURLFormat: a.cfg.Storage.PublicURLFormat,
	}

	store, err := storage.NewS3Store(ctx, storeConfig, a.logger)

	if err != nil {
		a.logger.Warn("failed to initialize object storage, CSV uploads will be skipped", zap.Error(err))

		return nil
	}

	return store
}

// initUpstreamClients creates the Open-Meteo clients wrapped with circuit
// breaker protection.
//
// Returns:
//   - ports.GeocodingClient: Geocoding client behind a breaker
//   - ports.ForecastClient: Forecast client behind a breaker
func (a *App) initUpstreamClients() (ports.GeocodingClient, ports.ForecastClient) {
	httpClient := &http.Client{
		Timeout: a.cfg.OpenMeteo.HTTPTimeout,
	}

	client := openmeteo.NewClient(
		a.cfg.OpenMeteo.GeocodingBaseURL,
		a.cfg.OpenMeteo.ForecastBaseURL,
		httpClient,
		a.logger,
	)

	a.cbManager = circuitbreaker.NewManager(a.logger)

	breakerConfig := circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	}

	geocoder := &breakerGeocodingClient{
		client: client,
		cb:     a.cbManager.GetBreaker("open-meteo-geocoding", breakerConfig),
	}

	forecasts := &breakerForecastClient{
		client: client,
		cb:     a.cbManager.GetBreaker("open-meteo-forecast", breakerConfig),
	}

	return geocoder, forecasts
}

// setupRouter creates and configures the HTTP router with all middleware.
//
// Parameters:
//   - weatherHandler: Handler for weather endpoints
//   - rateLimitMiddleware: Rate-limiting middleware instance
//
// Returns:
//   - http.Handler: Configured router with all routes and middleware
func (a *App) setupRouter(
	weatherHandler *rest.WeatherHandler,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
) http.Handler {
	router := mux.NewRouter()

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/health/ready", a.readinessHandler).Methods("GET")

	// Version endpoint
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
			a.logger.Error("failed to encode version info", zap.Error(err))
		}
	}).Methods("GET")

	// Prometheus metrics and runtime statistics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/stats", a.statsHandler).Methods("GET")

	// Apply observability middleware if telemetry is available
	if a.telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(a.telemetry, a.logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
	}

	// Weather endpoints
	api := router.PathPrefix("/weather").Subrouter()

	if rateLimitMiddleware != nil {
		api.Use(rateLimitMiddleware.Middleware)
	}

	api.HandleFunc("", weatherHandler.GetWeather).Methods("POST")
	api.HandleFunc("/csv", weatherHandler.ExportCSV).Methods("POST")
	api.HandleFunc("/logs", weatherHandler.GetLogs).Methods("GET")

	return router
}

// readinessHandler reports whether the gateway and its backing services are
// ready to serve traffic. A failing database check turns the probe negative;
// optional components that are disabled do not.
func (a *App) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ready := true
	checks := map[string]bool{
		"server": true,
	}

	if a.db != nil {
		checks["database"] = a.db.Ping() == nil

		if !checks["database"] {
			ready = false
		}
	}

	status := http.StatusOK

	if !ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

// statsHandler exposes circuit breaker states and request-log statistics.
func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	if a.cbManager != nil {
		stats["circuit_breakers"] = a.cbManager.GetStats()
	}

	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if logStats, err := a.db.GetLogStats(ctx, time.Now().Add(-1*time.Hour)); err == nil {
			stats["request_logs"] = logStats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		a.logger.Error("failed to encode stats", zap.Error(err))
	}
}
