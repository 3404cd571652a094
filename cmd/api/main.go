package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"token-price-service/internal/backfill"
	"token-price-service/internal/cache"
	"token-price-service/internal/config"
	"token-price-service/internal/handler"
	"token-price-service/internal/logger"
	"token-price-service/internal/metrics"
	"token-price-service/internal/provider"
	"token-price-service/internal/resolver"
	"token-price-service/internal/store"
)

// healthChecker adapts the cache and store backends to the handler's health surface
type healthChecker struct {
	cache cache.Cache
	store store.Store
}

func (h *healthChecker) CacheConnected(ctx context.Context) bool {
	return h.cache.Connected(ctx)
}

func (h *healthChecker) StorePing(ctx context.Context) error {
	return h.store.Ping(ctx)
}

func main() {
	log.Println("Starting Token Price Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging
	logger.SetLogLevel(cfg.Logging.Level)
	structuredLogger := logger.GetLogger()

	structuredLogger.Info("Initializing service components...")

	// Create cache based on configuration
	cacheConfig := cache.Config{
		TTL:           cfg.Cache.TTL,
		RedisAddr:     cfg.Cache.Redis.Addr,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
	}

	priceCache, err := cache.NewCacheFromConfig(cfg.Cache.Backend, cacheConfig)
	if err != nil {
		structuredLogger.WithField("error", err.Error()).Fatal("Failed to create cache")
	}
	defer priceCache.Close()

	structuredLogger.WithField("backend", cfg.Cache.Backend).Info("Cache initialized successfully")

	// Create persistence store based on configuration
	priceStore, err := store.NewStoreFromConfig(cfg.Store.Backend, cfg.Store.PostgresDSN)
	if err != nil {
		structuredLogger.WithField("error", err.Error()).Fatal("Failed to create store")
	}
	defer priceStore.Close()

	structuredLogger.WithField("backend", cfg.Store.Backend).Info("Store initialized successfully")

	// Create price provider based on configuration
	priceProvider, err := provider.NewProviderFromConfig(cfg.Provider.Backend, provider.AlchemyConfig{
		BaseURL:            cfg.Provider.BaseURL,
		APIKey:             cfg.Provider.APIKey,
		Timeout:            cfg.Provider.Timeout,
		RateLimitCapacity:  cfg.Provider.RateLimitCapacity,
		RateLimitPerSecond: cfg.Provider.RateLimitPerSecond,
	})
	if err != nil {
		structuredLogger.WithField("error", err.Error()).Fatal("Failed to create provider")
	}

	structuredLogger.WithField("backend", cfg.Provider.Backend).Info("Provider initialized successfully")

	// Set service info metrics
	metrics.SetServiceInfo("1.0.0", cfg.Cache.Backend, cfg.Store.Backend)

	// Create resolution service
	stats := resolver.NewStats()
	priceResolver := resolver.New(priceCache, priceStore, priceProvider, stats)
	priceResolver.SetCacheTTL(cfg.Cache.TTL)

	// Create and start backfill job manager
	jobManager := backfill.NewManager(priceStore, priceProvider, backfill.Config{
		Workers:      cfg.Backfill.Workers,
		BatchSize:    cfg.Backfill.BatchSize,
		BatchDelay:   cfg.Backfill.BatchDelay,
		PollInterval: cfg.Backfill.PollInterval,
	})

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	jobManager.Start(workerCtx)

	structuredLogger.WithField("workers", cfg.Backfill.Workers).Info("Backfill workers started")

	// Create HTTP handler and server
	priceHandler := handler.NewPriceHandler(priceResolver, jobManager, priceStore, &healthChecker{
		cache: priceCache,
		store: priceStore,
	})
	server := handler.CreateServer(priceHandler, cfg.Server.Port)

	structuredLogger.WithField("port", cfg.Server.Port).Info("Server starting")

	// Start server in a goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.WithField("error", err.Error()).Fatal("Failed to start server")
		}
	}()

	structuredLogger.WithFields(map[string]interface{}{
		"port": cfg.Server.Port,
		"endpoints": map[string]string{
			"health":   "/health",
			"price":    "/api/v1/price",
			"backfill": "/api/v1/backfill",
			"jobs":     "/api/v1/jobs",
			"queries":  "/api/v1/queries",
			"stats":    "/api/v1/stats",
			"metrics":  "/metrics",
		},
	}).Info("Token Price Service is running")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info("Shutting down server...")

	// Stop accepting new jobs, then drain the HTTP server
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.WithField("error", err.Error()).Fatal("Server forced to shutdown")
	}

	structuredLogger.Info("Server shutdown completed")
}
