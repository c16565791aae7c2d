// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/container"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/consent-banner-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Options tunes Initialize from the command line.
type Options struct {
	Port    string
	Verbose bool
}

// Initialize performs the complete multi-tenant startup sequence and blocks until
// SIGINT or SIGTERM.
func Initialize(opts Options) error {
	start := time.Now().UTC()
	setupGin()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Channeled logger
	logger, err := NewLogger(opts.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Consent banner server starting", "dataDir", config.DataDir, "multiTenant", config.EnableMultiTenant)

	// Step 2: Tenant system
	phase := time.Now()
	tenantManager, err := tenant.NewManager(config.DataDir, config.EnableMultiTenant, logger)
	if err != nil {
		logger.LogStartupPhase("tenant_manager", time.Since(phase), false)
		return fmt.Errorf("failed to initialize tenant manager: %w", err)
	}
	failed := tenantManager.PreActivateAllTenants()
	activeCount := len(tenantManager.ActiveContexts())
	if activeCount == 0 {
		logger.LogStartupPhase("tenant_activation", time.Since(phase), false)
		tenantManager.Close()
		return fmt.Errorf("no tenant could be activated (failed: %v)", failed)
	}
	if len(failed) > 0 {
		logger.Startup().Warn("Some tenants failed to activate", "failed", failed)
	}
	logger.LogStartupPhase("tenant_activation", time.Since(phase), true)

	// Step 3: Widget cache
	phase = time.Now()
	cache, closeCache, err := NewWidgetCache(ctx, logger)
	if err != nil {
		logger.LogStartupPhase("cache", time.Since(phase), false)
		tenantManager.Close()
		return err
	}
	defer closeCache()
	logger.LogStartupPhase("cache", time.Since(phase), true)

	// Step 4: Container
	appContainer := container.NewContainer(tenantManager, cache, logger)

	// Step 5: Background cleanup workers
	for _, w := range cleanupWorkers(cache, logger) {
		go w.Start(ctx)
	}

	// Step 6: HTTP server
	port := opts.Port
	if port == "" {
		port = config.Port
	}
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"activeTenants", activeCount,
		"port", port)

	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
			tenantManager.Close()
			return err
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if err := tenantManager.Close(); err != nil {
		logger.Shutdown().Error("Error closing tenant manager", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return nil
}

// NewLogger builds the channeled logger from the environment configuration.
func NewLogger(verbose bool) (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.LogDirectory = config.LogDir
	cfg.JSONConsole = config.LogJSONConsole
	if verbose {
		cfg.DefaultLevel = slog.LevelDebug
	}
	return logging.NewChanneledLogger(cfg)
}

// NewWidgetCache returns the Redis store when REDIS_URL is set and the in-memory store
// otherwise. The returned func releases the backend.
func NewWidgetCache(ctx context.Context, logger *logging.ChanneledLogger) (interfaces.WidgetCache, func(), error) {
	if config.RedisURL == "" {
		logger.Cache().Info("Using in-memory widget cache", "ttl", config.WidgetCacheTTL)
		return stores.NewMemoryWidgetStore(config.WidgetCacheTTL, logger), func() {}, nil
	}

	client, err := stores.NewRedisClient(ctx, config.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Cache().Info("Using redis widget cache", "addr", client.Options().Addr, "ttl", config.WidgetCacheTTL)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Shutdown().Warn("Error closing redis client", "error", err.Error())
		}
	}
	return stores.NewRedisWidgetStore(client, config.WidgetCacheTTL, logger), closeFn, nil
}

// cleanupWorkers sweeps expired cache entries (memory backend only) and drops dead
// database connections.
func cleanupWorkers(cache interfaces.WidgetCache, logger *logging.ChanneledLogger) []*cleanup.Worker {
	var workers []*cleanup.Worker
	if sweeper, ok := cache.(interfaces.Sweeper); ok {
		workers = append(workers, cleanup.NewWorker(config.CleanupInterval, logger, cleanup.SweepTask(sweeper)))
	}
	workers = append(workers, cleanup.NewWorker(config.DBPoolCleanupInterval, logger,
		cleanup.Task{Name: "db-pool", Run: tenant.CleanupStaleConnections}))
	return workers
}

func setupGin() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
}
