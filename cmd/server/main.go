// Package main is the entry point for the Propagation Engine service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cedarline/schema-propagation/internal/api"
	"github.com/cedarline/schema-propagation/internal/config"
	"github.com/cedarline/schema-propagation/internal/database/postgres"
	"github.com/cedarline/schema-propagation/internal/engine"
	"github.com/cedarline/schema-propagation/internal/executor"
	"github.com/cedarline/schema-propagation/internal/metrics"
	"github.com/cedarline/schema-propagation/internal/registry"
	"github.com/cedarline/schema-propagation/internal/simulator"
	"github.com/cedarline/schema-propagation/internal/streamer"
	"github.com/cedarline/schema-propagation/internal/tenant"
	"github.com/cedarline/schema-propagation/internal/version"
	"github.com/cedarline/schema-propagation/pkg/logger"
)

const (
	defaultPort    = "8080"
	serviceName    = "schema-propagation"
	serviceVersion = "1.0.0"
)

func main() {
	var showVersion = flag.Bool("version", false, "Show version information")
	var showHelp = flag.Bool("help", false, "Show help information")
	var configPath = flag.String("config", "", "Path to a config file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	if *showHelp {
		fmt.Printf("Propagation Engine - concurrent schema propagation across tenant databases\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		fmt.Printf("  -config     Path to a config file\n")
		fmt.Printf("  -version    Show version information\n")
		fmt.Printf("  -help       Show this help message\n\n")
		fmt.Printf("Environment variables:\n")
		fmt.Printf("  PORT        HTTP server port (default: %s)\n", defaultPort)
		fmt.Printf("  DATABASE_*, POOLER_*, PROPAGATION_*, LOG_*   override settings.yaml keys\n\n")
		os.Exit(0)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(logger.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Output: settings.Log.Output,
	})
	slog.SetDefault(log)

	log.Info("starting propagation engine", "service", serviceName, "version", serviceVersion)

	ctx := context.Background()

	metricsRegistry := metrics.DefaultRegistry()

	pgConfig := &postgres.PostgresConfig{
		Host:              settings.Database.Host,
		Port:              settings.Database.Port,
		Database:          settings.Database.Name,
		User:              settings.Database.User,
		Password:          settings.Database.Password,
		SSLMode:           settings.Database.SSLMode,
		MaxConns:          int32(settings.Propagation.MaxConcurrentConnections),
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    30 * time.Second,
	}

	controlPool := postgres.NewPostgresPool(pgConfig, log)

	log.Info("connecting to control database...")
	retrier := postgres.NewRetryExecutor(postgres.DefaultRetryConfig(), log)
	if err := retrier.Execute(ctx, func() error { return controlPool.Connect(ctx) }); err != nil {
		log.Error("failed to reach control database", "error", err)
		os.Exit(1)
	}
	defer controlPool.Close()
	log.Info("connected to control database")

	dbExporter := postgres.NewPrometheusExporter(controlPool, metricsRegistry.Database())
	dbExporter.Start(ctx, 10*time.Second)
	defer dbExporter.Stop()

	pool := controlPool.Pool()

	versionStore, err := version.NewStore(settings.VersionsDir)
	if err != nil {
		log.Error("failed to initialize version store", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if settings.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
			PoolSize: settings.Redis.PoolSize,
		})

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Error("failed to connect to redis", "error", err, "addr", settings.Redis.Addr)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info("connected to redis", "addr", settings.Redis.Addr)
	}

	tenantCache, err := tenant.NewCache(256, redisClient, 5*time.Second)
	if err != nil {
		log.Error("failed to initialize tenant cache", "error", err)
		os.Exit(1)
	}
	tenantDirectory := tenant.NewDirectory(pool, tenantCache)

	peerConnector := executor.NewPeerConnector(settings)
	dbExecutor := executor.New(peerConnector, settings.Propagation.MaxRetries, time.Second, log)

	jobRegistry := registry.New()
	propagationEngine := engine.New(dbExecutor, jobRegistry, settings.Propagation.ErrorThresholdPercent, metricsRegistry.Propagation(), log)

	progressStreamer := streamer.New(jobRegistry, metricsRegistry.Propagation())
	sim := simulator.New(pool, tenantCache)

	server := api.NewServer(versionStore, tenantDirectory, propagationEngine, jobRegistry, progressStreamer, sim, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: logger.LoggingMiddleware(log)(server.Router()),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}
