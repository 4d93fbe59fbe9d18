package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jelson/metar-calendar/internal/airports"
	"github.com/jelson/metar-calendar/internal/almanac"
	"github.com/jelson/metar-calendar/internal/api"
	"github.com/jelson/metar-calendar/internal/config"
	"github.com/jelson/metar-calendar/internal/fetcher"
	"github.com/jelson/metar-calendar/internal/observability"
	"github.com/jelson/metar-calendar/internal/stats"
	"github.com/jelson/metar-calendar/internal/storage/sqlite"
	"github.com/jelson/metar-calendar/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting metar-calendar server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Load the airport directory
	directory, err := airports.Load(cfg.Station.AirportsDBPath, log)
	if err != nil {
		log.Error("Failed to load airport directory", logger.Error(err),
			logger.String("path", cfg.Station.AirportsDBPath))
		os.Exit(1)
	}
	log.Info("Loaded airport directory",
		logger.String("path", cfg.Station.AirportsDBPath),
		logger.Int("airports", directory.Len()))

	// Create the timezone and daylight almanac
	alm, err := almanac.New(log)
	if err != nil {
		log.Error("Failed to initialize almanac", logger.Error(err))
		os.Exit(1)
	}

	// Create SQLite report storage
	reportStorage, err := sqlite.NewReportStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err),
			logger.String("path", cfg.Storage.SQLitePath))
		os.Exit(1)
	}
	defer reportStorage.Close()
	log.Info("Using SQLite report storage", logger.String("path", cfg.Storage.SQLitePath))

	// Create the archive client with a persistent cache in front of it
	metrics := observability.NewMetrics()
	archiveClient := fetcher.NewClient(fetcher.Config{
		BaseURL:               cfg.Fetcher.BaseURL,
		RequestTimeoutSeconds: cfg.Fetcher.RequestTimeoutSeconds,
		MaxRetries:            cfg.Fetcher.MaxRetries,
	}, log)
	cachingFetcher := fetcher.NewCachingFetcher(archiveClient, reportStorage, metrics, log)

	// Create the statistics engine
	engine := stats.NewEngine(
		cachingFetcher,
		directory,
		alm,
		cfg.History.DefaultYears,
		clockwork.NewRealClock(),
		metrics,
		log,
	)

	// Create the API router
	router := api.NewRouter(engine, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}
