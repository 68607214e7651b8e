package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"keyword-go/internal/config"
	"keyword-go/internal/handler"
	"keyword-go/pkg/cache"
	"keyword-go/pkg/enrich"
	"keyword-go/pkg/logger"
	"keyword-go/pkg/store"
	"keyword-go/pkg/trends"
)

func main() {
	var (
		configPath = flag.String("config", "config/dev.yaml", "Configuration file path")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	manager := config.NewManager()
	cfg, err := manager.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logger.Level
	if *debug {
		level = "debug"
	}
	logger.SetLogger(logger.New(logger.Config{
		Level:      level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		TimeFormat: cfg.Logger.TimeFormat,
	}))
	log := logger.GetLogger().WithField("component", "server")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	keywordCache := cache.New(cfg.Cache.MaxEntries, ttlPolicy(cfg))
	defer keywordCache.Close()

	recordStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	spreadsheet := enrich.NewSpreadsheetSource()
	sources := []enrich.Source{
		spreadsheet,
		enrich.NewSeedExpansionSource(cfg.Sources.SeedVariants),
	}
	if cfg.Trends.Enabled() {
		sources = append(sources, enrich.NewExternalSource(trends.NewClient(cfg.Trends)))
	} else {
		// Missing credentials degrade gracefully: the source is simply
		// not registered.
		log.Warn("Trends API not configured, external source disabled")
	}

	orchestrator := enrich.NewOrchestrator(cfg.Enrich, sources, keywordCache, recordStore)

	app := fiber.New(fiber.Config{
		AppName:               "keyword-go",
		DisableStartupMessage: true,
	})
	handler.NewController(orchestrator, spreadsheet, keywordCache).Register(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errChan := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Server listening")
		errChan <- app.Listen(addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

func buildStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	if cfg.Postgres.DSN == "" {
		log.Warn("No postgres DSN configured, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return pg, nil
}

func ttlPolicy(cfg *config.Config) cache.TTLPolicy {
	policy := cache.DefaultTTLPolicy()
	if v := cfg.Cache.TTL.ExternalTrend; v > 0 {
		policy.ExternalTrend = v
	}
	if v := cfg.Cache.TTL.ExternalMetric; v > 0 {
		policy.ExternalMetric = v
	}
	if v := cfg.Cache.TTL.SeedExpansion; v > 0 {
		policy.SeedExpansion = v
	}
	if v := cfg.Cache.TTL.Negative; v > 0 {
		policy.Negative = v
	}
	return policy
}
