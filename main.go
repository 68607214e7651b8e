package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"keyword-go/pkg/cache"
	"keyword-go/pkg/enrich"
	"keyword-go/pkg/keyword"
	"keyword-go/pkg/logger"
	"keyword-go/pkg/store"
	"keyword-go/pkg/trends"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func main() {
	defaultSeeds := getEnvOrDefault("SEED_KEYWORDS", "")
	defaultOwner := getEnvOrDefault("OWNER_ID", "cli")
	defaultTopic := getEnvOrDefault("TOPIC_ID", "default")
	defaultTrendsURL := getEnvOrDefault("TRENDS_API_URL", "")
	defaultTrendsKey := getEnvOrDefault("TRENDS_API_KEY", "")
	defaultDSN := getEnvOrDefault("POSTGRES_DSN", "")
	defaultQuota := getEnvIntOrDefault("TRENDS_RATE_LIMIT", 60)
	defaultInFlight := getEnvIntOrDefault("MAX_IN_FLIGHT", 8)

	var (
		seedList    = flag.String("seeds", defaultSeeds, "Comma-separated seed keywords (env: SEED_KEYWORDS)")
		ownerID     = flag.String("owner", defaultOwner, "Owner id scope (env: OWNER_ID)")
		topicID     = flag.String("topic", defaultTopic, "Topic id scope (env: TOPIC_ID)")
		trendsURL   = flag.String("trends-api-url", defaultTrendsURL, "Keyword-data API URL (env: TRENDS_API_URL)")
		trendsKey   = flag.String("trends-api-key", defaultTrendsKey, "Keyword-data API key (env: TRENDS_API_KEY)")
		postgresDSN = flag.String("postgres-dsn", defaultDSN, "Postgres DSN, empty for in-memory (env: POSTGRES_DSN)")
		quota       = flag.Int("rate-limit", defaultQuota, "External API requests per minute (env: TRENDS_RATE_LIMIT)")
		inFlight    = flag.Int("max-in-flight", defaultInFlight, "Maximum concurrent fetches (env: MAX_IN_FLIGHT)")
		timeout     = flag.Duration("timeout", 2*time.Minute, "Overall batch timeout")
		debug       = flag.Bool("debug", false, "Enable debug logging (env: DEBUG)")
	)
	flag.Parse()

	if *debug {
		os.Setenv("DEBUG", "true")
	}
	log := logger.GetLogger().WithField("component", "main")

	if *seedList == "" {
		fmt.Println("ERROR: Seed keywords are required.")
		fmt.Println("Use -seeds flag or SEED_KEYWORDS environment variable.")
		fmt.Println("")
		fmt.Println("USAGE:")
		fmt.Println("    ./keyword-go -seeds \"eco friendly homes,solar panels\" [OPTIONS]")
		os.Exit(1)
	}

	seeds := strings.Split(*seedList, ",")
	for i, seed := range seeds {
		seeds[i] = strings.TrimSpace(seed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	keywordCache := cache.New(0, cache.DefaultTTLPolicy())
	defer keywordCache.Close()

	var recordStore store.Store = store.NewMemoryStore()
	if *postgresDSN != "" {
		pg, err := store.NewPostgresStore(ctx, *postgresDSN)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to postgres")
		}
		recordStore = pg
	}
	defer recordStore.Close()

	sources := []enrich.Source{
		enrich.NewSpreadsheetSource(),
		enrich.NewSeedExpansionSource(0),
	}
	trendsCfg := trends.Config{
		BaseURL:           *trendsURL,
		APIKey:            *trendsKey,
		RequestsPerMinute: *quota,
	}
	if trendsCfg.Enabled() {
		sources = append(sources, enrich.NewExternalSource(trends.NewClient(trendsCfg)))
	} else {
		log.Warn("Trends API not configured, running with local sources only")
	}

	orchestrator := enrich.NewOrchestrator(enrich.Config{
		MaxInFlight:  *inFlight,
		BatchTimeout: *timeout,
	}, sources, keywordCache, recordStore)

	start := time.Now()
	result, err := orchestrator.Enrich(ctx, enrich.Batch{
		Seeds: seeds,
		Scope: keyword.Scope{OwnerID: *ownerID, TopicID: *topicID},
	})
	if err != nil {
		if result != nil {
			printErrors(result)
		}
		log.WithError(err).Fatal("Enrichment failed")
	}

	fmt.Printf("\n=== Enrichment Results ===\n")
	fmt.Printf("Batch: %s\n", result.BatchID)
	fmt.Printf("Seeds: %d  Records: %d  Dropped: %d\n", len(seeds), len(result.Records), result.DroppedSeeds)
	fmt.Printf("Duration: %s\n", time.Since(start).Round(time.Millisecond))

	fmt.Printf("\n%-40s %8s %10s %10s\n", "KEYWORD", "VOLUME", "OPPORTUNITY", "PRIORITY")
	for _, rec := range result.Records {
		fmt.Printf("%-40s %8d %10.2f %10.2f\n",
			rec.Keyword, rec.SearchVolume, rec.OpportunityScore, rec.PriorityScore)
	}

	printErrors(result)
	if result.PersistenceError != "" {
		fmt.Printf("\nWARNING: results were not persisted: %s\n", result.PersistenceError)
	}
}

func printErrors(result *enrich.Result) {
	if len(result.ErrorsBySource) == 0 {
		return
	}
	fmt.Printf("\n=== Source Failures ===\n")
	for source, errs := range result.ErrorsBySource {
		for _, e := range errs {
			fmt.Printf("%s [%s] %s: %s\n", source, e.Kind, e.Seed, e.Message)
		}
	}
}
