// Package main provides the multi-period trade simulation entry point.
// Generates growing user cohorts, matches trade loops each period, simulates
// accept/decline decisions, and writes aggregate reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"watch-trade-lab/internal/analytics"
	"watch-trade-lab/internal/generator"
	"watch-trade-lab/internal/observability"
	"watch-trade-lab/internal/reporting"
	"watch-trade-lab/internal/simulation"
	"watch-trade-lab/internal/storage"
	chstore "watch-trade-lab/internal/storage/clickhouse"
	"watch-trade-lab/internal/storage/memory"
	"watch-trade-lab/internal/storage/migrations"
	pgstore "watch-trade-lab/internal/storage/postgres"
	"watch-trade-lab/internal/validation"
)

// simStores holds the storage implementations used by a simulation.
type simStores struct {
	offerStore   storage.OfferStore
	loopStore    storage.LoopStore
	outcomeStore storage.OutcomeStore
	aggStore     storage.RunAggregateStore
}

func main() {
	loadEnvFile()

	catalogPath := flag.String("catalog", "", "Watch catalog JSON (empty generates a synthetic one)")
	catalogSize := flag.Int("catalog-size", 50, "Number of watches in the synthetic catalog")
	periods := flag.Int("periods", 12, "Number of periods to simulate")
	initialUsers := flag.Int("initial-users", 50, "New users entering in the first period")
	growthRate := flag.Float64("growth-rate", 0.1, "Per-period user growth rate")
	maxLoops := flag.Int("max-loops", 0, "Loop budget per period (0 picks a pool-sized default)")
	topUpFactor := flag.Float64("topup-factor", 0, "Max cash top-up as a fraction of have value (0 uses the default)")
	minEfficiency := flag.Float64("min-efficiency", 0.3, "Minimum value efficiency for a loop to be offered")
	maxDisparity := flag.Float64("max-value-disparity", 0.5, "Maximum relative value disparity for a loop to be offered")
	seed := flag.Int64("seed", 0, "Random seed (0 seeds from time)")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")

	flag.Parse()

	logger := log.New(os.Stdout, "[simulate] ", log.LstdFlags)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling simulation...", sig)
		cancel()
	}()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rng := rand.New(rand.NewSource(*seed))

	var catalog generator.Catalog
	if *catalogPath != "" {
		catalog, err = generator.LoadCatalog(*catalogPath)
		if err != nil {
			logger.Fatalf("Failed to load catalog: %v", err)
		}
	} else {
		catalog = generator.SyntheticCatalog(*catalogSize, 500, 20000, rng)
	}
	logger.Printf("Catalog ready: %d watches", len(catalog))

	rules := validation.DefaultLoopRules()
	rules.MinEfficiency = *minEfficiency
	rules.MaxValueDisparity = *maxDisparity

	aggregator := analytics.NewAggregator(stores.loopStore, stores.outcomeStore, stores.aggStore)
	runner := simulation.NewRunner(simulation.RunnerOptions{
		Generator:    generator.New(catalog, rng),
		OfferStore:   stores.offerStore,
		LoopStore:    stores.loopStore,
		OutcomeStore: stores.outcomeStore,
		Aggregator:   aggregator,
		Rng:          rng,
	})

	simID := "sim-" + time.Now().UTC().Format("20060102-150405")
	logger.Printf("Starting simulation %s: %d periods, %d initial users, growth %.2f, seed %d",
		simID, *periods, *initialUsers, *growthRate, *seed)

	start := time.Now()
	result, err := runner.Run(ctx, simID, simulation.Config{
		Periods:      *periods,
		InitialUsers: *initialUsers,
		GrowthRate:   *growthRate,
		MaxLoops:     *maxLoops,
		TopUpFactor:  *topUpFactor,
		Rules:        rules,
	})
	if err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}

	for _, pr := range result.Periods {
		logger.Printf("Period %d: pool %d, loops %d, executed %d, declined %d, skipped %d, carried %d",
			pr.Period, pr.PoolSize, pr.LoopsFound, pr.Executed, pr.Declined, pr.Skipped, pr.Carried)
		observability.RecordPeriod(pr.Executed, pr.Declined, pr.Skipped, pr.PoolSize)
	}

	executionRate := 0.0
	if decided := result.TotalExecuted + result.TotalDeclined; decided > 0 {
		executionRate = float64(result.TotalExecuted) / float64(decided)
	}
	logger.Printf("Simulation %s complete in %s: %d users, %d executed, %d declined (rate %.4f)",
		simID, time.Since(start).Round(time.Millisecond),
		result.TotalUsers, result.TotalExecuted, result.TotalDeclined, executionRate)

	if err := writeReports(ctx, *outputDir, stores, result, logger); err != nil {
		logger.Fatalf("Failed to write reports: %v", err)
	}
}

// writeReports renders the markdown report and CSVs into the output directory.
func writeReports(ctx context.Context, outputDir string, stores *simStores, result *simulation.Result, logger *log.Logger) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	report, err := reporting.NewGenerator(stores.loopStore, stores.aggStore).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	outcomes, err := collectOutcomes(ctx, stores.outcomeStore, result)
	if err != nil {
		return fmt.Errorf("collect outcomes: %w", err)
	}

	files := map[string]string{
		"report.md":    reporting.RenderMarkdown(report),
		"periods.csv":  reporting.RenderPeriodsCSV(report.Periods),
		"loops.csv":    reporting.RenderLoopsCSV(report.TopLoops),
		"outcomes.csv": reporting.RenderOutcomesCSV(outcomes),
	}
	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		logger.Printf("Wrote %s", path)
	}

	observability.DefaultMetrics.ReportsGenerated.Inc()
	return nil
}

// collectOutcomes loads every period's outcomes as CSV rows.
func collectOutcomes(ctx context.Context, store storage.OutcomeStore, result *simulation.Result) ([]reporting.OutcomeRow, error) {
	var rows []reporting.OutcomeRow
	for _, pr := range result.Periods {
		outcomes, err := store.GetByRunID(ctx, pr.RunID)
		if err != nil {
			return nil, fmt.Errorf("load outcomes for %s: %w", pr.RunID, err)
		}
		for _, o := range outcomes {
			rows = append(rows, reporting.OutcomeRow{
				OutcomeID:       o.OutcomeID,
				LoopID:          o.LoopID,
				RunID:           o.RunID,
				Period:          o.Period,
				Status:          o.Status,
				AcceptWeight:    o.AcceptWeight,
				Users:           o.Users,
				LoopType:        o.LoopType,
				ValueEfficiency: o.ValueEfficiency,
				FairnessScore:   o.FairnessScore,
			})
		}
	}
	return rows, nil
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*simStores, func(), error) {
	if useMemory {
		stores := &simStores{
			offerStore:   memory.NewOfferStore(),
			loopStore:    memory.NewLoopStore(),
			outcomeStore: memory.NewOutcomeStore(),
			aggStore:     memory.NewRunAggregateStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &simStores{
		offerStore:   pgstore.NewOfferStore(pool),
		loopStore:    pgstore.NewLoopStore(pool),
		outcomeStore: pgstore.NewOutcomeStore(pool),
		aggStore:     chstore.NewRunAggregateStore(chConn),
	}

	cleanup := func() {
		pool.Close()
		if err := chConn.Close(); err != nil {
			log.Printf("close clickhouse: %v", err)
		}
	}
	return stores, cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
