// Package main provides the one-shot matching entry point.
// Loads an offer pool, builds the exchange graph, discovers trade loops,
// and writes the scored loops to disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/engine"
	"watch-trade-lab/internal/generator"
	"watch-trade-lab/internal/observability"
	"watch-trade-lab/internal/reporting"
	"watch-trade-lab/internal/storage"
	"watch-trade-lab/internal/storage/migrations"
	pgstore "watch-trade-lab/internal/storage/postgres"
	"watch-trade-lab/internal/validation"
)

func main() {
	loadEnvFile()

	input := flag.String("input", "", "Offers file to match, JSON or CSV (required)")
	runID := flag.String("run-id", "", "Run identifier (empty generates a timestamped one)")
	maxLoops := flag.Int("max-loops", 0, "Loop budget (0 picks a pool-sized default)")
	seed := flag.Int64("seed", 0, "Random seed for sampling mode (0 seeds from time)")
	workers := flag.Int("workers", 0, "Worker goroutines for graph construction (0 uses GOMAXPROCS)")
	verbose := flag.Bool("verbose", false, "Log every discovered loop")
	outputDir := flag.String("output-dir", "output", "Output directory for loop CSVs")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (empty skips persistence)")

	flag.Parse()

	logger := log.New(os.Stdout, "[match] ", log.LstdFlags)

	if *input == "" {
		logger.Fatal("--input is required")
	}
	if *runID == "" {
		*runID = "run-" + time.Now().UTC().Format("20060102-150405")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx := context.Background()

	offers, err := generator.LoadOffersFile(*input)
	if err != nil {
		logger.Fatalf("Failed to load offers: %v", err)
	}
	if len(offers) == 0 {
		logger.Fatalf("Failed to load offers: %v", validation.ErrNoOffers)
	}
	if err := validation.ValidateOffers(offers); err != nil {
		logger.Fatalf("Offer pool failed validation: %v", err)
	}
	logger.Printf("Loaded %d offers from %s", len(offers), *input)
	observability.DefaultMetrics.OffersLoaded.Add(float64(len(offers)))

	start := time.Now()
	var graph *engine.Graph
	if *workers > 0 {
		graph = engine.BuildParallel(offers, *workers)
	} else {
		graph = engine.Build(offers)
	}
	logger.Printf("Built exchange graph: %d nodes, %d edges", graph.Size(), graph.EdgeCount())
	observability.DefaultMetrics.EdgesBuilt.Add(float64(graph.EdgeCount()))

	budget := *maxLoops
	if budget <= 0 {
		budget = engine.DefaultMaxLoops(len(offers))
	}
	loops := graph.FindLoops(budget, rand.New(rand.NewSource(*seed)))
	engine.StampRun(*runID, loops)

	twoWay, threeWay := 0, 0
	for i := range loops {
		if loops[i].LoopType == domain.LoopTypeTwoWay {
			twoWay++
		} else {
			threeWay++
		}
		if *verbose {
			logger.Printf("Loop %s: %s users=%s efficiency=%.4f cash=%.2f",
				loops[i].LoopID, loops[i].LoopType,
				strings.Join(loops[i].Users, ","),
				loops[i].ValueEfficiency, loops[i].TotalCashFlow)
		}
	}
	logger.Printf("Found %d loops (%d 2-way, %d 3-way) with budget %d", len(loops), twoWay, threeWay, budget)
	observability.RecordLoopsFound(domain.LoopTypeTwoWay, twoWay)
	observability.RecordLoopsFound(domain.LoopTypeThreeWay, threeWay)

	if err := writeLoopsCSV(*outputDir, loops); err != nil {
		logger.Fatalf("Failed to write loops: %v", err)
	}

	if *postgresDSN != "" {
		if err := persist(ctx, *postgresDSN, offers, loops, logger); err != nil {
			logger.Fatalf("Failed to persist run: %v", err)
		}
	}

	observability.RecordMatchRun("ok", time.Since(start).Seconds())
	logger.Printf("Run %s complete in %s", *runID, time.Since(start).Round(time.Millisecond))
}

// writeLoopsCSV renders the scored loops into <output-dir>/loops.csv.
func writeLoopsCSV(outputDir string, loops []domain.TradeLoop) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rows := make([]reporting.LoopRow, len(loops))
	for i := range loops {
		l := &loops[i]
		rows[i] = reporting.LoopRow{
			LoopID:          l.LoopID,
			RunID:           l.RunID,
			LoopType:        l.LoopType,
			Users:           l.Users,
			Watches:         l.Watches,
			TotalWatchValue: l.TotalWatchValue,
			TotalCashFlow:   l.TotalCashFlow,
			ValueEfficiency: l.ValueEfficiency,
			FairnessScore:   l.RelativeFairnessScore,
		}
	}

	path := filepath.Join(outputDir, "loops.csv")
	return os.WriteFile(path, []byte(reporting.RenderLoopsCSV(rows)), 0o644)
}

// persist stores the offer pool and discovered loops in PostgreSQL.
// Offers already present from earlier runs are skipped.
func persist(ctx context.Context, dsn string, offers []domain.Offer, loops []domain.TradeLoop, logger *log.Logger) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	offerStore := pgstore.NewOfferStore(pool)
	for i := range offers {
		if err := offerStore.Insert(ctx, &offers[i]); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return fmt.Errorf("store offer %s: %w", offers[i].OfferID, err)
		}
	}

	if len(loops) > 0 {
		loopPtrs := make([]*domain.TradeLoop, len(loops))
		for i := range loops {
			loopPtrs[i] = &loops[i]
		}
		if err := pgstore.NewLoopStore(pool).InsertBulk(ctx, loopPtrs); err != nil {
			return fmt.Errorf("store loops: %w", err)
		}
	}

	logger.Printf("Persisted %d offers and %d loops", len(offers), len(loops))
	return nil
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
