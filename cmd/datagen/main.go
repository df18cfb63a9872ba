// Package main provides the offer data generator.
// Produces a watch catalog and a pool of synthetic barter offers.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"watch-trade-lab/internal/generator"
	"watch-trade-lab/internal/validation"
)

func main() {
	catalogPath := flag.String("catalog", "", "Watch catalog JSON to load (empty generates a synthetic one)")
	catalogSize := flag.Int("catalog-size", 50, "Number of watches in the synthetic catalog")
	minValue := flag.Float64("min-value", 500, "Minimum watch value in the synthetic catalog")
	maxValue := flag.Float64("max-value", 20000, "Maximum watch value in the synthetic catalog")
	saveCatalog := flag.String("save-catalog", "", "Write the catalog to this path")
	count := flag.Int("count", 100, "Number of offers to generate")
	period := flag.Int("period", 0, "Period number stamped on offers (0 for ad hoc pools)")
	topUpFactor := flag.Float64("topup-factor", 0, "Max cash top-up as a fraction of have value (0 uses the default)")
	seed := flag.Int64("seed", 0, "Random seed (0 seeds from time)")
	output := flag.String("output", "offers.json", "Output path for the offers JSON")

	flag.Parse()

	logger := log.New(os.Stdout, "[datagen] ", log.LstdFlags)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	var (
		catalog generator.Catalog
		err     error
	)
	if *catalogPath != "" {
		catalog, err = generator.LoadCatalog(*catalogPath)
		if err != nil {
			logger.Fatalf("Failed to load catalog: %v", err)
		}
		logger.Printf("Loaded catalog with %d watches from %s", len(catalog), *catalogPath)
	} else {
		catalog = generator.SyntheticCatalog(*catalogSize, *minValue, *maxValue, rng)
		logger.Printf("Generated synthetic catalog with %d watches", len(catalog))
	}

	if *saveCatalog != "" {
		if err := catalog.Save(*saveCatalog); err != nil {
			logger.Fatalf("Failed to save catalog: %v", err)
		}
		logger.Printf("Catalog written to %s", *saveCatalog)
	}

	gen := generator.New(catalog, rng)
	offers, err := gen.Generate(generator.Params{
		Count:       *count,
		Period:      *period,
		TopUpFactor: *topUpFactor,
	})
	if err != nil {
		logger.Fatalf("Failed to generate offers: %v", err)
	}

	if err := validation.ValidateOffers(offers); err != nil {
		logger.Fatalf("Generated offers failed validation: %v", err)
	}

	if err := generator.SaveOffers(*output, offers); err != nil {
		logger.Fatalf("Failed to write offers: %v", err)
	}

	logger.Printf("Wrote %d offers to %s (seed %d)", len(offers), *output, *seed)
}
