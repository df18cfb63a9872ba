package generator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// Catalog maps watch model IDs to their reference market values.
type Catalog map[string]float64

// LoadCatalog reads a catalog from a JSON object file
// ({"W00001": 1234.56, ...}).
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("parse catalog: no watches in %s", path)
	}
	return c, nil
}

// Save writes the catalog as indented JSON.
func (c Catalog) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// SyntheticCatalog builds a catalog of n watches with log-normally
// distributed values rescaled into [minValue, maxValue].
func SyntheticCatalog(n int, minValue, maxValue float64, rng *rand.Rand) Catalog {
	if n <= 0 {
		return Catalog{}
	}

	mu := math.Log((minValue + maxValue) / 2)
	const sigma = 0.5

	raw := make([]float64, n)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range raw {
		raw[i] = math.Exp(mu + sigma*rng.NormFloat64())
		if raw[i] < lo {
			lo = raw[i]
		}
		if raw[i] > hi {
			hi = raw[i]
		}
	}

	c := make(Catalog, n)
	for i, v := range raw {
		scaled := minValue
		if hi > lo {
			scaled = minValue + (v-lo)/(hi-lo)*(maxValue-minValue)
		}
		c[fmt.Sprintf("W%05d", i+1)] = math.Round(scaled*100) / 100
	}
	return c
}
