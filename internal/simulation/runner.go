package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"watch-trade-lab/internal/analytics"
	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/engine"
	"watch-trade-lab/internal/generator"
	"watch-trade-lab/internal/idhash"
	"watch-trade-lab/internal/storage"
	"watch-trade-lab/internal/validation"
)

// Runner errors
var (
	ErrNoPeriods = errors.New("simulation requires at least one period")
)

// Config controls a multi-period simulation.
type Config struct {
	Periods      int
	InitialUsers int
	GrowthRate   float64 // new users per period grow by (1+GrowthRate)^period
	MaxLoops     int     // 0 picks a pool-sized default per period
	TopUpFactor  float64 // 0 uses the generator default
	Rules        validation.LoopRules
}

// Runner executes multi-period trade simulations. Users enter per period,
// get matched into loops, and exit the pool once a trade executes.
type Runner struct {
	gen          *generator.Generator
	offerStore   storage.OfferStore
	loopStore    storage.LoopStore
	outcomeStore storage.OutcomeStore
	aggregator   *analytics.Aggregator
	rng          *rand.Rand
}

// RunnerOptions contains configuration for creating a Runner.
// Stores and the aggregator are optional; nil disables persistence.
type RunnerOptions struct {
	Generator    *generator.Generator
	OfferStore   storage.OfferStore
	LoopStore    storage.LoopStore
	OutcomeStore storage.OutcomeStore
	Aggregator   *analytics.Aggregator
	Rng          *rand.Rand
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Runner{
		gen:          opts.Generator,
		offerStore:   opts.OfferStore,
		loopStore:    opts.LoopStore,
		outcomeStore: opts.OutcomeStore,
		aggregator:   opts.Aggregator,
		rng:          rng,
	}
}

// PeriodResult summarizes a single simulated period.
type PeriodResult struct {
	Period     int
	RunID      string
	PoolSize   int
	LoopsFound int
	Executed   int
	Declined   int
	Skipped    int
	Carried    int
}

// Result summarizes a full simulation.
type Result struct {
	SimID         string
	TotalUsers    int
	TotalExecuted int
	TotalDeclined int
	Periods       []PeriodResult
}

// Run executes the simulation. Each period generates a growing cohort of new
// offers, pools them with carried-over users, matches trade loops, and lets
// every participant independently accept or decline. A loop executes only
// when all of its participants accept; executed users leave the pool.
func (r *Runner) Run(ctx context.Context, simID string, cfg Config) (*Result, error) {
	if cfg.Periods < 1 {
		return nil, ErrNoPeriods
	}

	result := &Result{SimID: simID}
	var carried []domain.Offer

	for period := 1; period <= cfg.Periods; period++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		newCount := int(float64(cfg.InitialUsers) * math.Pow(1+cfg.GrowthRate, float64(period-1)))
		newOffers, err := r.gen.Generate(generator.Params{
			Count:       newCount,
			Period:      period,
			TopUpFactor: cfg.TopUpFactor,
		})
		if err != nil {
			return nil, fmt.Errorf("generate offers for period %d: %w", period, err)
		}
		result.TotalUsers += len(newOffers)

		pool := make([]domain.Offer, 0, len(carried)+len(newOffers))
		pool = append(pool, carried...)
		pool = append(pool, newOffers...)
		if err := validation.ValidateOffers(pool); err != nil {
			return nil, fmt.Errorf("validate pool for period %d: %w", period, err)
		}

		if r.offerStore != nil {
			if err := r.offerStore.InsertBulk(ctx, toOfferPtrs(newOffers)); err != nil {
				return nil, fmt.Errorf("store offers for period %d: %w", period, err)
			}
		}

		pr, remaining, err := r.runPeriod(ctx, simID, period, pool, cfg)
		if err != nil {
			return nil, err
		}

		carried = remaining
		result.TotalExecuted += pr.Executed
		result.TotalDeclined += pr.Declined
		result.Periods = append(result.Periods, pr)
	}

	return result, nil
}

// runPeriod matches and simulates a single period over the given pool.
// Returns the period summary and the offers carried into the next period.
func (r *Runner) runPeriod(ctx context.Context, simID string, period int, pool []domain.Offer, cfg Config) (PeriodResult, []domain.Offer, error) {
	runID := fmt.Sprintf("%s-p%02d", simID, period)
	pr := PeriodResult{Period: period, RunID: runID, PoolSize: len(pool)}

	graph := engine.Build(pool)

	budget := cfg.MaxLoops
	if budget <= 0 {
		budget = engine.DefaultMaxLoops(len(pool))
	}
	loops := graph.FindLoops(budget, r.rng)
	engine.StampRun(runID, loops)
	pr.LoopsFound = len(loops)

	if r.loopStore != nil && len(loops) > 0 {
		if err := r.loopStore.InsertBulk(ctx, toLoopPtrs(loops)); err != nil {
			return pr, nil, fmt.Errorf("store loops for period %d: %w", period, err)
		}
	}

	status := make(map[string]string, len(pool))
	for i := range pool {
		status[pool[i].UserID] = domain.UserStatusAvailable
	}

	var outcomes []*domain.TradeOutcome
	for i := range loops {
		loop := &loops[i]

		if ok, _ := cfg.Rules.CheckLoop(loop); !ok {
			pr.Skipped++
			outcomes = append(outcomes, newOutcome(loop, period, domain.OutcomeStatusSkipped, 0))
			continue
		}

		if !allAvailable(loop.Users, status) {
			continue
		}

		weight := AcceptWeight(loop.ValueEfficiency, loop.RelativeFairnessScore)
		decisions, allAccept := drawDecisions(weight, len(loop.Users), r.rng)

		if allAccept {
			for _, u := range loop.Users {
				status[u] = domain.UserStatusMatched
			}
			pr.Executed++
			outcomes = append(outcomes, newOutcome(loop, period, domain.OutcomeStatusExecuted, weight))
		} else {
			for j, u := range loop.Users {
				if !decisions[j] {
					status[u] = domain.UserStatusDeclined
				}
			}
			pr.Declined++
			outcomes = append(outcomes, newOutcome(loop, period, domain.OutcomeStatusDeclined, weight))
		}
	}

	if r.outcomeStore != nil && len(outcomes) > 0 {
		if err := r.outcomeStore.InsertBulk(ctx, outcomes); err != nil {
			return pr, nil, fmt.Errorf("store outcomes for period %d: %w", period, err)
		}
	}

	if r.aggregator != nil {
		_, err := r.aggregator.ComputeAndStore(ctx, runID, analytics.RunStats{
			Period:      period,
			TotalOffers: len(pool),
			EdgesBuilt:  graph.EdgeCount(),
		})
		if err != nil {
			return pr, nil, fmt.Errorf("aggregate period %d: %w", period, err)
		}
	}

	// Available and declined users stay in the pool; executed users exit.
	var remaining []domain.Offer
	for i := range pool {
		if status[pool[i].UserID] != domain.UserStatusMatched {
			remaining = append(remaining, pool[i])
		}
	}
	pr.Carried = len(remaining)

	return pr, remaining, nil
}

// allAvailable reports whether every user is still available this period.
func allAvailable(users []string, status map[string]string) bool {
	for _, u := range users {
		if status[u] != domain.UserStatusAvailable {
			return false
		}
	}
	return true
}

// newOutcome builds an outcome record from a scored loop.
func newOutcome(loop *domain.TradeLoop, period int, status string, weight float64) *domain.TradeOutcome {
	users := make([]string, len(loop.Users))
	copy(users, loop.Users)

	return &domain.TradeOutcome{
		OutcomeID:       idhash.ComputeOutcomeID(loop.LoopID, period, status),
		LoopID:          loop.LoopID,
		RunID:           loop.RunID,
		Period:          period,
		Status:          status,
		AcceptWeight:    weight,
		Users:           users,
		LoopType:        loop.LoopType,
		TotalWatchValue: loop.TotalWatchValue,
		TotalCashFlow:   loop.TotalCashFlow,
		ValueEfficiency: loop.ValueEfficiency,
		FairnessScore:   loop.RelativeFairnessScore,
	}
}

func toOfferPtrs(offers []domain.Offer) []*domain.Offer {
	out := make([]*domain.Offer, len(offers))
	for i := range offers {
		out[i] = &offers[i]
	}
	return out
}

func toLoopPtrs(loops []domain.TradeLoop) []*domain.TradeLoop {
	out := make([]*domain.TradeLoop, len(loops))
	for i := range loops {
		out[i] = &loops[i]
	}
	return out
}
