// Package main provides the matching server:
// - POST /api/match runs loop discovery over a submitted offer pool
// - GET /api/loops/{id} and /api/runs/{id}/loops serve stored loops
// - GET /api/report serves the aggregate markdown report
// - /ws/loops streams newly discovered loops to WebSocket subscribers
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/engine"
	"watch-trade-lab/internal/observability"
	"watch-trade-lab/internal/reporting"
	"watch-trade-lab/internal/storage"
	chstore "watch-trade-lab/internal/storage/clickhouse"
	"watch-trade-lab/internal/storage/memory"
	"watch-trade-lab/internal/storage/migrations"
	pgstore "watch-trade-lab/internal/storage/postgres"
	"watch-trade-lab/internal/validation"
)

// Server holds the matching service components.
type Server struct {
	offerStore storage.OfferStore
	loopStore  storage.LoopStore
	aggStore   storage.RunAggregateStore

	hub    *loopHub
	logger *log.Logger

	mu  sync.Mutex
	rng *rand.Rand

	maxLoops int
}

func main() {
	loadEnvFile()

	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	maxLoops := flag.Int("max-loops", 0, "Default loop budget per match request (0 picks a pool-sized default)")
	seed := flag.Int64("seed", 0, "Random seed for sampling mode (0 seeds from time)")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	offerStore, loopStore, aggStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		offerStore: offerStore,
		loopStore:  loopStore,
		aggStore:   aggStore,
		hub:        newLoopHub(logger),
		logger:     logger,
		rng:        rand.New(rand.NewSource(*seed)),
		maxLoops:   *maxLoops,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/api/match", server.handleMatch)
	mux.HandleFunc("/api/loops/", server.handleGetLoop)
	mux.HandleFunc("/api/runs/", server.handleGetRunLoops)
	mux.HandleFunc("/api/report", server.handleReport)
	mux.HandleFunc("/ws/loops", server.hub.handleSubscribe)

	httpServer := &http.Server{Addr: *addr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}

	server.hub.closeAll()
	logger.Println("Shutdown complete")
}

// matchRequest is the JSON body of POST /api/match.
type matchRequest struct {
	RunID    string     `json:"run_id,omitempty"`
	MaxLoops int        `json:"max_loops,omitempty"`
	Offers   []offerDTO `json:"offers"`
}

// matchResponse is the JSON response of POST /api/match.
type matchResponse struct {
	RunID      string    `json:"run_id"`
	PoolSize   int       `json:"pool_size"`
	EdgesBuilt int       `json:"edges_built"`
	Loops      []loopDTO `json:"loops"`
}

type offerDTO struct {
	OfferID            string  `json:"offer_id"`
	UserID             string  `json:"user_id"`
	WatchID            string  `json:"watch_id"`
	Period             int     `json:"period"`
	HaveValue          float64 `json:"have_value"`
	MinAcceptableValue float64 `json:"min_acceptable_value"`
	MaxCashTopUp       float64 `json:"max_cash_top_up"`
}

type loopDTO struct {
	LoopID          string    `json:"loop_id"`
	RunID           string    `json:"run_id"`
	LoopType        string    `json:"loop_type"`
	Users           []string  `json:"users"`
	Watches         []string  `json:"watches"`
	Values          []float64 `json:"values"`
	CashFlows       []float64 `json:"cash_flows"`
	TotalWatchValue float64   `json:"total_watch_value"`
	TotalCashFlow   float64   `json:"total_cash_flow"`
	ValueEfficiency float64   `json:"value_efficiency"`
	FairnessScore   float64   `json:"fairness_score"`
}

// handleMatch runs loop discovery over the submitted offer pool.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start := time.Now()
	defer func() {
		observability.DefaultMetrics.HTTPRequestLatency.
			WithLabelValues("/api/match").Observe(time.Since(start).Seconds())
	}()

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Offers) == 0 {
		writeError(w, http.StatusBadRequest, "offers are required")
		return
	}

	offers := make([]domain.Offer, len(req.Offers))
	for i, o := range req.Offers {
		offers[i] = domain.Offer{
			OfferID:            o.OfferID,
			UserID:             o.UserID,
			WatchID:            o.WatchID,
			Period:             o.Period,
			HaveValue:          o.HaveValue,
			MinAcceptableValue: o.MinAcceptableValue,
			MaxCashTopUp:       o.MaxCashTopUp,
		}
	}
	if err := validation.ValidateOffers(offers); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := req.RunID
	if runID == "" {
		runID = "run-" + time.Now().UTC().Format("20060102-150405.000")
	}

	graph := engine.Build(offers)
	budget := req.MaxLoops
	if budget <= 0 {
		budget = s.maxLoops
	}
	if budget <= 0 {
		budget = engine.DefaultMaxLoops(len(offers))
	}

	s.mu.Lock()
	loops := graph.FindLoops(budget, s.rng)
	s.mu.Unlock()
	engine.StampRun(runID, loops)

	observability.DefaultMetrics.OffersLoaded.Add(float64(len(offers)))
	observability.DefaultMetrics.EdgesBuilt.Add(float64(graph.EdgeCount()))

	ctx := r.Context()
	if err := s.persistRun(ctx, offers, loops); err != nil {
		s.logger.Printf("persist run %s: %v", runID, err)
		writeError(w, http.StatusInternalServerError, "failed to persist run")
		observability.RecordMatchRun("error", time.Since(start).Seconds())
		return
	}

	resp := matchResponse{
		RunID:      runID,
		PoolSize:   len(offers),
		EdgesBuilt: graph.EdgeCount(),
		Loops:      make([]loopDTO, len(loops)),
	}
	twoWay, threeWay := 0, 0
	for i := range loops {
		resp.Loops[i] = toLoopDTO(&loops[i])
		if loops[i].LoopType == domain.LoopTypeTwoWay {
			twoWay++
		} else {
			threeWay++
		}
		s.hub.broadcast(resp.Loops[i])
	}
	observability.RecordLoopsFound(domain.LoopTypeTwoWay, twoWay)
	observability.RecordLoopsFound(domain.LoopTypeThreeWay, threeWay)
	observability.RecordMatchRun("ok", time.Since(start).Seconds())

	s.logger.Printf("Run %s: %d offers, %d loops", runID, len(offers), len(loops))
	writeJSON(w, http.StatusOK, resp)
}

// persistRun stores the submitted offers and discovered loops.
// Offers seen in earlier runs are skipped.
func (s *Server) persistRun(ctx context.Context, offers []domain.Offer, loops []domain.TradeLoop) error {
	for i := range offers {
		if err := s.offerStore.Insert(ctx, &offers[i]); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return fmt.Errorf("store offer %s: %w", offers[i].OfferID, err)
		}
	}

	if len(loops) == 0 {
		return nil
	}
	loopPtrs := make([]*domain.TradeLoop, len(loops))
	for i := range loops {
		loopPtrs[i] = &loops[i]
	}
	return s.loopStore.InsertBulk(ctx, loopPtrs)
}

// handleGetLoop serves GET /api/loops/{id}.
func (s *Server) handleGetLoop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	loopID := strings.TrimPrefix(r.URL.Path, "/api/loops/")
	if loopID == "" || strings.Contains(loopID, "/") {
		writeError(w, http.StatusBadRequest, "loop id is required")
		return
	}

	loop, err := s.loopStore.GetByID(r.Context(), loopID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "loop not found")
			return
		}
		s.logger.Printf("get loop %s: %v", loopID, err)
		writeError(w, http.StatusInternalServerError, "failed to load loop")
		return
	}

	writeJSON(w, http.StatusOK, toLoopDTO(loop))
}

// handleGetRunLoops serves GET /api/runs/{id}/loops.
func (s *Server) handleGetRunLoops(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	runID, ok := strings.CutSuffix(rest, "/loops")
	if !ok || runID == "" || strings.Contains(runID, "/") {
		writeError(w, http.StatusBadRequest, "expected /api/runs/{id}/loops")
		return
	}

	loops, err := s.loopStore.GetByRunID(r.Context(), runID)
	if err != nil {
		s.logger.Printf("get run loops %s: %v", runID, err)
		writeError(w, http.StatusInternalServerError, "failed to load loops")
		return
	}

	dtos := make([]loopDTO, len(loops))
	for i, l := range loops {
		dtos[i] = toLoopDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// handleReport serves the aggregate markdown report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report, err := reporting.NewGenerator(s.loopStore, s.aggStore).Generate(r.Context())
	if err != nil {
		s.logger.Printf("generate report: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	observability.DefaultMetrics.ReportsGenerated.Inc()

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

func toLoopDTO(l *domain.TradeLoop) loopDTO {
	return loopDTO{
		LoopID:          l.LoopID,
		RunID:           l.RunID,
		LoopType:        l.LoopType,
		Users:           l.Users,
		Watches:         l.Watches,
		Values:          l.Values,
		CashFlows:       l.CashFlows,
		TotalWatchValue: l.TotalWatchValue,
		TotalCashFlow:   l.TotalCashFlow,
		ValueEfficiency: l.ValueEfficiency,
		FairnessScore:   l.RelativeFairnessScore,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// createStores creates the offer, loop, and aggregate stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.OfferStore, storage.LoopStore, storage.RunAggregateStore, func(), error) {
	if useMemory {
		return memory.NewOfferStore(), memory.NewLoopStore(), memory.NewRunAggregateStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		pool.Close()
		chConn.Close()
	}
	return pgstore.NewOfferStore(pool), pgstore.NewLoopStore(pool), chstore.NewRunAggregateStore(chConn), cleanup, nil
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
