// Package main provides the model-lifecycle service:
// - Registry/assembler: feature vector extraction over market data
// - Deployment gate: validation of promotion candidates
// - Model store: lifecycle state (TRAINING → VALIDATED → DEPLOYED)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"quant-model-lab/internal/assembler"
	"quant-model-lab/internal/deploygate"
	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/featurecache"
	"quant-model-lab/internal/features"
	"quant-model-lab/internal/marketdata"
	chsource "quant-model-lab/internal/marketdata/clickhouse"
	"quant-model-lab/internal/marketdata/stub"
	"quant-model-lab/internal/marketdata/ws"
	"quant-model-lab/internal/modelstore"
	"quant-model-lab/internal/modelstore/memory"
	pgstore "quant-model-lab/internal/modelstore/postgres"
	"quant-model-lab/internal/observability"
	"quant-model-lab/internal/promotion"
)

// Server holds all components of the lifecycle service.
type Server struct {
	store     modelstore.Store
	assembler *assembler.Assembler
	registry  *features.Registry
	promoter  *promotion.Promoter
	logger    *log.Logger

	startedAt time.Time
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the model store")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for OHLCV bars")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("QUOTES_WS_ENDPOINT"), "WebSocket endpoint for live quotes (optional)")
	quoteSymbols := flag.String("quote-symbols", "", "Comma-separated symbols to stream quotes for")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and synthetic bars instead of PostgreSQL/ClickHouse")
	cacheDir := flag.String("cache-dir", "cache", "Directory for durable macro-series caches")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address")
	workers := flag.Int("workers", assembler.DefaultMaxWorkers, "Concurrent extractor limit")
	extractorTimeout := flag.Duration("extractor-timeout", assembler.DefaultExtractorTimeout, "Per-extractor timeout")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for local runs)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Model store
	var store modelstore.Store
	if *useMemory {
		store = memory.NewModelStore()
		logger.Println("Using in-memory model store")
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pool.Close()
		store = pgstore.NewModelStore(pool)
		logger.Println("Connected to PostgreSQL model store")
	}

	// Bar source
	var barSource marketdata.BarSource
	if *useMemory {
		barSource = syntheticBars()
		logger.Println("Using synthetic bar source")
	} else {
		conn, err := chsource.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer conn.Close()
		barSource = chsource.NewBarSource(conn)
		logger.Println("Connected to ClickHouse bar source")
	}

	// Optional live quote feed
	var quoteSource marketdata.QuoteSource
	if *wsEndpoint != "" {
		client, err := ws.NewQuoteClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Fatalf("Failed to connect quote feed: %v", err)
		}
		defer client.Close()
		if symbols := splitCSV(*quoteSymbols); len(symbols) > 0 {
			if err := client.Subscribe(symbols...); err != nil {
				logger.Fatalf("Failed to subscribe quotes: %v", err)
			}
			logger.Printf("Streaming quotes for %v", symbols)
		}
		quoteSource = client
	}

	sources := features.Sources{
		Bars:        barSource,
		Quotes:      quoteSource,
		MacroCaches: macroCaches(*cacheDir),
	}
	registry := features.NewBuiltinRegistry()

	server := &Server{
		store:    store,
		registry: registry,
		assembler: assembler.New(assembler.Options{
			Registry:         registry,
			Sources:          sources,
			MaxWorkers:       *workers,
			ExtractorTimeout: *extractorTimeout,
		}),
		promoter:  promotion.NewPromoter(deploygate.NewGate(nil), store),
		logger:    logger,
		startedAt: time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: server.routes(),
	}

	done := make(chan error, 1)
	go func() {
		logger.Printf("Starting HTTP server on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- err
			return
		}
		done <- nil
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	case err := <-done:
		if err != nil {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}

	logger.Println("Shutdown complete")
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/v1/models/", s.handleModelAction)
	mux.HandleFunc("/v1/extract", s.handleExtract)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status   string   `json:"status"`
	Uptime   string   `json:"uptime"`
	Features []string `json:"features"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.startedAt).String(),
		Features: s.registry.Names(),
	})
}

// handleModels serves POST /v1/models (register) and GET /v1/models?status=.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var rec modelstore.ModelRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode record: %w", err))
			return
		}
		if err := s.promoter.Register(r.Context(), &rec); err != nil {
			writeStoreError(w, err)
			return
		}
		s.logger.Printf("Registered model %s (%s)", rec.Config.ModelID, rec.Config.ModelName)
		writeJSON(w, http.StatusCreated, rec)

	case http.MethodGet:
		status := domain.ModelStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = domain.StatusTraining
		}
		records, err := s.store.ListByStatus(r.Context(), status)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleModelAction serves GET /v1/models/{id} and
// POST /v1/models/{id}/{validate|deploy|retire}.
func (s *Server) handleModelAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/models/")
	parts := strings.SplitN(rest, "/", 2)
	modelID := parts[0]
	if modelID == "" {
		writeError(w, http.StatusBadRequest, errors.New("model id missing"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rec, err := s.store.GetByID(r.Context(), modelID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch parts[1] {
	case "validate":
		rec, err := s.store.GetByID(r.Context(), modelID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		decision, err := s.promoter.Validate(r.Context(), modelID, promotion.ValidateArgs{
			ProvidedFeatures: s.registry.Names(),
			Load:             artifactLoad(rec.ArtifactPath),
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, decision)

	case "deploy":
		rec, err := s.promoter.Deploy(r.Context(), modelID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case "retire":
		rec, err := s.promoter.Retire(r.Context(), modelID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", parts[1]))
	}
}

// ExtractResponse is the JSON response for /v1/extract.
type ExtractResponse struct {
	ModelID string    `json:"model_id"`
	Symbol  string    `json:"symbol"`
	AsOf    string    `json:"as_of"`
	Vector  []float64 `json:"vector"`
}

// handleExtract serves GET /v1/extract?model_id=&symbol=&as_of=.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	modelID := r.URL.Query().Get("model_id")
	symbol := r.URL.Query().Get("symbol")
	if modelID == "" || symbol == "" {
		writeError(w, http.StatusBadRequest, errors.New("model_id and symbol are required"))
		return
	}

	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid as_of: %w", err))
			return
		}
		asOf = parsed
	}

	rec, err := s.store.GetByID(r.Context(), modelID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	meta := &domain.ModelMetadata{
		ModelVersion: rec.Config.ModelVersion,
		Features:     rec.Config.Features,
		NumFeatures:  len(rec.Config.Features),
	}
	vector, err := s.assembler.ExtractForModel(r.Context(), meta, symbol, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		ModelID: modelID,
		Symbol:  symbol,
		AsOf:    asOf.Format("2006-01-02"),
		Vector:  vector,
	})
}

// artifactLoad is the serving-layer load callback: a full sequential
// read of the artifact.
func artifactLoad(path string) deploygate.LoadFunc {
	return func() error {
		_, err := os.ReadFile(path)
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, modelstore.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, modelstore.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, modelstore.ErrInvalidTransition), errors.Is(err, modelstore.ErrInvalidInput):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// macroCaches builds one durable tiered cache per macro series, keyed
// by month since the series are monthly.
func macroCaches(dir string) map[string]*featurecache.TieredCache {
	series := []string{
		features.SeriesTreasury10Y,
		features.SeriesTreasury2Y,
		features.SeriesCPI,
		features.SeriesUnemployment,
		features.SeriesFedFunds,
	}

	caches := make(map[string]*featurecache.TieredCache, len(series))
	for _, s := range series {
		caches[s] = featurecache.New(featurecache.Options{
			Name:   s,
			Store:  featurecache.NewFileStore(filepath.Join(dir, s+".json")),
			Bucket: featurecache.BucketMonth,
		})
	}
	return caches
}

// syntheticBars returns a stub source with deterministic series for a
// few liquid symbols, for --use-memory runs.
func syntheticBars() marketdata.BarSource {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	var bars []domain.Bar
	for _, symbol := range []string{"SPY", "QQQ", "AAPL", "MSFT"} {
		bars = append(bars, stub.GenerateBars(symbol, end, 300)...)
	}
	return stub.NewBarSource(bars)
}

// loadEnvFile loads key=value pairs from .env without overriding
// existing environment variables.
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

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
