// Package main extracts a feature vector for one (symbol, as-of date)
// pair against a model's metadata document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"quant-model-lab/internal/assembler"
	"quant-model-lab/internal/featurecache"
	"quant-model-lab/internal/features"
	"quant-model-lab/internal/marketdata"
	chsource "quant-model-lab/internal/marketdata/clickhouse"
	"quant-model-lab/internal/marketdata/stub"
)

// Result is the JSON document written to stdout.
type Result struct {
	ModelVersion string    `json:"model_version"`
	Symbol       string    `json:"symbol"`
	AsOf         string    `json:"as_of"`
	Features     []string  `json:"features"`
	Vector       []float64 `json:"vector"`
}

func main() {
	metadataPath := flag.String("metadata", "", "Path to the model metadata.json (required)")
	symbol := flag.String("symbol", "", "Ticker symbol to extract for (required)")
	asOfStr := flag.String("as-of", time.Now().UTC().Format("2006-01-02"), "As-of date (YYYY-MM-DD)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for OHLCV bars")
	cacheDir := flag.String("cache-dir", "cache", "Directory for durable macro-series caches")
	workers := flag.Int("workers", assembler.DefaultMaxWorkers, "Concurrent extractor limit")
	timeout := flag.Duration("timeout", assembler.DefaultExtractorTimeout, "Per-extractor timeout")
	synthetic := flag.Bool("synthetic", false, "Use deterministic synthetic bars instead of ClickHouse")

	flag.Parse()

	logger := log.New(os.Stderr, "[extract] ", log.LstdFlags)

	if *metadataPath == "" || *symbol == "" {
		logger.Fatal("--metadata and --symbol are required")
	}
	asOf, err := time.Parse("2006-01-02", *asOfStr)
	if err != nil {
		logger.Fatalf("invalid --as-of date: %v", err)
	}

	meta, err := assembler.LoadMetadata(*metadataPath)
	if err != nil {
		logger.Fatalf("Failed to load metadata: %v", err)
	}

	ctx := context.Background()

	var barSource marketdata.BarSource
	switch {
	case *synthetic:
		barSource = stub.NewBarSource(stub.GenerateBars(*symbol, asOf, 300))
	case *clickhouseDSN != "":
		conn, err := chsource.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer conn.Close()
		barSource = chsource.NewBarSource(conn)
	default:
		logger.Fatal("--clickhouse-dsn is required (or use --synthetic)")
	}

	sources := features.Sources{
		Bars:        barSource,
		MacroCaches: macroCaches(*cacheDir),
	}

	a := assembler.New(assembler.Options{
		Registry:         features.NewBuiltinRegistry(),
		Sources:          sources,
		MaxWorkers:       *workers,
		ExtractorTimeout: *timeout,
	})

	vector, err := a.ExtractForModel(ctx, meta, *symbol, asOf)
	if err != nil {
		logger.Fatalf("Extraction failed: %v", err)
	}

	out := Result{
		ModelVersion: meta.ModelVersion,
		Symbol:       *symbol,
		AsOf:         asOf.Format("2006-01-02"),
		Features:     meta.Features,
		Vector:       vector,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("Failed to encode result: %v", err)
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
			Store:  featurecache.NewFileStore(filepath.Join(dir, fmt.Sprintf("%s.json", s))),
			Bucket: featurecache.BucketMonth,
		})
	}
	return caches
}
