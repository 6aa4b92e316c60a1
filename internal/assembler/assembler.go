// Package assembler turns a model's ordered feature list into a
// fixed-shape numeric vector. Any single failing feature degrades to
// a neutral 0.0 with a logged warning; the vector shape is preserved
// no matter how many extractors fail.
package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/features"
	"quant-model-lab/internal/observability"
)

// Defaults for the extraction worker pool.
const (
	DefaultMaxWorkers       = 4
	DefaultExtractorTimeout = 10 * time.Second
)

var (
	// ErrShapeMismatch means metadata declares num_features inconsistent
	// with its feature list.
	ErrShapeMismatch = fmt.Errorf("feature list length does not match num_features")
)

// Options configures an Assembler.
type Options struct {
	// Registry resolves feature names to extractors. Required.
	Registry *features.Registry
	// Sources feed the per-call scratch cache.
	Sources features.Sources

	// MaxWorkers bounds how many extractors run concurrently within
	// one call. Default DefaultMaxWorkers.
	MaxWorkers int
	// ExtractorTimeout bounds each individual extractor. A slow
	// extractor times out and degrades to 0.0 without blocking the
	// others. Default DefaultExtractorTimeout.
	ExtractorTimeout time.Duration
}

// Assembler builds feature vectors for models.
type Assembler struct {
	registry *features.Registry
	sources  features.Sources

	maxWorkers       int
	extractorTimeout time.Duration
}

// New creates an Assembler.
func New(opts Options) *Assembler {
	a := &Assembler{
		registry:         opts.Registry,
		sources:          opts.Sources,
		maxWorkers:       opts.MaxWorkers,
		extractorTimeout: opts.ExtractorTimeout,
	}
	if a.maxWorkers <= 0 {
		a.maxWorkers = DefaultMaxWorkers
	}
	if a.extractorTimeout <= 0 {
		a.extractorTimeout = DefaultExtractorTimeout
	}
	return a
}

// LoadMetadata reads and validates a model metadata document from disk.
func LoadMetadata(path string) (*domain.ModelMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta domain.ModelMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	if len(meta.Features) != meta.NumFeatures {
		return nil, fmt.Errorf("%w: %d features declared, num_features=%d",
			ErrShapeMismatch, len(meta.Features), meta.NumFeatures)
	}
	return &meta, nil
}

// ExtractForModel builds the feature vector for a symbol at an as-of
// date, in the exact order metadata declares. The returned vector
// always has length metadata.NumFeatures: unknown names and failed
// extractors contribute 0.0.
func (a *Assembler) ExtractForModel(ctx context.Context, meta *domain.ModelMetadata, symbol string, asOf time.Time) ([]float64, error) {
	if len(meta.Features) != meta.NumFeatures {
		return nil, fmt.Errorf("%w: %d features declared, num_features=%d",
			ErrShapeMismatch, len(meta.Features), meta.NumFeatures)
	}

	start := time.Now()
	vector := make([]float64, meta.NumFeatures)
	scratch := features.NewScratch(a.sources, symbol, asOf)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxWorkers)

	for i, name := range meta.Features {
		i, name := i, name

		fn, ok := a.registry.Get(name)
		if !ok {
			log.Printf("[assembler] feature %q not registered, using 0.0 (model %s)",
				name, meta.ModelVersion)
			observability.RecordExtractorSoftFail(name, "unregistered")
			continue
		}

		g.Go(func() error {
			vector[i] = a.extractOne(gctx, name, fn, symbol, asOf, scratch)
			return nil
		})
	}

	// Workers never return errors; soft-fail keeps the vector shape.
	g.Wait()

	observability.RecordExtraction(time.Since(start).Seconds())
	return vector, nil
}

// extractOne runs a single extractor under its own timeout and maps
// any failure to the neutral 0.0 value.
func (a *Assembler) extractOne(ctx context.Context, name string, fn features.Extractor, symbol string, asOf time.Time, scratch *features.Scratch) float64 {
	ctx, cancel := context.WithTimeout(ctx, a.extractorTimeout)
	defer cancel()

	start := time.Now()
	value, err := fn(ctx, symbol, asOf, scratch)
	observability.RecordExtractorLatency(name, time.Since(start).Seconds())

	if err != nil {
		reason := "error"
		if ctx.Err() == context.DeadlineExceeded {
			reason = "timeout"
		}
		log.Printf("[assembler] feature %q failed for %s@%s, using 0.0: %v",
			name, symbol, asOf.Format("2006-01-02"), err)
		observability.RecordExtractorSoftFail(name, reason)
		return 0
	}
	return value
}
