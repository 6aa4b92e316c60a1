package deploygate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/observability"
)

// Gate runs the deployment checks with one set of thresholds.
type Gate struct {
	thresholds Thresholds
}

// NewGate creates a Gate. A nil thresholds pointer and any zero
// threshold fields fall back to DefaultThresholds.
func NewGate(thresholds *Thresholds) *Gate {
	t := Thresholds{}
	if thresholds != nil {
		t = *thresholds
	}
	return &Gate{thresholds: t.withDefaults()}
}

// Thresholds returns the effective thresholds.
func (g *Gate) Thresholds() Thresholds {
	return g.thresholds
}

// Input bundles everything a promotion attempt presents to the gate.
type Input struct {
	Config  domain.ModelConfig
	Metrics domain.PerformanceMetrics

	// ArtifactPath is the serialized model file on disk.
	ArtifactPath string
	// ExpectedChecksum is the artifact's expected SHA-256 hex digest.
	// Empty skips the digest comparison (warned).
	ExpectedChecksum string

	// ProvidedFeatures is the set of feature names the caller can
	// actually supply at serving time.
	ProvidedFeatures []string

	// Load is the serving layer's "load model" callback.
	Load LoadFunc
}

// ValidateForDeployment runs all seven checks and aggregates them into
// a Decision. The six data/disk checks run concurrently; the load-time
// check runs afterwards in isolation so its measurement is clean.
func (g *Gate) ValidateForDeployment(ctx context.Context, in Input) *Decision {
	d := &Decision{
		ModelID:      in.Config.ModelID,
		ModelVersion: in.Config.ModelVersion,
		EvaluatedAt:  time.Now().UTC(),
		Results:      make(map[string]*CheckResult, 7),
	}

	var mu sync.Mutex
	record := func(name string, r *CheckResult) {
		mu.Lock()
		d.Results[name] = r
		mu.Unlock()
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		record(CheckConfig, g.ValidateModelConfig(in.Config))
		return nil
	})
	eg.Go(func() error {
		record(CheckPerformance, g.ValidatePerformanceMetrics(in.Metrics))
		return nil
	})
	eg.Go(func() error {
		record(CheckSize, g.ValidateModelSize(in.ArtifactPath))
		return nil
	})
	eg.Go(func() error {
		record(CheckIntegrity, g.ValidateArtifactIntegrity(in.ArtifactPath, in.ExpectedChecksum))
		return nil
	})
	eg.Go(func() error {
		record(CheckFeatureCompat, g.ValidateFeatureCompatibility(in.Config.Features, in.ProvidedFeatures))
		return nil
	})
	eg.Go(func() error {
		record(CheckHyperparams, g.ValidateHyperparameters(in.Config.ModelType, in.Config.Hyperparams))
		return nil
	})
	eg.Wait()

	// Load-time measurement runs alone, after all concurrent work has
	// finished.
	d.Results[CheckLoadTime] = g.ValidateLoadingTime(in.Load)

	d.ConfigCheck = d.Results[CheckConfig].Valid
	d.PerformanceCheck = d.Results[CheckPerformance].Valid
	d.SizeCheck = d.Results[CheckSize].Valid
	d.IntegrityCheck = d.Results[CheckIntegrity].Valid
	d.FeatureCompatCheck = d.Results[CheckFeatureCompat].Valid
	d.HyperparamCheck = d.Results[CheckHyperparams].Valid
	d.LoadTimeCheck = d.Results[CheckLoadTime].Valid

	d.Valid = d.ConfigCheck && d.PerformanceCheck && d.SizeCheck &&
		d.IntegrityCheck && d.FeatureCompatCheck && d.HyperparamCheck &&
		d.LoadTimeCheck

	for _, name := range []string{
		CheckConfig, CheckPerformance, CheckSize, CheckIntegrity,
		CheckFeatureCompat, CheckHyperparams, CheckLoadTime,
	} {
		r := d.Results[name]
		for _, e := range r.Errors {
			d.Errors = append(d.Errors, fmt.Sprintf("%s: %s", name, e))
		}
		for _, w := range r.Warnings {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: %s", name, w))
		}
		if !r.Valid {
			observability.RecordCheckFailure(name)
		}
	}

	observability.RecordGateRun(d.Valid)

	return d
}
