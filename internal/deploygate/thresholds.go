package deploygate

import "time"

// Thresholds holds every named minimum and maximum the checks apply.
// Overridable at construction time; zero fields fall back to the
// defaults.
type Thresholds struct {
	// Performance minimums. Any metric below its minimum is a hard fail.
	MinAccuracy  float64
	MinPrecision float64
	MinRecall    float64
	MinF1        float64
	MinSharpe    float64

	// MarginalBand warns when a metric clears its minimum by less than
	// this absolute margin.
	MarginalBand float64
	// MaxOverfitGap warns when train accuracy exceeds validation
	// accuracy by more than this.
	MaxOverfitGap float64
	// MaxLossRatio warns when validation loss exceeds training loss by
	// more than this factor.
	MaxLossRatio float64
	// SuspiciousSharpe warns above this value (likely data leakage).
	SuspiciousSharpe float64

	// Artifact size limits.
	MaxArtifactBytes int64
	SizeWarnFraction float64 // warn at >= this fraction of max
	MinArtifactBytes int64   // warn below this (suspiciously small)

	// Load-time budget.
	LoadBudget       time.Duration
	LoadWarnFraction float64 // warn at >= this fraction of budget

	// MinFeatureCount warns when a model declares fewer features.
	MinFeatureCount int
}

// DefaultThresholds returns the standard promotion thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAccuracy:  0.55,
		MinPrecision: 0.50,
		MinRecall:    0.50,
		MinF1:        0.50,
		MinSharpe:    0.50,

		MarginalBand:     0.02,
		MaxOverfitGap:    0.15,
		MaxLossRatio:     2.0,
		SuspiciousSharpe: 4.0,

		MaxArtifactBytes: 100 * 1024 * 1024,
		SizeWarnFraction: 0.8,
		MinArtifactBytes: 1024,

		LoadBudget:       50 * time.Millisecond,
		LoadWarnFraction: 0.7,

		MinFeatureCount: 3,
	}
}

// withDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()

	if t.MinAccuracy == 0 {
		t.MinAccuracy = d.MinAccuracy
	}
	if t.MinPrecision == 0 {
		t.MinPrecision = d.MinPrecision
	}
	if t.MinRecall == 0 {
		t.MinRecall = d.MinRecall
	}
	if t.MinF1 == 0 {
		t.MinF1 = d.MinF1
	}
	if t.MinSharpe == 0 {
		t.MinSharpe = d.MinSharpe
	}
	if t.MarginalBand == 0 {
		t.MarginalBand = d.MarginalBand
	}
	if t.MaxOverfitGap == 0 {
		t.MaxOverfitGap = d.MaxOverfitGap
	}
	if t.MaxLossRatio == 0 {
		t.MaxLossRatio = d.MaxLossRatio
	}
	if t.SuspiciousSharpe == 0 {
		t.SuspiciousSharpe = d.SuspiciousSharpe
	}
	if t.MaxArtifactBytes == 0 {
		t.MaxArtifactBytes = d.MaxArtifactBytes
	}
	if t.SizeWarnFraction == 0 {
		t.SizeWarnFraction = d.SizeWarnFraction
	}
	if t.MinArtifactBytes == 0 {
		t.MinArtifactBytes = d.MinArtifactBytes
	}
	if t.LoadBudget == 0 {
		t.LoadBudget = d.LoadBudget
	}
	if t.LoadWarnFraction == 0 {
		t.LoadWarnFraction = d.LoadWarnFraction
	}
	if t.MinFeatureCount == 0 {
		t.MinFeatureCount = d.MinFeatureCount
	}
	return t
}
