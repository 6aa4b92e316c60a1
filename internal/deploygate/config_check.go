package deploygate

import (
	"regexp"

	"quant-model-lab/internal/domain"
)

var (
	// Model IDs are 64-char lowercase hex (sha256 of the identity tuple).
	modelIDPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
	// Semantic version, with optional leading v and pre-release tag.
	semverPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)
)

// ValidateModelConfig checks identity, versioning, timestamp ordering
// and the declared feature list of a model config.
func (g *Gate) ValidateModelConfig(cfg domain.ModelConfig) *CheckResult {
	r := newCheckResult()
	r.set("model_id", cfg.ModelID)
	r.set("model_version", cfg.ModelVersion)
	r.set("feature_count", len(cfg.Features))

	if !modelIDPattern.MatchString(cfg.ModelID) {
		r.fail("model_id %q is not a 64-char hex digest", cfg.ModelID)
	}
	if cfg.ModelName == "" {
		r.fail("model_name is empty")
	}

	switch cfg.ModelType {
	case domain.ModelTypeLightGBM, domain.ModelTypeXGBoost, domain.ModelTypeLSTM, domain.ModelTypeEnsemble:
	default:
		r.fail("unknown model_type %q", cfg.ModelType)
	}

	if cfg.ModelVersion == "" {
		r.fail("model_version is empty")
	} else if !semverPattern.MatchString(cfg.ModelVersion) {
		r.warn("model_version %q is not semantic (want MAJOR.MINOR.PATCH)", cfg.ModelVersion)
	}

	if len(cfg.Features) == 0 {
		r.fail("feature list is empty")
	} else if len(cfg.Features) < g.thresholds.MinFeatureCount {
		r.warn("only %d features declared (expected at least %d)",
			len(cfg.Features), g.thresholds.MinFeatureCount)
	}

	if cfg.CreatedAt.IsZero() {
		r.fail("created_at is not set")
	}
	if !cfg.UpdatedAt.IsZero() && cfg.UpdatedAt.Before(cfg.CreatedAt) {
		r.fail("updated_at %s precedes created_at %s",
			cfg.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			cfg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if cfg.DeployedAt != nil && cfg.DeployedAt.Before(cfg.CreatedAt) {
		r.fail("deployed_at %s precedes created_at %s",
			cfg.DeployedAt.Format("2006-01-02T15:04:05Z07:00"),
			cfg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}

	return r
}
