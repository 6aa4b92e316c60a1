// Package deploygate validates trained models before promotion. Seven
// independent checks each produce a CheckResult; the orchestrator
// aggregates them into a single pass/fail Decision. Any failed check
// blocks promotion; warnings are advisory and never block.
package deploygate

import (
	"fmt"
	"time"
)

// Check name constants, used as Decision.Results keys and metric labels.
const (
	CheckConfig        = "config"
	CheckPerformance   = "performance"
	CheckSize          = "size"
	CheckIntegrity     = "integrity"
	CheckFeatureCompat = "feature_compatibility"
	CheckHyperparams   = "hyperparameters"
	CheckLoadTime      = "load_time"
)

// CheckResult is the outcome of one validation check. Never mutated
// after the check returns it.
type CheckResult struct {
	Valid    bool                   `json:"valid"`
	Errors   []string               `json:"errors,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

func newCheckResult() *CheckResult {
	return &CheckResult{
		Valid:  true,
		Fields: make(map[string]interface{}),
	}
}

// fail records a hard error and flips the result invalid.
func (r *CheckResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// warn records an advisory warning. Warnings never affect Valid.
func (r *CheckResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// set records an observed value for the operator report.
func (r *CheckResult) set(key string, value interface{}) {
	r.Fields[key] = value
}

// Decision is the aggregate outcome of a promotion attempt. Valid is
// the logical AND of every per-check flag; there is no partial credit.
// Computed fresh on every attempt, never cached.
type Decision struct {
	ModelID      string    `json:"model_id"`
	ModelVersion string    `json:"model_version"`
	EvaluatedAt  time.Time `json:"evaluated_at"`

	ConfigCheck        bool `json:"config_check"`
	PerformanceCheck   bool `json:"performance_check"`
	SizeCheck          bool `json:"size_check"`
	IntegrityCheck     bool `json:"integrity_check"`
	FeatureCompatCheck bool `json:"feature_compatibility_check"`
	HyperparamCheck    bool `json:"hyperparameter_check"`
	LoadTimeCheck      bool `json:"load_time_check"`

	Valid bool `json:"valid"`

	// Results holds the full per-check outcomes, keyed by check name.
	Results map[string]*CheckResult `json:"results"`

	// Errors and Warnings aggregate all checks, prefixed with the
	// check name, so an operator can fix everything in one pass.
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
