package deploygate

import (
	"time"

	"quant-model-lab/internal/observability"
)

// LoadFunc is the caller-supplied "load model" callback whose
// wall-clock duration the gate measures.
type LoadFunc func() error

// ValidateLoadingTime executes the load callback once and checks its
// wall-clock duration against the configured budget. Must run in
// isolation, with no other timed work interleaved, so the measurement
// is not polluted by concurrent CPU contention.
func (g *Gate) ValidateLoadingTime(load LoadFunc) *CheckResult {
	t := g.thresholds
	r := newCheckResult()
	r.set("budget_ms", t.LoadBudget.Milliseconds())

	if load == nil {
		r.fail("no load callback supplied")
		return r
	}

	start := time.Now()
	err := load()
	elapsed := time.Since(start)

	observability.RecordModelLoad(elapsed.Seconds())
	r.set("elapsed_ms", float64(elapsed.Microseconds())/1000)

	if err != nil {
		r.fail("load callback failed: %v", err)
		return r
	}
	if elapsed > t.LoadBudget {
		r.fail("load took %s, budget is %s", elapsed, t.LoadBudget)
		return r
	}

	warnAt := time.Duration(float64(t.LoadBudget) * t.LoadWarnFraction)
	if elapsed >= warnAt {
		r.warn("load took %s, at %.0f%% of the %s budget",
			elapsed, 100*float64(elapsed)/float64(t.LoadBudget), t.LoadBudget)
	}

	return r
}
