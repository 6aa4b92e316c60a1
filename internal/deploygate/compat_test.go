package deploygate

import (
	"math"
	"testing"
)

func TestValidateFeatureCompatibility_Score(t *testing.T) {
	g := NewGate(nil)

	r := g.ValidateFeatureCompatibility(
		[]string{"A", "B", "C", "D", "E"},
		[]string{"A", "B"},
	)

	if r.Valid {
		t.Error("missing required features should hard-fail")
	}

	score, ok := r.Fields["compatibility_score"].(float64)
	if !ok {
		t.Fatal("compatibility_score not recorded")
	}
	if math.Abs(score-0.4) > 1e-12 {
		t.Errorf("score = %v, want 0.4", score)
	}

	missing, ok := r.Fields["missing"].([]string)
	if !ok {
		t.Fatal("missing list not recorded")
	}
	want := []string{"C", "D", "E"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, missing[i], want[i])
		}
	}
}

func TestValidateFeatureCompatibility_FullCoverageWithExtras(t *testing.T) {
	g := NewGate(nil)

	r := g.ValidateFeatureCompatibility(
		[]string{"A", "B"},
		[]string{"A", "B", "C", "D"},
	)

	if !r.Valid {
		t.Errorf("full coverage should pass, got errors %v", r.Errors)
	}
	if len(r.Warnings) == 0 {
		t.Error("unused extras should warn")
	}
	if score := r.Fields["compatibility_score"].(float64); score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}
}

func TestValidateFeatureCompatibility_EmptyRequired(t *testing.T) {
	g := NewGate(nil)

	if r := g.ValidateFeatureCompatibility(nil, []string{"A"}); r.Valid {
		t.Error("a model declaring no required features should hard-fail")
	}
}
