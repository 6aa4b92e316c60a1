package deploygate

import "sort"

// ValidateFeatureCompatibility checks that every feature the model
// requires is present in the set the caller can supply.
//
// Compatibility score = |required ∩ provided| / |required|. A score
// below 1.0 is a hard fail; 1.0 with unused extras is valid with a
// warning.
func (g *Gate) ValidateFeatureCompatibility(required, provided []string) *CheckResult {
	r := newCheckResult()
	r.set("required_count", len(required))
	r.set("provided_count", len(provided))

	if len(required) == 0 {
		r.fail("model declares no required features")
		return r
	}

	providedSet := make(map[string]struct{}, len(provided))
	for _, name := range provided {
		providedSet[name] = struct{}{}
	}
	requiredSet := make(map[string]struct{}, len(required))
	for _, name := range required {
		requiredSet[name] = struct{}{}
	}

	var missing []string
	matched := 0
	for _, name := range required {
		if _, ok := providedSet[name]; ok {
			matched++
		} else {
			missing = append(missing, name)
		}
	}

	var extras []string
	for name := range providedSet {
		if _, ok := requiredSet[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)

	score := float64(matched) / float64(len(required))
	r.set("compatibility_score", score)
	r.set("missing", missing)
	r.set("extras", extras)

	if len(missing) > 0 {
		r.fail("missing %d required features: %v", len(missing), missing)
	}
	if len(extras) > 0 {
		r.warn("%d provided features are unused by the model: %v", len(extras), extras)
	}

	return r
}
