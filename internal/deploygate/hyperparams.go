package deploygate

import (
	"math"

	"quant-model-lab/internal/domain"
)

// paramKind is the expected value type of a hyperparameter.
type paramKind int

const (
	kindInt paramKind = iota
	kindFloat
	kindString
	kindBool
)

// paramSpec describes one hyperparameter in a model type's schema.
type paramSpec struct {
	kind     paramKind
	required bool

	// Numeric range, inclusive. Applies to kindInt and kindFloat.
	min, max float64

	// Allowed values for kindString. Empty means any string.
	enum []string
}

// paramSchema maps parameter name to its spec for one model type.
type paramSchema map[string]paramSpec

// hyperparamSchemas holds the per-model-type schemas. One schema per
// supported type; validation dispatches on the type tag.
var hyperparamSchemas = map[string]paramSchema{
	domain.ModelTypeLightGBM: {
		"num_leaves":       {kind: kindInt, required: true, min: 2, max: 256},
		"learning_rate":    {kind: kindFloat, required: true, min: 0.0001, max: 1},
		"n_estimators":     {kind: kindInt, required: true, min: 1, max: 10000},
		"max_depth":        {kind: kindInt, min: -1, max: 64},
		"feature_fraction": {kind: kindFloat, min: 0.1, max: 1},
		"boosting_type":    {kind: kindString, enum: []string{"gbdt", "dart", "goss"}},
	},
	domain.ModelTypeXGBoost: {
		"max_depth":        {kind: kindInt, required: true, min: 1, max: 32},
		"learning_rate":    {kind: kindFloat, required: true, min: 0.0001, max: 1},
		"n_estimators":     {kind: kindInt, required: true, min: 1, max: 10000},
		"subsample":        {kind: kindFloat, min: 0.1, max: 1},
		"colsample_bytree": {kind: kindFloat, min: 0.1, max: 1},
		"objective": {kind: kindString, enum: []string{
			"binary:logistic", "reg:squarederror", "multi:softmax",
		}},
	},
	domain.ModelTypeLSTM: {
		"hidden_size":     {kind: kindInt, required: true, min: 1, max: 4096},
		"num_layers":      {kind: kindInt, required: true, min: 1, max: 16},
		"sequence_length": {kind: kindInt, required: true, min: 1, max: 512},
		"learning_rate":   {kind: kindFloat, required: true, min: 0.000001, max: 1},
		"dropout":         {kind: kindFloat, min: 0, max: 0.9},
		"bidirectional":   {kind: kindBool},
	},
	domain.ModelTypeEnsemble: {
		"num_models":  {kind: kindInt, required: true, min: 2, max: 32},
		"aggregation": {kind: kindString, required: true, enum: []string{"mean", "median", "weighted", "vote"}},
		"seed":        {kind: kindInt, min: 0, max: math.MaxInt32},
	},
}

// ValidateHyperparameters checks params against the schema for the
// model type. Unknown keys are warned about but never fail the check.
func (g *Gate) ValidateHyperparameters(modelType string, params map[string]interface{}) *CheckResult {
	r := newCheckResult()
	r.set("model_type", modelType)
	r.set("param_count", len(params))

	schema, ok := hyperparamSchemas[modelType]
	if !ok {
		r.fail("no hyperparameter schema for model type %q", modelType)
		return r
	}

	for name, spec := range schema {
		value, present := params[name]
		if !present {
			if spec.required {
				r.fail("required parameter %q is missing", name)
			}
			continue
		}
		validateParam(r, name, spec, value)
	}

	for name := range params {
		if _, known := schema[name]; !known {
			r.warn("unknown parameter %q not in the %s schema (ignored)", name, modelType)
		}
	}

	return r
}

// validateParam checks one present parameter value against its spec.
// Numeric values arrive as float64 when decoded from JSON; native int
// values are accepted too.
func validateParam(r *CheckResult, name string, spec paramSpec, value interface{}) {
	switch spec.kind {
	case kindInt:
		f, ok := asFloat(value)
		if !ok || f != math.Trunc(f) {
			r.fail("parameter %q must be an integer, got %v", name, value)
			return
		}
		if f < spec.min || f > spec.max {
			r.fail("parameter %q = %v out of range [%v, %v]", name, value, spec.min, spec.max)
		}
	case kindFloat:
		f, ok := asFloat(value)
		if !ok {
			r.fail("parameter %q must be numeric, got %v", name, value)
			return
		}
		if f < spec.min || f > spec.max {
			r.fail("parameter %q = %v out of range [%v, %v]", name, value, spec.min, spec.max)
		}
	case kindString:
		s, ok := value.(string)
		if !ok {
			r.fail("parameter %q must be a string, got %v", name, value)
			return
		}
		if len(spec.enum) > 0 && !contains(spec.enum, s) {
			r.fail("parameter %q = %q not in allowed set %v", name, s, spec.enum)
		}
	case kindBool:
		if _, ok := value.(bool); !ok {
			r.fail("parameter %q must be a boolean, got %v", name, value)
		}
	}
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
