package deploygate

import (
	"testing"

	"quant-model-lab/internal/domain"
)

func lightgbmParams() map[string]interface{} {
	return map[string]interface{}{
		"num_leaves":    float64(64),
		"learning_rate": 0.05,
		"n_estimators":  float64(400),
	}
}

func TestValidateHyperparameters_Pass(t *testing.T) {
	g := NewGate(nil)

	r := g.ValidateHyperparameters(domain.ModelTypeLightGBM, lightgbmParams())
	if !r.Valid {
		t.Errorf("valid params rejected: %v", r.Errors)
	}
}

func TestValidateHyperparameters_OutOfRange(t *testing.T) {
	g := NewGate(nil)

	p := lightgbmParams()
	p["num_leaves"] = float64(300) // max is 256
	if r := g.ValidateHyperparameters(domain.ModelTypeLightGBM, p); r.Valid {
		t.Error("num_leaves=300 should hard-fail")
	}
}

func TestValidateHyperparameters_RequiredKeyMissing(t *testing.T) {
	g := NewGate(nil)

	for _, tc := range []struct {
		modelType string
		params    map[string]interface{}
	}{
		{domain.ModelTypeLightGBM, map[string]interface{}{
			"learning_rate": 0.05, "n_estimators": float64(400),
		}},
		{domain.ModelTypeXGBoost, map[string]interface{}{
			"learning_rate": 0.05, "n_estimators": float64(400),
		}},
		{domain.ModelTypeLSTM, map[string]interface{}{
			"hidden_size": float64(128), "num_layers": float64(2),
			"learning_rate": 0.001,
		}},
		{domain.ModelTypeEnsemble, map[string]interface{}{
			"num_models": float64(4),
		}},
	} {
		if r := g.ValidateHyperparameters(tc.modelType, tc.params); r.Valid {
			t.Errorf("%s: missing required key should hard-fail", tc.modelType)
		}
	}
}

func TestValidateHyperparameters_UnknownKeyWarnsOnly(t *testing.T) {
	g := NewGate(nil)

	p := lightgbmParams()
	p["exotic_flag"] = true

	r := g.ValidateHyperparameters(domain.ModelTypeLightGBM, p)
	if !r.Valid {
		t.Errorf("unknown key should only warn, got errors %v", r.Errors)
	}
	if len(r.Warnings) == 0 {
		t.Error("unknown key should warn")
	}
}

func TestValidateHyperparameters_WrongType(t *testing.T) {
	g := NewGate(nil)

	t.Run("string for int", func(t *testing.T) {
		p := lightgbmParams()
		p["num_leaves"] = "many"
		if r := g.ValidateHyperparameters(domain.ModelTypeLightGBM, p); r.Valid {
			t.Error("string num_leaves should hard-fail")
		}
	})

	t.Run("fractional for int", func(t *testing.T) {
		p := lightgbmParams()
		p["num_leaves"] = 64.5
		if r := g.ValidateHyperparameters(domain.ModelTypeLightGBM, p); r.Valid {
			t.Error("fractional num_leaves should hard-fail")
		}
	})

	t.Run("disallowed enum value", func(t *testing.T) {
		p := lightgbmParams()
		p["boosting_type"] = "rf"
		if r := g.ValidateHyperparameters(domain.ModelTypeLightGBM, p); r.Valid {
			t.Error("disallowed boosting_type should hard-fail")
		}
	})
}

func TestValidateHyperparameters_UnknownModelType(t *testing.T) {
	g := NewGate(nil)

	if r := g.ValidateHyperparameters("PROPHET", nil); r.Valid {
		t.Error("unsupported model type should hard-fail")
	}
}

func TestValidateHyperparameters_EnsemblePass(t *testing.T) {
	g := NewGate(nil)

	r := g.ValidateHyperparameters(domain.ModelTypeEnsemble, map[string]interface{}{
		"num_models":  float64(5),
		"aggregation": "weighted",
	})
	if !r.Valid {
		t.Errorf("valid ensemble params rejected: %v", r.Errors)
	}
}
