// Package domain contains the shared types of the model-lifecycle core.
package domain

import "time"

// ModelStatus is the lifecycle state of a model.
// Transitions: TRAINING → VALIDATED → DEPLOYED → RETIRED.
// A failed deployment gate leaves the model in TRAINING.
type ModelStatus string

const (
	StatusTraining  ModelStatus = "TRAINING"
	StatusValidated ModelStatus = "VALIDATED"
	StatusDeployed  ModelStatus = "DEPLOYED"
	StatusRetired   ModelStatus = "RETIRED"
)

// Model type constants.
const (
	ModelTypeLightGBM = "LIGHTGBM"
	ModelTypeXGBoost  = "XGBOOST"
	ModelTypeLSTM     = "LSTM"
	ModelTypeEnsemble = "ENSEMBLE"
)

// ModelMetadata is the serving-time metadata document written by training.
// Corresponds to metadata.json in a model artifact directory.
// Invariant: len(Features) == NumFeatures, checked at load time.
type ModelMetadata struct {
	ModelVersion string   `json:"model_version"`
	Features     []string `json:"features"` // ordered; defines vector layout
	NumFeatures  int      `json:"num_features"`
}

// ModelConfig describes a trained model presented to the deployment gate.
type ModelConfig struct {
	ModelID        string                 `json:"model_id"`
	ModelName      string                 `json:"model_name"`
	ModelType      string                 `json:"model_type"`
	ModelVersion   string                 `json:"model_version"`
	Features       []string               `json:"features"`
	Hyperparams    map[string]interface{} `json:"hyperparameters"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	DeployedAt     *time.Time             `json:"deployed_at,omitempty"`
}

// PerformanceMetrics are the evaluation metrics written by training.
type PerformanceMetrics struct {
	Accuracy           float64 `json:"accuracy"`
	Precision          float64 `json:"precision"`
	Recall             float64 `json:"recall"`
	F1Score            float64 `json:"f1_score"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	TrainAccuracy      float64 `json:"train_accuracy"`
	ValidationAccuracy float64 `json:"validation_accuracy"`
	TrainLoss          float64 `json:"train_loss"`
	ValidationLoss     float64 `json:"validation_loss"`
}
