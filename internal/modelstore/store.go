// Package modelstore persists model records and enforces the lifecycle
// state machine on status updates.
package modelstore

import (
	"context"
	"errors"

	"quant-model-lab/internal/domain"
)

// Store errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a model_id that
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key: model already registered")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a status update violates
	// the lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ModelRecord is one registered model with its lifecycle status.
type ModelRecord struct {
	Config  domain.ModelConfig
	Metrics domain.PerformanceMetrics
	Status  domain.ModelStatus

	ArtifactPath     string
	ArtifactChecksum string
}

// validTransitions is the lifecycle state machine. A model failing the
// deployment gate stays in TRAINING; there is no transition for that.
var validTransitions = map[domain.ModelStatus][]domain.ModelStatus{
	domain.StatusTraining:  {domain.StatusValidated},
	domain.StatusValidated: {domain.StatusDeployed, domain.StatusRetired},
	domain.StatusDeployed:  {domain.StatusRetired},
	domain.StatusRetired:   {},
}

// ValidTransition reports whether from → to is allowed.
func ValidTransition(from, to domain.ModelStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Store persists model records.
type Store interface {
	// Insert registers a new model. Returns ErrDuplicateKey if the
	// model_id already exists.
	Insert(ctx context.Context, rec *ModelRecord) error

	// GetByID retrieves a record by model_id. Returns ErrNotFound if
	// not registered.
	GetByID(ctx context.Context, modelID string) (*ModelRecord, error)

	// ListByStatus retrieves all records in a lifecycle state, ordered
	// by created_at ASC.
	ListByStatus(ctx context.Context, status domain.ModelStatus) ([]*ModelRecord, error)

	// UpdateStatus moves a model to a new lifecycle state. Returns
	// ErrInvalidTransition if the state machine forbids the move and
	// the updated record on success. Moving to DEPLOYED stamps
	// deployed_at.
	UpdateStatus(ctx context.Context, modelID string, to domain.ModelStatus) (*ModelRecord, error)
}
