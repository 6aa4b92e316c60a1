// Package memory provides an in-memory modelstore.Store for tests and
// local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/modelstore"
)

// ModelStore is an in-memory implementation of modelstore.Store.
type ModelStore struct {
	mu   sync.RWMutex
	data map[string]*modelstore.ModelRecord // keyed by model_id
}

// NewModelStore creates a new in-memory model store.
func NewModelStore() *ModelStore {
	return &ModelStore{
		data: make(map[string]*modelstore.ModelRecord),
	}
}

// Compile-time interface check.
var _ modelstore.Store = (*ModelStore)(nil)

// Insert registers a new model. Returns ErrDuplicateKey if model_id exists.
func (s *ModelStore) Insert(_ context.Context, rec *modelstore.ModelRecord) error {
	if rec == nil || rec.Config.ModelID == "" {
		return modelstore.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.Config.ModelID]; exists {
		return modelstore.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recCopy := *rec
	if rec.Status == "" {
		recCopy.Status = domain.StatusTraining
	}
	s.data[rec.Config.ModelID] = &recCopy
	return nil
}

// GetByID retrieves a record by model_id. Returns ErrNotFound if not exists.
func (s *ModelStore) GetByID(_ context.Context, modelID string) (*modelstore.ModelRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[modelID]
	if !exists {
		return nil, modelstore.ErrNotFound
	}

	// Return a copy
	recCopy := *rec
	return &recCopy, nil
}

// ListByStatus retrieves all records in a lifecycle state, ordered by
// created_at ASC.
func (s *ModelStore) ListByStatus(_ context.Context, status domain.ModelStatus) ([]*modelstore.ModelRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*modelstore.ModelRecord
	for _, rec := range s.data {
		if rec.Status == status {
			recCopy := *rec
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Config.CreatedAt.Equal(result[j].Config.CreatedAt) {
			return result[i].Config.ModelID < result[j].Config.ModelID
		}
		return result[i].Config.CreatedAt.Before(result[j].Config.CreatedAt)
	})

	return result, nil
}

// UpdateStatus moves a model to a new lifecycle state.
func (s *ModelStore) UpdateStatus(_ context.Context, modelID string, to domain.ModelStatus) (*modelstore.ModelRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[modelID]
	if !exists {
		return nil, modelstore.ErrNotFound
	}
	if !modelstore.ValidTransition(rec.Status, to) {
		return nil, modelstore.ErrInvalidTransition
	}

	now := time.Now().UTC()
	rec.Status = to
	rec.Config.UpdatedAt = now
	if to == domain.StatusDeployed {
		deployedAt := now
		rec.Config.DeployedAt = &deployedAt
	}

	recCopy := *rec
	return &recCopy, nil
}
