package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/idhash"
	"quant-model-lab/internal/modelstore"
)

func testRecord(name string, created time.Time) *modelstore.ModelRecord {
	return &modelstore.ModelRecord{
		Config: domain.ModelConfig{
			ModelID:      idhash.ComputeModelID(name, domain.ModelTypeLightGBM, "1.0.0", created),
			ModelName:    name,
			ModelType:    domain.ModelTypeLightGBM,
			ModelVersion: "1.0.0",
			Features:     []string{"rsi_14", "volatility_20d", "price_momentum_5d"},
			Hyperparams: map[string]interface{}{
				"num_leaves":    float64(64),
				"learning_rate": 0.05,
				"n_estimators":  float64(400),
			},
			CreatedAt: created,
			UpdatedAt: created,
		},
		Metrics: domain.PerformanceMetrics{
			Accuracy:  0.62,
			Precision: 0.60,
			Recall:    0.58,
			F1Score:   0.59,
		},
		Status:           domain.StatusTraining,
		ArtifactPath:     "/models/" + name + "/model.bin",
		ArtifactChecksum: "deadbeef",
	}
}

func TestModelStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewModelStore(pool)
	ctx := context.Background()

	rec := testRecord("spy-direction", time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByID(ctx, rec.Config.ModelID)
	require.NoError(t, err)

	assert.Equal(t, rec.Config.ModelID, got.Config.ModelID)
	assert.Equal(t, rec.Config.Features, got.Config.Features)
	assert.Equal(t, rec.Config.Hyperparams, got.Config.Hyperparams)
	assert.Equal(t, rec.Metrics, got.Metrics)
	assert.Equal(t, domain.StatusTraining, got.Status)
	assert.Nil(t, got.Config.DeployedAt)

	// Duplicate insert is rejected.
	assert.ErrorIs(t, store.Insert(ctx, rec), modelstore.ErrDuplicateKey)

	// Unknown id.
	_, err = store.GetByID(ctx, "no-such-model")
	assert.ErrorIs(t, err, modelstore.ErrNotFound)
}

func TestModelStore_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewModelStore(pool)
	ctx := context.Background()

	rec := testRecord("lifecycle", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, store.Insert(ctx, rec))
	id := rec.Config.ModelID

	// TRAINING may not jump straight to DEPLOYED.
	_, err := store.UpdateStatus(ctx, id, domain.StatusDeployed)
	assert.ErrorIs(t, err, modelstore.ErrInvalidTransition)

	got, err := store.UpdateStatus(ctx, id, domain.StatusValidated)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, got.Status)

	got, err = store.UpdateStatus(ctx, id, domain.StatusDeployed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeployed, got.Status)
	require.NotNil(t, got.Config.DeployedAt)
	assert.False(t, got.Config.DeployedAt.Before(rec.Config.CreatedAt))

	got, err = store.UpdateStatus(ctx, id, domain.StatusRetired)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetired, got.Status)
}

func TestModelStore_ListByStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewModelStore(pool)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	first := testRecord("first", base)
	second := testRecord("second", base.Add(time.Hour))
	validated := testRecord("validated", base)

	for _, rec := range []*modelstore.ModelRecord{second, first, validated} {
		require.NoError(t, store.Insert(ctx, rec))
	}
	_, err := store.UpdateStatus(ctx, validated.Config.ModelID, domain.StatusValidated)
	require.NoError(t, err)

	training, err := store.ListByStatus(ctx, domain.StatusTraining)
	require.NoError(t, err)
	require.Len(t, training, 2)
	assert.Equal(t, "first", training[0].Config.ModelName)
	assert.Equal(t, "second", training[1].Config.ModelName)

	deployed, err := store.ListByStatus(ctx, domain.StatusDeployed)
	require.NoError(t, err)
	assert.Empty(t, deployed)
}
