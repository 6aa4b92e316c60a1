package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/modelstore"
	"quant-model-lab/internal/observability"
)

// ModelStore implements modelstore.Store using PostgreSQL.
type ModelStore struct {
	pool *Pool
}

// NewModelStore creates a new ModelStore.
func NewModelStore(pool *Pool) *ModelStore {
	return &ModelStore{pool: pool}
}

// Compile-time interface check.
var _ modelstore.Store = (*ModelStore)(nil)

const modelColumns = `
	model_id, model_name, model_type, model_version,
	features, hyperparameters, status, metrics,
	artifact_path, artifact_checksum,
	created_at, updated_at, deployed_at
`

// Insert registers a new model. Returns ErrDuplicateKey if model_id exists.
func (s *ModelStore) Insert(ctx context.Context, rec *modelstore.ModelRecord) error {
	if rec == nil || rec.Config.ModelID == "" {
		return modelstore.ErrInvalidInput
	}

	status := rec.Status
	if status == "" {
		status = domain.StatusTraining
	}

	features, err := json.Marshal(rec.Config.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	hyperparams, err := json.Marshal(rec.Config.Hyperparams)
	if err != nil {
		return fmt.Errorf("encode hyperparameters: %w", err)
	}
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	query := `
		INSERT INTO model_records (` + modelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	start := time.Now()
	_, err = s.pool.Exec(ctx, query,
		rec.Config.ModelID,
		rec.Config.ModelName,
		rec.Config.ModelType,
		rec.Config.ModelVersion,
		features,
		hyperparams,
		string(status),
		metrics,
		rec.ArtifactPath,
		rec.ArtifactChecksum,
		rec.Config.CreatedAt,
		rec.Config.UpdatedAt,
		rec.Config.DeployedAt,
	)
	observability.RecordDBQuery("postgres", "insert_model", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return modelstore.ErrDuplicateKey
		}
		return fmt.Errorf("insert model record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by model_id. Returns ErrNotFound if not exists.
func (s *ModelStore) GetByID(ctx context.Context, modelID string) (*modelstore.ModelRecord, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM model_records
		WHERE model_id = $1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, modelID)
	rec, err := scanModelRecord(row)
	observability.RecordDBQuery("postgres", "get_model", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, modelstore.ErrNotFound
		}
		return nil, fmt.Errorf("get model record by id: %w", err)
	}
	return rec, nil
}

// ListByStatus retrieves all records in a lifecycle state, ordered by
// created_at ASC.
func (s *ModelStore) ListByStatus(ctx context.Context, status domain.ModelStatus) ([]*modelstore.ModelRecord, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM model_records
		WHERE status = $1
		ORDER BY created_at ASC, model_id ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, string(status))
	observability.RecordDBQuery("postgres", "list_models", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list model records by status: %w", err)
	}
	defer rows.Close()

	var result []*modelstore.ModelRecord
	for rows.Next() {
		rec, err := scanModelRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model records: %w", err)
	}
	return result, nil
}

// UpdateStatus moves a model to a new lifecycle state. The read and
// write run in one transaction with the row locked, so concurrent
// promotions of the same model serialize.
func (s *ModelStore) UpdateStatus(ctx context.Context, modelID string, to domain.ModelStatus) (*modelstore.ModelRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT status FROM model_records WHERE model_id = $1 FOR UPDATE`,
		modelID,
	).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return nil, modelstore.ErrNotFound
		}
		return nil, fmt.Errorf("lock model record: %w", err)
	}

	if !modelstore.ValidTransition(domain.ModelStatus(current), to) {
		return nil, fmt.Errorf("%w: %s → %s", modelstore.ErrInvalidTransition, current, to)
	}

	now := time.Now().UTC()
	if to == domain.StatusDeployed {
		_, err = tx.Exec(ctx,
			`UPDATE model_records SET status = $1, updated_at = $2, deployed_at = $2 WHERE model_id = $3`,
			string(to), now, modelID)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE model_records SET status = $1, updated_at = $2 WHERE model_id = $3`,
			string(to), now, modelID)
	}
	if err != nil {
		return nil, fmt.Errorf("update model status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}

	return s.GetByID(ctx, modelID)
}

// scanModelRecord scans a single row in modelColumns order.
func scanModelRecord(row pgx.Row) (*modelstore.ModelRecord, error) {
	var rec modelstore.ModelRecord
	var features, hyperparams, metrics []byte
	var status string
	var deployedAt *time.Time

	err := row.Scan(
		&rec.Config.ModelID,
		&rec.Config.ModelName,
		&rec.Config.ModelType,
		&rec.Config.ModelVersion,
		&features,
		&hyperparams,
		&status,
		&metrics,
		&rec.ArtifactPath,
		&rec.ArtifactChecksum,
		&rec.Config.CreatedAt,
		&rec.Config.UpdatedAt,
		&deployedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(features, &rec.Config.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if err := json.Unmarshal(hyperparams, &rec.Config.Hyperparams); err != nil {
		return nil, fmt.Errorf("decode hyperparameters: %w", err)
	}
	if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}

	rec.Status = domain.ModelStatus(status)
	rec.Config.DeployedAt = deployedAt
	return &rec, nil
}
