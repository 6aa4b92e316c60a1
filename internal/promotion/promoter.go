// Package promotion drives models through the lifecycle: register in
// TRAINING, validate through the deployment gate into VALIDATED, then
// explicitly deploy. A failed gate leaves the model in TRAINING; the
// caller re-trains or re-registers, the gate is never auto-retried.
package promotion

import (
	"context"
	"fmt"
	"log"

	"quant-model-lab/internal/deploygate"
	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/modelstore"
)

// Promoter runs promotion attempts against one gate and one store.
type Promoter struct {
	gate  *deploygate.Gate
	store modelstore.Store
}

// NewPromoter creates a Promoter.
func NewPromoter(gate *deploygate.Gate, store modelstore.Store) *Promoter {
	return &Promoter{gate: gate, store: store}
}

// Register adds a freshly trained model in TRAINING state.
func (p *Promoter) Register(ctx context.Context, rec *modelstore.ModelRecord) error {
	if rec.Status == "" {
		rec.Status = domain.StatusTraining
	}
	if rec.Status != domain.StatusTraining {
		return fmt.Errorf("%w: new models register in TRAINING, got %s",
			modelstore.ErrInvalidInput, rec.Status)
	}
	return p.store.Insert(ctx, rec)
}

// ValidateArgs carries the serving-side inputs of a gate run that are
// not part of the stored record.
type ValidateArgs struct {
	// ProvidedFeatures is the feature set the serving layer can supply.
	ProvidedFeatures []string
	// Load is the serving layer's "load model" callback.
	Load deploygate.LoadFunc
}

// Validate runs the deployment gate for a registered model. On a pass
// the model moves TRAINING → VALIDATED; on a fail it stays in TRAINING.
// The decision is returned either way so the operator sees every
// failing and warning check in one pass.
func (p *Promoter) Validate(ctx context.Context, modelID string, args ValidateArgs) (*deploygate.Decision, error) {
	rec, err := p.store.GetByID(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelID, err)
	}
	if rec.Status != domain.StatusTraining {
		return nil, fmt.Errorf("%w: model %s is %s, gate runs on TRAINING models",
			modelstore.ErrInvalidTransition, modelID, rec.Status)
	}

	decision := p.gate.ValidateForDeployment(ctx, deploygate.Input{
		Config:           rec.Config,
		Metrics:          rec.Metrics,
		ArtifactPath:     rec.ArtifactPath,
		ExpectedChecksum: rec.ArtifactChecksum,
		ProvidedFeatures: args.ProvidedFeatures,
		Load:             args.Load,
	})

	if !decision.Valid {
		log.Printf("[promotion] model %s rejected by gate: %d errors, %d warnings",
			modelID, len(decision.Errors), len(decision.Warnings))
		return decision, nil
	}

	if _, err := p.store.UpdateStatus(ctx, modelID, domain.StatusValidated); err != nil {
		return decision, fmt.Errorf("promote model %s to VALIDATED: %w", modelID, err)
	}
	log.Printf("[promotion] model %s validated (%d warnings)", modelID, len(decision.Warnings))
	return decision, nil
}

// Deploy moves a VALIDATED model to DEPLOYED.
func (p *Promoter) Deploy(ctx context.Context, modelID string) (*modelstore.ModelRecord, error) {
	rec, err := p.store.UpdateStatus(ctx, modelID, domain.StatusDeployed)
	if err != nil {
		return nil, fmt.Errorf("deploy model %s: %w", modelID, err)
	}
	log.Printf("[promotion] model %s deployed", modelID)
	return rec, nil
}

// Retire moves a VALIDATED or DEPLOYED model to RETIRED.
func (p *Promoter) Retire(ctx context.Context, modelID string) (*modelstore.ModelRecord, error) {
	rec, err := p.store.UpdateStatus(ctx, modelID, domain.StatusRetired)
	if err != nil {
		return nil, fmt.Errorf("retire model %s: %w", modelID, err)
	}
	log.Printf("[promotion] model %s retired", modelID)
	return rec, nil
}
