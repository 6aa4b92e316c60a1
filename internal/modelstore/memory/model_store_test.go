package memory

import (
	"context"
	"errors"
	"testing"
	"time"

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
			Features:     []string{"rsi_14", "volatility_20d"},
			CreatedAt:    created,
			UpdatedAt:    created,
		},
		Status: domain.StatusTraining,
	}
}

func TestModelStore_InsertAndGet(t *testing.T) {
	s := NewModelStore()
	ctx := context.Background()

	rec := testRecord("spy-direction", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetByID(ctx, rec.Config.ModelID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Config.ModelName != "spy-direction" || got.Status != domain.StatusTraining {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestModelStore_InsertDuplicate(t *testing.T) {
	s := NewModelStore()
	ctx := context.Background()

	rec := testRecord("m", time.Now())
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, rec); !errors.Is(err, modelstore.ErrDuplicateKey) {
		t.Fatalf("got %v, want ErrDuplicateKey", err)
	}
}

func TestModelStore_GetMissing(t *testing.T) {
	s := NewModelStore()

	if _, err := s.GetByID(context.Background(), "nope"); !errors.Is(err, modelstore.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestModelStore_Lifecycle(t *testing.T) {
	s := NewModelStore()
	ctx := context.Background()

	rec := testRecord("m", time.Now())
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	id := rec.Config.ModelID

	got, err := s.UpdateStatus(ctx, id, domain.StatusValidated)
	if err != nil {
		t.Fatalf("training→validated: %v", err)
	}
	if got.Status != domain.StatusValidated {
		t.Errorf("status = %s, want VALIDATED", got.Status)
	}

	got, err = s.UpdateStatus(ctx, id, domain.StatusDeployed)
	if err != nil {
		t.Fatalf("validated→deployed: %v", err)
	}
	if got.Config.DeployedAt == nil {
		t.Error("deployed_at not stamped on deployment")
	}

	if _, err = s.UpdateStatus(ctx, id, domain.StatusRetired); err != nil {
		t.Fatalf("deployed→retired: %v", err)
	}
}

func TestModelStore_InvalidTransitions(t *testing.T) {
	s := NewModelStore()
	ctx := context.Background()

	rec := testRecord("m", time.Now())
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	id := rec.Config.ModelID

	// TRAINING may not jump straight to DEPLOYED.
	if _, err := s.UpdateStatus(ctx, id, domain.StatusDeployed); !errors.Is(err, modelstore.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}

	// Status must be unchanged after a rejected transition.
	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusTraining {
		t.Errorf("status changed to %s after a rejected transition", got.Status)
	}
}

func TestModelStore_ListByStatus(t *testing.T) {
	s := NewModelStore()
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	first := testRecord("first", base)
	second := testRecord("second", base.Add(time.Hour))
	deployed := testRecord("deployed", base)

	for _, rec := range []*modelstore.ModelRecord{second, first, deployed} {
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.UpdateStatus(ctx, deployed.Config.ModelID, domain.StatusValidated); err != nil {
		t.Fatal(err)
	}

	training, err := s.ListByStatus(ctx, domain.StatusTraining)
	if err != nil {
		t.Fatal(err)
	}
	if len(training) != 2 {
		t.Fatalf("got %d TRAINING records, want 2", len(training))
	}
	if training[0].Config.ModelName != "first" {
		t.Errorf("records not ordered by created_at: %s first", training[0].Config.ModelName)
	}

	validated, err := s.ListByStatus(ctx, domain.StatusValidated)
	if err != nil {
		t.Fatal(err)
	}
	if len(validated) != 1 {
		t.Fatalf("got %d VALIDATED records, want 1", len(validated))
	}
}

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to domain.ModelStatus
		ok       bool
	}{
		{domain.StatusTraining, domain.StatusValidated, true},
		{domain.StatusValidated, domain.StatusDeployed, true},
		{domain.StatusValidated, domain.StatusRetired, true},
		{domain.StatusDeployed, domain.StatusRetired, true},
		{domain.StatusTraining, domain.StatusDeployed, false},
		{domain.StatusDeployed, domain.StatusTraining, false},
		{domain.StatusRetired, domain.StatusDeployed, false},
		{domain.StatusValidated, domain.StatusTraining, false},
	}
	for _, tc := range cases {
		if got := modelstore.ValidTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
