package assembler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/features"
)

func constExtractor(v float64) features.Extractor {
	return func(context.Context, string, time.Time, *features.Scratch) (float64, error) {
		return v, nil
	}
}

func failingExtractor(err error) features.Extractor {
	return func(context.Context, string, time.Time, *features.Scratch) (float64, error) {
		return 0, err
	}
}

func metadata(names ...string) *domain.ModelMetadata {
	return &domain.ModelMetadata{
		ModelVersion: "v1",
		Features:     names,
		NumFeatures:  len(names),
	}
}

func TestExtractForModel_OrderAndValues(t *testing.T) {
	r := features.NewRegistry()
	r.Register("a", constExtractor(1.5))
	r.Register("b", constExtractor(-2))
	r.Register("c", constExtractor(7))

	a := New(Options{Registry: r})

	vec, err := a.ExtractForModel(context.Background(), metadata("c", "a", "b"), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := []float64{7, 1.5, -2}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestExtractForModel_MissingFeatureYieldsZero(t *testing.T) {
	r := features.NewRegistry()
	r.Register("a", constExtractor(3))
	r.Register("c", constExtractor(9))

	a := New(Options{Registry: r})

	vec, err := a.ExtractForModel(context.Background(), metadata("a", "b", "c"), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := []float64{3, 0, 9}
	if len(vec) != 3 {
		t.Fatalf("vector length %d, want 3", len(vec))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestExtractForModel_FailingExtractorYieldsZero(t *testing.T) {
	r := features.NewRegistry()
	r.Register("good", constExtractor(4))
	r.Register("bad", failingExtractor(errors.New("upstream down")))

	a := New(Options{Registry: r})

	vec, err := a.ExtractForModel(context.Background(), metadata("bad", "good"), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if vec[0] != 0 {
		t.Errorf("failed extractor produced %v, want 0", vec[0])
	}
	if vec[1] != 4 {
		t.Errorf("healthy extractor produced %v, want 4", vec[1])
	}
}

func TestExtractForModel_AllExtractorsFail(t *testing.T) {
	r := features.NewRegistry()
	r.Register("x", failingExtractor(errors.New("boom")))
	r.Register("y", failingExtractor(errors.New("boom")))

	a := New(Options{Registry: r})

	vec, err := a.ExtractForModel(context.Background(), metadata("x", "y"), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("vector length %d, want 2", len(vec))
	}
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %v, want 0", i, v)
		}
	}
}

func TestExtractForModel_SlowExtractorTimesOut(t *testing.T) {
	r := features.NewRegistry()
	r.Register("slow", func(ctx context.Context, _ string, _ time.Time, _ *features.Scratch) (float64, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 42, nil
		}
	})
	r.Register("fast", constExtractor(1))

	a := New(Options{Registry: r, ExtractorTimeout: 50 * time.Millisecond})

	start := time.Now()
	vec, err := a.ExtractForModel(context.Background(), metadata("slow", "fast"), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("extraction took %v, slow extractor blocked the call", elapsed)
	}
	if vec[0] != 0 {
		t.Errorf("timed-out extractor produced %v, want 0", vec[0])
	}
	if vec[1] != 1 {
		t.Errorf("fast extractor produced %v, want 1", vec[1])
	}
}

func TestExtractForModel_WorkerPoolBounded(t *testing.T) {
	var current, peak atomic.Int64

	tracking := func(context.Context, string, time.Time, *features.Scratch) (float64, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return 1, nil
	}

	r := features.NewRegistry()
	names := make([]string, 0, 10)
	for _, n := range []string{"f0", "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9"} {
		r.Register(n, tracking)
		names = append(names, n)
	}

	a := New(Options{Registry: r, MaxWorkers: 2})

	if _, err := a.ExtractForModel(context.Background(), metadata(names...), "AAPL", time.Now()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency %d, want <= 2", p)
	}
}

func TestExtractForModel_ShapeMismatch(t *testing.T) {
	a := New(Options{Registry: features.NewRegistry()})

	meta := &domain.ModelMetadata{
		ModelVersion: "v1",
		Features:     []string{"a", "b"},
		NumFeatures:  3,
	}
	if _, err := a.ExtractForModel(context.Background(), meta, "AAPL", time.Now()); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("got %v, want ErrShapeMismatch", err)
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	doc := `{"model_version":"v3","features":["a","b","c"],"num_features":3}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	meta, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.ModelVersion != "v3" || meta.NumFeatures != 3 || len(meta.Features) != 3 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestLoadMetadata_ShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	doc := `{"model_version":"v3","features":["a","b"],"num_features":5}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadMetadata(path); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("got %v, want ErrShapeMismatch", err)
	}
}

func TestLoadMetadata_MissingFile(t *testing.T) {
	if _, err := LoadMetadata(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing metadata file")
	}
}
