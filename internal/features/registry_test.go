package features

import (
	"context"
	"testing"
	"time"
)

func constExtractor(v float64) Extractor {
	return func(context.Context, string, time.Time, *Scratch) (float64, error) {
		return v, nil
	}
}

func TestRegistry_RegisterAndHas(t *testing.T) {
	r := NewRegistry()

	if r.Has("price_momentum_5d") {
		t.Fatal("empty registry should not have any feature")
	}

	r.Register("price_momentum_5d", constExtractor(1))

	if !r.Has("price_momentum_5d") {
		t.Fatal("registered feature not found")
	}
	if r.Has("price_momentum_20d") {
		t.Fatal("unregistered feature reported present")
	}
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register("f", constExtractor(1))
	r.Register("f", constExtractor(2))

	fn, ok := r.Get("f")
	if !ok {
		t.Fatal("feature not found")
	}
	v, err := fn(context.Background(), "AAPL", time.Now(), nil)
	if err != nil {
		t.Fatalf("extractor error: %v", err)
	}
	if v != 2 {
		t.Errorf("got %v, want the later registration (2)", v)
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("c", constExtractor(0))
	r.Register("a", constExtractor(0))
	r.Register("b", constExtractor(0))

	names := r.Names()
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestNewBuiltinRegistry_CoreFeatures(t *testing.T) {
	r := NewBuiltinRegistry()

	for _, name := range []string{
		"price_momentum_5d",
		"price_momentum_20d",
		"volatility_20d",
		"rsi_14",
		"volume_ratio",
		"price_to_sma_50",
		"overnight_gap",
		"live_gap",
		"pe_ratio",
		"debt_to_equity",
		"revenue_growth_yoy",
		"treasury_10y_yield",
		"treasury_yield_spread",
		"cpi_yoy",
		"unemployment_rate",
		"fed_funds_rate",
	} {
		if !r.Has(name) {
			t.Errorf("built-in registry missing %q", name)
		}
	}
}
