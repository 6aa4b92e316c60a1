// Package stub provides fixed in-memory data sources for tests and
// local runs.
package stub

import (
	"context"
	"math"
	"time"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/marketdata"
)

// BarSource returns fixed in-memory bars.
// Implements marketdata.BarSource.
type BarSource struct {
	bars map[string][]domain.Bar // keyed by symbol, ordered by date ASC
}

// NewBarSource creates a stub bar source with the given bars.
// Bars must be provided in date-ascending order per symbol.
func NewBarSource(bars []domain.Bar) *BarSource {
	m := make(map[string][]domain.Bar)
	for _, b := range bars {
		m[b.Symbol] = append(m[b.Symbol], b)
	}
	return &BarSource{bars: m}
}

// Compile-time interface check.
var _ marketdata.BarSource = (*BarSource)(nil)

// Bars returns up to lookback bars with Date <= asOf, ordered ASC.
func (s *BarSource) Bars(_ context.Context, symbol string, asOf time.Time, lookback int) ([]domain.Bar, error) {
	all, ok := s.bars[symbol]
	if !ok {
		return nil, marketdata.ErrUnknownSymbol
	}

	var eligible []domain.Bar
	for _, b := range all {
		if !b.Date.After(asOf) {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		return nil, marketdata.ErrNoData
	}
	if lookback > 0 && len(eligible) > lookback {
		eligible = eligible[len(eligible)-lookback:]
	}

	out := make([]domain.Bar, len(eligible))
	copy(out, eligible)
	return out, nil
}

// QuoteSource returns fixed quotes. Implements marketdata.QuoteSource.
type QuoteSource struct {
	quotes map[string]domain.Quote
}

// NewQuoteSource creates a stub quote source.
func NewQuoteSource(quotes []domain.Quote) *QuoteSource {
	m := make(map[string]domain.Quote)
	for _, q := range quotes {
		m[q.Symbol] = q
	}
	return &QuoteSource{quotes: m}
}

// Compile-time interface check.
var _ marketdata.QuoteSource = (*QuoteSource)(nil)

// Quote returns the quote for symbol.
func (s *QuoteSource) Quote(_ context.Context, symbol string) (*domain.Quote, error) {
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	quoteCopy := q
	return &quoteCopy, nil
}

// FundamentalsSource returns fixed snapshots.
// Implements marketdata.FundamentalsSource.
type FundamentalsSource struct {
	snapshots map[string][]domain.FundamentalsSnapshot // ordered by ReportedAt ASC
}

// NewFundamentalsSource creates a stub fundamentals source.
// Snapshots must be provided in ReportedAt-ascending order per symbol.
func NewFundamentalsSource(snapshots []domain.FundamentalsSnapshot) *FundamentalsSource {
	m := make(map[string][]domain.FundamentalsSnapshot)
	for _, snap := range snapshots {
		m[snap.Symbol] = append(m[snap.Symbol], snap)
	}
	return &FundamentalsSource{snapshots: m}
}

// Compile-time interface check.
var _ marketdata.FundamentalsSource = (*FundamentalsSource)(nil)

// Snapshot returns the latest snapshot reported at or before asOf.
func (s *FundamentalsSource) Snapshot(_ context.Context, symbol string, asOf time.Time) (*domain.FundamentalsSnapshot, error) {
	all, ok := s.snapshots[symbol]
	if !ok {
		return nil, marketdata.ErrUnknownSymbol
	}
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].ReportedAt.After(asOf) {
			snapCopy := all[i]
			return &snapCopy, nil
		}
	}
	return nil, marketdata.ErrNoData
}

// MacroSource returns fixed macro observations.
// Implements marketdata.MacroSource.
type MacroSource struct {
	series map[string][]domain.MacroObservation // ordered by Date ASC
}

// NewMacroSource creates a stub macro source.
// Observations must be provided in date-ascending order per series.
func NewMacroSource(obs []domain.MacroObservation) *MacroSource {
	m := make(map[string][]domain.MacroObservation)
	for _, o := range obs {
		m[o.Series] = append(m[o.Series], o)
	}
	return &MacroSource{series: m}
}

// Compile-time interface check.
var _ marketdata.MacroSource = (*MacroSource)(nil)

// Observation returns the latest observation at or before asOf.
func (s *MacroSource) Observation(_ context.Context, series string, asOf time.Time) (*domain.MacroObservation, error) {
	all, ok := s.series[series]
	if !ok {
		return nil, marketdata.ErrUnknownSeries
	}
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].Date.After(asOf) {
			obsCopy := all[i]
			return &obsCopy, nil
		}
	}
	return nil, marketdata.ErrNoData
}

// GenerateBars produces a deterministic synthetic daily bar series for
// a symbol, ending at end (inclusive). Useful for local runs without a
// market data backend.
func GenerateBars(symbol string, end time.Time, days int) []domain.Bar {
	seed := float64(0)
	for _, r := range symbol {
		seed += float64(r)
	}

	bars := make([]domain.Bar, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := end.AddDate(0, 0, -i)
		t := float64(days - 1 - i)
		base := 100 + math.Mod(seed, 50)
		price := base * (1 + 0.001*t + 0.02*math.Sin(t/5+seed))
		bars = append(bars, domain.Bar{
			Symbol:   symbol,
			Date:     date,
			Open:     price * 0.995,
			High:     price * 1.01,
			Low:      price * 0.99,
			Close:    price,
			AdjClose: price,
			Volume:   1e6 * (1 + 0.3*math.Sin(t/3+seed)),
		})
	}
	return bars
}
