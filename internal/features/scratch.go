package features

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/featurecache"
	"quant-model-lab/internal/marketdata"
)

// barLookback is how many daily bars one extraction call fetches.
// Enough for a 50-day SMA plus warm-up; all bar-derived features
// share the single fetch.
const barLookback = 250

// Sources bundles the external data backends the built-in extractors
// read from. MacroCaches, when set, front the macro source with a
// tiered cache per series.
type Sources struct {
	Bars         marketdata.BarSource
	Quotes       marketdata.QuoteSource
	Fundamentals marketdata.FundamentalsSource
	Macro        marketdata.MacroSource

	// MacroCaches maps series identifier to its tiered cache.
	// Series without an entry hit the Macro source directly.
	MacroCaches map[string]*featurecache.TieredCache
}

// Scratch memoizes raw datasets within one extraction call, so that
// multiple features derived from the same series do not re-fetch it.
// Scoped to a single (symbol, asOf) extraction; not process-wide.
type Scratch struct {
	sources Sources
	symbol  string
	asOf    time.Time

	mu sync.Mutex

	bars    []domain.Bar
	barsErr error
	barsOK  bool

	fund    *domain.FundamentalsSnapshot
	fundErr error
	fundOK  bool

	quote    *domain.Quote
	quoteErr error
	quoteOK  bool

	macro map[string]macroResult
}

type macroResult struct {
	value float64
	err   error
}

// NewScratch creates a scratch cache for one extraction call.
func NewScratch(sources Sources, symbol string, asOf time.Time) *Scratch {
	return &Scratch{
		sources: sources,
		symbol:  symbol,
		asOf:    asOf,
		macro:   make(map[string]macroResult),
	}
}

// Bars returns the symbol's daily bars up to the as-of date, oldest
// first. Fetched once per scratch; errors are memoized too.
func (s *Scratch) Bars(ctx context.Context) ([]domain.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.barsOK {
		if s.sources.Bars == nil {
			s.barsErr = fmt.Errorf("no bar source configured")
		} else {
			s.bars, s.barsErr = s.sources.Bars.Bars(ctx, s.symbol, s.asOf, barLookback)
		}
		s.barsOK = true
	}
	return s.bars, s.barsErr
}

// Fundamentals returns the latest snapshot reported at or before the
// as-of date. Fetched once per scratch.
func (s *Scratch) Fundamentals(ctx context.Context) (*domain.FundamentalsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fundOK {
		if s.sources.Fundamentals == nil {
			s.fundErr = fmt.Errorf("no fundamentals source configured")
		} else {
			s.fund, s.fundErr = s.sources.Fundamentals.Snapshot(ctx, s.symbol, s.asOf)
		}
		s.fundOK = true
	}
	return s.fund, s.fundErr
}

// Quote returns the latest live quote for the symbol. Fetched once
// per scratch; errors are memoized. Extractors that can degrade to
// bar data treat any error here as "no live quote".
func (s *Scratch) Quote(ctx context.Context) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.quoteOK {
		if s.sources.Quotes == nil {
			s.quoteErr = fmt.Errorf("no quote source configured")
		} else {
			s.quote, s.quoteErr = s.sources.Quotes.Quote(ctx, s.symbol)
		}
		s.quoteOK = true
	}
	return s.quote, s.quoteErr
}

// Macro returns the value of a macro series at the as-of date, going
// through the series' tiered cache when one is configured.
func (s *Scratch) Macro(ctx context.Context, series string) (float64, error) {
	s.mu.Lock()
	if res, ok := s.macro[series]; ok {
		s.mu.Unlock()
		return res.value, res.err
	}
	s.mu.Unlock()

	// Fetch outside the lock: the tiered cache may retry with backoff
	// and a slow series must not block bar or fundamentals lookups.
	value, err := s.fetchMacro(ctx, series)

	s.mu.Lock()
	s.macro[series] = macroResult{value: value, err: err}
	s.mu.Unlock()

	return value, err
}

func (s *Scratch) fetchMacro(ctx context.Context, series string) (float64, error) {
	cache, ok := s.sources.MacroCaches[series]
	if !ok {
		obs, err := s.observeMacro(ctx, series, s.asOf)
		if err != nil {
			return 0, err
		}
		return obs.Value, nil
	}

	raw, err := cache.Get(ctx, s.asOf, func(ctx context.Context, asOf time.Time) (json.RawMessage, error) {
		obs, err := s.observeMacro(ctx, series, asOf)
		if err != nil {
			return nil, err
		}
		return json.Marshal(obs)
	})
	if err != nil {
		return 0, err
	}

	var obs domain.MacroObservation
	if err := json.Unmarshal(raw, &obs); err != nil {
		return 0, fmt.Errorf("decode cached %s observation: %w", series, err)
	}
	return obs.Value, nil
}

func (s *Scratch) observeMacro(ctx context.Context, series string, asOf time.Time) (*domain.MacroObservation, error) {
	if s.sources.Macro == nil {
		return nil, fmt.Errorf("no macro source configured")
	}
	return s.sources.Macro.Observation(ctx, series, asOf)
}
