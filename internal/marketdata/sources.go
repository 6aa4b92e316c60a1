// Package marketdata defines the data-source interfaces the feature
// layer consumes. Concrete provider clients live outside the core;
// this package supplies the contracts plus stub, ClickHouse and
// websocket-backed implementations.
package marketdata

import (
	"context"
	"errors"
	"time"

	"quant-model-lab/internal/domain"
)

// Errors returned by data sources.
var (
	ErrNoData        = errors.New("no data available")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrUnknownSeries = errors.New("unknown macro series")
)

// BarSource provides daily OHLCV history.
type BarSource interface {
	// Bars returns up to lookback daily bars for symbol with
	// Date <= asOf, ordered by date ASC. Bars after asOf are never
	// returned (no lookahead).
	Bars(ctx context.Context, symbol string, asOf time.Time, lookback int) ([]domain.Bar, error)
}

// QuoteSource provides the most recent quote for a symbol.
type QuoteSource interface {
	// Quote returns the latest known quote. Returns ErrNoData if no
	// quote has been observed for the symbol.
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// FundamentalsSource provides financial-statement snapshots.
type FundamentalsSource interface {
	// Snapshot returns the latest snapshot with ReportedAt <= asOf.
	// Returns ErrNoData if nothing was filed by then.
	Snapshot(ctx context.Context, symbol string, asOf time.Time) (*domain.FundamentalsSnapshot, error)
}

// MacroSource provides macroeconomic series observations.
type MacroSource interface {
	// Observation returns the latest observation of series with
	// Date <= asOf. Returns ErrNoData if the series has no
	// observation by then.
	Observation(ctx context.Context, series string, asOf time.Time) (*domain.MacroObservation, error)
}
