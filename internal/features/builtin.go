package features

import (
	"context"
	"fmt"
	"math"
	"time"

	"quant-model-lab/internal/domain"
)

// Macro series identifiers (FRED naming).
const (
	SeriesTreasury10Y  = "DGS10"
	SeriesTreasury2Y   = "DGS2"
	SeriesCPI          = "CPIAUCSL"
	SeriesUnemployment = "UNRATE"
	SeriesFedFunds     = "FEDFUNDS"
)

// NewBuiltinRegistry creates a registry populated with the built-in
// feature set. Extractors read their data through the per-call
// Scratch, which carries the configured sources.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()

	// Price/volume features over the daily bar series.
	r.Register("price_momentum_5d", momentumExtractor(5))
	r.Register("price_momentum_20d", momentumExtractor(20))
	r.Register("volatility_20d", volatilityExtractor(20))
	r.Register("rsi_14", rsiExtractor(14))
	r.Register("volume_ratio", volumeRatioExtractor(20))
	r.Register("price_to_sma_50", priceToSMAExtractor(50))
	r.Register("overnight_gap", overnightGapExtractor())
	r.Register("live_gap", liveGapExtractor())

	// Fundamentals.
	r.Register("pe_ratio", fundamentalExtractor(func(f *domain.FundamentalsSnapshot) float64 {
		return f.PERatio
	}))
	r.Register("pb_ratio", fundamentalExtractor(func(f *domain.FundamentalsSnapshot) float64 {
		return f.PBRatio
	}))
	r.Register("debt_to_equity", fundamentalExtractor(func(f *domain.FundamentalsSnapshot) float64 {
		return f.DebtToEquity
	}))
	r.Register("revenue_growth_yoy", fundamentalExtractor(func(f *domain.FundamentalsSnapshot) float64 {
		return f.RevenueGrowthYoY
	}))

	// Macro series. Symbol-independent; served through the per-series
	// tiered caches when configured.
	r.Register("treasury_10y_yield", macroExtractor(SeriesTreasury10Y))
	r.Register("treasury_yield_spread", yieldSpreadExtractor())
	r.Register("cpi_yoy", macroExtractor(SeriesCPI))
	r.Register("unemployment_rate", macroExtractor(SeriesUnemployment))
	r.Register("fed_funds_rate", macroExtractor(SeriesFedFunds))

	return r
}

// momentumExtractor returns close[t]/close[t-n] - 1.
func momentumExtractor(n int) Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		bars, err := scratch.Bars(ctx)
		if err != nil {
			return 0, err
		}
		if len(bars) < n+1 {
			return 0, fmt.Errorf("need %d bars, have %d", n+1, len(bars))
		}
		last := bars[len(bars)-1].AdjClose
		prev := bars[len(bars)-1-n].AdjClose
		if prev == 0 {
			return 0, fmt.Errorf("zero reference close %d bars back", n)
		}
		return last/prev - 1, nil
	}
}

// volatilityExtractor returns the annualized standard deviation of
// daily log returns over the last n sessions.
func volatilityExtractor(n int) Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		bars, err := scratch.Bars(ctx)
		if err != nil {
			return 0, err
		}
		if len(bars) < n+1 {
			return 0, fmt.Errorf("need %d bars, have %d", n+1, len(bars))
		}

		window := bars[len(bars)-1-n:]
		returns := make([]float64, 0, n)
		for i := 1; i < len(window); i++ {
			if window[i-1].AdjClose <= 0 || window[i].AdjClose <= 0 {
				return 0, fmt.Errorf("non-positive close in volatility window")
			}
			returns = append(returns, math.Log(window[i].AdjClose/window[i-1].AdjClose))
		}

		return stddev(returns) * math.Sqrt(252), nil
	}
}

// rsiExtractor returns Wilder's RSI over the given period, in [0, 100].
func rsiExtractor(period int) Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		bars, err := scratch.Bars(ctx)
		if err != nil {
			return 0, err
		}
		if len(bars) < period+1 {
			return 0, fmt.Errorf("need %d bars, have %d", period+1, len(bars))
		}

		window := bars[len(bars)-1-period:]
		var gains, losses float64
		for i := 1; i < len(window); i++ {
			change := window[i].AdjClose - window[i-1].AdjClose
			if change > 0 {
				gains += change
			} else {
				losses -= change
			}
		}

		if losses == 0 {
			return 100, nil
		}
		rs := gains / losses
		return 100 - 100/(1+rs), nil
	}
}

// volumeRatioExtractor returns the last session's volume relative to
// the n-session average.
func volumeRatioExtractor(n int) Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		bars, err := scratch.Bars(ctx)
		if err != nil {
			return 0, err
		}
		if len(bars) < n {
			return 0, fmt.Errorf("need %d bars, have %d", n, len(bars))
		}

		window := bars[len(bars)-n:]
		var sum float64
		for _, b := range window {
			sum += b.Volume
		}
		avg := sum / float64(n)
		if avg == 0 {
			return 0, fmt.Errorf("zero average volume over %d sessions", n)
		}
		return bars[len(bars)-1].Volume / avg, nil
	}
}

// priceToSMAExtractor returns close relative to the n-session simple
// moving average, minus one.
func priceToSMAExtractor(n int) Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		bars, err := scratch.Bars(ctx)
		if err != nil {
			return 0, err
		}
		if len(bars) < n {
			return 0, fmt.Errorf("need %d bars, have %d", n, len(bars))
		}

		window := bars[len(bars)-n:]
		var sum float64
		for _, b := range window {
			sum += b.AdjClose
		}
		sma := sum / float64(n)
		if sma == 0 {
			return 0, fmt.Errorf("zero %d-session SMA", n)
		}
		return bars[len(bars)-1].AdjClose/sma - 1, nil
	}
}

// overnightGapExtractor returns the last session's open relative to
// the prior session's close, minus one.
func overnightGapExtractor() Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		bars, err := scratch.Bars(ctx)
		if err != nil {
			return 0, err
		}
		if len(bars) < 2 {
			return 0, fmt.Errorf("need 2 bars, have %d", len(bars))
		}
		prevClose := bars[len(bars)-2].Close
		if prevClose == 0 {
			return 0, fmt.Errorf("zero prior close")
		}
		return bars[len(bars)-1].Open/prevClose - 1, nil
	}
}

// liveGapExtractor returns the latest quoted price relative to the
// most recent session close, minus one. Without a live quote (no
// quote source configured, or nothing streamed yet for the symbol)
// it degrades to the bar-based overnight gap.
func liveGapExtractor() Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		bars, err := scratch.Bars(ctx)
		if err != nil {
			return 0, err
		}
		if len(bars) < 2 {
			return 0, fmt.Errorf("need 2 bars, have %d", len(bars))
		}

		q, err := scratch.Quote(ctx)
		if err != nil || q.Last <= 0 {
			prevClose := bars[len(bars)-2].Close
			if prevClose == 0 {
				return 0, fmt.Errorf("zero prior close")
			}
			return bars[len(bars)-1].Open/prevClose - 1, nil
		}

		prevClose := bars[len(bars)-1].Close
		if prevClose == 0 {
			return 0, fmt.Errorf("zero prior close")
		}
		return q.Last/prevClose - 1, nil
	}
}

// fundamentalExtractor reads one field off the latest snapshot.
func fundamentalExtractor(field func(*domain.FundamentalsSnapshot) float64) Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		snap, err := scratch.Fundamentals(ctx)
		if err != nil {
			return 0, err
		}
		return field(snap), nil
	}
}

// macroExtractor reads the value of one macro series at the as-of date.
func macroExtractor(series string) Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		return scratch.Macro(ctx, series)
	}
}

// yieldSpreadExtractor returns the 10Y minus 2Y treasury yield spread.
func yieldSpreadExtractor() Extractor {
	return func(ctx context.Context, _ string, _ time.Time, scratch *Scratch) (float64, error) {
		tenYear, err := scratch.Macro(ctx, SeriesTreasury10Y)
		if err != nil {
			return 0, err
		}
		twoYear, err := scratch.Macro(ctx, SeriesTreasury2Y)
		if err != nil {
			return 0, err
		}
		return tenYear - twoYear, nil
	}
}

// stddev returns the sample standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}
