package domain

import "time"

// Bar is one daily OHLCV observation for a symbol.
// Corresponds to ohlcv_bars table in ClickHouse.
type Bar struct {
	Symbol   string    // ticker symbol
	Date     time.Time // session date (UTC midnight)
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	AdjClose float64 // split/dividend adjusted close
}

// Quote is a point-in-time price quote for a symbol.
type Quote struct {
	Symbol    string
	Last      float64
	Bid       float64
	Ask       float64
	Timestamp time.Time
}

// FundamentalsSnapshot holds financial-statement ratios as reported
// at or before a given as-of date. Values for closed periods do not
// change once filed.
type FundamentalsSnapshot struct {
	Symbol           string
	PeriodEnd        time.Time // fiscal period this snapshot covers
	ReportedAt       time.Time // filing date; must be <= as-of date
	EPS              float64
	PERatio          float64
	PBRatio          float64
	DebtToEquity     float64
	RevenueGrowthYoY float64
}

// MacroObservation is one observation of a macroeconomic series
// (treasury yields, CPI, unemployment, fed funds rate).
// Most series are monthly; daily as-of dates within the same month
// map to the same observation.
type MacroObservation struct {
	Series string    // series identifier, e.g. "DGS10", "CPIAUCSL"
	Date   time.Time // observation date
	Value  float64
}
