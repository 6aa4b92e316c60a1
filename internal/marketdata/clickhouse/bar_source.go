package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/marketdata"
	"quant-model-lab/internal/observability"
)

// BarSource implements marketdata.BarSource using ClickHouse.
// Backed by the ohlcv_bars table (sql/clickhouse).
type BarSource struct {
	conn *Conn
}

// NewBarSource creates a new BarSource.
func NewBarSource(conn *Conn) *BarSource {
	return &BarSource{conn: conn}
}

// Compile-time interface check.
var _ marketdata.BarSource = (*BarSource)(nil)

// Bars returns up to lookback daily bars with date <= asOf, ordered ASC.
func (s *BarSource) Bars(ctx context.Context, symbol string, asOf time.Time, lookback int) ([]domain.Bar, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume, adj_close
		FROM ohlcv_bars
		WHERE symbol = ? AND date <= ?
		ORDER BY date DESC
		LIMIT ?
	`
	if lookback <= 0 {
		lookback = 250 // roughly one trading year
	}

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, symbol, asOf.UTC(), uint64(lookback))
	observability.RecordDBQuery("clickhouse", "bars", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, marketdata.ErrNoData
	}

	// Query is newest-first for the LIMIT; callers get oldest-first.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// InsertBulk adds multiple bars in one batch. Used by ingestion tooling.
func (s *BarSource) InsertBulk(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ohlcv_bars (
			symbol, date, open, high, low, close, volume, adj_close
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.Date.UTC(), b.Open, b.High,
			b.Low, b.Close, b.Volume, b.AdjClose,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// scanBars scans multiple rows.
func scanBars(rows driver.Rows) ([]domain.Bar, error) {
	var bars []domain.Bar

	for rows.Next() {
		var b domain.Bar
		var date time.Time

		err := rows.Scan(
			&b.Symbol, &date, &b.Open, &b.High,
			&b.Low, &b.Close, &b.Volume, &b.AdjClose,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.Date = date.UTC()
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
