package featurecache

import (
	"encoding/json"
	"time"
)

// TTLClass distinguishes finalized historical data from recent data
// that may still be revised.
type TTLClass string

const (
	// ClassHistorical marks data for closed periods (government and
	// financial statement data does not change once finalized).
	ClassHistorical TTLClass = "HISTORICAL"
	// ClassRecent marks data that may still be revised (preliminary
	// economic indicators, current-period statements).
	ClassRecent TTLClass = "RECENT"
)

// Entry is one cached observation, persisted as a value of the
// durable cache document.
type Entry struct {
	Date         string          `json:"date"` // as-of date, YYYY-MM-DD
	Data         json.RawMessage `json:"data"`
	Timestamp    int64           `json:"timestamp"` // fetch time, epoch millis
	Version      int             `json:"version"`
	IsHistorical bool            `json:"isHistorical"`
}

// Class returns the entry's TTL class.
func (e *Entry) Class() TTLClass {
	if e.IsHistorical {
		return ClassHistorical
	}
	return ClassRecent
}

// expired reports whether the entry is stale at now.
// The boundary is inclusive: age == TTL means expired.
func (e *Entry) expired(now time.Time, historicalTTL, recentTTL time.Duration) bool {
	ttl := recentTTL
	if e.IsHistorical {
		ttl = historicalTTL
	}
	age := now.Sub(time.UnixMilli(e.Timestamp))
	return age >= ttl
}

// Bucket controls cache key granularity. Coarse series (monthly or
// quarterly observations) use coarse keys so that daily as-of dates
// mapping to the same underlying observation share one entry.
type Bucket int

const (
	// BucketDay keys entries by YYYY-MM-DD.
	BucketDay Bucket = iota
	// BucketMonth keys entries by YYYY-MM.
	BucketMonth
)

// Key returns the cache key for an as-of date.
func (b Bucket) Key(asOf time.Time) string {
	if b == BucketMonth {
		return asOf.UTC().Format("2006-01")
	}
	return asOf.UTC().Format("2006-01-02")
}
