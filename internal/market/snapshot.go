package market

import "time"

// Snapshot is an immutable durable record of a symbol's state at a point in
// time, created at a fixed cadence while the session is open and never
// mutated afterwards.
type Snapshot struct {
	Symbol          string    `json:"symbol"`
	Timestamp       time.Time `json:"timestamp"`
	Price           float64   `json:"price"`
	OHLC            OHLC      `json:"ohlc1m"`
	FuturesOI       int64     `json:"futuresOi"`
	IntervalMinutes int       `json:"snapshotIntervalMinutes"`
	MarketOpen      bool      `json:"isMarketOpen"`
	CreatedAt       time.Time `json:"createdAt"`
}
