// Package storage provides ClickHouse persistence for market and
// option-chain snapshots.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/intraday-pulse/pulse/internal/feed"
	"github.com/intraday-pulse/pulse/internal/market"
	"github.com/intraday-pulse/pulse/internal/optionchain"
)

// Storage defines the write-side persistence interface. Reads go through the
// server repository. Implementations must be safe for concurrent use.
type Storage interface {
	// SaveSnapshot inserts one periodic market snapshot.
	SaveSnapshot(ctx context.Context, snap market.Snapshot) error

	// SaveChainSnapshot inserts one option-chain snapshot with its full
	// strike ladder serialized alongside the headline metrics.
	SaveChainSnapshot(ctx context.Context, snap *optionchain.Snapshot) error

	// SaveTicks inserts a batch of journaled ticks.
	SaveTicks(ctx context.Context, ticks []feed.TickRecord) error

	// PruneChainSnapshots deletes option-chain snapshots older than cutoff.
	PruneChainSnapshots(ctx context.Context, cutoff time.Time) error

	// Close releases database connection resources.
	Close() error
}

// clickhouseStorage implements Storage using the native ClickHouse driver.
// Batch inserts keep the ingestion path fast even for single rows.
type clickhouseStorage struct {
	conn driver.Conn
}

// NewClickHouseStorage creates a new ClickHouse storage connection.
// It parses the DSN, opens a connection, and verifies connectivity with a ping.
// Returns an error if connection cannot be established within 5 seconds.
func NewClickHouseStorage(dsn string) (Storage, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return &clickhouseStorage{conn: conn}, nil
}

// SaveSnapshot inserts one market snapshot row.
func (s *clickhouseStorage) SaveSnapshot(ctx context.Context, snap market.Snapshot) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_snapshot (
			symbol, price,
			open, high, low, close, volume,
			futures_oi, interval_minutes, market_open,
			snapshot_time, inserted_at
		)
	`)
	if err != nil {
		return err
	}

	err = batch.Append(
		snap.Symbol,
		snap.Price,
		snap.OHLC.Open,
		snap.OHLC.High,
		snap.OHLC.Low,
		snap.OHLC.Close,
		snap.OHLC.Volume,
		snap.FuturesOI,
		int32(snap.IntervalMinutes),
		snap.MarketOpen,
		snap.Timestamp,
		time.Now(),
	)
	if err != nil {
		return err
	}

	return batch.Send()
}

// SaveChainSnapshot inserts one option-chain snapshot row. The strike ladder
// is stored as a JSON string so historical ladders replay without schema
// churn when leg fields change.
func (s *clickhouseStorage) SaveChainSnapshot(ctx context.Context, snap *optionchain.Snapshot) error {
	strikes, err := json.Marshal(snap.Strikes)
	if err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO option_chain_snapshot (
			symbol, spot_price, atm_strike, expiry,
			pcr, pcr_interpretation, max_pain_strike,
			net_call_oi_change, net_put_oi_change,
			oi_trend, sentiment, source, strikes,
			snapshot_time, inserted_at
		)
	`)
	if err != nil {
		return err
	}

	err = batch.Append(
		snap.Symbol,
		snap.SpotPrice,
		snap.ATMStrike,
		snap.Expiry,
		snap.PCR,
		snap.PCRInterpretation,
		snap.MaxPainStrike,
		snap.NetCallOIChange,
		snap.NetPutOIChange,
		snap.OITrend,
		snap.Sentiment,
		snap.Source,
		string(strikes),
		snap.Timestamp,
		time.Now(),
	)
	if err != nil {
		return err
	}

	return batch.Send()
}

// SaveTicks inserts journaled ticks using ClickHouse batch insert.
// All ticks in the batch share the same inserted_at timestamp.
func (s *clickhouseStorage) SaveTicks(ctx context.Context, ticks []feed.TickRecord) error {
	if len(ticks) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tick (
			symbol, price,
			open, high, low, volume,
			event_time, inserted_at
		)
	`)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, t := range ticks {
		eventTime, err := time.Parse(time.RFC3339Nano, t.Time)
		if err != nil {
			eventTime = now
		}
		err = batch.Append(
			t.Symbol,
			t.Price,
			t.Open,
			t.High,
			t.Low,
			t.Volume,
			eventTime,
			now,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// PruneChainSnapshots drops option-chain rows older than cutoff. ClickHouse
// mutations run async; the rows disappear shortly after, which is fine for
// retention cleanup.
func (s *clickhouseStorage) PruneChainSnapshots(ctx context.Context, cutoff time.Time) error {
	return s.conn.Exec(ctx,
		`ALTER TABLE option_chain_snapshot DELETE WHERE snapshot_time < ?`, cutoff)
}

// Close closes the ClickHouse connection.
func (s *clickhouseStorage) Close() error {
	return s.conn.Close()
}
