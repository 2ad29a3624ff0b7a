// Package ingester consumes journaled ticks from Kafka and persists them to
// ClickHouse. It handles batching, retry, and graceful shutdown.
package ingester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/intraday-pulse/pulse/internal/feed"
)

// TickStorage defines the interface for persisting journaled ticks.
type TickStorage interface {
	SaveTicks(ctx context.Context, ticks []feed.TickRecord) error
}

// Config holds ingester configuration parameters.
type Config struct {
	// BatchSize is the maximum number of ticks to accumulate before flushing to DB.
	BatchSize int

	// BatchTimeout is the maximum time to wait before flushing, even if batch isn't full.
	BatchTimeout time.Duration
}

// Ingester consumes ticks from Kafka and writes them to ClickHouse in
// batches. It implements at-least-once delivery: offsets are committed only
// after successful database insertion.
type Ingester struct {
	reader  *kafka.Reader
	storage TickStorage
	logger  *slog.Logger
	cfg     Config
}

// NewIngester creates a new Ingester with the provided dependencies.
func NewIngester(reader *kafka.Reader, storage TickStorage, logger *slog.Logger, cfg Config) *Ingester {
	return &Ingester{
		reader:  reader,
		storage: storage,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start runs the ingestion loop until context is cancelled. On shutdown it
// flushes any remaining buffered ticks.
func (ig *Ingester) Start(ctx context.Context) error {
	ig.logger.Info("Starting tick ingester", "batch_size", ig.cfg.BatchSize)

	batch := make([]feed.TickRecord, 0, ig.cfg.BatchSize)
	msgs := make([]kafka.Message, 0, ig.cfg.BatchSize)

	ticker := time.NewTicker(ig.cfg.BatchTimeout)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		// Never drop data: keep retrying until the DB accepts the batch.
		for {
			if err := ig.storage.SaveTicks(ctx, batch); err != nil {
				ig.logger.Error("DB insert failed, retrying", "error", err, "count", len(batch))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(2 * time.Second):
					continue
				}
			}
			break
		}

		// Commit offsets after a successful insert (at-least-once).
		if err := ig.reader.CommitMessages(ctx, msgs...); err != nil {
			ig.logger.Warn("Failed to commit offsets", "error", err)
		}

		ig.logger.Debug("Flushed ticks", "count", len(batch))
		batch = batch[:0]
		msgs = msgs[:0]
		ticker.Reset(ig.cfg.BatchTimeout)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return flush()

		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}

		default:
			// Fetch with short timeout to remain responsive to ticker/shutdown.
			fetchCtx, cancel := context.WithTimeout(ctx, ig.cfg.BatchTimeout)
			m, err := ig.reader.FetchMessage(fetchCtx)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				ig.logger.Error("Kafka fetch error", "error", err)
				select {
				case <-ctx.Done():
					return flush()
				case <-time.After(time.Second):
				}
				continue
			}

			record, err := parseMessage(m)
			if err != nil {
				ig.logger.Debug("Parse error", "error", err)
				continue
			}

			batch = append(batch, record)
			msgs = append(msgs, m)

			if len(batch) >= ig.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}

// parseMessage deserializes and validates a journaled tick.
func parseMessage(msg kafka.Message) (feed.TickRecord, error) {
	var record feed.TickRecord
	if err := json.Unmarshal(msg.Value, &record); err != nil {
		return feed.TickRecord{}, fmt.Errorf("malformed tick record: %w", err)
	}

	if record.Symbol == "" {
		return feed.TickRecord{}, fmt.Errorf("missing symbol")
	}

	if math.IsNaN(record.Price) || math.IsInf(record.Price, 0) {
		return feed.TickRecord{}, fmt.Errorf("corrupted numeric data")
	}

	if record.Price <= 0 {
		return feed.TickRecord{}, fmt.Errorf("invalid price: %v", record.Price)
	}

	if _, err := time.Parse(time.RFC3339Nano, record.Time); err != nil {
		return feed.TickRecord{}, fmt.Errorf("invalid tick time %q", record.Time)
	}

	return record, nil
}
