// Package scheduler owns the periodic tasks of the pipeline: market
// snapshotting, session monitoring, and option-chain fetching. Every task
// supports cooperative stop through its context; an in-flight cycle is
// allowed to finish.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intraday-pulse/pulse/internal/market"
)

// SnapshotStore persists market snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap market.Snapshot) error
}

// SnapshotScheduler persists a MarketSnapshot per tracked symbol at a fixed
// cadence while the session is open.
type SnapshotScheduler struct {
	session  *market.Session
	store    *market.PriceStore
	writer   SnapshotStore
	symbols  []string
	interval time.Duration
	// initialDelay avoids snapshotting before the first tick arrives.
	initialDelay time.Duration
	logger       *logrus.Logger
	now          func() time.Time
}

// NewSnapshotScheduler creates a snapshot scheduler.
func NewSnapshotScheduler(session *market.Session, store *market.PriceStore, writer SnapshotStore,
	symbols []string, interval time.Duration, logger *logrus.Logger) *SnapshotScheduler {

	return &SnapshotScheduler{
		session:      session,
		store:        store,
		writer:       writer,
		symbols:      symbols,
		interval:     interval,
		initialDelay: time.Minute,
		logger:       logger,
		now:          time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (s *SnapshotScheduler) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.initialDelay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle persists one snapshot per symbol with a present cache entry.
// A failure for one symbol is logged and does not block the others.
func (s *SnapshotScheduler) cycle(ctx context.Context) {
	now := s.now()
	if !s.session.IsOpen(now) {
		return
	}

	s.logger.Info("Saving market snapshots...")

	for _, symbol := range s.symbols {
		entry, ok := s.store.Get(symbol)
		if !ok {
			continue
		}

		snap := market.Snapshot{
			Symbol:          symbol,
			Timestamp:       now,
			Price:           entry.Price,
			OHLC:            entry.OHLC,
			FuturesOI:       0,
			IntervalMinutes: int(s.interval / time.Minute),
			MarketOpen:      true,
			CreatedAt:       now,
		}

		if err := s.writer.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Errorf("Error saving snapshot for %s: %v", symbol, err)
			continue
		}
		s.logger.Infof("Saved snapshot for %s at %v", symbol, snap.Timestamp)
	}
}
