package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intraday-pulse/pulse/internal/market"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func openSession(t *testing.T) *market.Session {
	t.Helper()
	s, err := market.NewSession("09:15", "15:30", "Asia/Kolkata")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func istNow(t *testing.T, hour, min int) func() time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	// Wednesday
	return func() time.Time { return time.Date(2024, 2, 14, hour, min, 0, 0, loc) }
}

// memSnapshotStore records saves and can fail per symbol.
type memSnapshotStore struct {
	mu    sync.Mutex
	saved []market.Snapshot
	fail  map[string]bool
}

func (m *memSnapshotStore) SaveSnapshot(_ context.Context, snap market.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[snap.Symbol] {
		return errors.New("insert failed")
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memSnapshotStore) symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.saved))
	for i, s := range m.saved {
		out[i] = s.Symbol
	}
	return out
}

func TestSnapshotCycleSkipsClosedMarket(t *testing.T) {
	store := market.NewPriceStore()
	store.Upsert("NIFTY", 21500, market.OHLC{}, time.Now(), true)
	writer := &memSnapshotStore{}

	s := NewSnapshotScheduler(openSession(t), store, writer, []string{"NIFTY"}, 3*time.Minute, testLogger())
	s.now = istNow(t, 18, 0)

	s.cycle(context.Background())

	if len(writer.symbols()) != 0 {
		t.Errorf("Expected no snapshots while closed, got %v", writer.symbols())
	}
}

func TestSnapshotCyclePersistsTrackedSymbols(t *testing.T) {
	store := market.NewPriceStore()
	store.Upsert("NIFTY", 21505.50, market.OHLC{Open: 21500, Close: 21505.50}, time.Now(), true)
	store.Upsert("BANKNIFTY", 46100, market.OHLC{}, time.Now(), true)
	writer := &memSnapshotStore{}

	s := NewSnapshotScheduler(openSession(t), store, writer,
		[]string{"NIFTY", "BANKNIFTY", "FINNIFTY"}, 3*time.Minute, testLogger())
	s.now = istNow(t, 11, 0)

	s.cycle(context.Background())

	got := writer.symbols()
	if len(got) != 2 {
		t.Fatalf("Expected 2 snapshots (FINNIFTY has no entry), got %v", got)
	}

	writer.mu.Lock()
	snap := writer.saved[0]
	writer.mu.Unlock()
	if snap.Symbol != "NIFTY" || snap.Price != 21505.50 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
	if snap.IntervalMinutes != 3 {
		t.Errorf("Expected interval 3 minutes, got %d", snap.IntervalMinutes)
	}
	if !snap.MarketOpen {
		t.Error("Snapshot must be flagged market-open")
	}
}

func TestSnapshotCycleIsolatesFailures(t *testing.T) {
	store := market.NewPriceStore()
	store.Upsert("NIFTY", 21500, market.OHLC{}, time.Now(), true)
	store.Upsert("BANKNIFTY", 46100, market.OHLC{}, time.Now(), true)
	writer := &memSnapshotStore{fail: map[string]bool{"NIFTY": true}}

	s := NewSnapshotScheduler(openSession(t), store, writer,
		[]string{"NIFTY", "BANKNIFTY"}, 3*time.Minute, testLogger())
	s.now = istNow(t, 11, 0)

	s.cycle(context.Background())

	got := writer.symbols()
	if len(got) != 1 || got[0] != "BANKNIFTY" {
		t.Errorf("Expected BANKNIFTY saved despite NIFTY failure, got %v", got)
	}
}

func TestSnapshotRunStopsOnCancel(t *testing.T) {
	store := market.NewPriceStore()
	writer := &memSnapshotStore{}

	s := NewSnapshotScheduler(openSession(t), store, writer, nil, 10*time.Millisecond, testLogger())
	s.initialDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
