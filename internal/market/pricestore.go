package market

import (
	"math"
	"sync"
	"time"
)

// OHLC is the open/high/low/close of the current bar plus traded volume.
type OHLC struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// LivePriceEntry is the current in-memory view of a symbol. It is overwritten
// in place on every tick; no history is retained here.
type LivePriceEntry struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	OHLC          OHLC      `json:"ohlc"`
	Timestamp     time.Time `json:"timestamp"`
	MarketOpen    bool      `json:"isMarketOpen"`
}

// priceSlot owns one symbol's entry. Each slot has its own lock so that
// unrelated symbols never contend.
type priceSlot struct {
	mu       sync.RWMutex
	entry    LivePriceEntry
	hasEntry bool
	refClose float64
}

// PriceStore is a concurrent cache of canonical symbol to LivePriceEntry.
// The registry map is append-only for tracked symbols; per-symbol state is
// guarded by the slot lock.
type PriceStore struct {
	mu    sync.RWMutex
	slots map[string]*priceSlot
}

// NewPriceStore creates an empty PriceStore.
func NewPriceStore() *PriceStore {
	return &PriceStore{slots: make(map[string]*priceSlot)}
}

func (ps *PriceStore) slot(symbol string) *priceSlot {
	ps.mu.RLock()
	s, ok := ps.slots[symbol]
	ps.mu.RUnlock()
	if ok {
		return s
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if s, ok = ps.slots[symbol]; ok {
		return s
	}
	s = &priceSlot{}
	ps.slots[symbol] = s
	return s
}

// SetReferenceClose records the previous session close used for change and
// percent-change computation on subsequent upserts.
func (ps *PriceStore) SetReferenceClose(symbol string, close float64) {
	s := ps.slot(symbol)
	s.mu.Lock()
	s.refClose = close
	s.mu.Unlock()
}

// Upsert atomically replaces the entry for symbol, computing change against
// the stored reference close when one is present.
func (ps *PriceStore) Upsert(symbol string, price float64, ohlc OHLC, now time.Time, marketOpen bool) LivePriceEntry {
	s := ps.slot(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := LivePriceEntry{
		Symbol:     symbol,
		Price:      price,
		OHLC:       ohlc,
		Timestamp:  now,
		MarketOpen: marketOpen,
	}
	if s.refClose > 0 {
		entry.Change = price - s.refClose
		entry.ChangePercent = round4(entry.Change / s.refClose * 100)
	}

	s.entry = entry
	s.hasEntry = true
	return entry
}

// Get returns the current entry for symbol, if any.
func (ps *PriceStore) Get(symbol string) (LivePriceEntry, bool) {
	ps.mu.RLock()
	s, ok := ps.slots[symbol]
	ps.mu.RUnlock()
	if !ok {
		return LivePriceEntry{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entry, s.hasEntry
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
