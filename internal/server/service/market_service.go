package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/intraday-pulse/pulse/internal/market"
	"github.com/intraday-pulse/pulse/internal/server/model"
	"github.com/intraday-pulse/pulse/internal/server/repository"
)

// ErrSymbolNotFound is returned when no data exists for a requested symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// ConnectionReporter exposes the upstream feed connection state.
type ConnectionReporter interface {
	IsConnected() bool
}

// LivePriceResponse is the API shape for the latest in-memory price.
type LivePriceResponse struct {
	Symbol           string      `json:"symbol"`
	Price            float64     `json:"price"`
	Change           float64     `json:"change"`
	ChangePercent    float64     `json:"changePercent"`
	OHLC             market.OHLC `json:"ohlc"`
	Timestamp        time.Time   `json:"timestamp"`
	MarketOpen       bool        `json:"marketOpen"`
	ConnectionStatus string      `json:"connectionStatus"`
}

// MarketService serves live prices from the in-memory store and historical
// snapshots from the repository.
type MarketService struct {
	store   *market.PriceStore
	session *market.Session
	feed    ConnectionReporter
	repo    repository.SnapshotRepository
}

func NewMarketService(store *market.PriceStore, session *market.Session,
	feed ConnectionReporter, repo repository.SnapshotRepository) *MarketService {

	return &MarketService{
		store:   store,
		session: session,
		feed:    feed,
		repo:    repo,
	}
}

// LatestPrice returns the most recent live price for a symbol, stamped with
// the current feed connection state.
func (ms *MarketService) LatestPrice(symbol string) (LivePriceResponse, error) {
	entry, ok := ms.store.Get(symbol)
	if !ok {
		return LivePriceResponse{}, ErrSymbolNotFound
	}

	status := "DISCONNECTED"
	if ms.feed.IsConnected() {
		status = "CONNECTED"
	}

	return LivePriceResponse{
		Symbol:           entry.Symbol,
		Price:            entry.Price,
		Change:           entry.Change,
		ChangePercent:    entry.ChangePercent,
		OHLC:             entry.OHLC,
		Timestamp:        entry.Timestamp,
		MarketOpen:       entry.MarketOpen,
		ConnectionStatus: status,
	}, nil
}

// History returns persisted snapshots for the trailing window, newest first.
func (ms *MarketService) History(symbol string, minutes int) ([]model.MarketSnapshot, error) {
	since := time.Now().Add(-time.Duration(minutes) * time.Minute)
	return ms.repo.GetSnapshotsSince(symbol, since)
}

// LatestOHLC returns the most recent persisted snapshot for a symbol. When
// nothing is persisted yet it synthesizes one from the live store so early
// callers get data before the first scheduler cycle lands.
func (ms *MarketService) LatestOHLC(symbol string) (*model.MarketSnapshot, error) {
	snap, err := ms.repo.GetLatestSnapshot(symbol)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry, ok := ms.store.Get(symbol)
	if !ok {
		return nil, err
	}
	return &model.MarketSnapshot{
		Symbol:       entry.Symbol,
		Price:        entry.Price,
		Open:         entry.OHLC.Open,
		High:         entry.OHLC.High,
		Low:          entry.OHLC.Low,
		Close:        entry.OHLC.Close,
		Volume:       entry.OHLC.Volume,
		MarketOpen:   entry.MarketOpen,
		SnapshotTime: entry.Timestamp,
	}, nil
}

// Status reports the current market session state.
func (ms *MarketService) Status() market.Status {
	return ms.session.Stat(time.Now())
}
