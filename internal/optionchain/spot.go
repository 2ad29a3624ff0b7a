package optionchain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/intraday-pulse/pulse/internal/market"
)

// StoreSpotSource reads the spot price straight from the in-process live
// price cache.
type StoreSpotSource struct {
	store *market.PriceStore
}

// NewStoreSpotSource wraps a PriceStore as a SpotSource.
func NewStoreSpotSource(store *market.PriceStore) *StoreSpotSource {
	return &StoreSpotSource{store: store}
}

// SpotPrice returns the cached last price. A symbol with no tick yet is an
// error; the engine substitutes its configured fallback.
func (s *StoreSpotSource) SpotPrice(_ context.Context, symbol string) (float64, error) {
	entry, ok := s.store.Get(symbol)
	if !ok {
		return 0, fmt.Errorf("no live price for %s", symbol)
	}
	return entry.Price, nil
}

// HTTPSpotSource queries the feed service's latest-price endpoint. Used when
// the analytics engine runs in a separate process from the feed pipeline.
type HTTPSpotSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSpotSource creates a spot source against the feed service base URL.
func NewHTTPSpotSource(baseURL string) *HTTPSpotSource {
	return &HTTPSpotSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// SpotPrice fetches the latest price over HTTP.
func (s *HTTPSpotSource) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/v1/market/latest?symbol=%s", s.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build spot price request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("spot price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("spot price request returned %d", resp.StatusCode)
	}

	var payload struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode spot price response: %w", err)
	}
	return payload.Price, nil
}
