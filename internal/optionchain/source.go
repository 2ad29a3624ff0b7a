package optionchain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// NewChainSource picks the upstream implementation: a live REST client when
// an API key is configured, otherwise the synthetic generator.
func NewChainSource(apiKey, baseURL string, logger *logrus.Logger) ChainSource {
	if apiKey == "" {
		logger.Info("Option chain source initialized (mode: SYNTHETIC)")
		return NewSyntheticSource()
	}
	logger.Info("Option chain source initialized (mode: LIVE)")
	return NewRESTSource(apiKey, baseURL, logger)
}

// currentExpiry returns the next weekly expiry (Thursday) as YYYYMMDD.
// A Thursday rolls to itself, matching exchange convention for expiry day.
func currentExpiry(now time.Time) string {
	daysAhead := (int(time.Thursday) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, daysAhead).Format("20060102")
}

// SyntheticSource generates a plausible strike ladder for development and
// testing when no provider credentials are configured.
type SyntheticSource struct {
	rng *rand.Rand
}

// NewSyntheticSource creates a generator seeded from the clock.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Name identifies the data source on persisted snapshots.
func (g *SyntheticSource) Name() string { return "SYNTHETIC" }

// CurrentExpiry returns the upcoming weekly expiry.
func (g *SyntheticSource) CurrentExpiry(now time.Time) string {
	return currentExpiry(now)
}

// FetchChain generates ATM +/- depth strikes around the spot price.
func (g *SyntheticSource) FetchChain(_ context.Context, symbol string, spotPrice float64, _ string, depth int) ([]StrikeEntry, error) {
	interval := StrikeInterval(symbol)
	atm := ATMStrike(spotPrice, symbol)

	strikes := make([]StrikeEntry, 0, 2*depth+1)
	for i := -depth; i <= depth; i++ {
		strike := atm + float64(i)*interval
		strikes = append(strikes, StrikeEntry{
			StrikePrice: strike,
			IsATM:       i == 0,
			ATMDistance: (strike - atm) / atm * 100,
			Call:        g.leg(true, strike, spotPrice),
			Put:         g.leg(false, strike, spotPrice),
		})
	}
	return strikes, nil
}

// leg generates one option side with OI skewed toward in-the-money strikes.
func (g *SyntheticSource) leg(isCall bool, strike, spotPrice float64) Leg {
	inTheMoney := (isCall && spotPrice > strike) || (!isCall && spotPrice < strike)

	oi := int64(100000 + g.rng.Intn(400000))
	volume := int64(10000 + g.rng.Intn(40000))
	if inTheMoney {
		oi = oi * 3 / 2
		volume = volume * 13 / 10
	}

	// OI change between -10% and +30% of current OI
	oiChange := int64(float64(oi) * (g.rng.Float64()*0.4 - 0.1))
	oiChangePercent := float64(oiChange) / float64(oi) * 100

	intrinsic := 0.0
	if inTheMoney {
		intrinsic = spotPrice - strike
		if !isCall {
			intrinsic = strike - spotPrice
		}
	}
	timeValue := 20 + g.rng.Float64()*50
	ltp := intrinsic + timeValue

	delta := 0.1 + g.rng.Float64()*0.3
	if inTheMoney {
		delta = 0.6 + g.rng.Float64()*0.3
	}
	if !isCall {
		delta = -delta
	}

	return Leg{
		OpenInterest:    oi,
		OIChange:        oiChange,
		OIChangePercent: oiChangePercent,
		OIAcceleration:  g.rng.Float64()*2000 - 1000,
		Volume:          volume,
		LTP:             ltp,
		Bid:             ltp * 0.98,
		Ask:             ltp * 1.02,
		IV:              0.15 + g.rng.Float64()*0.20,
		Delta:           delta,
	}
}

// RESTSource fetches the strike ladder from the provider's option-chain
// endpoint, throttled so scheduled and manual triggers cannot exceed the
// provider's rate limits.
type RESTSource struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *logrus.Logger
	synthetic *SyntheticSource
}

// NewRESTSource creates a rate-limited REST chain source.
func NewRESTSource(apiKey, baseURL string, logger *logrus.Logger) *RESTSource {
	return &RESTSource{
		apiKey:    apiKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(2), 5),
		logger:    logger,
		synthetic: NewSyntheticSource(),
	}
}

// Name identifies the data source on persisted snapshots.
func (r *RESTSource) Name() string { return "FYERS" }

// CurrentExpiry returns the upcoming weekly expiry.
func (r *RESTSource) CurrentExpiry(now time.Time) string {
	return currentExpiry(now)
}

// chainResponse is the provider payload shape for one ladder.
type chainResponse struct {
	Strikes []StrikeEntry `json:"strikes"`
}

// FetchChain queries the provider. Upstream failures fall back to the
// synthetic ladder rather than failing the analytics cycle.
func (r *RESTSource) FetchChain(ctx context.Context, symbol string, spotPrice float64, expiry string, depth int) ([]StrikeEntry, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/optionchain?symbol=%s&expiry=%s&depth=%d", r.baseURL, symbol, expiry, depth)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build option chain request: %w", err)
	}
	req.Header.Set("Authorization", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Errorf("Option chain request failed, falling back to synthetic data: %v", err)
		return r.synthetic.FetchChain(ctx, symbol, spotPrice, expiry, depth)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Errorf("Option chain request returned %d, falling back to synthetic data", resp.StatusCode)
		return r.synthetic.FetchChain(ctx, symbol, spotPrice, expiry, depth)
	}

	var payload chainResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode option chain response: %w", err)
	}
	return payload.Strikes, nil
}
