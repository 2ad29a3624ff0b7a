package optionchain

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// SpotSource supplies the current spot price for a symbol. The engine never
// reaches into the price cache directly so tests can fake this without a
// network call.
type SpotSource interface {
	SpotPrice(ctx context.Context, symbol string) (float64, error)
}

// ChainSource supplies a freshly fetched strike ladder from the upstream
// option-data provider.
type ChainSource interface {
	FetchChain(ctx context.Context, symbol string, spotPrice float64, expiry string, depth int) ([]StrikeEntry, error)
	CurrentExpiry(now time.Time) string
}

// Engine turns a spot price plus a raw strike ladder into a fully scored
// Snapshot.
type Engine struct {
	spot         SpotSource
	chains       ChainSource
	spotFallback map[string]float64
	depth        int
	logger       *logrus.Logger
	now          func() time.Time
}

// NewEngine creates an analytics engine. spotFallback maps symbol to the
// default price substituted when the live lookup fails; depth is the number
// of strikes either side of ATM.
func NewEngine(spot SpotSource, chains ChainSource, spotFallback map[string]float64,
	depth int, logger *logrus.Logger) *Engine {

	return &Engine{
		spot:         spot,
		chains:       chains,
		spotFallback: spotFallback,
		depth:        depth,
		logger:       logger,
		now:          time.Now,
	}
}

// StrikeInterval returns the strike spacing for a symbol.
func StrikeInterval(symbol string) float64 {
	if symbol == "BANKNIFTY" {
		return 100
	}
	return 50
}

// ATMStrike rounds the spot price to the nearest strike for the symbol.
func ATMStrike(spotPrice float64, symbol string) float64 {
	interval := StrikeInterval(symbol)
	return math.Round(spotPrice/interval) * interval
}

// BuildSnapshot fetches the ladder and computes every derived metric. A spot
// lookup failure substitutes the configured fallback and continues; only a
// ladder fetch failure fails the computation.
func (e *Engine) BuildSnapshot(ctx context.Context, symbol string) (*Snapshot, error) {
	spotPrice, err := e.spot.SpotPrice(ctx, symbol)
	if err != nil || spotPrice <= 0 {
		fallback := e.spotFallback[symbol]
		e.logger.Warnf("Spot price lookup failed for %s, using fallback %v: %v", symbol, fallback, err)
		spotPrice = fallback
	}

	expiry := e.chains.CurrentExpiry(e.now())

	strikes, err := e.chains.FetchChain(ctx, symbol, spotPrice, expiry, e.depth)
	if err != nil {
		return nil, fmt.Errorf("option chain fetch failed for %s: %w", symbol, err)
	}

	for i := range strikes {
		strikes[i].Call.ComputeSpread()
		strikes[i].Call.ComputeLiquidityScore()
		strikes[i].Put.ComputeSpread()
		strikes[i].Put.ComputeLiquidityScore()
		strikes[i].ComputeDerived()
	}

	snap := &Snapshot{
		Symbol:    symbol,
		SpotPrice: spotPrice,
		ATMStrike: ATMStrike(spotPrice, symbol),
		Strikes:   strikes,
		Timestamp: e.now(),
		Source:    e.sourceName(),
		Expiry:    expiry,
	}

	snap.computePCR()
	snap.computeMaxPain()
	snap.computeOIChanges()
	snap.determineSentiment()

	return snap, nil
}

func (e *Engine) sourceName() string {
	if named, ok := e.chains.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "UNKNOWN"
}

// Analyze projects a snapshot into the OIAnalysis consumed by downstream
// scoring services, with confidence scores attached.
func Analyze(snap *Snapshot) OIAnalysis {
	analysis := OIAnalysis{
		Symbol:            snap.Symbol,
		PCR:               snap.PCR,
		PCRInterpretation: snap.PCRInterpretation,
		MaxPainStrike:     snap.MaxPainStrike,
		SpotPrice:         snap.SpotPrice,
		MaxPainDistance:   snap.SpotPrice - snap.MaxPainStrike,
		NetCallOIChange:   snap.NetCallOIChange,
		NetPutOIChange:    snap.NetPutOIChange,
		OITrend:           snap.OITrend,
		Sentiment:         snap.Sentiment,
		Timestamp:         snap.Timestamp.Format(time.RFC3339),
	}
	analysis.computeScores()
	return analysis
}

// Recommend ranks the ladder by composite score and selects up to two
// strikes per side showing an OI build-up on that side.
func Recommend(snap *Snapshot) []StrikeRecommendation {
	sorted := make([]StrikeEntry, len(snap.Strikes))
	copy(sorted, snap.Strikes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CompositeScore > sorted[j].CompositeScore
	})

	var recommendations []StrikeRecommendation

	calls := 0
	for _, s := range sorted {
		if calls == 2 {
			break
		}
		if !s.CallOIBuildUp() && !s.Call.StrongOIBuildUp() {
			continue
		}
		recommendations = append(recommendations, StrikeRecommendation{
			Symbol:             snap.Symbol,
			RecommendationType: RecommendCallBuy,
			StrikePrice:        s.StrikePrice,
			Confidence:         s.CompositeScore,
			Reason: fmt.Sprintf("Strong Call OI build-up: %+d (%.2f%%)",
				s.Call.OIChange, s.Call.OIChangePercent),
			Premium:          s.Call.LTP,
			Liquidity:        s.Call.LiquidityScore,
			OpenInterest:     s.Call.OpenInterest,
			OIChange:         s.Call.OIChange,
			Volume:           s.Call.Volume,
			Delta:            s.Call.Delta,
			ATMDistance:      s.ATMDistance,
			ExpectedBehavior: "BREAKOUT",
			MarketBias:       snap.Sentiment,
		})
		calls++
	}

	puts := 0
	for _, s := range sorted {
		if puts == 2 {
			break
		}
		if !s.PutOIBuildUp() && !s.Put.StrongOIBuildUp() {
			continue
		}
		recommendations = append(recommendations, StrikeRecommendation{
			Symbol:             snap.Symbol,
			RecommendationType: RecommendPutBuy,
			StrikePrice:        s.StrikePrice,
			Confidence:         s.CompositeScore,
			Reason: fmt.Sprintf("Strong Put OI build-up: %+d (%.2f%%)",
				s.Put.OIChange, s.Put.OIChangePercent),
			Premium:          s.Put.LTP,
			Liquidity:        s.Put.LiquidityScore,
			OpenInterest:     s.Put.OpenInterest,
			OIChange:         s.Put.OIChange,
			Volume:           s.Put.Volume,
			Delta:            s.Put.Delta,
			ATMDistance:      s.ATMDistance,
			ExpectedBehavior: "SUPPORT",
			MarketBias:       snap.Sentiment,
		})
		puts++
	}

	return recommendations
}
