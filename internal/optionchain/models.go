// Package optionchain computes derived market-sentiment analytics from
// per-strike option open-interest data: put-call ratio, max pain, OI trend,
// composite strike scoring, and strike recommendations.
package optionchain

import (
	"math"
	"time"
)

// Sentiment and interpretation labels.
const (
	SentimentBullish = "BULLISH"
	SentimentBearish = "BEARISH"
	SentimentNeutral = "NEUTRAL"
)

// OI trend classifications.
const (
	TrendCallHeavy = "CALL_HEAVY"
	TrendPutHeavy  = "PUT_HEAVY"
	TrendBalanced  = "BALANCED"
)

// Recommendation types.
const (
	RecommendCallBuy = "CALL_BUY"
	RecommendPutBuy  = "PUT_BUY"
)

// balancedOIThreshold is the |netCallOIChange - netPutOIChange| below which
// the trend is classified as balanced.
const balancedOIThreshold = 10000

// Leg holds one side (call or put) of a strike.
type Leg struct {
	OpenInterest    int64   `json:"openInterest"`
	OIChange        int64   `json:"oiChange"`
	OIChangePercent float64 `json:"oiChangePercent"`
	OIAcceleration  float64 `json:"oiAcceleration"`
	Volume          int64   `json:"volume"`
	Bid             float64 `json:"bid"`
	Ask             float64 `json:"ask"`
	LTP             float64 `json:"ltp"`
	Spread          float64 `json:"spread"`
	LiquidityScore  float64 `json:"liquidityScore"`
	IV              float64 `json:"iv"`
	Delta           float64 `json:"delta"`
}

// ComputeSpread sets the percentage bid-ask spread. Zero when bid is absent
// or non-positive.
func (l *Leg) ComputeSpread() {
	if l.Bid > 0 && l.Ask > 0 {
		l.Spread = (l.Ask - l.Bid) / l.Bid * 100
	} else {
		l.Spread = 0
	}
}

// ComputeLiquidityScore sets the 0-10 liquidity score from volume (40%) and
// open interest (60%).
func (l *Leg) ComputeLiquidityScore() {
	volumeScore := math.Min(float64(l.Volume)/10000, 10)
	oiScore := math.Min(float64(l.OpenInterest)/50000, 10)
	l.LiquidityScore = volumeScore*0.4 + oiScore*0.6
}

// StrongOIBuildUp reports a meaningful fresh position build-up on this leg.
func (l Leg) StrongOIBuildUp() bool {
	return l.OIChange > 0 && l.OIChangePercent > 15
}

// OIUnwinding reports positions being closed out on this leg.
func (l Leg) OIUnwinding() bool {
	return l.OIChange < 0 && l.OIChangePercent < -10
}

// StrikeEntry is the full picture for one strike price.
type StrikeEntry struct {
	StrikePrice    float64 `json:"strikePrice"`
	Call           Leg     `json:"call"`
	Put            Leg     `json:"put"`
	ATMDistance    float64 `json:"atmDistance"`
	IsATM          bool    `json:"isAtm"`
	TotalOI        int64   `json:"totalOI"`
	StrikePCR      float64 `json:"strikePCR"`
	CompositeScore float64 `json:"compositeScore"`
}

// ComputeDerived fills the per-strike derived fields: total OI, strike PCR,
// and the composite score.
func (s *StrikeEntry) ComputeDerived() {
	s.TotalOI = s.Call.OpenInterest + s.Put.OpenInterest

	if s.Call.OpenInterest > 0 {
		s.StrikePCR = float64(s.Put.OpenInterest) / float64(s.Call.OpenInterest)
	} else {
		s.StrikePCR = 0
	}

	s.CompositeScore = s.compositeScore()
}

// compositeScore ranks the strike 0-10: liquidity 30%, OI momentum 40%,
// ATM proximity 20%, volume 10%. Rounded to 2 decimals.
func (s *StrikeEntry) compositeScore() float64 {
	avgLiquidity := (s.Call.LiquidityScore + s.Put.LiquidityScore) / 2

	oiScore := 0.0
	if s.Call.StrongOIBuildUp() {
		oiScore += 5
	}
	if s.Put.StrongOIBuildUp() {
		oiScore += 5
	}
	if s.Call.OIUnwinding() {
		oiScore -= 3
	}
	if s.Put.OIUnwinding() {
		oiScore -= 3
	}
	oiScore = clamp(oiScore, 0, 10)

	atmScore := clamp(10-math.Abs(s.ATMDistance)/2, 0, 10)

	volumeScore := math.Min(float64(s.Call.Volume+s.Put.Volume)/20000, 10)

	score := avgLiquidity*0.3 + oiScore*0.4 + atmScore*0.2 + volumeScore*0.1
	return math.Round(score*100) / 100
}

// CallOIBuildUp reports a net call-side build-up at this strike.
func (s StrikeEntry) CallOIBuildUp() bool {
	return s.Call.OIChange > 0 && s.Call.OIChange > s.Put.OIChange
}

// PutOIBuildUp reports a net put-side build-up at this strike.
func (s StrikeEntry) PutOIBuildUp() bool {
	return s.Put.OIChange > 0 && s.Put.OIChange > s.Call.OIChange
}

// Snapshot is one immutable option-chain analysis result. It is persisted as
// history and superseded, never updated, by the next fetch cycle.
type Snapshot struct {
	Symbol            string        `json:"symbol"`
	SpotPrice         float64       `json:"spotPrice"`
	ATMStrike         float64       `json:"atmStrike"`
	Strikes           []StrikeEntry `json:"strikes"`
	PCR               float64       `json:"pcr"`
	PCRInterpretation string        `json:"pcrInterpretation"`
	MaxPainStrike     float64       `json:"maxPainStrike"`
	NetCallOIChange   int64         `json:"netCallOIChange"`
	NetPutOIChange    int64         `json:"netPutOIChange"`
	OITrend           string        `json:"oiTrend"`
	Sentiment         string        `json:"sentiment"`
	Timestamp         time.Time     `json:"timestamp"`
	Source            string        `json:"source"`
	Expiry            string        `json:"expiry"`
}

// computePCR aggregates put OI over call OI across the ladder. A ladder with
// zero call OI yields PCR 0 and a neutral interpretation.
func (snap *Snapshot) computePCR() {
	var totalCallOI, totalPutOI int64
	for _, s := range snap.Strikes {
		totalCallOI += s.Call.OpenInterest
		totalPutOI += s.Put.OpenInterest
	}

	if totalCallOI == 0 {
		snap.PCR = 0
		snap.PCRInterpretation = SentimentNeutral
		return
	}

	snap.PCR = float64(totalPutOI) / float64(totalCallOI)

	switch {
	case snap.PCR > 1.3:
		// Heavy put writing by sellers
		snap.PCRInterpretation = SentimentBullish
	case snap.PCR < 0.7:
		// Heavy call writing
		snap.PCRInterpretation = SentimentBearish
	default:
		snap.PCRInterpretation = SentimentNeutral
	}
}

// computeMaxPain picks the strike with the highest combined OI. This is a
// simplified proxy, not the payoff-minimizing max pain. Falls back to the
// ATM strike on an empty ladder.
func (snap *Snapshot) computeMaxPain() {
	if len(snap.Strikes) == 0 {
		snap.MaxPainStrike = snap.ATMStrike
		return
	}

	best := snap.Strikes[0]
	for _, s := range snap.Strikes[1:] {
		if s.TotalOI > best.TotalOI {
			best = s
		}
	}
	snap.MaxPainStrike = best.StrikePrice
}

// computeOIChanges sums per-side OI changes and classifies the trend.
func (snap *Snapshot) computeOIChanges() {
	snap.NetCallOIChange = 0
	snap.NetPutOIChange = 0
	for _, s := range snap.Strikes {
		snap.NetCallOIChange += s.Call.OIChange
		snap.NetPutOIChange += s.Put.OIChange
	}

	diff := snap.NetCallOIChange - snap.NetPutOIChange
	switch {
	case diff < balancedOIThreshold && diff > -balancedOIThreshold:
		snap.OITrend = TrendBalanced
	case diff > 0:
		snap.OITrend = TrendCallHeavy
	default:
		snap.OITrend = TrendPutHeavy
	}
}

// determineSentiment counts bullish/bearish signals from the PCR
// interpretation and the OI trend; majority wins, tie is neutral.
func (snap *Snapshot) determineSentiment() {
	bullish, bearish := 0, 0

	if snap.PCRInterpretation == SentimentBullish {
		bullish++
	}
	if snap.PCRInterpretation == SentimentBearish {
		bearish++
	}

	// Put build-up reads as support, call build-up as resistance.
	if snap.OITrend == TrendPutHeavy {
		bullish++
	}
	if snap.OITrend == TrendCallHeavy {
		bearish++
	}

	switch {
	case bullish > bearish:
		snap.Sentiment = SentimentBullish
	case bearish > bullish:
		snap.Sentiment = SentimentBearish
	default:
		snap.Sentiment = SentimentNeutral
	}
}

// OIAnalysis is a read-only projection of the latest snapshot with added
// confidence scores, consumed by downstream trading-decision services.
type OIAnalysis struct {
	Symbol            string  `json:"symbol"`
	PCR               float64 `json:"pcr"`
	PCRInterpretation string  `json:"pcrInterpretation"`
	MaxPainStrike     float64 `json:"maxPainStrike"`
	SpotPrice         float64 `json:"spotPrice"`
	MaxPainDistance   float64 `json:"maxPainDistance"`
	NetCallOIChange   int64   `json:"netCallOIChange"`
	NetPutOIChange    int64   `json:"netPutOIChange"`
	OITrend           string  `json:"oiTrend"`
	Sentiment         string  `json:"sentiment"`
	BullishScore      float64 `json:"bullishScore"`
	BearishScore      float64 `json:"bearishScore"`
	PatternStrength   float64 `json:"patternStrength"`
	Timestamp         string  `json:"timestamp"`
}

// computeScores fills the additive bullish/bearish confidence scores:
// PCR weight 4, OI trend weight 3, max-pain distance split 1.5/1.0, each
// side clamped to [0,10]. Pattern strength grows with signal separation.
func (a *OIAnalysis) computeScores() {
	bullish, bearish := 0.0, 0.0

	switch {
	case a.PCR > 1.3:
		bullish += 4
	case a.PCR < 0.7:
		bearish += 4
	default:
		bullish += 2
		bearish += 2
	}

	switch a.OITrend {
	case TrendPutHeavy:
		bullish += 3
	case TrendCallHeavy:
		bearish += 3
	default:
		bullish += 1.5
		bearish += 1.5
	}

	if a.MaxPainDistance > 0 {
		// Spot above max pain: gravitational pull downward.
		bearish += 1.5
		bullish += 1
	} else {
		bullish += 1.5
		bearish += 1
	}

	a.BullishScore = math.Min(10, bullish)
	a.BearishScore = math.Min(10, bearish)
	a.PatternStrength = math.Min(10, math.Abs(bullish-bearish)*1.5)
}

// StrikeRecommendation is a ranked, human-readable trade suggestion derived
// from the latest snapshot.
type StrikeRecommendation struct {
	Symbol             string  `json:"symbol"`
	RecommendationType string  `json:"recommendationType"`
	StrikePrice        float64 `json:"strikePrice"`
	Confidence         float64 `json:"confidence"`
	Reason             string  `json:"reason"`
	Premium            float64 `json:"premium"`
	Liquidity          float64 `json:"liquidity"`
	OpenInterest       int64   `json:"openInterest"`
	OIChange           int64   `json:"oiChange"`
	Volume             int64   `json:"volume"`
	Delta              float64 `json:"delta"`
	ATMDistance        float64 `json:"atmDistance"`
	ExpectedBehavior   string  `json:"expectedBehavior"`
	MarketBias         string  `json:"marketBias"`
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
