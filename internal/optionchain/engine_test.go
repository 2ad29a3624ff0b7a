package optionchain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeSpot returns a fixed price or an error.
type fakeSpot struct {
	price float64
	err   error
}

func (f fakeSpot) SpotPrice(context.Context, string) (float64, error) {
	return f.price, f.err
}

// fakeChains returns a canned ladder.
type fakeChains struct {
	strikes []StrikeEntry
	err     error
}

func (f fakeChains) FetchChain(context.Context, string, float64, string, int) ([]StrikeEntry, error) {
	return f.strikes, f.err
}

func (f fakeChains) CurrentExpiry(time.Time) string { return "20240215" }

func (f fakeChains) Name() string { return "TEST" }

func ladderStrike(strike float64, callOI, putOI int64) StrikeEntry {
	return StrikeEntry{
		StrikePrice: strike,
		Call:        Leg{OpenInterest: callOI, Volume: 5000, Bid: 98, Ask: 102},
		Put:         Leg{OpenInterest: putOI, Volume: 5000, Bid: 98, Ask: 102},
	}
}

func TestBuildSnapshotPCRBullish(t *testing.T) {
	// Total call OI 200,000 / put OI 300,000 across the ladder
	chains := fakeChains{strikes: []StrikeEntry{
		ladderStrike(21450, 100000, 150000),
		ladderStrike(21500, 100000, 150000),
	}}
	e := NewEngine(fakeSpot{price: 21500}, chains, nil, 2, testLogger())

	snap, err := e.BuildSnapshot(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if snap.PCR != 1.5 {
		t.Errorf("Expected PCR 1.5, got %v", snap.PCR)
	}
	if snap.PCRInterpretation != SentimentBullish {
		t.Errorf("Expected BULLISH interpretation, got %s", snap.PCRInterpretation)
	}
}

func TestBuildSnapshotPCRZeroCallOI(t *testing.T) {
	chains := fakeChains{strikes: []StrikeEntry{
		ladderStrike(21500, 0, 150000),
	}}
	e := NewEngine(fakeSpot{price: 21500}, chains, nil, 2, testLogger())

	snap, err := e.BuildSnapshot(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if snap.PCR != 0 {
		t.Errorf("Expected PCR 0 with zero call OI, got %v", snap.PCR)
	}
	if snap.PCRInterpretation != SentimentNeutral {
		t.Errorf("Expected NEUTRAL interpretation, got %s", snap.PCRInterpretation)
	}
}

func TestBuildSnapshotMaxPain(t *testing.T) {
	// Strike 21500 carries the highest combined OI and is not ATM.
	chains := fakeChains{strikes: []StrikeEntry{
		ladderStrike(21500, 400000, 400000),
		ladderStrike(21550, 100000, 100000),
		ladderStrike(21600, 150000, 120000),
	}}
	e := NewEngine(fakeSpot{price: 21600}, chains, nil, 2, testLogger())

	snap, err := e.BuildSnapshot(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if snap.MaxPainStrike != 21500 {
		t.Errorf("Expected max pain strike 21500, got %v", snap.MaxPainStrike)
	}
}

func TestMaxPainEmptyLadderFallsBackToATM(t *testing.T) {
	snap := &Snapshot{ATMStrike: 21500}
	snap.computeMaxPain()
	if snap.MaxPainStrike != 21500 {
		t.Errorf("Expected ATM fallback 21500, got %v", snap.MaxPainStrike)
	}
}

func TestBuildSnapshotSpotFallback(t *testing.T) {
	chains := fakeChains{strikes: []StrikeEntry{ladderStrike(21500, 1000, 1000)}}
	fallback := map[string]float64{"NIFTY": 21500}
	e := NewEngine(fakeSpot{err: errors.New("connection refused")}, chains, fallback, 2, testLogger())

	snap, err := e.BuildSnapshot(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("Expected fallback, got error: %v", err)
	}

	if snap.SpotPrice != 21500 {
		t.Errorf("Expected fallback spot 21500, got %v", snap.SpotPrice)
	}
	if snap.ATMStrike != 21500 {
		t.Errorf("Expected ATM 21500 from fallback spot, got %v", snap.ATMStrike)
	}
}

func TestBuildSnapshotChainFetchFailure(t *testing.T) {
	e := NewEngine(fakeSpot{price: 21500}, fakeChains{err: errors.New("upstream timeout")}, nil, 2, testLogger())

	if _, err := e.BuildSnapshot(context.Background(), "NIFTY"); err == nil {
		t.Error("Expected error when ladder fetch fails")
	}
}

func TestOITrendClassification(t *testing.T) {
	tests := []struct {
		name       string
		callChange int64
		putChange  int64
		expected   string
	}{
		{"Balanced small diff", 5000, 1000, TrendBalanced},
		{"Balanced at zero", 0, 0, TrendBalanced},
		{"Just below threshold", 9999, 0, TrendBalanced},
		{"Call heavy", 50000, 10000, TrendCallHeavy},
		{"Put heavy", 10000, 50000, TrendPutHeavy},
		{"Put heavy negative call", -20000, 0, TrendPutHeavy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{Strikes: []StrikeEntry{{
				Call: Leg{OIChange: tt.callChange},
				Put:  Leg{OIChange: tt.putChange},
			}}}
			snap.computeOIChanges()
			if snap.OITrend != tt.expected {
				t.Errorf("Expected trend %s, got %s", tt.expected, snap.OITrend)
			}
		})
	}
}

func TestSentimentMajority(t *testing.T) {
	tests := []struct {
		name           string
		interpretation string
		trend          string
		expected       string
	}{
		{"Both bullish", SentimentBullish, TrendPutHeavy, SentimentBullish},
		{"Both bearish", SentimentBearish, TrendCallHeavy, SentimentBearish},
		{"Split signals", SentimentBullish, TrendCallHeavy, SentimentNeutral},
		{"All neutral", SentimentNeutral, TrendBalanced, SentimentNeutral},
		{"Single bullish signal", SentimentNeutral, TrendPutHeavy, SentimentBullish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{PCRInterpretation: tt.interpretation, OITrend: tt.trend}
			snap.determineSentiment()
			if snap.Sentiment != tt.expected {
				t.Errorf("Expected sentiment %s, got %s", tt.expected, snap.Sentiment)
			}
		})
	}
}

func TestCompositeScoreBounded(t *testing.T) {
	extremes := []StrikeEntry{
		{}, // all zero
		{
			ATMDistance: 500,
			Call:        Leg{OIChange: -1000000, OIChangePercent: -99},
			Put:         Leg{OIChange: -1000000, OIChangePercent: -99},
		},
		{
			ATMDistance: 0,
			Call: Leg{OpenInterest: 10000000, OIChange: 5000000, OIChangePercent: 90,
				Volume: 10000000, LiquidityScore: 10},
			Put: Leg{OpenInterest: 10000000, OIChange: 5000000, OIChangePercent: 90,
				Volume: 10000000, LiquidityScore: 10},
		},
	}

	for i, s := range extremes {
		s.Call.ComputeLiquidityScore()
		s.Put.ComputeLiquidityScore()
		s.ComputeDerived()
		if s.CompositeScore < 0 || s.CompositeScore > 10 {
			t.Errorf("Case %d: composite score %v out of [0,10]", i, s.CompositeScore)
		}
	}
}

func TestCompositeScoreWeights(t *testing.T) {
	s := StrikeEntry{
		ATMDistance: 0,
		Call: Leg{OpenInterest: 500000, OIChange: 100000, OIChangePercent: 25,
			Volume: 100000},
		Put: Leg{OpenInterest: 500000, OIChange: 100000, OIChangePercent: 25,
			Volume: 100000},
	}
	s.Call.ComputeLiquidityScore()
	s.Put.ComputeLiquidityScore()
	s.ComputeDerived()

	// liquidity: both legs 10*0.4 + 10*0.6 = 10, avg 10 -> 3.0
	// OI momentum: both strong build-ups -> 10 * 0.4 = 4.0
	// ATM proximity: distance 0 -> 10 * 0.2 = 2.0
	// volume: 200000/20000 = 10 -> 1.0
	if s.CompositeScore != 10 {
		t.Errorf("Expected composite score 10, got %v", s.CompositeScore)
	}
}

func TestLegSpread(t *testing.T) {
	tests := []struct {
		name     string
		bid, ask float64
		expected float64
	}{
		{"Normal", 100, 102, 2},
		{"Zero bid", 0, 102, 0},
		{"Missing both", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Leg{Bid: tt.bid, Ask: tt.ask}
			l.ComputeSpread()
			if math.Abs(l.Spread-tt.expected) > 1e-9 {
				t.Errorf("Expected spread %v, got %v", tt.expected, l.Spread)
			}
		})
	}
}

func TestLegLiquidityScore(t *testing.T) {
	l := Leg{Volume: 5000, OpenInterest: 25000}
	l.ComputeLiquidityScore()
	// volume 0.5*0.4 + oi 0.5*0.6 = 0.5
	if math.Abs(l.LiquidityScore-0.5) > 1e-9 {
		t.Errorf("Expected liquidity 0.5, got %v", l.LiquidityScore)
	}

	capped := Leg{Volume: 10000000, OpenInterest: 10000000}
	capped.ComputeLiquidityScore()
	if capped.LiquidityScore != 10 {
		t.Errorf("Expected capped liquidity 10, got %v", capped.LiquidityScore)
	}
}

func TestStrikePCR(t *testing.T) {
	s := StrikeEntry{
		Call: Leg{OpenInterest: 200000},
		Put:  Leg{OpenInterest: 300000},
	}
	s.ComputeDerived()
	if s.StrikePCR != 1.5 {
		t.Errorf("Expected strike PCR 1.5, got %v", s.StrikePCR)
	}
	if s.TotalOI != 500000 {
		t.Errorf("Expected total OI 500000, got %d", s.TotalOI)
	}

	zero := StrikeEntry{Put: Leg{OpenInterest: 1000}}
	zero.ComputeDerived()
	if zero.StrikePCR != 0 {
		t.Errorf("Expected strike PCR 0 with no call OI, got %v", zero.StrikePCR)
	}
}

func TestATMStrikeRounding(t *testing.T) {
	tests := []struct {
		symbol   string
		spot     float64
		expected float64
	}{
		{"NIFTY", 21505.50, 21500},
		{"NIFTY", 21530, 21550},
		{"BANKNIFTY", 46049, 46000},
		{"BANKNIFTY", 46051, 46100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%v", tt.symbol, tt.spot), func(t *testing.T) {
			if got := ATMStrike(tt.spot, tt.symbol); got != tt.expected {
				t.Errorf("Expected ATM %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAnalyzeScores(t *testing.T) {
	tests := []struct {
		name            string
		pcr             float64
		trend           string
		maxPainDistance float64
		bullish         float64
		bearish         float64
		strength        float64
	}{
		{"Strongly bullish", 1.5, TrendPutHeavy, -50, 8.5, 1.0, 10},
		{"Strongly bearish", 0.5, TrendCallHeavy, 50, 1.0, 8.5, 10},
		{"All neutral above pain", 1.0, TrendBalanced, 10, 4.5, 5.0, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{
				Symbol:    "NIFTY",
				SpotPrice: 21500 + tt.maxPainDistance,
				PCR:       tt.pcr, OITrend: tt.trend,
				MaxPainStrike: 21500,
			}
			a := Analyze(snap)

			if math.Abs(a.BullishScore-tt.bullish) > 1e-9 {
				t.Errorf("Expected bullish %v, got %v", tt.bullish, a.BullishScore)
			}
			if math.Abs(a.BearishScore-tt.bearish) > 1e-9 {
				t.Errorf("Expected bearish %v, got %v", tt.bearish, a.BearishScore)
			}
			if math.Abs(a.PatternStrength-tt.strength) > 1e-9 {
				t.Errorf("Expected pattern strength %v, got %v", tt.strength, a.PatternStrength)
			}
			if math.Abs(a.MaxPainDistance-tt.maxPainDistance) > 1e-9 {
				t.Errorf("Expected max pain distance %v, got %v", tt.maxPainDistance, a.MaxPainDistance)
			}
		})
	}
}

func TestRecommendSelectsBuildUps(t *testing.T) {
	strikes := []StrikeEntry{
		{
			StrikePrice: 21400,
			Call:        Leg{OIChange: 60000, OIChangePercent: 25, LTP: 120},
			Put:         Leg{OIChange: 1000},
		},
		{
			StrikePrice: 21450,
			Call:        Leg{OIChange: 40000, OIChangePercent: 20, LTP: 95},
			Put:         Leg{OIChange: 2000},
		},
		{
			StrikePrice: 21500,
			Call:        Leg{OIChange: 30000, OIChangePercent: 18, LTP: 80},
			Put:         Leg{OIChange: 500},
		},
		{
			StrikePrice: 21550,
			Call:        Leg{OIChange: -5000},
			Put:         Leg{OIChange: 70000, OIChangePercent: 30, LTP: 110},
		},
	}
	for i := range strikes {
		strikes[i].CompositeScore = float64(10 - i) // already ranked
	}
	snap := &Snapshot{Symbol: "NIFTY", Strikes: strikes, Sentiment: SentimentBullish}

	recs := Recommend(snap)

	var calls, puts []StrikeRecommendation
	for _, r := range recs {
		switch r.RecommendationType {
		case RecommendCallBuy:
			calls = append(calls, r)
		case RecommendPutBuy:
			puts = append(puts, r)
		}
	}

	if len(calls) != 2 {
		t.Fatalf("Expected 2 call recommendations, got %d", len(calls))
	}
	if calls[0].StrikePrice != 21400 || calls[1].StrikePrice != 21450 {
		t.Errorf("Expected top-scored call strikes 21400, 21450; got %v, %v",
			calls[0].StrikePrice, calls[1].StrikePrice)
	}
	if calls[0].Reason != "Strong Call OI build-up: +60000 (25.00%)" {
		t.Errorf("Unexpected reason: %q", calls[0].Reason)
	}
	if calls[0].ExpectedBehavior != "BREAKOUT" || calls[0].MarketBias != SentimentBullish {
		t.Errorf("Unexpected call metadata: %+v", calls[0])
	}

	if len(puts) != 1 {
		t.Fatalf("Expected 1 put recommendation, got %d", len(puts))
	}
	if puts[0].StrikePrice != 21550 || puts[0].ExpectedBehavior != "SUPPORT" {
		t.Errorf("Unexpected put recommendation: %+v", puts[0])
	}
}

func TestRecommendEmptyWithoutBuildUp(t *testing.T) {
	snap := &Snapshot{Symbol: "NIFTY", Strikes: []StrikeEntry{
		{StrikePrice: 21500, Call: Leg{OIChange: -1000}, Put: Leg{OIChange: -2000}},
	}}

	if recs := Recommend(snap); len(recs) != 0 {
		t.Errorf("Expected no recommendations, got %d", len(recs))
	}
}

func TestSyntheticSourceLadderShape(t *testing.T) {
	src := NewSyntheticSource()

	strikes, err := src.FetchChain(context.Background(), "NIFTY", 21505, "20240215", 2)
	if err != nil {
		t.Fatalf("FetchChain failed: %v", err)
	}

	if len(strikes) != 5 {
		t.Fatalf("Expected 5 strikes for depth 2, got %d", len(strikes))
	}
	expected := []float64{21400, 21450, 21500, 21550, 21600}
	for i, s := range strikes {
		if s.StrikePrice != expected[i] {
			t.Errorf("Strike %d: expected %v, got %v", i, expected[i], s.StrikePrice)
		}
		if s.IsATM != (s.StrikePrice == 21500) {
			t.Errorf("Strike %v: unexpected IsATM %v", s.StrikePrice, s.IsATM)
		}
		if s.Call.OpenInterest <= 0 || s.Put.OpenInterest <= 0 {
			t.Errorf("Strike %v: expected positive OI", s.StrikePrice)
		}
	}
}

func TestCurrentExpiryIsThursday(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected string
	}{
		{"Monday", time.Date(2024, 2, 12, 10, 0, 0, 0, time.UTC), "20240215"},
		{"Thursday", time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), "20240215"},
		{"Friday", time.Date(2024, 2, 16, 10, 0, 0, 0, time.UTC), "20240222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := currentExpiry(tt.now); got != tt.expected {
				t.Errorf("Expected expiry %s, got %s", tt.expected, got)
			}
		})
	}
}
