package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intraday-pulse/pulse/internal/hub"
	"github.com/intraday-pulse/pulse/internal/market"
	"github.com/intraday-pulse/pulse/internal/optionchain"
)

// ChainStore persists option-chain snapshots.
type ChainStore interface {
	SaveChainSnapshot(ctx context.Context, snap *optionchain.Snapshot) error
}

// ChainScheduler drives the analytics engine per tracked symbol on a fixed
// period, persists the result, and fans the derived projections out to
// subscribers. It also accepts manual per-symbol triggers; concurrent manual
// and scheduled triggers may race, last persisted snapshot wins.
type ChainScheduler struct {
	engine  *optionchain.Engine
	store   ChainStore
	hub     *hub.Hub
	session *market.Session
	symbols []string

	interval     time.Duration
	initialDelay time.Duration
	// gateFetches skips scheduled cycles outside session hours.
	gateFetches bool

	logger  *logrus.Logger
	now     func() time.Time
	trigger chan string
}

// NewChainScheduler creates an option-chain fetch scheduler.
func NewChainScheduler(engine *optionchain.Engine, store ChainStore, h *hub.Hub,
	session *market.Session, symbols []string, interval time.Duration,
	gateFetches bool, logger *logrus.Logger) *ChainScheduler {

	return &ChainScheduler{
		engine:       engine,
		store:        store,
		hub:          h,
		session:      session,
		symbols:      symbols,
		interval:     interval,
		initialDelay: 10 * time.Second,
		gateFetches:  gateFetches,
		logger:       logger,
		now:          time.Now,
		trigger:      make(chan string, 16),
	}
}

// TriggerFetch requests an on-demand fetch for one symbol. Fire-and-forget:
// if the trigger queue is full the request is dropped, the next scheduled
// cycle covers it anyway.
func (c *ChainScheduler) TriggerFetch(symbol string) {
	select {
	case c.trigger <- symbol:
		c.logger.Infof("Manual trigger for %s option chain fetch", symbol)
	default:
		c.logger.Warnf("Trigger queue full, dropping manual fetch for %s", symbol)
	}
}

// Run blocks until ctx is cancelled.
func (c *ChainScheduler) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(c.initialDelay):
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if c.gateFetches && !c.session.IsOpen(c.now()) {
				c.logger.Debug("Outside market hours, skipping option chain fetch")
				continue
			}
			for _, symbol := range c.symbols {
				c.fetchOne(ctx, symbol)
			}

		case symbol := <-c.trigger:
			// Manual triggers bypass the session gate.
			c.fetchOne(ctx, symbol)
		}
	}
}

// fetchOne computes, persists, and broadcasts one symbol's analytics.
// Failures are logged and never affect other symbols or the schedule.
func (c *ChainScheduler) fetchOne(ctx context.Context, symbol string) {
	snap, err := c.engine.BuildSnapshot(ctx, symbol)
	if err != nil {
		c.logger.Errorf("Failed to fetch %s option chain: %v", symbol, err)
		return
	}

	if err := c.store.SaveChainSnapshot(ctx, snap); err != nil {
		c.logger.Errorf("Failed to persist %s option chain snapshot: %v", symbol, err)
		return
	}

	c.logger.Infof("%s option chain updated: PCR=%.2f, Sentiment=%s", symbol, snap.PCR, snap.Sentiment)
	c.broadcast(snap)
}

func (c *ChainScheduler) broadcast(snap *optionchain.Snapshot) {
	c.hub.Publish(hub.Event{
		Type:   hub.EventOptionChainUpdate,
		Symbol: snap.Symbol,
		Data: map[string]any{
			"symbol":            snap.Symbol,
			"spotPrice":         snap.SpotPrice,
			"atmStrike":         snap.ATMStrike,
			"strikes":           snap.Strikes,
			"pcr":               snap.PCR,
			"pcrInterpretation": snap.PCRInterpretation,
			"maxPainStrike":     snap.MaxPainStrike,
			"oiTrend":           snap.OITrend,
			"sentiment":         snap.Sentiment,
			"timestamp":         snap.Timestamp,
		},
	})

	analysis := optionchain.Analyze(snap)
	c.hub.Publish(hub.Event{
		Type:   hub.EventOIAnalysisUpdate,
		Symbol: snap.Symbol,
		Data: map[string]any{
			"symbol":          analysis.Symbol,
			"pcr":             analysis.PCR,
			"maxPainStrike":   analysis.MaxPainStrike,
			"maxPainDistance": analysis.MaxPainDistance,
			"oiTrend":         analysis.OITrend,
			"sentiment":       analysis.Sentiment,
			"bullishScore":    analysis.BullishScore,
			"bearishScore":    analysis.BearishScore,
			"patternStrength": analysis.PatternStrength,
			"timestamp":       analysis.Timestamp,
		},
	})

	c.hub.Publish(hub.Event{
		Type:   hub.EventStrikeRecommendation,
		Symbol: snap.Symbol,
		Data: map[string]any{
			"symbol":          snap.Symbol,
			"recommendations": optionchain.Recommend(snap),
		},
	})
}
