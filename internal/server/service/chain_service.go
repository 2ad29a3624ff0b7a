package service

import (
	"encoding/json"
	"fmt"

	"github.com/intraday-pulse/pulse/internal/optionchain"
	"github.com/intraday-pulse/pulse/internal/server/model"
	"github.com/intraday-pulse/pulse/internal/server/repository"
)

// FetchTrigger requests an on-demand option-chain fetch.
type FetchTrigger interface {
	TriggerFetch(symbol string)
}

// ChainView is the API shape for one option-chain snapshot with its ladder
// decoded.
type ChainView struct {
	model.ChainSnapshot
	Strikes []optionchain.StrikeEntry `json:"strikes"`
}

// ChainService serves persisted option-chain snapshots and the analytics
// derived from them.
type ChainService struct {
	repo    repository.SnapshotRepository
	trigger FetchTrigger
}

func NewChainService(repo repository.SnapshotRepository, trigger FetchTrigger) *ChainService {
	return &ChainService{
		repo:    repo,
		trigger: trigger,
	}
}

// Latest returns the most recent chain snapshot with its strike ladder.
func (cs *ChainService) Latest(symbol string) (*ChainView, error) {
	row, err := cs.repo.GetLatestChainSnapshot(symbol)
	if err != nil {
		return nil, err
	}
	return toView(row)
}

// History returns the last limit chain snapshots, newest first. Ladders are
// omitted to keep the payload small.
func (cs *ChainService) History(symbol string, limit int) ([]model.ChainSnapshot, error) {
	return cs.repo.GetRecentChainSnapshots(symbol, limit)
}

// Analysis recomputes the OI analysis from the latest persisted snapshot.
func (cs *ChainService) Analysis(symbol string) (optionchain.OIAnalysis, error) {
	snap, err := cs.latestSnapshot(symbol)
	if err != nil {
		return optionchain.OIAnalysis{}, err
	}
	return optionchain.Analyze(snap), nil
}

// Recommendations recomputes strike recommendations from the latest
// persisted snapshot.
func (cs *ChainService) Recommendations(symbol string) ([]optionchain.StrikeRecommendation, error) {
	snap, err := cs.latestSnapshot(symbol)
	if err != nil {
		return nil, err
	}
	return optionchain.Recommend(snap), nil
}

// RequestFetch queues an on-demand fetch for the symbol.
func (cs *ChainService) RequestFetch(symbol string) {
	cs.trigger.TriggerFetch(symbol)
}

func (cs *ChainService) latestSnapshot(symbol string) (*optionchain.Snapshot, error) {
	row, err := cs.repo.GetLatestChainSnapshot(symbol)
	if err != nil {
		return nil, err
	}

	var strikes []optionchain.StrikeEntry
	if err := json.Unmarshal([]byte(row.Strikes), &strikes); err != nil {
		return nil, fmt.Errorf("failed to decode stored ladder for %s: %w", symbol, err)
	}

	return &optionchain.Snapshot{
		Symbol:            row.Symbol,
		SpotPrice:         row.SpotPrice,
		ATMStrike:         row.ATMStrike,
		Strikes:           strikes,
		PCR:               row.PCR,
		PCRInterpretation: row.PCRInterpretation,
		MaxPainStrike:     row.MaxPainStrike,
		NetCallOIChange:   row.NetCallOIChange,
		NetPutOIChange:    row.NetPutOIChange,
		OITrend:           row.OITrend,
		Sentiment:         row.Sentiment,
		Timestamp:         row.SnapshotTime,
		Source:            row.Source,
		Expiry:            row.Expiry,
	}, nil
}

func toView(row *model.ChainSnapshot) (*ChainView, error) {
	var strikes []optionchain.StrikeEntry
	if err := json.Unmarshal([]byte(row.Strikes), &strikes); err != nil {
		return nil, fmt.Errorf("failed to decode stored ladder for %s: %w", row.Symbol, err)
	}
	return &ChainView{ChainSnapshot: *row, Strikes: strikes}, nil
}
