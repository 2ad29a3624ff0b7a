package model

import "time"

// MarketSnapshot is the read model for the market_snapshot table.
type MarketSnapshot struct {
	Symbol          string    `gorm:"column:symbol" json:"symbol"`
	Price           float64   `gorm:"column:price;type:Float64" json:"price"`
	Open            float64   `gorm:"column:open;type:Float64" json:"open"`
	High            float64   `gorm:"column:high;type:Float64" json:"high"`
	Low             float64   `gorm:"column:low;type:Float64" json:"low"`
	Close           float64   `gorm:"column:close;type:Float64" json:"close"`
	Volume          int64     `gorm:"column:volume" json:"volume"`
	FuturesOI       int64     `gorm:"column:futures_oi" json:"futuresOI"`
	IntervalMinutes int32     `gorm:"column:interval_minutes" json:"intervalMinutes"`
	MarketOpen      bool      `gorm:"column:market_open" json:"marketOpen"`
	SnapshotTime    time.Time `gorm:"column:snapshot_time;type:DateTime64(3, 'Asia/Kolkata')" json:"snapshotTime"`
	InsertedAt      time.Time `gorm:"column:inserted_at;type:DateTime64(3, 'Asia/Kolkata');default:now()" json:"insertedAt"`
}

func (MarketSnapshot) TableName() string {
	return "market_snapshot"
}

// ChainSnapshot is the read model for the option_chain_snapshot table.
// Strikes holds the full ladder serialized as JSON.
type ChainSnapshot struct {
	Symbol            string    `gorm:"column:symbol" json:"symbol"`
	SpotPrice         float64   `gorm:"column:spot_price;type:Float64" json:"spotPrice"`
	ATMStrike         float64   `gorm:"column:atm_strike;type:Float64" json:"atmStrike"`
	Expiry            string    `gorm:"column:expiry" json:"expiry"`
	PCR               float64   `gorm:"column:pcr;type:Float64" json:"pcr"`
	PCRInterpretation string    `gorm:"column:pcr_interpretation" json:"pcrInterpretation"`
	MaxPainStrike     float64   `gorm:"column:max_pain_strike;type:Float64" json:"maxPainStrike"`
	NetCallOIChange   int64     `gorm:"column:net_call_oi_change" json:"netCallOIChange"`
	NetPutOIChange    int64     `gorm:"column:net_put_oi_change" json:"netPutOIChange"`
	OITrend           string    `gorm:"column:oi_trend" json:"oiTrend"`
	Sentiment         string    `gorm:"column:sentiment" json:"sentiment"`
	Source            string    `gorm:"column:source" json:"source"`
	Strikes           string    `gorm:"column:strikes" json:"-"`
	SnapshotTime      time.Time `gorm:"column:snapshot_time;type:DateTime64(3, 'Asia/Kolkata')" json:"snapshotTime"`
	InsertedAt        time.Time `gorm:"column:inserted_at;type:DateTime64(3, 'Asia/Kolkata');default:now()" json:"insertedAt"`
}

func (ChainSnapshot) TableName() string {
	return "option_chain_snapshot"
}
