package feed

import (
	"encoding/json"
	"fmt"
)

// subscribeMessage is the outbound subscription sent once per connection.
type subscribeMessage struct {
	Type             string   `json:"type"`
	SymbolList       []string `json:"symbolList"`
	SubscriptionType int      `json:"subscriptionType"`
}

func newSubscribeMessage(canonical []string) subscribeMessage {
	providers := make([]string, 0, len(canonical))
	for _, sym := range canonical {
		providers = append(providers, ToProvider(sym))
	}
	return subscribeMessage{
		Type:             "SUB_L2",
		SymbolList:       providers,
		SubscriptionType: 1,
	}
}

// Tick is one normalized data-feed message.
type Tick struct {
	ProviderSymbol string
	Last           float64
	Open           float64
	High           float64
	Low            float64
	Volume         int64
}

// dataFeedMessage mirrors the provider's data-feed payload. Only the fields
// the pipeline extracts are declared.
type dataFeedMessage struct {
	Type      string  `json:"T"`
	Symbol    string  `json:"s"`
	LastPrice float64 `json:"lp"`
	OpenPrice float64 `json:"op"`
	HighPrice float64 `json:"hp"`
	LowPrice  float64 `json:"low_price"`
	Volume    int64   `json:"v"`
}

// parseTick decodes an inbound message. ok is false for non-data-feed
// message types (heartbeats, acks); err is set for malformed payloads.
func parseTick(raw []byte) (tick Tick, ok bool, err error) {
	var msg dataFeedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Tick{}, false, fmt.Errorf("malformed feed message: %w", err)
	}

	if msg.Type != "df" {
		return Tick{}, false, nil
	}
	if msg.Symbol == "" {
		return Tick{}, false, fmt.Errorf("data feed message missing symbol")
	}

	return Tick{
		ProviderSymbol: msg.Symbol,
		Last:           msg.LastPrice,
		Open:           msg.OpenPrice,
		High:           msg.HighPrice,
		Low:            msg.LowPrice,
		Volume:         msg.Volume,
	}, true, nil
}
