package domain

import "time"

// SpreadRecord is one cross-exchange arbitrage opportunity, derived fresh on
// every computation cycle and never stored authoritatively.
type SpreadRecord struct {
	ExchangeA     string        `json:"exchangeA"`
	ExchangeB     string        `json:"exchangeB"`
	Pair          string        `json:"pair"`
	BuyExchange   string        `json:"buyExchange"`
	SellExchange  string        `json:"sellExchange"`
	Bid           float64       `json:"bid"`
	Ask           float64       `json:"ask"`
	PercentSpread float64       `json:"percentSpread"`
	LowestVolume  float64       `json:"lowestVolume"`
	BuyTime       time.Time     `json:"buyExchangeTime"`
	SellTime      time.Time     `json:"sellExchangeTime"`
	DeltaTime     time.Duration `json:"deltaTime"` // staleness signal between the two tickers
}

// LookupKey addresses the record in a cycle's lookup table.
func (s SpreadRecord) LookupKey() string {
	return s.BuyExchange + ":" + s.SellExchange + ":" + s.Pair
}
