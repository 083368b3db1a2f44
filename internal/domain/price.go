package domain

import "time"

// Price is the most recent ticker for one canonical pair on one exchange,
// as stored in the price cache.
type Price struct {
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume24h float64   `json:"volume_24h"`
	Time      time.Time `json:"time"`
}

// Key identifies the price inside a snapshot, keyed the same way the spread
// engine looks prices up.
func (p Price) Key() string {
	return p.Exchange + ":" + p.Symbol
}
