package model

import "time"

// PriceSnapshot is the exported form of an oracle refresh.
type PriceSnapshot struct {
	FetchedAt      time.Time         `json:"fetched_at"`
	Pools          int               `json:"pools"`
	ReferencePrice string            `json:"reference_price"`
	TokenPrices    map[string]string `json:"token_prices"`
}
