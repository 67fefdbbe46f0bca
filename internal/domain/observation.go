// Package domain defines the core types shared across the scanner: price
// observations, arbitrage opportunities, and the store/cache interfaces
// implemented by the infrastructure packages.
package domain

import "time"

// PriceObservation is one price sample for a trading pair at a venue, as
// produced by a feed adapter. Liquidity is an internal estimate derived from
// 24h volume during normalization; adapters leave it zero.
type PriceObservation struct {
	Pair       string
	Venue      string
	Price      float64
	Volume24h  float64
	Liquidity  float64
	ObservedAt time.Time
}

// GroupedObservations maps a canonical pair key to the observations collected
// for it, one per venue.
type GroupedObservations map[string][]PriceObservation
