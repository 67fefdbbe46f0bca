package domain

import (
	"context"
	"time"
)

// PriceCache stores the most recent price per venue+pair so the API and the
// live ticker feed can serve display prices between scan cycles.
type PriceCache interface {
	SetPrice(ctx context.Context, venue, pair string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, venue, pair string) (float64, time.Time, error)
	// GetVenuePrices returns venue -> price for every venue holding a fresh
	// quote for the pair.
	GetVenuePrices(ctx context.Context, pair string) (map[string]float64, error)
}

// RateLimiter bounds outbound venue API calls with a sliding window per key.
type RateLimiter interface {
	// Allow reports whether one more request for key is permitted under
	// limit requests per window, counting the request when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage is one entry read back from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus publishes scan events to downstream consumers and appends scan
// summaries to a durable, bounded stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
