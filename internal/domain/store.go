package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// PriceFeed returns one batch of raw price observations across all venues.
// The scanner has no opinion on how the batch is obtained.
type PriceFeed interface {
	Fetch(ctx context.Context) ([]PriceObservation, error)
}

// OpportunityStore persists ranked opportunities. Rows are keyed conceptually
// by (pair, buy_venue, sell_venue); ReplaceForPairs deletes existing rows for
// each incoming key before inserting, so repeated scans stay idempotent.
type OpportunityStore interface {
	ReplaceForPairs(ctx context.Context, opps []Opportunity) error
	ListActive(ctx context.Context, opts ListOpts) ([]Opportunity, error)
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	Deactivate(ctx context.Context, id string) error
	// PruneStale removes rows detected more than olderThan ago and returns
	// the number deleted. Routine housekeeping, roughly hourly.
	PruneStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Count(ctx context.Context) (int64, error)
}
