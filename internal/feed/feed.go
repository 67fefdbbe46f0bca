// Package feed implements the venue price adapters and the aggregator that
// combines them into one observation batch per scan. Each venue gets its own
// adapter that maps the venue's raw payload shape onto domain.PriceObservation,
// keeping venue-specific parsing out of the engine.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// Adapter fetches one venue's current price observations.
type Adapter interface {
	Venue() string
	Fetch(ctx context.Context) ([]domain.PriceObservation, error)
}

// Aggregator implements domain.PriceFeed by fanning out to all configured
// adapters concurrently. A single venue failing is logged and tolerated; the
// scan proceeds on the remaining venues. Only a fully empty batch is an error.
type Aggregator struct {
	adapters []Adapter
	limiter  domain.RateLimiter
	logger   *slog.Logger

	// Per-venue API budget enforced when limiter is set.
	rateLimit  int
	rateWindow time.Duration
}

// NewAggregator creates an Aggregator over the given adapters. limiter may be
// nil, in which case venue calls are not rate limited.
func NewAggregator(adapters []Adapter, limiter domain.RateLimiter, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		adapters:   adapters,
		limiter:    limiter,
		logger:     logger.With(slog.String("component", "feed_aggregator")),
		rateLimit:  30,
		rateWindow: time.Minute,
	}
}

// Fetch collects observations from every adapter concurrently.
func (a *Aggregator) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	var (
		mu  sync.Mutex
		all []domain.PriceObservation
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, adapter := range a.adapters {
		g.Go(func() error {
			if !a.allow(ctx, adapter.Venue()) {
				return nil
			}
			obs, err := adapter.Fetch(ctx)
			if err != nil {
				a.logger.Warn("venue fetch failed",
					slog.String("venue", adapter.Venue()),
					slog.String("error", err.Error()),
				)
				return nil // tolerate single-venue failures
			}
			mu.Lock()
			all = append(all, obs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("feed: fetch: %w", err)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("feed: all %d venues failed: %w", len(a.adapters), domain.ErrFeedEmpty)
	}
	return all, nil
}

// allow consults the rate limiter for one venue call. Limiter failures fall
// open so a Redis outage cannot stall scanning.
func (a *Aggregator) allow(ctx context.Context, venue string) bool {
	if a.limiter == nil {
		return true
	}
	ok, err := a.limiter.Allow(ctx, "venue:"+venue, a.rateLimit, a.rateWindow)
	if err != nil {
		a.logger.Warn("rate limiter unavailable",
			slog.String("venue", venue),
			slog.String("error", err.Error()),
		)
		return true
	}
	if !ok {
		a.logger.Warn("venue call rate limited", slog.String("venue", venue))
	}
	return ok
}

// Compile-time interface check.
var _ domain.PriceFeed = (*Aggregator)(nil)
