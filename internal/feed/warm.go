package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// CacheWarmer decorates a domain.PriceFeed and copies every fetched
// observation into the price cache. This keeps reference-only quotes (which
// never reach the detector) available to the display path, and gives the
// ticker feed a fallback when the websocket is down. Cache failures are
// logged and never affect the fetch result.
type CacheWarmer struct {
	inner  domain.PriceFeed
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewCacheWarmer wraps feed so fetched observations also land in cache.
func NewCacheWarmer(inner domain.PriceFeed, cache domain.PriceCache, logger *slog.Logger) *CacheWarmer {
	return &CacheWarmer{
		inner:  inner,
		cache:  cache,
		logger: logger.With(slog.String("component", "cache_warmer")),
	}
}

// Fetch delegates to the wrapped feed and writes the batch through to the
// cache before returning it.
func (w *CacheWarmer) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	obs, err := w.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	for _, o := range obs {
		ts := o.ObservedAt
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if err := w.cache.SetPrice(ctx, o.Venue, o.Pair, o.Price, ts); err != nil {
			w.logger.Warn("price cache write failed",
				slog.String("venue", o.Venue),
				slog.String("pair", o.Pair),
				slog.String("error", err.Error()),
			)
			break // one failure means the cache is down; skip the rest
		}
	}
	return obs, nil
}

var _ domain.PriceFeed = (*CacheWarmer)(nil)
