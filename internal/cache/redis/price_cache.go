package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// defaultFreshness is how long a cached venue quote is considered current.
const defaultFreshness = 5 * time.Minute

// PriceCache implements domain.PriceCache using one Redis hash per pair.
// The hash at "price:{pair}" maps each venue to "{price}|{unix_nanos}", so a
// single HGETALL yields the full venue view the display path needs.
type PriceCache struct {
	rdb       *redis.Client
	freshness time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. freshness
// bounds how old a quote may be before reads drop it; zero uses the default.
func NewPriceCache(c *Client, freshness time.Duration) *PriceCache {
	if freshness <= 0 {
		freshness = defaultFreshness
	}
	return &PriceCache{rdb: c.Underlying(), freshness: freshness}
}

func priceKey(pair string) string {
	return "price:" + pair
}

func encodeQuote(price float64, ts time.Time) string {
	return strconv.FormatFloat(price, 'f', -1, 64) + "|" + strconv.FormatInt(ts.UnixNano(), 10)
}

func decodeQuote(raw string) (float64, time.Time, error) {
	priceStr, tsStr, ok := strings.Cut(raw, "|")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("malformed quote %q", raw)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse price %q: %w", priceStr, err)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse ts %q: %w", tsStr, err)
	}
	return price, time.Unix(0, tsNano), nil
}

// SetPrice stores the latest quote for a venue+pair. The pair hash expires
// after twice the freshness window so abandoned pairs clean themselves up.
func (pc *PriceCache) SetPrice(ctx context.Context, venue, pair string, price float64, ts time.Time) error {
	key := priceKey(pair)
	pipe := pc.rdb.Pipeline()
	pipe.HSet(ctx, key, venue, encodeQuote(price, ts))
	pipe.Expire(ctx, key, 2*pc.freshness)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s %s: %w", venue, pair, err)
	}
	return nil
}

// GetPrice retrieves the latest quote for a venue+pair. It returns
// domain.ErrNotFound when no fresh quote exists.
func (pc *PriceCache) GetPrice(ctx context.Context, venue, pair string) (float64, time.Time, error) {
	raw, err := pc.rdb.HGet(ctx, priceKey(pair), venue).Result()
	if err == redis.Nil {
		return 0, time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s %s: %w", venue, pair, err)
	}

	price, ts, err := decodeQuote(raw)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s %s: %w", venue, pair, err)
	}
	if time.Since(ts) > pc.freshness {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return price, ts, nil
}

// GetVenuePrices returns venue -> price for every venue holding a fresh quote
// for the pair. Stale or malformed entries are silently omitted.
func (pc *PriceCache) GetVenuePrices(ctx context.Context, pair string) (map[string]float64, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(pair)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: venue prices %s: %w", pair, err)
	}

	result := make(map[string]float64, len(vals))
	for venue, raw := range vals {
		price, ts, err := decodeQuote(raw)
		if err != nil {
			continue
		}
		if time.Since(ts) > pc.freshness {
			continue
		}
		result[venue] = price
	}
	return result, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
