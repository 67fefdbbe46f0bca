package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

const minswapVenue = "minswap"

// minswapPoolsQuery asks the Minswap aggregator for the top pools by TVL with
// their current mid price and rolling 24h volume in the quote asset.
const minswapPoolsQuery = `
query TopPools($limit: Int!) {
  topPools(limit: $limit) {
    assetA { ticker }
    assetB { ticker }
    priceAB
    volume24hB
  }
}`

// MinswapClient pulls pool prices from the Minswap GraphQL API.
type MinswapClient struct {
	http  httpClient
	limit int
}

// NewMinswapClient creates a Minswap adapter for the given GraphQL endpoint.
func NewMinswapClient(baseURL string, timeout time.Duration) *MinswapClient {
	return &MinswapClient{
		http:  newHTTPClient(baseURL, timeout),
		limit: 50,
	}
}

// Venue returns the venue identifier.
func (c *MinswapClient) Venue() string { return minswapVenue }

type minswapPool struct {
	AssetA struct {
		Ticker string `json:"ticker"`
	} `json:"assetA"`
	AssetB struct {
		Ticker string `json:"ticker"`
	} `json:"assetB"`
	PriceAB    float64 `json:"priceAB"`
	Volume24hB float64 `json:"volume24hB"`
}

// Fetch returns one observation per pool, pair spelled "A/B".
func (c *MinswapClient) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	var data struct {
		TopPools []minswapPool `json:"topPools"`
	}
	if err := c.http.postGraphQL(ctx, minswapPoolsQuery, map[string]any{"limit": c.limit}, &data); err != nil {
		return nil, fmt.Errorf("minswap: %w", err)
	}

	now := time.Now().UTC()
	obs := make([]domain.PriceObservation, 0, len(data.TopPools))
	for _, p := range data.TopPools {
		if p.AssetA.Ticker == "" || p.AssetB.Ticker == "" {
			continue
		}
		obs = append(obs, domain.PriceObservation{
			Pair:       p.AssetA.Ticker + "/" + p.AssetB.Ticker,
			Venue:      minswapVenue,
			Price:      p.PriceAB,
			Volume24h:  p.Volume24hB,
			ObservedAt: now,
		})
	}
	return obs, nil
}
