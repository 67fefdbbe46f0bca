package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

const sundaeswapVenue = "sundaeswap"

const sundaeswapPoolsQuery = `
query PoolsByTVL($page: Int!) {
  poolsPopular(page: $page) {
    assetA { ticker }
    assetB { ticker }
    price
    quantityB24h
  }
}`

// SundaeswapClient pulls pool stats from the SundaeSwap stats GraphQL API.
// Numeric fields arrive as decimal strings.
type SundaeswapClient struct {
	http httpClient
}

// NewSundaeswapClient creates a SundaeSwap adapter for the given endpoint.
func NewSundaeswapClient(baseURL string, timeout time.Duration) *SundaeswapClient {
	return &SundaeswapClient{http: newHTTPClient(baseURL, timeout)}
}

// Venue returns the venue identifier.
func (c *SundaeswapClient) Venue() string { return sundaeswapVenue }

type sundaeswapPool struct {
	AssetA struct {
		Ticker string `json:"ticker"`
	} `json:"assetA"`
	AssetB struct {
		Ticker string `json:"ticker"`
	} `json:"assetB"`
	Price        string `json:"price"`
	QuantityB24h string `json:"quantityB24h"`
}

// Fetch returns one observation per popular pool.
func (c *SundaeswapClient) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	var data struct {
		PoolsPopular []sundaeswapPool `json:"poolsPopular"`
	}
	if err := c.http.postGraphQL(ctx, sundaeswapPoolsQuery, map[string]any{"page": 0}, &data); err != nil {
		return nil, fmt.Errorf("sundaeswap: %w", err)
	}

	now := time.Now().UTC()
	obs := make([]domain.PriceObservation, 0, len(data.PoolsPopular))
	for _, p := range data.PoolsPopular {
		if p.AssetA.Ticker == "" || p.AssetB.Ticker == "" {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			continue
		}
		volume, err := strconv.ParseFloat(p.QuantityB24h, 64)
		if err != nil {
			continue
		}
		obs = append(obs, domain.PriceObservation{
			Pair:       p.AssetA.Ticker + "/" + p.AssetB.Ticker,
			Venue:      sundaeswapVenue,
			Price:      price,
			Volume24h:  volume,
			ObservedAt: now,
		})
	}
	return obs, nil
}
