package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// coingeckoVenue is a reference-only aggregator: its observations feed the
// display-price path but are excluded from arbitrage detection by the
// normalizer.
const coingeckoVenue = "coingecko"

// CoinGeckoClient pulls fiat reference prices from the CoinGecko simple-price
// API.
type CoinGeckoClient struct {
	http httpClient
	// ids maps CoinGecko coin ids to the ticker symbol used in pair keys.
	ids map[string]string
}

// NewCoinGeckoClient creates a CoinGecko adapter. The default watchlist covers
// the symbols the scanner tracks.
func NewCoinGeckoClient(baseURL string, timeout time.Duration) *CoinGeckoClient {
	return &CoinGeckoClient{
		http: newHTTPClient(baseURL, timeout),
		ids: map[string]string{
			"cardano":    "ADA",
			"minswap":    "MIN",
			"sundaeswap": "SUNDAE",
			"muesliswap": "MILK",
			"wingriders": "WRT",
		},
	}
}

// Venue returns the venue identifier.
func (c *CoinGeckoClient) Venue() string { return coingeckoVenue }

// Fetch returns one USD observation per watched coin.
func (c *CoinGeckoClient) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_vol", "true")

	var prices map[string]struct {
		USD    float64 `json:"usd"`
		USDVol float64 `json:"usd_24h_vol"`
	}
	if err := c.http.getJSON(ctx, "/simple/price?"+params.Encode(), &prices); err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}

	now := time.Now().UTC()
	obs := make([]domain.PriceObservation, 0, len(prices))
	for id, p := range prices {
		symbol, ok := c.ids[id]
		if !ok {
			continue
		}
		obs = append(obs, domain.PriceObservation{
			Pair:       symbol + "/USD",
			Venue:      coingeckoVenue,
			Price:      p.USD,
			Volume24h:  p.USDVol,
			ObservedAt: now,
		})
	}
	return obs, nil
}
