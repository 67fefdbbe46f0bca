package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

const muesliswapVenue = "muesliswap"

// MuesliswapClient pulls the token list with prices from the MuesliSwap REST
// API.
type MuesliswapClient struct {
	http httpClient
}

// NewMuesliswapClient creates a MuesliSwap adapter for the given endpoint.
func NewMuesliswapClient(baseURL string, timeout time.Duration) *MuesliswapClient {
	return &MuesliswapClient{http: newHTTPClient(baseURL, timeout)}
}

// Venue returns the venue identifier.
func (c *MuesliswapClient) Venue() string { return muesliswapVenue }

type muesliswapToken struct {
	Info struct {
		Symbol        string `json:"symbol"`
		QuoteCurrency string `json:"quoteCurrency"`
	} `json:"info"`
	Price struct {
		Price     float64 `json:"price"`
		Volume24h float64 `json:"volume24h"`
	} `json:"price"`
}

// Fetch returns one observation per listed token against its quote currency.
func (c *MuesliswapClient) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	var tokens []muesliswapToken
	if err := c.http.getJSON(ctx, "", &tokens); err != nil {
		return nil, fmt.Errorf("muesliswap: %w", err)
	}

	now := time.Now().UTC()
	obs := make([]domain.PriceObservation, 0, len(tokens))
	for _, t := range tokens {
		if t.Info.Symbol == "" {
			continue
		}
		quote := t.Info.QuoteCurrency
		if quote == "" {
			quote = "ADA"
		}
		obs = append(obs, domain.PriceObservation{
			Pair:       t.Info.Symbol + "/" + quote,
			Venue:      muesliswapVenue,
			Price:      t.Price.Price,
			Volume24h:  t.Price.Volume24h,
			ObservedAt: now,
		})
	}
	return obs, nil
}
