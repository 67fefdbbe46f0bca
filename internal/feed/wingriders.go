package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

const wingridersVenue = "wingriders"

// WingridersClient pulls market summaries from the WingRiders REST API.
type WingridersClient struct {
	http httpClient
}

// NewWingridersClient creates a WingRiders adapter for the given endpoint.
func NewWingridersClient(baseURL string, timeout time.Duration) *WingridersClient {
	return &WingridersClient{http: newHTTPClient(baseURL, timeout)}
}

// Venue returns the venue identifier.
func (c *WingridersClient) Venue() string { return wingridersVenue }

type wingridersMarket struct {
	Base      string  `json:"base"`
	Quote     string  `json:"quote"`
	LastPrice float64 `json:"lastPrice"`
	Volume24h float64 `json:"volume24h"`
}

// Fetch returns one observation per market.
func (c *WingridersClient) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	var markets []wingridersMarket
	if err := c.http.getJSON(ctx, "", &markets); err != nil {
		return nil, fmt.Errorf("wingriders: %w", err)
	}

	now := time.Now().UTC()
	obs := make([]domain.PriceObservation, 0, len(markets))
	for _, m := range markets {
		if m.Base == "" || m.Quote == "" {
			continue
		}
		obs = append(obs, domain.PriceObservation{
			Pair:       m.Base + "/" + m.Quote,
			Venue:      wingridersVenue,
			Price:      m.LastPrice,
			Volume24h:  m.Volume24h,
			ObservedAt: now,
		})
	}
	return obs, nil
}
