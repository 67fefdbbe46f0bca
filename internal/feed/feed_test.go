package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMuesliswapFetchParsesTokenList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"info": {"symbol": "MIN", "quoteCurrency": "ADA"}, "price": {"price": 0.042, "volume24h": 125000}},
			{"info": {"symbol": "HOSKY"}, "price": {"price": 0.0000031, "volume24h": 900}},
			{"info": {"symbol": ""}, "price": {"price": 1.0, "volume24h": 10}}
		]`)
	}))
	defer srv.Close()

	client := NewMuesliswapClient(srv.URL, time.Second)
	obs, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].Pair != "MIN/ADA" || obs[0].Venue != "muesliswap" {
		t.Errorf("unexpected first observation: %+v", obs[0])
	}
	if obs[0].Price != 0.042 || obs[0].Volume24h != 125000 {
		t.Errorf("unexpected price fields: %+v", obs[0])
	}
	// Missing quote currency defaults to ADA.
	if obs[1].Pair != "HOSKY/ADA" {
		t.Errorf("expected HOSKY/ADA, got %q", obs[1].Pair)
	}
}

func TestMinswapFetchParsesGraphQLEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data": {"topPools": [
			{"assetA": {"ticker": "ADA"}, "assetB": {"ticker": "MIN"}, "priceAB": 23.8, "volume24hB": 480000},
			{"assetA": {"ticker": ""}, "assetB": {"ticker": "SUNDAE"}, "priceAB": 1.1, "volume24hB": 50}
		]}}`)
	}))
	defer srv.Close()

	client := NewMinswapClient(srv.URL, time.Second)
	obs, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if obs[0].Pair != "ADA/MIN" || obs[0].Price != 23.8 {
		t.Errorf("unexpected observation: %+v", obs[0])
	}
}

func TestMinswapFetchSurfacesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errors": [{"message": "rate limited"}]}`)
	}))
	defer srv.Close()

	client := NewMinswapClient(srv.URL, time.Second)
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for GraphQL error envelope")
	}
}

type fakeAdapter struct {
	venue string
	obs   []domain.PriceObservation
	err   error
}

func (f fakeAdapter) Venue() string { return f.venue }

func (f fakeAdapter) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	return f.obs, f.err
}

func TestAggregatorToleratesSingleVenueFailure(t *testing.T) {
	ok := fakeAdapter{
		venue: "minswap",
		obs: []domain.PriceObservation{
			{Pair: "ADA/USD", Venue: "minswap", Price: 0.40, Volume24h: 1000},
		},
	}
	broken := fakeAdapter{venue: "sundaeswap", err: errors.New("timeout")}

	agg := NewAggregator([]Adapter{ok, broken}, nil, discardLogger())
	obs, err := agg.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(obs) != 1 || obs[0].Venue != "minswap" {
		t.Fatalf("expected the healthy venue's observations, got %+v", obs)
	}
}

type denyLimiter struct {
	denied string
}

func (d denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return key != "venue:"+d.denied, nil
}

func TestAggregatorSkipsRateLimitedVenue(t *testing.T) {
	fast := fakeAdapter{
		venue: "minswap",
		obs: []domain.PriceObservation{
			{Pair: "ADA/USD", Venue: "minswap", Price: 0.40, Volume24h: 1000},
		},
	}
	throttled := fakeAdapter{
		venue: "sundaeswap",
		obs: []domain.PriceObservation{
			{Pair: "ADA/USD", Venue: "sundaeswap", Price: 0.41, Volume24h: 1000},
		},
	}

	agg := NewAggregator([]Adapter{fast, throttled}, denyLimiter{denied: "sundaeswap"}, discardLogger())
	obs, err := agg.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(obs) != 1 || obs[0].Venue != "minswap" {
		t.Fatalf("rate-limited venue must be skipped, got %+v", obs)
	}
}

func TestAggregatorErrsWhenAllVenuesFail(t *testing.T) {
	a := fakeAdapter{venue: "minswap", err: errors.New("down")}
	b := fakeAdapter{venue: "wingriders", err: errors.New("down")}

	agg := NewAggregator([]Adapter{a, b}, nil, discardLogger())
	if _, err := agg.Fetch(context.Background()); !errors.Is(err, domain.ErrFeedEmpty) {
		t.Fatalf("expected ErrFeedEmpty, got %v", err)
	}
}

type recordingCache struct {
	writes []string
	err    error
}

func (r *recordingCache) SetPrice(ctx context.Context, venue, pair string, price float64, ts time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, venue+":"+pair)
	return nil
}

func (r *recordingCache) GetPrice(ctx context.Context, venue, pair string) (float64, time.Time, error) {
	return 0, time.Time{}, domain.ErrNotFound
}

func (r *recordingCache) GetVenuePrices(ctx context.Context, pair string) (map[string]float64, error) {
	return nil, nil
}

func TestCacheWarmerWritesThroughAllObservations(t *testing.T) {
	inner := fakeAdapter{
		venue: "coingecko",
		obs: []domain.PriceObservation{
			{Pair: "ADA/USD", Venue: "coingecko", Price: 0.40, Volume24h: 1000},
			{Pair: "MIN/ADA", Venue: "minswap", Price: 0.05, Volume24h: 5000},
		},
	}
	cache := &recordingCache{}

	warm := NewCacheWarmer(NewAggregator([]Adapter{inner}, nil, discardLogger()), cache, discardLogger())
	obs, err := warm.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if len(cache.writes) != 2 || cache.writes[0] != "coingecko:ADA/USD" {
		t.Fatalf("expected both observations cached, got %v", cache.writes)
	}
}

func TestCacheWarmerToleratesCacheOutage(t *testing.T) {
	inner := fakeAdapter{
		venue: "minswap",
		obs: []domain.PriceObservation{
			{Pair: "ADA/USD", Venue: "minswap", Price: 0.40, Volume24h: 1000},
		},
	}
	cache := &recordingCache{err: errors.New("connection refused")}

	warm := NewCacheWarmer(NewAggregator([]Adapter{inner}, nil, discardLogger()), cache, discardLogger())
	obs, err := warm.Fetch(context.Background())
	if err != nil {
		t.Fatalf("cache outage must not fail the fetch: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
}
