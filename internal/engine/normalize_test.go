package engine

import (
	"testing"

	"github.com/cardexlabs/arbscan/internal/domain"
)

func testNormalizer() *Normalizer {
	return NewNormalizer([]string{"ADA", "MIN"}, []string{"coingecko"})
}

func obs(pair, venue string, price, volume float64) domain.PriceObservation {
	return domain.PriceObservation{Pair: pair, Venue: venue, Price: price, Volume24h: volume}
}

func TestNormalizeDropsInvalidObservations(t *testing.T) {
	n := testNormalizer()
	raw := []domain.PriceObservation{
		obs("ADA/USD", "minswap", 0.0005, 10_000),  // price below floor
		obs("ADA/USD", "minswap", 0.001, 10_000),   // boundary is exclusive
		obs("ADA/USD", "minswap", 100, 10_000),     // boundary is exclusive
		obs("ADA/USD", "minswap", 150, 10_000),     // price above ceiling
		obs("ADA/USD", "minswap", 0.40, 0),         // no volume
		obs("ADA/USD", "coingecko", 0.40, 10_000),  // reference-only venue
		obs("SHADY/USD", "minswap", 0.40, 10_000),  // unknown symbol
	}
	if groups := n.Normalize(raw); len(groups) != 0 {
		t.Fatalf("expected all observations dropped, got %d groups", len(groups))
	}
}

func TestNormalizeLiquidityAndVolumeFloors(t *testing.T) {
	n := testNormalizer()
	groups := n.Normalize([]domain.PriceObservation{
		obs("ADA/USD", "minswap", 0.40, 100_000),
		obs("ADA/USD", "sundaeswap", 0.41, 500),
	})

	list := groups["ADA/USD"]
	if len(list) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(list))
	}
	for _, o := range list {
		switch o.Venue {
		case "minswap":
			if o.Liquidity != 15_000 {
				t.Fatalf("minswap liquidity = %v, want 15000", o.Liquidity)
			}
			if o.Volume24h != 100_000 {
				t.Fatalf("minswap volume = %v, want 100000", o.Volume24h)
			}
		case "sundaeswap":
			// 500 * 0.15 = 75, floored to 1000; volume floored to 1000.
			if o.Liquidity != 1000 {
				t.Fatalf("sundaeswap liquidity = %v, want 1000", o.Liquidity)
			}
			if o.Volume24h != 1000 {
				t.Fatalf("sundaeswap volume = %v, want 1000", o.Volume24h)
			}
		}
	}
}

func TestNormalizeGroupsBySpelling(t *testing.T) {
	n := testNormalizer()
	groups := n.Normalize([]domain.PriceObservation{
		obs("ADA-USD", "minswap", 0.40, 50_000),
		obs("ada/usd", "sundaeswap", 0.41, 50_000),
		obs("ADA / USD", "muesliswap", 0.42, 50_000),
	})

	if len(groups) != 1 {
		t.Fatalf("expected one canonical group, got %d: %v", len(groups), groups)
	}
	if len(groups["ADA/USD"]) != 3 {
		t.Fatalf("expected 3 venues under ADA/USD, got %d", len(groups["ADA/USD"]))
	}
}

func TestNormalizeDedupsVenuePerPair(t *testing.T) {
	n := testNormalizer()
	groups := n.Normalize([]domain.PriceObservation{
		obs("ADA/USD", "minswap", 0.40, 50_000),
		obs("ADA-USD", "Minswap", 0.45, 60_000), // same venue, different spelling
	})

	list := groups["ADA/USD"]
	if len(list) != 1 {
		t.Fatalf("expected duplicate venue collapsed, got %d observations", len(list))
	}
	if list[0].Price != 0.40 {
		t.Fatalf("expected first observation kept, got price %v", list[0].Price)
	}
}
