package engine

import (
	"math"
	"testing"

	"github.com/cardexlabs/arbscan/internal/config"
	"github.com/cardexlabs/arbscan/internal/domain"
)

func testFeeModel() *FeeModel {
	return NewFeeModel(map[string]config.VenueFees{
		"minswap": {TradingFee: 0.003, WithdrawalFee: 0.0005, NetworkFee: 0.17, MinimumTrade: 10},
	}, 0.004)
}

func TestRateUnknownVenueUsesDefault(t *testing.T) {
	m := testFeeModel()
	for _, venue := range []string{"nosuchdex", "A", "B"} {
		if got := m.Rate(venue, 0.40); got != 0.004 {
			t.Fatalf("Rate(%q) = %v, want default 0.004", venue, got)
		}
	}
}

func TestRateKnownVenueIsStable(t *testing.T) {
	m := testFeeModel()
	want := 0.003 + 0.0005 + 0.17/0.40
	first := m.Rate("minswap", 0.40)
	if math.Abs(first-want) > 1e-12 {
		t.Fatalf("Rate(minswap, 0.40) = %v, want %v", first, want)
	}
	for i := 0; i < 5; i++ {
		if got := m.Rate("minswap", 0.40); got != first {
			t.Fatalf("Rate changed between calls: %v != %v", got, first)
		}
	}
	// Lookup is case-insensitive.
	if got := m.Rate("MinSwap", 0.40); got != first {
		t.Fatalf("Rate is case-sensitive: %v != %v", got, first)
	}
}

func TestLiquidityScoreBreakpoints(t *testing.T) {
	m := testFeeModel()
	cases := []struct {
		a, b float64
		want float64
	}{
		{600_000, 600_000, 95},
		{500_000, 500_000, 95},
		{250_000, 250_000, 85},
		{100_000, 100_000, 75},
		{50_000, 50_000, 65},
		{25_000, 25_000, 55},
		{10_000, 10_000, 45},
		{5_000, 5_000, 35}, // linear region: 25 + 0.5*20
		{0, 0, 25},
	}
	for _, tc := range cases {
		if got := m.LiquidityScore(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("LiquidityScore(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestLiquidityScoreMonotonic(t *testing.T) {
	m := testFeeModel()
	prev := -1.0
	for _, avg := range []float64{0, 2_000, 9_000, 10_000, 30_000, 60_000, 120_000, 300_000, 600_000} {
		got := m.LiquidityScore(avg, avg)
		if got < prev {
			t.Fatalf("LiquidityScore not monotonic at avg %v: %v < %v", avg, got, prev)
		}
		prev = got
	}
}

func TestSlippageRiskClamped(t *testing.T) {
	m := testFeeModel()

	// Tiny trade against a deep book clamps to the floor.
	if got := m.SlippageRisk(10, 100); got != 0.1 {
		t.Fatalf("SlippageRisk(10, 100) = %v, want 0.1", got)
	}
	// Huge trade against a shallow book clamps to the ceiling.
	if got := m.SlippageRisk(5000, 25); got != 6 {
		t.Fatalf("SlippageRisk(5000, 25) = %v, want 6", got)
	}
	// Mid-range: volume 100 at score 100 -> 100/50000*100 = 0.2, no impact.
	if got := m.SlippageRisk(100, 100); math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("SlippageRisk(100, 100) = %v, want 0.2", got)
	}
	// Above 400 units the market-impact penalty applies.
	want := (500.0/((45.0/100)*50_000))*100 + (500-400)*0.0005
	if got := m.SlippageRisk(500, 45); math.Abs(got-want) > 1e-9 {
		t.Fatalf("SlippageRisk(500, 45) = %v, want %v", got, want)
	}
}

func TestConfidenceClassification(t *testing.T) {
	m := testFeeModel()

	// 40 + 95*0.35 - 0.5*4 + 15 = 86.25 -> HIGH
	if got := m.Confidence(4, 95, 0.5, 0.02, 600); got != domain.ConfidenceHigh {
		t.Fatalf("expected HIGH, got %s", got)
	}
	// 30 + 85*0.35 - 0.5*4 + 10 = 67.75 -> MEDIUM
	if got := m.Confidence(3, 85, 0.5, 0.02, 400); got != domain.ConfidenceMedium {
		t.Fatalf("expected MEDIUM, got %s", got)
	}
	// 6 + 45*0.35 - 3*4 - 15 + 2.5 = -2.75 -> LOW
	if got := m.Confidence(0.6, 45, 3, 0.005, 100); got != domain.ConfidenceLow {
		t.Fatalf("expected LOW, got %s", got)
	}
}

func TestConfidenceSmallGapPenalty(t *testing.T) {
	m := testFeeModel()

	// Identical inputs except the price gap crossing the 0.01 penalty line.
	// 30 + 85*0.35 - 0.5*4 + 10 = 67.75 without penalty, 52.75 with it.
	wide := m.Confidence(3, 85, 0.5, 0.02, 400)
	narrow := m.Confidence(3, 85, 0.5, 0.005, 400)
	if wide != domain.ConfidenceMedium {
		t.Fatalf("wide gap: expected MEDIUM, got %s", wide)
	}
	if narrow != domain.ConfidenceLow {
		t.Fatalf("narrow gap: expected LOW after penalty, got %s", narrow)
	}
}
