// Package engine implements the arbitrage detection pipeline: normalization
// of raw venue observations, pairwise cross-venue opportunity detection with
// fee-adjusted profit, confidence scoring, ranking, and the scan orchestrator
// that drives it all on a cadence.
package engine

import (
	"math"
	"strings"

	"github.com/cardexlabs/arbscan/internal/config"
	"github.com/cardexlabs/arbscan/internal/domain"
)

// FeeModel encapsulates all venue-specific and risk-derived numeric policy:
// the static fee schedule lookup, liquidity scoring, slippage estimation, and
// the confidence classification rubric.
type FeeModel struct {
	schedules   map[string]config.VenueFees
	defaultRate float64
}

// NewFeeModel creates a FeeModel from an injected fee table. Venue lookup is
// case-insensitive; venues absent from the table fall back to defaultRate as
// a flat per-unit fee.
func NewFeeModel(schedules map[string]config.VenueFees, defaultRate float64) *FeeModel {
	table := make(map[string]config.VenueFees, len(schedules))
	for name, fees := range schedules {
		table[strings.ToLower(name)] = fees
	}
	return &FeeModel{schedules: table, defaultRate: defaultRate}
}

// Rate returns the total per-unit fee rate for trading at a venue at the given
// price: trading fee plus withdrawal fee plus the fixed network fee amortized
// per unit at the current price. Unknown venues get the flat default rate.
func (m *FeeModel) Rate(venue string, price float64) float64 {
	fees, ok := m.schedules[strings.ToLower(venue)]
	if !ok {
		return m.defaultRate
	}
	rate := fees.TradingFee + fees.WithdrawalFee
	if price > 0 {
		rate += fees.NetworkFee / price
	}
	return rate
}

// MinimumTrade returns the venue's minimum trade size, or zero for unknown
// venues.
func (m *FeeModel) MinimumTrade(venue string) float64 {
	return m.schedules[strings.ToLower(venue)].MinimumTrade
}

// LiquidityScore maps the average of two liquidity estimates onto [0,100] via
// fixed breakpoints. Below the lowest breakpoint the score scales linearly and
// is capped to [25,45].
func (m *FeeModel) LiquidityScore(liquidityA, liquidityB float64) float64 {
	avg := (liquidityA + liquidityB) / 2
	switch {
	case avg >= 500_000:
		return 95
	case avg >= 250_000:
		return 85
	case avg >= 100_000:
		return 75
	case avg >= 50_000:
		return 65
	case avg >= 25_000:
		return 55
	case avg >= 10_000:
		return 45
	default:
		score := 25 + (avg/10_000)*20
		return clamp(score, 25, 45)
	}
}

// SlippageRisk estimates the percentage price impact of executing a trade of
// the given volume against a market with the given liquidity score. A
// market-impact penalty kicks in above 400 units; the result is clamped to
// [0.1, 6].
func (m *FeeModel) SlippageRisk(volume, liquidityScore float64) float64 {
	depth := (liquidityScore / 100) * 50_000
	if depth <= 0 {
		return 6
	}
	base := (volume / depth) * 100
	impact := math.Max(0, (volume-400)*0.0005)
	return clamp(base+impact, 0.1, 6)
}

// Confidence classifies an opportunity as HIGH, MEDIUM, or LOW using a fixed
// heuristic rubric. This is a scoring rubric, not a statistical model; the
// breakpoints and weights are load-bearing and mirrored by the tests.
func (m *FeeModel) Confidence(profitPct, liquidityScore, slippageRisk, priceDiff, volume float64) domain.Confidence {
	score := math.Min(40, profitPct*10)
	score += liquidityScore * 0.35
	score -= slippageRisk * 4
	if priceDiff < 0.01 {
		score -= 15
	}
	score += math.Min(15, volume/40)

	switch {
	case score > 80:
		return domain.ConfidenceHigh
	case score > 60:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
