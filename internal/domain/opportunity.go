package domain

import (
	"fmt"
	"time"
)

// Confidence is the coarse heuristic classification of an opportunity,
// summarizing profit, liquidity, and slippage into one ranking signal.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Weight returns the ranking weight of a confidence level. Unknown values
// weigh the same as LOW so the function is total.
func (c Confidence) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// Opportunity is one fee-adjusted cross-venue arbitrage candidate. Candidates
// are created fresh on every scan pass and never mutated afterwards; each scan
// produces an entirely new set.
type Opportunity struct {
	ID         string
	Pair       string
	BuyVenue   string
	SellVenue  string
	BuyPrice   float64
	SellPrice  float64

	// GrossPriceDiff is the absolute price gap between the two venues.
	GrossPriceDiff float64

	// VolumeAvailable is the conservatively sized trade volume, bounded by a
	// fraction of each side's 24h volume and liquidity plus an absolute cap.
	VolumeAvailable float64

	// TotalFees is the per-unit fee sum across both venues.
	TotalFees    float64
	NetProfit    float64
	NetProfitPct float64

	LiquidityScore float64 // [0,100]
	SlippageRisk   float64 // percent, [0.1,6]
	Confidence     Confidence

	// TimeToExpiry is the validity window after DetectedAt; past it the
	// candidate is stale.
	TimeToExpiry time.Duration

	// ExecutionReady marks candidates that clear the stricter bar suitable
	// for automatic execution, distinct from merely being shown to a user.
	ExecutionReady bool

	DetectedAt time.Time
}

// Key identifies the economic opportunity independent of the generated ID.
// The store uses it for delete-before-insert idempotency.
func (o Opportunity) Key() string {
	return fmt.Sprintf("%s|%s|%s", o.Pair, o.BuyVenue, o.SellVenue)
}

// ExpiresAt returns the instant the candidate goes stale.
func (o Opportunity) ExpiresAt() time.Time {
	return o.DetectedAt.Add(o.TimeToExpiry)
}
