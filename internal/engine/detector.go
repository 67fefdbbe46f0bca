package engine

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// DetectorConfig holds the detection thresholds. Zero values are replaced by
// the production defaults in NewDetector.
type DetectorConfig struct {
	// MinPriceGap is the noise floor on the absolute price difference.
	MinPriceGap float64
	// MinRawProfitPct / MaxRawProfitPct bound the raw (pre-fee) profit
	// percentage. The upper bound guards against implausible gaps from bad
	// feed data.
	MinRawProfitPct float64
	MaxRawProfitPct float64
	// MaxTradeVolume is the absolute sizing ceiling.
	MaxTradeVolume float64
	// ExecutionFloor is the net profit a HIGH-confidence candidate must clear
	// to be flagged execution-ready.
	ExecutionFloor float64
	// Expiry is the candidate validity window.
	Expiry time.Duration
}

// Detector turns grouped observations into fee-adjusted opportunity
// candidates by enumerating every venue combination per pair.
type Detector struct {
	fees   *FeeModel
	cfg    DetectorConfig
	logger *slog.Logger
}

// NewDetector creates a Detector using the given fee model and thresholds.
func NewDetector(fees *FeeModel, cfg DetectorConfig, logger *slog.Logger) *Detector {
	if cfg.MinPriceGap <= 0 {
		cfg.MinPriceGap = 0.001
	}
	if cfg.MinRawProfitPct <= 0 {
		cfg.MinRawProfitPct = 0.5
	}
	if cfg.MaxRawProfitPct <= 0 {
		cfg.MaxRawProfitPct = 15
	}
	if cfg.MaxTradeVolume <= 0 {
		cfg.MaxTradeVolume = 500
	}
	if cfg.ExecutionFloor <= 0 {
		cfg.ExecutionFloor = 5
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 120 * time.Second
	}
	return &Detector{
		fees:   fees,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "detector")),
	}
}

// Detect enumerates every unordered venue combination for each pair with at
// least two observations and emits one candidate per qualifying price gap.
// A failure computing one combination skips that candidate only; one bad
// observation must not abort the whole scan.
func (d *Detector) Detect(groups domain.GroupedObservations) []domain.Opportunity {
	var out []domain.Opportunity

	for pair, observations := range groups {
		if len(observations) < 2 {
			continue
		}
		for i := 0; i < len(observations); i++ {
			for j := i + 1; j < len(observations); j++ {
				opp, ok := d.evaluate(pair, observations[i], observations[j])
				if !ok {
					continue
				}
				out = append(out, opp)
			}
		}
	}

	return out
}

// evaluate computes one candidate for a venue combination, returning ok=false
// when the combination does not qualify or cannot be priced safely.
func (d *Detector) evaluate(pair string, a, b domain.PriceObservation) (domain.Opportunity, bool) {
	// Grouping already dedups venues per pair, but guard anyway.
	if strings.EqualFold(a.Venue, b.Venue) {
		return domain.Opportunity{}, false
	}

	priceDiff := math.Abs(a.Price - b.Price)
	if priceDiff < d.cfg.MinPriceGap {
		return domain.Opportunity{}, false
	}

	// Orient: buy at the cheaper venue, sell at the pricier one.
	buy, sell := a, b
	if buy.Price > sell.Price {
		buy, sell = sell, buy
	}
	if buy.Price <= 0 {
		d.logger.Warn("skipping candidate with non-positive buy price",
			slog.String("pair", pair),
			slog.String("venue", buy.Venue),
		)
		return domain.Opportunity{}, false
	}

	rawProfitPct := priceDiff / buy.Price * 100
	if rawProfitPct <= d.cfg.MinRawProfitPct || rawProfitPct >= d.cfg.MaxRawProfitPct {
		return domain.Opportunity{}, false
	}

	volume := d.sizeVolume(buy, sell)
	if volume <= 0 {
		return domain.Opportunity{}, false
	}

	totalFees := d.fees.Rate(buy.Venue, buy.Price) + d.fees.Rate(sell.Venue, sell.Price)
	netProfit := priceDiff*volume - totalFees*volume
	netProfitPct := netProfit / (buy.Price * volume) * 100

	liquidityScore := d.fees.LiquidityScore(buy.Liquidity, sell.Liquidity)
	slippageRisk := d.fees.SlippageRisk(volume, liquidityScore)
	confidence := d.fees.Confidence(rawProfitPct, liquidityScore, slippageRisk, priceDiff, volume)

	now := time.Now().UTC()
	return domain.Opportunity{
		ID:              uuid.NewString(),
		Pair:            pair,
		BuyVenue:        buy.Venue,
		SellVenue:       sell.Venue,
		BuyPrice:        buy.Price,
		SellPrice:       sell.Price,
		GrossPriceDiff:  priceDiff,
		VolumeAvailable: volume,
		TotalFees:       totalFees,
		NetProfit:       netProfit,
		NetProfitPct:    netProfitPct,
		LiquidityScore:  liquidityScore,
		SlippageRisk:    slippageRisk,
		Confidence:      confidence,
		TimeToExpiry:    d.cfg.Expiry,
		ExecutionReady:  confidence == domain.ConfidenceHigh && netProfit > d.cfg.ExecutionFloor,
		DetectedAt:      now,
	}, true
}

// sizeVolume bounds the tradable volume conservatively: never more than 2% of
// either side's daily volume, never more than half a percent of either side's
// liquidity estimate (floored at 100), and never above the absolute cap.
func (d *Detector) sizeVolume(buy, sell domain.PriceObservation) float64 {
	v := math.Min(buy.Volume24h*0.02, sell.Volume24h*0.02)
	v = math.Min(v, math.Max(buy.Liquidity*0.005, 100))
	v = math.Min(v, math.Max(sell.Liquidity*0.005, 100))
	return math.Min(v, d.cfg.MaxTradeVolume)
}
