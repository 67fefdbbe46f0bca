package engine

import (
	"sort"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// RankConfig holds the viability thresholds and the result cap.
type RankConfig struct {
	MinNetProfitPct float64 // inclusive
	MinVolume       float64 // inclusive
	MaxSlippageRisk float64 // inclusive
	MinNetProfit    float64 // exclusive: net profit must strictly exceed
	TopN            int
}

// Ranker filters candidates through the viability predicate and sorts the
// survivors by a composite confidence/profit score.
type Ranker struct {
	cfg RankConfig
}

// NewRanker creates a Ranker. Zero thresholds are replaced with production
// defaults.
func NewRanker(cfg RankConfig) *Ranker {
	if cfg.MinNetProfitPct <= 0 {
		cfg.MinNetProfitPct = 0.8
	}
	if cfg.MinVolume <= 0 {
		cfg.MinVolume = 50
	}
	if cfg.MaxSlippageRisk <= 0 {
		cfg.MaxSlippageRisk = 4
	}
	if cfg.MinNetProfit <= 0 {
		cfg.MinNetProfit = 2
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 12
	}
	return &Ranker{cfg: cfg}
}

// Viable reports whether a candidate clears every display-worthiness gate.
func (r *Ranker) Viable(o domain.Opportunity) bool {
	return o.NetProfitPct >= r.cfg.MinNetProfitPct &&
		o.VolumeAvailable >= r.cfg.MinVolume &&
		o.SlippageRisk <= r.cfg.MaxSlippageRisk &&
		o.NetProfit > r.cfg.MinNetProfit &&
		o.Confidence != domain.ConfidenceLow
}

// Rank returns the viable candidates sorted descending by
// confidenceWeight*1000 + netProfit, truncated to the configured top N. Ties
// break on the structural key so repeated invocations over the same input
// produce the same ordering.
func (r *Ranker) Rank(candidates []domain.Opportunity) []domain.Opportunity {
	viable := make([]domain.Opportunity, 0, len(candidates))
	for _, o := range candidates {
		if r.Viable(o) {
			viable = append(viable, o)
		}
	}

	sort.SliceStable(viable, func(i, j int) bool {
		si := score(viable[i])
		sj := score(viable[j])
		if si != sj {
			return si > sj
		}
		return viable[i].Key() < viable[j].Key()
	})

	if len(viable) > r.cfg.TopN {
		viable = viable[:r.cfg.TopN]
	}
	return viable
}

func score(o domain.Opportunity) float64 {
	return o.Confidence.Weight()*1000 + o.NetProfit
}
