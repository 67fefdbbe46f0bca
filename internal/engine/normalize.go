package engine

import (
	"strings"

	"github.com/cardexlabs/arbscan/internal/domain"
)

const (
	// liquidityFactor estimates order-book depth from 24h volume, since true
	// depth is unavailable from the venue APIs.
	liquidityFactor = 0.15
	liquidityFloor  = 1000
	volumeFloor     = 1000

	minValidPrice = 0.001
	maxValidPrice = 100
)

// Normalizer filters raw price observations for validity and reshapes them
// into the grouped form the detector consumes. It is a pure function of its
// input; both sets below are fixed at construction.
type Normalizer struct {
	knownSymbols    map[string]bool
	referenceVenues map[string]bool
}

// NewNormalizer creates a Normalizer accepting the given base symbols and
// excluding observations from the given reference-only venues.
func NewNormalizer(knownSymbols, referenceVenues []string) *Normalizer {
	known := make(map[string]bool, len(knownSymbols))
	for _, s := range knownSymbols {
		known[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	ref := make(map[string]bool, len(referenceVenues))
	for _, v := range referenceVenues {
		ref[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return &Normalizer{knownSymbols: known, referenceVenues: ref}
}

// Valid reports whether an observation passes the validity invariant: price
// strictly inside (0.001, 100), positive 24h volume, a non-reference venue,
// and a known base symbol. Invalid observations are dropped silently; bad
// data is a filter concern here, not an error.
func (n *Normalizer) Valid(obs domain.PriceObservation) bool {
	if obs.Price <= minValidPrice || obs.Price >= maxValidPrice {
		return false
	}
	if obs.Volume24h <= 0 {
		return false
	}
	if n.referenceVenues[strings.ToLower(obs.Venue)] {
		return false
	}
	return n.knownSymbols[domain.BaseSymbol(domain.CanonicalPair(obs.Pair))]
}

// Normalize filters the raw observations, estimates liquidity, floors volume,
// canonicalizes pair keys, and groups the survivors by pair with one
// observation per venue (duplicate venue reports for a pair keep the first).
func (n *Normalizer) Normalize(raw []domain.PriceObservation) domain.GroupedObservations {
	groups := make(domain.GroupedObservations)
	seen := make(map[string]bool)

	for _, obs := range raw {
		if !n.Valid(obs) {
			continue
		}

		obs.Pair = domain.CanonicalPair(obs.Pair)

		venueKey := obs.Pair + "|" + strings.ToLower(obs.Venue)
		if seen[venueKey] {
			continue
		}
		seen[venueKey] = true

		obs.Liquidity = obs.Volume24h * liquidityFactor
		if obs.Liquidity < liquidityFloor {
			obs.Liquidity = liquidityFloor
		}
		// Floor volume to keep later divisions away from pathological
		// near-zero values.
		if obs.Volume24h < volumeFloor {
			obs.Volume24h = volumeFloor
		}

		groups[obs.Pair] = append(groups[obs.Pair], obs)
	}

	return groups
}
