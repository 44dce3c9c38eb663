package trace

import (
	"fmt"
	"math"
)

// Options configures trace building.
type Options struct {
	// AnchorRound is the round label whose spots seed nearest-neighbour traces.
	AnchorRound int

	// SearchRadius is the maximum distance, in pixels, for a spot in another
	// round to be considered the same feature.
	SearchRadius float64
}

// DefaultOptions returns the nearest-neighbour defaults.
func DefaultOptions() Options {
	return Options{
		AnchorRound:  DefaultAnchorRound,
		SearchRadius: DefaultSearchRadius,
	}
}

// Build dispatches to the builder for strategy.
func Build(strategy Strategy, results *SpotResults, opts Options) (*IntensityTable, error) {
	switch strategy {
	case StrategyExactMatch:
		return BuildExactMatch(results)
	case StrategyNearestNeighbor:
		return BuildNearestNeighbor(results, opts.AnchorRound, opts.SearchRadius)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// BuildExactMatch combines spots that sit at identical positions across every
// round and channel. Spot attributes are taken from the first (round, channel)
// and spot i of every other pair supplies feature i's intensity there.
func BuildExactMatch(results *SpotResults) (*IntensityTable, error) {
	if err := results.Validate(); err != nil {
		return nil, err
	}

	reference := results.Get(results.Rounds[0], results.Channels[0])
	table := newTable(results.Rounds, results.Channels, reference)

	for ri, r := range results.Rounds {
		for ci, c := range results.Channels {
			spots := results.Get(r, c)
			if len(spots) != len(reference) {
				return nil, fmt.Errorf("%w: round %d channel %d has %d spots, want %d",
					ErrSpotCountMismatch, r, c, len(spots), len(reference))
			}
			for i, s := range spots {
				table.Features[i].Values[ri][ci] = s.Intensity
			}
		}
	}

	return table, nil
}

// roundSpot is a spot merged into its round, remembering its channel index.
type roundSpot struct {
	Spot
	channel int
}

// mergeByRound concatenates the spots of every channel of a round.
func mergeByRound(results *SpotResults) [][]roundSpot {
	merged := make([][]roundSpot, len(results.Rounds))
	for ri, r := range results.Rounds {
		for ci, c := range results.Channels {
			for _, s := range results.Get(r, c) {
				merged[ri] = append(merged[ri], roundSpot{Spot: s, channel: ci})
			}
		}
	}
	return merged
}

// BuildNearestNeighbor combines spots across rounds by matching each spot of
// the anchor round to its nearest spot in every round. A match further away
// than searchRadius contributes no intensity and clears PassesFilter.
func BuildNearestNeighbor(results *SpotResults, anchorRound int, searchRadius float64) (*IntensityTable, error) {
	if err := results.Validate(); err != nil {
		return nil, err
	}
	if searchRadius < 0 {
		return nil, fmt.Errorf("search radius must be non-negative, got %g", searchRadius)
	}

	anchorIdx := indexOf(results.Rounds, anchorRound)
	if anchorIdx < 0 {
		return nil, fmt.Errorf("%w: anchor round %d", ErrUnknownRound, anchorRound)
	}

	perRound := mergeByRound(results)
	anchors := perRound[anchorIdx]

	anchorSpots := make([]Spot, len(anchors))
	for i, a := range anchors {
		anchorSpots[i] = a.Spot
	}
	table := newTable(results.Rounds, results.Channels, anchorSpots)

	for i, anchor := range anchors {
		feature := &table.Features[i]
		for ri, candidates := range perRound {
			if ri == anchorIdx {
				feature.Values[ri][anchor.channel] = anchor.Intensity
				continue
			}

			best, bestDist := -1, math.Inf(1)
			for j, cand := range candidates {
				if d := distance(anchor.Spot, cand.Spot); d < bestDist {
					best, bestDist = j, d
				}
			}

			if best < 0 {
				feature.PassesFilter = false
				continue
			}
			if bestDist > feature.Distance {
				feature.Distance = bestDist
			}
			if bestDist > searchRadius {
				feature.PassesFilter = false
				continue
			}
			match := candidates[best]
			feature.Values[ri][match.channel] = match.Intensity
		}
	}

	return table, nil
}
