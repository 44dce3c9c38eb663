package trace

import "math"

// Feature is one spot with its intensities across every round and channel.
type Feature struct {
	Spot Spot `json:"spot"`

	// Values is indexed [round index][channel index], following the table's
	// Rounds and Channels order.
	Values [][]float64 `json:"values"`

	// Distance is the largest nearest-neighbour distance over all rounds.
	// It is always 0 for exact matching.
	Distance float64 `json:"distance"`

	// PassesFilter is false when some round had no spot within the search radius.
	PassesFilter bool `json:"passes_filter"`
}

// IntensityTable holds the traces built from spot results.
type IntensityTable struct {
	Rounds   []int     `json:"rounds"`
	Channels []int     `json:"channels"`
	Features []Feature `json:"features"`
}

// newTable creates a table with n zero-valued features.
func newTable(rounds, channels []int, spots []Spot) *IntensityTable {
	t := &IntensityTable{
		Rounds:   append([]int(nil), rounds...),
		Channels: append([]int(nil), channels...),
		Features: make([]Feature, len(spots)),
	}
	for i, s := range spots {
		values := make([][]float64, len(rounds))
		for r := range values {
			values[r] = make([]float64, len(channels))
		}
		t.Features[i] = Feature{Spot: s, Values: values, PassesFilter: true}
	}
	return t
}

// RoundIndex returns the position of a round label, or -1.
func (t *IntensityTable) RoundIndex(round int) int {
	return indexOf(t.Rounds, round)
}

// ChannelIndex returns the position of a channel label, or -1.
func (t *IntensityTable) ChannelIndex(channel int) int {
	return indexOf(t.Channels, channel)
}

// Vector flattens a feature's values in round-major order.
func (f *Feature) Vector() []float64 {
	var out []float64
	for _, row := range f.Values {
		out = append(out, row...)
	}
	return out
}

// Norm returns the L2 norm of the feature's values.
func (f *Feature) Norm() float64 {
	var sum float64
	for _, row := range f.Values {
		for _, v := range row {
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

// distance returns the 3-D Euclidean distance between two spots.
func distance(a, b Spot) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
