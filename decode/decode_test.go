package decode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/trace"
)

func testCodebook() *codebook.Codebook {
	return &codebook.Codebook{
		Version: "0.0.0",
		Mappings: []codebook.Mapping{
			{Codeword: codebook.Codeword{{Round: 0, Channel: 0, Value: 1}, {Round: 1, Channel: 1, Value: 1}}, Target: "ACTB"},
			{Codeword: codebook.Codeword{{Round: 0, Channel: 1, Value: 1}, {Round: 1, Channel: 0, Value: 1}}, Target: "GAPDH"},
		},
	}
}

func table(features ...trace.Feature) *trace.IntensityTable {
	return &trace.IntensityTable{
		Rounds:   []int{0, 1},
		Channels: []int{0, 1},
		Features: features,
	}
}

func feature(passes bool, values ...[]float64) trace.Feature {
	return trace.Feature{Values: values, PassesFilter: passes}
}

func TestPerRoundMax_Decode(t *testing.T) {
	tbl := table(
		feature(true, []float64{0.9, 0.1}, []float64{0.2, 0.8}), // ACTB
		feature(true, []float64{0.1, 0.7}, []float64{0.6, 0.3}), // GAPDH
		feature(true, []float64{0.9, 0.1}, []float64{0.9, 0.1}), // no such codeword
		feature(false, []float64{0, 0.5}, []float64{0.5, 0}),    // GAPDH, filtered
		feature(true, []float64{0, 0}, []float64{0, 0}),         // dark
	)

	results, err := NewPerRoundMax(testCodebook()).Decode(tbl)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, "ACTB", results[0].Target)
	assert.True(t, results[0].Decoded)
	assert.True(t, results[0].PassesThresholds)

	assert.Equal(t, "GAPDH", results[1].Target)

	assert.False(t, results[2].Decoded)
	assert.Empty(t, results[2].Target)

	assert.Equal(t, "GAPDH", results[3].Target)
	assert.False(t, results[3].PassesThresholds)

	assert.False(t, results[4].Decoded)
	assert.Equal(t, 4, results[4].Feature)
}

func TestPerRoundMax_LabelsNotIndices(t *testing.T) {
	cb := &codebook.Codebook{
		Version: "0.0.0",
		Mappings: []codebook.Mapping{
			{Codeword: codebook.Codeword{{Round: 2, Channel: 5, Value: 1}}, Target: "MALAT1"},
		},
	}
	tbl := &trace.IntensityTable{
		Rounds:   []int{2},
		Channels: []int{4, 5},
		Features: []trace.Feature{feature(true, []float64{0.1, 0.9})},
	}

	results, err := NewPerRoundMax(cb).Decode(tbl)
	require.NoError(t, err)
	assert.Equal(t, "MALAT1", results[0].Target)
}

func TestMetric_Decode(t *testing.T) {
	tbl := table(
		feature(true, []float64{1, 0}, []float64{0, 1}),       // exact ACTB
		feature(true, []float64{0.1, 0.9}, []float64{0.8, 0}), // close to GAPDH
		feature(true, []float64{0.5, 0.5}, []float64{0.5, 0.5}),
		feature(true, []float64{0, 0}, []float64{0, 0}),
	)

	d := NewMetric(testCodebook(), MetricOptions{MaxDistance: 0.3, MinIntensity: 0.5})
	results, err := d.Decode(tbl)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "ACTB", results[0].Target)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.True(t, results[0].PassesThresholds)

	assert.Equal(t, "GAPDH", results[1].Target)
	assert.Less(t, results[1].Distance, 0.3)
	assert.True(t, results[1].PassesThresholds)

	// Equidistant from both codewords: decoded but too far to pass.
	assert.True(t, results[2].Decoded)
	assert.InDelta(t, 0.765, results[2].Distance, 0.001)
	assert.False(t, results[2].PassesThresholds)

	assert.False(t, results[3].Decoded)
	assert.Zero(t, results[3].Intensity)
}

func TestMetric_MinIntensity(t *testing.T) {
	tbl := table(feature(true, []float64{0.1, 0}, []float64{0, 0.1}))

	results, err := NewMetric(testCodebook(), MetricOptions{MaxDistance: 1, MinIntensity: 1}).Decode(tbl)
	require.NoError(t, err)
	assert.Equal(t, "ACTB", results[0].Target)
	assert.False(t, results[0].PassesThresholds)
}

func TestMetric_DimensionMismatch(t *testing.T) {
	cb := testCodebook()
	cb.Mappings[1].Codeword = append(cb.Mappings[1].Codeword, codebook.Entry{Round: 2, Channel: 0, Value: 1})

	_, err := NewMetric(cb, DefaultMetricOptions()).Decode(table())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "GAPDH")
}

func TestNew(t *testing.T) {
	d, err := New(MethodPerRoundMax, testCodebook(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &PerRoundMax{}, d)

	d, err = New(MethodMetric, testCodebook(), Options{Metric: DefaultMetricOptions()})
	require.NoError(t, err)
	assert.IsType(t, &Metric{}, d)

	_, err = New("viterbi", testCodebook(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Target: "ACTB", Decoded: true, PassesThresholds: true},
		{Target: "GAPDH", Decoded: true, PassesThresholds: true},
		{Target: "ACTB", Decoded: true, PassesThresholds: true},
		{Target: "ACTB", Decoded: true, PassesThresholds: false},
		{Decoded: false},
	}

	s := Summarize(results)
	assert.Equal(t, 5, s.Features)
	assert.Equal(t, 3, s.Decoded)
	assert.Equal(t, 2, s.Undecoded)
	assert.Equal(t, map[string]int{"ACTB": 2, "GAPDH": 1}, s.ByTarget)
	assert.Equal(t, []string{"ACTB", "GAPDH"}, s.Targets())
}

func TestMetric_IgnoresTraceFilter(t *testing.T) {
	// One round fell outside the search radius during trace building.
	tbl := table(feature(false, []float64{1, 0}, []float64{0, 1}))

	results, err := NewMetric(testCodebook(), MetricOptions{MaxDistance: 0.5}).Decode(tbl)
	require.NoError(t, err)
	assert.Equal(t, "ACTB", results[0].Target)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.InDelta(t, 1.414, results[0].Intensity, 0.001)
	assert.True(t, results[0].PassesThresholds)
}

func TestPerRoundMax_WeightedCodeword(t *testing.T) {
	cb := &codebook.Codebook{
		Version: "0.0.0",
		Mappings: []codebook.Mapping{
			{Codeword: codebook.Codeword{
				{Round: 0, Channel: 0, Value: 1},
				{Round: 0, Channel: 1, Value: 0.2},
				{Round: 1, Channel: 1, Value: 1},
			}, Target: "A"},
			// Tied weights resolve to the lowest channel.
			{Codeword: codebook.Codeword{
				{Round: 0, Channel: 1, Value: 0.5},
				{Round: 0, Channel: 0, Value: 0.5},
				{Round: 1, Channel: 0, Value: 1},
			}, Target: "B"},
		},
	}
	tbl := table(
		feature(true, []float64{5, 1}, []float64{0, 5}),
		feature(true, []float64{5, 1}, []float64{5, 0}),
	)

	results, err := NewPerRoundMax(cb).Decode(tbl)
	require.NoError(t, err)
	assert.Equal(t, "A", results[0].Target)
	assert.True(t, results[0].Decoded)
	assert.Equal(t, "B", results[1].Target)
	assert.True(t, results[1].Decoded)
}

func TestMetric_ZeroCodewordIsPartitioned(t *testing.T) {
	cb := &codebook.Codebook{
		Version: "0.0.0",
		Mappings: []codebook.Mapping{
			{Codeword: codebook.Codeword{{Round: 0, Channel: 0, Value: 0}}, Target: "BLANK"},
			{Codeword: codebook.Codeword{{Round: 0, Channel: 0, Value: 1}}, Target: "ACTB"},
		},
	}

	// A flat trace sits nearer the spread-out blank codeword than any one-hot one.
	results, err := NewMetric(cb, MetricOptions{MaxDistance: 2}).Decode(table(
		feature(true, []float64{1, 1}, []float64{1, 1}),
	))
	require.NoError(t, err)
	assert.Equal(t, "BLANK", results[0].Target)
	assert.True(t, results[0].Decoded)

	assert.Equal(t, []float64{0.125, 0.125, 0.125, 0.125}, partitioned(4))
	assert.Empty(t, partitioned(0))
}
