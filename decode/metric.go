package decode

import (
	"fmt"
	"math"

	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/trace"
)

// MetricOptions sets the thresholds for metric decoding.
type MetricOptions struct {
	// MaxDistance is the largest unit-vector distance accepted as a match.
	MaxDistance float64
	// MinIntensity is the smallest trace L2 norm accepted as a match.
	MinIntensity float64
}

// DefaultMetricOptions returns permissive thresholds.
func DefaultMetricOptions() MetricOptions {
	return MetricOptions{MaxDistance: 0.5, MinIntensity: 0}
}

// Metric decodes each trace to the nearest codeword after normalising both to
// unit L2 length.
type Metric struct {
	cb   *codebook.Codebook
	opts MetricOptions
}

// NewMetric creates a metric decoder.
func NewMetric(cb *codebook.Codebook, opts MetricOptions) *Metric {
	return &Metric{cb: cb, opts: opts}
}

// Decode implements Decoder.
func (d *Metric) Decode(table *trace.IntensityTable) ([]Result, error) {
	codewords, err := d.vectors(table)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(table.Features))
	for i := range table.Features {
		f := &table.Features[i]
		intensity := f.Norm()
		results[i] = Result{Feature: i, Intensity: intensity}
		if intensity == 0 || len(codewords) == 0 {
			continue
		}

		traceVec := normalize(f.Vector())
		best, bestDist := -1, math.Inf(1)
		for j, cw := range codewords {
			if dist := euclidean(traceVec, cw); dist < bestDist {
				best, bestDist = j, dist
			}
		}
		if best < 0 {
			continue
		}

		results[i].Target = d.cb.Mappings[best].Target
		results[i].Decoded = true
		results[i].Distance = bestDist
		results[i].PassesThresholds = bestDist <= d.opts.MaxDistance &&
			intensity >= d.opts.MinIntensity
	}
	return results, nil
}

// vectors lays every codeword out in the table's round-major order and
// normalises it. A codeword with no positive value spreads the partitioned
// intensity evenly over every position.
func (d *Metric) vectors(table *trace.IntensityTable) ([][]float64, error) {
	width := len(table.Rounds) * len(table.Channels)
	out := make([][]float64, len(d.cb.Mappings))
	for i, m := range d.cb.Mappings {
		vec := make([]float64, width)
		for _, e := range m.Codeword {
			ri, ci := table.RoundIndex(e.Round), table.ChannelIndex(e.Channel)
			if ri < 0 || ci < 0 {
				return nil, fmt.Errorf("%w: mappings[%d] (%s) uses round %d channel %d",
					ErrDimensionMismatch, i, m.Target, e.Round, e.Channel)
			}
			vec[ri*len(table.Channels)+ci] = e.Value
		}
		if norm(vec) > 0 {
			out[i] = normalize(vec)
		} else {
			out[i] = partitioned(width)
		}
	}
	return out, nil
}

// partitioned returns n copies of the L2 norm of a uniform 1/n vector divided
// by n.
func partitioned(n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	fill := 1 / (float64(n) * math.Sqrt(float64(n)))
	for i := range out {
		out[i] = fill
	}
	return out
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func normalize(v []float64) []float64 {
	n := norm(v)
	out := make([]float64, len(v))
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
