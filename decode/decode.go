// Package decode assigns targets to intensity traces using a codebook.
package decode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/trace"
)

// Method selects a decoder.
type Method string

const (
	// MethodPerRoundMax picks the brightest channel per round and looks the
	// resulting codeword up exactly.
	MethodPerRoundMax Method = "per_round_max"
	// MethodMetric picks the nearest codeword by distance between unit vectors.
	MethodMetric Method = "metric"
)

var (
	// ErrUnknownMethod is returned for an unsupported Method.
	ErrUnknownMethod = errors.New("unknown decoding method")
	// ErrDimensionMismatch is returned when a codeword addresses a round or
	// channel the intensity table does not have.
	ErrDimensionMismatch = errors.New("codebook does not fit intensity table")
)

// Result is the decoding outcome for one feature.
type Result struct {
	Feature          int     `json:"feature"`
	Target           string  `json:"target,omitempty"`
	Decoded          bool    `json:"decoded"`
	Distance         float64 `json:"distance"`
	Intensity        float64 `json:"intensity"`
	PassesThresholds bool    `json:"passes_thresholds"`
}

// Decoder assigns targets to every feature of a table.
type Decoder interface {
	Decode(table *trace.IntensityTable) ([]Result, error)
}

// Options configures the decoder built by New.
type Options struct {
	Metric MetricOptions
}

// New returns the decoder for method.
func New(method Method, cb *codebook.Codebook, opts Options) (Decoder, error) {
	switch method {
	case MethodPerRoundMax:
		return NewPerRoundMax(cb), nil
	case MethodMetric:
		return NewMetric(cb, opts.Metric), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// Summary aggregates decoding results.
type Summary struct {
	Features  int            `json:"features"`
	Decoded   int            `json:"decoded"`
	Undecoded int            `json:"undecoded"`
	ByTarget  map[string]int `json:"by_target"`
}

// Summarize counts decoded features per target. Only results that decoded
// and pass thresholds are attributed to a target.
func Summarize(results []Result) Summary {
	s := Summary{Features: len(results), ByTarget: make(map[string]int)}
	for _, r := range results {
		if r.Decoded && r.PassesThresholds {
			s.Decoded++
			s.ByTarget[r.Target]++
			continue
		}
		s.Undecoded++
	}
	return s
}

// Targets returns the summary's targets sorted by descending count, then name.
func (s Summary) Targets() []string {
	targets := make([]string, 0, len(s.ByTarget))
	for t := range s.ByTarget {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		ci, cj := s.ByTarget[targets[i]], s.ByTarget[targets[j]]
		if ci != cj {
			return ci > cj
		}
		return targets[i] < targets[j]
	})
	return targets
}
