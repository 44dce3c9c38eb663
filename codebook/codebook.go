// Package codebook provides the typed codebook model: parsing, queries and
// semantic lint checks that go beyond what the JSON Schema can express.
package codebook

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is one (round, channel) position of a codeword with its expected intensity.
type Entry struct {
	Round   int     `json:"r" yaml:"r"`
	Channel int     `json:"c" yaml:"c"`
	Value   float64 `json:"v" yaml:"v"`
}

// Codeword is the barcode identifying a target across rounds and channels.
type Codeword []Entry

// Mapping pairs a codeword with the target it detects.
type Mapping struct {
	Codeword Codeword `json:"codeword" yaml:"codeword"`
	Target   string   `json:"target" yaml:"target"`
}

// Codebook is the complete mapping from codewords to targets.
type Codebook struct {
	Version  string    `json:"version" yaml:"version"`
	Mappings []Mapping `json:"mappings" yaml:"mappings"`
}

// Targets returns the distinct targets in first-seen order.
func (cb *Codebook) Targets() []string {
	seen := make(map[string]bool, len(cb.Mappings))
	targets := make([]string, 0, len(cb.Mappings))
	for _, m := range cb.Mappings {
		if seen[m.Target] {
			continue
		}
		seen[m.Target] = true
		targets = append(targets, m.Target)
	}
	return targets
}

// Rounds returns the number of imaging rounds the codebook spans.
func (cb *Codebook) Rounds() int {
	n := 0
	for _, m := range cb.Mappings {
		for _, e := range m.Codeword {
			if e.Round+1 > n {
				n = e.Round + 1
			}
		}
	}
	return n
}

// Channels returns the number of channels the codebook spans.
func (cb *Codebook) Channels() int {
	n := 0
	for _, m := range cb.Mappings {
		for _, e := range m.Codeword {
			if e.Channel+1 > n {
				n = e.Channel + 1
			}
		}
	}
	return n
}

// Lookup returns every codeword mapped to target.
func (cb *Codebook) Lookup(target string) []Codeword {
	var out []Codeword
	for _, m := range cb.Mappings {
		if m.Target == target {
			out = append(out, m.Codeword)
		}
	}
	return out
}

// Key returns a canonical key built from the positive entries of cw, sorted
// by round then channel. Two codewords light up the same positions iff their
// keys are equal.
func Key(cw Codeword) string {
	positions := make([]Entry, 0, len(cw))
	for _, e := range cw {
		if e.Value > 0 {
			positions = append(positions, e)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Round != positions[j].Round {
			return positions[i].Round < positions[j].Round
		}
		return positions[i].Channel < positions[j].Channel
	})

	var sb strings.Builder
	for i, e := range positions {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "r%dc%d", e.Round, e.Channel)
	}
	return sb.String()
}

// RoundMax reduces cw to its brightest channel in every round. Rounds with no
// positive value are dropped and ties go to the lowest channel. The result is
// sorted by round and every entry has value 1.
func RoundMax(cw Codeword) Codeword {
	best := make(map[int]Entry)
	for _, e := range cw {
		if e.Value <= 0 {
			continue
		}
		cur, ok := best[e.Round]
		if !ok || e.Value > cur.Value || (e.Value == cur.Value && e.Channel < cur.Channel) {
			best[e.Round] = e
		}
	}

	out := make(Codeword, 0, len(best))
	for _, e := range best {
		out = append(out, Entry{Round: e.Round, Channel: e.Channel, Value: 1})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out
}
