// Package trace turns per-round, per-channel spot finding results into
// intensity traces, one feature per physical spot.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// Strategy selects how spots are combined into traces.
type Strategy string

const (
	// StrategyExactMatch assumes every (round, channel) lists the same spots in the same order.
	StrategyExactMatch Strategy = "exact_match"
	// StrategyNearestNeighbor matches spots to an anchor round by position.
	StrategyNearestNeighbor Strategy = "nearest_neighbor"
)

// Default nearest-neighbour parameters.
const (
	DefaultAnchorRound  = 1
	DefaultSearchRadius = 3.0
)

var (
	// ErrUnknownStrategy is returned for an unsupported Strategy.
	ErrUnknownStrategy = errors.New("unknown trace building strategy")
	// ErrUnknownRound is returned when a round label is not in the results.
	ErrUnknownRound = errors.New("unknown round")
	// ErrSpotCountMismatch is returned by exact matching when spot counts differ.
	ErrSpotCountMismatch = errors.New("spot count mismatch")
)

// Spot is a single detected spot.
type Spot struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Radius    float64 `json:"radius,omitempty"`
	Intensity float64 `json:"intensity"`
}

// RoundChannel addresses one image plane set.
type RoundChannel struct {
	Round   int `json:"r"`
	Channel int `json:"c"`
}

// SpotResults holds the spots found in every (round, channel).
type SpotResults struct {
	Rounds   []int
	Channels []int
	Spots    map[RoundChannel][]Spot
}

// spotResultsFile is the on-disk form of SpotResults.
type spotResultsFile struct {
	Rounds   []int           `json:"rounds"`
	Channels []int           `json:"channels"`
	Results  []spotsForPlane `json:"results"`
}

type spotsForPlane struct {
	Round   int    `json:"r"`
	Channel int    `json:"c"`
	Spots   []Spot `json:"spots"`
}

// NewSpotResults creates empty results for the given round and channel labels.
func NewSpotResults(rounds, channels []int) *SpotResults {
	return &SpotResults{
		Rounds:   append([]int(nil), rounds...),
		Channels: append([]int(nil), channels...),
		Spots:    make(map[RoundChannel][]Spot),
	}
}

// Set stores the spots for one (round, channel).
func (s *SpotResults) Set(round, channel int, spots []Spot) {
	s.Spots[RoundChannel{Round: round, Channel: channel}] = spots
}

// Get returns the spots for one (round, channel).
func (s *SpotResults) Get(round, channel int) []Spot {
	return s.Spots[RoundChannel{Round: round, Channel: channel}]
}

// Keys returns every (round, channel) pair in round-major order.
func (s *SpotResults) Keys() []RoundChannel {
	keys := make([]RoundChannel, 0, len(s.Rounds)*len(s.Channels))
	for _, r := range s.Rounds {
		for _, c := range s.Channels {
			keys = append(keys, RoundChannel{Round: r, Channel: c})
		}
	}
	return keys
}

// Validate checks that labels are present and unique and that every stored
// plane refers to a known label.
func (s *SpotResults) Validate() error {
	if len(s.Rounds) == 0 || len(s.Channels) == 0 {
		return fmt.Errorf("spot results need at least one round and one channel")
	}
	if err := uniqueLabels("round", s.Rounds); err != nil {
		return err
	}
	if err := uniqueLabels("channel", s.Channels); err != nil {
		return err
	}
	for key := range s.Spots {
		if indexOf(s.Rounds, key.Round) < 0 {
			return fmt.Errorf("%w: %d", ErrUnknownRound, key.Round)
		}
		if indexOf(s.Channels, key.Channel) < 0 {
			return fmt.Errorf("unknown channel: %d", key.Channel)
		}
	}
	return nil
}

// ReadSpotResults loads spot results from a JSON file.
func ReadSpotResults(path string) (*SpotResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spot results: %w", err)
	}
	return ParseSpotResults(data)
}

// ParseSpotResults decodes and validates spot results.
func ParseSpotResults(data []byte) (*SpotResults, error) {
	var f spotResultsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spot results: %w", err)
	}

	results := NewSpotResults(f.Rounds, f.Channels)
	for _, plane := range f.Results {
		results.Set(plane.Round, plane.Channel, plane.Spots)
	}
	if err := results.Validate(); err != nil {
		return nil, err
	}
	return results, nil
}

// MarshalJSON encodes results in the on-disk form, planes in round-major order.
func (s *SpotResults) MarshalJSON() ([]byte, error) {
	keys := make([]RoundChannel, 0, len(s.Spots))
	for k := range s.Spots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Round != keys[j].Round {
			return keys[i].Round < keys[j].Round
		}
		return keys[i].Channel < keys[j].Channel
	})

	f := spotResultsFile{Rounds: s.Rounds, Channels: s.Channels}
	for _, k := range keys {
		f.Results = append(f.Results, spotsForPlane{Round: k.Round, Channel: k.Channel, Spots: s.Spots[k]})
	}
	return json.Marshal(f)
}

func uniqueLabels(kind string, labels []int) error {
	seen := make(map[int]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return fmt.Errorf("duplicate %s label: %d", kind, l)
		}
		seen[l] = true
	}
	return nil
}

func indexOf(labels []int, label int) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}
