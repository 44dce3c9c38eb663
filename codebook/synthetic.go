package codebook

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// ErrShapeOutOfRange is returned when a codebook addresses a round or channel
// beyond an explicitly requested shape.
var ErrShapeOutOfRange = errors.New("codebook exceeds requested shape")

// SyntheticOneHot generates n distinct codewords with exactly one channel "on"
// (value 1) in each of rounds rounds. Targets are taken from targets in order;
// when targets is empty random UUIDs are used. A nil rng uses the global source.
func SyntheticOneHot(rounds, channels, n int, targets []string, rng *rand.Rand) (*Codebook, error) {
	if rounds <= 0 || channels <= 0 {
		return nil, fmt.Errorf("rounds and channels must be positive, got %d and %d", rounds, channels)
	}
	if n <= 0 {
		return nil, fmt.Errorf("code count must be positive, got %d", n)
	}
	if len(targets) > 0 && len(targets) != n {
		return nil, fmt.Errorf("got %d target names for %d codes", len(targets), n)
	}
	if possible := possibleCodes(rounds, channels); n > possible {
		return nil, fmt.Errorf("cannot draw %d distinct codes from %d rounds of %d channels (%d possible)",
			n, rounds, channels, possible)
	}

	intn := rand.IntN
	if rng != nil {
		intn = rng.IntN
	}

	seen := make(map[string]bool, n)
	cb := &Codebook{Version: "0.0.0", Mappings: make([]Mapping, 0, n)}
	for len(cb.Mappings) < n {
		cw := make(Codeword, rounds)
		for r := range cw {
			cw[r] = Entry{Round: r, Channel: intn(channels), Value: 1}
		}
		key := Key(cw)
		if seen[key] {
			continue
		}
		seen[key] = true

		i := len(cb.Mappings)
		target := uuid.NewString()
		if len(targets) > 0 {
			target = targets[i]
		}
		cb.Mappings = append(cb.Mappings, Mapping{Codeword: cw, Target: target})
	}
	return cb, nil
}

// possibleCodes returns channels^rounds, saturating at the largest int.
func possibleCodes(rounds, channels int) int {
	const maxInt = int(^uint(0) >> 1)
	total := 1
	for i := 0; i < rounds; i++ {
		if total > maxInt/channels {
			return maxInt
		}
		total *= channels
	}
	return total
}

// Shape returns the round and channel counts of cb. A positive rounds or
// channels overrides the inferred count but may not be smaller than it.
func (cb *Codebook) Shape(rounds, channels int) (int, int, error) {
	maxRounds, maxChannels := cb.Rounds(), cb.Channels()
	if rounds <= 0 {
		rounds = maxRounds
	}
	if channels <= 0 {
		channels = maxChannels
	}
	if maxRounds > rounds {
		return 0, 0, fmt.Errorf("%w: largest round %d needs %d rounds, got %d",
			ErrShapeOutOfRange, maxRounds-1, maxRounds, rounds)
	}
	if maxChannels > channels {
		return 0, 0, fmt.Errorf("%w: largest channel %d needs %d channels, got %d",
			ErrShapeOutOfRange, maxChannels-1, maxChannels, channels)
	}
	return rounds, channels, nil
}
