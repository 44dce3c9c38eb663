package codebook

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/codebook/schema"
)

func TestSyntheticOneHot(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	cb, err := SyntheticOneHot(4, 3, 10, nil, rng)
	require.NoError(t, err)
	require.Len(t, cb.Mappings, 10)

	keys := make(map[string]bool)
	for _, m := range cb.Mappings {
		require.Len(t, m.Codeword, 4)
		for r, e := range m.Codeword {
			assert.Equal(t, r, e.Round)
			assert.GreaterOrEqual(t, e.Channel, 0)
			assert.Less(t, e.Channel, 3)
			assert.Equal(t, 1.0, e.Value)
		}
		keys[Key(m.Codeword)] = true

		_, err := uuid.Parse(m.Target)
		assert.NoError(t, err, "generated targets are UUIDs")
	}
	assert.Len(t, keys, 10, "codewords are distinct")

	data, err := cb.Marshal()
	require.NoError(t, err)
	v, err := schema.Codebook()
	require.NoError(t, err)
	assert.True(t, v.Validate(data).Valid)
	assert.Empty(t, cb.Lint())
}

func TestSyntheticOneHot_Exhaustive(t *testing.T) {
	cb, err := SyntheticOneHot(2, 2, 4, []string{"A", "B", "C", "D"}, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, cb.Targets())
	assert.Equal(t, 2, cb.Rounds())
}

func TestSyntheticOneHot_Errors(t *testing.T) {
	tests := []struct {
		name     string
		rounds   int
		channels int
		n        int
		targets  []string
	}{
		{name: "zero rounds", rounds: 0, channels: 2, n: 1},
		{name: "zero channels", rounds: 2, channels: 0, n: 1},
		{name: "zero codes", rounds: 2, channels: 2, n: 0},
		{name: "too many codes", rounds: 2, channels: 2, n: 5},
		{name: "target count mismatch", rounds: 2, channels: 2, n: 2, targets: []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SyntheticOneHot(tt.rounds, tt.channels, tt.n, tt.targets, nil)
			assert.Error(t, err)
		})
	}
}

func TestPossibleCodes(t *testing.T) {
	assert.Equal(t, 9, possibleCodes(2, 3))
	assert.Equal(t, int(^uint(0)>>1), possibleCodes(200, 4))
}

func TestShape(t *testing.T) {
	cb := twoRoundCodebook()

	rounds, channels, err := cb.Shape(0, 0)
	require.NoError(t, err)
	assert.Equal(t, cb.Rounds(), rounds)
	assert.Equal(t, cb.Channels(), channels)

	rounds, channels, err = cb.Shape(5, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, rounds)
	assert.Equal(t, 4, channels)

	_, _, err = cb.Shape(1, 0)
	assert.True(t, errors.Is(err, ErrShapeOutOfRange))

	_, _, err = cb.Shape(0, 1)
	assert.True(t, errors.Is(err, ErrShapeOutOfRange))
}
