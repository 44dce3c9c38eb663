package trace

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spotsJSON = `{
  "rounds": [0, 1],
  "channels": [0, 1, 2],
  "results": [
    {"r": 0, "c": 0, "spots": [{"x": 1, "y": 2, "z": 0, "intensity": 0.9}]},
    {"r": 1, "c": 2, "spots": [{"x": 1, "y": 3, "z": 0, "radius": 1.5, "intensity": 0.4}]}
  ]
}`

func TestParseSpotResults(t *testing.T) {
	results, err := ParseSpotResults([]byte(spotsJSON))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, results.Rounds)
	assert.Equal(t, []int{0, 1, 2}, results.Channels)
	assert.Equal(t, []Spot{{X: 1, Y: 3, Radius: 1.5, Intensity: 0.4}}, results.Get(1, 2))
	assert.Empty(t, results.Get(1, 1))
	assert.Len(t, results.Keys(), 6)
}

func TestParseSpotResults_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		message string
	}{
		{
			name:    "malformed",
			doc:     `{"rounds": [`,
			message: "parse spot results",
		},
		{
			name:    "no channels",
			doc:     `{"rounds": [0], "channels": []}`,
			message: "at least one round and one channel",
		},
		{
			name:    "duplicate round label",
			doc:     `{"rounds": [0, 0], "channels": [0]}`,
			message: "duplicate round label",
		},
		{
			name:    "plane for unknown round",
			doc:     `{"rounds": [0], "channels": [0], "results": [{"r": 3, "c": 0, "spots": []}]}`,
			wantErr: ErrUnknownRound,
		},
		{
			name:    "plane for unknown channel",
			doc:     `{"rounds": [0], "channels": [0], "results": [{"r": 0, "c": 4, "spots": []}]}`,
			message: "unknown channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpotResults([]byte(tt.doc))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestReadSpotResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spots.json")
	require.NoError(t, os.WriteFile(path, []byte(spotsJSON), 0644))

	results, err := ReadSpotResults(path)
	require.NoError(t, err)

	encoded, err := json.Marshal(results)
	require.NoError(t, err)
	again, err := ParseSpotResults(encoded)
	require.NoError(t, err)
	assert.Equal(t, results, again)
}
