package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCodebook = `{
  "version": "0.0.0",
  "mappings": [
    {
      "codeword": [
        {"r": 0, "c": 0, "v": 1},
        {"r": 1, "c": 1, "v": 1}
      ],
      "target": "ACTB"
    }
  ]
}`

func TestCodebook_Validate(t *testing.T) {
	v, err := Codebook()
	require.NoError(t, err)

	tests := []struct {
		name      string
		document  string
		wantValid bool
	}{
		{
			name:      "well formed document",
			document:  validCodebook,
			wantValid: true,
		},
		{
			name:      "pre-release version",
			document:  `{"version": "1.2.3-rc.1", "mappings": [{"codeword": [{"r": 0, "c": 0, "v": 0.5}], "target": "GAPDH"}]}`,
			wantValid: true,
		},
		{
			name:      "missing version",
			document:  `{"mappings": [{"codeword": [{"r": 0, "c": 0, "v": 1}], "target": "ACTB"}]}`,
			wantValid: false,
		},
		{
			name:      "missing mappings",
			document:  `{"version": "0.0.0"}`,
			wantValid: false,
		},
		{
			name:      "empty mappings",
			document:  `{"version": "0.0.0", "mappings": []}`,
			wantValid: false,
		},
		{
			name:      "unknown top-level property",
			document:  `{"version": "0.0.0", "mappings": [{"codeword": [{"r": 0, "c": 0, "v": 1}], "target": "ACTB"}], "extra": true}`,
			wantValid: false,
		},
		{
			name:      "mapping missing codeword",
			document:  `{"version": "0.0.0", "mappings": [{"target": "ACTB"}]}`,
			wantValid: false,
		},
		{
			name:      "mapping missing target",
			document:  `{"version": "0.0.0", "mappings": [{"codeword": [{"r": 0, "c": 0, "v": 1}]}]}`,
			wantValid: false,
		},
		{
			name:      "target is not a string",
			document:  `{"version": "0.0.0", "mappings": [{"codeword": [{"r": 0, "c": 0, "v": 1}], "target": 7}]}`,
			wantValid: false,
		},
		{
			name:      "version is not semver",
			document:  `{"version": "v1", "mappings": [{"codeword": [{"r": 0, "c": 0, "v": 1}], "target": "ACTB"}]}`,
			wantValid: false,
		},
		{
			name:      "negative round",
			document:  `{"version": "0.0.0", "mappings": [{"codeword": [{"r": -1, "c": 0, "v": 1}], "target": "ACTB"}]}`,
			wantValid: false,
		},
		{
			name:      "fractional channel",
			document:  `{"version": "0.0.0", "mappings": [{"codeword": [{"r": 0, "c": 0.5, "v": 1}], "target": "ACTB"}]}`,
			wantValid: false,
		},
		{
			name:      "codeword entry missing value",
			document:  `{"version": "0.0.0", "mappings": [{"codeword": [{"r": 0, "c": 0}], "target": "ACTB"}]}`,
			wantValid: false,
		},
		{
			name:      "empty codeword",
			document:  `{"version": "0.0.0", "mappings": [{"codeword": [], "target": "ACTB"}]}`,
			wantValid: false,
		},
		{
			name:      "top level array",
			document:  `[]`,
			wantValid: false,
		},
		{
			name:      "malformed JSON",
			document:  `{"version": `,
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate([]byte(tt.document))
			assert.Equal(t, tt.wantValid, result.Valid, "errors: %v", result.Errors)
			if tt.wantValid {
				assert.Empty(t, result.Errors)
			} else {
				assert.NotEmpty(t, result.Errors)
			}
		})
	}
}

func TestCodebook_Shared(t *testing.T) {
	first, err := Codebook()
	require.NoError(t, err)
	second, err := Codebook()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "codebook_0.0.0", first.Name())
}

func TestResult_Err(t *testing.T) {
	t.Run("valid result has no error", func(t *testing.T) {
		r := &Result{Valid: true}
		assert.NoError(t, r.Err())
	})

	t.Run("invalid result wraps sentinel", func(t *testing.T) {
		r := &Result{Valid: false, Errors: []string{"first", "second"}}
		err := r.Err()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidDocument))
		assert.Contains(t, err.Error(), "first; second")
	})
}

func TestNew_RejectsMalformedSchema(t *testing.T) {
	_, err := New("broken", []byte(`{"type": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse schema broken")
}

func TestNew_CustomSchema(t *testing.T) {
	v, err := New("string-only", []byte(`{"type": "string"}`))
	require.NoError(t, err)

	assert.True(t, v.ValidateValue("ACTB").Valid)
	assert.False(t, v.ValidateValue(42.0).Valid)
}
