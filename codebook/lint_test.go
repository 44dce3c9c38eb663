package codebook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLint(t *testing.T) {
	tests := []struct {
		name      string
		mappings  []Mapping
		wantError bool
		contains  []string
	}{
		{
			name: "clean codebook",
			mappings: []Mapping{
				{Codeword: Codeword{{0, 0, 1}, {1, 1, 1}}, Target: "ACTB"},
				{Codeword: Codeword{{0, 1, 1}, {1, 0, 1}}, Target: "GAPDH"},
			},
		},
		{
			name: "repeated position",
			mappings: []Mapping{
				{Codeword: Codeword{{0, 0, 1}, {0, 0, 1}}, Target: "ACTB"},
			},
			wantError: true,
			contains:  []string{"repeats round 0 channel 0"},
		},
		{
			name: "ambiguous codeword",
			mappings: []Mapping{
				{Codeword: Codeword{{0, 0, 1}, {1, 1, 1}}, Target: "ACTB"},
				{Codeword: Codeword{{1, 1, 1}, {0, 0, 1}}, Target: "GAPDH"},
			},
			wantError: true,
			contains:  []string{"identical to mappings[0] (ACTB)"},
		},
		{
			name: "duplicate target is a warning",
			mappings: []Mapping{
				{Codeword: Codeword{{0, 0, 1}, {1, 1, 1}}, Target: "ACTB"},
				{Codeword: Codeword{{0, 1, 1}, {1, 0, 1}}, Target: "ACTB"},
			},
			contains: []string{`target "ACTB" already mapped at mappings[0]`},
		},
		{
			name: "blank target",
			mappings: []Mapping{
				{Codeword: Codeword{{0, 0, 1}}, Target: "  "},
			},
			contains: []string{"target is blank"},
		},
		{
			name: "all zero codeword",
			mappings: []Mapping{
				{Codeword: Codeword{{0, 0, 0}}, Target: "ACTB"},
			},
			contains: []string{"no positive value"},
		},
		{
			name: "incomplete rounds",
			mappings: []Mapping{
				{Codeword: Codeword{{0, 0, 1}, {1, 1, 1}, {2, 0, 1}}, Target: "ACTB"},
				{Codeword: Codeword{{0, 1, 1}}, Target: "GAPDH"},
			},
			contains: []string{"covers 1 of 3 rounds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := &Codebook{Version: "0.0.0", Mappings: tt.mappings}
			issues := cb.Lint()

			assert.Equal(t, tt.wantError, HasErrors(issues), "issues: %v", issues)
			if len(tt.contains) == 0 {
				assert.Empty(t, issues)
			}
			for _, want := range tt.contains {
				found := false
				for _, issue := range issues {
					if strings.Contains(issue.String(), want) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected issue containing %q in %v", want, issues)
			}
		})
	}
}

func TestCountBySeverity(t *testing.T) {
	issues := []Issue{
		{Severity: SeverityError},
		{Severity: SeverityWarning},
		{Severity: SeverityWarning},
	}
	counts := CountBySeverity(issues)
	assert.Equal(t, 1, counts[SeverityError])
	assert.Equal(t, 2, counts[SeverityWarning])
}

func TestIssue_String(t *testing.T) {
	i := Issue{Severity: SeverityWarning, Mapping: 3, Message: "target is blank"}
	assert.Equal(t, "warning: mappings[3]: target is blank", i.String())
}
