package codebook

import (
	"fmt"
	"strings"
)

// Severity classifies a lint issue.
type Severity string

const (
	// SeverityError marks an issue that makes the codebook unusable for decoding.
	SeverityError Severity = "error"
	// SeverityWarning marks a suspicious but decodable codebook.
	SeverityWarning Severity = "warning"
)

// Issue is a semantic problem found by Lint.
type Issue struct {
	Severity Severity `json:"severity"`
	Mapping  int      `json:"mapping"`
	Message  string   `json:"message"`
}

// String formats the issue for terminal output.
func (i Issue) String() string {
	return fmt.Sprintf("%s: mappings[%d]: %s", i.Severity, i.Mapping, i.Message)
}

// Lint runs semantic checks the schema cannot express. Issues are ordered by
// mapping index.
func (cb *Codebook) Lint() []Issue {
	var issues []Issue

	rounds := cb.Rounds()
	keyOwner := make(map[string]int, len(cb.Mappings))
	targetOwner := make(map[string]int, len(cb.Mappings))

	for i, m := range cb.Mappings {
		if strings.TrimSpace(m.Target) == "" {
			issues = append(issues, Issue{SeverityWarning, i, "target is blank"})
		} else if first, ok := targetOwner[m.Target]; ok {
			issues = append(issues, Issue{SeverityWarning, i,
				fmt.Sprintf("target %q already mapped at mappings[%d]", m.Target, first)})
		} else {
			targetOwner[m.Target] = i
		}

		positions := make(map[[2]int]bool, len(m.Codeword))
		covered := make(map[int]bool, rounds)
		positive := false
		for _, e := range m.Codeword {
			pos := [2]int{e.Round, e.Channel}
			if positions[pos] {
				issues = append(issues, Issue{SeverityError, i,
					fmt.Sprintf("codeword repeats round %d channel %d", e.Round, e.Channel)})
			}
			positions[pos] = true
			if e.Value > 0 {
				positive = true
				covered[e.Round] = true
			}
		}

		if !positive {
			issues = append(issues, Issue{SeverityWarning, i, "codeword has no positive value"})
			continue
		}
		if len(covered) < rounds {
			issues = append(issues, Issue{SeverityWarning, i,
				fmt.Sprintf("codeword covers %d of %d rounds", len(covered), rounds)})
		}

		key := Key(m.Codeword)
		if first, ok := keyOwner[key]; ok {
			if cb.Mappings[first].Target != m.Target {
				issues = append(issues, Issue{SeverityError, i,
					fmt.Sprintf("codeword identical to mappings[%d] (%s)", first, cb.Mappings[first].Target)})
			}
			continue
		}
		keyOwner[key] = i
	}

	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity tallies issues per severity.
func CountBySeverity(issues []Issue) map[Severity]int {
	counts := make(map[Severity]int, 2)
	for _, i := range issues {
		counts[i.Severity]++
	}
	return counts
}
