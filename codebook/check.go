package codebook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/codebook/schema"
)

// CheckOptions controls how Check judges a document.
type CheckOptions struct {
	// Strict fails documents that only have lint warnings.
	Strict bool
	// SkipLint stops after schema validation.
	SkipLint bool
}

// Report is the combined schema and lint outcome for one document.
type Report struct {
	Valid    bool      `json:"valid"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
	Issues   []Issue   `json:"-"`
	Codebook *Codebook `json:"-"`
}

// Check validates data against v, then lints the decoded codebook.
// Codebook is set whenever the document passed schema validation.
func Check(v *schema.Validator, data []byte, opts CheckOptions) *Report {
	result := v.Validate(data)
	if !result.Valid {
		return &Report{Valid: false, Errors: result.Errors}
	}

	var cb Codebook
	if err := json.Unmarshal(data, &cb); err != nil {
		return &Report{Valid: false, Errors: []string{fmt.Sprintf("decode codebook: %v", err)}}
	}

	report := &Report{Valid: true, Codebook: &cb}
	if opts.SkipLint {
		return report
	}

	report.Issues = cb.Lint()
	for _, issue := range report.Issues {
		if issue.Severity == SeverityError {
			report.Errors = append(report.Errors, issue.String())
		} else {
			report.Warnings = append(report.Warnings, issue.String())
		}
	}
	report.Valid = len(report.Errors) == 0 && !(opts.Strict && len(report.Warnings) > 0)
	return report
}

// FormatFeedback renders the report as a short human-readable block.
func (r *Report) FormatFeedback() string {
	if r.Valid && len(r.Warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, e := range r.Errors {
		sb.WriteString("  - ")
		sb.WriteString(e)
		sb.WriteString("\n")
	}
	for _, w := range r.Warnings {
		sb.WriteString("  - ")
		sb.WriteString(w)
		sb.WriteString("\n")
	}
	return sb.String()
}
