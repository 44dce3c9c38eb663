// Package schema embeds the codebook JSON Schema and validates documents against it.
//
// Validation is delegated to a standard JSON Schema engine. Failures carry the
// engine's own messages (missing required property, additional property,
// type mismatch, array length) rather than a custom taxonomy.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// FormatVersion is the codebook format version described by CodebookSchema.
const FormatVersion = "0.0.0"

// CodebookSchema is the bundled codebook schema. The codeword and version
// definitions live under $defs.
//
//go:embed codebook_0.0.0.json
var CodebookSchema []byte

// ErrInvalidDocument is wrapped by Result.Err when a document fails validation.
var ErrInvalidDocument = errors.New("invalid codebook document")

var (
	codebookOnce      sync.Once
	codebookValidator *Validator
	codebookErr       error
)

// Validator checks JSON documents against a resolved schema.
type Validator struct {
	name     string
	resolved *jsonschema.Resolved
}

// Result contains the outcome of validating one document.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Codebook returns the shared validator for the bundled codebook schema.
func Codebook() (*Validator, error) {
	codebookOnce.Do(func() {
		codebookValidator, codebookErr = New("codebook_"+FormatVersion, CodebookSchema)
	})
	return codebookValidator, codebookErr
}

// New compiles a schema document into a Validator.
func New(name string, raw []byte) (*Validator, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema %s: %w", name, err)
	}
	return &Validator{name: name, resolved: resolved}, nil
}

// Name returns the schema name the validator was built from.
func (v *Validator) Name() string {
	return v.name
}

// Validate parses document as JSON and validates it.
func (v *Validator) Validate(document []byte) *Result {
	var instance any
	if err := json.Unmarshal(document, &instance); err != nil {
		return &Result{
			Valid:  false,
			Errors: []string{fmt.Sprintf("parse JSON: %v", err)},
		}
	}
	return v.ValidateValue(instance)
}

// ValidateValue validates a value produced by decoding JSON into an any.
func (v *Validator) ValidateValue(instance any) *Result {
	if err := v.resolved.Validate(instance); err != nil {
		return &Result{
			Valid:  false,
			Errors: []string{err.Error()},
		}
	}
	return &Result{Valid: true}
}

// Err returns nil for a valid result and an ErrInvalidDocument wrap otherwise.
func (r *Result) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(r.Errors, "; "))
}
