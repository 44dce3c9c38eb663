package codebook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/codebook/schema"
)

// Parse validates data against the codebook schema and decodes it.
// Invalid documents return an error wrapping schema.ErrInvalidDocument.
func Parse(data []byte) (*Codebook, error) {
	v, err := schema.Codebook()
	if err != nil {
		return nil, fmt.Errorf("load codebook schema: %w", err)
	}
	if err := v.Validate(data).Err(); err != nil {
		return nil, err
	}

	var cb Codebook
	if err := json.Unmarshal(data, &cb); err != nil {
		return nil, fmt.Errorf("decode codebook: %w", err)
	}
	return &cb, nil
}

// ReadFile loads a codebook from a .json, .yaml or .yml file.
func ReadFile(path string) (*Codebook, error) {
	data, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ReadDocument reads path and returns its JSON form without validating it.
// YAML files are converted to JSON so the same schema applies to both.
func ReadDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read codebook file: %w", err)
	}
	if !IsYAML(path) {
		return data, nil
	}
	converted, err := YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", filepath.Base(path), err)
	}
	return converted, nil
}

// IsYAML reports whether path has a YAML extension.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// YAMLToJSON re-encodes a YAML document as JSON.
func YAMLToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	normalized, err := normalizeYAML(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalizeYAML converts map[any]any nodes, which encoding/json cannot
// marshal, into map[string]any.
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		for i, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	default:
		return v, nil
	}
}

// Marshal returns the indented JSON form of the codebook.
func (cb *Codebook) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(cb, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal codebook: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes the codebook as JSON, creating parent directories.
func (cb *Codebook) WriteFile(path string) error {
	data, err := cb.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create codebook directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write codebook file: %w", err)
	}
	return nil
}
