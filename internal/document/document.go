// Package document reads raw metadata documents from JSON or YAML.
package document

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Document maps field names to raw values. A raw value is nil, a scalar, a
// nested map[string]interface{} or a []interface{}.
type Document = map[string]interface{}

// CorruptError reports a document whose representation could not be read
type CorruptError struct {
	Source string
	Err    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt document %s: %v", e.Source, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Parse decodes a JSON or YAML document. The top level must be a mapping;
// an empty input yields an empty document.
func Parse(source string, data []byte) (Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &CorruptError{Source: source, Err: err}
	}

	switch v := raw.(type) {
	case nil:
		return Document{}, nil
	case map[string]interface{}:
		return v, nil
	default:
		return nil, &CorruptError{Source: source, Err: fmt.Errorf("top level is %T, not a mapping", raw)}
	}
}

// Load reads and parses a document file
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(path, data)
}
