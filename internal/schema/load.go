package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a schema from disk. Files ending in .xlsx are read as column
// templates; everything else is parsed as YAML.
//
// PARAMETERS:
//   - path: The schema file path.
//
// RETURNS:
//   - The schema with explode defaults applied.
//   - An error if the file cannot be read, decoded, or declares no columns.
func Load(path string) (*Schema, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		s, err := LoadTemplate(path)
		if err != nil {
			return nil, err
		}
		s.Source = path
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", path, err)
	}
	s.Source = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes a YAML schema document. Unknown keys are rejected so typos
// in column definitions surface at load time.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	if len(s.XLSX.Columns) == 0 {
		return nil, ErrNoColumns
	}
	applyDefaults(&s)
	return &s, nil
}

// Marshal encodes s back to YAML.
func Marshal(s *Schema) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
