package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source tells a Loader where the topology lives.
type Source struct {
	// Inline is a JSON document, usually taken from an environment variable.
	Inline string
	// File is a path to a .json, .yaml or .yml document.
	File string
}

// Loader loads and validates a topology from its Source.
type Loader struct {
	source Source
}

// NewLoader creates a loader for the given source.
func NewLoader(src Source) *Loader {
	return &Loader{source: src}
}

// Load reads the topology. Inline JSON takes precedence over the file.
// Every failure is a *ConfigurationError.
func (l *Loader) Load() (*Topology, error) {
	switch {
	case strings.TrimSpace(l.source.Inline) != "":
		return ParseJSON([]byte(l.source.Inline), "inline")
	case l.source.File != "":
		return LoadFile(l.source.File)
	default:
		return nil, &ConfigurationError{Err: ErrNotConfigured}
	}
}

// LoadFile reads a topology file, choosing the decoder by extension.
func LoadFile(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	default:
		return ParseJSON(data, path)
	}
}

// ParseJSON decodes and validates a JSON topology document.
func ParseJSON(data []byte, source string) (*Topology, error) {
	var t Topology
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, &ConfigurationError{Source: source, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return finish(&t, source)
}

// ParseYAML decodes and validates a YAML topology document.
func ParseYAML(data []byte, source string) (*Topology, error) {
	var t Topology
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, &ConfigurationError{Source: source, Err: fmt.Errorf("invalid YAML: %w", err)}
	}
	return finish(&t, source)
}

func finish(t *Topology, source string) (*Topology, error) {
	if err := t.Validate(); err != nil {
		return nil, &ConfigurationError{Source: source, Err: err}
	}
	return t, nil
}
