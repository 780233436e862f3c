package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and structurally decodes a module YAML document.
// Returns a structural error if the YAML contains unknown fields.
func LoadFile(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a module document from a reader.
func Load(r io.Reader) (*Module, error) {
	var m Module
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // strict: reject unknown fields
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	return &m, nil
}

// LoadInfoFile reads the metadata record of a module.
func LoadInfoFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open info: %w", err)
	}
	defer f.Close()
	return LoadInfo(f)
}

// LoadInfo reads a metadata record from a reader.
func LoadInfo(r io.Reader) (*Info, error) {
	var info Info
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&info); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	return &info, nil
}
