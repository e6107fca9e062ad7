package loader

import (
	"bytes"
	"fmt"
	"os"

	"github.com/simcraft/simcraft/sim"
	"gopkg.in/yaml.v3"
)

// LoadYAMLBytes parses a Document from raw YAML, rejecting unrecognized
// keys (spec.md §6), matching the strict decoding sim/workload's
// LoadWorkloadSpec uses for the same reason: a typo'd field should fail
// fast rather than be silently ignored.
func LoadYAMLBytes(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, sim.WrapErr(sim.ParseError, err, "parsing model yaml")
	}
	return &doc, nil
}

// LoadYAMLFile reads and parses a YAML model file.
func LoadYAMLFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return LoadYAMLBytes(data)
}

// DumpYAML serializes doc back to YAML, the inverse of LoadYAMLBytes
// modulo field defaulting.
func DumpYAML(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// BuildFromYAMLFile loads and builds a Simulation from a YAML model file
// in one step.
func BuildFromYAMLFile(path string) (*sim.Simulation, error) {
	doc, err := LoadYAMLFile(path)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}
