// Package config holds the launch parameters of a
// reduction run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one reduction run.
type Config struct {
	// Dimension of the hypercube; the topology has 2^dim
	// workers. Must be at least 2.
	Dimension int `yaml:"dimension"`

	// InputPath is the file the distributor scans for
	// numeric values.
	InputPath string `yaml:"input_path"`

	// GroupSize is the total number of group members,
	// distributor included. Zero means exactly enough for
	// the topology, 1 + 2^dim.
	GroupSize int `yaml:"group_size,omitempty"`
}

// Load reads a Config from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in the group size when unset.
func (c *Config) ApplyDefaults() {
	if c.GroupSize == 0 && c.Dimension > 0 {
		c.GroupSize = 1 + (1 << c.Dimension)
	}
}

// Validate reports the first configuration error, if any.
func (c *Config) Validate() error {
	if c.Dimension < 2 {
		return fmt.Errorf("invalid dimension (%d)", c.Dimension)
	}
	if c.InputPath == "" {
		return fmt.Errorf("no input file given")
	}
	expected := 1 + (1 << c.Dimension)
	if c.GroupSize < expected {
		return fmt.Errorf("not enough slots for hypercube topology: got %d when %d processes were expected",
			c.GroupSize, expected)
	}
	return nil
}
