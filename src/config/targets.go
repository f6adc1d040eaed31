package config

import "sort"

// Target is one named deployment sequence: an ordered list of overlay
// operations, optionally followed by a macro-expansion pass over every
// build-definition file in the image tree. The table is configuration
// data; the dispatcher iterates it uniformly.
type Target struct {
	Operations   []Operation `yaml:"operations" toml:"operations"`
	ExpandMacros bool        `yaml:"expand-macros" toml:"expand-macros"`
}

// Operation deploys one configuration bundle into the variants of one
// family that match the filter.
type Operation struct {
	// Bundle is the configuration source tree, relative to the
	// provisioning root (e.g. "php/general").
	Bundle string `yaml:"bundle" toml:"bundle"`
	// Family is the image family directory the bundle deploys into.
	Family string `yaml:"family" toml:"family"`
	// Filter selects variants within the family by name glob.
	Filter string `yaml:"filter" toml:"filter"`
	// Bootstrap copies the bundle into the variant's build-context
	// root instead of conf/, and never clears first.
	Bootstrap bool `yaml:"bootstrap,omitempty" toml:"bootstrap,omitempty"`
}

// TargetNames returns the configured target names, sorted.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
