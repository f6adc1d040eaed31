// Package config loads the orchestrator configuration, including the
// declarative deployment target table.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config file candidates, tried in order when --config is not given.
var defaultConfigFiles = []string{".imageforge.yml", ".imageforge.yaml", ".imageforge.toml"}

// Config is the top-level imageforge configuration.
type Config struct {
	Paths   PathsConfig       `yaml:"paths" toml:"paths"`
	Targets map[string]Target `yaml:"targets" toml:"targets"`
	Scan    ScanConfig        `yaml:"scan" toml:"scan"`
}

// PathsConfig locates the two directory trees the orchestrator works on,
// relative to the repository root.
type PathsConfig struct {
	// Images is the image family tree: <images>/<family>/<variant>/.
	Images string `yaml:"images" toml:"images"`
	// Provision is the provisioning root holding fragments and bundles.
	Provision string `yaml:"provision" toml:"provision"`
}

// ScanConfig controls the pre-deploy secrets scan.
type ScanConfig struct {
	// Gate runs the secrets scan before deploy and aborts on findings.
	Gate bool `yaml:"gate" toml:"gate"`
	// MaxFileSize skips files larger than this many bytes (0 = default).
	MaxFileSize int64 `yaml:"max-file-size" toml:"max-file-size"`
}

// Load reads configuration from a YAML or TOML file, selected by
// extension. If path is empty, the default candidates are tried in
// order; when none exists, built-in defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, candidate := range defaultConfigFiles {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return defaults(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, err
	}

	cfg := defaults()
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Paths: PathsConfig{
			Images:    "docker",
			Provision: "provision",
		},
		Targets: map[string]Target{},
	}
}

func (c *Config) validate() error {
	if c.Paths.Images == "" {
		return errors.New("paths.images must not be empty")
	}
	if c.Paths.Provision == "" {
		return errors.New("paths.provision must not be empty")
	}
	for name, t := range c.Targets {
		if name == "all" {
			return errors.New(`"all" is reserved and cannot name a target`)
		}
		for i, op := range t.Operations {
			if op.Family == "" {
				return fmt.Errorf("target %s: operation %d: family must not be empty", name, i+1)
			}
			if op.Bundle == "" {
				return fmt.Errorf("target %s: operation %d: bundle must not be empty", name, i+1)
			}
			if op.Filter == "" {
				return fmt.Errorf("target %s: operation %d: filter must not be empty (use \"*\")", name, i+1)
			}
		}
	}
	return nil
}
