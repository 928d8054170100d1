package zpk

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/requirement"
)

// ConfigPath is the entry path of the package configuration.
const ConfigPath = "/package.config"

// Config is the package configuration stored at ConfigPath.
type Config struct {
	Name         string                   `yaml:"name"`
	Version      ident.Version            `yaml:"version"`
	Domain       string                   `yaml:"domain"`
	Description  string                   `yaml:"description,omitempty"`
	Requirements requirement.Dependencies `yaml:"requirements,omitempty"`
}

// NewConfig returns the configuration describing spec.
func NewConfig(spec ident.Specifier, description string, requirements []requirement.Dependency) *Config {
	return &Config{
		Name:         spec.ID.Name,
		Version:      spec.Version,
		Domain:       spec.ID.Domain,
		Description:  description,
		Requirements: requirements,
	}
}

// ParseConfig decodes a package configuration and checks that it names a
// valid specifier.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse package config: %w", err)
	}
	if spec := c.Specifier(); !spec.IsValid() {
		return nil, fmt.Errorf("parse package config: %w: %q", ident.ErrInvalidSpecifier, spec)
	}
	return &c, nil
}

// Specifier returns the package specifier named by the configuration.
func (c *Config) Specifier() ident.Specifier {
	return ident.NewSpecifier(c.Name, c.Domain, c.Version)
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
