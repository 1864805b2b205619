// Package config loads the dns-converge YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/acorn-io/dns-converge/pkg/backend"
	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/rand"
	"go.yaml.in/yaml/v3"
)

const (
	DefaultPath         = "dns-converge.yaml"
	DefaultProbePort    = 8080
	DefaultHostsFile    = "/etc/hosts"
	DefaultPollInterval = 10 * time.Second

	instanceIDLength = 16
)

// Adapters maps adapter names to their settings. A nil settings map turns
// the adapter off.
type Adapters map[string]map[string]string

type Profile struct {
	// TokenHash is the bcrypt hash of the token callers present in the token header.
	TokenHash string   `yaml:"tokenHash"`
	Adapters  Adapters `yaml:"adapters"`
}

type Config struct {
	Hostname     string                       `yaml:"hostname"`
	InstanceID   string                       `yaml:"instanceId"`
	ProbePort    int                          `yaml:"probePort"`
	HostsFile    string                       `yaml:"hostsFile"`
	Nameservers  []string                     `yaml:"nameservers"`
	PollInterval time.Duration                `yaml:"pollInterval"`
	Records      map[string]model.Declaration `yaml:"records"`
	Adapters     Adapters                     `yaml:"adapters"`
	Profiles     map[string]Profile           `yaml:"profiles"`
}

// Load reads, expands and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.expand()
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expand substitutes ${VAR} references in the values that commonly carry
// secrets or deployment specific addresses.
func (c *Config) expand() {
	c.Hostname = os.ExpandEnv(c.Hostname)
	for name, d := range c.Records {
		d.Data = os.ExpandEnv(d.Data)
		c.Records[name] = d
	}
	c.Adapters.expand()
	for _, p := range c.Profiles {
		p.Adapters.expand()
	}
}

func (a Adapters) expand() {
	for _, settings := range a {
		for k, v := range settings {
			settings[k] = os.ExpandEnv(v)
		}
	}
}

func (c *Config) defaults() {
	if c.InstanceID == "" {
		c.InstanceID = rand.StringWithSmall(instanceIDLength)
	}
	if c.ProbePort == 0 {
		c.ProbePort = DefaultProbePort
	}
	if c.HostsFile == "" {
		c.HostsFile = DefaultHostsFile
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Validate checks records and resolves every adapter name against the registry.
func (c *Config) Validate() error {
	for _, d := range c.RecordList() {
		name := d.Name
		if err := d.Type.IsValid(); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
		if d.Domain == "" || d.Data == "" {
			return fmt.Errorf("%w: record %s needs both domain and data", model.ErrUnsupportedConfiguration, name)
		}
		if name != d.Domain && !strings.HasSuffix(name, "."+d.Domain) {
			return fmt.Errorf("%w: record %s is not inside domain %s", model.ErrUnsupportedConfiguration, name, d.Domain)
		}
	}

	if err := c.Adapters.validate(); err != nil {
		return err
	}
	for name, p := range c.Profiles {
		if p.TokenHash == "" {
			return fmt.Errorf("profile %s: tokenHash is required", name)
		}
		if err := p.Adapters.validate(); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return nil
}

func (a Adapters) validate() error {
	for name := range a {
		if !backend.IsRegistered(name) {
			return fmt.Errorf("%w: unknown DNS adapter %q (known: %v)", model.ErrUnsupportedConfiguration, name, backend.Names())
		}
	}
	return nil
}

// RecordList returns the declared records sorted by name.
func (c *Config) RecordList() []model.Record {
	return model.Records(c.Records)
}
