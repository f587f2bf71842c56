package diskx

import (
	"fmt"
	"maps"
	"sort"
)

// Driver identifiers understood by the registry
const (
	DriverLocal = "local"
	DriverS3    = "s3"

	// DriverAWSS3 is accepted as an alias of DriverS3
	DriverAWSS3 = "aws-s3"
)

// Option keys holding secrets; redacted by Sanitize
var secretOptions = []string{"key", "secret", "session_token", "external_id"}

const redacted = "[redacted]"

// DiskConfig describes one disk: a driver name and its string options.
// It is consumed once when the disk is built.
type DiskConfig struct {
	// Driver selects the backend ("local" or "s3")
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Options are driver specific settings
	Options map[string]string `mapstructure:"options" yaml:"options"`
}

// NewDiskConfig creates a DiskConfig, copying opts
func NewDiskConfig(driver string, opts map[string]string) DiskConfig {
	return DiskConfig{Driver: driver, Options: maps.Clone(opts)}
}

// Option returns the option value for key or def when unset or empty
func (d DiskConfig) Option(key, def string) string {
	if v, ok := d.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// With returns a copy of d with key set to value
func (d DiskConfig) With(key, value string) DiskConfig {
	opts := maps.Clone(d.Options)
	if opts == nil {
		opts = make(map[string]string, 1)
	}
	opts[key] = value
	return DiskConfig{Driver: d.Driver, Options: opts}
}

// Sanitize returns a copy with secret options redacted
func (d DiskConfig) Sanitize() DiskConfig {
	out := DiskConfig{Driver: d.Driver, Options: maps.Clone(d.Options)}
	for _, k := range secretOptions {
		if v, ok := out.Options[k]; ok && v != "" {
			out.Options[k] = redacted
		}
	}
	return out
}

// Config holds the named disks and the default disk name
type Config struct {
	// Default names the disk returned when no name is given. Empty means
	// no default.
	Default string `mapstructure:"default" yaml:"default"`

	// Disks maps logical names to disk configurations
	Disks map[string]DiskConfig `mapstructure:"disks" yaml:"disks"`
}

// Prefix implements configx.Configurable and returns the configuration prefix
func (Config) Prefix() string { return "storage" }

// DefaultConfig returns a configuration with a single local disk named
// "local" rooted in the platform temp directory.
func DefaultConfig() *Config {
	return &Config{
		Default: DriverLocal,
		Disks: map[string]DiskConfig{
			DriverLocal: {Driver: DriverLocal, Options: map[string]string{}},
		},
	}
}

// AddDisk registers a disk configuration and returns the receiver for chaining
func (c *Config) AddDisk(name string, d DiskConfig) *Config {
	if c.Disks == nil {
		c.Disks = make(map[string]DiskConfig)
	}
	c.Disks[name] = NewDiskConfig(d.Driver, d.Options)
	return c
}

// Names returns the configured disk names in lexical order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Disks))
	for name := range c.Disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sanitize returns a copy with secrets redacted, suitable for logging.
// It implements logx.Sanitizable.
func (c *Config) Sanitize() any {
	if c == nil {
		return (*Config)(nil)
	}
	out := &Config{Default: c.Default, Disks: make(map[string]DiskConfig, len(c.Disks))}
	for name, d := range c.Disks {
		out.Disks[name] = d.Sanitize()
	}
	return out
}

// ConfigSummary returns a safe summary of the configuration for logging
func (c *Config) ConfigSummary() map[string]any {
	if c == nil {
		return map[string]any{"error": "nil config"}
	}

	drivers := make(map[string]string, len(c.Disks))
	for name, d := range c.Disks {
		drivers[name] = d.Driver
	}

	return map[string]any{
		"default": c.Default,
		"disks":   drivers,
	}
}

// String returns a safe string representation (redacts secrets)
func (c *Config) String() string {
	return fmt.Sprintf("Config{Default:%s, Disks:%v}", c.Default, c.Names())
}
