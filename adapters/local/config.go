package local

import (
	"os"
	"strings"

	"github.com/gostratum/diskx"
)

const (
	defaultDirMode  os.FileMode = 0o755
	defaultFileMode os.FileMode = 0o644
)

// Config holds the local driver settings decoded from disk options
type Config struct {
	// Root is the directory all paths resolve against
	Root string `mapstructure:"root"`

	// URL is the base URL returned by Storage.URL
	URL string `mapstructure:"url"`

	// DirMode is the permission used for created directories
	DirMode os.FileMode `mapstructure:"dir_mode"`

	// FileMode is the permission used for written files
	FileMode os.FileMode `mapstructure:"file_mode"`
}

// ConfigFromDisk decodes a "local" disk configuration
func ConfigFromDisk(d diskx.DiskConfig) (*Config, error) {
	cfg := &Config{}
	if err := diskx.DecodeOptions(d, cfg); err != nil {
		return nil, err
	}
	return cfg.Sanitize(), nil
}

// Sanitize fills defaults and normalizes the base URL, returning a copy
func (c *Config) Sanitize() *Config {
	out := *c
	if out.Root == "" {
		out.Root = os.TempDir()
	}
	if out.DirMode == 0 {
		out.DirMode = defaultDirMode
	}
	if out.FileMode == 0 {
		out.FileMode = defaultFileMode
	}
	if !strings.HasSuffix(out.URL, "/") {
		out.URL += "/"
	}
	return &out
}
