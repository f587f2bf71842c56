// Package registry maps logical disk names to storage backends and tracks
// the default disk.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/gostratum/core/logx"

	"github.com/gostratum/diskx"
	"github.com/gostratum/diskx/adapters/local"
	"github.com/gostratum/diskx/adapters/s3"
)

// Registry holds the disks built at startup. It performs no locking: build
// it once, then only read from it or add disks before sharing it.
type Registry struct {
	disks       map[string]diskx.Storage
	defaultName string
	options     []diskx.Option
	logger      logx.Logger
	instr       *diskx.Instrumenter
}

// New creates an empty registry. Options are passed to every backend built
// by Build.
func New(opts ...diskx.Option) *Registry {
	o := diskx.NewOptions(opts...)
	return &Registry{
		disks:   make(map[string]diskx.Storage),
		options: opts,
		logger:  o.GetLogger(),
		instr:   o.GetInstrumenter(),
	}
}

// Build validates cfg and eagerly constructs every configured disk. Any
// unknown driver or failing backend aborts the whole build.
func Build(ctx context.Context, cfg *diskx.Config, opts ...diskx.Option) (*Registry, error) {
	if err := diskx.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	r := New(opts...)
	for _, name := range cfg.Names() {
		s, err := r.build(ctx, cfg.Disks[name])
		if err != nil {
			return nil, fmt.Errorf("disk %q: %w", name, err)
		}
		r.register(name, s)
		r.logger.Info("Disk registered",
			logx.Any("disk", name),
			logx.Any("driver", cfg.Disks[name].Driver),
			logx.Any("options", cfg.Disks[name].Sanitize().Options),
		)
	}

	if cfg.Default != "" {
		if err := r.SetDefaultDisk(cfg.Default); err != nil {
			return nil, err
		}
	}

	r.logger.Info("Storage registry ready", logx.Any("config", cfg.ConfigSummary()))
	return r, nil
}

// build dispatches on the driver identifier
func (r *Registry) build(ctx context.Context, d diskx.DiskConfig) (diskx.Storage, error) {
	switch d.Driver {
	case diskx.DriverLocal:
		return local.NewFromDisk(d, r.options...)
	case diskx.DriverS3, diskx.DriverAWSS3:
		return s3.NewFromDisk(ctx, d, r.options...)
	default:
		return nil, &diskx.ValidationError{Field: "driver", Message: fmt.Sprintf("unsupported driver %q", d.Driver)}
	}
}

func (r *Registry) register(name string, s diskx.Storage) {
	r.disks[name] = diskx.Instrument(s, name, r.instr)
}

// Disk returns the disk registered under name. With no name it returns the
// default disk.
func (r *Registry) Disk(name ...string) (diskx.Storage, error) {
	if len(name) == 0 {
		return r.Default()
	}
	s, ok := r.disks[name[0]]
	if !ok {
		return nil, diskx.NewError("disk", name[0], diskx.ErrInvalidConfig, fmt.Errorf("disk %q is not registered", name[0]))
	}
	return s, nil
}

// Default returns the default disk
func (r *Registry) Default() (diskx.Storage, error) {
	if r.defaultName == "" {
		return nil, diskx.NewError("disk", "", diskx.ErrInvalidConfig, fmt.Errorf("no default disk configured"))
	}
	return r.Disk(r.defaultName)
}

// MustDisk is like Disk but panics on error
func (r *Registry) MustDisk(name ...string) diskx.Storage {
	s, err := r.Disk(name...)
	if err != nil {
		panic(err)
	}
	return s
}

// AddDisk registers a pre-built backend under name, bypassing driver
// dispatch. Registered disks are never replaced, so a taken name is rejected.
func (r *Registry) AddDisk(name string, s diskx.Storage) error {
	if name == "" {
		return &diskx.ValidationError{Field: "name", Message: "disk name cannot be empty"}
	}
	if s == nil {
		return &diskx.ValidationError{Field: name, Message: "storage cannot be nil"}
	}
	if _, exists := r.disks[name]; exists {
		return &diskx.ValidationError{Field: name, Message: "disk is already registered"}
	}
	r.register(name, s)
	return nil
}

// SetDefaultDisk makes name the default disk
func (r *Registry) SetDefaultDisk(name string) error {
	if _, ok := r.disks[name]; !ok {
		return diskx.NewError("set_default", name, diskx.ErrInvalidConfig, fmt.Errorf("disk %q is not registered", name))
	}
	r.defaultName = name
	return nil
}

// DefaultName returns the default disk name, empty when unset
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Names returns the registered disk names in lexical order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.disks))
	for name := range r.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
