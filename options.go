package diskx

import (
	"github.com/gostratum/core/logx"
)

// Options holds functional options shared by the backends and the registry
type Options struct {
	logger       logx.Logger
	instrumenter *Instrumenter
}

// Option is a functional option for configuring disks
type Option func(*Options)

// WithLogger sets a custom core logx.Logger
func WithLogger(logger logx.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithInstrumenter enables metrics and tracing for every disk
func WithInstrumenter(i *Instrumenter) Option {
	return func(opts *Options) {
		opts.instrumenter = i
	}
}

// NewOptions applies opts over the defaults
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()
	return o
}

// applyDefaults applies default values to unset options
func (opts *Options) applyDefaults() {
	if opts.logger == nil {
		opts.logger = logx.NewNoopLogger()
	}
}

// GetLogger returns the configured logger
func (opts *Options) GetLogger() logx.Logger {
	if opts.logger == nil {
		return logx.NewNoopLogger()
	}
	return opts.logger
}

// GetInstrumenter returns the configured instrumenter, nil when disabled
func (opts *Options) GetInstrumenter() *Instrumenter {
	return opts.instrumenter
}
