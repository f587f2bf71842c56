package diskx

import (
	"fmt"

	"github.com/gostratum/core/configx"
	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"go.uber.org/fx"
)

// Module provides the storage configuration and the optional instrumenter.
// It builds no disks: include registry.Module() for a working registry.
func Module() fx.Option {
	return fx.Module("diskx-config",
		fx.Provide(
			NewConfig,
			NewObservabilityInstrumenter,
		),
	)
}

// NewConfig binds the "storage" configuration section through configx. With
// no disks configured it falls back to DefaultConfig.
func NewConfig(loader configx.Loader) (*Config, error) {
	cfg := &Config{}
	if err := loader.Bind(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Disks) == 0 {
		cfg = DefaultConfig()
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ObservabilityDeps defines optional observability dependencies
type ObservabilityDeps struct {
	fx.In

	Metrics metricsx.Metrics `optional:"true"`
	Tracer  tracingx.Tracer  `optional:"true"`
}

// NewObservabilityInstrumenter creates an instrumenter for disk operations
func NewObservabilityInstrumenter(deps ObservabilityDeps) *Instrumenter {
	return NewInstrumenter(deps.Metrics, deps.Tracer)
}
