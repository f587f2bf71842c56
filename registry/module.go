package registry

import (
	"context"
	"time"

	"github.com/gostratum/core"
	"github.com/gostratum/core/logx"
	"go.uber.org/fx"

	"github.com/gostratum/diskx"
)

const buildTimeout = 30 * time.Second

// Module provides the disk registry, the default disk and a readiness check.
// Configuration is read from the "storage" section through configx.
//
// Example usage:
//
//	app := core.New(
//	    registry.Module(),
//	    fx.Invoke(func(disks *registry.Registry) {
//	        s, _ := disks.Disk("uploads")
//	        // Use s...
//	    }),
//	)
func Module() fx.Option {
	return fx.Options(
		diskx.Module(),
		Components(),
	)
}

// Components provides the registry pieces without the configx binding, for
// applications that supply their own *diskx.Config.
func Components() fx.Option {
	return fx.Module("diskx",
		fx.Provide(
			NewFromParams,
			DefaultDisk,
		),
		fx.Provide(
			fx.Annotated{
				Target: NewHealthCheck,
				Group:  "health_checkers",
			},
		),
	)
}

// Params defines the dependencies of the registry
type Params struct {
	fx.In

	Lifecycle    fx.Lifecycle
	Config       *diskx.Config
	Logger       logx.Logger         `optional:"true"`
	Instrumenter *diskx.Instrumenter `optional:"true"`
}

// NewFromParams builds the registry from the fx graph
func NewFromParams(p Params) (*Registry, error) {
	var opts []diskx.Option
	if p.Logger != nil {
		opts = append(opts, diskx.WithLogger(p.Logger))
	}
	if p.Instrumenter != nil {
		opts = append(opts, diskx.WithInstrumenter(p.Instrumenter))
	}

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	r, err := Build(ctx, p.Config, opts...)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			r.logger.Info("Disk registry started", logx.Any("disks", r.Names()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.logger.Info("Disk registry stopped")
			return nil
		},
	})

	return r, nil
}

// DefaultDisk exposes the default disk as diskx.Storage
func DefaultDisk(r *Registry) (diskx.Storage, error) {
	return r.Default()
}

var _ core.Check = (*healthCheck)(nil)
