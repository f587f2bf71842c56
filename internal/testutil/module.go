package testutil

import (
	"testing"

	"github.com/gostratum/core/logx"
	"go.uber.org/fx"

	"github.com/gostratum/diskx"
)

// TestModule supplies a *diskx.Config with a single local disk rooted in a
// per-test temp directory, plus a no-op logger.
//
// Example usage:
//
//	app := fxtest.New(t,
//	    testutil.TestModule(t),
//	    registry.Components(),
//	    fx.Invoke(func(s diskx.Storage) {
//	        // Use the default disk
//	    }),
//	)
func TestModule(t testing.TB) fx.Option {
	return fx.Module("diskx-test",
		fx.Supply(NewTestConfig(t.TempDir())),
		fx.Provide(func() logx.Logger { return logx.NewNoopLogger() }),
	)
}

// NewTestConfig creates a configuration with one local disk named "local"
// as the default.
func NewTestConfig(root string) *diskx.Config {
	cfg := &diskx.Config{Default: diskx.DriverLocal}
	cfg.AddDisk(diskx.DriverLocal, diskx.NewDiskConfig(diskx.DriverLocal, map[string]string{
		"root": root,
	}))
	return cfg
}
