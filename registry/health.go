package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gostratum/core"

	"github.com/gostratum/diskx"
)

const healthTimeout = 2 * time.Second

// healthCheck implements core.Check by pinging every registered disk
type healthCheck struct {
	registry *Registry
}

// NewHealthCheck returns a readiness check covering all disks of r
func NewHealthCheck(r *Registry) core.Check {
	return &healthCheck{registry: r}
}

func (h *healthCheck) Name() string { return "diskx" }

func (h *healthCheck) Kind() core.Kind { return core.Readiness }

func (h *healthCheck) Check(ctx context.Context) error {
	if h.registry == nil {
		return fmt.Errorf("no disk registry")
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var errs []error
	for _, name := range h.registry.Names() {
		s, err := h.registry.Disk(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := diskx.Ping(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("disk %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
