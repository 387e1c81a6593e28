// Package module wires the stalled job watchdog and exposes its ports
package module

import (
	"cancioneiro/internal/modkit"
	"cancioneiro/internal/modkit/httpkit"
	"cancioneiro/internal/services/watchdog/service"
)

// Ports exposes the sweeper
type Ports struct {
	Watchdog *service.Service
	Enabled  bool
}

// Module defines the watchdog module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the watchdog over the jobs orchestrator
func New(deps modkit.Deps, jobs service.Jobs, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)

	if overrides.Interval != 0 {
		opts.Interval = overrides.Interval
	}
	if overrides.StallAfter != 0 {
		opts.StallAfter = overrides.StallAfter
	}
	if overrides.MaxAttempts != 0 {
		opts.MaxAttempts = overrides.MaxAttempts
	}
	if overrides.Concurrency != 0 {
		opts.Concurrency = overrides.Concurrency
	}
	if overrides.RatePerSec != 0 {
		opts.RatePerSec = overrides.RatePerSec
	}

	svc := service.New(jobs, service.Config{
		Interval:    opts.Interval,
		StallAfter:  opts.StallAfter,
		MaxAttempts: opts.MaxAttempts,
		Concurrency: opts.Concurrency,
		Rate:        opts.RatePerSec,
		Burst:       opts.Burst,
		Batch:       opts.Batch,
	})
	return &Module{deps: deps, ports: Ports{Watchdog: svc, Enabled: opts.Enabled}}
}

// Name returns the module name
func (m *Module) Name() string { return "watchdog" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns no route prefix
func (m *Module) Prefix() string { return "" }

// MountRoutes mounts nothing, the watchdog is a worker
func (m *Module) MountRoutes(_ httpkit.Router) {}
