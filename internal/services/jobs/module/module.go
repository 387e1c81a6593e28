// Package module wires the job orchestrator
package module

import (
	"cancioneiro/internal/modkit"
	"cancioneiro/internal/modkit/httpkit"
	"cancioneiro/internal/modkit/repokit"
	"cancioneiro/internal/platform/logger"
	str "cancioneiro/internal/platform/strings"
	"cancioneiro/internal/services/jobs/domain"
	"cancioneiro/internal/services/jobs/guardrails"
	jobshttp "cancioneiro/internal/services/jobs/http"
	"cancioneiro/internal/services/jobs/repo"
	"cancioneiro/internal/services/jobs/service"
	pipedomain "cancioneiro/internal/services/pipeline/domain"
)

// Ports exposed by the jobs module
type Ports struct {
	Jobs    domain.Ports
	Service *service.Service
	// Memory and Sources are set on the memory backend so callers can seed work sets
	Memory  *repo.Memory
	Sources *repo.MemorySources
	Output  *repo.MemoryOutput
}

// Module implements modkit.Module
type Module struct {
	b      modkit.Built
	deps   modkit.Deps
	ports  Ports
	routes func(httpkit.Router)
}

// Trigger picks how continuations are scheduled; nil uses the HTTP trigger on PublicURL
type Trigger = domain.Trigger

// New constructs the jobs module over a pipeline. trigger may be nil
func New(deps modkit.Deps, pipe pipedomain.Ports, trigger Trigger, overrides Options, opts ...modkit.Option) *Module {
	if pipe == nil {
		panic("jobs module requires a pipeline")
	}
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("jobs"),
		modkit.WithPrefix("/jobs"),
	}, opts...)...)

	cfg := merge(FromConfig(deps.Cfg), overrides)
	log := logger.Named("jobs")

	if cfg.Backend == BackendPG && deps.PG == nil {
		log.Warn().Msg("no postgres configured, jobs kept in memory")
		cfg.Backend = BackendMemory
	}

	var (
		ports Ports
		d     = service.Deps{Pipeline: pipe}
	)
	switch cfg.Backend {
	case BackendMemory:
		ports.Memory = repo.NewMemory()
		ports.Sources = repo.NewMemorySources(ports.Memory.Items)
		ports.Output = repo.NewMemoryOutput()
		d.Repo, d.Sources, d.Output = ports.Memory, ports.Sources, ports.Output
	default:
		d.DB = repokit.Queryer(deps.PG)
		d.Repo, d.Sources, d.Output = repo.NewPG(), repo.NewPGSources(), repo.NewPGOutput()
	}

	if cfg.Events && deps.CH != nil {
		d.Events = repo.NewCHEvents(deps.CH)
	}

	if trigger == nil {
		trigger = service.NewHTTPTrigger(service.TriggerOptions{
			BaseURL:  cfg.PublicURL,
			Timeout:  cfg.TriggerTimeout,
			Attempts: cfg.TriggerAttempts,
			Backoff:  cfg.TriggerBackoff,
		})
	}
	d.Trigger = trigger

	svc := service.New(d, service.Config{
		ChunkSize:    cfg.ChunkSize,
		MaxChunkSize: cfg.MaxChunkSize,
		StallAfter:   cfg.StallAfter,
		ResumeLease:  cfg.ResumeLease,
		Autostart:    cfg.Autostart,
		Timeouts: guardrails.Timeouts{
			Chunk:   cfg.ChunkTimeout,
			DB:      cfg.DBTimeout,
			Trigger: cfg.TriggerTimeout,
		},
	})
	ports.Jobs = svc
	ports.Service = svc

	log.Info().
		Str("backend", cfg.Backend).
		Int("chunk_size", cfg.ChunkSize).
		Bool("autostart", cfg.Autostart).
		Bool("events", d.Events != nil).
		Str("public_url", cfg.PublicURL).
		Msg("jobs ready")

	return &Module{
		b:      b,
		deps:   deps,
		ports:  ports,
		routes: func(r httpkit.Router) { jobshttp.Register(r, svc, cfg.ChunkTimeout) },
	}
}

// MountRoutes mounts the job routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) { m.b.Mount(r, m.routes) }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "jobs") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.b.Prefix) }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
