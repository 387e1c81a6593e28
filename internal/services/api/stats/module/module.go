// Package module wires stats into the API using modkit
package module

import (
	modkit "cancioneiro/internal/modkit"
	"cancioneiro/internal/modkit/httpkit"
	"cancioneiro/internal/modkit/repokit"
	str "cancioneiro/internal/platform/strings"
	statshttp "cancioneiro/internal/services/api/stats/http"
	statsrepo "cancioneiro/internal/services/api/stats/repo"
	statssvc "cancioneiro/internal/services/api/stats/service"
	jobsrepo "cancioneiro/internal/services/jobs/repo"
	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

// Sources feeds the stats module. Output is read when postgres is absent
type Sources struct {
	Jobs   statssvc.Jobs
	Output *jobsrepo.MemoryOutput
	Totals statssvc.Totals
}

// Module implements the stats module
type Module struct {
	b     modkit.Built
	deps  modkit.Deps
	ports any
	svc   statssvc.Service
}

// New constructs the stats module
func New(deps modkit.Deps, src Sources, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("stats"), modkit.WithPrefix("/stats")}, opts...)...)

	var (
		db     repokit.Queryer
		binder repokit.Binder[statsrepo.Repo] = statsrepo.NewPG()
	)
	if deps.PG != nil {
		db = repokit.Queryer(deps.PG)
	} else {
		var words func(uuid.UUID) []pipedomain.Word
		if src.Output != nil {
			words = src.Output.Words
		}
		binder = statsrepo.NewMemory(words)
	}
	if src.Totals == nil && deps.CH != nil {
		src.Totals = jobsrepo.NewCHEvents(deps.CH)
	}
	svc := statssvc.New(db, binder, src.Jobs, src.Totals)

	return &Module{b: b, deps: deps, svc: svc, ports: adaptStatsPort{svc: svc}}
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { statshttp.Register(rr, m.svc) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "stats") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.b.Prefix) }
