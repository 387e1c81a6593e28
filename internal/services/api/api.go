// Package api provides the HTTP API for the application
package api

import (
	"cancioneiro/internal/platform/config"
	"cancioneiro/internal/platform/logger"
	phttp "cancioneiro/internal/platform/net/http"
	"cancioneiro/internal/platform/net/middleware"
	"cancioneiro/internal/platform/store"

	"cancioneiro/internal/modkit"
	"cancioneiro/internal/modkit/httpkit"
	"cancioneiro/internal/modkit/module"
	"cancioneiro/internal/modkit/swaggerkit"

	metamod "cancioneiro/internal/services/api/meta/module"
	statsmod "cancioneiro/internal/services/api/stats/module"
	jobsmod "cancioneiro/internal/services/jobs/module"
	pipemod "cancioneiro/internal/services/pipeline/module"
	wdmod "cancioneiro/internal/services/watchdog/module"
)

// Options are the API options
type Options struct {
	// Config is the root config; modules take their own prefixes from it
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool

	// Stack tunes the shared middleware; zero keeps the defaults
	Stack httpkit.StackOptions

	// AnnotateLimit caps concurrent pipeline requests, extra ones wait in a backlog
	// of the same size and then get 503. Zero disables the cap
	AnnotateLimit int

	// Trigger replaces the HTTP self continuation when set
	Trigger jobsmod.Trigger
}

// Mounted is what the process runs beside the router
type Mounted struct {
	Pipeline pipemod.Ports
	Jobs     jobsmod.Ports
	Watchdog wdmod.Ports
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) Mounted {
	// shared deps for modules
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	// the pipeline owns the cache and the classifier; jobs drive it chunk by chunk
	var pipeOpts []modkit.Option
	if opt.AnnotateLimit > 0 {
		pipeOpts = append(pipeOpts, modkit.WithMiddlewares(
			middleware.ThrottleBacklog(opt.AnnotateLimit, opt.AnnotateLimit, httpkit.DefaultRequestTimeout),
		))
	}
	pipeline := pipemod.New(deps, pipemod.Options{}, pipeOpts...)
	pipePorts := module.MustPortsOf[pipemod.Ports](pipeline)

	jobs := jobsmod.New(deps, pipePorts.Pipeline, opt.Trigger, jobsmod.Options{})
	jobsPorts := module.MustPortsOf[jobsmod.Ports](jobs)

	watchdog := wdmod.New(deps, jobsPorts.Service, wdmod.Options{})

	mods := []module.Module{
		metamod.New(deps),
		statsmod.New(deps, statsmod.Sources{Jobs: jobsPorts.Jobs, Output: jobsPorts.Output}),
		pipeline,
		jobs,
		watchdog, // no routes
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(opt.Stack), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		log := logger.Named("api")
		for _, m := range mods {
			m.MountRoutes(api)
			log.Debug().Str("module", m.Name()).Msg("module mounted")
		}
	})

	return Mounted{
		Pipeline: pipePorts,
		Jobs:     jobsPorts,
		Watchdog: module.MustPortsOf[wdmod.Ports](watchdog),
	}
}
