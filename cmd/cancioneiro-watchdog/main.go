package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cancioneiro/internal/modkit"
	"cancioneiro/internal/modkit/module"
	"cancioneiro/internal/platform/config"
	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/platform/store"

	jobsmod "cancioneiro/internal/services/jobs/module"
	pipemod "cancioneiro/internal/services/pipeline/module"
	wdmod "cancioneiro/internal/services/watchdog/module"
)

func main() {
	l := logger.Get()
	root, err := config.Default()
	if err != nil {
		l.Panic().Err(err).Msg("config load failed")
	}

	var (
		fOnce     = flag.Bool("once", false, "run a single sweep and exit")
		fInterval = flag.Duration("interval", 0, "sweep interval (0 = CORE_WATCHDOG_INTERVAL)")
		fStall    = flag.Duration("stall-after", 0, "idle time before a running job counts as stuck (0 = CORE_WATCHDOG_STALL_AFTER)")
		fMax      = flag.Int("max-attempts", 0, "auto resumes before a job needs manual attention (0 = CORE_WATCHDOG_MAX_ATTEMPTS)")
		fConc     = flag.Int("concurrency", 0, "parallel resumes per sweep (0 = CORE_WATCHDOG_CONCURRENCY)")
		fRPS      = flag.Float64("rps", 0, "resumes per second (0 = CORE_WATCHDOG_RATE)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := store.ConfigFromEnv(root, "watchdog")
	if !cfg.PG.Enabled {
		l.Panic().Msg("watchdog needs SERVICE_PGSQL_DBURL, in memory jobs only live inside the api process")
	}
	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	// resumes post continuations to CORE_API_PUBLIC_URL; the pipeline is only needed to build the orchestrator
	pipe := pipemod.New(deps, pipemod.Options{})
	jobs := jobsmod.New(deps, module.MustPortsOf[pipemod.Ports](pipe).Pipeline, nil, jobsmod.Options{Backend: jobsmod.BackendPG})
	wd := wdmod.New(deps, module.MustPortsOf[jobsmod.Ports](jobs).Service, wdmod.Options{
		Interval:    *fInterval,
		StallAfter:  *fStall,
		MaxAttempts: *fMax,
		Concurrency: *fConc,
		RatePerSec:  *fRPS,
	})
	ports := module.MustPortsOf[wdmod.Ports](wd)

	if *fOnce {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		rep, err := ports.Watchdog.SweepOnce(sctx)
		if err != nil {
			l.Error().Err(err).Msg("sweep failed")
			os.Exit(1)
		}
		l.Info().Any("report", rep).Msg("single sweep done")
		return
	}

	if !ports.Enabled {
		l.Warn().Msg("CORE_WATCHDOG_ENABLED is false, nothing to do")
		return
	}
	if err := ports.Watchdog.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("watchdog stopped")
	}
}
