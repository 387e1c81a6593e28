// @title         Cancioneiro API
// @version       0.1.0
// @description   Annotation pipeline, resumable annotation jobs and their stats

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cancioneiro/internal/modkit/httpkit"
	"cancioneiro/internal/platform/config"
	"cancioneiro/internal/platform/logger"
	phttp "cancioneiro/internal/platform/net/http"
	"cancioneiro/internal/platform/store"

	"cancioneiro/internal/services/api"
)

func main() {
	// bring up logging early
	l := logger.Get()

	root, err := config.Default()
	if err != nil {
		l.Panic().Err(err).Msg("config load failed")
	}
	apiCfg := root.Prefix("CORE_API_")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// postgres and clickhouse are optional; without them jobs and the cache live in memory
	st, err := store.Open(ctx, store.ConfigFromEnv(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	mounted := api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
			AnnotateLimit:  apiCfg.MayInt("ANNOTATE_LIMIT", 0),
			Stack: httpkit.StackOptions{
				RequestTimeout: apiCfg.MayDuration("REQUEST_TIMEOUT", httpkit.DefaultRequestTimeout),
				Origins:        apiCfg.MayCSV("CORS_ORIGINS", nil),
				SlowRequest:    apiCfg.MayDuration("SLOW_REQUEST", 0),
			},
		},
	)

	// in process watchdog, off when a dedicated cancioneiro-watchdog runs
	if mounted.Watchdog.Enabled && apiCfg.MayBool("WATCHDOG", false) {
		go func() { _ = mounted.Watchdog.Watchdog.Run(ctx) }()
	}

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
