// Package main is the operator CLI: annotate text locally, run migrations, drive jobs
package main

import (
	"context"
	"os"

	"cancioneiro/internal/modkit"
	"cancioneiro/internal/platform/config"
	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/platform/store"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cancioneiroctl",
	Short: "Operate the cancioneiro annotation pipeline",
	Long: `cancioneiroctl annotates Portuguese lyrics locally, applies the database
schema, and drives annotation jobs either against a running API or inside
this process.

Backends come from the same environment as the services: SERVICE_PGSQL_DBURL
and SERVICE_CLICKHOUSE_DBURL, optionally layered over the file named by
--config or CONFIG_FILE. Without them everything runs in memory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "yaml, toml or json file keyed by env var names (default $CONFIG_FILE)")
	cobra.OnInitialize(initLogger)
}

// conf loads the root config; env vars win over the file
func conf() (config.Conf, error) {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func initLogger() {
	opt := logger.FromEnv()
	opt.Writer = os.Stderr // stdout carries command output
	opt.Service = "cancioneiroctl"
	if lvl, _ := rootCmd.PersistentFlags().GetString("log-level"); lvl != "" {
		opt.Level = lvl
	}
	logger.Init(opt)
}

// openDeps opens whatever backends the environment names
func openDeps(ctx context.Context, tag string) (modkit.Deps, func(), error) {
	root, err := conf()
	if err != nil {
		return modkit.Deps{}, nil, err
	}
	l := logger.Get()
	st, err := store.Open(ctx, store.ConfigFromEnv(root, tag), store.WithLogger(*l))
	if err != nil {
		return modkit.Deps{}, nil, err
	}
	closeFn := func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}
	return modkit.Deps{Cfg: root, PG: st.PG, CH: st.CH, Log: *l}, closeFn, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
