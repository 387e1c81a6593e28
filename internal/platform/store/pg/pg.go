// Package pg builds the pgx pool and traces statements through zerolog
package pg

import (
	"context"
	"fmt"
	"time"

	"cancioneiro/internal/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool
type Config struct {
	URL      string
	MaxConns int32
	AppName  string

	// LogSQL logs every statement at debug; without it only slow or failed ones are logged
	LogSQL bool
	// Slow marks a statement slow, 0 never does
	Slow time.Duration
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL and builds the pool. pgxpool connects lazily so a
// reachable server is not required here
func Open(ctx context.Context, cfg Config, log logger.Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pg: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	pcfg.ConnConfig.Tracer = &Tracer{
		Log:  log.With().Str("component", "pg").Logger(),
		Slow: cfg.Slow,
		All:  cfg.LogSQL,
	}
	return newPool(ctx, pcfg)
}
