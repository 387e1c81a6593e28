package store

import (
	"context"
	"fmt"
	"time"

	chx "cancioneiro/internal/platform/store/ch"
	"cancioneiro/internal/platform/store/migrate"
	"cancioneiro/internal/platform/store/pg"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// openPG builds the pool, waits for the server to answer and migrates when asked.
// The adapter is only returned once the pool is healthy
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	pool, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		AppName:  cfg.AppName,
		LogSQL:   cfg.PG.LogSQL,
		Slow:     cfg.PG.Slow,
	}, s.Log)
	if err != nil {
		return nil, err
	}

	if err := waitPG(ctx, pool, cfg.PG, s); err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.PG.Migrate {
		if err := migrate.Up(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		s.Log.Info().Msg("postgres schema up to date")
	}
	return newPGAdapter(pool), nil
}

// waitPG pings with exponential backoff, the database often starts alongside us
func waitPG(ctx context.Context, pool *pgxpool.Pool, cfg PGConfig, s *Store) error {
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	err := retry.Do(
		func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return pool.Ping(pctx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(150*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.Log.Debug().Uint("attempt", n+1).Err(err).Msg("waiting for postgres")
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, err)
	}
	return nil
}

func openCH(ctx context.Context, cfg Config) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
		LogSQL:     cfg.CH.LogSQL,
	})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c), nil
}
