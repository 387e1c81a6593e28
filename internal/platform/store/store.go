// Package store opens the postgres and clickhouse backends behind small seams
// repos depend on instead of the drivers
package store

import (
	"context"
	"errors"
	"fmt"

	"cancioneiro/internal/platform/logger"

	"github.com/rs/zerolog"
)

// Store holds the optional backends; a nil seam means the backend is off
type Store struct {
	// Log is handed to the pg tracer and boot logging
	Log logger.Logger

	PG TxRunner
	CH Clickhouse
}

// Row is one result row
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; callers must Close it
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a statement did
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// Statement is one queued write of a Batch
type Statement struct {
	SQL  string
	Args []any
}

// RowQuerier runs statements on the pool or inside a transaction
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	// Batch sends stmts in one round trip and stops at the first failure
	Batch(ctx context.Context, stmts []Statement) error
}

// TxRunner can also run fn in one transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the analytics sink; Insert takes [][]any rows
type Clickhouse interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Close() error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Open builds a Store from options then cfg. Backends cfg leaves disabled stay nil,
// and a seam already set through WithPG or WithCH is kept as is
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}

	if cfg.PG.Enabled && s.PG == nil {
		p, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = p
	}
	if cfg.CH.Enabled && s.CH == nil {
		c, err := openCH(ctx, cfg)
		if err != nil {
			if pc, ok := s.PG.(interface{ Close() error }); ok {
				_ = pc.Close()
			}
			return nil, err
		}
		s.CH = c
	}
	return s, nil
}

// Guard pings every backend that can be pinged and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for name, seam := range map[string]any{"pg": s.PG, "ch": s.CH} {
		p, ok := seam.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes whatever backends were opened
func (s *Store) Close(context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
