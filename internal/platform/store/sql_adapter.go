package store

import (
	"context"
	"errors"
	"time"

	perr "cancioneiro/internal/platform/errors"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txAttempts bounds how often a transaction is replayed after a serialization failure or deadlock
const txAttempts = 3

// pgxQuerier is the surface pgxpool.Pool and pgx.Tx share
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// querier adapts the pool or an open transaction to RowQuerier.
// Statement tracing lives on the pool's pgx tracer
type querier struct{ q pgxQuerier }

func (x querier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	ct, err := x.q.Exec(ctx, sql, args...)
	return tag{ct}, err
}

func (x querier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := x.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

func (x querier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return x.q.QueryRow(ctx, sql, args...)
}

func (x querier) Batch(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, st := range stmts {
		b.Queue(st.SQL, st.Args...)
	}
	br := x.q.SendBatch(ctx, b)
	for range stmts {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

// pgAdapter is the TxRunner and Pinger over a pgx pool
type pgAdapter struct {
	querier
	pool  *pgxpool.Pool
	begin func(ctx context.Context) (pgx.Tx, error)
}

func newPGAdapter(pool *pgxpool.Pool) *pgAdapter {
	return &pgAdapter{querier: querier{q: pool}, pool: pool, begin: pool.Begin}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.pool == nil {
		return errors.New("pg: no pool")
	}
	return a.pool.Ping(ctx)
}

func (a *pgAdapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Tx runs fn in a transaction, replaying the whole of fn when postgres
// reports a serialization failure or deadlock; fn must be safe to rerun
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return retry.Do(
		func() error { return a.once(ctx, fn) },
		retry.Context(ctx),
		retry.Attempts(txAttempts),
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(replayable),
	)
}

func (a *pgAdapter) once(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(querier{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func replayable(err error) bool {
	return perr.IsSerializationFailure(err) || perr.IsDeadlock(err)
}

// pgx rows and tags behind the store interfaces

type rows struct{ r pgx.Rows }

func (x rows) Next() bool            { return x.r.Next() }
func (x rows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x rows) Err() error            { return x.r.Err() }
func (x rows) Close()                { x.r.Close() }
func (x rows) Columns() []string {
	f := x.r.FieldDescriptions()
	out := make([]string, len(f))
	for i := range f {
		out[i] = f[i].Name
	}
	return out
}

type tag struct{ t pgconn.CommandTag }

func (t tag) String() string      { return t.t.String() }
func (t tag) RowsAffected() int64 { return t.t.RowsAffected() }
