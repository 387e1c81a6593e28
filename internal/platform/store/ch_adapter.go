package store

import (
	"context"

	"cancioneiro/internal/platform/store/ch"
)

// chClient is what the adapter needs from *ch.CH
type chClient interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

// chAdapter puts the clickhouse client behind Clickhouse and Pinger;
// only result sets need converting
type chAdapter struct{ chClient }

var (
	_ Clickhouse = chAdapter{}
	_ Pinger     = chAdapter{}
)

func newCHAdapter(c *ch.CH) Clickhouse { return chAdapter{c} }

func (a chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.chClient.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{r}, nil
}

// chRows drops the driver's Close error, Rows has no room for it
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
