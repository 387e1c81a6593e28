package pg

import (
	"context"
	"strings"
	"time"

	"cancioneiro/internal/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Tracer is a pgx.QueryTracer writing one line per statement
type Tracer struct {
	Log  logger.Logger
	Slow time.Duration
	All  bool
}

var _ pgx.QueryTracer = (*Tracer)(nil)

type startKey struct{}

type started struct {
	sql  string
	args []any
	at   time.Time
}

func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, startKey{}, started{sql: d.SQL, args: d.Args, at: time.Now()})
}

func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	s, ok := ctx.Value(startKey{}).(started)
	if !ok {
		return
	}
	elapsed := time.Since(s.at)
	slow := t.Slow > 0 && elapsed >= t.Slow

	var evt *zerolog.Event
	switch {
	case d.Err != nil, slow:
		evt = t.Log.Warn()
	case t.All:
		evt = t.Log.Debug()
	default:
		return
	}
	if id := logger.RequestID(ctx); id != "" {
		evt = evt.Str("request_id", id)
	}
	if t.All {
		evt = evt.Interface("args", s.args)
	}
	evt.Dur("elapsed", elapsed).
		Bool("slow", slow).
		Str("sql", compact(s.sql)).
		Str("tag", d.CommandTag.String()).
		Err(d.Err).
		Msg("pg query")
}

// compact folds statement whitespace onto one line
func compact(sql string) string { return strings.Join(strings.Fields(sql), " ") }
