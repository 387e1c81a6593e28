package repo

import (
	"context"
	"sync"

	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/store"
	"cancioneiro/internal/services/jobs/domain"
)

const eventsDDL = `
CREATE TABLE IF NOT EXISTS annotation_events
(
  at          DateTime64(3, 'UTC'),
  job_id      UUID,
  kind        LowCardinality(String),
  chunk       UInt32,
  units       UInt32,
  tokens      UInt32,
  cached      UInt32,
  rule        UInt32,
  external    UInt32,
  unresolved  UInt32,
  classified  UInt32,
  fallback    UInt32,
  duration_ms UInt32
)
ENGINE = MergeTree
ORDER BY (kind, at)`

// CHEvents appends chunk events to ClickHouse
type CHEvents struct {
	ch   store.Clickhouse
	once sync.Once
	err  error
}

// NewCHEvents returns a sink over ch; the table is created on first write
func NewCHEvents(ch store.Clickhouse) *CHEvents { return &CHEvents{ch: ch} }

// Record inserts one event row
func (e *CHEvents) Record(ctx context.Context, ev domain.ChunkEvent) error {
	e.once.Do(func() { e.err = e.ch.Exec(ctx, eventsDDL) })
	if e.err != nil {
		return perr.Wrap(e.err, perr.ErrorCodeUnavailable, "events ddl")
	}
	row := []any{
		ev.At, ev.JobID, string(ev.Kind),
		uint32(ev.Chunk), uint32(ev.Units),
		uint32(ev.Stats.Tokens), uint32(ev.Stats.Cached), uint32(ev.Stats.Rule), uint32(ev.Stats.External),
		uint32(ev.Stats.Unresolved), uint32(ev.Stats.Classified), uint32(ev.Stats.Fallback),
		uint32(ev.Duration.Milliseconds()),
	}
	if err := e.ch.Insert(ctx, "annotation_events", [][]any{row}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "events insert")
	}
	return nil
}

// Totals sums the recorded events per kind
func (e *CHEvents) Totals(ctx context.Context) (map[domain.Kind]int64, error) {
	e.once.Do(func() { e.err = e.ch.Exec(ctx, eventsDDL) })
	if e.err != nil {
		return nil, perr.Wrap(e.err, perr.ErrorCodeUnavailable, "events ddl")
	}
	rows, err := e.ch.Query(ctx, `SELECT kind, toInt64(sum(units)) FROM annotation_events GROUP BY kind`)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "events totals")
	}
	defer rows.Close()
	out := map[domain.Kind]int64{}
	for rows.Next() {
		var (
			k string
			n int64
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "events totals scan")
		}
		out[domain.Kind(k)] = n
	}
	return out, rows.Err()
}

// MemoryEvents keeps events in a slice
type MemoryEvents struct {
	mu     sync.Mutex
	events []domain.ChunkEvent
}

func (m *MemoryEvents) Record(_ context.Context, ev domain.ChunkEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of what was recorded
func (m *MemoryEvents) Events() []domain.ChunkEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChunkEvent(nil), m.events...)
}

// Totals sums recorded units per kind
func (m *MemoryEvents) Totals(context.Context) (map[domain.Kind]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Kind]int64{}
	for _, ev := range m.events {
		out[ev.Kind] += int64(ev.Units)
	}
	return out, nil
}
