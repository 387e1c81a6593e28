package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cancioneiro/internal/platform/store"
	"cancioneiro/internal/services/jobs/domain"
	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

type fakeCH struct {
	execs   []string
	inserts [][][]any
	execErr error
	rows    [][2]any
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if table != "annotation_events" {
		return errors.New("unexpected table " + table)
	}
	f.inserts = append(f.inserts, rows)
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) {
	return &fakeRows{rows: f.rows, i: -1}, nil
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return f.execErr
}

func (f *fakeCH) Close() error { return nil }

type fakeRows struct {
	rows [][2]any
	i    int
}

func (r *fakeRows) Next() bool { r.i++; return r.i < len(r.rows) }

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.rows[r.i][0].(string)
	*dest[1].(*int64) = r.rows[r.i][1].(int64)
	return nil
}

func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return []string{"kind", "units"} }

func TestCHEvents_RecordCreatesTableOnce(t *testing.T) {
	t.Parallel()
	f := &fakeCH{}
	e := NewCHEvents(f)
	ev := domain.ChunkEvent{
		JobID: uuid.New(), Kind: domain.KindArtist, Chunk: 2, Units: 50,
		Stats: pipedomain.Stats{Tokens: 50, Rule: 40, Cached: 10}, Duration: 1500 * time.Millisecond,
		At: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 2; i++ {
		if err := e.Record(context.Background(), ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if len(f.execs) != 1 || !strings.Contains(f.execs[0], "annotation_events") {
		t.Fatalf("ddl execs = %v", f.execs)
	}
	if len(f.inserts) != 2 {
		t.Fatalf("inserts = %d", len(f.inserts))
	}
	row := f.inserts[0][0]
	if row[2] != "artist" || row[4] != uint32(50) || row[12] != uint32(1500) {
		t.Fatalf("row = %v", row)
	}
}

func TestCHEvents_DDLFailureIsUnavailable(t *testing.T) {
	t.Parallel()
	f := &fakeCH{execErr: errors.New("no server")}
	if err := NewCHEvents(f).Record(context.Background(), domain.ChunkEvent{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.inserts) != 0 {
		t.Fatalf("inserted after ddl failure")
	}
}

func TestCHEvents_Totals(t *testing.T) {
	t.Parallel()
	f := &fakeCH{rows: [][2]any{{"artist", int64(120)}, {"words", int64(7)}}}
	got, err := NewCHEvents(f).Totals(context.Background())
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if got[domain.KindArtist] != 120 || got[domain.KindWords] != 7 {
		t.Fatalf("totals = %v", got)
	}
}

func TestMemoryEvents_Totals(t *testing.T) {
	t.Parallel()
	m := &MemoryEvents{}
	ctx := context.Background()
	_ = m.Record(ctx, domain.ChunkEvent{Kind: domain.KindCorpus, Units: 3})
	_ = m.Record(ctx, domain.ChunkEvent{Kind: domain.KindCorpus, Units: 4})
	got, _ := m.Totals(ctx)
	if got[domain.KindCorpus] != 7 || len(m.Events()) != 2 {
		t.Fatalf("totals = %v", got)
	}
}
